package pg

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kittilsenstian-debug/online-store-engine/internal/domain/repository"
)

// ─── UserRepository ───

type userRepo struct{ pool *pgxpool.Pool }

const userColumns = `id, email, first_name, last_name, created_at`

func scanUser(row interface{ Scan(...any) error }) (*repository.User, error) {
	var u repository.User
	if err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*repository.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM app_user WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM app_user WHERE LOWER(email) = LOWER($1) AND deleted_at IS NULL LIMIT 1`, email))
}

func (r *userRepo) Create(ctx context.Context, in repository.CreateUserInput) (*repository.User, error) {
	const query = `
		INSERT INTO app_user (id, email, first_name, last_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING created_at
	`
	u := &repository.User{
		ID:        newID("user"),
		Email:     strings.TrimSpace(in.Email),
		FirstName: in.FirstName,
		LastName:  in.LastName,
	}
	if err := r.pool.QueryRow(ctx, query, u.ID, u.Email, u.FirstName, u.LastName).Scan(&u.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

// ─── CustomerRepository ───

type customerRepo struct{ pool *pgxpool.Pool }

const customerColumns = `id, email, first_name, last_name, COALESCE(phone, ''), has_account, created_at`

func scanCustomer(row interface{ Scan(...any) error }) (*repository.Customer, error) {
	var c repository.Customer
	if err := row.Scan(&c.ID, &c.Email, &c.FirstName, &c.LastName, &c.Phone, &c.HasAccount, &c.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (r *customerRepo) GetByID(ctx context.Context, id string) (*repository.Customer, error) {
	return scanCustomer(r.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customer WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *customerRepo) GetByEmail(ctx context.Context, email string) (*repository.Customer, error) {
	return scanCustomer(r.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customer WHERE LOWER(email) = LOWER($1) AND deleted_at IS NULL LIMIT 1`, email))
}

func (r *customerRepo) Create(ctx context.Context, in repository.CreateCustomerInput) (*repository.Customer, error) {
	const query = `
		INSERT INTO customer (id, email, first_name, last_name, phone, has_account, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NOW(), NOW())
		RETURNING ` + customerColumns
	return scanCustomer(r.pool.QueryRow(ctx, query,
		newID("cus"), strings.TrimSpace(in.Email), in.FirstName, in.LastName, in.Phone, in.HasAccount))
}
