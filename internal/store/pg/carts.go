package pg

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kittilsenstian-debug/online-store-engine/internal/domain/repository"
)

type cartRepo struct{ pool *pgxpool.Pool }

func (r *cartRepo) GetByID(ctx context.Context, id string) (*repository.Cart, error) {
	const query = `
		SELECT id, COALESCE(customer_id, ''), COALESCE(email, ''), currency_code, item_count,
		       COALESCE(payment_collection_id, '')
		FROM cart WHERE id = $1 AND deleted_at IS NULL
	`
	var c repository.Cart
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.CustomerID, &c.Email, &c.CurrencyCode, &c.ItemCount, &c.PaymentCollectionID,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (r *cartRepo) EnsurePaymentCollection(ctx context.Context, cartID, currencyCode string, amount int64) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	var current string
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(payment_collection_id, '') FROM cart WHERE id = $1 FOR UPDATE`, cartID,
	).Scan(&current)
	if err != nil {
		return "", mapErr(err)
	}
	if current != "" {
		_, err = tx.Exec(ctx,
			`UPDATE payment_collection SET amount = $2, currency_code = $3, updated_at = NOW() WHERE id = $1`,
			current, amount, currencyCode)
		if err != nil {
			return "", mapErr(err)
		}
		return current, tx.Commit(ctx)
	}

	id := newID("pay_col")
	batch := &pgx.Batch{}
	batch.Queue(`INSERT INTO payment_collection (id, currency_code, amount, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())`, id, currencyCode, amount)
	batch.Queue(`UPDATE cart SET payment_collection_id = $2, updated_at = NOW() WHERE id = $1`, cartID, id)
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return "", mapErr(err)
	}
	return id, tx.Commit(ctx)
}
