// Package pg implementa los repositorios sobre PostgreSQL con pgx.
package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kittilsenstian-debug/online-store-engine/internal/domain/repository"
	"github.com/kittilsenstian-debug/online-store-engine/internal/observability/logger"
)

// Options ajusta el pool.
type Options struct {
	MaxConns int32
	MinConns int32
}

// Store agrupa los repositorios sobre un pool compartido.
type Store struct{ pool *pgxpool.Pool }

// New abre el pool. Un ping fallido al arrancar solo se loguea.
func New(ctx context.Context, dsn string, opts Options) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: parse dsn: %w", err)
	}
	if opts.MaxConns > 0 {
		pcfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		pcfg.MinConns = opts.MinConns
	}
	if pcfg.MaxConns == 0 {
		pcfg.MaxConns = 5
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pg: open pool: %w", err)
	}

	log := logger.From(ctx).With(logger.Layer("store"), logger.Component("pg"))
	if err := pool.Ping(ctx); err != nil {
		log.Warn("pg pool startup ping failed", logger.Err(err))
	} else {
		log.Info("pg pool ready", logger.Int("max_conns", int(pcfg.MaxConns)))
	}
	return &Store{pool: pool}, nil
}

// NewFromPool envuelve un pool existente (tests, migraciones).
func NewFromPool(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

// Pool expone el pool interno (migraciones).
func (s *Store) Pool() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

// Ping verifica la conexión.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close cierra el pool subyacente (idempotente).
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Users() repository.UserRepository                     { return &userRepo{pool: s.pool} }
func (s *Store) Customers() repository.CustomerRepository             { return &customerRepo{pool: s.pool} }
func (s *Store) Identities() repository.IdentityRepository            { return &identityRepo{pool: s.pool} }
func (s *Store) AuthSessions() repository.AuthSessionRepository       { return &authSessionRepo{pool: s.pool} }
func (s *Store) Carts() repository.CartRepository                     { return &cartRepo{pool: s.pool} }
func (s *Store) PaymentSessions() repository.PaymentSessionRepository { return &paymentSessionRepo{pool: s.pool} }

// pgUniqueViolation es el SQLSTATE de unique_violation.
const pgUniqueViolation = "23505"

// mapErr traduce errores de pgx a errores de dominio.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", repository.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

func newID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
