package pg

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kittilsenstian-debug/online-store-engine/internal/domain/repository"
)

type paymentSessionRepo struct{ pool *pgxpool.Pool }

const paymentSessionColumns = `id, payment_collection_id, provider_id, status, amount, currency_code, data, created_at, updated_at`

func scanPaymentSession(row interface{ Scan(...any) error }) (*repository.PaymentSession, error) {
	var p repository.PaymentSession
	err := row.Scan(&p.ID, &p.PaymentCollectionID, &p.ProviderID, &p.Status,
		&p.Amount, &p.CurrencyCode, &p.Data, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r *paymentSessionRepo) GetByID(ctx context.Context, id string) (*repository.PaymentSession, error) {
	return scanPaymentSession(r.pool.QueryRow(ctx,
		`SELECT `+paymentSessionColumns+` FROM payment_session WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *paymentSessionRepo) FindByPaymentID(ctx context.Context, collectionID string, providerIDs []string, paymentID string) (*repository.PaymentSession, error) {
	const query = `SELECT ` + paymentSessionColumns + ` FROM payment_session
		WHERE data ->> 'vipps_payment_id' = $1
		  AND provider_id = ANY($2)
		  AND ($3 = '' OR payment_collection_id = $3)
		  AND deleted_at IS NULL
		ORDER BY updated_at DESC
		LIMIT 1`
	return scanPaymentSession(r.pool.QueryRow(ctx, query, paymentID, providerIDs, collectionID))
}

func (r *paymentSessionRepo) Upsert(ctx context.Context, in repository.UpsertPaymentSessionInput) (*repository.PaymentSession, error) {
	const query = `
		INSERT INTO payment_session (id, payment_collection_id, provider_id, status, amount, currency_code, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (payment_collection_id, provider_id) DO UPDATE
		SET status = EXCLUDED.status, amount = EXCLUDED.amount, currency_code = EXCLUDED.currency_code,
		    data = EXCLUDED.data, updated_at = NOW(), deleted_at = NULL
		RETURNING ` + paymentSessionColumns
	return scanPaymentSession(r.pool.QueryRow(ctx, query,
		newID("payses"), in.PaymentCollectionID, in.ProviderID, in.Status,
		in.Amount, strings.ToLower(in.CurrencyCode), orEmpty(in.Data)))
}

func (r *paymentSessionRepo) Update(ctx context.Context, id, status string, data map[string]any) (*repository.PaymentSession, error) {
	const query = `
		UPDATE payment_session SET status = $2, data = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + paymentSessionColumns
	return scanPaymentSession(r.pool.QueryRow(ctx, query, id, status, orEmpty(data)))
}
