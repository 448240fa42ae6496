package pg

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kittilsenstian-debug/online-store-engine/internal/domain/repository"
)

type authSessionRepo struct{ pool *pgxpool.Pool }

func (r *authSessionRepo) Create(ctx context.Context, entityID, providerIdentityID string) (*repository.AuthSession, error) {
	// DO UPDATE (no DO NOTHING) para que RETURNING devuelva la fila existente.
	const query = `
		INSERT INTO auth_session (id, entity_id, provider_identity_id, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (entity_id, provider_identity_id) DO UPDATE SET entity_id = EXCLUDED.entity_id
		RETURNING id, entity_id, provider_identity_id, created_at
	`
	var s repository.AuthSession
	err := r.pool.QueryRow(ctx, query, newID("authsess"), entityID, providerIdentityID).
		Scan(&s.ID, &s.EntityID, &s.ProviderIdentityID, &s.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &s, nil
}
