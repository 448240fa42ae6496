package pg

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kittilsenstian-debug/online-store-engine/internal/domain/repository"
)

type identityRepo struct{ pool *pgxpool.Pool }

const authIdentityColumns = `id, provider, entity_id, app_metadata, provider_metadata, user_metadata, created_at, updated_at`

func scanAuthIdentity(row interface{ Scan(...any) error }) (*repository.AuthIdentity, error) {
	var a repository.AuthIdentity
	err := row.Scan(&a.ID, &a.Provider, &a.EntityID,
		&a.AppMetadata, &a.ProviderMetadata, &a.UserMetadata,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

func (r *identityRepo) GetAuthIdentity(ctx context.Context, id string) (*repository.AuthIdentity, error) {
	return scanAuthIdentity(r.pool.QueryRow(ctx,
		`SELECT `+authIdentityColumns+` FROM auth_identity WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *identityRepo) GetAuthIdentityByEntity(ctx context.Context, provider, entityID string) (*repository.AuthIdentity, error) {
	return scanAuthIdentity(r.pool.QueryRow(ctx,
		`SELECT `+authIdentityColumns+` FROM auth_identity
		 WHERE provider = $1 AND entity_id = $2 AND deleted_at IS NULL LIMIT 1`, provider, entityID))
}

func (r *identityRepo) CreateAuthIdentity(ctx context.Context, in repository.CreateAuthIdentityInput) (*repository.AuthIdentity, error) {
	if in.Provider == "" || in.EntityID == "" {
		return nil, repository.ErrInvalidInput
	}
	const query = `
		INSERT INTO auth_identity (id, provider, entity_id, app_metadata, provider_metadata, user_metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING ` + authIdentityColumns
	return scanAuthIdentity(r.pool.QueryRow(ctx, query,
		newID("authid"), in.Provider, in.EntityID,
		orEmpty(in.AppMetadata), orEmpty(in.ProviderMetadata), orEmpty(in.UserMetadata)))
}

func (r *identityRepo) SetAppMetadata(ctx context.Context, authIdentityID, key string, value any) error {
	const query = `
		UPDATE auth_identity
		SET app_metadata = COALESCE(app_metadata, '{}'::jsonb) || jsonb_build_object($2::text, $3::jsonb),
		    updated_at = NOW()
		WHERE id = $1
	`
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("pg: encode app_metadata %s: %w", key, err)
	}
	tag, err := r.pool.Exec(ctx, query, authIdentityID, key, string(raw))
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *identityRepo) RemoveAppMetadata(ctx context.Context, authIdentityID, key string) error {
	const query = `
		UPDATE auth_identity SET app_metadata = app_metadata - $2::text, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, authIdentityID, key)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

const providerIdentityColumns = `id, provider, entity_id, auth_identity_id, provider_metadata, user_metadata, created_at, updated_at`

func scanProviderIdentity(row interface{ Scan(...any) error }) (*repository.ProviderIdentity, error) {
	var p repository.ProviderIdentity
	err := row.Scan(&p.ID, &p.Provider, &p.EntityID, &p.AuthIdentityID,
		&p.ProviderMetadata, &p.UserMetadata, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r *identityRepo) GetProviderIdentity(ctx context.Context, provider, subject string) (*repository.ProviderIdentity, error) {
	const query = `SELECT ` + providerIdentityColumns + ` FROM provider_identity
		WHERE provider = $1 AND entity_id = $2 AND deleted_at IS NULL LIMIT 1`
	return scanProviderIdentity(r.pool.QueryRow(ctx, query, provider, subject))
}

func (r *identityRepo) CreateProviderIdentity(ctx context.Context, in repository.CreateProviderIdentityInput) (*repository.ProviderIdentity, error) {
	if in.AuthIdentityID == "" || in.Provider == "" || in.EntityID == "" {
		return nil, repository.ErrInvalidInput
	}
	const query = `
		INSERT INTO provider_identity (id, provider, entity_id, auth_identity_id, provider_metadata, user_metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING ` + providerIdentityColumns
	return scanProviderIdentity(r.pool.QueryRow(ctx, query,
		newID("provid"), in.Provider, in.EntityID, in.AuthIdentityID,
		orEmpty(in.ProviderMetadata), orEmpty(in.UserMetadata)))
}

func (r *identityRepo) LinkProviderIdentity(ctx context.Context, providerIdentityID, authIdentityID string) error {
	const query = `UPDATE provider_identity SET auth_identity_id = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, providerIdentityID, authIdentityID)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *identityRepo) UpdateProviderMetadata(ctx context.Context, providerIdentityID string, md map[string]any) error {
	const query = `
		UPDATE provider_identity
		SET provider_metadata = COALESCE(provider_metadata, '{}'::jsonb) || $2::jsonb, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, providerIdentityID, orEmpty(md))
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
