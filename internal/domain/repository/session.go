package repository

import (
	"context"
	"time"
)

// AuthSession registra un login exitoso (entity_id + provider_identity_id).
type AuthSession struct {
	ID                 string
	EntityID           string
	ProviderIdentityID string
	CreatedAt          time.Time
}

// AuthSessionRepository define operaciones sobre auth_session.
type AuthSessionRepository interface {
	// Create es idempotente por (entity_id, provider_identity_id): si el par
	// ya existe retorna la sesión existente.
	Create(ctx context.Context, entityID, providerIdentityID string) (*AuthSession, error)
}
