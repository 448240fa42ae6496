package repository

import (
	"context"
	"time"
)

// AuthIdentity es la identidad de autenticación de un usuario para un provider.
// EntityID es el id del usuario; AppMetadata guarda customer_id una vez
// reconciliado.
type AuthIdentity struct {
	ID               string
	Provider         string
	EntityID         string
	AppMetadata      map[string]any
	ProviderMetadata map[string]any
	UserMetadata     map[string]any
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ProviderIdentity vincula un sujeto externo (EntityID = sub del provider)
// con una AuthIdentity. AuthIdentityID nunca es vacío.
type ProviderIdentity struct {
	ID               string
	Provider         string
	EntityID         string
	AuthIdentityID   string
	ProviderMetadata map[string]any
	UserMetadata     map[string]any
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CreateAuthIdentityInput contiene los datos para crear una AuthIdentity.
type CreateAuthIdentityInput struct {
	Provider         string
	EntityID         string
	AppMetadata      map[string]any
	ProviderMetadata map[string]any
	UserMetadata     map[string]any
}

// CreateProviderIdentityInput contiene los datos para crear una ProviderIdentity.
type CreateProviderIdentityInput struct {
	Provider         string
	EntityID         string
	AuthIdentityID   string
	ProviderMetadata map[string]any
	UserMetadata     map[string]any
}

// IdentityRepository define operaciones sobre auth_identity y provider_identity.
type IdentityRepository interface {
	// GetAuthIdentity retorna ErrNotFound si no existe.
	GetAuthIdentity(ctx context.Context, id string) (*AuthIdentity, error)

	// GetAuthIdentityByEntity busca por (provider, entity_id).
	GetAuthIdentityByEntity(ctx context.Context, provider, entityID string) (*AuthIdentity, error)

	// CreateAuthIdentity retorna ErrConflict si (provider, entity_id) ya existe.
	CreateAuthIdentity(ctx context.Context, input CreateAuthIdentityInput) (*AuthIdentity, error)

	// SetAppMetadata fija una clave de app_metadata sin tocar el resto.
	SetAppMetadata(ctx context.Context, authIdentityID, key string, value any) error

	// RemoveAppMetadata borra una clave de app_metadata.
	RemoveAppMetadata(ctx context.Context, authIdentityID, key string) error

	// GetProviderIdentity busca por (provider, sub).
	GetProviderIdentity(ctx context.Context, provider, subject string) (*ProviderIdentity, error)

	// CreateProviderIdentity exige AuthIdentityID (ErrInvalidInput si falta).
	// Retorna ErrConflict si (provider, entity_id) ya existe.
	CreateProviderIdentity(ctx context.Context, input CreateProviderIdentityInput) (*ProviderIdentity, error)

	// LinkProviderIdentity apunta la ProviderIdentity a otra AuthIdentity.
	LinkProviderIdentity(ctx context.Context, providerIdentityID, authIdentityID string) error

	// UpdateProviderMetadata mezcla md sobre provider_metadata.
	UpdateProviderMetadata(ctx context.Context, providerIdentityID string, md map[string]any) error
}
