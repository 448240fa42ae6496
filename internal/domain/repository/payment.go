package repository

import (
	"context"
	"time"
)

// PaymentSession es una sesión de pago dentro de una payment collection.
type PaymentSession struct {
	ID                  string
	PaymentCollectionID string
	ProviderID          string
	Status              string
	Amount              int64
	CurrencyCode        string
	Data                map[string]any
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// UpsertPaymentSessionInput crea o reemplaza la sesión de un provider en una collection.
type UpsertPaymentSessionInput struct {
	PaymentCollectionID string
	ProviderID          string
	Status              string
	Amount              int64
	CurrencyCode        string
	Data                map[string]any
}

// PaymentSessionRepository define operaciones sobre payment_session.
type PaymentSessionRepository interface {
	// GetByID retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*PaymentSession, error)

	// FindByPaymentID busca la sesión cuyo data.vipps_payment_id coincide,
	// limitada a providerIDs. collectionID vacío busca en todas.
	FindByPaymentID(ctx context.Context, collectionID string, providerIDs []string, paymentID string) (*PaymentSession, error)

	// Upsert es único por (payment_collection_id, provider_id).
	Upsert(ctx context.Context, input UpsertPaymentSessionInput) (*PaymentSession, error)

	// Update reemplaza status y data.
	Update(ctx context.Context, id, status string, data map[string]any) (*PaymentSession, error)
}
