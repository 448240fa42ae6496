package repository

import "context"

// Cart es la parte del carrito que usa el checkout con Vipps.
type Cart struct {
	ID                  string
	CustomerID          string
	Email               string
	CurrencyCode        string
	ItemCount           int
	PaymentCollectionID string
}

// CartRepository define operaciones sobre carts.
type CartRepository interface {
	// GetByID retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*Cart, error)

	// EnsurePaymentCollection retorna la payment collection del cart,
	// creándola con amount/currency si todavía no tiene una.
	EnsurePaymentCollection(ctx context.Context, cartID, currencyCode string, amount int64) (string, error)
}
