package repository

import (
	"context"
	"time"
)

// Customer es el cliente de la tienda (lo que consulta /store/customers/me).
type Customer struct {
	ID         string
	Email      string
	FirstName  string
	LastName   string
	Phone      string
	HasAccount bool
	CreatedAt  time.Time
}

// CreateCustomerInput contiene los datos para crear un customer.
type CreateCustomerInput struct {
	Email      string
	FirstName  string
	LastName   string
	Phone      string
	HasAccount bool
}

// CustomerRepository define operaciones sobre customers.
type CustomerRepository interface {
	// GetByID retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*Customer, error)

	// GetByEmail retorna ErrNotFound si no existe.
	GetByEmail(ctx context.Context, email string) (*Customer, error)

	// Create retorna ErrConflict si el email ya existe.
	Create(ctx context.Context, input CreateCustomerInput) (*Customer, error)
}
