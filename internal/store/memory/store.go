// Package memory implementa los repositorios en memoria. Se usa en tests y
// cuando storage.driver es "memory" (sin persistencia entre reinicios).
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kittilsenstian-debug/online-store-engine/internal/domain/repository"
)

// Store guarda todas las tablas detrás de un solo mutex.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	users              map[string]*repository.User
	customers          map[string]*repository.Customer
	authIdentities     map[string]*repository.AuthIdentity
	providerIdentities map[string]*repository.ProviderIdentity
	authSessions       map[string]*repository.AuthSession
	carts              map[string]*repository.Cart
	collections        map[string]collection
	paymentSessions    map[string]*repository.PaymentSession
}

type collection struct {
	currencyCode string
	amount       int64
}

// New crea un Store vacío.
func New() *Store {
	return &Store{
		now:                time.Now,
		users:              map[string]*repository.User{},
		customers:          map[string]*repository.Customer{},
		authIdentities:     map[string]*repository.AuthIdentity{},
		providerIdentities: map[string]*repository.ProviderIdentity{},
		authSessions:       map[string]*repository.AuthSession{},
		carts:              map[string]*repository.Cart{},
		collections:        map[string]collection{},
		paymentSessions:    map[string]*repository.PaymentSession{},
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close()                     {}

func (s *Store) Users() repository.UserRepository                     { return (*userRepo)(s) }
func (s *Store) Customers() repository.CustomerRepository             { return (*customerRepo)(s) }
func (s *Store) Identities() repository.IdentityRepository            { return (*identityRepo)(s) }
func (s *Store) AuthSessions() repository.AuthSessionRepository       { return (*authSessionRepo)(s) }
func (s *Store) Carts() repository.CartRepository                     { return (*cartRepo)(s) }
func (s *Store) PaymentSessions() repository.PaymentSessionRepository { return (*paymentSessionRepo)(s) }

// PutCart carga un cart (seed de tests y del modo memory).
func (s *Store) PutCart(c repository.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := c
	s.carts[c.ID] = &cp
}

// PutCustomer carga un customer con id fijo.
func (s *Store) PutCustomer(c repository.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := c
	s.customers[c.ID] = &cp
}

// DeleteCustomer simula un customer borrado fuera del flujo.
func (s *Store) DeleteCustomer(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.customers, id)
}

func newID(prefix string) string { return prefix + "_" + uuid.NewString() }

func sameEmail(a, b string) bool { return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) }

// cloneMap copia un nivel; los valores anidados se comparten.
func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ─── UserRepository ───

type userRepo Store

func (r *userRepo) GetByID(_ context.Context, id string) (*repository.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*repository.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if sameEmail(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) Create(_ context.Context, in repository.CreateUserInput) (*repository.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if sameEmail(u.Email, in.Email) {
			return nil, repository.ErrConflict
		}
	}
	u := &repository.User{
		ID:        newID("user"),
		Email:     strings.TrimSpace(in.Email),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		CreatedAt: r.now(),
	}
	r.users[u.ID] = u
	cp := *u
	return &cp, nil
}

// ─── CustomerRepository ───

type customerRepo Store

func (r *customerRepo) GetByID(_ context.Context, id string) (*repository.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.customers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *customerRepo) GetByEmail(_ context.Context, email string) (*repository.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.customers {
		if sameEmail(c.Email, email) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *customerRepo) Create(_ context.Context, in repository.CreateCustomerInput) (*repository.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.customers {
		if sameEmail(c.Email, in.Email) {
			return nil, repository.ErrConflict
		}
	}
	c := &repository.Customer{
		ID:         newID("cus"),
		Email:      strings.TrimSpace(in.Email),
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		Phone:      in.Phone,
		HasAccount: in.HasAccount,
		CreatedAt:  r.now(),
	}
	r.customers[c.ID] = c
	cp := *c
	return &cp, nil
}

// ─── AuthSessionRepository ───

type authSessionRepo Store

func (r *authSessionRepo) Create(_ context.Context, entityID, providerIdentityID string) (*repository.AuthSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.authSessions {
		if s.EntityID == entityID && s.ProviderIdentityID == providerIdentityID {
			cp := *s
			return &cp, nil
		}
	}
	s := &repository.AuthSession{
		ID:                 newID("authsess"),
		EntityID:           entityID,
		ProviderIdentityID: providerIdentityID,
		CreatedAt:          r.now(),
	}
	r.authSessions[s.ID] = s
	cp := *s
	return &cp, nil
}
