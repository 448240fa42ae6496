package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/kittilsenstian-debug/online-store-engine/internal/domain/repository"
)

// ─── CartRepository ───

type cartRepo Store

func (r *cartRepo) GetByID(_ context.Context, id string) (*repository.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.carts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *cartRepo) EnsurePaymentCollection(_ context.Context, cartID, currencyCode string, amount int64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[cartID]
	if !ok {
		return "", repository.ErrNotFound
	}
	if c.PaymentCollectionID == "" {
		c.PaymentCollectionID = newID("pay_col")
	}
	r.collections[c.PaymentCollectionID] = collection{currencyCode: currencyCode, amount: amount}
	return c.PaymentCollectionID, nil
}

// ─── PaymentSessionRepository ───

type paymentSessionRepo Store

func copySession(p *repository.PaymentSession) *repository.PaymentSession {
	cp := *p
	cp.Data = cloneMap(p.Data)
	return &cp
}

func (r *paymentSessionRepo) GetByID(_ context.Context, id string) (*repository.PaymentSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.paymentSessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copySession(p), nil
}

func (r *paymentSessionRepo) FindByPaymentID(_ context.Context, collectionID string, providerIDs []string, paymentID string) (*repository.PaymentSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best *repository.PaymentSession
	for _, p := range r.paymentSessions {
		if collectionID != "" && p.PaymentCollectionID != collectionID {
			continue
		}
		if !slices.Contains(providerIDs, p.ProviderID) {
			continue
		}
		if id, _ := p.Data["vipps_payment_id"].(string); id != paymentID {
			continue
		}
		if best == nil || p.UpdatedAt.After(best.UpdatedAt) {
			best = p
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	return copySession(best), nil
}

func (r *paymentSessionRepo) Upsert(_ context.Context, in repository.UpsertPaymentSessionInput) (*repository.PaymentSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for _, p := range r.paymentSessions {
		if p.PaymentCollectionID == in.PaymentCollectionID && p.ProviderID == in.ProviderID {
			p.Status = in.Status
			p.Amount = in.Amount
			p.CurrencyCode = strings.ToLower(in.CurrencyCode)
			p.Data = cloneMap(in.Data)
			p.UpdatedAt = now
			return copySession(p), nil
		}
	}
	p := &repository.PaymentSession{
		ID:                  newID("payses"),
		PaymentCollectionID: in.PaymentCollectionID,
		ProviderID:          in.ProviderID,
		Status:              in.Status,
		Amount:              in.Amount,
		CurrencyCode:        strings.ToLower(in.CurrencyCode),
		Data:                cloneMap(in.Data),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	r.paymentSessions[p.ID] = p
	return copySession(p), nil
}

func (r *paymentSessionRepo) Update(_ context.Context, id, status string, data map[string]any) (*repository.PaymentSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.paymentSessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p.Status = status
	p.Data = cloneMap(data)
	p.UpdatedAt = r.now()
	return copySession(p), nil
}
