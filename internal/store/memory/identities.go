package memory

import (
	"context"

	"github.com/kittilsenstian-debug/online-store-engine/internal/domain/repository"
)

type identityRepo Store

func copyAuth(a *repository.AuthIdentity) *repository.AuthIdentity {
	cp := *a
	cp.AppMetadata = cloneMap(a.AppMetadata)
	cp.ProviderMetadata = cloneMap(a.ProviderMetadata)
	cp.UserMetadata = cloneMap(a.UserMetadata)
	return &cp
}

func copyProvider(p *repository.ProviderIdentity) *repository.ProviderIdentity {
	cp := *p
	cp.ProviderMetadata = cloneMap(p.ProviderMetadata)
	cp.UserMetadata = cloneMap(p.UserMetadata)
	return &cp
}

func (r *identityRepo) GetAuthIdentity(_ context.Context, id string) (*repository.AuthIdentity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.authIdentities[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyAuth(a), nil
}

func (r *identityRepo) GetAuthIdentityByEntity(_ context.Context, provider, entityID string) (*repository.AuthIdentity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.authIdentities {
		if a.Provider == provider && a.EntityID == entityID {
			return copyAuth(a), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *identityRepo) CreateAuthIdentity(_ context.Context, in repository.CreateAuthIdentityInput) (*repository.AuthIdentity, error) {
	if in.Provider == "" || in.EntityID == "" {
		return nil, repository.ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.authIdentities {
		if a.Provider == in.Provider && a.EntityID == in.EntityID {
			return nil, repository.ErrConflict
		}
	}
	now := r.now()
	a := &repository.AuthIdentity{
		ID:               newID("authid"),
		Provider:         in.Provider,
		EntityID:         in.EntityID,
		AppMetadata:      cloneMap(in.AppMetadata),
		ProviderMetadata: cloneMap(in.ProviderMetadata),
		UserMetadata:     cloneMap(in.UserMetadata),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	r.authIdentities[a.ID] = a
	return copyAuth(a), nil
}

func (r *identityRepo) SetAppMetadata(_ context.Context, authIdentityID, key string, value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.authIdentities[authIdentityID]
	if !ok {
		return repository.ErrNotFound
	}
	md := cloneMap(a.AppMetadata)
	md[key] = value
	a.AppMetadata = md
	a.UpdatedAt = r.now()
	return nil
}

func (r *identityRepo) RemoveAppMetadata(_ context.Context, authIdentityID, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.authIdentities[authIdentityID]
	if !ok {
		return repository.ErrNotFound
	}
	md := cloneMap(a.AppMetadata)
	delete(md, key)
	a.AppMetadata = md
	a.UpdatedAt = r.now()
	return nil
}

func (r *identityRepo) GetProviderIdentity(_ context.Context, provider, subject string) (*repository.ProviderIdentity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.providerIdentities {
		if p.Provider == provider && p.EntityID == subject {
			return copyProvider(p), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *identityRepo) CreateProviderIdentity(_ context.Context, in repository.CreateProviderIdentityInput) (*repository.ProviderIdentity, error) {
	if in.AuthIdentityID == "" || in.Provider == "" || in.EntityID == "" {
		return nil, repository.ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.providerIdentities {
		if p.Provider == in.Provider && p.EntityID == in.EntityID {
			return nil, repository.ErrConflict
		}
	}
	now := r.now()
	p := &repository.ProviderIdentity{
		ID:               newID("provid"),
		Provider:         in.Provider,
		EntityID:         in.EntityID,
		AuthIdentityID:   in.AuthIdentityID,
		ProviderMetadata: cloneMap(in.ProviderMetadata),
		UserMetadata:     cloneMap(in.UserMetadata),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	r.providerIdentities[p.ID] = p
	return copyProvider(p), nil
}

func (r *identityRepo) LinkProviderIdentity(_ context.Context, providerIdentityID, authIdentityID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providerIdentities[providerIdentityID]
	if !ok {
		return repository.ErrNotFound
	}
	p.AuthIdentityID = authIdentityID
	p.UpdatedAt = r.now()
	return nil
}

func (r *identityRepo) UpdateProviderMetadata(_ context.Context, providerIdentityID string, md map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providerIdentities[providerIdentityID]
	if !ok {
		return repository.ErrNotFound
	}
	merged := cloneMap(p.ProviderMetadata)
	for k, v := range md {
		merged[k] = v
	}
	p.ProviderMetadata = merged
	p.UpdatedAt = r.now()
	return nil
}
