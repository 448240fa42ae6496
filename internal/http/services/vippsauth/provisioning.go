package vippsauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/kittilsenstian-debug/online-store-engine/internal/domain/repository"
	"github.com/kittilsenstian-debug/online-store-engine/internal/observability/logger"
	"go.uber.org/zap"
)

// resolveUser devuelve el usuario ya vinculado al sub. El email solo decide
// cuando el sub todavía no tiene ProviderIdentity (o quedó huérfana).
func (s *callbackService) resolveUser(ctx context.Context, log *zap.Logger, id Identity) (*repository.User, error) {
	prov, err := s.identities.GetProviderIdentity(ctx, ProviderName, id.Subject)
	switch {
	case err == nil:
		auth, err := s.identities.GetAuthIdentity(ctx, prov.AuthIdentityID)
		if repository.IsNotFound(err) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("get auth identity: %w", err)
		}
		u, err := s.users.GetByID(ctx, auth.EntityID)
		if err == nil {
			return u, nil
		}
		if !repository.IsNotFound(err) {
			return nil, fmt.Errorf("get user: %w", err)
		}
		log.Warn("linked user not found, resolving by email", logger.AuthIdentityID(auth.ID))
	case repository.IsNotFound(err):
	default:
		return nil, fmt.Errorf("get provider identity: %w", err)
	}
	return s.ensureUser(ctx, id)
}

// ensureUser busca el usuario por email o lo crea. Un conflicto al crear
// (otro request lo creó en paralelo) se resuelve releyendo.
func (s *callbackService) ensureUser(ctx context.Context, id Identity) (*repository.User, error) {
	email := id.EmailOrPlaceholder()

	u, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !repository.IsNotFound(err) {
		return nil, fmt.Errorf("get user: %w", err)
	}

	u, err = s.users.Create(ctx, repository.CreateUserInput{
		Email:     email,
		FirstName: id.FirstName(),
		LastName:  id.LastName(),
	})
	if repository.IsConflict(err) {
		return s.users.GetByEmail(ctx, email)
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// ensureIdentities resuelve la AuthIdentity y la ProviderIdentity del sub.
// La AuthIdentity siempre existe antes que la ProviderIdentity que la apunta.
func (s *callbackService) ensureIdentities(ctx context.Context, log *zap.Logger, user *repository.User, id Identity, accessToken string) (*repository.AuthIdentity, *repository.ProviderIdentity, error) {
	prov, err := s.identities.GetProviderIdentity(ctx, ProviderName, id.Subject)
	switch {
	case err == nil:
		auth, err := s.identities.GetAuthIdentity(ctx, prov.AuthIdentityID)
		if repository.IsNotFound(err) {
			log.Warn("provider identity without auth identity, relinking", logger.String("provider_identity_id", prov.ID))
			auth, err = s.ensureAuthIdentity(ctx, user, id, accessToken, prov.ID)
			if err != nil {
				return nil, nil, err
			}
			if err := s.identities.LinkProviderIdentity(ctx, prov.ID, auth.ID); err != nil {
				return nil, nil, fmt.Errorf("link provider identity: %w", err)
			}
			prov.AuthIdentityID = auth.ID
		} else if err != nil {
			return nil, nil, fmt.Errorf("get auth identity: %w", err)
		}
		if err := s.identities.UpdateProviderMetadata(ctx, prov.ID, s.providerMetadata(ctx, id, accessToken)); err != nil {
			log.Warn("provider metadata update failed", logger.Err(err))
		}
		return auth, prov, nil

	case repository.IsNotFound(err):
	default:
		return nil, nil, fmt.Errorf("get provider identity: %w", err)
	}

	auth, err := s.ensureAuthIdentity(ctx, user, id, accessToken, "")
	if err != nil {
		return nil, nil, err
	}

	prov, err = s.identities.CreateProviderIdentity(ctx, repository.CreateProviderIdentityInput{
		Provider:         ProviderName,
		EntityID:         id.Subject,
		AuthIdentityID:   auth.ID,
		ProviderMetadata: s.providerMetadata(ctx, id, accessToken),
		UserMetadata:     userMetadata(id, user.Email),
	})
	if repository.IsConflict(err) {
		prov, err = s.identities.GetProviderIdentity(ctx, ProviderName, id.Subject)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("create provider identity: %w", err)
	}
	log.Info("provider identity linked",
		logger.AuthIdentityID(auth.ID),
		logger.String("provider_identity_id", prov.ID),
	)
	return auth, prov, nil
}

// ensureAuthIdentity busca la AuthIdentity del usuario o la crea.
func (s *callbackService) ensureAuthIdentity(ctx context.Context, user *repository.User, id Identity, accessToken, providerIdentityID string) (*repository.AuthIdentity, error) {
	auth, err := s.identities.GetAuthIdentityByEntity(ctx, ProviderName, user.ID)
	if err == nil {
		return auth, nil
	}
	if !repository.IsNotFound(err) {
		return nil, fmt.Errorf("get auth identity: %w", err)
	}

	appMeta := map[string]any{"sub": id.Subject}
	if providerIdentityID != "" {
		appMeta["provider_identity_id"] = providerIdentityID
	}
	auth, err = s.identities.CreateAuthIdentity(ctx, repository.CreateAuthIdentityInput{
		Provider:         ProviderName,
		EntityID:         user.ID,
		AppMetadata:      appMeta,
		ProviderMetadata: s.providerMetadata(ctx, id, accessToken),
		UserMetadata:     userMetadata(id, user.Email),
	})
	if repository.IsConflict(err) {
		return s.identities.GetAuthIdentityByEntity(ctx, ProviderName, user.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("create auth identity: %w", err)
	}
	return auth, nil
}

// providerMetadata incluye el access token solo si hay Sealer.
func (s *callbackService) providerMetadata(ctx context.Context, id Identity, accessToken string) map[string]any {
	md := map[string]any{
		"sub":           id.Subject,
		"vipps_user_id": id.Subject,
	}
	if id.PhoneNumber != "" {
		md["phone_number"] = id.PhoneNumber
	}
	if s.sealer != nil && accessToken != "" {
		sealed, err := s.sealer.Seal(accessToken)
		if err != nil {
			logger.From(ctx).Warn("access token seal failed", logger.Component("vippsauth.callback"), logger.Err(err))
		} else {
			md["access_token"] = sealed
		}
	}
	return md
}

func userMetadata(id Identity, email string) map[string]any {
	md := map[string]any{"email": email}
	if id.Name != "" {
		md["name"] = id.Name
	}
	if id.PhoneNumber != "" {
		md["phone_number"] = id.PhoneNumber
	}
	return md
}

// ensureCustomer reconcilia el customer de la tienda vía app_metadata.customer_id.
// Un customer_id que ya no existe se borra y se reintenta la creación una vez.
func (s *callbackService) ensureCustomer(ctx context.Context, log *zap.Logger, auth *repository.AuthIdentity, user *repository.User, id Identity) (*repository.Customer, error) {
	if cid, _ := auth.AppMetadata["customer_id"].(string); cid != "" {
		c, err := s.customers.GetByID(ctx, cid)
		if err == nil {
			return c, nil
		}
		if !repository.IsNotFound(err) {
			return nil, fmt.Errorf("get customer: %w", err)
		}
		log.Warn("stale customer_id in app_metadata, removing", logger.CustomerID(cid))
		if err := s.identities.RemoveAppMetadata(ctx, auth.ID, "customer_id"); err != nil {
			return nil, fmt.Errorf("remove stale customer_id: %w", err)
		}
	}

	c, err := s.findOrCreateCustomer(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if err := s.identities.SetAppMetadata(ctx, auth.ID, "customer_id", c.ID); err != nil {
		return nil, fmt.Errorf("set customer_id: %w", err)
	}
	if auth.AppMetadata == nil {
		auth.AppMetadata = map[string]any{}
	}
	auth.AppMetadata["customer_id"] = c.ID
	return c, nil
}

func (s *callbackService) findOrCreateCustomer(ctx context.Context, user *repository.User, id Identity) (*repository.Customer, error) {
	c, err := s.customers.GetByEmail(ctx, user.Email)
	if err == nil {
		return c, nil
	}
	if !repository.IsNotFound(err) {
		return nil, fmt.Errorf("get customer by email: %w", err)
	}

	first, last := user.FirstName, user.LastName
	if first == "" {
		first = id.FirstName()
	}
	if last == "" {
		last = id.LastName()
	}
	c, err = s.customers.Create(ctx, repository.CreateCustomerInput{
		Email:      user.Email,
		FirstName:  first,
		LastName:   last,
		Phone:      id.PhoneNumber,
		HasAccount: true,
	})
	if errors.Is(err, repository.ErrConflict) {
		return s.customers.GetByEmail(ctx, user.Email)
	}
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return c, nil
}
