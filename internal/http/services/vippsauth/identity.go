package vippsauth

import (
	"context"
	"strings"

	oauthvipps "github.com/kittilsenstian-debug/online-store-engine/internal/oauth/vipps"
	"github.com/kittilsenstian-debug/online-store-engine/internal/observability/logger"
	"go.uber.org/zap"
)

// Identity es el usuario de Vipps resuelto a partir del token o userinfo.
type Identity struct {
	Subject     string
	Email       string
	Name        string
	GivenName   string
	FamilyName  string
	PhoneNumber string
	// Source es la estrategia que resolvió la identidad.
	Source string
}

// FirstName usa given_name o la primera palabra de name.
func (i Identity) FirstName() string {
	if i.GivenName != "" {
		return i.GivenName
	}
	if f := strings.Fields(i.Name); len(f) > 0 {
		return f[0]
	}
	return ""
}

// LastName usa family_name o el resto de name.
func (i Identity) LastName() string {
	if i.FamilyName != "" {
		return i.FamilyName
	}
	if f := strings.Fields(i.Name); len(f) > 1 {
		return strings.Join(f[1:], " ")
	}
	return ""
}

// EmailOrPlaceholder retorna el email, o <sub>@vipps.no si Vipps no lo dio.
func (i Identity) EmailOrPlaceholder() string {
	if e := strings.TrimSpace(i.Email); e != "" {
		return strings.ToLower(e)
	}
	return strings.ToLower(i.Subject) + "@vipps.no"
}

func identityFromClaims(c map[string]any, source string) Identity {
	str := func(keys ...string) string {
		for _, k := range keys {
			if s, ok := c[k].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
		return ""
	}
	return Identity{
		Subject:     str("sub", "user_id"),
		Email:       str("email"),
		Name:        str("name"),
		GivenName:   str("given_name"),
		FamilyName:  str("family_name"),
		PhoneNumber: str("phone_number"),
		Source:      source,
	}
}

// identityStrategy intenta resolver la identidad; ok=false pasa a la siguiente.
type identityStrategy struct {
	name    string
	resolve func(ctx context.Context, tok *oauthvipps.Tokens) (Identity, bool)
}

// strategies: id_token → userinfo → userinfo alternativo → sub del token.
func (s *callbackService) strategies(log *zap.Logger) []identityStrategy {
	userinfo := func(name, path string) identityStrategy {
		return identityStrategy{name: name, resolve: func(ctx context.Context, tok *oauthvipps.Tokens) (Identity, bool) {
			claims, err := s.login.UserInfo(ctx, tok.AccessToken, path)
			if err != nil {
				log.Warn("userinfo failed", logger.Strategy(name), logger.Err(err))
				return Identity{}, false
			}
			return identityFromClaims(claims, name), true
		}}
	}
	return []identityStrategy{
		{name: "id_token", resolve: func(_ context.Context, tok *oauthvipps.Tokens) (Identity, bool) {
			if tok.IDToken == "" {
				return Identity{}, false
			}
			claims, err := oauthvipps.DecodeIDToken(tok.IDToken)
			if err != nil {
				log.Warn("id_token decode failed", logger.Err(err))
				return Identity{}, false
			}
			return identityFromClaims(claims, "id_token"), true
		}},
		userinfo("userinfo", oauthvipps.UserInfoPath),
		userinfo("userinfo_alt", oauthvipps.AltUserInfoPath),
		{name: "token", resolve: func(_ context.Context, tok *oauthvipps.Tokens) (Identity, bool) {
			if tok.Subject == "" {
				return Identity{}, false
			}
			return Identity{Subject: tok.Subject, Source: "token"}, true
		}},
	}
}

// resolveIdentity corre las estrategias en orden hasta obtener un sub.
func (s *callbackService) resolveIdentity(ctx context.Context, log *zap.Logger, tok *oauthvipps.Tokens) (Identity, bool) {
	for _, st := range s.strategies(log) {
		id, ok := st.resolve(ctx, tok)
		if !ok {
			continue
		}
		if id.Subject == "" {
			log.Warn("identity without subject", logger.Strategy(st.name))
			continue
		}
		log.Info("identity resolved", logger.Strategy(st.name), logger.Subject(id.Subject))
		return id, true
	}
	return Identity{}, false
}
