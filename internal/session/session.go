// Package session guarda sesiones de navegador en el cache (cookie sid →
// entrada en cache). El login con Vipps la usa para el state CSRF entre el
// redirect inicial y el callback.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kittilsenstian-debug/online-store-engine/internal/cache"
	"github.com/kittilsenstian-debug/online-store-engine/internal/http/helpers"
	tokens "github.com/kittilsenstian-debug/online-store-engine/internal/security/token"
)

// Config configura la cookie y el TTL de las sesiones.
type Config struct {
	CookieName string
	Domain     string
	SameSite   string
	Secure     bool
	TTL        time.Duration
}

// Session es una sesión cargada. Values se persiste con Save.
type Session struct {
	ID     string
	Values map[string]string
	isNew  bool
	dirty  bool
}

// Get retorna un valor ("" si no existe).
func (s *Session) Get(key string) string { return s.Values[key] }

// Set fija un valor.
func (s *Session) Set(key, value string) {
	s.Values[key] = value
	s.dirty = true
}

// Pop retorna y borra un valor.
func (s *Session) Pop(key string) string {
	v, ok := s.Values[key]
	if ok {
		delete(s.Values, key)
		s.dirty = true
	}
	return v
}

// IsNew reporta si la sesión no venía en la request.
func (s *Session) IsNew() bool { return s.isNew }

// Store carga y guarda sesiones.
type Store struct {
	cache cache.Client
	cfg   Config
}

// NewStore crea un Store. Defaults: cookie "sid", TTL 15m, SameSite=Lax.
func NewStore(c cache.Client, cfg Config) *Store {
	if cfg.CookieName == "" {
		cfg.CookieName = "sid"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	if cfg.SameSite == "" {
		cfg.SameSite = "lax"
	}
	return &Store{cache: c, cfg: cfg}
}

type payload struct {
	Values    map[string]string `json:"values"`
	CreatedAt time.Time         `json:"created_at"`
}

// Load lee la sesión de la cookie. Sin cookie, o con una sesión vencida,
// retorna una sesión nueva vacía (sin error).
func (s *Store) Load(ctx context.Context, r *http.Request) (*Session, error) {
	ck, err := r.Cookie(s.cfg.CookieName)
	if err != nil || ck.Value == "" {
		return s.fresh()
	}

	raw, err := s.cache.Get(ctx, cacheKey(ck.Value))
	if cache.IsNotFound(err) {
		return s.fresh()
	}
	if err != nil {
		return nil, fmt.Errorf("session: load: %w", err)
	}

	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return s.fresh()
	}
	if p.Values == nil {
		p.Values = map[string]string{}
	}
	return &Session{ID: ck.Value, Values: p.Values}, nil
}

// Save persiste la sesión si cambió y escribe la cookie en sesiones nuevas.
func (s *Store) Save(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if !sess.dirty && !sess.isNew {
		return nil
	}
	b, err := json.Marshal(payload{Values: sess.Values, CreatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	if err := s.cache.Set(ctx, cacheKey(sess.ID), string(b), s.cfg.TTL); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	if sess.isNew {
		http.SetCookie(w, helpers.SessionCookie(s.cfg.CookieName, sess.ID, s.cookieOptions(), s.cfg.TTL))
		sess.isNew = false
	}
	sess.dirty = false
	return nil
}

func (s *Store) cookieOptions() helpers.CookieOptions {
	return helpers.CookieOptions{Domain: s.cfg.Domain, SameSite: s.cfg.SameSite, Secure: s.cfg.Secure}
}

// Destroy borra la sesión del cache y expira la cookie.
func (s *Store) Destroy(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	http.SetCookie(w, helpers.ExpiredCookie(s.cfg.CookieName, s.cookieOptions()))
	if err := s.cache.Delete(ctx, cacheKey(sess.ID)); err != nil && !errors.Is(err, cache.ErrNotFound) {
		return fmt.Errorf("session: destroy: %w", err)
	}
	return nil
}

func (s *Store) fresh() (*Session, error) {
	id, err := newID()
	if err != nil {
		return nil, err
	}
	return &Session{ID: id, Values: map[string]string{}, isNew: true}, nil
}

func newID() (string, error) {
	id, err := tokens.Opaque(32)
	if err != nil {
		return "", fmt.Errorf("session: id: %w", err)
	}
	return id, nil
}

// cacheKey no guarda el id en claro.
func cacheKey(id string) string {
	return "sid:" + tokens.Hash(id)
}
