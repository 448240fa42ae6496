// Package store abre el backend de persistencia configurado.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/kittilsenstian-debug/online-store-engine/internal/domain/repository"
	"github.com/kittilsenstian-debug/online-store-engine/internal/store/memory"
	"github.com/kittilsenstian-debug/online-store-engine/internal/store/pg"
	migrations "github.com/kittilsenstian-debug/online-store-engine/migrations/postgres"
)

// Store es el conjunto de repositorios que usan los servicios.
type Store interface {
	Users() repository.UserRepository
	Customers() repository.CustomerRepository
	Identities() repository.IdentityRepository
	AuthSessions() repository.AuthSessionRepository
	Carts() repository.CartRepository
	PaymentSessions() repository.PaymentSessionRepository

	Ping(ctx context.Context) error
	Close()
}

type Config struct {
	Driver   string
	DSN      string
	MaxConns int32
	// Migrate aplica las migraciones pendientes al abrir (solo postgres).
	Migrate bool
}

// Open conecta con el driver pedido.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "postgres", "pg", "postgresql":
		s, err := pg.New(ctx, cfg.DSN, pg.Options{MaxConns: cfg.MaxConns})
		if err != nil {
			return nil, err
		}
		if cfg.Migrate {
			if _, err := Migrator(s).Up(ctx, 0); err != nil {
				s.Close()
				return nil, fmt.Errorf("store: migrate: %w", err)
			}
		}
		return s, nil
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("store: unsupported driver: %s", cfg.Driver)
	}
}

// Migrator retorna el runner de migraciones embebidas para s.
func Migrator(s *pg.Store) *pg.Migrator {
	return pg.NewMigrator(s.Pool(), migrations.SchemaFS, migrations.SchemaDir)
}
