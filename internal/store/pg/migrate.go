package pg

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kittilsenstian-debug/online-store-engine/internal/observability/logger"
)

const migrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		name       TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

// Migrator aplica los *_up.sql / *_down.sql de un fs.FS en orden de nombre.
// Lo aplicado se registra en schema_migrations, así que Up es idempotente.
type Migrator struct {
	pool *pgxpool.Pool
	fsys fs.FS
	dir  string
}

// NewMigrator crea un Migrator sobre dir dentro de fsys.
func NewMigrator(pool *pgxpool.Pool, fsys fs.FS, dir string) *Migrator {
	return &Migrator{pool: pool, fsys: fsys, dir: dir}
}

// Up aplica hasta steps migraciones pendientes (0 = todas). Retorna cuántas aplicó.
func (m *Migrator) Up(ctx context.Context, steps int) (int, error) {
	files, err := m.list("_up.sql")
	if err != nil {
		return 0, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}

	log := logger.From(ctx).With(logger.Layer("store"), logger.Component("migrate"))
	n := 0
	for _, f := range files {
		name := strings.TrimSuffix(f, "_up.sql")
		if applied[name] {
			continue
		}
		if steps > 0 && n >= steps {
			break
		}
		if err := m.exec(ctx, f, `INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
			return n, err
		}
		log.Info("migration applied", logger.String("name", name))
		n++
	}
	return n, nil
}

// Down revierte las últimas steps migraciones aplicadas (0 = todas).
func (m *Migrator) Down(ctx context.Context, steps int) (int, error) {
	files, err := m.list("_down.sql")
	if err != nil {
		return 0, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))

	log := logger.From(ctx).With(logger.Layer("store"), logger.Component("migrate"))
	n := 0
	for _, f := range files {
		name := strings.TrimSuffix(f, "_down.sql")
		if !applied[name] {
			continue
		}
		if steps > 0 && n >= steps {
			break
		}
		if err := m.exec(ctx, f, `DELETE FROM schema_migrations WHERE name = $1`, name); err != nil {
			return n, err
		}
		log.Info("migration reverted", logger.String("name", name))
		n++
	}
	return n, nil
}

func (m *Migrator) list(suffix string) ([]string, error) {
	entries, err := fs.ReadDir(m.fsys, m.dir)
	if err != nil {
		return nil, fmt.Errorf("migrate: read %s: %w", m.dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(strings.ToLower(e.Name()), suffix) {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *Migrator) applied(ctx context.Context) (map[string]bool, error) {
	if _, err := m.pool.Exec(ctx, migrationsTable); err != nil {
		return nil, fmt.Errorf("migrate: ensure table: %w", err)
	}
	rows, err := m.pool.Query(ctx, `SELECT name FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = true
	}
	return out, rows.Err()
}

// exec corre el archivo y el registro en schema_migrations en una transacción.
func (m *Migrator) exec(ctx context.Context, file, record, name string) error {
	b, err := fs.ReadFile(m.fsys, path.Join(m.dir, file))
	if err != nil {
		return fmt.Errorf("migrate: read %s: %w", file, err)
	}
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, string(b)); err != nil {
		return fmt.Errorf("migrate: exec %s: %w", file, err)
	}
	if _, err := tx.Exec(ctx, record, name); err != nil {
		return fmt.Errorf("migrate: record %s: %w", name, err)
	}
	return tx.Commit(ctx)
}
