// Package repository define las interfaces de persistencia que usan el bridge
// de Vipps Login y el adapter de pagos.
//
// Solo existen las tablas que esos flujos necesitan: usuarios, customers,
// identidades (auth + provider), auth sessions, carts y payment sessions.
// Las implementaciones viven en internal/store/pg (PostgreSQL, pgx) e
// internal/store/memory (tests y modo sin base de datos).
//
// Convenciones:
//   - Context siempre es el primer parámetro
//   - Lecturas sin resultado retornan ErrNotFound
//   - Inserts que violan una clave única retornan ErrConflict
//   - Errores de dominio están en errors.go
package repository
