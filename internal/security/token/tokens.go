// Package tokens genera valores aleatorios opacos (ids de sesión, state OAuth)
// y sus hashes para usarlos como claves de almacenamiento.
package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// Opaque retorna nBytes aleatorios en base64url sin padding.
func Opaque(nBytes int) (string, error) {
	if nBytes <= 0 {
		return "", fmt.Errorf("tokens: invalid size %d", nBytes)
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("tokens: rand: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Hash retorna sha256(s) en base64url sin padding.
func Hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
