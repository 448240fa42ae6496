// Package secretbox sella valores sensibles (p.ej. el access token de Vipps
// guardado en provider_metadata) con nacl/secretbox.
package secretbox

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keyLength   = 32
	nonceLength = 24
	sep         = "|" // base64(nonce)|base64(ciphertext)
)

var (
	ErrInvalidKey    = errors.New("secretbox: invalid key")
	ErrInvalidFormat = errors.New("secretbox: expected base64(nonce)|base64(ciphertext)")
	ErrOpen          = errors.New("secretbox: authentication failed")
)

// Box sella y abre con una clave fija. Safe for concurrent use.
type Box struct {
	key [keyLength]byte
}

// New parsea la clave (base64 std/raw o hex de 64 chars) y retorna un Box.
func New(key string) (*Box, error) {
	kb, err := parseKey(key)
	if err != nil {
		return nil, err
	}
	b := &Box{}
	copy(b.key[:], kb)
	return b, nil
}

func parseKey(key string) ([]byte, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("%w: empty; generate one with: openssl rand -base64 32", ErrInvalidKey)
	}
	if b, err := base64.StdEncoding.DecodeString(key); err == nil && len(b) == keyLength {
		return b, nil
	}
	if b, err := base64.RawStdEncoding.DecodeString(key); err == nil && len(b) == keyLength {
		return b, nil
	}
	if len(key) == 2*keyLength {
		if b, err := hex.DecodeString(key); err == nil {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: must decode to %d bytes", ErrInvalidKey, keyLength)
}

// Seal cifra plain con un nonce aleatorio.
func (b *Box) Seal(plain string) (string, error) {
	var nonce [nonceLength]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("secretbox: nonce: %w", err)
	}
	ct := secretbox.Seal(nil, []byte(plain), &nonce, &b.key)
	return base64.StdEncoding.EncodeToString(nonce[:]) + sep + base64.StdEncoding.EncodeToString(ct), nil
}

// Open descifra un valor producido por Seal.
func (b *Box) Open(sealed string) (string, error) {
	parts := strings.Split(sealed, sep)
	if len(parts) != 2 {
		return "", ErrInvalidFormat
	}
	nb, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(nb) != nonceLength {
		return "", ErrInvalidFormat
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", ErrInvalidFormat
	}
	var nonce [nonceLength]byte
	copy(nonce[:], nb)

	pt, ok := secretbox.Open(nil, ct, &nonce, &b.key)
	if !ok {
		return "", ErrOpen
	}
	return string(pt), nil
}
