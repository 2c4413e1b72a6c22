// Package hash derives and checks password hashes with argon2id.
//
// The stored hash carries its own parameters so they can be raised later
// without invalidating existing accounts; the salt lives in a separate column.
package hash

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	algorithm = "argon2id"
	saltLen   = 16
	keyLen    = 32
)

var ErrMalformedHash = errors.New("malformed password hash")

type Params struct {
	MemoryKiB  uint32
	Iterations uint32
	Threads    uint8
}

var DefaultParams = Params{MemoryKiB: 64 * 1024, Iterations: 1, Threads: 4}

type Hasher struct {
	params Params
}

func New(p Params) *Hasher {
	return &Hasher{params: p}
}

// HashPassword returns the encoded hash and the base64 salt it was derived with.
func (h *Hasher) HashPassword(password string) (string, string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", "", fmt.Errorf("read salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, h.params.Iterations, h.params.MemoryKiB, h.params.Threads, keyLen)
	return encode(h.params, key), base64.RawStdEncoding.EncodeToString(salt), nil
}

// CheckPassword reports whether password matches the stored hash and salt.
func (h *Hasher) CheckPassword(encoded, salt, password string) bool {
	p, key, err := decode(encoded)
	if err != nil {
		return false
	}
	rawSalt, err := base64.RawStdEncoding.DecodeString(salt)
	if err != nil {
		return false
	}
	candidate := argon2.IDKey([]byte(password), rawSalt, p.Iterations, p.MemoryKiB, p.Threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, candidate) == 1
}

// Burn spends one derivation on password so that a lookup miss costs the same as a hit.
func (h *Hasher) Burn(password string) {
	var salt [saltLen]byte
	argon2.IDKey([]byte(password), salt[:], h.params.Iterations, h.params.MemoryKiB, h.params.Threads, keyLen)
}

func encode(p Params, key []byte) string {
	return fmt.Sprintf("%s$v=%d$m=%d,t=%d,p=%d$%s",
		algorithm, argon2.Version, p.MemoryKiB, p.Iterations, p.Threads,
		base64.RawStdEncoding.EncodeToString(key))
}

func decode(encoded string) (Params, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 4 || parts[0] != algorithm {
		return Params{}, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[1], "v=%d", &version); err != nil || version != argon2.Version {
		return Params{}, nil, ErrMalformedHash
	}

	var p Params
	if _, err := fmt.Sscanf(parts[2], "m=%d,t=%d,p=%d", &p.MemoryKiB, &p.Iterations, &p.Threads); err != nil {
		return Params{}, nil, ErrMalformedHash
	}
	if p.MemoryKiB == 0 || p.Iterations == 0 || p.Threads == 0 {
		return Params{}, nil, ErrMalformedHash
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil || len(key) == 0 {
		return Params{}, nil, ErrMalformedHash
	}
	return p, key, nil
}
