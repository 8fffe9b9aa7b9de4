package session

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// PasswordHasher derives the password hash the login endpoint expects.
// Options.Hasher takes any implementation, PBKDF2Hasher is only the default.
type PasswordHasher interface {
	Hash(account, password string) string
}

const (
	defaultPBKDF2Iterations = 4096
	pbkdf2KeyLen            = 32
)

// PBKDF2Hasher salts PBKDF2-SHA256 with the lower-cased account and hex encodes the key.
type PBKDF2Hasher struct {
	Iterations int
}

func (h PBKDF2Hasher) Hash(account, password string) string {
	iterations := h.Iterations
	if iterations <= 0 {
		iterations = defaultPBKDF2Iterations
	}
	key := pbkdf2.Key(
		[]byte(password),
		[]byte(strings.ToLower(account)),
		iterations,
		pbkdf2KeyLen,
		sha256.New,
	)
	return hex.EncodeToString(key)
}
