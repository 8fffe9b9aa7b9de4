// Package session keeps an authenticated STEPN session alive: it restores a
// persisted session id, probes it, and logs in again with password and TOTP
// when the id is rejected.
package session

import (
	"context"
	"errors"
	"time"
)

// Session is the state owned by a Manager.
type Session struct {
	SessionID     string
	Authenticated bool
}

// Credential is what survives between runs.
type Credential struct {
	SessionID string    `json:"session_id"`
	Account   string    `json:"account"`
	SavedAt   time.Time `json:"saved_at"`
}

var ErrNoCredential = errors.New("no persisted session credential")

// Store persists the credential of the last successful login.
type Store interface {
	// Load returns ErrNoCredential when nothing was persisted yet.
	Load(ctx context.Context) (Credential, error)
	// Save overwrites whatever was persisted before.
	Save(ctx context.Context, cred Credential) error
}

// AuthAPI is the part of the STEPN api the manager logs in with.
type AuthAPI interface {
	Login(ctx context.Context, account, passwordHash string) (string, error)
	CodeCheck(ctx context.Context, sessionID, code string) error
	UserBasic(ctx context.Context, sessionID string) error
}
