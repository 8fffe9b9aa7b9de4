package session

import (
	"context"
	"database/sql"
	"errors"
	"marketwatch/internal/components/assert"
	"time"
)

// SqliteStore keeps one credential row per account in the session_credential table.
type SqliteStore struct {
	db      *sql.DB
	account string
}

func NewSqliteStore(db *sql.DB, account string) SqliteStore {
	assert.NotNil(db)
	assert.NotEmptyStr(account)
	return SqliteStore{db: db, account: account}
}

func (s SqliteStore) Load(ctx context.Context) (Credential, error) {
	row := s.db.QueryRowContext(
		ctx,
		"select session_id, saved_at from session_credential where account = ?",
		s.account,
	)

	var (
		sessionID string
		savedAt   int64
	)
	err := row.Scan(&sessionID, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Credential{}, ErrNoCredential
	}
	if err != nil {
		return Credential{}, err
	}
	return Credential{
		SessionID: sessionID,
		Account:   s.account,
		SavedAt:   time.Unix(savedAt, 0),
	}, nil
}

func (s SqliteStore) Save(ctx context.Context, cred Credential) error {
	_, err := s.db.ExecContext(
		ctx,
		`insert into session_credential(account, session_id, saved_at) values (?, ?, ?)
		on conflict(account) do update set session_id = excluded.session_id, saved_at = excluded.saved_at`,
		s.account,
		cred.SessionID,
		cred.SavedAt.Unix(),
	)
	return err
}
