package session

import (
	"context"
	"errors"
	"fmt"
	"marketwatch/internal/components/assert"
	"marketwatch/internal/components/chrono"
	"marketwatch/internal/components/telemetry"
	"marketwatch/internal/stepn"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const DefaultMaxAttempts = 3

const (
	report_manager_load_credential = "manager.load-credential"
	report_manager_save_credential = "manager.save-credential"
	report_manager_probe           = "manager.probe"
	report_manager_login           = "manager.login"
	report_manager_logins          = "manager.logins"
)

var tracer = otel.Tracer("internal/session")

type Options struct {
	Account  string
	Password string
	// Codes generates the code for doCodeCheck, the check is skipped when it is nil.
	Codes CodeGenerator
	// Hasher defaults to PBKDF2Hasher.
	Hasher PasswordHasher
	// Clock stamps persisted credentials, defaults to the system clock.
	Clock chrono.API
	// MaxAttempts defaults to DefaultMaxAttempts.
	MaxAttempts int
}

// Manager owns the session of one account. It is safe for concurrent use,
// concurrent callers of EnsureAuthenticated are serialized.
type Manager struct {
	api   AuthAPI
	store Store
	opts  Options
	tel   telemetry.API

	mu      sync.Mutex
	session Session
	// restored is set once the persisted credential was consulted or deliberately skipped.
	restored bool
}

func NewManager(api AuthAPI, store Store, opts Options, tel telemetry.API) *Manager {
	assert.NotNil(api)
	assert.NotNil(store)
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.Account)

	if opts.Hasher == nil {
		opts.Hasher = PBKDF2Hasher{}
	}
	if opts.Clock == nil {
		opts.Clock = chrono.NewStandardImpl()
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}

	return &Manager{
		api:   api,
		store: store,
		opts:  opts,
		tel:   telemetry.NewScopedAPI("session", tel),
	}
}

// SessionID returns the id of the current session, it is empty before the
// first EnsureAuthenticated or after Invalidate.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.SessionID
}

func (m *Manager) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Invalidate forgets the current session, the next EnsureAuthenticated logs
// in again without probing the persisted id.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = Session{}
	m.restored = true
}

// EnsureAuthenticated makes sure the manager holds a session the api accepts.
// An authenticated manager costs one userbasic probe, a fresh login is
// probed the same way before it is trusted. After MaxAttempts
// failed attempts it returns an error wrapping stepn.ErrFatal.
func (m *Manager) EnsureAuthenticated(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, span := tracer.Start(ctx, "EnsureAuthenticated")
	defer span.End()

	var lastErr error
	for attempt := 1; attempt <= m.opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		span.SetAttributes(attribute.Int("attempt", attempt))

		m.restore(ctx)

		if m.session.SessionID != "" {
			err := m.api.UserBasic(ctx, m.session.SessionID)
			if err == nil {
				m.session.Authenticated = true
				return nil
			}
			if !errors.Is(err, stepn.ErrNotAuthorized) && !stepn.IsTransport(err) {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return err
			}
			m.tel.ReportDebug(report_manager_probe, "session rejected", attempt, err)
			m.session.Authenticated = false
		}

		err := m.login(ctx)
		if err == nil {
			return nil
		}
		m.tel.ReportWarning(report_manager_login, err, attempt)
		lastErr = err
	}

	err := fmt.Errorf("%w: cannot establish session: %w", stepn.ErrFatal, lastErr)
	m.tel.ReportBroken(report_manager_login, err)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (m *Manager) restore(ctx context.Context) {
	if m.restored || m.session.SessionID != "" {
		return
	}
	m.restored = true

	cred, err := m.store.Load(ctx)
	if errors.Is(err, ErrNoCredential) {
		return
	}
	if err != nil {
		m.tel.ReportWarning(report_manager_load_credential, err)
		return
	}
	if cred.Account != "" && cred.Account != m.opts.Account {
		m.tel.ReportDebug(report_manager_load_credential, "credential belongs to another account", cred.Account)
		return
	}
	m.session.SessionID = cred.SessionID
}

func (m *Manager) login(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "login")
	defer span.End()

	m.tel.ReportCount(report_manager_logins, 1)

	hash := m.opts.Hasher.Hash(m.opts.Account, m.opts.Password)
	sessionID, err := m.api.Login(ctx, m.opts.Account, hash)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("login: %w", err)
	}
	m.session = Session{SessionID: sessionID}

	if m.opts.Codes != nil {
		code, err := m.opts.Codes.Code()
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("generate totp: %w", err)
		}
		err = m.api.CodeCheck(ctx, sessionID, code)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("code check: %w", err)
		}
	}

	// the new id only counts once userbasic accepted it
	err = m.api.UserBasic(ctx, sessionID)
	if err != nil {
		m.session = Session{}
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("verify session: %w", err)
	}
	m.session.Authenticated = true

	err = m.store.Save(ctx, Credential{
		SessionID: sessionID,
		Account:   m.opts.Account,
		SavedAt:   m.opts.Clock.Now(),
	})
	if err != nil {
		// the session works, it just has to be established again next run
		m.tel.ReportBroken(report_manager_save_credential, err)
	}
	return nil
}
