package scanner

import (
	"context"
	"errors"
	"fmt"
	"marketwatch/internal/components/assert"
	"marketwatch/internal/components/telemetry"
	"marketwatch/internal/stepn"
)

const report_market_reauthenticate = "market.reauthenticate"

// Market is what the scanner reads listings from.
type Market interface {
	OrderList(ctx context.Context, paging stepn.Paging) ([]stepn.Listing, error)
	OrderData(ctx context.Context, orderID int64) (stepn.ListingDetail, error)
}

// API is the session-less market api, implemented by stepn.Client.
type API interface {
	OrderList(ctx context.Context, sessionID string, paging stepn.Paging) ([]stepn.Listing, error)
	OrderData(ctx context.Context, sessionID string, orderID int64) (stepn.ListingDetail, error)
}

// Authenticator is implemented by session.Manager.
type Authenticator interface {
	EnsureAuthenticated(ctx context.Context) error
	Invalidate()
	SessionID() string
}

// SessionMarket calls the api with the current session. A rejected session
// is replaced by a new login and the call is retried once, a second
// rejection is fatal.
type SessionMarket struct {
	api  API
	auth Authenticator
	tel  telemetry.API
}

func NewSessionMarket(api API, auth Authenticator, tel telemetry.API) SessionMarket {
	assert.NotNil(api)
	assert.NotNil(auth)
	assert.NotNil(tel)
	return SessionMarket{
		api:  api,
		auth: auth,
		tel:  telemetry.NewScopedAPI("market", tel),
	}
}

func (m SessionMarket) OrderList(ctx context.Context, paging stepn.Paging) ([]stepn.Listing, error) {
	return withSession(ctx, m, func(sessionID string) ([]stepn.Listing, error) {
		return m.api.OrderList(ctx, sessionID, paging)
	})
}

func (m SessionMarket) OrderData(ctx context.Context, orderID int64) (stepn.ListingDetail, error) {
	return withSession(ctx, m, func(sessionID string) (stepn.ListingDetail, error) {
		return m.api.OrderData(ctx, sessionID, orderID)
	})
}

func withSession[T any](ctx context.Context, m SessionMarket, call func(sessionID string) (T, error)) (T, error) {
	res, err := call(m.auth.SessionID())
	if !errors.Is(err, stepn.ErrNotAuthorized) {
		return res, err
	}

	m.tel.ReportWarning(report_market_reauthenticate, err)
	m.auth.Invalidate()
	var zero T
	err = m.auth.EnsureAuthenticated(ctx)
	if err != nil {
		return zero, err
	}

	res, err = call(m.auth.SessionID())
	if errors.Is(err, stepn.ErrNotAuthorized) {
		return zero, fmt.Errorf("%w: session rejected right after logging in: %w", stepn.ErrFatal, err)
	}
	return res, err
}
