/*
backend.go - Read interface to the data backend

PURPOSE:
  Defines the four reads the report needs. The backend is read-only from
  this service's point of view: nothing here creates, updates or deletes.

IMPLEMENTATIONS:
  - surf/store/memory.go:      In-memory for testing
  - store/sqlite/sqlite.go:    Local SQLite database
  - store/supabase/client.go:  Hosted Supabase project (REST)
  - RateLimited (below):       Wrapper limiting request rate to any Backend

ORDERING:
  ListBreaks must return breaks in a stable order; the first break is the
  one the report analyses in detail.
*/
package surf

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Backend is the read interface the report is built from.
type Backend interface {
	// CurrentUser resolves an access token. Returns (nil, nil) when the token
	// is empty or unknown.
	CurrentUser(ctx context.Context, accessToken string) (*User, error)

	// ListBreaks returns the breaks owned by userID, in store order.
	ListBreaks(ctx context.Context, userID UserID) ([]Break, error)

	// ListSessions returns the sessions logged by userID.
	ListSessions(ctx context.Context, userID UserID) ([]Session, error)

	// ListAllForecasts returns every forecast record, for all breaks.
	ListAllForecasts(ctx context.Context) ([]ForecastRecord, error)
}

type accessTokenKey struct{}

// ContextWithAccessToken attaches the caller's access token so backends that
// enforce row-level security can forward it on list reads.
func ContextWithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessTokenFrom returns the token set by ContextWithAccessToken, or "".
func AccessTokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey{}).(string)
	return token
}

// =============================================================================
// RATE LIMITED BACKEND
// =============================================================================

// RateLimited wraps a Backend so that every read waits on a shared limiter.
type RateLimited struct {
	backend Backend
	limiter *rate.Limiter
}

// NewRateLimited creates a rate limited backend.
// rps is the maximum requests per second (may be fractional), burst the
// maximum burst size.
func NewRateLimited(backend Backend, rps float64, burst int) *RateLimited {
	return &RateLimited{
		backend: backend,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (r *RateLimited) wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait canceled: %w", err)
	}
	return nil
}

func (r *RateLimited) CurrentUser(ctx context.Context, accessToken string) (*User, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.backend.CurrentUser(ctx, accessToken)
}

func (r *RateLimited) ListBreaks(ctx context.Context, userID UserID) ([]Break, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.backend.ListBreaks(ctx, userID)
}

func (r *RateLimited) ListSessions(ctx context.Context, userID UserID) ([]Session, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.backend.ListSessions(ctx, userID)
}

func (r *RateLimited) ListAllForecasts(ctx context.Context) ([]ForecastRecord, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.backend.ListAllForecasts(ctx)
}
