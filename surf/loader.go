/*
loader.go - Fetch-and-build state machine for the debug report

PURPOSE:
  Resolves the signed-in user, fetches the three record sets and builds the
  report. The outcome is a Result whose State says which fields are set, so
  the presentation layer switches on State instead of probing fields.

STATES:
  Loading          initial, before Load returns
  Unauthenticated  no user; nothing was fetched
  Ready            Report is set
  Failed           Err is set; no partial report

FETCHING:
  Breaks, sessions and forecasts are fetched concurrently and joined before
  the report is built. The first failure cancels the others and fails the
  whole load. Nothing is retried and no timeout is added here; the caller's
  context decides how long to wait.

FORECAST ROWS:
  The forecast table is shared by every user, so backends return its rows
  unchecked. Only rows at the user's own breaks are validated; a malformed
  row there fails the load, a malformed row anywhere else is ignored.
*/
package surf

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type State int

const (
	StateLoading State = iota
	StateUnauthenticated
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Result is the outcome of a load.
type Result struct {
	State  State
	User   *User
	Report Report
	Err    error
}

// Loading returns the initial result.
func Loading() Result { return Result{State: StateLoading} }

func ready(u *User, r Report) Result { return Result{State: StateReady, User: u, Report: r} }
func failed(err error) Result       { return Result{State: StateFailed, Err: err} }

// Loader builds reports from a Backend.
type Loader struct {
	backend Backend
	logger  *zap.Logger
}

// NewLoader creates a loader. A nil logger disables logging.
func NewLoader(backend Backend, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{backend: backend, logger: logger}
}

// Load resolves the user for accessToken and builds their report.
func (l *Loader) Load(ctx context.Context, accessToken string) Result {
	user, err := l.backend.CurrentUser(ctx, accessToken)
	if err != nil {
		if IsAuthMissing(err) {
			return Result{State: StateUnauthenticated}
		}
		l.logger.Error("resolve user failed", zap.Error(err))
		return failed(&FetchError{Op: "user", Err: err})
	}
	if user == nil {
		return Result{State: StateUnauthenticated}
	}

	var (
		breaks    []Break
		sessions  []Session
		forecasts []ForecastRecord
	)

	g, gctx := errgroup.WithContext(ContextWithAccessToken(ctx, accessToken))
	g.Go(func() error {
		var err error
		if breaks, err = l.backend.ListBreaks(gctx, user.ID); err != nil {
			return &FetchError{Op: "breaks", Err: err}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if sessions, err = l.backend.ListSessions(gctx, user.ID); err != nil {
			return &FetchError{Op: "sessions", Err: err}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if forecasts, err = l.backend.ListAllForecasts(gctx); err != nil {
			return &FetchError{Op: "forecasts", Err: err}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		l.logger.Error("debug report fetch failed",
			zap.String("user_id", string(user.ID)),
			zap.Error(err))
		return failed(err)
	}

	ignored, err := checkOwnedForecasts(breaks, forecasts)
	if err != nil {
		l.logger.Error("malformed forecast row",
			zap.String("user_id", string(user.ID)),
			zap.Error(err))
		return failed(&FetchError{Op: "forecasts", Err: err})
	}
	if ignored > 0 {
		l.logger.Debug("ignored malformed forecast rows at other breaks", zap.Int("rows", ignored))
	}

	report := BuildReport(breaks, sessions, forecasts)
	l.logger.Debug("debug report built",
		zap.String("user_id", string(user.ID)),
		zap.Int("breaks", report.TotalBreaks),
		zap.Int("sessions", report.TotalSessions),
		zap.Int("forecasts", report.TotalForecastData),
		zap.Int("matches", report.MatchingForecasts))
	return ready(user, report)
}

// checkOwnedForecasts validates the forecasts at the given breaks and
// returns how many malformed rows belong to other breaks.
func checkOwnedForecasts(breaks []Break, forecasts []ForecastRecord) (int, error) {
	owned := make(map[BreakID]struct{}, len(breaks))
	for _, b := range breaks {
		owned[b.ID] = struct{}{}
	}

	ignored := 0
	for _, f := range forecasts {
		err := f.Validate()
		if err == nil {
			continue
		}
		if _, ok := owned[f.BreakID]; ok {
			return 0, err
		}
		ignored++
	}
	return ignored, nil
}
