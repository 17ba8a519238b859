package surf_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/warp/surf-debug/surf"
	"github.com/warp/surf-debug/surf/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// =============================================================================
// TEST SETUP
// =============================================================================

const testToken = "token-1"

func newTestBackend() *store.Memory {
	mem := store.NewMemory()
	mem.AddUser(testToken, surf.User{ID: "user-1", Email: "kelly@example.com"})
	mem.AddBreaks(brk("1"), surf.Break{ID: "other", UserID: "user-2", Name: "Not mine"})
	mem.AddSessions(
		sess("s1", "1", "2024-01-01", "07:00"),
		surf.Session{ID: "s9", UserID: "user-2", BreakID: "other", Date: "2024-01-01", Time: "07:00"},
	)
	mem.AddForecasts(
		fc("f1", "1", "2024-01-01", "07:00", 4, 10),
		fc("f2", "other", "2024-01-01", "07:00", 8, 3),
	)
	return mem
}

// =============================================================================
// LOADER TESTS
// =============================================================================

func TestLoader_Ready(t *testing.T) {
	loader := surf.NewLoader(newTestBackend(), zap.NewNop())

	result := loader.Load(context.Background(), testToken)

	require.Equal(t, surf.StateReady, result.State)
	require.NoError(t, result.Err)
	require.NotNil(t, result.User)
	assert.Equal(t, surf.UserID("user-1"), result.User.ID)

	r := result.Report
	assert.Equal(t, 1, r.TotalBreaks)
	assert.Equal(t, 1, r.TotalSessions)
	assert.Equal(t, 2, r.TotalForecastData)
	assert.Equal(t, 1, r.UserForecastData)
	assert.Equal(t, 1, r.MatchingForecasts)
}

func TestLoader_Unauthenticated(t *testing.T) {
	// GIVEN: A token nobody owns
	// THEN: No fetch happens and the result asks for a redirect

	mem := newTestBackend()
	mem.FailOn("breaks", errors.New("must not be called"))
	loader := surf.NewLoader(mem, nil)

	for _, token := range []string{"", "unknown"} {
		result := loader.Load(context.Background(), token)
		assert.Equal(t, surf.StateUnauthenticated, result.State)
		assert.NoError(t, result.Err)
	}
}

func TestLoader_AuthMissingErrorIsUnauthenticated(t *testing.T) {
	mem := newTestBackend()
	mem.FailOn("user", surf.ErrAuthMissing)

	result := surf.NewLoader(mem, nil).Load(context.Background(), testToken)

	assert.Equal(t, surf.StateUnauthenticated, result.State)
}

func TestLoader_AnyFetchFailureFailsWholeReport(t *testing.T) {
	for _, op := range []string{"user", "breaks", "sessions", "forecasts"} {
		t.Run(op, func(t *testing.T) {
			mem := newTestBackend()
			cause := errors.New("connection reset")
			mem.FailOn(op, cause)

			result := surf.NewLoader(mem, zap.NewNop()).Load(context.Background(), testToken)

			require.Equal(t, surf.StateFailed, result.State)
			assert.ErrorIs(t, result.Err, surf.ErrFetchFailed)
			assert.ErrorIs(t, result.Err, cause)
			assert.Equal(t, surf.Report{}, result.Report, "no partial report")

			var fErr *surf.FetchError
			require.ErrorAs(t, result.Err, &fErr)
			assert.Equal(t, op, fErr.Op)
		})
	}
}

func TestLoader_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	backend := surf.NewRateLimited(newTestBackend(), 1, 1)
	result := surf.NewLoader(backend, nil).Load(ctx, testToken)

	require.Equal(t, surf.StateFailed, result.State)
	assert.ErrorIs(t, result.Err, context.Canceled)
}

func TestLoading(t *testing.T) {
	r := surf.Loading()
	assert.Equal(t, surf.StateLoading, r.State)
	assert.Equal(t, "loading", r.State.String())
	assert.Equal(t, "ready", surf.StateReady.String())
}

func TestRateLimited_PassesThrough(t *testing.T) {
	backend := surf.NewRateLimited(newTestBackend(), 1000, 10)

	result := surf.NewLoader(backend, nil).Load(context.Background(), testToken)

	require.Equal(t, surf.StateReady, result.State)
	assert.Equal(t, 1, result.Report.MatchingForecasts)
}

func TestLoader_MalformedForecastAtOtherBreakIsIgnored(t *testing.T) {
	// GIVEN: A forecast row with a broken date at a break the user doesn't own
	// THEN: The user's report still loads

	mem := newTestBackend()
	mem.AddForecasts(surf.ForecastRecord{ID: "bad", BreakID: "other", Date: "not-a-date", Time: "07:00:30"})

	result := surf.NewLoader(mem, zap.NewNop()).Load(context.Background(), testToken)

	require.Equal(t, surf.StateReady, result.State, "err: %v", result.Err)
	assert.Equal(t, 3, result.Report.TotalForecastData)
	assert.Equal(t, 1, result.Report.UserForecastData)
	assert.Equal(t, 1, result.Report.MatchingForecasts)
}

func TestLoader_MalformedForecastAtOwnBreakFails(t *testing.T) {
	mem := newTestBackend()
	mem.AddForecasts(surf.ForecastRecord{ID: "bad", BreakID: "1", Date: "", Time: "07:00"})

	result := surf.NewLoader(mem, zap.NewNop()).Load(context.Background(), testToken)

	require.Equal(t, surf.StateFailed, result.State)
	assert.ErrorIs(t, result.Err, surf.ErrFetchFailed)
	assert.ErrorIs(t, result.Err, surf.ErrMalformedRecord)

	var mErr *surf.MalformedRecordError
	require.ErrorAs(t, result.Err, &mErr)
	assert.Equal(t, "bad", mErr.RowID)
	assert.Equal(t, "forecast_date", mErr.Field)
}

func TestLoader_MatchesStoredStringsOnly(t *testing.T) {
	// GIVEN: Session time stored with seconds, forecast time without a
	//        leading zero, same break and date
	// THEN: No match, and the report says the formats differ

	mem := store.NewMemory()
	mem.AddUser(testToken, surf.User{ID: "user-1"})
	mem.AddBreaks(brk("1"))
	mem.AddSessions(sess("s1", "1", "2024-01-01", "07:00:00"))
	mem.AddForecasts(fc("f1", "1", "2024-01-01", "7:00", 4, 10))

	result := surf.NewLoader(mem, zap.NewNop()).Load(context.Background(), testToken)

	require.Equal(t, surf.StateReady, result.State, "err: %v", result.Err)
	assert.Equal(t, 0, result.Report.MatchingForecasts)
	assert.Nil(t, result.Report.MatchingData)
	assert.Equal(t, 1, result.Report.FormatMismatches)
	assert.Equal(t, "07:00:00", result.Report.SampleSession.Time, "stored value is not rewritten")
	assert.Equal(t, "7:00", result.Report.SampleForecast.Time)
}
