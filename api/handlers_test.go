/*
handlers_test.go - Tests for the debug report handlers

Tests for:
- JSON report for ready, unauthenticated and failed loads
- HTML page sections, login redirect and error state
- Token lookup from header and cookie
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/surf-debug/surf"
	"github.com/warp/surf-debug/surf/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const testToken = "tok-1"

func newMemoryBackend() *store.Memory {
	mem := store.NewMemory()
	mem.AddUser(testToken, surf.User{ID: "user-1"})
	return mem
}

func seedOceanBeach(mem *store.Memory) {
	mem.AddBreaks(surf.Break{ID: "1", UserID: "user-1", Name: "Ocean Beach"})
	mem.AddSessions(surf.Session{ID: "s1", UserID: "user-1", BreakID: "1", Date: "2024-01-01", Time: "07:00", Rating: 4})
	mem.AddForecasts(surf.ForecastRecord{
		ID: "f1", BreakID: "1", Date: "2024-01-01", Time: "07:00",
		SwellHeight: decimal.NewFromInt(4), WindSpeed: decimal.NewFromInt(10),
	})
}

func newTestServer(t *testing.T, backend surf.Backend) http.Handler {
	t.Helper()
	h := NewHandler(surf.NewLoader(backend, zap.NewNop()), nil, zap.NewNop())
	return NewRouter(h, RouterOptions{})
}

func doGet(t *testing.T, srv http.Handler, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

// =============================================================================
// JSON REPORT
// =============================================================================

func TestGetDebugReport_Ready(t *testing.T) {
	mem := newMemoryBackend()
	seedOceanBeach(mem)
	srv := newTestServer(t, mem)

	rec := doGet(t, srv, "/api/debug/predictions", testToken)

	require.Equal(t, http.StatusOK, rec.Code)
	var dto ReportDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	assert.Equal(t, 1, dto.TotalBreaks)
	assert.Equal(t, 1, dto.MatchingForecasts)
	require.NotNil(t, dto.SampleForecast)
	assert.Equal(t, 4.0, dto.SampleForecast.SwellHeight)
	assert.Equal(t, 10.0, dto.SampleForecast.WindSpeed)
	require.NotNil(t, dto.MatchingData)
	assert.Equal(t, "2024-01-01", dto.MatchingData.Session.SessionDate)
	require.NotNil(t, dto.FirstBreak)
	assert.Equal(t, "Ocean Beach", dto.FirstBreak.Name)
	assert.Len(t, dto.Problems, 1)
	assert.Equal(t, string(surf.ProblemInsufficientMatches), dto.Problems[0].Code)
}

func TestGetDebugReport_NoBreaksHasNullFirstBreak(t *testing.T) {
	srv := newTestServer(t, newMemoryBackend())

	rec := doGet(t, srv, "/api/debug/predictions", testToken)

	require.Equal(t, http.StatusOK, rec.Code)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Nil(t, raw["first_break"])
	assert.Equal(t, 0.0, raw["total_breaks"])
	assert.Equal(t, []any{}, raw["all_sessions"])
}

func TestGetDebugReport_Unauthenticated(t *testing.T) {
	srv := newTestServer(t, newMemoryBackend())

	rec := doGet(t, srv, "/api/debug/predictions", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "auth_missing", resp.Code)
}

func TestGetDebugReport_FetchFailure(t *testing.T) {
	mem := newMemoryBackend()
	seedOceanBeach(mem)
	mem.FailOn("forecasts", errors.New("permission denied for table forecast_data"))
	srv := newTestServer(t, mem)

	rec := doGet(t, srv, "/api/debug/predictions", testToken)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "fetch_failed", resp.Code)
	assert.NotContains(t, rec.Body.String(), "permission denied", "details are logged, not returned")
}

// =============================================================================
// HTML PAGE
// =============================================================================

func TestDebugPage_RedirectsToLogin(t *testing.T) {
	srv := newTestServer(t, newMemoryBackend())

	rec := doGet(t, srv, "/debug-predictions", "")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, LoginPath, rec.Header().Get("Location"))
}

func TestDebugPage_Ready(t *testing.T) {
	mem := newMemoryBackend()
	seedOceanBeach(mem)
	srv := newTestServer(t, mem)

	rec := doGet(t, srv, "/debug-predictions", testToken)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, body, "First Break Analysis: Ocean Beach")
	assert.Contains(t, body, `id="matching">1<`)
	assert.NotContains(t, body, `id="no-match"`)
	assert.Contains(t, body, "Sample Session Data")
	assert.Contains(t, body, "Sample Forecast Data")
	assert.Contains(t, body, "<strong>Swell:</strong> 4ft")
	assert.Contains(t, body, "<strong>Wind:</strong> 10kt")
	assert.Contains(t, body, `href="/dashboard"`)
}

func TestDebugPage_NoBreaksOmitsFirstBreakSection(t *testing.T) {
	srv := newTestServer(t, newMemoryBackend())

	rec := doGet(t, srv, "/debug-predictions", testToken)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `id="total-breaks">0<`)
	assert.NotContains(t, body, "First Break Analysis")
	assert.NotContains(t, body, "Sample Session Data")
}

func TestDebugPage_NoMatchShowsProblem(t *testing.T) {
	mem := newMemoryBackend()
	mem.AddBreaks(surf.Break{ID: "1", UserID: "user-1", Name: "Ocean Beach"})
	mem.AddSessions(surf.Session{ID: "s1", UserID: "user-1", BreakID: "1", Date: "2024-01-01", Time: "07:00"})
	mem.AddForecasts(surf.ForecastRecord{ID: "f1", BreakID: "1", Date: "2024-01-01", Time: "08:00"})
	srv := newTestServer(t, mem)

	rec := doGet(t, srv, "/debug-predictions", testToken)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="no-match"`)
	assert.Contains(t, rec.Body.String(), "Problem Found:")
}

func TestDebugPage_FetchFailureShowsOnlyError(t *testing.T) {
	mem := newMemoryBackend()
	seedOceanBeach(mem)
	mem.FailOn("sessions", errors.New("boom"))
	srv := newTestServer(t, mem)

	rec := doGet(t, srv, "/debug-predictions", testToken)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `id="error"`)
	assert.NotContains(t, body, "Database Overview", "no partial report")
	assert.NotContains(t, body, "boom")
}

func TestDebugPage_CookieToken(t *testing.T) {
	mem := newMemoryBackend()
	seedOceanBeach(mem)
	srv := newTestServer(t, mem)

	req := httptest.NewRequest(http.MethodGet, "/debug-predictions", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: testToken})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "Ocean Beach"))
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, newMemoryBackend())

	rec := doGet(t, srv, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAccessToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", accessToken(req))

	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "from-cookie"})
	assert.Equal(t, "from-cookie", accessToken(req))

	req.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", accessToken(req), "header wins over cookie")

	req.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, "from-cookie", accessToken(req))
}

func TestDebugPage_UnexpectedStateRendersErrorPage(t *testing.T) {
	h := NewHandler(surf.NewLoader(newMemoryBackend(), nil), nil, zap.NewNop())

	rec := httptest.NewRecorder()
	h.writePage(rec, httptest.NewRequest(http.MethodGet, "/debug-predictions", nil), surf.Loading())

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `id="error"`)
	assert.NotContains(t, rec.Body.String(), `"code"`)
}

func TestDebugPage_FormatMismatchWarning(t *testing.T) {
	mem := newMemoryBackend()
	mem.AddBreaks(surf.Break{ID: "1", UserID: "user-1", Name: "Ocean Beach"})
	mem.AddSessions(surf.Session{ID: "s1", UserID: "user-1", BreakID: "1", Date: "2024-01-01", Time: "07:00:00"})
	mem.AddForecasts(surf.ForecastRecord{ID: "f1", BreakID: "1", Date: "2024-01-01", Time: "07:00"})
	srv := newTestServer(t, mem)

	page := doGet(t, srv, "/debug-predictions", testToken)
	assert.Contains(t, page.Body.String(), `id="no-match"`)
	assert.Contains(t, page.Body.String(), `id="format-mismatch"`)

	rec := doGet(t, srv, "/api/debug/predictions", testToken)
	var dto ReportDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	assert.Equal(t, 1, dto.FormatMismatches)
	assert.Equal(t, "07:00:00", dto.SampleSession.SessionTime)
}

func TestRecordDTOsAlwaysEmitID(t *testing.T) {
	for name, v := range map[string]any{
		"break":    BreakDTO{},
		"session":  SessionDTO{},
		"forecast": ForecastDTO{},
	} {
		b, err := json.Marshal(v)
		require.NoError(t, err)

		var raw map[string]any
		require.NoError(t, json.Unmarshal(b, &raw))
		assert.Contains(t, raw, "id", name)
	}
}
