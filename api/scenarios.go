/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Seeds the SQLite backend with small data sets that each reproduce one
	situation the debug page diagnoses. Each scenario creates a demo user,
	that user's breaks and sessions, and forecast records (some of them for
	a second user's break, to exercise ownership filtering).

AVAILABLE SCENARIOS:

	matching:      Sessions with forecasts at the same date/time
	no-match:      Forecasts exist but at different times than sessions
	no-forecasts:  Breaks and sessions but the scraper never ran
	no-breaks:     A user who hasn't added a break yet
	duplicates:    The scraper stored the same slot twice

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create the demo user with a fresh access token
 3. Create breaks, sessions and forecasts
 4. Return the token; it is also set as the session cookie

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "no-match"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/surf-debug/surf"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "matching",
		Name:        "Matching Data",
		Description: "Four sessions at Ocean Beach, three with forecasts for the same slot",
	},
	{
		ID:          "no-match",
		Name:        "No Matching Data",
		Description: "Forecasts scraped on the hour, sessions logged at half past",
	},
	{
		ID:          "no-forecasts",
		Name:        "Scraper Not Running",
		Description: "Breaks and sessions exist but no forecast data for them",
	},
	{
		ID:          "no-breaks",
		Name:        "No Breaks",
		Description: "A new user with no breaks; forecast data exists for others",
	},
	{
		ID:          "duplicates",
		Name:        "Duplicate Forecasts",
		Description: "The same forecast slot was scraped twice with different values",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		writeError(w, http.StatusNotImplemented, "Scenarios require the sqlite backend", nil)
		return
	}

	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var seed func(context.Context, *scenarioBuilder) error
	switch req.ScenarioID {
	case "matching":
		seed = seedMatching
	case "no-match":
		seed = seedNoMatch
	case "no-forecasts":
		seed = seedNoForecasts
	case "no-breaks":
		seed = seedNoBreaks
	case "duplicates":
		seed = seedDuplicates
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	b, err := h.newScenarioBuilder(ctx)
	if err == nil {
		err = seed(ctx, b)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.currentScenario = req.ScenarioID
	h.Logger.Info("scenario loaded", zap.String("scenario", req.ScenarioID))

	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    b.token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, LoadScenarioResponse{
		Status:      "loaded",
		Scenario:    req.ScenarioID,
		UserID:      string(b.user),
		AccessToken: b.token,
	})
}

// =============================================================================
// SCENARIO BUILDER
// =============================================================================

// scenarioBuilder writes one scenario's rows. The first error sticks and
// later calls are no-ops, so seeders read as straight-line data.
type scenarioBuilder struct {
	h     *Handler
	user  surf.UserID
	other surf.UserID
	token string
	seq   int
	err   error
}

func (h *Handler) newScenarioBuilder(ctx context.Context) (*scenarioBuilder, error) {
	b := &scenarioBuilder{
		h:     h,
		user:  surf.UserID(uuid.NewString()),
		other: surf.UserID(uuid.NewString()),
		token: uuid.NewString(),
	}
	if err := h.Store.SaveUser(ctx, surf.User{ID: b.user, Email: "demo@example.com"}, b.token); err != nil {
		return nil, err
	}
	if err := h.Store.SaveUser(ctx, surf.User{ID: b.other, Email: "other@example.com"}, ""); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *scenarioBuilder) brk(ctx context.Context, owner surf.UserID, id, name string) surf.BreakID {
	if b.err == nil {
		b.err = b.h.Store.SaveBreak(ctx, surf.Break{ID: surf.BreakID(id), UserID: owner, Name: name})
	}
	return surf.BreakID(id)
}

func (b *scenarioBuilder) session(ctx context.Context, breakID surf.BreakID, day time.Time, clock string, rating int) {
	if b.err != nil {
		return
	}
	b.seq++
	b.err = b.h.Store.SaveSession(ctx, surf.Session{
		ID:      surf.SessionID(fmt.Sprintf("session-%03d", b.seq)),
		UserID:  b.user,
		BreakID: breakID,
		Date:    day.Format(surf.DateLayout),
		Time:    clock,
		Rating:  rating,
	})
}

func (b *scenarioBuilder) forecast(ctx context.Context, breakID surf.BreakID, day time.Time, clock, swell, wind string) {
	if b.err != nil {
		return
	}
	b.seq++
	b.err = b.h.Store.SaveForecast(ctx, surf.ForecastRecord{
		ID:          surf.ForecastID(fmt.Sprintf("forecast-%03d", b.seq)),
		BreakID:     breakID,
		Date:        day.Format(surf.DateLayout),
		Time:        clock,
		SwellHeight: decimal.RequireFromString(swell),
		WindSpeed:   decimal.RequireFromString(wind),
	})
}

// scenarioDay returns a date n days before today, so demo data always
// looks recent.
func scenarioDay(n int) time.Time {
	y, m, d := time.Now().UTC().Date()
	return time.Date(y, m, d-n, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func seedMatching(ctx context.Context, b *scenarioBuilder) error {
	ob := b.brk(ctx, b.user, "ocean-beach", "Ocean Beach")
	lm := b.brk(ctx, b.user, "linda-mar", "Linda Mar")
	rincon := b.brk(ctx, b.other, "rincon", "Rincon")

	b.session(ctx, ob, scenarioDay(6), "07:00", 4)
	b.session(ctx, ob, scenarioDay(5), "06:00", 3)
	b.session(ctx, ob, scenarioDay(3), "08:00", 5)
	b.session(ctx, ob, scenarioDay(1), "17:00", 2) // scraper missed this one
	b.session(ctx, lm, scenarioDay(2), "07:00", 3)

	b.forecast(ctx, ob, scenarioDay(6), "07:00", "4.5", "8")
	b.forecast(ctx, ob, scenarioDay(5), "06:00", "3", "12.5")
	b.forecast(ctx, ob, scenarioDay(3), "08:00", "6.2", "5")
	b.forecast(ctx, lm, scenarioDay(2), "07:00", "2", "15")
	b.forecast(ctx, rincon, scenarioDay(6), "07:00", "5", "4")
	return b.err
}

func seedNoMatch(ctx context.Context, b *scenarioBuilder) error {
	ob := b.brk(ctx, b.user, "ocean-beach", "Ocean Beach")

	for day := 4; day >= 1; day-- {
		b.session(ctx, ob, scenarioDay(day), "07:30", 3)
		b.forecast(ctx, ob, scenarioDay(day), "07:00", "3.5", "10")
		b.forecast(ctx, ob, scenarioDay(day), "08:00", "3.8", "12")
	}
	return b.err
}

func seedNoForecasts(ctx context.Context, b *scenarioBuilder) error {
	ob := b.brk(ctx, b.user, "ocean-beach", "Ocean Beach")
	rincon := b.brk(ctx, b.other, "rincon", "Rincon")

	b.session(ctx, ob, scenarioDay(3), "07:00", 4)
	b.session(ctx, ob, scenarioDay(1), "07:00", 2)
	b.forecast(ctx, rincon, scenarioDay(3), "07:00", "5", "4")
	return b.err
}

func seedNoBreaks(ctx context.Context, b *scenarioBuilder) error {
	rincon := b.brk(ctx, b.other, "rincon", "Rincon")

	b.forecast(ctx, rincon, scenarioDay(2), "07:00", "5", "4")
	b.forecast(ctx, rincon, scenarioDay(1), "07:00", "4", "6")
	return b.err
}

func seedDuplicates(ctx context.Context, b *scenarioBuilder) error {
	ob := b.brk(ctx, b.user, "ocean-beach", "Ocean Beach")

	b.session(ctx, ob, scenarioDay(2), "07:00", 4)
	b.forecast(ctx, ob, scenarioDay(2), "07:00", "4", "10")
	b.forecast(ctx, ob, scenarioDay(2), "07:00", "7", "22")
	return b.err
}
