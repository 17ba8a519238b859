/*
handlers.go - HTTP handlers for the prediction debug report

PURPOSE:
  Exposes the debug report as an HTML page and as JSON. Both load the
  report through surf.Loader and switch on the result state.

ENDPOINTS:
  GET  /debug-predictions        HTML report page
  GET  /api/debug/predictions    JSON report
  GET  /healthz                  Liveness

  Scenarios (SQLite backend, dev only): see scenarios.go

AUTH:
  The access token is read from "Authorization: Bearer <token>", falling
  back to the sb-access-token cookie the hosted auth sets in the browser.
  Token validation is the backend's job (CurrentUser).

ERROR HANDLING:
  State               HTML                      JSON
  Unauthenticated     302 -> /login             401 auth_missing
  Failed              200, error message shown  502 fetch_failed
  Ready               200, report               200, ReportDTO

  Failure details are logged, never shown. The page only says the report
  could not be loaded.

SEE ALSO:
  - dto.go: Response data structures
  - render.go: HTML template
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/warp/surf-debug/store/sqlite"
	"github.com/warp/surf-debug/surf"
)

const (
	// AccessTokenCookie is the cookie holding the browser session's token.
	AccessTokenCookie = "sb-access-token"

	LoginPath     = "/login"
	DashboardPath = "/dashboard"

	fetchFailedMessage = "Failed to load debug info. Please try again later."
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Loader *surf.Loader
	// Store is set only for the SQLite backend; scenario routes need it.
	Store  *sqlite.Store
	Logger *zap.Logger

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler. store may be nil.
func NewHandler(loader *surf.Loader, store *sqlite.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Loader: loader,
		Store:  store,
		Logger: logger,
	}
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// DebugPredictionsPage renders the report as HTML.
// GET /debug-predictions
func (h *Handler) DebugPredictionsPage(w http.ResponseWriter, r *http.Request) {
	h.writePage(w, r, h.Loader.Load(r.Context(), accessToken(r)))
}

func (h *Handler) writePage(w http.ResponseWriter, r *http.Request, result surf.Result) {
	switch result.State {
	case surf.StateUnauthenticated:
		http.Redirect(w, r, LoginPath, http.StatusFound)
	case surf.StateFailed:
		h.Logger.Warn("debug page load failed", zap.Error(result.Err))
		renderPage(w, h.Logger, pageData{Error: fetchFailedMessage})
	case surf.StateReady:
		renderPage(w, h.Logger, newPageData(result.Report))
	default:
		h.Logger.Error("debug page unexpected load state", zap.Stringer("state", result.State))
		renderPage(w, h.Logger, pageData{Error: fetchFailedMessage})
	}
}

// GetDebugReport returns the report as JSON.
// GET /api/debug/predictions
func (h *Handler) GetDebugReport(w http.ResponseWriter, r *http.Request) {
	result := h.Loader.Load(r.Context(), accessToken(r))

	switch result.State {
	case surf.StateUnauthenticated:
		writeErrorCode(w, http.StatusUnauthorized, "Not signed in", "auth_missing", nil)
	case surf.StateFailed:
		h.Logger.Warn("debug report load failed", zap.Error(result.Err))
		writeErrorCode(w, http.StatusBadGateway, fetchFailedMessage, "fetch_failed", nil)
	case surf.StateReady:
		writeJSON(w, http.StatusOK, toReportDTO(result.Report))
	default:
		writeError(w, http.StatusInternalServerError, "Unexpected load state", nil)
	}
}

// Health reports liveness.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func accessToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		return c.Value
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	writeErrorCode(w, status, message, "", err)
}

func writeErrorCode(w http.ResponseWriter, status int, message, code string, err error) {
	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
