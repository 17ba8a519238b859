/*
Package supabase implements surf.Backend against a hosted Supabase project.

PURPOSE:
  Reads the surf app's tables through the project's REST surface instead of
  a database connection, the same way the app's web client does:

    GET /auth/v1/user                                   current user
    GET /rest/v1/surf_breaks?select=*&user_id=eq.<id>   breaks
    GET /rest/v1/surf_sessions?select=*&user_id=eq.<id> sessions
    GET /rest/v1/forecast_data?select=*                 all forecasts

AUTH:
  Every request carries the project's anon key in the apikey header. The
  user's access token (from surf.AccessTokenFrom) goes in Authorization so
  row-level security applies; without it the anon key is used.

ROW DECODING:
  Rows are decoded into wire structs, converted to surf types and validated.
  IDs may be bigint or uuid columns, so they are accepted as JSON numbers or
  strings. A row that fails validation fails the whole read.

TIMEOUTS:
  None are set here. Callers bound requests with their context.
*/
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/surf-debug/surf"
)

// Client is a read-only Supabase REST client.
type Client struct {
	baseURL string
	anonKey string
	client  *http.Client
}

var _ surf.Backend = (*Client)(nil)

// New creates a client for the project at baseURL (e.g.
// "https://abcd.supabase.co"). A nil httpClient uses http.DefaultClient.
func New(baseURL, anonKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		client:  httpClient,
	}
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// rowID accepts a JSON number or string.
type rowID string

func (id *rowID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = rowID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = rowID(n.String())
	return nil
}

type userRow struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type breakRow struct {
	ID     rowID  `json:"id"`
	UserID rowID  `json:"user_id"`
	Name   string `json:"name"`
}

type sessionRow struct {
	ID          rowID  `json:"id"`
	UserID      rowID  `json:"user_id"`
	BreakID     rowID  `json:"break_id"`
	SessionDate string `json:"session_date"`
	SessionTime string `json:"session_time"`
	Rating      *int   `json:"rating"`
}

type forecastRow struct {
	ID           rowID           `json:"id"`
	BreakID      rowID           `json:"break_id"`
	ForecastDate string          `json:"forecast_date"`
	ForecastTime string          `json:"forecast_time"`
	SwellHeight  decimal.Decimal `json:"swell_height"`
	WindSpeed    decimal.Decimal `json:"wind_speed"`
}

// =============================================================================
// BACKEND
// =============================================================================

// CurrentUser resolves accessToken through the auth API. A rejected token
// returns (nil, nil).
func (c *Client) CurrentUser(ctx context.Context, accessToken string) (*surf.User, error) {
	if accessToken == "" {
		return nil, nil
	}

	var row userRow
	status, err := c.get(ctx, "/auth/v1/user", nil, accessToken, &row)
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if row.ID == "" {
		return nil, nil
	}
	return &surf.User{ID: surf.UserID(row.ID), Email: row.Email}, nil
}

func (c *Client) ListBreaks(ctx context.Context, userID surf.UserID) ([]surf.Break, error) {
	var rows []breakRow
	if _, err := c.get(ctx, "/rest/v1/surf_breaks", ownedBy(userID), surf.AccessTokenFrom(ctx), &rows); err != nil {
		return nil, err
	}

	breaks := make([]surf.Break, 0, len(rows))
	for _, r := range rows {
		b := surf.Break{ID: surf.BreakID(r.ID), UserID: surf.UserID(r.UserID), Name: r.Name}
		if err := b.Validate(); err != nil {
			return nil, err
		}
		breaks = append(breaks, b)
	}
	return breaks, nil
}

func (c *Client) ListSessions(ctx context.Context, userID surf.UserID) ([]surf.Session, error) {
	var rows []sessionRow
	if _, err := c.get(ctx, "/rest/v1/surf_sessions", ownedBy(userID), surf.AccessTokenFrom(ctx), &rows); err != nil {
		return nil, err
	}

	sessions := make([]surf.Session, 0, len(rows))
	for _, r := range rows {
		s := surf.Session{
			ID:      surf.SessionID(r.ID),
			UserID:  surf.UserID(r.UserID),
			BreakID: surf.BreakID(r.BreakID),
			Date:    r.SessionDate,
			Time:    r.SessionTime,
		}
		if r.Rating != nil {
			s.Rating = *r.Rating
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// ListAllForecasts returns every forecast row unchecked. The table is shared
// across users; the loader validates only the rows at the user's breaks.
func (c *Client) ListAllForecasts(ctx context.Context) ([]surf.ForecastRecord, error) {
	var rows []forecastRow
	params := url.Values{"select": {"*"}}
	if _, err := c.get(ctx, "/rest/v1/forecast_data", params, surf.AccessTokenFrom(ctx), &rows); err != nil {
		return nil, err
	}

	forecasts := make([]surf.ForecastRecord, 0, len(rows))
	for _, r := range rows {
		f := surf.ForecastRecord{
			ID:          surf.ForecastID(r.ID),
			BreakID:     surf.BreakID(r.BreakID),
			Date:        r.ForecastDate,
			Time:        r.ForecastTime,
			SwellHeight: r.SwellHeight,
			WindSpeed:   r.WindSpeed,
		}
		forecasts = append(forecasts, f)
	}
	return forecasts, nil
}

// =============================================================================
// HTTP
// =============================================================================

func ownedBy(userID surf.UserID) url.Values {
	return url.Values{
		"select":  {"*"},
		"user_id": {"eq." + string(userID)},
	}
}

// APIError is a non-2xx response from the project.
type APIError struct {
	Status  int
	Path    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase %s: status %d: %s", e.Path, e.Status, e.Message)
}

// get issues a GET and decodes a JSON body into out. The status code is
// returned even when err is non-nil.
func (c *Client) get(ctx context.Context, path string, params url.Values, bearer string, out any) (int, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if bearer == "" {
		bearer = c.anonKey
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, &APIError{Status: resp.StatusCode, Path: path, Message: errorMessage(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to parse %s response: %w", path, err)
	}
	return resp.StatusCode, nil
}

// errorMessage pulls the message out of a PostgREST or GoTrue error body.
func errorMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
		Msg     string `json:"msg"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil {
		for _, m := range []string{e.Message, e.Msg, e.Error} {
			if m != "" {
				return m
			}
		}
	}
	return strings.TrimSpace(string(body))
}
