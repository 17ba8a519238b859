/*
types.go - Core record types for the prediction debug report

PURPOSE:
  Defines the three record shapes the report is built from (breaks, sessions,
  forecast records) plus the signed-in user. Backends check decoded rows
  with Validate(), so a malformed row is rejected instead of surfacing as an
  empty field in the rendered page. Rows of the shared forecast table are
  checked by the loader, and only at the user's own breaks.

DATES AND TIMES:
  Dates and times are kept exactly as the backend stores them. Matching
  compares the stored strings, the same comparison the prediction generator
  makes, so "07:00:00" and "07:00" do not match. Validate() only checks that
  a value parses and never rewrites it. canonicalSlot() serves the
  format-mismatch count and nothing else.

MEASUREMENTS:
  Swell height (feet) and wind speed (knots) use decimal.Decimal so values
  like 2.1 survive the round trip through TEXT columns and JSON.

SEE ALSO:
  - report.go: BuildReport uses these types
  - errors.go: MalformedRecordError returned by Validate
*/
package surf

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DateLayout is the layout of Session.Date and ForecastRecord.Date.
	DateLayout = "2006-01-02"
	// TimeLayout is the layout of Session.Time and ForecastRecord.Time.
	TimeLayout = "15:04"
)

type (
	UserID     string
	BreakID    string
	SessionID  string
	ForecastID string
)

// User is the signed-in user resolved from an access token.
type User struct {
	ID    UserID
	Email string
}

// Break is a named surf location owned by a user.
type Break struct {
	ID     BreakID
	UserID UserID
	Name   string
}

// Validate checks the required fields of a break row.
func (b Break) Validate() error {
	switch {
	case b.ID == "":
		return malformed("surf_breaks", "", "id", "required")
	case b.UserID == "":
		return malformed("surf_breaks", string(b.ID), "user_id", "required")
	case strings.TrimSpace(b.Name) == "":
		return malformed("surf_breaks", string(b.ID), "name", "required")
	}
	return nil
}

// Session is a logged surf outing at a break.
type Session struct {
	ID      SessionID
	UserID  UserID
	BreakID BreakID
	Date    string
	Time    string
	Rating  int
}

// Validate checks required fields and that Date and Time parse.
func (s Session) Validate() error {
	if s.ID == "" {
		return malformed("surf_sessions", "", "id", "required")
	}
	if s.BreakID == "" {
		return malformed("surf_sessions", string(s.ID), "break_id", "required")
	}
	if err := checkDate(s.Date); err != nil {
		return malformed("surf_sessions", string(s.ID), "session_date", err.Error())
	}
	if err := checkTime(s.Time); err != nil {
		return malformed("surf_sessions", string(s.ID), "session_time", err.Error())
	}
	return nil
}

// ForecastRecord is a scraped forecast for a break at a date and time.
type ForecastRecord struct {
	ID          ForecastID
	BreakID     BreakID
	Date        string
	Time        string
	SwellHeight decimal.Decimal
	WindSpeed   decimal.Decimal
}

// Validate checks required fields and that Date and Time parse.
func (f ForecastRecord) Validate() error {
	if f.BreakID == "" {
		return malformed("forecast_data", string(f.ID), "break_id", "required")
	}
	if err := checkDate(f.Date); err != nil {
		return malformed("forecast_data", string(f.ID), "forecast_date", err.Error())
	}
	if err := checkTime(f.Time); err != nil {
		return malformed("forecast_data", string(f.ID), "forecast_time", err.Error())
	}
	return nil
}

// MatchedPair is a session and the forecast record taken at the same break,
// date and time.
type MatchedPair struct {
	Session  Session
	Forecast ForecastRecord
}

// timeLayouts are the accepted time formats: "15:04" as the app writes it
// and "15:04:05" as Postgres time columns return it.
var timeLayouts = []string{TimeLayout, "15:04:05"}

func checkDate(s string) error {
	if s == "" {
		return errRequired
	}
	if _, err := time.Parse(DateLayout, s); err != nil {
		return errBadDate
	}
	return nil
}

func checkTime(s string) error {
	if s == "" {
		return errRequired
	}
	for _, layout := range timeLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return nil
		}
	}
	return errBadTime
}

// canonicalSlot maps a date and time to "2006-01-02" and "15:04". Values
// that don't parse are kept as given.
func canonicalSlot(date, clock string) slot {
	out := slot{date: strings.TrimSpace(date), time: strings.TrimSpace(clock)}
	if d, err := time.Parse(DateLayout, out.date); err == nil {
		out.date = d.Format(DateLayout)
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, out.time); err == nil {
			out.time = t.Format(TimeLayout)
			break
		}
	}
	return out
}
