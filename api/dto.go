/*
dto.go - Data Transfer Objects for API responses

PURPOSE:
  JSON shapes for the debug report. Record DTOs use the backend's column
  names (session_date, forecast_time, ...) so the sample blocks on the page
  read like the rows in the database the user is debugging.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MEASUREMENTS:
  swell_height and wind_speed are emitted as JSON numbers. Values come from
  decimal.Decimal; conversion to float64 happens only here.

SEE ALSO:
  - handlers.go: Uses these types
  - surf/report.go: Report being converted
*/
package api

import (
	"github.com/warp/surf-debug/surf"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// BreakDTO represents a surf break.
type BreakDTO struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// SessionDTO represents a logged session.
type SessionDTO struct {
	ID          string `json:"id"`
	BreakID     string `json:"break_id"`
	SessionDate string `json:"session_date"`
	SessionTime string `json:"session_time"`
	Rating      int    `json:"rating"`
}

// ForecastDTO represents a forecast record.
type ForecastDTO struct {
	ID           string  `json:"id"`
	BreakID      string  `json:"break_id"`
	ForecastDate string  `json:"forecast_date"`
	ForecastTime string  `json:"forecast_time"`
	SwellHeight  float64 `json:"swell_height"` // feet
	WindSpeed    float64 `json:"wind_speed"`   // knots
}

// MatchDTO is a session with its matching forecast.
type MatchDTO struct {
	Session  SessionDTO  `json:"session"`
	Forecast ForecastDTO `json:"forecast"`
}

// ProblemDTO is a diagnosis shown to the user.
type ProblemDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ReportDTO is the debug report.
type ReportDTO struct {
	TotalBreaks       int `json:"total_breaks"`
	TotalSessions     int `json:"total_sessions"`
	TotalForecastData int `json:"total_forecast_data"`
	UserForecastData  int `json:"user_forecast_data"`

	FirstBreak          *BreakDTO `json:"first_break"`
	FirstBreakSessions  int       `json:"first_break_sessions"`
	FirstBreakForecasts int       `json:"first_break_forecasts"`
	MatchingForecasts   int       `json:"matching_forecasts"`
	DuplicateForecasts  int       `json:"duplicate_forecasts"`
	FormatMismatches    int       `json:"format_mismatches"`

	SampleSession  *SessionDTO  `json:"sample_session"`
	SampleForecast *ForecastDTO `json:"sample_forecast"`
	MatchingData   *MatchDTO    `json:"matching_data"`

	AllSessions  []SessionDTO  `json:"all_sessions"`
	AllForecasts []ForecastDTO `json:"all_forecasts"`

	Problems []ProblemDTO `json:"problems"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// LoadScenarioResponse carries the token of the scenario's demo user.
type LoadScenarioResponse struct {
	Status      string `json:"status"`
	Scenario    string `json:"scenario"`
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toSessionDTO(s surf.Session) SessionDTO {
	return SessionDTO{
		ID:          string(s.ID),
		BreakID:     string(s.BreakID),
		SessionDate: s.Date,
		SessionTime: s.Time,
		Rating:      s.Rating,
	}
}

func toForecastDTO(f surf.ForecastRecord) ForecastDTO {
	swell, _ := f.SwellHeight.Float64()
	wind, _ := f.WindSpeed.Float64()
	return ForecastDTO{
		ID:           string(f.ID),
		BreakID:      string(f.BreakID),
		ForecastDate: f.Date,
		ForecastTime: f.Time,
		SwellHeight:  swell,
		WindSpeed:    wind,
	}
}

func toReportDTO(r surf.Report) ReportDTO {
	dto := ReportDTO{
		TotalBreaks:         r.TotalBreaks,
		TotalSessions:       r.TotalSessions,
		TotalForecastData:   r.TotalForecastData,
		UserForecastData:    r.UserForecastData,
		FirstBreakSessions:  r.FirstBreakSessions,
		FirstBreakForecasts: r.FirstBreakForecasts,
		MatchingForecasts:   r.MatchingForecasts,
		DuplicateForecasts:  r.DuplicateForecasts,
		FormatMismatches:    r.FormatMismatches,
		AllSessions:         make([]SessionDTO, len(r.AllSessions)),
		AllForecasts:        make([]ForecastDTO, len(r.AllForecasts)),
		Problems:            []ProblemDTO{},
	}

	if r.FirstBreak != nil {
		dto.FirstBreak = &BreakDTO{
			ID:     string(r.FirstBreak.ID),
			UserID: string(r.FirstBreak.UserID),
			Name:   r.FirstBreak.Name,
		}
	}
	if r.SampleSession != nil {
		s := toSessionDTO(*r.SampleSession)
		dto.SampleSession = &s
	}
	if r.SampleForecast != nil {
		f := toForecastDTO(*r.SampleForecast)
		dto.SampleForecast = &f
	}
	if r.MatchingData != nil {
		dto.MatchingData = &MatchDTO{
			Session:  toSessionDTO(r.MatchingData.Session),
			Forecast: toForecastDTO(r.MatchingData.Forecast),
		}
	}
	for i, s := range r.AllSessions {
		dto.AllSessions[i] = toSessionDTO(s)
	}
	for i, f := range r.AllForecasts {
		dto.AllForecasts[i] = toForecastDTO(f)
	}
	for _, p := range r.Problems() {
		dto.Problems = append(dto.Problems, ProblemDTO{Code: string(p.Code), Message: p.Message})
	}
	return dto
}
