/*
report.go - Reconciliation report builder

PURPOSE:
  Cross-references a user's logged sessions against scraped forecast records
  to explain why prediction generation has nothing to train on. Predictions
  need (session, forecast) pairs taken at the same break, date and time; the
  report counts how many exist and shows samples of each side.

ALGORITHM:
  1. Collect the IDs of the user's breaks.
  2. Keep only forecasts for those breaks (the forecast table is unscoped).
  3. Take the first break in store order as the primary break.
  4. Filter sessions and forecasts to the primary break.
  5. For each primary session, in order, take the first primary forecast
     with the same date and time. First match wins on duplicates.
     Dates and times compare as stored strings.
  6. Count unmatched sessions that would match if both sides were written
     in the same format (e.g. "07:00:00" vs "07:00").

  Inputs are at most a few hundred rows, so the join is a linear scan per
  session keyed by a (date, time) index built once.

INVARIANTS:
  - TotalForecastData >= UserForecastData
  - MatchingForecasts <= min(FirstBreakSessions, FirstBreakForecasts)
  - No primary break => every primary-derived field is zero/nil
  - BuildReport never fails; empty inputs produce a zero-valued report

SEE ALSO:
  - loader.go: fetches the inputs and calls BuildReport
  - api/dto.go: JSON shape of the report
*/
package surf

// SampleLimit caps AllSessions and AllForecasts.
const SampleLimit = 3

// MinMatchesForPrediction is the smallest number of matched pairs the
// prediction generator will work with.
const MinMatchesForPrediction = 3

// Report is the flat result rendered by the debug page.
type Report struct {
	TotalBreaks       int
	TotalSessions     int
	TotalForecastData int
	UserForecastData  int

	FirstBreak          *Break
	FirstBreakSessions  int
	FirstBreakForecasts int
	MatchingForecasts   int

	// DuplicateForecasts counts primary-break forecasts whose date and time
	// repeat an earlier record. Only the earliest one can ever be matched.
	DuplicateForecasts int

	// FormatMismatches counts primary-break sessions with no match that
	// would match a forecast if both dates and times were written in the
	// same format.
	FormatMismatches int

	SampleSession  *Session
	SampleForecast *ForecastRecord
	MatchingData   *MatchedPair

	AllSessions  []Session
	AllForecasts []ForecastRecord
}

type slot struct {
	date, time string
}

// BuildReport computes the reconciliation report for one user's records.
// breaks and sessions must already be scoped to the user; forecasts may be
// the whole table.
func BuildReport(breaks []Break, sessions []Session, forecasts []ForecastRecord) Report {
	owned := make(map[BreakID]struct{}, len(breaks))
	for _, b := range breaks {
		owned[b.ID] = struct{}{}
	}

	userForecasts := make([]ForecastRecord, 0, len(forecasts))
	for _, f := range forecasts {
		if _, ok := owned[f.BreakID]; ok {
			userForecasts = append(userForecasts, f)
		}
	}

	report := Report{
		TotalBreaks:       len(breaks),
		TotalSessions:     len(sessions),
		TotalForecastData: len(forecasts),
		UserForecastData:  len(userForecasts),
		AllSessions:       []Session{},
		AllForecasts:      []ForecastRecord{},
	}

	if len(breaks) == 0 {
		return report
	}

	primary := breaks[0]
	report.FirstBreak = &primary

	var primarySessions []Session
	for _, s := range sessions {
		if s.BreakID == primary.ID {
			primarySessions = append(primarySessions, s)
		}
	}

	var primaryForecasts []ForecastRecord
	for _, f := range userForecasts {
		if f.BreakID == primary.ID {
			primaryForecasts = append(primaryForecasts, f)
		}
	}

	// Index keeps the first forecast per slot, which is what a front-to-back
	// scan would find.
	bySlot := make(map[slot]int, len(primaryForecasts))
	for i, f := range primaryForecasts {
		k := slot{f.Date, f.Time}
		if _, seen := bySlot[k]; seen {
			report.DuplicateForecasts++
			continue
		}
		bySlot[k] = i
	}

	canonical := make(map[slot]struct{}, len(primaryForecasts))
	for _, f := range primaryForecasts {
		canonical[canonicalSlot(f.Date, f.Time)] = struct{}{}
	}

	var matches []MatchedPair
	for _, s := range primarySessions {
		if i, ok := bySlot[slot{s.Date, s.Time}]; ok {
			matches = append(matches, MatchedPair{Session: s, Forecast: primaryForecasts[i]})
			continue
		}
		if _, ok := canonical[canonicalSlot(s.Date, s.Time)]; ok {
			report.FormatMismatches++
		}
	}

	report.FirstBreakSessions = len(primarySessions)
	report.FirstBreakForecasts = len(primaryForecasts)
	report.MatchingForecasts = len(matches)

	if len(primarySessions) > 0 {
		s := primarySessions[0]
		report.SampleSession = &s
	}
	if len(primaryForecasts) > 0 {
		f := primaryForecasts[0]
		report.SampleForecast = &f
	}
	if len(matches) > 0 {
		m := matches[0]
		report.MatchingData = &m
	}

	report.AllSessions = append(report.AllSessions, primarySessions[:min(SampleLimit, len(primarySessions))]...)
	report.AllForecasts = append(report.AllForecasts, primaryForecasts[:min(SampleLimit, len(primaryForecasts))]...)

	return report
}

// =============================================================================
// PROBLEMS - What the user should fix before predictions can run
// =============================================================================

type ProblemCode string

const (
	ProblemNoBreakForecasts    ProblemCode = "no_break_forecasts"
	ProblemNoMatchingData      ProblemCode = "no_matching_data"
	ProblemInsufficientMatches ProblemCode = "insufficient_matches"
	ProblemDuplicateForecasts  ProblemCode = "duplicate_forecasts"
	ProblemTimeFormatMismatch  ProblemCode = "time_format_mismatch"
)

// Problem is a diagnosis derived from a report.
type Problem struct {
	Code    ProblemCode
	Message string
}

// Problems lists the issues that stop predictions from being generated,
// most fundamental first.
func (r Report) Problems() []Problem {
	var out []Problem
	if r.UserForecastData == 0 {
		out = append(out, Problem{
			Code:    ProblemNoBreakForecasts,
			Message: "No forecast data exists for your breaks. The scraper hasn't run yet or isn't working.",
		})
	}
	if r.FirstBreak != nil && r.MatchingForecasts == 0 {
		out = append(out, Problem{
			Code:    ProblemNoMatchingData,
			Message: "No forecast data matches your logged sessions. The scraper hasn't collected forecast data for the dates/times you surfed.",
		})
	}
	if r.MatchingForecasts > 0 && r.MatchingForecasts < MinMatchesForPrediction {
		out = append(out, Problem{
			Code:    ProblemInsufficientMatches,
			Message: "Fewer than 3 sessions have matching forecast data. You need at least 3-5 matching data points to generate predictions.",
		})
	}
	if r.FormatMismatches > 0 {
		out = append(out, Problem{
			Code:    ProblemTimeFormatMismatch,
			Message: "Some sessions and forecasts share a date and time but store it in different formats (for example 07:00:00 and 07:00), so they don't match.",
		})
	}
	if r.DuplicateForecasts > 0 {
		out = append(out, Problem{
			Code:    ProblemDuplicateForecasts,
			Message: "Some forecast records share a date and time. Only the first of each is used for matching.",
		})
	}
	return out
}
