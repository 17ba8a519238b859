package api

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/warp/surf-debug/surf"
)

// pageData is what the debug page template sees. Error and Report are
// mutually exclusive.
type pageData struct {
	Error  string
	Report *ReportDTO

	SampleSessionJSON  string
	SampleForecastJSON string
	MinMatches         int
	DashboardPath      string
}

func newPageData(r surf.Report) pageData {
	dto := toReportDTO(r)
	data := pageData{
		Report:        &dto,
		MinMatches:    surf.MinMatchesForPrediction,
		DashboardPath: DashboardPath,
	}
	if dto.SampleSession != nil {
		data.SampleSessionJSON = prettyJSON(dto.SampleSession)
	}
	if dto.SampleForecast != nil {
		data.SampleForecastJSON = prettyJSON(dto.SampleForecast)
	}
	return data
}

func prettyJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}

// renderPage executes into a buffer first so a template error never leaves a
// half-written page behind.
func renderPage(w http.ResponseWriter, logger *zap.Logger, data pageData) {
	if data.DashboardPath == "" {
		data.DashboardPath = DashboardPath
	}
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		logger.Error("render debug page", zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

var pageTemplate = template.Must(template.New("debug-predictions").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Debug Predictions</title>
<style>
body { font-family: system-ui; background: #eff6ff; margin: 0; }
main { max-width: 896px; margin: 0 auto; padding: 32px 16px; }
.card { background: #fff; border-radius: 8px; box-shadow: 0 1px 3px rgba(0,0,0,.1); padding: 24px; margin-bottom: 24px; }
.grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(140px, 1fr)); gap: 16px; text-align: center; }
.stat { font-size: 1.5rem; font-weight: bold; }
.label { color: #4b5563; font-size: .875rem; }
.problem { background: #fee2e2; border: 1px solid #f87171; color: #b91c1c; padding: 12px 16px; border-radius: 4px; margin-top: 16px; }
.warn { background: #fef9c3; border: 1px solid #facc15; color: #a16207; padding: 12px 16px; border-radius: 4px; }
pre { background: #f3f4f6; padding: 16px; border-radius: 4px; overflow: auto; }
.row { padding: 12px; background: #f9fafb; border-radius: 4px; margin-bottom: 8px; font-size: .875rem; }
</style>
</head>
<body>
<main>
<p><a href="{{.DashboardPath}}">&larr; Back to Dashboard</a></p>
<h1>Debug Predictions</h1>
{{if .Error}}
<div class="card problem" id="error">{{.Error}}</div>
{{else}}{{with .Report}}
<section class="card" id="overview">
  <h2>Database Overview</h2>
  <div class="grid">
    <div><div class="stat" id="total-breaks">{{.TotalBreaks}}</div><div class="label">Your Breaks</div></div>
    <div><div class="stat" id="total-sessions">{{.TotalSessions}}</div><div class="label">Your Sessions</div></div>
    <div><div class="stat" id="total-forecasts">{{.TotalForecastData}}</div><div class="label">Total Forecast Data</div></div>
    <div><div class="stat" id="user-forecasts">{{.UserForecastData}}</div><div class="label">Your Break Forecasts</div></div>
  </div>
</section>
{{if .FirstBreak}}
<section class="card" id="first-break">
  <h2>First Break Analysis: {{.FirstBreak.Name}}</h2>
  <div class="grid">
    <div><div class="stat">{{.FirstBreakSessions}}</div><div class="label">Sessions Logged</div></div>
    <div><div class="stat">{{.FirstBreakForecasts}}</div><div class="label">Forecast Records</div></div>
    <div><div class="stat" id="matching">{{.MatchingForecasts}}</div><div class="label">Matching Data</div></div>
  </div>
  {{if eq .MatchingForecasts 0}}
  <div class="problem" id="no-match"><strong>Problem Found:</strong> No forecast data matches your logged sessions. This means your scraper hasn't collected forecast data for the dates/times you surfed.</div>
  {{end}}
  {{if .FormatMismatches}}
  <div class="warn" id="format-mismatch"><strong>Format mismatch:</strong> {{.FormatMismatches}} session(s) share a date/time with a forecast but the two are written differently (for example 07:00:00 and 07:00), so they don't match.</div>
  {{end}}
  {{if .DuplicateForecasts}}
  <div class="warn" id="duplicates"><strong>Data quality:</strong> {{.DuplicateForecasts}} forecast record(s) repeat an earlier date/time for this break. Only the first of each is matched.</div>
  {{end}}
</section>
{{end}}
{{end}}
{{if .SampleSessionJSON}}
<section class="card" id="sample-session">
  <h2>Sample Session Data</h2>
  <pre>{{.SampleSessionJSON}}</pre>
</section>
{{end}}
{{if .SampleForecastJSON}}
<section class="card" id="sample-forecast">
  <h2>Sample Forecast Data</h2>
  <pre>{{.SampleForecastJSON}}</pre>
</section>
{{end}}
{{with .Report}}
{{if .AllSessions}}
<section class="card" id="recent-sessions">
  <h2>Recent Sessions</h2>
  {{range .AllSessions}}<div class="row"><strong>Date:</strong> {{.SessionDate}} | <strong>Time:</strong> {{.SessionTime}} | <strong>Rating:</strong> {{.Rating}}</div>
  {{end}}
</section>
{{end}}
{{if .AllForecasts}}
<section class="card" id="recent-forecasts">
  <h2>Recent Forecasts</h2>
  {{range .AllForecasts}}<div class="row"><strong>Date:</strong> {{.ForecastDate}} | <strong>Time:</strong> {{.ForecastTime}} | <strong>Swell:</strong> {{.SwellHeight}}ft | <strong>Wind:</strong> {{.WindSpeed}}kt</div>
  {{end}}
</section>
{{end}}
{{end}}
<section class="warn" id="next-steps">
  <h3>Next Steps:</h3>
  <ul>
    <li>If "Your Break Forecasts" is 0: Your scraper hasn't run yet or isn't working</li>
    <li>If "Matching Data" is 0: Forecast dates/times don't match your session dates/times</li>
    <li>You need at least {{if .MinMatches}}{{.MinMatches}}{{else}}3{{end}}-5 matching data points to generate predictions</li>
    <li>Make sure your scraper is running daily to collect current forecast data</li>
  </ul>
</section>
{{end}}
</main>
</body>
</html>
`))
