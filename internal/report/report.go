// Package report renders a finished collection run for humans and for
// downstream tooling.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/FranksOps/magpie/internal/analyzer"
	"github.com/FranksOps/magpie/internal/storage"
)

// Summary contains aggregated metrics about one collection run.
type Summary struct {
	RunID        string                `json:"run_id"`
	Seed         string                `json:"seed"`
	Method       string                `json:"method"`
	TotalUnique  int                   `json:"total_unique"`
	DepthReached int                   `json:"depth_reached"`
	FetchErrors  int                   `json:"fetch_errors"`
	SourceCounts map[string]int        `json:"source_counts"`
	DepthCounts  map[int]int           `json:"depth_counts"`
	TopTerms     []analyzer.RankedTerm `json:"top_terms"`
	StartedAt    time.Time             `json:"started_at"`
	Duration     time.Duration         `json:"duration"`
}

// GenerateSummary builds a Summary from a run record, including the
// top ranked terms.
func GenerateSummary(run *storage.RunRecord, topN int) Summary {
	s := Summary{
		RunID:        run.ID,
		Seed:         run.Seed,
		Method:       run.Method,
		TotalUnique:  run.TotalUnique,
		DepthReached: run.DepthReached,
		FetchErrors:  run.FetchErrors,
		SourceCounts: run.SourceCounts,
		DepthCounts:  make(map[int]int),
		StartedAt:    run.StartedAt,
		Duration:     run.Duration,
	}

	for _, term := range run.Terms {
		s.DepthCounts[term.Depth]++
	}

	if topN > 0 {
		s.TopTerms = analyzer.Top(analyzer.Rank(run, analyzer.Weights{}), topN)
	}
	return s
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("report: encode json: %w", err)
	}
	return nil
}

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `Keyword Collection Summary
--------------------------
Run:           {{.RunID}}
Seed:          {{.Seed}}
Method:        {{.Method}}
Started:       {{.StartedAt.Format "2006-01-02 15:04:05"}}
Duration:      {{.Duration}}
Keywords:      {{.TotalUnique}} unique
Depth:         {{.DepthReached}} rounds
Fetch Errors:  {{.FetchErrors}}

By Source:
{{- range $src, $count := .SourceCounts}}
  {{$src}}: {{$count}}
{{- else}}
  None
{{- end}}

By Depth:
{{- range $depth, $count := .DepthCounts}}
  round {{$depth}}: {{$count}}
{{- else}}
  None
{{- end}}

Top Terms:
{{- range $i, $t := .TopTerms}}
  {{$t.Text}} ({{$t.Source}}, score {{printf "%.2f" $t.Score}})
{{- else}}
  None
{{- end}}
`

	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("report: parse template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("report: render text: %w", err)
	}
	return nil
}

// WriteHTML writes a basic HTML report to the provided writer.
func WriteHTML(w io.Writer, summary Summary) error {
	const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>Keyword Collection Report</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
</style>
</head>
<body>
  <h1>Keyword Collection Report</h1>
  <p><strong>Seed:</strong> {{.Seed}} ({{.Method}})</p>
  <p><strong>Started:</strong> {{.StartedAt.Format "2006-01-02 15:04:05"}} ({{.Duration}})</p>

  <div class="stat-card">
    <div>Unique Keywords</div>
    <div class="stat-val">{{.TotalUnique}}</div>
  </div>
  <div class="stat-card">
    <div>Rounds</div>
    <div class="stat-val">{{.DepthReached}}</div>
  </div>
  <div class="stat-card">
    <div>Fetch Errors</div>
    <div class="stat-val" style="color: {{if gt .FetchErrors 0}}red{{else}}green{{end}};">{{.FetchErrors}}</div>
  </div>

  <h3>Keywords By Source</h3>
  <table>
    <tr><th>Source</th><th>Count</th></tr>
    {{- range $src, $count := .SourceCounts}}
    <tr><td>{{$src}}</td><td>{{$count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>

  <h3>Top Terms</h3>
  <table>
    <tr><th>Term</th><th>Source</th><th>Depth</th><th>Score</th></tr>
    {{- range .TopTerms}}
    <tr><td>{{.Text}}</td><td>{{.Source}}</td><td>{{.Depth}}</td><td>{{printf "%.2f" .Score}}</td></tr>
    {{- else}}
    <tr><td colspan="4">None</td></tr>
    {{- end}}
  </table>
</body>
</html>
`
	t, err := template.New("htmlReport").Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("report: parse template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("report: render html: %w", err)
	}
	return nil
}
