// Package metrics collects per-run statistics for CLI reporting.
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// RunReport collects statistics for one sync or enrichment invocation.
type RunReport struct {
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at,omitempty"`
	Duration   time.Duration `json:"duration_ms,omitempty"`
	Stages     []StageReport `json:"stages"`
	LLMMode    string        `json:"llm_mode,omitempty"` // "llm:<provider>" or "none"
	Errors     []string      `json:"errors,omitempty"`
}

// StageReport records one pipeline stage's counters.
type StageReport struct {
	Name      string        `json:"name"`
	Duration  time.Duration `json:"duration_ms"`
	Processed int           `json:"processed"`
	Errors    int           `json:"errors"`
}

// New starts tracking a run.
func New() *RunReport {
	return &RunReport{StartedAt: time.Now()}
}

// AddStage records a single stage's timing and counters.
func (r *RunReport) AddStage(name string, d time.Duration, processed, errCount int) {
	r.Stages = append(r.Stages, StageReport{
		Name:      name,
		Duration:  d,
		Processed: processed,
		Errors:    errCount,
	})
}

// Finish marks the run as complete.
func (r *RunReport) Finish(errs []string) {
	r.FinishedAt = time.Now()
	r.Duration = r.FinishedAt.Sub(r.StartedAt)
	r.Errors = errs
}

// PrintSummary writes a human-readable summary.
func (r *RunReport) PrintSummary(w io.Writer) {
	fmt.Fprintf(w, "\n╔══════════════════════════════════════╗\n")
	fmt.Fprintf(w, "║         LEGISYNC RUN REPORT          ║\n")
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ Duration:    %-23s║\n", r.Duration.Round(time.Millisecond))
	if r.LLMMode != "" {
		fmt.Fprintf(w, "║ LLM Mode:    %-23s║\n", r.LLMMode)
	}
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ STAGES\n")
	for _, s := range r.Stages {
		status := "OK"
		if s.Errors > 0 {
			status = fmt.Sprintf("%d errors", s.Errors)
		}
		fmt.Fprintf(w, "║   %-12s %8s  %4d docs  %s\n", s.Name, s.Duration.Round(time.Millisecond), s.Processed, status)
	}
	if len(r.Errors) > 0 {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ ERRORS\n")
		for _, e := range r.Errors {
			fmt.Fprintf(w, "║   • %s\n", e)
		}
	}
	fmt.Fprintf(w, "╚══════════════════════════════════════╝\n")
}

// JSON returns the report as formatted JSON.
func (r *RunReport) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
