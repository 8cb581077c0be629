package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/studiosync/pkg/catalogs"
	"github.com/agentstation/studiosync/pkg/reconcile"
	"github.com/agentstation/studiosync/pkg/sources"
)

// State is the final state of one studio in a run.
type State string

// Final states.
const (
	StateApplied          State = "applied"
	StateReported         State = "reported"
	StateAlreadyComplete  State = "already_complete"
	StateSkippedNoMatch   State = "skipped_no_match"
	StateSkippedAmbiguous State = "skipped_ambiguous"
	StateFailed           State = "failed"
)

// States lists the final states in report order.
var States = []State{
	StateApplied,
	StateReported,
	StateAlreadyComplete,
	StateSkippedNoMatch,
	StateSkippedAmbiguous,
	StateFailed,
}

// Outcome is the result for one studio.
type Outcome struct {
	StudioID            string                  `json:"studio_id" yaml:"studio_id"`
	Name                string                  `json:"name" yaml:"name"`
	State               State                   `json:"outcome" yaml:"outcome"`
	FieldChanges        []reconcile.FieldChange `json:"field_changes,omitempty" yaml:"field_changes,omitempty"`
	ParentChange        *reconcile.ParentChange `json:"parent_change,omitempty" yaml:"parent_change,omitempty"`
	CreatedParentID     string                  `json:"created_parent_id,omitempty" yaml:"created_parent_id,omitempty"`
	ContributingSources []sources.ID            `json:"contributing_sources,omitempty" yaml:"contributing_sources,omitempty"`
	AmbiguousSources    []sources.ID            `json:"ambiguous_sources,omitempty" yaml:"ambiguous_sources,omitempty"`
	Matches             []reconcile.SourceMatch `json:"-" yaml:"-"`
	Warnings            []string                `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Error               string                  `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewOutcome starts an outcome for studio.
func NewOutcome(studio catalogs.Studio) Outcome {
	return Outcome{StudioID: studio.ID, Name: studio.Name}
}

// WithPlan copies the plan's changes into the outcome.
func (o *Outcome) WithPlan(plan reconcile.Plan) {
	o.FieldChanges = plan.FieldChanges
	o.ParentChange = plan.ParentChange
	o.ContributingSources = plan.ContributingSources()
	o.Warnings = append(o.Warnings, plan.Warnings...)
	if plan.Conflict != nil {
		o.Warnings = append(o.Warnings, plan.Conflict.Error())
	}
}

// Fail marks the outcome failed with err.
func (o *Outcome) Fail(err error) {
	o.State = StateFailed
	o.Error = err.Error()
}

// Summary returns a one-line description of the outcome.
func (o Outcome) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s): %s", o.Name, o.StudioID, o.State)
	if n := len(o.FieldChanges); n > 0 {
		fmt.Fprintf(&b, ", %d field change(s)", n)
	}
	if o.ParentChange != nil {
		fmt.Fprintf(&b, ", parent %s", o.ParentChange.String())
	}
	if o.Error != "" {
		fmt.Fprintf(&b, ": %s", o.Error)
	}
	return b.String()
}

// Report is the result of a sync run.
type Report struct {
	RunID      string         `json:"run_id" yaml:"run_id"`
	DryRun     bool           `json:"dry_run" yaml:"dry_run"`
	Mode       reconcile.Mode `json:"mode" yaml:"mode"`
	Sources    []sources.ID   `json:"sources" yaml:"sources"`
	StartedAt  utc.Time       `json:"started_at" yaml:"started_at"`
	FinishedAt utc.Time       `json:"finished_at" yaml:"finished_at"`
	Outcomes   []Outcome      `json:"outcomes" yaml:"outcomes"`
	Counts     map[State]int  `json:"counts" yaml:"counts"`
}

// NewReport starts a report for a run.
func NewReport(runID string, opts *Options, ids []sources.ID) *Report {
	counts := make(map[State]int, len(States))
	for _, s := range States {
		counts[s] = 0
	}
	return &Report{
		RunID:     runID,
		DryRun:    opts.DryRun,
		Mode:      opts.Mode(),
		Sources:   ids,
		StartedAt: utc.Now(),
		Counts:    counts,
	}
}

// Add appends an outcome in processing order.
func (r *Report) Add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	r.Counts[o.State]++
}

// Finish stamps the finish time.
func (r *Report) Finish() {
	r.FinishedAt = utc.Now()
}

// Duration returns how long the run took.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Outcome returns the outcome for a studio, if it was processed.
func (r *Report) Outcome(studioID string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.StudioID == studioID {
			return o, true
		}
	}
	return Outcome{}, false
}

// HasChanges reports whether any studio was applied or would be.
func (r *Report) HasChanges() bool {
	return r.Counts[StateApplied] > 0 || r.Counts[StateReported] > 0
}

// Summary returns a human-readable summary of the run.
func (r *Report) Summary() string {
	if len(r.Outcomes) == 0 {
		return "No studios processed"
	}
	var parts []string
	for _, s := range States {
		if n := r.Counts[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, s))
		}
	}
	summary := fmt.Sprintf("%d studios: %s", len(r.Outcomes), strings.Join(parts, ", "))
	if r.DryRun {
		summary += " (Dry run)"
	}
	return summary
}
