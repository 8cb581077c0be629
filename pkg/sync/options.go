// Package sync provides the options and report types of a studio sync run.
package sync

import (
	"time"

	"github.com/agentstation/studiosync/internal/validation"
	"github.com/agentstation/studiosync/pkg/catalogs"
	"github.com/agentstation/studiosync/pkg/constants"
	"github.com/agentstation/studiosync/pkg/reconcile"
)

// Options controls a sync run.
type Options struct {
	// DryRun computes plans without writing.
	DryRun bool
	// Force overwrites existing values instead of filling gaps.
	Force bool

	FuzzyEnabled bool
	Threshold    int `validate:"min=0,max=100"`

	// Limit caps the number of studios processed in a batch run; 0 means all.
	Limit int `validate:"min=0"`
	// SkipLinked skips studios already linked to every source unless Force is set.
	SkipLinked bool

	SourceTimeout time.Duration `validate:"min=0"`
	Concurrency   int           `validate:"min=1"`

	// Select narrows a batch run to the studios it returns true for.
	Select func(catalogs.Studio) bool
}

// Apply applies the given options.
func (o *Options) Apply(opts ...Option) *Options {
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Defaults returns the options of a full catalog run.
func Defaults() *Options {
	return &Options{
		FuzzyEnabled:  true,
		Threshold:     constants.BatchThreshold,
		SkipLinked:    true,
		SourceTimeout: constants.SourceTimeout,
		Concurrency:   constants.MaxConcurrentSources,
	}
}

// StudioDefaults returns the options of a single studio run, which require a
// stricter fuzzy score than batch runs.
func StudioDefaults() *Options {
	o := Defaults()
	o.Threshold = constants.SingleStudioThreshold
	o.SkipLinked = false
	return o
}

// Validate checks the options.
func (o *Options) Validate() error {
	return validation.Struct(o)
}

// Mode returns the merge mode selected by Force.
func (o *Options) Mode() reconcile.Mode {
	return reconcile.ModeFor(o.Force)
}

// Option is a function that configures Options.
type Option func(*Options)

// WithDryRun configures dry run mode.
func WithDryRun(dryRun bool) Option {
	return func(o *Options) {
		o.DryRun = dryRun
	}
}

// WithForce configures force mode.
func WithForce(force bool) Option {
	return func(o *Options) {
		o.Force = force
	}
}

// WithFuzzy enables or disables fuzzy matching.
func WithFuzzy(enabled bool) Option {
	return func(o *Options) {
		o.FuzzyEnabled = enabled
	}
}

// WithThreshold configures the minimum fuzzy score.
func WithThreshold(threshold int) Option {
	return func(o *Options) {
		o.Threshold = threshold
	}
}

// WithLimit limits the number of studios processed in a batch run.
func WithLimit(limit int) Option {
	return func(o *Options) {
		o.Limit = limit
	}
}

// WithSkipLinked configures whether fully linked studios are skipped.
func WithSkipLinked(skip bool) Option {
	return func(o *Options) {
		o.SkipLinked = skip
	}
}

// WithSourceTimeout configures the per-source search timeout.
func WithSourceTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.SourceTimeout = timeout
	}
}

// WithConcurrency configures how many sources are searched at once.
func WithConcurrency(n int) Option {
	return func(o *Options) {
		o.Concurrency = n
	}
}

// WithSelect narrows a batch run to the studios keep returns true for.
func WithSelect(keep func(catalogs.Studio) bool) Option {
	return func(o *Options) {
		o.Select = keep
	}
}
