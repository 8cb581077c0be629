package studiosync

import (
	"github.com/agentstation/studiosync/internal/lock"
	"github.com/agentstation/studiosync/pkg/errors"
	"github.com/agentstation/studiosync/pkg/matcher"
)

// Option is a function that configures a Syncer.
type Option func(*options) error

type options struct {
	lock        *lock.Lock
	lockFile    string
	recorder    Recorder
	metricsFile string
	scorer      matcher.Scorer
	runID       func() string
}

func defaultOptions() *options {
	return &options{}
}

// WithLockFile guards mutating runs with a PID file at path, so a second
// process fails fast while a run is active.
func WithLockFile(path string) Option {
	return func(o *options) error {
		o.lockFile = path
		return nil
	}
}

// WithLock shares a run lock between several syncers.
func WithLock(l *lock.Lock) Option {
	return func(o *options) error {
		if l == nil {
			return errors.NewValidationError("lock", nil, "lock must not be nil")
		}
		o.lock = l
		return nil
	}
}

// WithRecorder persists each finished report.
func WithRecorder(r Recorder) Option {
	return func(o *options) error {
		o.recorder = r
		return nil
	}
}

// WithMetricsFile writes run metrics to a Prometheus textfile after each run.
func WithMetricsFile(path string) Option {
	return func(o *options) error {
		o.metricsFile = path
		return nil
	}
}

// WithScorer replaces the fuzzy name scorer.
func WithScorer(s matcher.Scorer) Option {
	return func(o *options) error {
		o.scorer = s
		return nil
	}
}

// WithRunIDFunc replaces the run id generator.
func WithRunIDFunc(fn func() string) Option {
	return func(o *options) error {
		o.runID = fn
		return nil
	}
}
