package studiosync

import (
	"sync"

	"github.com/agentstation/studiosync/pkg/catalogs"
	pkgsync "github.com/agentstation/studiosync/pkg/sync"
)

// Hook function types for run events.
type (
	// OutcomeHook is called after each studio is processed
	OutcomeHook func(outcome pkgsync.Outcome)

	// StudioAppliedHook is called after a plan was written to the catalog
	StudioAppliedHook func(old, new catalogs.Studio)

	// RunFinishedHook is called with every finished report, including partial ones
	RunFinishedHook func(report *pkgsync.Report)
)

// hooks manages event callbacks for runs.
type hooks struct {
	mu              sync.RWMutex
	onOutcome       []OutcomeHook
	onStudioApplied []StudioAppliedHook
	onRunFinished   []RunFinishedHook
}

func newHooks() *hooks {
	return &hooks{}
}

// OnOutcome registers a callback invoked after each studio is processed.
func (s *syncer) OnOutcome(fn OutcomeHook) {
	s.hooks.mu.Lock()
	defer s.hooks.mu.Unlock()
	s.hooks.onOutcome = append(s.hooks.onOutcome, fn)
}

// OnStudioApplied registers a callback invoked after a plan lands.
func (s *syncer) OnStudioApplied(fn StudioAppliedHook) {
	s.hooks.mu.Lock()
	defer s.hooks.mu.Unlock()
	s.hooks.onStudioApplied = append(s.hooks.onStudioApplied, fn)
}

// OnRunFinished registers a callback invoked with every finished report.
func (s *syncer) OnRunFinished(fn RunFinishedHook) {
	s.hooks.mu.Lock()
	defer s.hooks.mu.Unlock()
	s.hooks.onRunFinished = append(s.hooks.onRunFinished, fn)
}

func (h *hooks) outcome(o pkgsync.Outcome) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onOutcome {
		fn(o)
	}
}

func (h *hooks) studioApplied(old, updated catalogs.Studio) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onStudioApplied {
		fn(old, updated)
	}
}

func (h *hooks) runFinished(r *pkgsync.Report) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onRunFinished {
		fn(r)
	}
}
