package sources

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Static is an in-memory source backed by a fixed record set. It serves
// offline runs from fixture files and stands in for remote sources in tests.
type Static struct {
	id      ID
	name    string
	records []Record

	mu    sync.RWMutex
	err   error
	delay time.Duration
	calls atomic.Int64
}

// NewStatic creates a static source. Records without a Source are stamped with id.
func NewStatic(id ID, name string, records ...Record) *Static {
	s := &Static{id: id, name: name}
	for _, r := range records {
		if r.Source == "" {
			r.Source = id
		}
		s.records = append(s.records, r)
	}
	return s
}

// ID implements Source.
func (s *Static) ID() ID { return s.id }

// Name implements Source.
func (s *Static) Name() string { return s.name }

// Type implements Source.
func (s *Static) Type() Type { return TypeStatic }

// FailWith makes every following Search return err.
func (s *Static) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Delay makes every following Search block for d or until ctx is done.
func (s *Static) Delay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Calls returns how many times Search was called.
func (s *Static) Calls() int {
	return int(s.calls.Load())
}

// Search returns every record. Like a remote search endpoint it does not
// filter strictly; the matcher decides which candidates identify the studio.
func (s *Static) Search(ctx context.Context, _ string) ([]Record, error) {
	s.calls.Add(1)

	s.mu.RLock()
	err, delay := s.err, s.delay
	s.mu.RUnlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if err != nil {
		return nil, err
	}

	out := make([]Record, len(s.records))
	for i, r := range s.records {
		r.Aliases = append([]string(nil), r.Aliases...)
		if r.Parent != nil {
			p := *r.Parent
			r.Parent = &p
		}
		out[i] = r
	}
	return out, nil
}
