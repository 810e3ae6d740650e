package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"carelens/internal/analysis"
	"carelens/internal/imaging"
)

// ErrNoImages rejects a submit with an empty stage.
var ErrNoImages = errors.New("stage at least one photo before submitting")

// Analyzer is the transport seam; *client.Client satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, images []string, kind analysis.Kind) (analysis.Result, error)
}

// Session drives one user's capture-and-analyze flow. State moves only
// through Next; the mutex guards state and staged data, never the HTTP
// call itself.
type Session struct {
	analyzer Analyzer
	log      *logrus.Entry

	mu     sync.Mutex
	state  State
	batch  *imaging.Batch
	kind   analysis.Kind
	result analysis.Result
	err    error
}

func New(analyzer Analyzer) *Session {
	return &Session{
		analyzer: analyzer,
		log:      logrus.WithField("component", "session"),
		state:    StateIdle,
		batch:    imaging.NewBatch(),
		kind:     analysis.KindDocument,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result is valid while the session shows StateSuccess.
func (s *Session) Result() analysis.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Err is the failure carried by StateError; its kind picks the guidance
// the UI shows.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// SetKind switches between document reading and room assessment for the
// next submission. Only meaningful before submitting.
func (s *Session) SetKind(k analysis.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return fmt.Errorf("cannot change kind in state %s", s.state)
	}
	s.kind = k
	return nil
}

// Stage adds a normalized photo to the pending batch.
func (s *Session) Stage(data []byte, mime string) (imaging.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return imaging.Item{}, fmt.Errorf("cannot stage photos in state %s", s.state)
	}
	return s.batch.Add(data, mime), nil
}

// Unstage removes one staged photo; the rest keep their order.
func (s *Session) Unstage(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return fmt.Errorf("cannot remove photos in state %s", s.state)
	}
	if !s.batch.Remove(id) {
		return fmt.Errorf("no staged photo %s", id)
	}
	return nil
}

func (s *Session) Staged() []imaging.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batch.Items()
}

// Submit sends the staged batch. It blocks until the call resolves and
// leaves the session in StateSuccess or StateError. A second submit
// while one is running gets ErrBusy.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	next, err := Next(s.state, EventSubmit)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	items := s.batch.Items()
	if len(items) == 0 {
		s.mu.Unlock()
		return ErrNoImages
	}
	s.state = next
	kind := s.kind
	s.mu.Unlock()

	return s.run(ctx, items, kind)
}

// Retry resubmits the batch retained from the failed attempt.
func (s *Session) Retry(ctx context.Context) error {
	s.mu.Lock()
	next, err := Next(s.state, EventRetry)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	items := s.batch.Items()
	if len(items) == 0 {
		s.mu.Unlock()
		return ErrNoImages
	}
	s.state = next
	kind := s.kind
	s.mu.Unlock()

	return s.run(ctx, items, kind)
}

func (s *Session) run(ctx context.Context, items []imaging.Item, kind analysis.Kind) error {
	payloads := make([]string, len(items))
	for i, it := range items {
		payloads[i] = imaging.ToBase64(it.Data)
	}

	res, err := s.analyzer.Analyze(ctx, payloads, kind)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state, _ = Next(s.state, EventFail)
		s.err = err
		s.log.WithError(err).Warn("analysis failed")
		return err
	}
	s.state, _ = Next(s.state, EventSucceed)
	s.result = res
	s.err = nil
	// keep the batch; it is only dropped on reset
	return nil
}

// Reset returns to idle and clears everything staged. Not permitted
// while a call is in flight; there is no cancellation.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := Next(s.state, EventReset)
	if err != nil {
		return err
	}
	s.state = next
	s.result = analysis.Result{}
	s.err = nil
	s.batch.Clear()
	return nil
}
