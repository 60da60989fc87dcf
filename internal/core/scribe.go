// ABOUTME: Scribe processes finished sessions in the background
// ABOUTME: A bounded queue feeds a fixed worker pool running the SessionProcessor
package core

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrScribeClosed is returned by Submit after Close
	ErrScribeClosed = errors.New("scribe is closed")
	// ErrScribeFull is returned when the queue has no room; callers may retry or process inline
	ErrScribeFull = errors.New("scribe queue is full")
)

// SessionHandler is the work the scribe runs per session
type SessionHandler interface {
	Process(ctx context.Context, in ResolveInput) (*ProcessResult, error)
}

// Scribe is a fire-and-forget front for session processing
type Scribe struct {
	handler SessionHandler
	logger  *zap.Logger
	queue   chan ResolveInput

	mu     sync.RWMutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScribe starts workers goroutines draining a queue of the given depth
func NewScribe(handler SessionHandler, workers, depth int, logger *zap.Logger) *Scribe {
	if workers <= 0 {
		workers = 1
	}
	if depth <= 0 {
		depth = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scribe{
		handler: handler,
		logger:  logger,
		queue:   make(chan ResolveInput, depth),
		ctx:     ctx,
		cancel:  cancel,
	}

	s.wg.Add(workers)
	for w := 0; w < workers; w++ {
		go s.run()
	}
	return s
}

// Submit queues a session without waiting for it to be processed
func (s *Scribe) Submit(in ResolveInput) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrScribeClosed
	}
	select {
	case s.queue <- in:
		return nil
	default:
		return ErrScribeFull
	}
}

func (s *Scribe) run() {
	defer s.wg.Done()
	for in := range s.queue {
		res, err := s.handler.Process(s.ctx, in)
		log := s.logger.With(zap.String("client_id", in.ClientID), zap.String("session_id", in.SessionID))
		if err != nil {
			log.Error("background session processing failed", zap.Error(err))
			continue
		}
		deltas := 0
		if res.Ingest != nil {
			deltas = len(res.Ingest.Deltas)
		}
		log.Info("background session processed", zap.Bool("synthesis_parsed", res.Insight.SynthesisParsed), zap.Int("deltas", deltas))
	}
}

// Close stops accepting work and waits for queued sessions to finish.
// If ctx ends first, in-flight work is cancelled and ctx.Err is returned.
func (s *Scribe) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}
