// ABOUTME: Tests for the background Scribe queue and worker pool
// ABOUTME: Verifies draining on Close, backpressure, and no leaked workers
package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/harper/persona/internal/models"
)

type recordingHandler struct {
	mu       sync.Mutex
	sessions []string
	block    chan struct{}
	fail     bool
}

func (h *recordingHandler) Process(ctx context.Context, in ResolveInput) (*ProcessResult, error) {
	if h.block != nil {
		select {
		case <-h.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	h.mu.Lock()
	h.sessions = append(h.sessions, in.SessionID)
	h.mu.Unlock()
	if h.fail {
		return nil, errors.New("boom")
	}
	return &ProcessResult{Insight: models.StoredInsight{Record: models.NewDefaultInsight(in.ClientID, in.SessionID)}}, nil
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func TestScribeDrainsOnClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := &recordingHandler{}
	s := NewScribe(h, 3, 16, nil)
	for i := 0; i < 10; i++ {
		if err := s.Submit(ResolveInput{ClientID: "c1", SessionID: string(rune('a' + i))}); err != nil {
			t.Fatalf("Submit(%d) error = %v", i, err)
		}
	}

	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if got := h.count(); got != 10 {
		t.Errorf("processed = %d, want 10", got)
	}
}

func TestScribeSubmitAfterClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewScribe(&recordingHandler{}, 1, 1, nil)
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Submit(ResolveInput{ClientID: "c1", SessionID: "s1"}); !errors.Is(err, ErrScribeClosed) {
		t.Errorf("Submit() after Close error = %v, want ErrScribeClosed", err)
	}
	// A second Close is harmless.
	if err := s.Close(context.Background()); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestScribeFullQueue(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := &recordingHandler{block: make(chan struct{})}
	s := NewScribe(h, 1, 1, nil)

	// One item is taken by the worker, one fills the queue.
	deadline := time.Now().Add(2 * time.Second)
	var err error
	for submitted := 0; time.Now().Before(deadline); {
		if err = s.Submit(ResolveInput{ClientID: "c1", SessionID: "s"}); errors.Is(err, ErrScribeFull) {
			break
		}
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		submitted++
		if submitted > 2 {
			t.Fatalf("queue of depth 1 accepted %d sessions", submitted)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !errors.Is(err, ErrScribeFull) {
		t.Fatalf("Submit() error = %v, want ErrScribeFull", err)
	}

	close(h.block)
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestScribeCloseTimeoutCancelsWork(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := &recordingHandler{block: make(chan struct{})}
	s := NewScribe(h, 1, 4, nil)
	if err := s.Submit(ResolveInput{ClientID: "c1", SessionID: "s1"}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := s.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Close() error = %v, want deadline exceeded", err)
	}
}

func TestScribeSurvivesHandlerErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := &recordingHandler{fail: true}
	s := NewScribe(h, 2, 4, nil)
	for _, id := range []string{"s1", "s2", "s3"} {
		if err := s.Submit(ResolveInput{ClientID: "c1", SessionID: id}); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if got := h.count(); got != 3 {
		t.Errorf("processed = %d, want 3", got)
	}
}
