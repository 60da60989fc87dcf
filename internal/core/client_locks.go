// ABOUTME: Per-client write serialisation using weight-1 semaphores
// ABOUTME: Entries are reference counted and dropped once no writer holds or waits on them
package core

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

type clientLock struct {
	sem  *semaphore.Weighted
	refs int
}

// ClientLocks hands out one writer slot per client id
type ClientLocks struct {
	mu    sync.Mutex
	locks map[string]*clientLock
}

// NewClientLocks creates an empty lock table
func NewClientLocks() *ClientLocks {
	return &ClientLocks{locks: make(map[string]*clientLock)}
}

func (l *ClientLocks) ref(clientID string) *clientLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	cl, ok := l.locks[clientID]
	if !ok {
		cl = &clientLock{sem: semaphore.NewWeighted(1)}
		l.locks[clientID] = cl
	}
	cl.refs++
	return cl
}

func (l *ClientLocks) unref(clientID string, cl *clientLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cl.refs--
	if cl.refs == 0 {
		delete(l.locks, clientID)
	}
}

// Acquire waits for the client's writer slot or for ctx to end
func (l *ClientLocks) Acquire(ctx context.Context, clientID string) (release func(), err error) {
	cl := l.ref(clientID)
	if err := cl.sem.Acquire(ctx, 1); err != nil {
		l.unref(clientID, cl)
		return nil, err
	}
	return l.releaser(clientID, cl), nil
}

// TryAcquire takes the writer slot only if it is free
func (l *ClientLocks) TryAcquire(clientID string) (release func(), ok bool) {
	cl := l.ref(clientID)
	if !cl.sem.TryAcquire(1) {
		l.unref(clientID, cl)
		return nil, false
	}
	return l.releaser(clientID, cl), true
}

func (l *ClientLocks) releaser(clientID string, cl *clientLock) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			cl.sem.Release(1)
			l.unref(clientID, cl)
		})
	}
}

// Len reports how many clients currently have a holder or waiter
func (l *ClientLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
