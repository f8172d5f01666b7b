package resilience

import (
	"context"
	"sync"
)

// SingleFlight collapses concurrent calls for the same key into one execution
// whose result every caller receives.
type SingleFlight[T any] struct {
	mu    sync.Mutex
	calls map[string]*flight[T]
}

type flight[T any] struct {
	done   chan struct{}
	val    T
	err    error
	dups   int
	shared bool
}

// Do runs fn once per key at a time. shared reports whether the result was also
// handed to another caller.
func (g *SingleFlight[T]) Do(key string, fn func() (T, error)) (val T, err error, shared bool) {
	f, leader := g.join(key)
	if leader {
		g.run(key, f, fn)
		return f.val, f.err, f.shared
	}
	<-f.done
	return f.val, f.err, true
}

// DoContext is Do for callers that may give up early. fn runs on its own
// goroutine; a caller whose ctx ends gets ctx.Err() while fn keeps running for
// the callers still waiting.
func (g *SingleFlight[T]) DoContext(ctx context.Context, key string, fn func() (T, error)) (val T, err error, shared bool) {
	f, leader := g.join(key)
	if leader {
		go g.run(key, f, fn)
	}

	select {
	case <-f.done:
		return f.val, f.err, !leader || f.shared
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err(), !leader
	}
}

func (g *SingleFlight[T]) join(key string) (*flight[T], bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.calls == nil {
		g.calls = make(map[string]*flight[T])
	}
	if f, ok := g.calls[key]; ok {
		f.dups++
		return f, false
	}
	f := &flight[T]{done: make(chan struct{})}
	g.calls[key] = f
	return f, true
}

func (g *SingleFlight[T]) run(key string, f *flight[T], fn func() (T, error)) {
	f.val, f.err = fn()

	g.mu.Lock()
	delete(g.calls, key)
	f.shared = f.dups > 0
	g.mu.Unlock()
	close(f.done)
}
