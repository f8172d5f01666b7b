package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSingleFlight_Do(t *testing.T) {
	var g SingleFlight[[]byte]
	var counter int32
	var sharedCount int32

	const workers = 20
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			body, err, shared := g.Do("fixtures?id=1035001", func() ([]byte, error) {
				atomic.AddInt32(&counter, 1)
				time.Sleep(20 * time.Millisecond)
				return []byte(`{"results":1}`), nil
			})
			if err != nil {
				t.Errorf("singleflight call failed: %v", err)
			}
			if string(body) != `{"results":1}` {
				t.Errorf("unexpected body: %s", body)
			}
			if shared {
				atomic.AddInt32(&sharedCount, 1)
			}
		}()
	}

	close(start)
	wg.Wait()

	if got := atomic.LoadInt32(&counter); got != 1 {
		t.Fatalf("expected function to run once, got %d", got)
	}
	if got := atomic.LoadInt32(&sharedCount); got != workers {
		t.Fatalf("expected every caller to see a shared result, got %d", got)
	}
}

func TestSingleFlight_SequentialCallsAreNotShared(t *testing.T) {
	var g SingleFlight[int]

	for i := 1; i <= 2; i++ {
		got, err, shared := g.Do("teams:flamengo", func() (int, error) { return i, nil })
		if err != nil || got != i || shared {
			t.Fatalf("call %d: got=%d err=%v shared=%v", i, got, err, shared)
		}
	}
}

func TestSingleFlight_DoContext_CancelledCallerLeavesOthersWaiting(t *testing.T) {
	var g SingleFlight[string]
	release := make(chan struct{})
	started := make(chan struct{})

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err, _ := g.DoContext(leaderCtx, "fixtures?id=7", func() (string, error) {
			close(started)
			<-release
			return "payload", nil
		})
		leaderErr <- err
	}()
	<-started

	followerDone := make(chan string, 1)
	go func() {
		val, err, _ := g.DoContext(context.Background(), "fixtures?id=7", func() (string, error) {
			return "second request", nil
		})
		if err != nil {
			t.Errorf("follower failed: %v", err)
		}
		followerDone <- val
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	if err := <-leaderErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled leader, got %v", err)
	}

	close(release)
	if got := <-followerDone; got != "payload" {
		t.Fatalf("follower should receive the shared result, got %q", got)
	}
}
