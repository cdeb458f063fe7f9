package session

import (
	"sync"
	"testing"
	"time"
)

type countingSweepable struct {
	mu    sync.Mutex
	calls int
}

func (c *countingSweepable) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return 0
}

func (c *countingSweepable) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestSweeperRunsUntilStopped(t *testing.T) {
	target := &countingSweepable{}
	s := NewSweeper(target, time.Second)
	s.interval = 5 * time.Millisecond

	s.Start()
	deadline := time.Now().Add(2 * time.Second)
	for target.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("sweeper never ran")
		}
		time.Sleep(time.Millisecond)
	}
	s.Stop()

	after := target.count()
	time.Sleep(25 * time.Millisecond)
	if target.count() != after {
		t.Fatalf("sweeper kept running after Stop: %d -> %d", after, target.count())
	}
}

func TestSweeperStopIsIdempotentWithoutStart(t *testing.T) {
	s := NewSweeper(&countingSweepable{}, time.Second)
	s.Stop()
	s.Stop()
}
