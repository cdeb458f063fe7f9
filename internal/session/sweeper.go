package session

import (
	"time"

	"github.com/rs/zerolog/log"
)

// Sweepable is a store that can evict expired sessions on demand.
type Sweepable interface {
	Sweep() int
}

// Sweeper runs a store's expiry eviction on a fixed interval. Lazy expiry
// only fires when someone touches a session again; the sweeper covers the
// sessions nobody ever comes back to.
type Sweeper struct {
	store    Sweepable
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	started  bool
}

func NewSweeper(store Sweepable, interval time.Duration) *Sweeper {
	if interval < time.Second {
		interval = time.Second
	}
	return &Sweeper{
		store:    store,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	if s.started {
		return
	}
	s.started = true
	go s.loop()
}

func (s *Sweeper) Stop() {
	if !s.started {
		return
	}
	close(s.stopCh)
	<-s.doneCh
}

func (s *Sweeper) loop() {
	ticker := time.NewTicker(s.interval)
	defer func() { ticker.Stop(); close(s.doneCh) }()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if n := s.store.Sweep(); n > 0 {
				log.Debug().Int("sessions", n).Msg("expired sessions swept")
			}
		}
	}
}
