package analytics

import (
	"time"

	"github.com/rs/zerolog/log"
)

// Optimizer runs the experiment evaluation cycle on its own schedule,
// independent of message processing.
type Optimizer struct {
	engine   *Engine
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	started  bool
}

func NewOptimizer(engine *Engine, interval time.Duration) *Optimizer {
	if interval < time.Minute {
		interval = time.Minute
	}
	return &Optimizer{
		engine:   engine,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (o *Optimizer) Start() {
	if o.started {
		return
	}
	o.started = true
	go o.loop()
}

func (o *Optimizer) Stop() {
	if !o.started {
		return
	}
	close(o.stopCh)
	<-o.doneCh
}

func (o *Optimizer) loop() {
	ticker := time.NewTicker(o.interval)
	defer func() { ticker.Stop(); close(o.doneCh) }()
	for {
		select {
		case <-o.stopCh:
			return
		case <-ticker.C:
			o.runOnce()
		}
	}
}

func (o *Optimizer) runOnce() {
	promotions := o.engine.Evaluate()
	if len(promotions) > 0 {
		log.Info().Int("promotions", len(promotions)).Msg("optimizer cycle promoted winners")
	}
}
