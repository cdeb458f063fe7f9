package analytics

import (
	"hash/fnv"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// VariantStats tracks the running totals for one experiment arm.
type VariantStats struct {
	ID         string  `json:"id"`
	Count      int     `json:"count"`
	TotalValue float64 `json:"total_value"`
}

// Mean is the running average metric value for the arm.
func (v VariantStats) Mean() float64 {
	if v.Count == 0 {
		return 0
	}
	return v.TotalValue / float64(v.Count)
}

// Experiment is one live A/B comparison. The first variant is the control.
type Experiment struct {
	TestID               string
	Variants             []VariantStats
	MinSample            int
	MinDuration          time.Duration
	ImprovementThreshold float64
	StartedAt            time.Time
	Winner               string
}

// Promotion reports a concluded experiment.
type Promotion struct {
	TestID      string  `json:"test_id"`
	Winner      string  `json:"winner"`
	Improvement float64 `json:"improvement"`
}

// Engine assigns sessions to variants and concludes experiments. A single
// mutex serializes all writes; the optimizer cycle is the only caller of
// Evaluate, so one writer at a time is guaranteed.
type Engine struct {
	mu    sync.Mutex
	tests map[string]*Experiment
	now   func() time.Time
}

func NewEngine() *Engine {
	return &Engine{tests: make(map[string]*Experiment), now: time.Now}
}

// WithClock overrides the time source, for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Register adds an experiment. Registering an existing test id is a no-op so
// restarts do not reset running counters.
func (e *Engine) Register(exp Experiment) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.tests[exp.TestID]; exists {
		return
	}
	if exp.StartedAt.IsZero() {
		exp.StartedAt = e.now()
	}
	copied := exp
	copied.Variants = append([]VariantStats(nil), exp.Variants...)
	e.tests[exp.TestID] = &copied
}

// Assign returns the variant for a session. Assignment hashes the session id
// modulo the variant count, so a session keeps its variant for the test's
// whole lifetime without any stored state. A concluded test always answers
// with its winner.
func (e *Engine) Assign(testID, sessionID string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	exp, ok := e.tests[testID]
	if !ok || len(exp.Variants) == 0 {
		return ""
	}
	if exp.Winner != "" {
		return exp.Winner
	}
	return exp.Variants[variantIndex(sessionID, len(exp.Variants))].ID
}

// RecordValue adds a metric observation to the session's variant.
func (e *Engine) RecordValue(testID, sessionID string, value float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	exp, ok := e.tests[testID]
	if !ok || len(exp.Variants) == 0 || exp.Winner != "" {
		return
	}
	idx := variantIndex(sessionID, len(exp.Variants))
	exp.Variants[idx].Count++
	exp.Variants[idx].TotalValue += value
}

// Evaluate concludes every experiment that has enough data: minimum sample
// size per arm, minimum runtime, a winning arm beating the control by at
// least the improvement threshold, and a simplified two-proportion
// significance check. Winners become the implemented default for future
// sessions.
func (e *Engine) Evaluate() []Promotion {
	e.mu.Lock()
	defer e.mu.Unlock()

	var promotions []Promotion
	now := e.now()
	for _, exp := range e.tests {
		if exp.Winner != "" || len(exp.Variants) < 2 {
			continue
		}
		if now.Sub(exp.StartedAt) < exp.MinDuration {
			continue
		}
		ready := true
		for _, v := range exp.Variants {
			if v.Count < exp.MinSample {
				ready = false
				break
			}
		}
		if !ready {
			continue
		}

		control := exp.Variants[0]
		best := control
		for _, v := range exp.Variants[1:] {
			if v.Mean() > best.Mean() {
				best = v
			}
		}
		if best.ID == control.ID || control.Mean() == 0 {
			continue
		}
		improvement := (best.Mean() - control.Mean()) / control.Mean()
		if improvement < exp.ImprovementThreshold {
			continue
		}
		if !significant(control, best) {
			continue
		}

		exp.Winner = best.ID
		promotions = append(promotions, Promotion{TestID: exp.TestID, Winner: best.ID, Improvement: improvement})
		log.Info().
			Str("test_id", exp.TestID).
			Str("winner", best.ID).
			Float64("improvement", improvement).
			Msg("experiment concluded, winner promoted")
	}
	return promotions
}

// Snapshot returns a copy of every experiment's current state.
func (e *Engine) Snapshot() []Experiment {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Experiment, 0, len(e.tests))
	for _, exp := range e.tests {
		copied := *exp
		copied.Variants = append([]VariantStats(nil), exp.Variants...)
		out = append(out, copied)
	}
	return out
}

func variantIndex(sessionID string, variants int) int {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return int(h.Sum32() % uint32(variants))
}

// significant runs a pooled two-proportion z-test over the arm means,
// treating the metric as a conversion in [0,1]. Deliberately simplified: it
// is a guard against promoting noise, not a full stats framework.
func significant(a, b VariantStats) bool {
	n1, n2 := float64(a.Count), float64(b.Count)
	p1, p2 := a.Mean(), b.Mean()
	pooled := (a.TotalValue + b.TotalValue) / (n1 + n2)
	se := math.Sqrt(pooled * (1 - pooled) * (1/n1 + 1/n2))
	if se == 0 {
		return p1 != p2
	}
	z := math.Abs(p2-p1) / se
	return z >= 1.96
}
