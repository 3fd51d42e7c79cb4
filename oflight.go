package oflight

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/oomph-ac/oflight/detection"
	"github.com/oomph-ac/oflight/kinematics"
	"github.com/oomph-ac/oflight/settings"
	"github.com/oomph-ac/oflight/sink"
	"github.com/oomph-ac/oflight/terrain"
	"github.com/oomph-ac/oflight/worker"
)

// DefaultPassDecay is the amount a family's buffer is lowered by for every movement that did not violate it.
const DefaultPassDecay = 0.01

// Config holds the dependencies of a Tracker.
type Config struct {
	// Terrain answers the block queries of the rules.
	Terrain terrain.Classifier
	// Settings provides the thresholds and per-family settings. The settings are loaded again for every
	// movement, so a reloadable provider takes effect on the next tick.
	Settings settings.Provider
	// Sink receives every violation. If nil, violations are discarded.
	Sink sink.Sink
	// Workers is the amount of goroutines Dispatch evaluates on. If zero, Dispatch evaluates synchronously.
	Workers int
	// PassDecay is passed to sinks implementing sink.Passer. If zero, DefaultPassDecay is used.
	PassDecay float64

	Log *slog.Logger
}

// Tracker tracks the vertical movement of entities and reports the violations they produce.
type Tracker struct {
	store     *kinematics.Store
	evaluator *detection.Evaluator
	sink      sink.Sink
	pool      *worker.Pool
	passDecay float64
	log       *slog.Logger

	rejected atomic.Uint64
	closed   atomic.Bool
}

// New returns a Tracker using the dependencies in the Config.
func New(c Config) (*Tracker, error) {
	if c.Terrain == nil {
		return nil, errors.New("oflight: terrain classifier is required")
	}
	if c.Settings == nil {
		return nil, errors.New("oflight: settings provider is required")
	}
	if c.Log == nil {
		c.Log = slog.Default()
	}
	if c.Sink == nil {
		c.Sink = sink.Nop{}
	}
	if c.PassDecay == 0 {
		c.PassDecay = DefaultPassDecay
	}

	t := &Tracker{
		store:     kinematics.NewStore(c.Log),
		evaluator: detection.NewEvaluator(c.Terrain, c.Settings, c.Log),
		sink:      c.Sink,
		passDecay: c.PassDecay,
		log:       c.Log,
	}
	if c.Workers > 0 {
		t.pool = worker.New(c.Workers)
	}
	return t, nil
}

// Handle evaluates a movement of the entity and passes its violations to the sink before returning them.
// Movements of one entity must be handled in tick order.
func (t *Tracker) Handle(id uuid.UUID, s detection.Sample) ([]detection.Violation, error) {
	var (
		vs  []detection.Violation
		err error
	)
	t.store.Update(id, func(st *kinematics.State) {
		vs, err = t.evaluator.Evaluate(st, s)
		if err != nil {
			return
		}
		t.report(id, vs)
	})
	if err != nil {
		t.rejected.Add(1)
		t.log.Debug("rejected movement sample", "entity", id, "tick", s.Tick, "err", err)
	}
	return vs, err
}

// report passes the violations to the sink, and passes every family that was not violated.
func (t *Tracker) report(id uuid.UUID, vs []detection.Violation) {
	violated := make([]bool, len(detection.Families))
	for _, v := range vs {
		violated[v.Family] = true
		t.sink.HandleViolation(id, v)
	}

	p, ok := t.sink.(sink.Passer)
	if !ok {
		return
	}
	for _, f := range detection.Families {
		if !violated[f] {
			p.Pass(id, f, t.passDecay)
		}
	}
}

// Dispatch queues a movement of the entity to be handled on the worker owning the entity, so that the
// movements of one entity stay in order. Without workers, Dispatch handles the movement immediately. It
// returns false if the Tracker was closed.
func (t *Tracker) Dispatch(id uuid.UUID, s detection.Sample) bool {
	if t.closed.Load() {
		return false
	}
	if t.pool == nil {
		_, _ = t.Handle(id, s)
		return true
	}
	return t.pool.Submit(id[:], func() {
		_, _ = t.Handle(id, s)
	})
}

// State returns a copy of the kinematic state of the entity.
func (t *Tracker) State(id uuid.UUID) (kinematics.State, bool) {
	return t.store.Lookup(id)
}

// Disconnect stops tracking the entity, and makes the sink forget it. With workers, the entity is only
// forgotten after its dispatched movements were handled.
func (t *Tracker) Disconnect(id uuid.UUID) {
	if t.pool != nil && t.pool.Submit(id[:], func() { t.disconnect(id) }) {
		return
	}
	t.disconnect(id)
}

func (t *Tracker) disconnect(id uuid.UUID) {
	t.store.Evict(id)
	if f, ok := t.sink.(sink.Forgetter); ok {
		f.Forget(id)
	}
}

// Tracked returns the amount of tracked entities.
func (t *Tracker) Tracked() int {
	return t.store.Len()
}

// Rejected returns the amount of malformed samples that were rejected.
func (t *Tracker) Rejected() uint64 {
	return t.rejected.Load()
}

// Faults returns the amount of rule evaluations that panicked.
func (t *Tracker) Faults() uint64 {
	return t.evaluator.Faults()
}

// Close waits for all dispatched movements to be handled. Sinks are not closed.
func (t *Tracker) Close() {
	if t.closed.Swap(true) {
		return
	}
	if t.pool != nil {
		t.pool.Close()
	}
}
