package detection

import (
	"log/slog"
	"sync/atomic"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/getsentry/sentry-go"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/oflight/kinematics"
	"github.com/oomph-ac/oflight/oerror"
	"github.com/oomph-ac/oflight/settings"
	"github.com/oomph-ac/oflight/terrain"
)

// Evaluator checks the vertical movement of entities against the movement physically possible for them.
// An Evaluator holds no per-entity state and may be shared between goroutines, as long as the State of an
// entity is only evaluated by one goroutine at a time.
type Evaluator struct {
	terrain  terrain.Classifier
	settings settings.Provider
	log      *slog.Logger

	faults atomic.Uint64
}

func NewEvaluator(t terrain.Classifier, p settings.Provider, log *slog.Logger) *Evaluator {
	if log == nil {
		log = slog.Default()
	}
	return &Evaluator{terrain: t, settings: p, log: log}
}

// Faults returns the amount of rule evaluations that panicked and were discarded.
func (e *Evaluator) Faults() uint64 {
	return e.faults.Load()
}

// move holds everything derived from one sample while it is evaluated.
type move struct {
	sample Sample
	state  *kinematics.State
	cfg    *settings.Settings

	direction   kinematics.Direction
	wasOnGround bool
	// prevLadderTime is the ladder time carried into this tick, before it was updated.
	prevLadderTime int
	// ladderSignal is kinematics.MaxLadderTime on a tick with a vertical move on a climbable block. It is
	// only visible to this tick: the state carries kinematics.ClimbLadderTime into the next one.
	ladderSignal int
	// ground is the reference position ascent and descent distances are measured from.
	ground mgl64.Vec3

	onSlab, onStair, inLiquid, climbing bool

	violations []Violation
}

func (m *move) verticalMove() bool {
	return m.direction != kinematics.DirectionNeutral
}

func (m *move) validVerticalMove() bool {
	return !m.sample.HasVehicle && !m.onSlab && !m.onStair && !m.climbing
}

// flag records a violation for the family if it is enabled, returning true if it was recorded. kv holds
// alternating keys and values describing the violation.
func (m *move) flag(f Family, reason, message string, pos mgl64.Vec3, kv ...any) bool {
	b := m.cfg.Check(f.Setting())
	if !b.Enabled {
		return false
	}

	data := orderedmap.NewOrderedMap[string, any]()
	for i := 0; i+1 < len(kv); i += 2 {
		data.Set(kv[i].(string), kv[i+1])
	}
	m.violations = append(m.violations, Violation{
		Family:   f,
		Reason:   reason,
		Message:  message,
		Position: pos,
		Failed:   b.Cancel,
		Tick:     m.sample.Tick,
		Data:     data,
	})
	return true
}

// Evaluate updates the State with the sample and returns the violations it produced, in rule order.
// Malformed samples return an error wrapping ErrMalformedSample and leave the State untouched.
func (e *Evaluator) Evaluate(st *kinematics.State, s Sample) ([]Violation, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	m := &move{sample: s, state: st, cfg: e.settings.Load()}
	e.classify(m)
	e.update(m)
	for _, r := range rules {
		e.run(m, r)
	}
	return m.violations, nil
}

// classify resolves the terrain around the destination of the move.
func (e *Evaluator) classify(m *move) {
	to := m.sample.To
	m.climbing = e.predicate(func() bool { return e.terrain.OnClimbable(to) })
	m.onSlab = e.predicate(func() bool { return e.terrain.OnSlab(to) })
	m.onStair = e.predicate(func() bool { return e.terrain.OnStair(to) })
	m.inLiquid = e.predicate(func() bool { return e.terrain.InLiquid(to) })
}

// update applies the sample to the State before any rule is run.
func (e *Evaluator) update(m *move) {
	st, s := m.state, m.sample

	st.LastVerticalSpeed = st.VerticalSpeed
	st.VerticalSpeed = s.VerticalSpeed()

	m.wasOnGround = st.OnGround
	st.OnGround = s.OnGround
	if s.OnGround {
		st.AirTicks = 0
		pos := s.To
		st.GroundPosition = &pos
	} else {
		st.AirTicks++
	}

	switch {
	case s.Ground != nil:
		m.ground = *s.Ground
	case st.GroundPosition != nil:
		m.ground = *st.GroundPosition
	default:
		m.ground = s.From
	}

	st.VelocityLast, st.VelocityCurrent = st.VelocityCurrent, s.Velocity

	m.direction = kinematics.DirectionOf(st.VerticalSpeed)
	st.Direction = m.direction
	switch m.direction {
	case kinematics.DirectionAscending:
		st.SetAscending(m.climbing)
	case kinematics.DirectionDescending:
		st.SetDescending()
		// Velocity applied by the world does not carry over a descent.
		st.ClearVelocity()
	}
	if s.OnGround {
		st.Land()
	}

	m.prevLadderTime = st.LadderTime
	switch {
	case m.climbing && m.verticalMove():
		m.ladderSignal = kinematics.MaxLadderTime
		st.LadderTime = kinematics.ClimbLadderTime
	case m.climbing:
		st.LadderTime = kinematics.ClimbLadderTime
		m.ladderSignal = st.LadderTime
	default:
		st.DecayLadder()
		m.ladderSignal = st.LadderTime
	}
}

// run runs one rule. A panicking rule is reported, and its violations and changes to the State are
// discarded without affecting the other rules of the sample.
func (e *Evaluator) run(m *move, r rule) {
	n, before := len(m.violations), m.state.Clone()
	defer func() {
		if err := recover(); err != nil {
			m.violations = m.violations[:n]
			*m.state = before
			e.faults.Add(1)
			e.log.Error("detection rule panicked", "family", r.family.String(), "tick", m.sample.Tick, "err", err)

			hub := sentry.CurrentHub().Clone()
			hub.ConfigureScope(func(scope *sentry.Scope) {
				scope.SetTag("family", r.family.String())
			})
			hub.Recover(oerror.New("%s rule panicked: %v", r.family, err))
		}
	}()
	r.check(e, m)
}

// predicate runs a terrain query, treating a panicking query as false.
func (e *Evaluator) predicate(f func() bool) (ok bool) {
	defer func() {
		if err := recover(); err != nil {
			e.log.Error("terrain query panicked", "err", err)
			ok = false
		}
	}()
	return f()
}
