package detection

import (
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/df-mc/dragonfly/server/block"
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/oflight/kinematics"
	"github.com/oomph-ac/oflight/settings"
	"github.com/oomph-ac/oflight/terrain"
	"github.com/oomph-ac/oflight/world"
	"github.com/sandertv/gophertunnel/minecraft/protocol"
)

type panicClassifier struct{}

func (panicClassifier) OnSlab(mgl64.Vec3) bool        { panic("slab lookup") }
func (panicClassifier) OnStair(mgl64.Vec3) bool       { panic("stair lookup") }
func (panicClassifier) InLiquid(mgl64.Vec3) bool      { panic("liquid lookup") }
func (panicClassifier) OnClimbable(mgl64.Vec3) bool   { panic("ladder lookup") }
func (panicClassifier) WalkedOnFence(mgl64.Vec3) bool { panic("fence lookup") }
func (panicClassifier) Solid(cube.Pos) bool           { panic("solid lookup") }

func newWorld() *world.World {
	w := world.New(nil)
	for x := int32(-1); x <= 1; x++ {
		for z := int32(-1); z <= 1; z++ {
			w.AddChunk(protocol.ChunkPos{x, z})
		}
	}
	return w
}

func newEvaluator(t *testing.T, c terrain.Classifier, s settings.Settings) *Evaluator {
	t.Helper()
	p, err := settings.NewStatic(s)
	if err != nil {
		t.Fatalf("unexpected settings error: %v", err)
	}
	return NewEvaluator(c, p, nil)
}

func newWorldEvaluator(t *testing.T, w *world.World) *Evaluator {
	return newEvaluator(t, terrain.NewWorldClassifier(w, nil), settings.DefaultSettings())
}

func vertical(y, speed float64) Sample {
	return Sample{
		From: mgl64.Vec3{0.5, y, 0.5},
		To:   mgl64.Vec3{0.5, y + speed, 0.5},
	}
}

func reasons(vs []Violation) map[string]Violation {
	m := make(map[string]Violation, len(vs))
	for _, v := range vs {
		m[v.Reason] = v
	}
	return m
}

func mustEvaluate(t *testing.T, e *Evaluator, st *kinematics.State, s Sample) map[string]Violation {
	t.Helper()
	vs, err := e.Evaluate(st, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return reasons(vs)
}

func TestGroundResetsCounters(t *testing.T) {
	e := newWorldEvaluator(t, newWorld())
	st := kinematics.NewState()
	r := rand.New(rand.NewSource(42))

	y, prevAir := 70.0, st.AirTicks
	for i := 0; i < 2000; i++ {
		s := vertical(y, (r.Float64()-0.5)*0.8)
		s.OnGround = r.Intn(4) == 0
		if _, err := e.Evaluate(st, s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		y = s.To.Y()

		if s.OnGround {
			if st.AscendingMoves != 0 || st.DescendingMoves != 0 {
				t.Fatalf("tick %d: expected streaks to reset on the ground, got %d/%d", i, st.AscendingMoves, st.DescendingMoves)
			}
			if st.AirTicks != 0 {
				t.Fatalf("tick %d: expected air ticks to reset on the ground, got %d", i, st.AirTicks)
			}
		} else if st.AirTicks != prevAir+1 {
			t.Fatalf("tick %d: expected air ticks %d, got %d", i, prevAir+1, st.AirTicks)
		}
		if st.AscendingMoves != 0 && st.DescendingMoves != 0 {
			t.Fatalf("tick %d: ascending and descending streaks are both set", i)
		}
		if st.LadderTime < 0 || st.LadderTime > kinematics.MaxLadderTime {
			t.Fatalf("tick %d: ladder time %d out of range", i, st.LadderTime)
		}
		prevAir = st.AirTicks
	}
}

func TestHover(t *testing.T) {
	e := newWorldEvaluator(t, newWorld())
	st := kinematics.NewState()
	maxHover := settings.DefaultSettings().Thresholds.MaxHoverTime

	for tick := 1; tick <= maxHover+2; tick++ {
		got := mustEvaluate(t, e, st, vertical(70, 0))
		_, flagged := got[ReasonHover]
		if want := tick >= maxHover; flagged != want {
			t.Fatalf("tick %d: hover flagged = %v, want %v", tick, flagged, want)
		}
	}
}

func TestHoverIgnoresVehicles(t *testing.T) {
	e := newWorldEvaluator(t, newWorld())
	st := kinematics.NewState()
	for tick := 0; tick < 20; tick++ {
		s := vertical(70, 0)
		s.HasVehicle = true
		if got := mustEvaluate(t, e, st, s); len(got) != 0 {
			t.Fatalf("tick %d: expected no violations while riding, got %v", tick, got)
		}
	}
}

func TestAscensionSpeed(t *testing.T) {
	cases := []struct {
		speed     float64
		jumpBoost bool
		velocity  float64
		flagged   bool
	}{
		{speed: 0.43, flagged: true},
		{speed: 0.40, flagged: false},
		{speed: 0.75, jumpBoost: true, flagged: false},
		{speed: 0.9, jumpBoost: true, flagged: true},
		{speed: 0.8, velocity: 0.5, flagged: true},
		{speed: 0.43, velocity: 1, flagged: true},
	}

	e := newWorldEvaluator(t, newWorld())
	for _, c := range cases {
		s := vertical(64, c.speed)
		s.JumpBoost = c.jumpBoost
		s.Velocity = c.velocity

		got := mustEvaluate(t, e, kinematics.NewState(), s)
		if _, flagged := got[ReasonAscendVertical]; flagged != c.flagged {
			t.Fatalf("speed %v boost %v velocity %v: flagged = %v, want %v", c.speed, c.jumpBoost, c.velocity, flagged, c.flagged)
		}
	}
}

func TestAscensionIgnoresWorldVelocity(t *testing.T) {
	e := newWorldEvaluator(t, newWorld())
	st := kinematics.NewState()
	st.OnGround = false
	st.VelocityCurrent = 0.6

	s := vertical(64, 0.8)
	s.Velocity = 0.5
	v, ok := mustEvaluate(t, e, st, s)[ReasonAscendVertical]
	if !ok {
		t.Fatalf("expected a fast ascent to flag regardless of applied velocity")
	}
	if ceiling, _ := v.Data.Get("max"); ceiling != 0.42 {
		t.Fatalf("expected the ceiling to stay at 0.42, got %v", ceiling)
	}
	if st.VelocityCurrent != 0.5 || st.VelocityLast != 0.6 {
		t.Fatalf("expected velocity to still be tracked, got %v/%v", st.VelocityCurrent, st.VelocityLast)
	}
}

func TestAscensionDistanceAndTime(t *testing.T) {
	e := newWorldEvaluator(t, newWorld())
	st := kinematics.NewState()
	thresholds := settings.DefaultSettings().Thresholds

	ground := mgl64.Vec3{0.5, 64, 0.5}
	y := 64.0
	var distanceFlagged, timeFlagged bool
	for tick := 1; tick <= thresholds.AscendTime+1; tick++ {
		s := vertical(y, 0.3)
		s.Ground = &ground
		got := mustEvaluate(t, e, st, s)
		y = s.To.Y()

		if _, ok := got[ReasonAscendTime]; ok {
			if tick <= thresholds.AscendTime {
				t.Fatalf("tick %d: ascend time flagged too early", tick)
			}
			timeFlagged = true
		}
		if _, ok := got[ReasonAscendDistance]; ok {
			if y-64 < thresholds.AscendDistance {
				t.Fatalf("tick %d: ascend distance flagged at %v", tick, y-64)
			}
			distanceFlagged = true
		}
		if _, ok := got[ReasonAscendVertical]; ok {
			t.Fatalf("tick %d: unexpected speed flag for a slow ascent", tick)
		}
	}
	if !distanceFlagged || !timeFlagged {
		t.Fatalf("expected both distance and time to flag, got distance=%v time=%v", distanceFlagged, timeFlagged)
	}
}

func TestAscensionSkipsFenceTops(t *testing.T) {
	w := newWorld()
	w.SetBlock(cube.Pos{0, 64, 0}, block.WoodFence{Wood: block.OakWood()})
	e := newWorldEvaluator(t, w)

	if got := mustEvaluate(t, e, kinematics.NewState(), vertical(64.9, 0.6)); len(got) != 0 {
		t.Fatalf("expected no violations when landing on a fence, got %v", got)
	}
}

func TestExpectedGlideDelta(t *testing.T) {
	if got := ExpectedGlideDelta(50); math.Abs(got-0.0244615) > 1e-9 {
		t.Fatalf("expected 0.0244615 after 50 air ticks, got %v", got)
	}
	if got := ExpectedGlideDelta(200); math.Abs(got-(-9.908e-7*40000+3.4538e-7*200+0.0189)) > 1e-12 {
		t.Fatalf("unexpected long fall delta %v", got)
	}
}

func TestGlideExpectedDeceleration(t *testing.T) {
	expected := ExpectedGlideDelta(50)
	cases := []struct {
		name    string
		delta   float64
		flagged bool
	}{
		{"too exact", expected + 0.0001, true},
		{"too divergent", 0.09, true},
		{"within band", 0.04, false},
	}

	e := newWorldEvaluator(t, newWorld())
	for _, c := range cases {
		ground := mgl64.Vec3{0.5, 80, 0.5}
		st := kinematics.NewState()
		st.OnGround = false
		st.AirTicks = 49
		st.DescendingMoves = 2
		st.VerticalSpeed = -0.5
		st.GroundPosition = &ground

		got := mustEvaluate(t, e, st, vertical(70, -0.5-c.delta))
		if _, flagged := got[ReasonDescendExpected]; flagged != c.flagged {
			t.Fatalf("%s: flagged = %v, want %v", c.name, flagged, c.flagged)
		}
		if _, flagged := got[ReasonDescendDifference]; flagged {
			t.Fatalf("%s: unexpected constant speed flag", c.name)
		}
	}
}

func TestGlideConstantSpeed(t *testing.T) {
	e := newWorldEvaluator(t, newWorld())
	st := kinematics.NewState()
	st.OnGround = false
	st.VerticalSpeed = -0.25

	got := mustEvaluate(t, e, st, vertical(70, -0.25))
	if _, ok := got[ReasonDescendDifference]; !ok {
		t.Fatalf("expected a constant descent to flag, got %v", got)
	}
}

func TestGlideIgnoresShortDrops(t *testing.T) {
	e := newWorldEvaluator(t, newWorld())
	st := kinematics.NewState()
	st.OnGround = false
	st.AirTicks = 49
	st.DescendingMoves = 2
	st.VerticalSpeed = -0.5

	ground := mgl64.Vec3{0.5, 70, 0.5}
	s := vertical(70, -0.59)
	s.Ground = &ground
	if got := mustEvaluate(t, e, st, s); len(got) != 0 {
		t.Fatalf("expected a drop shorter than the minimum distance to pass, got %v", got)
	}
}

func TestVerticalClip(t *testing.T) {
	w := newWorld()
	w.SetBlock(cube.Pos{0, 65, 0}, block.Stone{})
	e := newWorldEvaluator(t, w)
	st := kinematics.NewState()

	s := vertical(64, 1.5)
	got := mustEvaluate(t, e, st, s)
	v, ok := got[ReasonClipSolid]
	if !ok {
		t.Fatalf("expected a clip through stone to flag, got %v", got)
	}
	if v.Position != s.From {
		t.Fatalf("expected the violation to be anchored at the safe position %v, got %v", s.From, v.Position)
	}
	if *st.SafePosition != s.From {
		t.Fatalf("expected the safe position to stay at %v, got %v", s.From, *st.SafePosition)
	}

	// The safe position trails behind flagged ticks.
	got = mustEvaluate(t, e, st, vertical(65.5, 1.5))
	if v, ok := got[ReasonClipSolid]; !ok || v.Position != s.From {
		t.Fatalf("expected a second clip anchored at %v, got %v", s.From, got)
	}
}

func TestVerticalClipAirColumn(t *testing.T) {
	e := newWorldEvaluator(t, newWorld())
	st := kinematics.NewState()

	s := vertical(64, 1.5)
	got := mustEvaluate(t, e, st, s)
	if _, ok := got[ReasonClipSolid]; ok {
		t.Fatalf("expected an air column to never flag")
	}
	if st.SafePosition == nil || *st.SafePosition != s.To {
		t.Fatalf("expected the safe position to advance to %v, got %v", s.To, st.SafePosition)
	}
}

func TestFastLadderInstant(t *testing.T) {
	w := newWorld()
	w.SetBlock(cube.Pos{0, 64, 0}, block.Ladder{Facing: cube.North})
	w.SetBlock(cube.Pos{0, 65, 0}, block.Ladder{Facing: cube.North})
	e := newWorldEvaluator(t, w)
	st := kinematics.NewState()

	s := vertical(64, 1.2)
	s.OnGround = true
	got := mustEvaluate(t, e, st, s)
	if st.AirTicks != 0 {
		t.Fatalf("expected no air ticks, got %d", st.AirTicks)
	}
	if _, ok := got[ReasonLadderInstant]; !ok {
		t.Fatalf("expected an instant ladder flag, got %v", got)
	}
	if _, ok := got[ReasonLadderAscend]; ok {
		t.Fatalf("expected the air tick gate to hold back the regular ladder flag")
	}
	if st.LadderTime != kinematics.ClimbLadderTime {
		t.Fatalf("expected ladder time %d after climbing, got %d", kinematics.ClimbLadderTime, st.LadderTime)
	}
}

func TestFastLadderGated(t *testing.T) {
	w := newWorld()
	for y := 60; y < 80; y++ {
		w.SetBlock(cube.Pos{0, y, 0}, block.Ladder{Facing: cube.North})
	}
	e := newWorldEvaluator(t, w)

	cases := []struct {
		speed  float64
		reason string
	}{
		{0.3, ReasonLadderAscend},
		{-0.3, ReasonLadderDescend},
	}
	for _, c := range cases {
		st := kinematics.NewState()
		st.OnGround = false
		st.AirTicks = 25

		got := mustEvaluate(t, e, st, vertical(70, c.speed))
		if _, ok := got[c.reason]; !ok {
			t.Fatalf("speed %v: expected %s, got %v", c.speed, c.reason, got)
		}
		if _, ok := got[ReasonLadderInstant]; ok {
			t.Fatalf("speed %v: unexpected instant ladder flag", c.speed)
		}
	}

	st := kinematics.NewState()
	st.OnGround = false
	st.AirTicks = 25
	if got := mustEvaluate(t, e, st, vertical(70, 0.1)); len(got) != 0 {
		t.Fatalf("expected a legitimate climb to pass, got %v", got)
	}
}

func TestLadderDecayGatesAscension(t *testing.T) {
	w := newWorld()
	w.SetBlock(cube.Pos{0, 64, 0}, block.Ladder{Facing: cube.North})
	e := newWorldEvaluator(t, w)
	st := kinematics.NewState()

	mustEvaluate(t, e, st, vertical(64, 0.1))
	if st.LadderTime != kinematics.ClimbLadderTime {
		t.Fatalf("expected ladder time %d, got %d", kinematics.ClimbLadderTime, st.LadderTime)
	}

	// Leaving the ladder with a fast ascent is tolerated until the ladder time decays.
	y := 65.0
	for tick := 0; tick < 5; tick++ {
		got := mustEvaluate(t, e, st, vertical(y, 0.5))
		y += 0.5
		_, flagged := got[ReasonAscendVertical]
		if want := tick >= 2; flagged != want {
			t.Fatalf("tick %d (ladder time %d): flagged = %v, want %v", tick, st.LadderTime, flagged, want)
		}
	}
}

func TestJesus(t *testing.T) {
	w := newWorld()
	w.SetBlock(cube.Pos{0, 63, 0}, block.Water{Still: true, Depth: 8})
	w.SetBlock(cube.Pos{0, 64, 0}, block.Water{Still: true, Depth: 8})
	e := newWorldEvaluator(t, w)

	s := vertical(64.2, 0.1)
	s.ClientOnGround = true
	if _, ok := mustEvaluate(t, e, kinematics.NewState(), s)[ReasonLiquidGround]; !ok {
		t.Fatalf("expected claiming ground inside water to flag")
	}

	s.ClientOnGround = false
	if _, ok := mustEvaluate(t, e, kinematics.NewState(), s)[ReasonLiquidGround]; ok {
		t.Fatalf("expected swimming up without claiming ground to pass")
	}
}

func TestMalformedSample(t *testing.T) {
	e := newWorldEvaluator(t, newWorld())
	st := kinematics.NewState()
	st.AirTicks = 3
	before := st.Clone()

	bad := []Sample{
		{From: mgl64.Vec3{0, 64, 0}, To: mgl64.Vec3{0, math.NaN(), 0}},
		{From: mgl64.Vec3{math.Inf(1), 64, 0}, To: mgl64.Vec3{0, 64, 0}},
		{From: mgl64.Vec3{0, 64, 0}, To: mgl64.Vec3{0, 64, 0}, Velocity: math.NaN()},
	}
	for _, s := range bad {
		vs, err := e.Evaluate(st, s)
		if !errors.Is(err, ErrMalformedSample) {
			t.Fatalf("expected ErrMalformedSample, got %v", err)
		}
		if len(vs) != 0 {
			t.Fatalf("expected no violations for a malformed sample")
		}
	}
	if !reflect.DeepEqual(before, st.Clone()) {
		t.Fatalf("expected malformed samples to leave the state untouched")
	}
}

func TestRuleFaultIsolation(t *testing.T) {
	orig := rules
	defer func() { rules = orig }()
	rules = append([]rule{
		{FamilyHover, func(*Evaluator, *move) { panic("boom") }},
		{FamilyGlide, func(_ *Evaluator, m *move) {
			m.flag(FamilyGlide, "partial", "partial", m.sample.From)
			panic("boom")
		}},
	}, orig...)

	e := newWorldEvaluator(t, newWorld())
	got := mustEvaluate(t, e, kinematics.NewState(), vertical(64, 0.5))
	if _, ok := got["partial"]; ok {
		t.Fatalf("expected violations of a panicking rule to be discarded")
	}
	if _, ok := got[ReasonAscendVertical]; !ok {
		t.Fatalf("expected other rules to still run, got %v", got)
	}
	if e.Faults() != 2 {
		t.Fatalf("expected two faults, got %d", e.Faults())
	}
}

func TestRuleFaultRestoresState(t *testing.T) {
	orig := rules
	defer func() { rules = orig }()
	rules = append([]rule{
		{FamilyVerticalClip, func(_ *Evaluator, m *move) {
			m.state.SafePosition = &mgl64.Vec3{100, 200, 100}
			m.state.AirTicks = 99
			panic("boom")
		}},
	}, orig...)

	e := newWorldEvaluator(t, newWorld())
	st := kinematics.NewState()
	s := vertical(64, 1.5)
	mustEvaluate(t, e, st, s)

	if st.AirTicks != 1 {
		t.Fatalf("expected the air ticks of the update to remain, got %d", st.AirTicks)
	}
	if st.SafePosition == nil || *st.SafePosition != s.To {
		t.Fatalf("expected only the vertical clip rule to move the safe position, got %v", st.SafePosition)
	}
	if e.Faults() != 1 {
		t.Fatalf("expected one fault, got %d", e.Faults())
	}
}

func TestTerrainFaultsDegrade(t *testing.T) {
	e := newEvaluator(t, panicClassifier{}, settings.DefaultSettings())
	got := mustEvaluate(t, e, kinematics.NewState(), vertical(64, 1.5))
	if _, ok := got[ReasonClipSolid]; ok {
		t.Fatalf("expected failing terrain lookups to never report solid blocks")
	}
	if _, ok := got[ReasonAscendVertical]; !ok {
		t.Fatalf("expected the remaining rules to run, got %v", got)
	}
	if e.Faults() != 0 {
		t.Fatalf("expected terrain failures to be absorbed, got %d faults", e.Faults())
	}
}

func TestDisabledFamilyAndCancel(t *testing.T) {
	s := settings.DefaultSettings()
	asc := s.Checks[settings.FamilyAscension]
	asc.Cancel = false
	s.Checks[settings.FamilyAscension] = asc
	clip := s.Checks[settings.FamilyVerticalClip]
	clip.Enabled = false
	s.Checks[settings.FamilyVerticalClip] = clip

	w := newWorld()
	w.SetBlock(cube.Pos{0, 65, 0}, block.Stone{})
	e := newEvaluator(t, terrain.NewWorldClassifier(w, nil), s)
	st := kinematics.NewState()

	vs := vertical(64, 1.5)
	got := mustEvaluate(t, e, st, vs)
	if _, ok := got[ReasonClipSolid]; ok {
		t.Fatalf("expected a disabled family to not flag")
	}
	if *st.SafePosition != vs.To {
		t.Fatalf("expected the safe position to advance when clipping is not flagged")
	}
	v, ok := got[ReasonAscendVertical]
	if !ok || v.Failed {
		t.Fatalf("expected an ascension violation that is not failed, got %+v", v)
	}
	if v.Family != FamilyAscension || v.Family.String() != "Ascension" {
		t.Fatalf("unexpected family %v", v.Family)
	}
	if v.DataString() != "[speed=1.5 max=0.42]" {
		t.Fatalf("unexpected data %s", v.DataString())
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	w := newWorld()
	w.SetBlock(cube.Pos{0, 66, 0}, block.Stone{})
	w.SetBlock(cube.Pos{0, 70, 0}, block.Ladder{Facing: cube.North})
	e := newWorldEvaluator(t, w)

	samples := []Sample{
		vertical(64, 0.42), vertical(64.42, 0.33), vertical(64.75, 1.5), vertical(66.25, 0),
		vertical(66.25, 0), vertical(66.25, -0.1), vertical(66.15, -0.1), vertical(66.05, -0.3),
	}
	run := func() ([][3]any, kinematics.State) {
		st := kinematics.NewState()
		var out [][3]any
		for _, s := range samples {
			vs, err := e.Evaluate(st, s)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, v := range vs {
				out = append(out, [3]any{v.Reason, v.Position, v.Failed})
			}
		}
		return out, st.Clone()
	}

	a, stA := run()
	b, stB := run()
	if len(a) == 0 {
		t.Fatalf("expected the scenario to produce violations")
	}
	if !reflect.DeepEqual(a, b) || !reflect.DeepEqual(stA, stB) {
		t.Fatalf("expected identical results for identical input:\n%v\n%v", a, b)
	}
}
