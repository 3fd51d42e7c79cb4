package detection

import (
	"math"

	"github.com/df-mc/dragonfly/server/block/cube"
	df_world "github.com/df-mc/dragonfly/server/world"
	"github.com/oomph-ac/oflight/assert"
	"github.com/oomph-ac/oflight/game"
	"github.com/oomph-ac/oflight/kinematics"
)

const (
	// fastLadderAirTicks is the amount of air ticks required before ladder speeds are checked.
	fastLadderAirTicks = 20
	// instantLadderMargin is the excess over the ladder ascend speed that flags immediately.
	instantLadderMargin = 1.0
	// clipSpeed is the minimum upwards speed of a move before its column is checked for solid blocks.
	clipSpeed = 0.99
	// ladderGrace is the highest ladder time at which ascents and descents are checked.
	ladderGrace = 2

	glideMinDistance = 1.6
	glideMinMoves    = 2
	glideMaxDiff     = 0.02
	glideMinDiff     = 0.001
)

type rule struct {
	family Family
	check  func(e *Evaluator, m *move)
}

// rules are run in order for every sample.
var rules = []rule{
	{FamilyHover, (*Evaluator).hover},
	{FamilyFastLadder, (*Evaluator).fastLadder},
	{FamilyVerticalClip, (*Evaluator).verticalClip},
	{FamilyJesus, (*Evaluator).jesus},
	{FamilyAscension, (*Evaluator).ascension},
	{FamilyGlide, (*Evaluator).glide},
}

// hover flags entities that keep the exact same height mid-air, which gravity never allows.
func (e *Evaluator) hover(m *move) {
	st := m.state
	if m.wasOnGround || m.sample.HasVehicle {
		return
	}
	if st.LastVerticalSpeed != 0 || st.VerticalSpeed != 0 {
		return
	}

	maxHover := m.cfg.Thresholds.MaxHoverTime
	if st.AirTicks >= maxHover {
		m.flag(FamilyHover, ReasonHover, "hovering off the ground", m.sample.From,
			"airTicks", st.AirTicks,
			"max", maxHover,
		)
	}
}

// fastLadder flags climbing faster than a ladder allows.
func (e *Evaluator) fastLadder(m *move) {
	if !m.verticalMove() || !m.climbing {
		return
	}

	st, t := m.state, m.cfg.Thresholds
	inAir := st.AirTicks >= fastLadderAirTicks && m.ladderSignal == kinematics.MaxLadderTime
	ascending := m.direction == kinematics.DirectionAscending

	if ascending && inAir && st.VerticalSpeed > t.AscendLadder {
		m.flag(FamilyFastLadder, ReasonLadderAscend, "ascending too fast", m.sample.From,
			"speed", game.Round64(st.VerticalSpeed, 4),
			"max", t.AscendLadder,
		)
	}

	// An instant ladder teleports the entity up on the very first climbing tick, before the air ticks
	// required above were ever reached.
	if ascending && st.VerticalSpeed-t.AscendLadder > instantLadderMargin {
		m.flag(FamilyFastLadder, ReasonLadderInstant, "ascending too fast", m.sample.From,
			"speed", game.Round64(st.VerticalSpeed, 4),
			"max", t.AscendLadder+instantLadderMargin,
		)
	}

	if !ascending && inAir && -st.VerticalSpeed > t.DescendLadder {
		m.flag(FamilyFastLadder, ReasonLadderDescend, "descending too fast", m.sample.From,
			"speed", game.Round64(-st.VerticalSpeed, 4),
			"max", t.DescendLadder,
		)
	}
}

// verticalClip flags fast upwards moves that passed through a solid block, and otherwise advances the safe
// position of the entity.
func (e *Evaluator) verticalClip(m *move) {
	if !m.verticalMove() {
		return
	}

	// The state is only written once the scan completed.
	st, to := m.state, m.sample.To
	safe := m.sample.From
	if st.SafePosition != nil {
		safe = *st.SafePosition
	}
	clipped := false
	if st.VerticalSpeed >= clipSpeed {
		r := df_world.Overworld.Range()
		column := cube.PosFromVec3(to)
		safeY := int(math.Floor(safe.Y()))
		minY, maxY := max(min(safeY, column.Y()), r.Min()), min(max(safeY, column.Y()), r.Max())
		for y := minY; y <= maxY; y++ {
			pos := cube.Pos{column.X(), y, column.Z()}
			if !e.predicate(func() bool { return e.terrain.Solid(pos) }) {
				continue
			}
			clipped = m.flag(FamilyVerticalClip, ReasonClipSolid, "clipped through a solid block", safe,
				"block", pos,
				"speed", game.Round64(st.VerticalSpeed, 4),
			)
			break
		}
	}

	if clipped {
		st.SafePosition = &safe
	} else {
		st.SafePosition = &to
	}
}

// jesus flags clients claiming to stand on a liquid while moving up out of it.
func (e *Evaluator) jesus(m *move) {
	if !m.verticalMove() || m.sample.OnGround || !m.inLiquid {
		return
	}
	if m.sample.ClientOnGround && m.state.VerticalSpeed > 0 {
		m.flag(FamilyJesus, ReasonLiquidGround, "walking on water", m.sample.From,
			"speed", game.Round64(m.state.VerticalSpeed, 4),
		)
	}
}

// ascension flags ascents that are too high, too long or too fast.
func (e *Evaluator) ascension(m *move) {
	if !m.validVerticalMove() || m.direction != kinematics.DirectionAscending || m.prevLadderTime > ladderGrace {
		return
	}
	to := m.sample.To
	if e.predicate(func() bool { return e.terrain.WalkedOnFence(to) }) {
		return
	}

	st, t := m.state, m.cfg.Thresholds
	distance := math.Abs(to.Y() - m.ground.Y())
	if distance >= t.AscendDistance {
		m.flag(FamilyAscension, ReasonAscendDistance, "ascending too high", m.sample.From,
			"distance", game.Round64(distance, 4),
			"max", t.AscendDistance,
		)
	}

	if st.AscendingMoves > t.AscendTime {
		m.flag(FamilyAscension, ReasonAscendTime, "ascending for too long", m.sample.From,
			"moves", st.AscendingMoves,
			"max", t.AscendTime,
		)
	}

	if limit := maxJump(m); st.VerticalSpeed > limit {
		m.flag(FamilyAscension, ReasonAscendVertical, "ascending too fast", m.sample.From,
			"speed", game.Round64(st.VerticalSpeed, 4),
			"max", game.Round64(limit, 4),
		)
	}
}

// maxJump returns the highest vertical speed the entity may ascend with this tick. Velocity applied by the
// world does not raise it.
func maxJump(m *move) float64 {
	limit := m.cfg.Thresholds.MaxJump
	if m.sample.JumpBoost {
		limit += game.JumpBoostBonus
	}
	return limit
}

// glide flags descents that do not accelerate the way gravity does.
func (e *Evaluator) glide(m *move) {
	if !m.validVerticalMove() || m.direction != kinematics.DirectionDescending || m.prevLadderTime > ladderGrace {
		return
	}

	st := m.state
	delta := math.Abs(st.VerticalSpeed - st.LastVerticalSpeed)
	if delta == 0 {
		m.flag(FamilyGlide, ReasonDescendDifference, "vertical speed not changing", m.sample.From,
			"speed", game.Round64(st.VerticalSpeed, 4),
		)
	}

	// Short drops and the first ticks of a fall vary too much to be compared.
	distance := math.Abs(m.sample.To.Y() - m.ground.Y())
	if distance <= glideMinDistance || st.DescendingMoves <= glideMinMoves {
		return
	}
	expected := ExpectedGlideDelta(st.AirTicks)
	assert.IsTrue(game.Finite(expected), "expected glide delta after %d air ticks is not finite", st.AirTicks)
	if diff := math.Abs(delta - expected); diff > glideMaxDiff || diff < glideMinDiff {
		m.flag(FamilyGlide, ReasonDescendExpected, "vertical speed not expected", m.sample.From,
			"delta", game.Round64(delta, 5),
			"expected", game.Round64(expected, 5),
			"airTicks", st.AirTicks,
		)
	}
}

// ExpectedGlideDelta returns the expected change in vertical speed between two ticks of a fall, after the
// amount of air ticks passed. The coefficients are fitted to recorded falls.
func ExpectedGlideDelta(airTicks int) float64 {
	t := float64(airTicks)
	if airTicks > 100 {
		return -9.908e-7*t*t + 3.4538e-7*t + 0.0189
	}
	return 5.4246e-6*t*t - 0.0011*t + 0.0659
}
