package kinematics

import "github.com/go-gl/mathgl/mgl64"

// Direction is the vertical direction of a move.
type Direction uint8

const (
	DirectionNeutral Direction = iota
	DirectionAscending
	DirectionDescending
)

func (d Direction) String() string {
	switch d {
	case DirectionAscending:
		return "ascending"
	case DirectionDescending:
		return "descending"
	default:
		return "neutral"
	}
}

// DirectionOf classifies a vertical speed.
func DirectionOf(verticalSpeed float64) Direction {
	switch {
	case verticalSpeed > 0:
		return DirectionAscending
	case verticalSpeed < 0:
		return DirectionDescending
	default:
		return DirectionNeutral
	}
}

const (
	// MaxLadderTime is the ladder signal raised on a tick with a vertical move on a climbable block.
	MaxLadderTime = 8
	// ClimbLadderTime is the ladder time carried into the tick after climbing.
	ClimbLadderTime = 4
)

// State is the vertical movement state of one entity. It is owned by a Store and only mutated while the
// Store holds the lock of the entity.
type State struct {
	VerticalSpeed     float64
	LastVerticalSpeed float64

	// AirTicks is the amount of consecutive ticks the entity has not been on the ground.
	AirTicks int
	// LadderTime decays by one every tick spent off a climbable block, and is within [0, MaxLadderTime].
	LadderTime int

	AscendingMoves  int
	DescendingMoves int

	// SafePosition is the last position confirmed to not have clipped through a block.
	SafePosition *mgl64.Vec3
	// GroundPosition is the last position the entity was on the ground at.
	GroundPosition *mgl64.Vec3

	Direction Direction
	// OnGround is whether the entity was on the ground in the last sample.
	OnGround bool

	// VelocityCurrent and VelocityLast are the magnitudes of velocity applied to the entity by the world,
	// such as knockback or slime bounces.
	VelocityCurrent float64
	VelocityLast    float64
}

// NewState returns the state of an entity that was not seen before.
func NewState() *State {
	return &State{OnGround: true}
}

// ClearVelocity removes any velocity applied by the world.
func (s *State) ClearVelocity() {
	s.VelocityCurrent, s.VelocityLast = 0, 0
}

// SetAscending records an ascending move. Climbing moves do not count towards the streak.
func (s *State) SetAscending(climbing bool) {
	s.DescendingMoves = 0
	if !climbing {
		s.AscendingMoves++
	}
}

// SetDescending records a descending move.
func (s *State) SetDescending() {
	s.AscendingMoves = 0
	s.DescendingMoves++
}

// Land resets the move streaks when the entity is on the ground.
func (s *State) Land() {
	s.AscendingMoves, s.DescendingMoves = 0, 0
}

// DecayLadder lowers the ladder time by one tick, down to zero.
func (s *State) DecayLadder() {
	s.LadderTime = max(s.LadderTime-1, 0)
}

// Clone returns a copy of the state that shares no memory with it.
func (s *State) Clone() State {
	c := *s
	if s.SafePosition != nil {
		p := *s.SafePosition
		c.SafePosition = &p
	}
	if s.GroundPosition != nil {
		p := *s.GroundPosition
		c.GroundPosition = &p
	}
	return c
}
