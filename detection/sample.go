package detection

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/oflight/game"
	"github.com/oomph-ac/oflight/oerror"
)

// ErrMalformedSample is returned for samples that cannot be evaluated, such as samples containing
// non-finite positions.
var ErrMalformedSample = errors.New("malformed movement sample")

// Sample is the movement of one entity during one tick.
type Sample struct {
	// Tick is the world tick the movement happened in.
	Tick int64

	From mgl64.Vec3
	To   mgl64.Vec3
	// Ground is the last position the entity was known to be on the ground at, if the caller tracks it.
	Ground *mgl64.Vec3

	// OnGround is whether the world considers the entity to be on the ground.
	OnGround bool
	// ClientOnGround is whether the client claimed to be on the ground.
	ClientOnGround bool
	HasVehicle     bool
	JumpBoost      bool

	// Velocity is the magnitude of velocity applied to the entity by the world this tick.
	Velocity float64
}

// VerticalSpeed returns the signed vertical distance of the move.
func (s Sample) VerticalSpeed() float64 {
	return s.To.Y() - s.From.Y()
}

// Validate returns an error wrapping ErrMalformedSample if the sample cannot be evaluated.
func (s Sample) Validate() error {
	if !game.FiniteVec64(s.From) {
		return oerror.New("from %v: %w", s.From, ErrMalformedSample)
	}
	if !game.FiniteVec64(s.To) {
		return oerror.New("to %v: %w", s.To, ErrMalformedSample)
	}
	if s.Ground != nil && !game.FiniteVec64(*s.Ground) {
		return oerror.New("ground %v: %w", *s.Ground, ErrMalformedSample)
	}
	if !game.Finite(s.Velocity) || s.Velocity < 0 {
		return oerror.New("velocity %v: %w", s.Velocity, ErrMalformedSample)
	}
	return nil
}
