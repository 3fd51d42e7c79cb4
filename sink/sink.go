package sink

import (
	"github.com/google/uuid"
	"github.com/oomph-ac/oflight/detection"
)

// Sink receives the violations produced for an entity. HandleViolation may be called from multiple
// goroutines, but never concurrently for the same entity.
type Sink interface {
	HandleViolation(id uuid.UUID, v detection.Violation)
}

// Forgetter is implemented by sinks that keep per-entity data, which is released once the entity is gone.
type Forgetter interface {
	Forget(id uuid.UUID)
}

// Passer is implemented by sinks that forgive an entity over time, for each movement that did not violate
// a family.
type Passer interface {
	Pass(id uuid.UUID, f detection.Family, sub float64)
}

// Nop is a Sink that discards every violation.
type Nop struct{}

func (Nop) HandleViolation(uuid.UUID, detection.Violation) {}

// Multi passes every violation to each of its sinks, in order.
type Multi []Sink

func (m Multi) HandleViolation(id uuid.UUID, v detection.Violation) {
	for _, s := range m {
		s.HandleViolation(id, v)
	}
}

// Forget forgets the entity in every sink that implements Forgetter.
func (m Multi) Forget(id uuid.UUID) {
	for _, s := range m {
		if f, ok := s.(Forgetter); ok {
			f.Forget(id)
		}
	}
}

// Pass passes the family in every sink that implements Passer.
func (m Multi) Pass(id uuid.UUID, f detection.Family, sub float64) {
	for _, s := range m {
		if p, ok := s.(Passer); ok {
			p.Pass(id, f, sub)
		}
	}
}
