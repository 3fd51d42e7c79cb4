package sink

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"
	"github.com/oomph-ac/oflight/detection"
	"github.com/oomph-ac/oflight/game"
	"github.com/oomph-ac/oflight/settings"
	"github.com/sasha-s/go-deadlock"
)

// Metadata is the accumulated standing of an entity for one detection family.
type Metadata struct {
	Violations float64
	Buffer     float64
	// LastFlagged is the tick of the last violation that counted towards Violations.
	LastFlagged int64

	counted bool
}

// Punisher is called when an entity reaches the maximum violations of a punishable family.
type Punisher func(id uuid.UUID, f detection.Family, violations float64)

// Aggregator accumulates violations into violation levels per entity and family. A violation first fills
// the buffer of its family, and only counts once the buffer reaches the fail buffer. Violations that
// follow each other closely weigh more than violations spread out over the trust duration.
type Aggregator struct {
	settings settings.Provider
	log      *slog.Logger
	punish   Punisher

	mu       deadlock.Mutex
	metadata map[uuid.UUID]map[detection.Family]*Metadata
}

// NewAggregator returns an Aggregator. punish may be nil if entities are never punished.
func NewAggregator(p settings.Provider, punish Punisher, log *slog.Logger) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	return &Aggregator{
		settings: p,
		log:      log,
		punish:   punish,
		metadata: make(map[uuid.UUID]map[detection.Family]*Metadata),
	}
}

func (a *Aggregator) HandleViolation(id uuid.UUID, v detection.Violation) {
	b := a.settings.Load().Check(v.Family.Setting())

	a.mu.Lock()
	m := a.entry(id, v.Family)
	m.Buffer = math.Min(m.Buffer+1, b.MaxBuffer)
	if m.Buffer < b.FailBuffer {
		a.mu.Unlock()
		return
	}

	// The first violation to count always weighs one.
	if b.TrustDuration > 0 && m.counted {
		m.Violations += math.Max(0, float64(b.TrustDuration)-float64(v.Tick-m.LastFlagged)) / float64(b.TrustDuration)
	} else {
		m.Violations++
	}
	m.LastFlagged, m.counted = v.Tick, true
	violations := m.Violations

	punish := b.Punishable && a.punish != nil && violations >= b.MaxViolations
	if punish {
		delete(a.metadata[id], v.Family)
	}
	a.mu.Unlock()

	if violations >= 0.5 {
		a.log.Warn(fmt.Sprintf("%s flagged %s (%s) <x%f> %s", id, v.Family, v.Reason, game.Round64(violations, 2), v.DataString()))
	}
	if punish {
		a.log.Warn(fmt.Sprintf("%s reached the maximum violations for %s", id, v.Family))
		a.punish(id, v.Family, violations)
	}
}

// Pass lowers the buffer of a family after a movement that did not violate it.
func (a *Aggregator) Pass(id uuid.UUID, f detection.Family, sub float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if families, ok := a.metadata[id]; ok {
		if m, ok := families[f]; ok {
			m.Buffer = math.Max(0, m.Buffer-sub)
		}
	}
}

// Metadata returns a copy of the standing of an entity for a family.
func (a *Aggregator) Metadata(id uuid.UUID, f detection.Family) (Metadata, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if m, ok := a.metadata[id][f]; ok {
		return *m, true
	}
	return Metadata{}, false
}

// Forget removes all standing of an entity.
func (a *Aggregator) Forget(id uuid.UUID) {
	a.mu.Lock()
	delete(a.metadata, id)
	a.mu.Unlock()
}

func (a *Aggregator) entry(id uuid.UUID, f detection.Family) *Metadata {
	families, ok := a.metadata[id]
	if !ok {
		families = make(map[detection.Family]*Metadata)
		a.metadata[id] = families
	}
	m, ok := families[f]
	if !ok {
		m = &Metadata{}
		families[f] = m
	}
	return m
}
