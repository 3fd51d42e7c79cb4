package sink

import (
	"github.com/google/uuid"
	"github.com/oomph-ac/oflight/detection"
	"github.com/oomph-ac/oflight/game"
	"github.com/sandertv/gophertunnel/minecraft/text"
)

// AlertPrefix is prepended to every alert sent to staff.
var AlertPrefix = text.Colourf("<bold><italic><red>oflight »</red></italic></bold>")

// Alert formats violations into chat messages and broadcasts them, typically to online staff.
type Alert struct {
	broadcast func(msg string)
	name      func(id uuid.UUID) string
}

// NewAlert returns an Alert passing messages to broadcast. name resolves the display name of an entity,
// and may be nil to display the UUID instead.
func NewAlert(broadcast func(msg string), name func(id uuid.UUID) string) *Alert {
	if name == nil {
		name = func(id uuid.UUID) string { return id.String() }
	}
	return &Alert{broadcast: broadcast, name: name}
}

func (a *Alert) HandleViolation(id uuid.UUID, v detection.Violation) {
	a.broadcast(a.Format(id, v))
}

// Format returns the alert message for a violation.
func (a *Alert) Format(id uuid.UUID, v detection.Violation) string {
	pos := v.Position
	return AlertPrefix + " " + text.Colourf(
		"<grey>%s</grey> <yellow>flagged</yellow> <red>%s</red> <grey>(%s) at %.1f, %.1f, %.1f</grey> <purple>%s</purple>",
		a.name(id), v.Family, v.Reason, game.Round32(float32(pos.X()), 1), game.Round32(float32(pos.Y()), 1), game.Round32(float32(pos.Z()), 1), v.DataString(),
	)
}
