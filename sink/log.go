package sink

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/oomph-ac/oflight/detection"
	"github.com/oomph-ac/oflight/game"
)

// Log writes every violation to a logger as a warning.
type Log struct {
	log *slog.Logger
}

func NewLog(log *slog.Logger) *Log {
	if log == nil {
		log = slog.Default()
	}
	return &Log{log: log}
}

func (l *Log) HandleViolation(id uuid.UUID, v detection.Violation) {
	l.log.Warn(v.Message,
		"entity", id.String(),
		"family", v.Family.String(),
		"reason", v.Reason,
		"tick", v.Tick,
		"pos", game.RoundVec64(v.Position, 2),
		"failed", v.Failed,
		"data", v.DataString(),
	)
}
