package settings

import (
	"errors"
	"math"
	"slices"

	"github.com/oomph-ac/oflight/game"
	"github.com/oomph-ac/oflight/oerror"
)

// Names of the numeric thresholds used by the flight detections.
const (
	OptionAscendLadder   = "ascend-ladder"
	OptionDescendLadder  = "descend-ladder"
	OptionMaxJump        = "max-jump"
	OptionMaxHoverTime   = "max-hover-time"
	OptionAscendDistance = "ascend-distance"
	OptionAscendTime     = "ascend-time"
)

// Options lists every threshold that must be configured before the first evaluation.
var Options = []string{
	OptionAscendLadder,
	OptionDescendLadder,
	OptionMaxJump,
	OptionMaxHoverTime,
	OptionAscendDistance,
	OptionAscendTime,
}

// Names of the detection families that can be configured.
const (
	FamilyHover        = "hover"
	FamilyFastLadder   = "fast-ladder"
	FamilyVerticalClip = "vertical-clip"
	FamilyJesus        = "jesus"
	FamilyAscension    = "ascension"
	FamilyGlide        = "glide"
)

// Families lists every configurable detection family.
var Families = []string{FamilyHover, FamilyFastLadder, FamilyVerticalClip, FamilyJesus, FamilyAscension, FamilyGlide}

var (
	// ErrMissingOption is returned when a threshold is absent from a configuration file.
	ErrMissingOption = errors.New("missing threshold")
	// ErrInvalidOption is returned when a threshold or family setting has an unusable value.
	ErrInvalidOption = errors.New("invalid setting")
)

// Thresholds are the numeric limits the flight detections are evaluated against.
type Thresholds struct {
	// AscendLadder is the maximum vertical speed while climbing up a ladder.
	AscendLadder float64 `toml:"ascend-ladder" yaml:"ascend-ladder"`
	// DescendLadder is the maximum vertical speed while sliding down a ladder.
	DescendLadder float64 `toml:"descend-ladder" yaml:"descend-ladder"`
	// MaxJump is the maximum vertical speed of a jump without jump boost.
	MaxJump float64 `toml:"max-jump" yaml:"max-jump"`
	// MaxHoverTime is the amount of air ticks allowed without any vertical movement.
	MaxHoverTime int `toml:"max-hover-time" yaml:"max-hover-time"`
	// AscendDistance is the maximum height that may be gained without touching the ground.
	AscendDistance float64 `toml:"ascend-distance" yaml:"ascend-distance"`
	// AscendTime is the maximum amount of consecutive ascending moves.
	AscendTime int `toml:"ascend-time" yaml:"ascend-time"`
}

// Basics are the basic settings for a detection family.
type Basics struct {
	// Enabled is whether the family should be evaluated at all.
	Enabled bool `toml:"enabled" yaml:"enabled"`
	// Cancel is whether violations of the family should be reverted by the caller.
	Cancel bool `toml:"cancel" yaml:"cancel"`
	// Punishable is whether reaching MaxViolations should trigger a punishment.
	Punishable bool `toml:"punishable" yaml:"punishable"`
	// MaxViolations is the amount of violations until a punishment is issued for the family.
	MaxViolations float64 `toml:"max-violations" yaml:"max-violations"`
	// FailBuffer is the buffer required before a flag counts as a violation.
	FailBuffer float64 `toml:"fail-buffer" yaml:"fail-buffer"`
	// MaxBuffer is the cap of the buffer.
	MaxBuffer float64 `toml:"max-buffer" yaml:"max-buffer"`
	// TrustDuration is the amount of ticks needed without flags before a violation weighs fully again.
	// Zero or less makes every violation count as one.
	TrustDuration int64 `toml:"trust-duration" yaml:"trust-duration"`
}

// Settings contains all settings of the flight detections. A Settings value handed out by a Provider must
// never be modified.
type Settings struct {
	Thresholds Thresholds
	Checks     map[string]Basics
}

// DefaultSettings returns the default settings for all detections.
func DefaultSettings() Settings {
	s := Settings{
		Thresholds: Thresholds{
			AscendLadder:   0.1176,
			DescendLadder:  0.151,
			MaxJump:        0.42,
			MaxHoverTime:   6,
			AscendDistance: 1.5,
			AscendTime:     7,
		},
		Checks: make(map[string]Basics, len(Families)),
	}

	basics := Basics{Enabled: true, Cancel: true, Punishable: true, MaxViolations: 15, FailBuffer: 1, MaxBuffer: 4, TrustDuration: 30 * game.TicksPerSecond}
	for _, f := range Families {
		s.Checks[f] = basics
	}

	glide := basics
	glide.FailBuffer, glide.MaxBuffer = 3, 6
	s.Checks[FamilyGlide] = glide

	hover := basics
	hover.MaxViolations = 10
	s.Checks[FamilyHover] = hover

	clip := basics
	clip.MaxViolations, clip.FailBuffer, clip.MaxBuffer = 5, 1, 1
	s.Checks[FamilyVerticalClip] = clip
	return s
}

// Check returns the basic settings of the family passed. Unknown families are disabled.
func (s *Settings) Check(family string) Basics {
	return s.Checks[family]
}

// Value returns the threshold with the name passed.
func (s *Settings) Value(option string) (float64, bool) {
	t := s.Thresholds
	switch option {
	case OptionAscendLadder:
		return t.AscendLadder, true
	case OptionDescendLadder:
		return t.DescendLadder, true
	case OptionMaxJump:
		return t.MaxJump, true
	case OptionMaxHoverTime:
		return float64(t.MaxHoverTime), true
	case OptionAscendDistance:
		return t.AscendDistance, true
	case OptionAscendTime:
		return float64(t.AscendTime), true
	}
	return 0, false
}

// Validate returns an error if any of the settings cannot be used for evaluation.
func (s *Settings) Validate() error {
	for _, option := range Options {
		v, _ := s.Value(option)
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return oerror.New("%s = %v: %w", option, v, ErrInvalidOption)
		}
	}
	if s.Thresholds.MaxHoverTime < 1 {
		return oerror.New("%s must be at least 1: %w", OptionMaxHoverTime, ErrInvalidOption)
	}
	for family, b := range s.Checks {
		if !slices.Contains(Families, family) {
			return oerror.New("unknown detection family %q: %w", family, ErrInvalidOption)
		}
		if b.MaxBuffer < b.FailBuffer {
			return oerror.New("%s: max-buffer %v is below fail-buffer %v: %w", family, b.MaxBuffer, b.FailBuffer, ErrInvalidOption)
		}
	}
	return nil
}

// clone returns a deep copy of the settings.
func (s Settings) clone() Settings {
	checks := make(map[string]Basics, len(s.Checks))
	for k, v := range s.Checks {
		checks[k] = v
	}
	s.Checks = checks
	return s
}
