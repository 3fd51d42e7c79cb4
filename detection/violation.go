package detection

import (
	"github.com/elliotchance/orderedmap/v2"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/oflight/settings"
	"github.com/oomph-ac/oflight/utils"
)

// Family is a category of vertical movement detection.
type Family uint8

const (
	FamilyHover Family = iota
	FamilyFastLadder
	FamilyVerticalClip
	FamilyJesus
	FamilyAscension
	FamilyGlide
)

// Families lists every family, in the order their rules are run.
var Families = []Family{FamilyHover, FamilyFastLadder, FamilyVerticalClip, FamilyJesus, FamilyAscension, FamilyGlide}

// String returns the display name of the family.
func (f Family) String() string {
	switch f {
	case FamilyHover:
		return "Hover"
	case FamilyFastLadder:
		return "FastLadder"
	case FamilyVerticalClip:
		return "VerticalClip"
	case FamilyJesus:
		return "Jesus"
	case FamilyAscension:
		return "Ascension"
	case FamilyGlide:
		return "Glide"
	default:
		return "Unknown"
	}
}

// Setting returns the name the family is configured under.
func (f Family) Setting() string {
	switch f {
	case FamilyHover:
		return settings.FamilyHover
	case FamilyFastLadder:
		return settings.FamilyFastLadder
	case FamilyVerticalClip:
		return settings.FamilyVerticalClip
	case FamilyJesus:
		return settings.FamilyJesus
	case FamilyAscension:
		return settings.FamilyAscension
	case FamilyGlide:
		return settings.FamilyGlide
	default:
		return ""
	}
}

// Reason codes of violations. These are stable and used for telemetry and punishment policies.
const (
	ReasonHover             = "hover"
	ReasonLadderAscend      = "ladder_ascend"
	ReasonLadderInstant     = "ladder_instant"
	ReasonLadderDescend     = "ladder_descend"
	ReasonClipSolid         = "vclip_solid"
	ReasonLiquidGround      = "ccground_liquid"
	ReasonAscendDistance    = "ascending_distance"
	ReasonAscendTime        = "ascending_time"
	ReasonAscendVertical    = "ascending_vertical"
	ReasonDescendDifference = "descend_difference"
	ReasonDescendExpected   = "descend_expected"
)

// Violation is a flag raised by one detection family for one sample.
type Violation struct {
	Family Family
	Reason string
	// Message is a short human readable description of the violation.
	Message string
	// Position is where the entity should be placed if the violation is reverted.
	Position mgl64.Vec3
	// Failed is whether the family is configured to have its violations reverted.
	Failed bool
	Tick   int64

	// Data holds the values that triggered the violation, in the order they were recorded. The same map is
	// handed to every sink and must be treated as read-only; use Clone to obtain a copy that may be changed.
	Data *orderedmap.OrderedMap[string, any]
}

// Clone returns a copy of the violation that does not share its data with v.
func (v Violation) Clone() Violation {
	if v.Data == nil {
		return v
	}
	data := orderedmap.NewOrderedMap[string, any]()
	for _, key := range v.Data.Keys() {
		val, _ := v.Data.Get(key)
		data.Set(key, val)
	}
	v.Data = data
	return v
}

// DataString formats the data of the violation as "[key=value ...]".
func (v Violation) DataString() string {
	return utils.OrderedMapToString(v.Data)
}
