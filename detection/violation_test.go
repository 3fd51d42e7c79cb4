package detection

import (
	"testing"

	"github.com/elliotchance/orderedmap/v2"
)

func TestViolationClone(t *testing.T) {
	data := orderedmap.NewOrderedMap[string, any]()
	data.Set("speed", 0.5)
	data.Set("max", 0.42)
	v := Violation{Family: FamilyAscension, Reason: ReasonAscendVertical, Data: data}

	c := v.Clone()
	c.Data.Set("speed", 9.9)
	c.Data.Set("extra", true)

	if v.DataString() != "[speed=0.5 max=0.42]" {
		t.Fatalf("expected the original data to be unchanged, got %s", v.DataString())
	}
	if c.DataString() != "[speed=9.9 max=0.42 extra=true]" {
		t.Fatalf("unexpected cloned data %s", c.DataString())
	}
	if c.Family != v.Family || c.Reason != v.Reason {
		t.Fatalf("expected the clone to keep the violation fields")
	}

	if empty := (Violation{}).Clone(); empty.Data != nil {
		t.Fatalf("expected a violation without data to stay without data")
	}
}
