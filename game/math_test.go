package game

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestRound64(t *testing.T) {
	if got := Round64(0.02627, 4); got != 0.0263 {
		t.Fatalf("expected 0.0263, got %v", got)
	}
	if got := Round32(1.23456, 2); got != 1.23 {
		t.Fatalf("expected 1.23, got %v", got)
	}
}

func TestFiniteVec64(t *testing.T) {
	cases := []struct {
		v    mgl64.Vec3
		want bool
	}{
		{mgl64.Vec3{1, 2, 3}, true},
		{mgl64.Vec3{math.NaN(), 2, 3}, false},
		{mgl64.Vec3{1, math.Inf(1), 3}, false},
		{mgl64.Vec3{1, 2, math.Inf(-1)}, false},
	}
	for _, c := range cases {
		if got := FiniteVec64(c.v); got != c.want {
			t.Fatalf("FiniteVec64(%v) = %v, want %v", c.v, got, c.want)
		}
	}
}
