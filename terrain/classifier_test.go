package terrain

import (
	"testing"

	"github.com/df-mc/dragonfly/server/block"
	"github.com/df-mc/dragonfly/server/block/cube"
	df_world "github.com/df-mc/dragonfly/server/world"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/oflight/world"
)

type panicSource struct{}

func (panicSource) LoadedBlock(cube.Pos) (df_world.Block, bool) {
	panic("chunk decode failed")
}

func TestWorldClassifierPredicates(t *testing.T) {
	w := world.New(nil)
	w.SetBlock(cube.Pos{0, 64, 0}, block.Ladder{Facing: cube.North})
	w.SetBlock(cube.Pos{2, 64, 0}, block.Water{Still: true, Depth: 8})
	w.SetBlock(cube.Pos{4, 64, 0}, block.Slab{Block: block.Stone{}})
	w.SetBlock(cube.Pos{6, 64, 0}, block.Stairs{Block: block.Stone{}, Facing: cube.North})
	w.SetBlock(cube.Pos{8, 64, 0}, block.WoodFence{Wood: block.OakWood()})
	w.SetBlock(cube.Pos{10, 64, 0}, block.Stone{})

	c := NewWorldClassifier(w, nil)
	if !c.OnClimbable(mgl64.Vec3{0.5, 64.2, 0.5}) {
		t.Fatalf("expected ladder to be climbable")
	}
	if c.OnClimbable(mgl64.Vec3{10.5, 65, 0.5}) {
		t.Fatalf("expected air above stone to not be climbable")
	}
	if !c.InLiquid(mgl64.Vec3{2.5, 64.5, 0.5}) {
		t.Fatalf("expected water to be a liquid")
	}
	if !c.OnSlab(mgl64.Vec3{4.5, 64.5, 0.5}) {
		t.Fatalf("expected position on top of a bottom slab to be on a slab")
	}
	if !c.OnStair(mgl64.Vec3{6.5, 65, 0.5}) {
		t.Fatalf("expected position on top of a stair to be on a stair")
	}
	if !c.WalkedOnFence(mgl64.Vec3{8.5, 65.5, 0.5}) {
		t.Fatalf("expected position on top of a fence to have walked on a fence")
	}
	if c.WalkedOnFence(mgl64.Vec3{10.5, 65, 0.5}) {
		t.Fatalf("expected stone to not be treated as a fence")
	}
	if !c.Solid(cube.Pos{10, 64, 0}) {
		t.Fatalf("expected stone to be solid")
	}
	if c.Solid(cube.Pos{0, 64, 0}) || c.Solid(cube.Pos{2, 64, 0}) {
		t.Fatalf("expected ladder and water to be passable")
	}
}

func TestWorldClassifierUnloadedChunk(t *testing.T) {
	w := world.New(nil)
	w.SetBlock(cube.Pos{0, 64, 0}, block.Stone{})

	c := NewWorldClassifier(w, nil)
	far := mgl64.Vec3{1000.5, 64, 1000.5}
	if c.Solid(cube.PosFromVec3(far)) || c.InLiquid(far) || c.OnClimbable(far) || c.OnSlab(far) || c.OnStair(far) || c.WalkedOnFence(far) {
		t.Fatalf("expected every predicate to be false inside an unloaded chunk")
	}
}

func TestWorldClassifierRecoversFromPanics(t *testing.T) {
	c := NewWorldClassifier(panicSource{}, nil)
	if c.Solid(cube.Pos{0, 64, 0}) || c.OnClimbable(mgl64.Vec3{0, 64, 0}) {
		t.Fatalf("expected panicking lookups to degrade to false")
	}
}
