package terrain

import (
	"log/slog"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/go-gl/mathgl/mgl64"
)

// Classifier answers questions about the terrain around a position. Implementations never fail: when the
// underlying data is unavailable every predicate returns false.
type Classifier interface {
	// OnSlab returns true if the position is standing on or inside a slab.
	OnSlab(pos mgl64.Vec3) bool
	// OnStair returns true if the position is standing on or inside a stair.
	OnStair(pos mgl64.Vec3) bool
	// InLiquid returns true if the position is inside a liquid.
	InLiquid(pos mgl64.Vec3) bool
	// OnClimbable returns true if the position is inside a ladder, vine or other climbable block.
	OnClimbable(pos mgl64.Vec3) bool
	// WalkedOnFence returns true if the position is resting on top of a fence or wall.
	WalkedOnFence(pos mgl64.Vec3) bool
	// Solid returns true if the block at the position cannot be passed through.
	Solid(pos cube.Pos) bool
}

// Source provides blocks to a WorldClassifier. LoadedBlock returns false when the block is not available,
// for instance because the chunk it is in was never sent.
type Source interface {
	LoadedBlock(pos cube.Pos) (world.Block, bool)
}

// WorldClassifier is a Classifier backed by a block Source.
type WorldClassifier struct {
	src Source
	log *slog.Logger
}

var _ Classifier = (*WorldClassifier)(nil)

func NewWorldClassifier(src Source, log *slog.Logger) *WorldClassifier {
	if log == nil {
		log = slog.Default()
	}
	return &WorldClassifier{src: src, log: log}
}

func (c *WorldClassifier) OnSlab(pos mgl64.Vec3) bool {
	return c.any(pos, BlockSlab, 0, -0.5, -1)
}

func (c *WorldClassifier) OnStair(pos mgl64.Vec3) bool {
	return c.any(pos, BlockStair, 0, -0.5, -1)
}

func (c *WorldClassifier) InLiquid(pos mgl64.Vec3) bool {
	return c.any(pos, BlockLiquid, 0)
}

func (c *WorldClassifier) OnClimbable(pos mgl64.Vec3) bool {
	return c.any(pos, BlockClimbable, 0)
}

// WalkedOnFence checks below the feet for the extra half block of a fence's collision box.
func (c *WorldClassifier) WalkedOnFence(pos mgl64.Vec3) bool {
	return c.any(pos, BlockFence, -0.5, -1)
}

func (c *WorldClassifier) Solid(pos cube.Pos) bool {
	return c.test(pos, BlockSolid)
}

// any returns true if the predicate holds for the block at any of the vertical offsets from pos.
func (c *WorldClassifier) any(pos mgl64.Vec3, pred func(world.Block) bool, offsets ...float64) bool {
	for _, off := range offsets {
		if c.test(cube.PosFromVec3(pos.Add(mgl64.Vec3{0, off})), pred) {
			return true
		}
	}
	return false
}

func (c *WorldClassifier) test(pos cube.Pos, pred func(world.Block) bool) (ok bool) {
	defer func() {
		if err := recover(); err != nil {
			c.log.Error("terrain lookup panicked", "pos", pos, "err", err)
			ok = false
		}
	}()

	b, loaded := c.src.LoadedBlock(pos)
	if !loaded || b == nil {
		return false
	}
	return pred(b)
}
