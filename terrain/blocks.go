package terrain

import (
	"github.com/df-mc/dragonfly/server/block"
	"github.com/df-mc/dragonfly/server/block/model"
	"github.com/df-mc/dragonfly/server/world"
)

// BlockName returns the name of the block.
func BlockName(b world.Block) string {
	n, _ := b.EncodeBlock()
	return n
}

// BlockClimbable returns whether the given block is climbable.
func BlockClimbable(b world.Block) bool {
	switch b.(type) {
	case block.Ladder:
		return true
	}

	switch BlockName(b) {
	case "minecraft:vine", "minecraft:cave_vines", "minecraft:cave_vines_body_with_berries", "minecraft:cave_vines_head_with_berries",
		"minecraft:twisting_vines", "minecraft:weeping_vines", "minecraft:scaffolding":
		return true
	default:
		return false
	}
}

// BlockLiquid returns true if the block is a liquid.
func BlockLiquid(b world.Block) bool {
	_, ok := b.(world.Liquid)
	return ok
}

// BlockSlab returns true if the block is a single (non-double) slab.
func BlockSlab(b world.Block) bool {
	m, ok := b.Model().(model.Slab)
	return ok && !m.Double
}

// BlockStair returns true if the block is a stair.
func BlockStair(b world.Block) bool {
	_, ok := b.Model().(model.Stair)
	return ok
}

// BlockFence returns true if the block has a fence-height collision box, which includes walls.
func BlockFence(b world.Block) bool {
	switch b.Model().(type) {
	case model.Fence, model.FenceGate, model.Wall:
		return true
	default:
		return false
	}
}

// BlockSolid returns true if an entity cannot pass through the block vertically.
func BlockSolid(b world.Block) bool {
	switch b.Model().(type) {
	case model.Solid, model.Slab, model.Stair, model.Fence, model.Wall:
		return true
	default:
		return false
	}
}
