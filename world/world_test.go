package world

import (
	"testing"

	"github.com/df-mc/dragonfly/server/block"
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/sandertv/gophertunnel/minecraft/protocol"
)

func TestLoadedBlock(t *testing.T) {
	w := New(nil)
	if _, ok := w.LoadedBlock(cube.Pos{0, 64, 0}); ok {
		t.Fatalf("expected unloaded chunk to report not loaded")
	}

	w.SetBlock(cube.Pos{1, 64, 1}, block.Stone{})
	b, ok := w.LoadedBlock(cube.Pos{1, 64, 1})
	if !ok {
		t.Fatalf("expected SetBlock to load the chunk")
	}
	if _, isStone := b.(block.Stone); !isStone {
		t.Fatalf("expected stone, got %T", b)
	}

	b, ok = w.LoadedBlock(cube.Pos{2, 64, 2})
	if !ok {
		t.Fatalf("expected neighbouring block in the same chunk to be loaded")
	}
	if _, isAir := b.(block.Air); !isAir {
		t.Fatalf("expected air, got %T", b)
	}

	w.SetBlock(cube.Pos{1, 64, 1}, block.Air{})
	if _, isAir := w.Block(cube.Pos{1, 64, 1}).(block.Air); !isAir {
		t.Fatalf("expected air after clearing the block")
	}
}

func TestChunkPosOfNegative(t *testing.T) {
	if got := ChunkPosOf(cube.Pos{-1, 0, -17}); got != (protocol.ChunkPos{-1, -2}) {
		t.Fatalf("unexpected chunk position %v", got)
	}
}

func TestCleanChunks(t *testing.T) {
	w := New(nil)
	w.AddChunk(protocol.ChunkPos{0, 0})
	w.AddChunk(protocol.ChunkPos{2, 0})
	w.AddChunk(protocol.ChunkPos{10, 10})

	w.CleanChunks(4, protocol.ChunkPos{1, 0})
	if !w.ChunkLoaded(protocol.ChunkPos{0, 0}) || !w.ChunkLoaded(protocol.ChunkPos{2, 0}) {
		t.Fatalf("expected nearby chunks to stay loaded")
	}
	if w.ChunkLoaded(protocol.ChunkPos{10, 10}) {
		t.Fatalf("expected far chunk to be removed")
	}

	w.PurgeChunks()
	if w.ChunkLoaded(protocol.ChunkPos{0, 0}) {
		t.Fatalf("expected purge to unload every chunk")
	}
}
