package world

import (
	"log/slog"
	"math"

	"github.com/df-mc/dragonfly/server/block"
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/sandertv/gophertunnel/minecraft/protocol"
	"github.com/sasha-s/go-deadlock"
)

// World is a chunk-partitioned view of the blocks surrounding tracked entities. Only chunks that were
// added to the world are considered loaded; lookups inside unloaded chunks report so to the caller.
type World struct {
	lastCleanPos protocol.ChunkPos

	chunks map[protocol.ChunkPos]map[cube.Pos]world.Block

	logger *slog.Logger

	deadlock.RWMutex
}

func New(logger *slog.Logger) *World {
	if logger == nil {
		logger = slog.Default()
	}
	return &World{
		chunks: make(map[protocol.ChunkPos]map[cube.Pos]world.Block),
		logger: logger,
	}
}

// ChunkPosOf returns the position of the chunk the block position is in.
func ChunkPosOf(pos cube.Pos) protocol.ChunkPos {
	return protocol.ChunkPos{int32(pos[0]) >> 4, int32(pos[2]) >> 4}
}

// AddChunk marks the chunk as loaded. Any blocks previously set in the chunk are discarded.
func (w *World) AddChunk(chunkPos protocol.ChunkPos) {
	w.Lock()
	defer w.Unlock()

	w.chunks[chunkPos] = make(map[cube.Pos]world.Block)
}

// RemoveChunk unloads the chunk at the position passed.
func (w *World) RemoveChunk(chunkPos protocol.ChunkPos) {
	w.Lock()
	defer w.Unlock()

	delete(w.chunks, chunkPos)
}

// ChunkLoaded returns true if the chunk at the position passed is loaded.
func (w *World) ChunkLoaded(chunkPos protocol.ChunkPos) bool {
	w.RLock()
	defer w.RUnlock()

	_, ok := w.chunks[chunkPos]
	return ok
}

// SetBlock sets the block at the position passed, loading the chunk it is in if needed. Air is stored
// as the absence of a block.
func (w *World) SetBlock(pos cube.Pos, b world.Block) {
	if pos.OutOfBounds(world.Overworld.Range()) {
		return
	}
	chunkPos := ChunkPosOf(pos)

	w.Lock()
	defer w.Unlock()

	c, ok := w.chunks[chunkPos]
	if !ok {
		c = make(map[cube.Pos]world.Block)
		w.chunks[chunkPos] = c
	}
	if _, isAir := b.(block.Air); isAir || b == nil {
		delete(c, pos)
		return
	}
	c[pos] = b
}

// Block returns the block at the position passed. Air is returned for unloaded chunks.
func (w *World) Block(pos cube.Pos) world.Block {
	b, _ := w.LoadedBlock(pos)
	return b
}

// LoadedBlock returns the block at the position passed, and false if the chunk it is in is not
// loaded. Positions outside the world's height range are air inside loaded chunks.
func (w *World) LoadedBlock(pos cube.Pos) (world.Block, bool) {
	w.RLock()
	defer w.RUnlock()

	c, ok := w.chunks[ChunkPosOf(pos)]
	if !ok {
		return block.Air{}, false
	}
	if pos.OutOfBounds(world.Overworld.Range()) {
		return block.Air{}, true
	}
	if b, found := c[pos]; found {
		return b, true
	}
	return block.Air{}, true
}

// CleanChunks removes the chunks outside the given radius of the chunk position.
func (w *World) CleanChunks(radius int32, pos protocol.ChunkPos) {
	w.Lock()
	defer w.Unlock()

	if pos == w.lastCleanPos {
		return
	}
	w.lastCleanPos = pos

	for chunkPos := range w.chunks {
		if chunkInRange(radius, chunkPos, pos) {
			continue
		}
		delete(w.chunks, chunkPos)
		w.logger.Debug("removed out of range chunk", "chunkPos", chunkPos, "radius", radius, "pos", pos)
	}
}

// PurgeChunks removes all chunks from the world.
func (w *World) PurgeChunks() {
	w.Lock()
	defer w.Unlock()

	clear(w.chunks)
}

// chunkInRange returns true if the chunk position is within the given radius of the chunk position.
func chunkInRange(radius int32, chunkPos, pos protocol.ChunkPos) bool {
	diffX, diffZ := float64(pos[0]-chunkPos[0]), float64(pos[1]-chunkPos[1])
	dist := math.Sqrt(diffX*diffX + diffZ*diffZ)

	return int32(dist) <= radius
}
