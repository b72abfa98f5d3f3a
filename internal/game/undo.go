package game

import (
	"automancy.dev/internal/coord"
	"automancy.dev/internal/data"
)

// undoOp is the inverse of one applied map mutation.
type undoOp interface{ isUndoOp() }

// undoRemove undoes a PlaceTile.
type undoRemove struct {
	coord coord.TileCoord
}

// undoPlace undoes a RemoveTile; it restores the tile with its data.
type undoPlace struct {
	coord coord.TileCoord
	id    data.TileId
	data  data.DataMap
}

// undoWrite undoes a WriteData; absent means the key did not exist.
type undoWrite struct {
	coord  coord.TileCoord
	key    data.Id
	old    data.Data
	absent bool
}

// undoMove undoes a MoveRegion by moving the region back.
type undoMove struct {
	bounds coord.TileBounds // bounds at the destination
	offset coord.TileCoord  // offset back to the source
}

func (undoRemove) isUndoOp() {}
func (undoPlace) isUndoOp()  {}
func (undoWrite) isUndoOp()  {}
func (undoMove) isUndoOp()   {}

// undoRing holds the last N inverses, overwriting the oldest.
type undoRing struct {
	ops  []undoOp
	head int // next write slot
	size int
}

func newUndoRing(capacity int) *undoRing {
	if capacity <= 0 {
		capacity = 1
	}
	return &undoRing{ops: make([]undoOp, capacity)}
}

func (r *undoRing) push(op undoOp) {
	r.ops[r.head] = op
	r.head = (r.head + 1) % len(r.ops)
	if r.size < len(r.ops) {
		r.size++
	}
}

func (r *undoRing) pop() (undoOp, bool) {
	if r.size == 0 {
		return nil, false
	}
	r.head = (r.head - 1 + len(r.ops)) % len(r.ops)
	op := r.ops[r.head]
	r.ops[r.head] = nil
	r.size--
	return op, true
}
