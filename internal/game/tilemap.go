package game

import (
	"sort"

	"automancy.dev/internal/coord"
)

// tileMap is the coord -> actor table. It is owned exclusively by the
// scheduler goroutine; no lock is needed.
type tileMap struct {
	tiles map[coord.TileCoord]*tileActor
}

func newTileMap() *tileMap {
	return &tileMap{tiles: map[coord.TileCoord]*tileActor{}}
}

func (m *tileMap) get(c coord.TileCoord) *tileActor { return m.tiles[c] }

func (m *tileMap) put(c coord.TileCoord, a *tileActor) { m.tiles[c] = a }

func (m *tileMap) remove(c coord.TileCoord) { delete(m.tiles, c) }

func (m *tileMap) len() int { return len(m.tiles) }

// sortedCoords returns every occupied coordinate by q then r. The tick
// broadcast walks this order, which is what makes contested transactions
// deterministic.
func (m *tileMap) sortedCoords() []coord.TileCoord {
	out := make([]coord.TileCoord, 0, len(m.tiles))
	for c := range m.tiles {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
