package game

import (
	"fmt"

	"automancy.dev/internal/data"
	"automancy.dev/internal/persistence/snapshot"
	"automancy.dev/internal/resources"
)

// ExportMap snapshots the whole map into its neutral raw-id record.
// Runs inside the scheduler goroutine.
func (g *Game) exportMap(name string) snapshot.MapV1 {
	resolve := g.reg.Interner.Resolve
	tick := g.tick.Load()

	snap := snapshot.MapV1{
		Header:     snapshot.Header{Version: snapshot.Version, Name: name, Tick: tick},
		GlobalData: data.MapToRaw(g.global, resolve),
		Tick:       tick,
	}
	for _, c := range g.tiles.sortedCoords() {
		a := g.tiles.get(c)
		snap.Tiles = append(snap.Tiles, snapshot.TileV1{
			Coord: c,
			IdRaw: resolve(a.id),
			Data:  data.MapToRaw(g.callDataMap(a), resolve),
		})
	}
	return snap
}

func (g *Game) applySave(path, name string) (SaveInfo, error) {
	snap := g.exportMap(name)
	if err := snapshot.Write(path, snap); err != nil {
		// A failed save is retryable; the map is untouched.
		g.errs.Push(ErrIO, "save %s: %v", name, err)
		return SaveInfo{}, cmdErr(ErrIO, "save %s: %v", name, err)
	}
	return SaveInfo{Name: name, Path: path, Tick: snap.Tick, Tiles: len(snap.Tiles)}, nil
}

// applyLoad tears down every actor and rebuilds the map from the raw
// record. Failing mid-load reverts to an empty map; the caller decides
// whether to drop to the menu.
func (g *Game) applyLoad(path string) error {
	snap, err := snapshot.Read(path)
	if err != nil {
		g.errs.Push(ErrIO, "load %s: %v", path, err)
		return cmdErr(ErrIO, "load %s: %v", path, err)
	}
	return g.importMap(snap)
}

func (g *Game) importMap(snap snapshot.MapV1) error {
	for _, c := range g.tiles.sortedCoords() {
		g.stopActor(g.tiles.get(c))
		g.tiles.remove(c)
	}
	g.undo = newUndoRing(g.cfg.Tuning.UndoCapacity)

	intern := func(s string) (data.Id, error) {
		return g.reg.Interner.Parse(s, resources.DefaultNamespace)
	}

	global, err := data.MapFromRaw(snap.GlobalData, intern)
	if err != nil {
		return fmt.Errorf("global data: %w", err)
	}
	g.global = global

	for _, t := range snap.Tiles {
		id, err := intern(t.IdRaw)
		if err != nil {
			return fmt.Errorf("tile at %v: %w", t.Coord, err)
		}
		dm, err := data.MapFromRaw(t.Data, intern)
		if err != nil {
			return fmt.Errorf("tile at %v: %w", t.Coord, err)
		}
		if err := g.applyPlace(t.Coord, id, dm, false); err != nil {
			return fmt.Errorf("tile at %v: %w", t.Coord, err)
		}
	}
	g.tick.Store(snap.Tick)
	return nil
}
