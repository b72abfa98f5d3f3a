package game

import (
	"automancy.dev/internal/coord"
	"automancy.dev/internal/data"
)

// Command is the surface UI and input drive the scheduler through. Every
// command is applied inside the scheduler goroutine at a safe point.
type Command interface{ isCommand() }

type PlaceTile struct {
	Coord coord.TileCoord
	Id    data.TileId
	Data  data.DataMap // optional initial payload
}

type RemoveTile struct {
	Coord coord.TileCoord
}

type MoveRegion struct {
	Bounds coord.TileBounds
	Offset coord.TileCoord
}

type ReadData struct {
	Coord coord.TileCoord
	Key   data.Id
}

type WriteData struct {
	Coord coord.TileCoord
	Key   data.Id
	Value data.Data
}

type QueryTile struct {
	Coord coord.TileCoord
}

type GetTileUi struct {
	Coord coord.TileCoord
}

type ReadGlobal struct {
	Key data.Id
}

type WriteGlobal struct {
	Key   data.Id
	Value data.Data
}

type Undo struct{}

type StartGame struct{}
type PauseGame struct{}
type ResumeGame struct{}
type QuitGame struct{}

type SaveMap struct {
	Path string
	Name string
}

type LoadMap struct {
	Path string
}

func (PlaceTile) isCommand()   {}
func (RemoveTile) isCommand()  {}
func (MoveRegion) isCommand()  {}
func (ReadData) isCommand()    {}
func (WriteData) isCommand()   {}
func (QueryTile) isCommand()   {}
func (GetTileUi) isCommand()   {}
func (ReadGlobal) isCommand()  {}
func (WriteGlobal) isCommand() {}
func (Undo) isCommand()        {}
func (StartGame) isCommand()   {}
func (PauseGame) isCommand()   {}
func (ResumeGame) isCommand()  {}
func (QuitGame) isCommand()    {}
func (SaveMap) isCommand()     {}
func (LoadMap) isCommand()     {}

// TileInfo answers QueryTile.
type TileInfo struct {
	Id    data.TileId
	IdRaw string
	Data  data.DataMap
}

// UiInfo answers GetTileUi.
type UiInfo struct {
	Root UiUnit
	Ok   bool
}

// DataInfo answers ReadData/ReadGlobal; Value is nil when absent.
type DataInfo struct {
	Value data.Data
	Ok    bool
}

// SaveInfo answers SaveMap with what was written.
type SaveInfo struct {
	Name  string
	Path  string
	Tick  uint64
	Tiles int
}
