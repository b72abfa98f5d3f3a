package game

import (
	"automancy.dev/internal/coord"
	"automancy.dev/internal/data"
)

// ScriptInput is what a tile script sees for one tick: its own pre-tick
// state plus message inputs, nothing else.
type ScriptInput struct {
	Coord  coord.TileCoord
	TileId data.TileId
	Tick   uint64
	Random int64
	Setup  data.DataMap // the tile definition's configured data
	Data   data.DataMap // the tile's own state, mutable by the script
}

// AcceptInput is handed to a script's transaction acceptance hook.
type AcceptInput struct {
	Coord     coord.TileCoord
	TileId    data.TileId
	Setup     data.DataMap
	Data      data.DataMap
	Stack     data.ItemStack
	SourceDir coord.TileCoord
}

// TileCommand is an effect a tile script returns from its tick function.
type TileCommand interface{ isTileCommand() }

// Transfer offers a stack to the neighbor in the given direction.
type Transfer struct {
	To    coord.TileCoord // unit direction, resolved against the tile's coord
	Stack data.ItemStack
}

// Mutate applies a patch to the tile's own data map.
type Mutate struct {
	Patch data.DataMap
}

// Render replaces the tile's render set for this tick.
type Render struct {
	Commands []RenderCommand
}

// RequestUi stores the unit tree served to GetTileConfigUi.
type RequestUi struct {
	Root UiUnit
}

func (Transfer) isTileCommand()  {}
func (Mutate) isTileCommand()    {}
func (Render) isTileCommand()    {}
func (RequestUi) isTileCommand() {}

// TileScript is one compiled script chunk bound to a tile definition.
// Implementations live in the scripting host; everything crossing this
// boundary is plain data.
type TileScript interface {
	// Tick runs the per-tick function. The returned commands are applied
	// by the tile actor; in.Data may be mutated in place.
	Tick(in ScriptInput) ([]TileCommand, error)

	// AcceptTransaction decides whether an offered stack is taken. A
	// script without the hook rejects everything.
	AcceptTransaction(in AcceptInput) (bool, error)

	// ConfigUi builds the tile's configuration UI, or returns false when
	// the script defines none.
	ConfigUi(in ScriptInput) (UiUnit, bool, error)
}

// ScriptHost resolves function ids to compiled scripts. A reload swaps
// the whole host.
type ScriptHost interface {
	Function(id data.Id) (TileScript, bool)
}
