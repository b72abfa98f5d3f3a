package ws

import (
	"automancy.dev/internal/coord"
	"automancy.dev/internal/data"
	"automancy.dev/internal/game"
	"automancy.dev/internal/resources"
)

const Version = 1

// Message types. The client subscribes once, then streams COMMAND
// messages; the server pushes FRAME messages and answers each command
// with a RESULT carrying the same seq.
const (
	TypeSubscribe = "SUBSCRIBE"
	TypeCommand   = "COMMAND"
	TypeResult    = "RESULT"
	TypeFrame     = "FRAME"
)

type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion int    `json:"protocol_version"`
}

type FrameMsg struct {
	Type  string     `json:"type"`
	Frame game.Frame `json:"frame"`
}

// BoundsMsg is the wire form of a hex-convex region.
type BoundsMsg struct {
	QMin int `json:"q_min"`
	QMax int `json:"q_max"`
	RMin int `json:"r_min"`
	RMax int `json:"r_max"`
	SMin int `json:"s_min"`
	SMax int `json:"s_max"`
}

func (b BoundsMsg) bounds() coord.TileBounds {
	return coord.TileBounds{
		QMin: b.QMin, QMax: b.QMax,
		RMin: b.RMin, RMax: b.RMax,
		SMin: b.SMin, SMax: b.SMax,
	}
}

// CommandMsg carries one scheduler command. Which fields matter depends
// on Op; ids and data travel in their raw string forms.
type CommandMsg struct {
	Type string `json:"type"`
	Seq  uint64 `json:"seq"`
	Op   string `json:"op"`

	Coord  *coord.TileCoord `json:"coord,omitempty"`
	Id     string           `json:"id,omitempty"`
	Key    string           `json:"key,omitempty"`
	Value  *data.RawData    `json:"value,omitempty"`
	Data   data.RawDataMap  `json:"data,omitempty"`
	Bounds *BoundsMsg       `json:"bounds,omitempty"`
	Offset *coord.TileCoord `json:"offset,omitempty"`
	Name   string           `json:"name,omitempty"`
}

type ErrorMsg struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Text is the pack-translated display form, when the active packs
	// carry an error_popup template.
	Text string `json:"text,omitempty"`
}

type TileMsg struct {
	Id   string          `json:"id"`
	Data data.RawDataMap `json:"data,omitempty"`
}

type SaveMsg struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Tick    uint64 `json:"tick"`
	Tiles   int    `json:"tiles"`
	SavedAt string `json:"saved_at,omitempty"`
}

// UiMsg is the wire form of a UI unit tree, with data keys and id lists
// resolved to strings.
type UiMsg struct {
	Kind     string   `json:"kind"`
	Text     string   `json:"text,omitempty"`
	DataKey  string   `json:"data_key,omitempty"`
	Amount   int      `json:"amount,omitempty"`
	Max      int      `json:"max,omitempty"`
	Ids      []string `json:"ids,omitempty"`
	Children []UiMsg  `json:"children,omitempty"`
}

func uiToWire(reg *resources.Registry, u game.UiUnit) UiMsg {
	m := UiMsg{
		Kind:   string(u.Kind),
		Text:   u.Text,
		Amount: u.Amount,
		Max:    u.Max,
	}
	if u.DataKey.Valid() {
		m.DataKey = reg.Interner.Resolve(u.DataKey)
	}
	for _, id := range u.Ids {
		m.Ids = append(m.Ids, reg.Interner.Resolve(id))
	}
	for _, c := range u.Children {
		m.Children = append(m.Children, uiToWire(reg, c))
	}
	return m
}

type ResultMsg struct {
	Type string    `json:"type"`
	Seq  uint64    `json:"seq"`
	Ok   bool      `json:"ok"`
	Err  *ErrorMsg `json:"error,omitempty"`

	Tick   uint64    `json:"tick,omitempty"`
	Popped *ErrorMsg `json:"popped,omitempty"`

	Tile  *TileMsg      `json:"tile,omitempty"`
	Ui    *UiMsg        `json:"ui,omitempty"`
	Value *data.RawData `json:"value,omitempty"`
	Save  *SaveMsg      `json:"save,omitempty"`
	Saves []SaveMsg     `json:"saves,omitempty"`
}
