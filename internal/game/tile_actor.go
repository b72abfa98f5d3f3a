package game

import (
	"log"

	"automancy.dev/internal/coord"
	"automancy.dev/internal/data"
	"automancy.dev/internal/resources"
)

// Mailbox messages. Tiles never address each other directly; everything
// is routed through the scheduler, which owns the coord -> actor table.

type tileMsg interface{ isTileMsg() }

type tickMsg struct {
	tick   uint64
	random int64
	reply  chan<- tickReply
}

// proposal is an outgoing transaction offer produced by a tick.
type proposal struct {
	source   coord.TileCoord
	sourceId data.TileId
	dest     coord.TileCoord
	stack    data.ItemStack
}

type tickReply struct {
	coord     coord.TileCoord
	proposals []proposal
}

type transactionMsg struct {
	sourceCoord coord.TileCoord
	sourceId    data.TileId
	stack       data.ItemStack
	tick        uint64
	reply       chan<- bool
}

// txAckMsg tells the source the outcome of a transaction it offered.
// Only an accepted ack debits the source inventory (escrow on ack).
type txAckMsg struct {
	stack    data.ItemStack
	accepted bool
	tick     uint64
}

type setDataMsg struct {
	id    data.Id
	value data.Data
}

type getDataReply struct {
	value data.Data
	ok    bool
}

type getDataMsg struct {
	id    data.Id
	reply chan<- getDataReply
}

type removeDataMsg struct {
	id data.Id
}

type getDataMapMsg struct {
	reply chan<- data.DataMap
}

type uiReply struct {
	root UiUnit
	ok   bool
}

type getConfigUiMsg struct {
	tick  uint64
	reply chan<- uiReply
}

type collectRenderMsg struct {
	tick  uint64
	reply chan<- RenderOutput
}

type stopMsg struct {
	done chan<- struct{}
}

func (tickMsg) isTileMsg()          {}
func (transactionMsg) isTileMsg()   {}
func (txAckMsg) isTileMsg()         {}
func (setDataMsg) isTileMsg()       {}
func (getDataMsg) isTileMsg()       {}
func (removeDataMsg) isTileMsg()    {}
func (getDataMapMsg) isTileMsg()    {}
func (getConfigUiMsg) isTileMsg()   {}
func (collectRenderMsg) isTileMsg() {}
func (stopMsg) isTileMsg()          {}

// tileActor owns one placed tile: its data map, its script binding and
// its mailbox goroutine. All state below is touched only by run().
type tileActor struct {
	coord  coord.TileCoord
	id     data.TileId
	def    resources.TileDef
	script TileScript // nil for inert tiles

	reg  *resources.Registry
	errs *ErrorStack
	log  *log.Logger

	mailbox chan tileMsg

	data      data.DataMap
	renderSet []RenderCommand
	configUi  *UiUnit

	anim     []Animation // ring, fixed capacity
	animNext int
}

func newTileActor(c coord.TileCoord, id data.TileId, def resources.TileDef, script TileScript,
	reg *resources.Registry, errs *ErrorStack, logger *log.Logger,
	mailboxCap, animCap int, initial data.DataMap) *tileActor {

	a := &tileActor{
		coord:   c,
		id:      id,
		def:     def,
		script:  script,
		reg:     reg,
		errs:    errs,
		log:     logger,
		mailbox: make(chan tileMsg, mailboxCap),
		data:    data.NewDataMap(),
		anim:    make([]Animation, 0, animCap),
	}
	// Definition data seeds the tile, then the placement payload wins.
	a.data.Merge(def.Data)
	if initial != nil {
		a.data.Merge(initial)
	}
	go a.run()
	return a
}

func (a *tileActor) send(m tileMsg) bool {
	select {
	case a.mailbox <- m:
		return true
	default:
		return false
	}
}

// sendAck delivers a transaction ack even when the mailbox is momentarily
// full. An accepted transfer whose ack is dropped never debits its source,
// duplicating items. The run loop only blocks on buffered reply channels,
// so the mailbox always drains and this send cannot deadlock.
func (a *tileActor) sendAck(m txAckMsg) {
	a.mailbox <- m
}

func (a *tileActor) run() {
	for m := range a.mailbox {
		switch msg := m.(type) {
		case tickMsg:
			msg.reply <- a.handleTick(msg.tick, msg.random)
		case transactionMsg:
			msg.reply <- a.handleTransaction(msg)
		case txAckMsg:
			a.handleTxAck(msg)
		case setDataMsg:
			a.data.Set(msg.id, msg.value)
		case getDataMsg:
			v, ok := a.data.Get(msg.id)
			if ok {
				v = v.Clone()
			}
			msg.reply <- getDataReply{value: v, ok: ok}
		case removeDataMsg:
			a.data.Remove(msg.id)
		case getDataMapMsg:
			msg.reply <- a.data.Clone()
		case getConfigUiMsg:
			msg.reply <- a.handleConfigUi(msg.tick)
		case collectRenderMsg:
			msg.reply <- a.collectRender(msg.tick)
		case stopMsg:
			close(msg.done)
			return
		}
	}
}

// handleTick runs the tile's script and applies its local effects. The
// returned proposals are forwarded by the scheduler; the tile's own
// inventory is untouched until an accepted ack comes back.
func (a *tileActor) handleTick(tick uint64, random int64) tickReply {
	reply := tickReply{coord: a.coord}
	if a.script == nil {
		return reply
	}

	cmds, err := a.script.Tick(ScriptInput{
		Coord:  a.coord,
		TileId: a.id,
		Tick:   tick,
		Random: random,
		Setup:  a.def.Data,
		Data:   a.data,
	})
	if err != nil {
		// A broken script skips this tile's tick; the author may be
		// iterating, so the tile itself stays alive.
		a.log.Printf("script error at %v tick %d: %v", a.coord, tick, err)
		a.errs.Push(ErrScript, "tile %s at %v: %v", a.reg.Interner.Resolve(a.id), a.coord, err)
		return reply
	}

	// Proposals must be backed by the buffer at propose time, counting
	// what earlier proposals of this tick already reserved. Otherwise an
	// accepted transfer could credit the destination with items the
	// source never held.
	reserved := data.NewInventory()

	for _, cmd := range cmds {
		switch c := cmd.(type) {
		case Transfer:
			if c.Stack.Empty() {
				continue
			}
			buffer, _ := a.data.Inventory(a.reg.Builtin.Buffer)
			if buffer.Get(c.Stack.Id)-reserved.Get(c.Stack.Id) < c.Stack.Amount {
				continue
			}
			reserved.Add(c.Stack.Id, c.Stack.Amount)
			reply.proposals = append(reply.proposals, proposal{
				source:   a.coord,
				sourceId: a.id,
				dest:     a.coord.Add(c.To),
				stack:    c.Stack,
			})
		case Mutate:
			a.data.Merge(c.Patch)
		case Render:
			a.renderSet = c.Commands
		case RequestUi:
			root := c.Root
			a.configUi = &root
		}
	}
	return reply
}

func (a *tileActor) handleTransaction(msg transactionMsg) bool {
	if a.script == nil || msg.stack.Empty() {
		return false
	}
	ok, err := a.script.AcceptTransaction(AcceptInput{
		Coord:     a.coord,
		TileId:    a.id,
		Setup:     a.def.Data,
		Data:      a.data,
		Stack:     msg.stack,
		SourceDir: msg.sourceCoord.Sub(a.coord),
	})
	if err != nil {
		a.log.Printf("accept hook error at %v tick %d: %v", a.coord, msg.tick, err)
		a.errs.Push(ErrScript, "tile %s at %v: %v", a.reg.Interner.Resolve(a.id), a.coord, err)
		return false
	}
	if !ok {
		return false
	}
	a.data.InventoryOrNew(a.reg.Builtin.Buffer).Add(msg.stack.Id, msg.stack.Amount)
	a.recordAnimation(Animation{
		SourceDir: msg.sourceCoord.Sub(a.coord),
		Stack:     msg.stack,
		StartTick: msg.tick,
	})
	return true
}

func (a *tileActor) handleTxAck(msg txAckMsg) {
	if !msg.accepted {
		return
	}
	if inv, ok := a.data.Inventory(a.reg.Builtin.Buffer); ok {
		inv.Take(msg.stack.Id, msg.stack.Amount)
	}
}

func (a *tileActor) handleConfigUi(tick uint64) uiReply {
	if a.configUi != nil {
		return uiReply{root: *a.configUi, ok: true}
	}
	if a.script == nil {
		return uiReply{}
	}
	root, ok, err := a.script.ConfigUi(ScriptInput{
		Coord:  a.coord,
		TileId: a.id,
		Tick:   tick,
		Setup:  a.def.Data,
		Data:   a.data,
	})
	if err != nil {
		a.errs.Push(ErrScript, "tile %s at %v: %v", a.reg.Interner.Resolve(a.id), a.coord, err)
		return uiReply{}
	}
	return uiReply{root: root, ok: ok}
}

func (a *tileActor) recordAnimation(an Animation) {
	if cap(a.anim) == 0 {
		return
	}
	if len(a.anim) < cap(a.anim) {
		a.anim = append(a.anim, an)
		return
	}
	a.anim[a.animNext] = an
	a.animNext = (a.animNext + 1) % cap(a.anim)
}

func (a *tileActor) collectRender(tick uint64) RenderOutput {
	out := RenderOutput{Coord: a.coord, Commands: a.renderSet}
	window := uint64(cap(a.anim))
	for _, an := range a.anim {
		if an.StartTick+window >= tick {
			out.Animations = append(out.Animations, an)
		}
	}
	return out
}
