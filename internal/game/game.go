// Package game implements the simulation core: the scheduler actor that
// owns the tile map and global state, the per-tile actors, and the
// transaction protocol between them.
package game

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"automancy.dev/internal/coord"
	"automancy.dev/internal/data"
	"automancy.dev/internal/resources"
	"automancy.dev/internal/tuning"
)

// State is the scheduler's lifecycle position.
type State int

const (
	StateReady State = iota
	StateRunning
	StatePaused
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type Config struct {
	Seed   int64
	Tuning tuning.Tuning
}

type cmdResp struct {
	value any
	err   error
}

type cmdReq struct {
	cmd   Command
	reply chan cmdResp
}

// Game is the scheduler actor. It exclusively owns the tile map, the
// global data map and the undo ring; all external access goes through
// Apply, which hands the command to the scheduler goroutine.
type Game struct {
	cfg  Config
	reg  *resources.Registry
	host ScriptHost
	errs *ErrorStack
	log  *log.Logger

	tiles  *tileMap
	global data.DataMap
	undo   *undoRing

	tick  atomic.Uint64
	state State

	cmds chan cmdReq
	stop chan struct{}

	frameSink chan Frame

	callTimeout time.Duration
	maxTickWait time.Duration
}

func New(cfg Config, reg *resources.Registry, host ScriptHost, errs *ErrorStack, logger *log.Logger) *Game {
	interval := time.Second / time.Duration(cfg.Tuning.TicksPerSecond)
	return &Game{
		cfg:         cfg,
		reg:         reg,
		host:        host,
		errs:        errs,
		log:         logger,
		tiles:       newTileMap(),
		global:      data.NewDataMap(),
		undo:        newUndoRing(cfg.Tuning.UndoCapacity),
		state:       StateReady,
		cmds:        make(chan cmdReq, 64),
		stop:        make(chan struct{}),
		callTimeout: time.Duration(cfg.Tuning.CallTimeoutMs) * time.Millisecond,
		maxTickWait: time.Duration(cfg.Tuning.MaxTickFactor) * interval,
	}
}

// SetFrameSink registers the renderer collaborator's channel. Frames are
// published best-effort; a slow consumer drops frames, never ticks.
func (g *Game) SetFrameSink(ch chan Frame) { g.frameSink = ch }

// Tick returns the current tick number; safe from any goroutine.
func (g *Game) Tick() uint64 { return g.tick.Load() }

// Apply hands cmd to the scheduler goroutine and waits for its reply.
func (g *Game) Apply(ctx context.Context, cmd Command) (any, error) {
	req := cmdReq{cmd: cmd, reply: make(chan cmdResp, 1)}
	select {
	case g.cmds <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-g.stop:
		return nil, fmt.Errorf("game stopped")
	}
	select {
	case resp := <-req.reply:
		return resp.value, resp.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run drives the scheduler until the context ends or QuitGame arrives.
// The loop owns all mutable state; it never runs two ticks concurrently.
func (g *Game) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(g.cfg.Tuning.TicksPerSecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.shutdown()
			return ctx.Err()
		case req := <-g.cmds:
			g.handleCommand(req)
			if g.state == StateStopping {
				g.shutdown()
				return nil
			}
		case <-ticker.C:
			if g.state == StateRunning {
				g.stepTick()
			}
		}
	}
}

// StepOnce advances the simulation by a single tick with the same
// ordering semantics as Run. It is intended for deterministic replays and
// tests and must not be called while Run is active.
func (g *Game) StepOnce() uint64 {
	g.stepTick()
	return g.tick.Load()
}

func (g *Game) shutdown() {
	g.state = StateStopping
	for _, c := range g.tiles.sortedCoords() {
		g.stopActor(g.tiles.get(c))
		g.tiles.remove(c)
	}
	g.state = StateStopped
	close(g.stop)
}

func (g *Game) handleCommand(req cmdReq) {
	var (
		value any
		err   error
	)
	switch cmd := req.cmd.(type) {
	case PlaceTile:
		err = g.applyPlace(cmd.Coord, cmd.Id, cmd.Data, true)
	case RemoveTile:
		_, _, err = g.applyRemove(cmd.Coord, true)
	case MoveRegion:
		err = g.applyMove(cmd.Bounds, cmd.Offset, true)
	case ReadData:
		value, err = g.applyReadData(cmd.Coord, cmd.Key)
	case WriteData:
		err = g.applyWriteData(cmd.Coord, cmd.Key, cmd.Value, true)
	case QueryTile:
		value, err = g.applyQuery(cmd.Coord)
	case GetTileUi:
		value, err = g.applyTileUi(cmd.Coord)
	case ReadGlobal:
		v, ok := g.global.Get(cmd.Key)
		if ok {
			v = v.Clone()
		}
		value = DataInfo{Value: v, Ok: ok}
	case WriteGlobal:
		g.global.Set(cmd.Key, cmd.Value)
	case Undo:
		err = g.applyUndo()
	case StartGame:
		if g.state == StateReady {
			g.state = StateRunning
		}
	case PauseGame:
		if g.state == StateRunning {
			g.state = StatePaused
		}
	case ResumeGame:
		if g.state == StatePaused {
			g.state = StateRunning
		}
	case QuitGame:
		g.state = StateStopping
	case SaveMap:
		value, err = g.applySave(cmd.Path, cmd.Name)
	case LoadMap:
		err = g.applyLoad(cmd.Path)
	default:
		err = fmt.Errorf("unknown command %T", req.cmd)
	}
	req.reply <- cmdResp{value: value, err: err}
}

func (g *Game) newActor(c coord.TileCoord, def resources.TileDef, initial data.DataMap) *tileActor {
	var script TileScript
	if def.Function.Valid() {
		if s, ok := g.host.Function(def.Function); ok {
			script = s
		} else {
			g.log.Printf("tile %s at %v: function %s not loaded",
				g.reg.Interner.Resolve(def.Id), c, g.reg.Interner.Resolve(def.Function))
		}
	}
	return newTileActor(c, def.Id, def, script, g.reg, g.errs, g.log,
		g.cfg.Tuning.MailboxCapacity, g.cfg.Tuning.AnimationCapacity, initial)
}

func (g *Game) applyPlace(c coord.TileCoord, id data.TileId, initial data.DataMap, record bool) error {
	def, ok := g.reg.TileDefs[id]
	if !ok {
		return cmdErr(ErrUnknownTile, "no tile definition for %s", g.reg.Interner.Resolve(id))
	}
	if g.tiles.get(c) != nil {
		return cmdErr(ErrSlotOccupied, "slot %v is occupied", c)
	}
	g.tiles.put(c, g.newActor(c, def, initial))
	if record {
		g.undo.push(undoRemove{coord: c})
	}
	return nil
}

func (g *Game) applyRemove(c coord.TileCoord, record bool) (data.TileId, data.DataMap, error) {
	a := g.tiles.get(c)
	if a == nil {
		return data.NoId, nil, cmdErr(ErrSlotEmpty, "no tile at %v", c)
	}
	dm := g.callDataMap(a)
	g.stopActor(a)
	g.tiles.remove(c)
	if record {
		g.undo.push(undoPlace{coord: c, id: a.id, data: dm})
	}
	return a.id, dm, nil
}

func (g *Game) applyMove(bounds coord.TileBounds, offset coord.TileCoord, record bool) error {
	if (offset == coord.TileCoord{}) {
		return nil
	}
	var moved []coord.TileCoord
	inRegion := map[coord.TileCoord]bool{}
	for _, c := range g.tiles.sortedCoords() {
		if bounds.Contains(c) {
			moved = append(moved, c)
			inRegion[c] = true
		}
	}
	for _, c := range moved {
		dst := c.Add(offset)
		if g.tiles.get(dst) != nil && !inRegion[dst] {
			return cmdErr(ErrSlotOccupied, "slot %v is occupied", dst)
		}
	}

	type pulled struct {
		c  coord.TileCoord
		id data.TileId
		dm data.DataMap
	}
	tiles := make([]pulled, 0, len(moved))
	for _, c := range moved {
		id, dm, err := g.applyRemove(c, false)
		if err != nil {
			return err
		}
		tiles = append(tiles, pulled{c: c, id: id, dm: dm})
	}
	for _, t := range tiles {
		if err := g.applyPlace(t.c.Add(offset), t.id, t.dm, false); err != nil {
			return err
		}
	}
	if record {
		g.undo.push(undoMove{bounds: bounds.Translate(offset), offset: offset.Neg()})
	}
	return nil
}

func (g *Game) applyReadData(c coord.TileCoord, key data.Id) (DataInfo, error) {
	a := g.tiles.get(c)
	if a == nil {
		return DataInfo{}, cmdErr(ErrSlotEmpty, "no tile at %v", c)
	}
	ch := make(chan getDataReply, 1)
	if !a.send(getDataMsg{id: key, reply: ch}) {
		return DataInfo{}, nil
	}
	if r, ok := await(ch, g.callTimeout); ok {
		return DataInfo{Value: r.value, Ok: r.ok}, nil
	}
	return DataInfo{}, nil
}

func (g *Game) applyWriteData(c coord.TileCoord, key data.Id, value data.Data, record bool) error {
	a := g.tiles.get(c)
	if a == nil {
		return cmdErr(ErrSlotEmpty, "no tile at %v", c)
	}
	var old DataInfo
	if record {
		old, _ = g.applyReadData(c, key)
	}
	var sent bool
	if value == nil {
		sent = a.send(removeDataMsg{id: key})
	} else {
		sent = a.send(setDataMsg{id: key, value: value})
	}
	if !sent {
		// A dropped write must not leave an inverse behind: undoing it
		// would mutate state the write never touched.
		return cmdErr(ErrBusy, "tile at %v has a full mailbox", c)
	}
	if record {
		g.undo.push(undoWrite{coord: c, key: key, old: old.Value, absent: !old.Ok})
	}
	return nil
}

func (g *Game) applyQuery(c coord.TileCoord) (*TileInfo, error) {
	a := g.tiles.get(c)
	if a == nil {
		return nil, nil
	}
	return &TileInfo{
		Id:    a.id,
		IdRaw: g.reg.Interner.Resolve(a.id),
		Data:  g.callDataMap(a),
	}, nil
}

func (g *Game) applyTileUi(c coord.TileCoord) (UiInfo, error) {
	a := g.tiles.get(c)
	if a == nil {
		return UiInfo{}, cmdErr(ErrSlotEmpty, "no tile at %v", c)
	}
	ch := make(chan uiReply, 1)
	if !a.send(getConfigUiMsg{tick: g.tick.Load(), reply: ch}) {
		return UiInfo{}, nil
	}
	if r, ok := await(ch, g.callTimeout); ok {
		return UiInfo{Root: r.root, Ok: r.ok}, nil
	}
	return UiInfo{}, nil
}

func (g *Game) applyUndo() error {
	op, ok := g.undo.pop()
	if !ok {
		return cmdErr(ErrUndoExhausted, "nothing to undo")
	}
	switch o := op.(type) {
	case undoRemove:
		_, _, err := g.applyRemove(o.coord, false)
		return err
	case undoPlace:
		return g.applyPlace(o.coord, o.id, o.data, false)
	case undoWrite:
		if o.absent {
			return g.applyWriteData(o.coord, o.key, nil, false)
		}
		return g.applyWriteData(o.coord, o.key, o.old, false)
	case undoMove:
		return g.applyMove(o.bounds, o.offset, false)
	default:
		return fmt.Errorf("unknown undo op %T", op)
	}
}

// callDataMap snapshots one actor's data map with a bounded wait; a
// non-responding actor yields an empty map rather than a stall.
func (g *Game) callDataMap(a *tileActor) data.DataMap {
	ch := make(chan data.DataMap, 1)
	if !a.send(getDataMapMsg{reply: ch}) {
		return data.NewDataMap()
	}
	if dm, ok := await(ch, g.callTimeout); ok {
		return dm
	}
	return data.NewDataMap()
}

func (g *Game) stopActor(a *tileActor) {
	done := make(chan struct{})
	select {
	case a.mailbox <- stopMsg{done: done}:
		select {
		case <-done:
		case <-time.After(g.callTimeout):
		}
	case <-time.After(g.callTimeout):
	}
}

// stepTick advances the simulation one tick: broadcast in coord order,
// collect each tile's proposals, forward transactions one at a time, then
// publish a frame if there is still time in the tick budget.
func (g *Game) stepTick() {
	tick := g.tick.Add(1)
	deadline := time.Now().Add(g.maxTickWait)

	order := g.tiles.sortedCoords()

	// Broadcast first so scripts run concurrently, then collect replies
	// in coord order; the aggregate proposal list is deterministic.
	replies := make([]chan tickReply, len(order))
	for i, c := range order {
		a := g.tiles.get(c)
		ch := make(chan tickReply, 1)
		replies[i] = ch
		if !a.send(tickMsg{tick: tick, random: tileRandom(g.cfg.Seed, tick, c), reply: ch}) {
			replies[i] = nil
		}
	}

	var proposals []proposal
	for i := range order {
		if replies[i] == nil {
			continue
		}
		r, ok := awaitUntil(replies[i], deadline)
		if !ok {
			g.log.Printf("tile %v missed tick %d", order[i], tick)
			continue
		}
		proposals = append(proposals, r.proposals...)
	}

	g.forwardTransactions(tick, proposals)

	// Render collection is skipped when the tick overran its budget; the
	// simulation stays monotonic, only the frame is late.
	if g.frameSink != nil && time.Now().Before(deadline) {
		outputs := multiCollectRender(g.tiles.tiles, order, tick, g.callTimeout)
		g.publishFrame(Frame{Tick: tick, Tiles: outputs})
	}
}

// forwardTransactions routes proposals to their destinations one at a
// time, in the deterministic order they were collected. At most one
// proposal per (source, dest) pair is delivered per tick; the rest are
// dropped at the source (kept, since nothing was debited).
func (g *Game) forwardTransactions(tick uint64, proposals []proposal) {
	type pair struct{ src, dst coord.TileCoord }
	seen := map[pair]bool{}

	for _, p := range proposals {
		k := pair{src: p.source, dst: p.dest}
		if seen[k] {
			continue
		}
		seen[k] = true

		src := g.tiles.get(p.source)
		if src == nil {
			continue
		}

		accepted := false
		if dst := g.tiles.get(p.dest); dst != nil {
			ch := make(chan bool, 1)
			if dst.send(transactionMsg{
				sourceCoord: p.source,
				sourceId:    p.sourceId,
				stack:       p.stack,
				tick:        tick,
				reply:       ch,
			}) {
				if ok, got := await(ch, g.callTimeout); got {
					accepted = ok
				} else {
					// No reply within the bounded wait: rejected.
					g.log.Printf("transaction %v -> %v timed out at tick %d", p.source, p.dest, tick)
				}
			}
		}
		src.sendAck(txAckMsg{stack: p.stack, accepted: accepted, tick: tick})
	}
}

func (g *Game) publishFrame(f Frame) {
	select {
	case g.frameSink <- f:
		return
	default:
	}
	// Drop the stale frame, then try once more.
	select {
	case <-g.frameSink:
	default:
	}
	select {
	case g.frameSink <- f:
	default:
	}
}

func tileRandom(seed int64, tick uint64, c coord.TileCoord) int64 {
	h := uint64(seed) ^ tick*0x9e3779b97f4a7c15
	h ^= uint64(uint32(c.Q))<<32 | uint64(uint32(c.R))
	return int64(splitmix64(h))
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
