package script

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"automancy.dev/internal/data"
	"automancy.dev/internal/game"
	"automancy.dev/internal/resources"
)

// Host compiles every function source from the registry once and hands
// out an isolated VM per tile. Scripts share nothing; a misbehaving one
// can only hurt its own tile.
type Host struct {
	reg    *resources.Registry
	log    *log.Logger
	budget time.Duration
	chunks map[data.Id]compiledChunk
}

type compiledChunk struct {
	name  string
	proto *lua.FunctionProto
}

var (
	_ game.ScriptHost = (*Host)(nil)
	_ game.TileScript = (*luaScript)(nil)
)

// NewHost compiles reg.Functions and indexes each chunk by the id its
// function_id() reports. A chunk that fails to compile or declare an id
// fails the whole load.
func NewHost(reg *resources.Registry, budget time.Duration, logger *log.Logger) (*Host, error) {
	h := &Host{
		reg:    reg,
		log:    logger,
		budget: budget,
		chunks: map[data.Id]compiledChunk{},
	}
	for _, src := range reg.Functions {
		chunk, err := parse.Parse(strings.NewReader(src.Source), src.Name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", src.Name, err)
		}
		proto, err := lua.Compile(chunk, src.Name)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", src.Name, err)
		}
		id, err := h.identify(src.Name, proto)
		if err != nil {
			return nil, err
		}
		if prev, ok := h.chunks[id]; ok {
			return nil, fmt.Errorf("%s and %s both claim function id %q",
				prev.name, src.Name, reg.Interner.Resolve(id))
		}
		h.chunks[id] = compiledChunk{name: src.Name, proto: proto}
	}
	return h, nil
}

// identify loads the chunk in a scratch VM and calls its function_id().
func (h *Host) identify(name string, proto *lua.FunctionProto) (data.Id, error) {
	s, err := h.instantiate(name, proto)
	if err != nil {
		return data.NoId, err
	}
	defer s.L.Close()

	fn := s.mod.RawGetString("function_id")
	if fn == lua.LNil {
		return data.NoId, fmt.Errorf("%s: missing function_id", name)
	}
	if err := s.call(fn, 1); err != nil {
		return data.NoId, fmt.Errorf("%s: function_id: %w", name, err)
	}
	ret := s.L.Get(-1)
	s.L.Pop(1)
	str, ok := ret.(lua.LString)
	if !ok {
		return data.NoId, fmt.Errorf("%s: function_id returned %s, want string", name, ret.Type())
	}
	return h.reg.Interner.Parse(string(str), resources.DefaultNamespace)
}

// Function builds a fresh VM for the chunk registered under id. Each
// caller owns the returned script exclusively.
func (h *Host) Function(id data.Id) (game.TileScript, bool) {
	chunk, ok := h.chunks[id]
	if !ok {
		return nil, false
	}
	s, err := h.instantiate(chunk.name, chunk.proto)
	if err != nil {
		h.log.Printf("script %s: %v", chunk.name, err)
		return nil, false
	}
	return s, true
}

// Len reports how many function ids are registered.
func (h *Host) Len() int { return len(h.chunks) }

// instantiate builds a sandboxed state, installs the API and runs the
// chunk, which must return its module table.
func (h *Host) instantiate(name string, proto *lua.FunctionProto) (*luaScript, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	s := &luaScript{L: L, reg: h.reg, budget: h.budget, name: name}
	s.install()

	L.Push(L.NewFunctionFromProto(proto))
	if err := s.call(L.Get(-1), 1); err != nil {
		L.Close()
		return nil, fmt.Errorf("run %s: %w", name, err)
	}
	// call left the chunk function below its return value
	ret := L.Get(-1)
	L.Pop(2)
	mod, ok := ret.(*lua.LTable)
	if !ok {
		L.Close()
		return nil, fmt.Errorf("%s returned %s, want module table", name, ret.Type())
	}
	s.mod = mod
	return s, nil
}

// luaScript is one VM bound to one tile. It is not safe for concurrent
// use; the owning tile actor serializes all calls.
type luaScript struct {
	L       *lua.LState
	mod     *lua.LTable
	reg     *resources.Registry
	budget  time.Duration
	name    string
	coordMT *lua.LTable
}

// call runs fn under the script time budget. A script past its budget
// is cancelled and the call errors.
func (s *luaScript) call(fn lua.LValue, nret int, args ...lua.LValue) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.budget)
	defer cancel()
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()
	return s.L.CallByParam(lua.P{Fn: fn, NRet: nret, Protect: true}, args...)
}

func (s *luaScript) tickInput(in game.ScriptInput) *lua.LTable {
	t := s.L.NewTable()
	t.RawSetString("coord", s.newCoord(in.Coord))
	t.RawSetString("id", s.resolveId(data.Id(in.TileId)))
	t.RawSetString("tick", lua.LNumber(in.Tick))
	t.RawSetString("random", lua.LNumber(in.Random))
	t.RawSetString("setup", s.dataMapToLua(in.Setup))
	t.RawSetString("data", s.dataMapToLua(in.Data))
	return t
}

func (s *luaScript) Tick(in game.ScriptInput) ([]game.TileCommand, error) {
	fn := s.mod.RawGetString("handle_tick")
	if fn == lua.LNil {
		return nil, nil
	}
	input := s.tickInput(in)
	if err := s.call(fn, 1, input); err != nil {
		return nil, err
	}
	ret := s.L.Get(-1)
	s.L.Pop(1)

	// The data table is the script's working state; write mutations back.
	// A failed write-back must leave the tile untouched, so the table is
	// lifted into a scratch map first and swapped in whole.
	if dt, ok := input.RawGetString("data").(*lua.LTable); ok {
		scratch := data.NewDataMap()
		if err := s.dataMapFromLua(dt, scratch); err != nil {
			return nil, err
		}
		for k := range in.Data {
			delete(in.Data, k)
		}
		in.Data.Merge(scratch)
	}
	return s.commandsFromLua(ret)
}

func (s *luaScript) AcceptTransaction(in game.AcceptInput) (bool, error) {
	fn := s.mod.RawGetString("accept_transaction")
	if fn == lua.LNil {
		return false, nil
	}
	t := s.L.NewTable()
	t.RawSetString("coord", s.newCoord(in.Coord))
	t.RawSetString("id", s.resolveId(data.Id(in.TileId)))
	t.RawSetString("setup", s.dataMapToLua(in.Setup))
	t.RawSetString("data", s.dataMapToLua(in.Data))
	t.RawSetString("stack", s.stackToLua(in.Stack))
	t.RawSetString("source_dir", s.newCoord(in.SourceDir))
	if err := s.call(fn, 1, t); err != nil {
		return false, err
	}
	ret := s.L.Get(-1)
	s.L.Pop(1)
	return lua.LVAsBool(ret), nil
}

func (s *luaScript) ConfigUi(in game.ScriptInput) (game.UiUnit, bool, error) {
	fn := s.mod.RawGetString("config_ui")
	if fn == lua.LNil {
		return game.UiUnit{}, false, nil
	}
	if err := s.call(fn, 1, s.tickInput(in)); err != nil {
		return game.UiUnit{}, false, err
	}
	ret := s.L.Get(-1)
	s.L.Pop(1)
	t, ok := ret.(*lua.LTable)
	if !ok {
		return game.UiUnit{}, false, nil
	}
	root, err := s.uiFromLua(t)
	if err != nil {
		return game.UiUnit{}, false, err
	}
	return root, true, nil
}

func (s *luaScript) commandsFromLua(v lua.LValue) ([]game.TileCommand, error) {
	t, ok := v.(*lua.LTable)
	if !ok {
		return nil, nil
	}
	var cmds []game.TileCommand
	var err error
	t.ForEach(func(_, cv lua.LValue) {
		if err != nil {
			return
		}
		ct, ok := cv.(*lua.LTable)
		if !ok {
			err = fmt.Errorf("command must be a table, got %s", cv.Type())
			return
		}
		var cmd game.TileCommand
		cmd, err = s.commandFromLua(ct)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	})
	return cmds, err
}

func (s *luaScript) commandFromLua(t *lua.LTable) (game.TileCommand, error) {
	kind, _ := t.RawGetString("kind").(lua.LString)
	switch string(kind) {
	case "transfer":
		to, ok := t.RawGetString("to").(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("transfer without direction")
		}
		dir, ok := coordFromTable(to)
		if !ok {
			return nil, fmt.Errorf("transfer direction is not a coord")
		}
		st, err := s.stackFromLua(t.RawGetString("stack"))
		if err != nil {
			return nil, err
		}
		return game.Transfer{To: dir, Stack: st}, nil
	case "mutate":
		pt, ok := t.RawGetString("patch").(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("mutate without patch")
		}
		patch := data.NewDataMap()
		if err := s.dataMapFromLua(pt, patch); err != nil {
			return nil, err
		}
		return game.Mutate{Patch: patch}, nil
	case "render":
		rt, ok := t.RawGetString("commands").(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("render without commands")
		}
		var rcs []game.RenderCommand
		var err error
		rt.ForEach(func(_, rv lua.LValue) {
			if err != nil {
				return
			}
			rct, ok := rv.(*lua.LTable)
			if !ok {
				err = fmt.Errorf("render command must be a table")
				return
			}
			var rc game.RenderCommand
			rc, err = s.renderCommandFromLua(rct)
			if err == nil {
				rcs = append(rcs, rc)
			}
		})
		if err != nil {
			return nil, err
		}
		return game.Render{Commands: rcs}, nil
	case "ui":
		rt, ok := t.RawGetString("root").(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("ui without root")
		}
		root, err := s.uiFromLua(rt)
		if err != nil {
			return nil, err
		}
		return game.RequestUi{Root: root}, nil
	default:
		return nil, fmt.Errorf("unknown command kind %q", kind)
	}
}

func (s *luaScript) renderCommandFromLua(t *lua.LTable) (game.RenderCommand, error) {
	var rc game.RenderCommand
	kind, _ := t.RawGetString("kind").(lua.LString)
	switch game.RenderCommandKind(kind) {
	case game.RenderTrack, game.RenderUntrack, game.RenderTransform:
		rc.Kind = game.RenderCommandKind(kind)
	default:
		return rc, fmt.Errorf("unknown render kind %q", kind)
	}
	tag, err := s.internId(t.RawGetString("tag"))
	if err != nil {
		return rc, err
	}
	rc.Tag = tag
	if mv := t.RawGetString("model"); mv != lua.LNil {
		model, err := s.internId(mv)
		if err != nil {
			return rc, err
		}
		rc.Model = model
	}
	if mv, ok := t.RawGetString("matrix").(*lua.LTable); ok {
		m, err := matrixFromLua(mv)
		if err != nil {
			return rc, err
		}
		rc.Matrix = &m
	}
	return rc, nil
}

func (s *luaScript) uiFromLua(t *lua.LTable) (game.UiUnit, error) {
	var u game.UiUnit
	kind, ok := t.RawGetString("kind").(lua.LString)
	if !ok {
		return u, fmt.Errorf("ui unit without kind")
	}
	u.Kind = game.UiUnitKind(kind)
	if v, ok := t.RawGetString("text").(lua.LString); ok {
		u.Text = string(v)
	}
	if v := t.RawGetString("data_key"); v != lua.LNil {
		key, err := s.internId(v)
		if err != nil {
			return u, err
		}
		u.DataKey = key
	}
	if v, ok := t.RawGetString("amount").(lua.LNumber); ok {
		u.Amount = int(v)
	}
	if v, ok := t.RawGetString("max").(lua.LNumber); ok {
		u.Max = int(v)
	}
	var err error
	if v, ok := t.RawGetString("ids").(*lua.LTable); ok {
		v.ForEach(func(_, iv lua.LValue) {
			if err != nil {
				return
			}
			id, e := s.internId(iv)
			if e != nil {
				err = e
				return
			}
			u.Ids = append(u.Ids, id)
		})
		if err != nil {
			return u, err
		}
	}
	if v, ok := t.RawGetString("children").(*lua.LTable); ok {
		v.ForEach(func(_, cv lua.LValue) {
			if err != nil {
				return
			}
			ct, ok := cv.(*lua.LTable)
			if !ok {
				err = fmt.Errorf("ui child must be a table")
				return
			}
			child, e := s.uiFromLua(ct)
			if e != nil {
				err = e
				return
			}
			u.Children = append(u.Children, child)
		})
		if err != nil {
			return u, err
		}
	}
	return u, nil
}
