package script

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"automancy.dev/internal/coord"
	"automancy.dev/internal/data"
	"automancy.dev/internal/game"
	"automancy.dev/internal/mathx"
)

// install registers the host API into the script's state: coordinate
// math, registry queries, render and UI builders. All of it speaks the
// same plain-table shapes as the data boundary.
func (s *luaScript) install() {
	s.installCoordMT()
	s.L.SetGlobal("coord", s.coordModule())
	s.L.SetGlobal("registry", s.registryModule())
	s.L.SetGlobal("render", s.renderModule())
	s.L.SetGlobal("mat", s.matModule())
	s.L.SetGlobal("ui", s.uiModule())
}

// checkCoord reads argument n as a coord table.
func (s *luaScript) checkCoord(L *lua.LState, n int) coord.TileCoord {
	c, ok := coordFromTable(L.CheckTable(n))
	if !ok {
		L.ArgError(n, "expected a coord")
	}
	return c
}

func (s *luaScript) installCoordMT() {
	mt := s.L.NewTable()
	mt.RawSetString("__add", s.L.NewFunction(func(L *lua.LState) int {
		L.Push(s.newCoord(s.checkCoord(L, 1).Add(s.checkCoord(L, 2))))
		return 1
	}))
	mt.RawSetString("__sub", s.L.NewFunction(func(L *lua.LState) int {
		L.Push(s.newCoord(s.checkCoord(L, 1).Sub(s.checkCoord(L, 2))))
		return 1
	}))
	mt.RawSetString("__unm", s.L.NewFunction(func(L *lua.LState) int {
		L.Push(s.newCoord(s.checkCoord(L, 1).Neg()))
		return 1
	}))
	mt.RawSetString("__eq", s.L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(s.checkCoord(L, 1) == s.checkCoord(L, 2)))
		return 1
	}))
	mt.RawSetString("__tostring", s.L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(s.checkCoord(L, 1).String()))
		return 1
	}))
	s.coordMT = mt
}

func (s *luaScript) coordModule() *lua.LTable {
	m := s.L.NewTable()
	m.RawSetString("ZERO", s.newCoord(coord.Zero))
	m.RawSetString("TOP_RIGHT", s.newCoord(coord.TopRight))
	m.RawSetString("RIGHT", s.newCoord(coord.Right))
	m.RawSetString("BOTTOM_RIGHT", s.newCoord(coord.BottomRight))
	m.RawSetString("BOTTOM_LEFT", s.newCoord(coord.BottomLeft))
	m.RawSetString("LEFT", s.newCoord(coord.Left))
	m.RawSetString("TOP_LEFT", s.newCoord(coord.TopLeft))

	dirs := s.L.NewTable()
	for i, d := range coord.Directions {
		dirs.RawSetInt(i+1, s.newCoord(d))
	}
	m.RawSetString("DIRECTIONS", dirs)

	m.RawSetString("new", s.L.NewFunction(func(L *lua.LState) int {
		L.Push(s.newCoord(coord.New(L.CheckInt(1), L.CheckInt(2))))
		return 1
	}))
	m.RawSetString("neighbors", s.L.NewFunction(func(L *lua.LState) int {
		t := L.NewTable()
		for i, n := range s.checkCoord(L, 1).Neighbors() {
			t.RawSetInt(i+1, s.newCoord(n))
		}
		L.Push(t)
		return 1
	}))
	m.RawSetString("rotate_cw", s.L.NewFunction(func(L *lua.LState) int {
		L.Push(s.newCoord(s.checkCoord(L, 1).CW()))
		return 1
	}))
	m.RawSetString("rotate_ccw", s.L.NewFunction(func(L *lua.LState) int {
		L.Push(s.newCoord(s.checkCoord(L, 1).CCW()))
		return 1
	}))
	m.RawSetString("cw_around", s.L.NewFunction(func(L *lua.LState) int {
		L.Push(s.newCoord(s.checkCoord(L, 1).CWAround(s.checkCoord(L, 2))))
		return 1
	}))
	m.RawSetString("ccw_around", s.L.NewFunction(func(L *lua.LState) int {
		L.Push(s.newCoord(s.checkCoord(L, 1).CCWAround(s.checkCoord(L, 2))))
		return 1
	}))
	m.RawSetString("distance", s.L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(coord.Distance(s.checkCoord(L, 1), s.checkCoord(L, 2))))
		return 1
	}))
	m.RawSetString("degrees", s.L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(s.checkCoord(L, 1).AsDegrees()))
		return 1
	}))
	return m
}

func (s *luaScript) registryModule() *lua.LTable {
	m := s.L.NewTable()

	// as_* validate an id string against one definition kind and return
	// the canonical "ns:name" form, or nil when unknown.
	lookup := func(check func(data.Id) bool) *lua.LFunction {
		return s.L.NewFunction(func(L *lua.LState) int {
			id, err := s.internId(lua.LString(L.CheckString(1)))
			if err != nil || !check(id) {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(s.resolveId(id))
			return 1
		})
	}
	m.RawSetString("as_item", lookup(func(id data.Id) bool {
		_, ok := s.reg.Item(id)
		return ok
	}))
	m.RawSetString("as_tile", lookup(func(id data.Id) bool {
		_, ok := s.reg.Tile(id)
		return ok
	}))
	m.RawSetString("as_script", lookup(func(id data.Id) bool {
		_, ok := s.reg.Recipe(id)
		return ok
	}))
	m.RawSetString("as_tag", lookup(func(id data.Id) bool {
		_, ok := s.reg.Tag(id)
		return ok
	}))

	m.RawSetString("recipe", s.L.NewFunction(func(L *lua.LState) int {
		id, err := s.internId(lua.LString(L.CheckString(1)))
		if err != nil {
			L.Push(lua.LNil)
			return 1
		}
		def, ok := s.reg.Recipe(id)
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		t := L.NewTable()
		inputs := L.NewTable()
		for i, st := range def.Inputs {
			inputs.RawSetInt(i+1, s.stackToLua(st))
		}
		outputs := L.NewTable()
		for i, st := range def.Outputs {
			outputs.RawSetInt(i+1, s.stackToLua(st))
		}
		t.RawSetString("inputs", inputs)
		t.RawSetString("outputs", outputs)
		L.Push(t)
		return 1
	}))
	m.RawSetString("item_match", s.L.NewFunction(func(L *lua.LState) int {
		query, err := s.internId(lua.LString(L.CheckString(1)))
		if err != nil {
			L.Push(lua.LBool(false))
			return 1
		}
		candidate, err := s.internId(lua.LString(L.CheckString(2)))
		if err != nil {
			L.Push(lua.LBool(false))
			return 1
		}
		L.Push(lua.LBool(s.reg.IdMatch(query, candidate)))
		return 1
	}))
	m.RawSetString("item_matches", s.L.NewFunction(func(L *lua.LState) int {
		query, err := s.internId(lua.LString(L.CheckString(1)))
		if err != nil {
			L.Push(lua.LBool(false))
			return 1
		}
		var stacks []data.ItemStack
		L.CheckTable(2).ForEach(func(_, v lua.LValue) {
			if st, e := s.stackFromLua(v); e == nil {
				stacks = append(stacks, st)
			}
		})
		L.Push(lua.LBool(s.reg.StackMatches(query, stacks)))
		return 1
	}))
	m.RawSetString("item_ids_of_tag", s.L.NewFunction(func(L *lua.LState) int {
		tag, err := s.internId(lua.LString(L.CheckString(1)))
		if err != nil {
			L.Push(L.NewTable())
			return 1
		}
		t := L.NewTable()
		for i, id := range s.reg.ItemsOfTag(tag) {
			t.RawSetInt(i+1, s.resolveId(id))
		}
		L.Push(t)
		return 1
	}))
	m.RawSetString("item_model", s.L.NewFunction(func(L *lua.LState) int {
		id, err := s.internId(lua.LString(L.CheckString(1)))
		if err != nil {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(s.resolveId(s.reg.ItemModel(id)))
		return 1
	}))
	m.RawSetString("tile_model", s.L.NewFunction(func(L *lua.LState) int {
		id, err := s.internId(lua.LString(L.CheckString(1)))
		if err != nil {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(s.resolveId(s.reg.TileModel(data.TileId(id))))
		return 1
	}))
	return m
}

func (s *luaScript) renderModule() *lua.LTable {
	m := s.L.NewTable()
	m.RawSetString("track", s.L.NewFunction(func(L *lua.LState) int {
		t := L.NewTable()
		t.RawSetString("kind", lua.LString(game.RenderTrack))
		t.RawSetString("tag", lua.LString(L.CheckString(1)))
		t.RawSetString("model", lua.LString(L.CheckString(2)))
		L.Push(t)
		return 1
	}))
	m.RawSetString("untrack", s.L.NewFunction(func(L *lua.LState) int {
		t := L.NewTable()
		t.RawSetString("kind", lua.LString(game.RenderUntrack))
		t.RawSetString("tag", lua.LString(L.CheckString(1)))
		L.Push(t)
		return 1
	}))
	m.RawSetString("transform", s.L.NewFunction(func(L *lua.LState) int {
		t := L.NewTable()
		t.RawSetString("kind", lua.LString(game.RenderTransform))
		t.RawSetString("tag", lua.LString(L.CheckString(1)))
		t.RawSetString("model", lua.LString(L.CheckString(2)))
		t.RawSetString("matrix", L.CheckTable(3))
		L.Push(t)
		return 1
	}))
	return m
}

func (s *luaScript) matModule() *lua.LTable {
	m := s.L.NewTable()
	m.RawSetString("identity", s.L.NewFunction(func(L *lua.LState) int {
		L.Push(matrixToLua(L, mathx.Identity()))
		return 1
	}))
	m.RawSetString("translation", s.L.NewFunction(func(L *lua.LState) int {
		L.Push(matrixToLua(L, mathx.Translation(
			float32(L.CheckNumber(1)), float32(L.CheckNumber(2)), float32(L.CheckNumber(3)))))
		return 1
	}))
	m.RawSetString("rotation_z", s.L.NewFunction(func(L *lua.LState) int {
		L.Push(matrixToLua(L, mathx.RotationZ(float32(L.CheckNumber(1)))))
		return 1
	}))
	m.RawSetString("scale", s.L.NewFunction(func(L *lua.LState) int {
		L.Push(matrixToLua(L, mathx.Scale(
			float32(L.CheckNumber(1)), float32(L.CheckNumber(2)), float32(L.CheckNumber(3)))))
		return 1
	}))
	m.RawSetString("mul", s.L.NewFunction(func(L *lua.LState) int {
		a, err := matrixFromLua(L.CheckTable(1))
		if err != nil {
			L.RaiseError("%v", err)
		}
		b, err := matrixFromLua(L.CheckTable(2))
		if err != nil {
			L.RaiseError("%v", err)
		}
		L.Push(matrixToLua(L, a.Mul(b)))
		return 1
	}))
	return m
}

func (s *luaScript) uiModule() *lua.LTable {
	m := s.L.NewTable()
	unit := func(kind game.UiUnitKind, fill func(L *lua.LState, t *lua.LTable)) *lua.LFunction {
		return s.L.NewFunction(func(L *lua.LState) int {
			t := L.NewTable()
			t.RawSetString("kind", lua.LString(kind))
			fill(L, t)
			L.Push(t)
			return 1
		})
	}
	container := func(kind game.UiUnitKind) *lua.LFunction {
		return unit(kind, func(L *lua.LState, t *lua.LTable) {
			t.RawSetString("children", L.CheckTable(1))
		})
	}
	m.RawSetString("row", container(game.UiRow))
	m.RawSetString("center_row", container(game.UiCenterRow))
	m.RawSetString("col", container(game.UiCol))
	m.RawSetString("label", unit(game.UiLabel, func(L *lua.LState, t *lua.LTable) {
		t.RawSetString("text", lua.LString(L.CheckString(1)))
	}))
	m.RawSetString("info_tip", unit(game.UiInfoTip, func(L *lua.LState, t *lua.LTable) {
		t.RawSetString("text", lua.LString(L.CheckString(1)))
	}))
	m.RawSetString("label_amount", unit(game.UiLabelAmount, func(L *lua.LState, t *lua.LTable) {
		t.RawSetString("amount", L.CheckNumber(1))
	}))
	m.RawSetString("input_amount", unit(game.UiInputAmount, func(L *lua.LState, t *lua.LTable) {
		t.RawSetString("data_key", lua.LString(L.CheckString(1)))
		t.RawSetString("max", L.CheckNumber(2))
	}))
	m.RawSetString("slider_amount", unit(game.UiSliderAmount, func(L *lua.LState, t *lua.LTable) {
		t.RawSetString("data_key", lua.LString(L.CheckString(1)))
		t.RawSetString("max", L.CheckNumber(2))
	}))
	m.RawSetString("hex_dir_input", unit(game.UiHexDirInput, func(L *lua.LState, t *lua.LTable) {
		t.RawSetString("data_key", lua.LString(L.CheckString(1)))
	}))
	m.RawSetString("selectable_items", unit(game.UiSelectableItems, func(L *lua.LState, t *lua.LTable) {
		t.RawSetString("data_key", lua.LString(L.CheckString(1)))
		t.RawSetString("ids", L.CheckTable(2))
	}))
	m.RawSetString("selectable_scripts", unit(game.UiSelectableScripts, func(L *lua.LState, t *lua.LTable) {
		t.RawSetString("data_key", lua.LString(L.CheckString(1)))
		t.RawSetString("ids", L.CheckTable(2))
	}))
	m.RawSetString("inventory", unit(game.UiInventory, func(L *lua.LState, t *lua.LTable) {
		t.RawSetString("data_key", lua.LString(L.CheckString(1)))
		t.RawSetString("text", lua.LString(L.OptString(2, "")))
	}))
	m.RawSetString("linkage", unit(game.UiLinkage, func(L *lua.LState, t *lua.LTable) {
		t.RawSetString("data_key", lua.LString(L.CheckString(1)))
		t.RawSetString("text", lua.LString(L.CheckString(2)))
	}))
	return m
}

func matrixToLua(L *lua.LState, m mathx.Matrix4) *lua.LTable {
	t := L.NewTable()
	for i, v := range m {
		t.RawSetInt(i+1, lua.LNumber(v))
	}
	return t
}

func matrixFromLua(t *lua.LTable) (mathx.Matrix4, error) {
	var m mathx.Matrix4
	if t.Len() != len(m) {
		return m, fmt.Errorf("matrix needs %d entries, got %d", len(m), t.Len())
	}
	for i := range m {
		n, ok := t.RawGetInt(i + 1).(lua.LNumber)
		if !ok {
			return m, fmt.Errorf("matrix entry %d is not a number", i+1)
		}
		m[i] = float32(n)
	}
	return m, nil
}
