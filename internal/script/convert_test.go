package script

import (
	"log"
	"os"
	"reflect"
	"testing"
	"time"

	"automancy.dev/internal/coord"
	"automancy.dev/internal/data"
	"automancy.dev/internal/game"
	"automancy.dev/internal/resources"
)

// passThroughChunk copies its data table untouched, which makes every
// tick a full lower-then-lift round trip of the map.
const passThroughChunk = `
local M = {}
function M.function_id() return "test:pass" end
function M.handle_tick(input)
	return {}
end
return M
`

func passThroughScript(t *testing.T) (game.TileScript, *resources.Registry) {
	t.Helper()
	reg := resources.NewRegistry(resources.NewInterner())
	reg.Functions = append(reg.Functions, resources.FunctionSource{
		Name: "pass.lua", Source: passThroughChunk,
	})
	h, err := NewHost(reg, time.Second, log.New(os.Stdout, "[test] ", log.LstdFlags))
	if err != nil {
		t.Fatalf("new host: %v", err)
	}
	s, ok := h.Function(reg.Interner.Intern("test:pass"))
	if !ok {
		t.Fatalf("function missing")
	}
	return s, reg
}

func TestDataMapRoundTripThroughLua(t *testing.T) {
	s, reg := passThroughScript(t)
	id := func(n string) data.Id { return reg.Interner.Intern("test:" + n) }

	inv := data.NewInventory()
	inv.Add(id("iron"), 3)
	inv.Add(id("coal"), 1)

	m := data.DataMap{
		id("flag"):   data.Bool(true),
		id("count"):  data.Amount(12),
		id("target"): data.Coord(coord.New(1, -1)),
		id("item"):   data.IdRef(id("iron")),
		id("buffer"): inv,
		id("want"):   data.Stack(data.ItemStack{Id: id("coal"), Amount: 2}),
		id("queue"): data.Stacks{
			{Id: id("iron"), Amount: 1},
			{Id: id("coal"), Amount: 4},
		},
		id("links"): data.CoordSet{coord.New(0, 1): {}, coord.New(2, 0): {}},
		id("seen"):  data.IdSet{id("iron"): {}, id("coal"): {}},
	}
	want := m.Clone()

	in := game.ScriptInput{
		TileId: data.TileId(id("machine")),
		Setup:  data.NewDataMap(),
		Data:   m,
	}
	if _, err := s.Tick(in); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if !reflect.DeepEqual(want, m) {
		t.Fatalf("round trip changed the map:\n%v\n%v", want, m)
	}
}

func TestUnsetTileIdReachesLuaAsEmptyString(t *testing.T) {
	reg := resources.NewRegistry(resources.NewInterner())
	reg.Functions = append(reg.Functions, resources.FunctionSource{
		Name: "noid.lua", Source: `
local M = {}
function M.function_id() return "test:noid" end
function M.handle_tick(input)
	input.data["test:id_empty"] = (input.id == "")
	return {}
end
return M
`,
	})
	h, err := NewHost(reg, time.Second, log.Default())
	if err != nil {
		t.Fatalf("new host: %v", err)
	}
	s, _ := h.Function(reg.Interner.Intern("test:noid"))

	m := data.NewDataMap()
	if _, err := s.Tick(game.ScriptInput{Setup: data.NewDataMap(), Data: m}); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if v, ok := m.Bool(reg.Interner.Intern("test:id_empty")); !ok || !v {
		t.Fatalf("unset tile id: %v %v", v, ok)
	}
}

func TestEmptyTableBecomesInventory(t *testing.T) {
	reg := resources.NewRegistry(resources.NewInterner())
	reg.Functions = append(reg.Functions, resources.FunctionSource{
		Name: "mk.lua", Source: `
local M = {}
function M.function_id() return "test:mk" end
function M.handle_tick(input)
	input.data["test:fresh"] = {}
	return {}
end
return M
`,
	})
	h, err := NewHost(reg, time.Second, log.Default())
	if err != nil {
		t.Fatalf("new host: %v", err)
	}
	s, _ := h.Function(reg.Interner.Intern("test:mk"))

	m := data.NewDataMap()
	if _, err := s.Tick(game.ScriptInput{Setup: data.NewDataMap(), Data: m}); err != nil {
		t.Fatalf("tick: %v", err)
	}
	inv, ok := m.Inventory(reg.Interner.Intern("test:fresh"))
	if !ok || len(inv) != 0 {
		t.Fatalf("empty table did not become an inventory: %v %v", inv, ok)
	}
}

func TestCoordArithmeticInLua(t *testing.T) {
	reg := resources.NewRegistry(resources.NewInterner())
	reg.Functions = append(reg.Functions, resources.FunctionSource{
		Name: "math.lua", Source: `
local M = {}
function M.function_id() return "test:coordmath" end
function M.handle_tick(input)
	local c = input.coord
	input.data["test:sum"] = c + coord.RIGHT
	input.data["test:diff"] = c - coord.new(1, 1)
	input.data["test:neg"] = -c
	input.data["test:same"] = (c == coord.new(c.q, c.r))
	input.data["test:dist"] = coord.distance(c, coord.ZERO)
	input.data["test:rot"] = coord.rotate_cw(coord.RIGHT)
	return {}
end
return M
`,
	})
	h, err := NewHost(reg, time.Second, log.Default())
	if err != nil {
		t.Fatalf("new host: %v", err)
	}
	s, _ := h.Function(reg.Interner.Intern("test:coordmath"))

	m := data.NewDataMap()
	at := coord.New(2, -1)
	if _, err := s.Tick(game.ScriptInput{Coord: at, Setup: data.NewDataMap(), Data: m}); err != nil {
		t.Fatalf("tick: %v", err)
	}
	id := func(n string) data.Id { return reg.Interner.Intern("test:" + n) }

	if v, _ := m.Coord(id("sum")); v != at.Add(coord.Right) {
		t.Fatalf("sum: %v", v)
	}
	if v, _ := m.Coord(id("diff")); v != at.Sub(coord.New(1, 1)) {
		t.Fatalf("diff: %v", v)
	}
	if v, _ := m.Coord(id("neg")); v != at.Neg() {
		t.Fatalf("neg: %v", v)
	}
	if v, _ := m.Bool(id("same")); !v {
		t.Fatalf("equality metamethod failed")
	}
	if v, _ := m.Amount(id("dist")); v != at.Length() {
		t.Fatalf("dist: %d", v)
	}
	if v, _ := m.Coord(id("rot")); v != coord.Right.CW() {
		t.Fatalf("rot: %v", v)
	}
}

func TestRegistryApiInLua(t *testing.T) {
	reg := resources.NewRegistry(resources.NewInterner())
	iron := reg.Interner.Intern("automancy:iron")
	reg.ItemDefs[iron] = resources.ItemDef{Id: iron}
	ores := reg.Interner.Intern("automancy:#ores")
	reg.TagDefs[ores] = resources.TagDef{Id: ores, Entries: data.IdSet{iron: {}}}
	rid := reg.Interner.Intern("automancy:smelting")
	reg.RecipeDefs[rid] = resources.RecipeDef{
		Id:      rid,
		Inputs:  []data.ItemStack{{Id: iron, Amount: 2}},
		Outputs: []data.ItemStack{{Id: iron, Amount: 1}},
	}
	reg.Functions = append(reg.Functions, resources.FunctionSource{
		Name: "reg.lua", Source: `
local M = {}
function M.function_id() return "test:reg" end
function M.handle_tick(input)
	input.data["test:known"] = (registry.as_item("iron") ~= nil)
	input.data["test:unknown"] = (registry.as_item("ghost") == nil)
	input.data["test:tagged"] = registry.item_match("automancy:iron", "automancy:#ores")
	local r = registry.recipe("automancy:smelting")
	input.data["test:in_amount"] = r.inputs[1].amount
	input.data["test:out"] = r.outputs[1].id
	return {}
end
return M
`,
	})
	h, err := NewHost(reg, time.Second, log.Default())
	if err != nil {
		t.Fatalf("new host: %v", err)
	}
	s, _ := h.Function(reg.Interner.Intern("test:reg"))

	m := data.NewDataMap()
	if _, err := s.Tick(game.ScriptInput{Setup: data.NewDataMap(), Data: m}); err != nil {
		t.Fatalf("tick: %v", err)
	}
	id := func(n string) data.Id { return reg.Interner.Intern("test:" + n) }
	for _, key := range []string{"known", "unknown", "tagged"} {
		if v, ok := m.Bool(id(key)); !ok || !v {
			t.Fatalf("%s: %v %v", key, v, ok)
		}
	}
	if v, _ := m.Amount(id("in_amount")); v != 2 {
		t.Fatalf("recipe input amount: %d", v)
	}
	if v, _ := m.Id(id("out")); v != iron {
		t.Fatalf("recipe output id: %v", v)
	}
}
