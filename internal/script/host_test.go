package script

import (
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"automancy.dev/internal/coord"
	"automancy.dev/internal/data"
	"automancy.dev/internal/game"
	"automancy.dev/internal/resources"
)

func newTestHost(t *testing.T, sources ...string) (*Host, *resources.Registry) {
	t.Helper()
	reg := resources.NewRegistry(resources.NewInterner())
	for i, src := range sources {
		reg.Functions = append(reg.Functions, resources.FunctionSource{
			Name:   "chunk" + string(rune('a'+i)) + ".lua",
			Source: src,
		})
	}
	h, err := NewHost(reg, 100*time.Millisecond, log.New(os.Stdout, "[test] ", log.LstdFlags))
	if err != nil {
		t.Fatalf("new host: %v", err)
	}
	return h, reg
}

func mustFunction(t *testing.T, h *Host, reg *resources.Registry, id string) game.TileScript {
	t.Helper()
	s, ok := h.Function(reg.Interner.Intern(id))
	if !ok {
		t.Fatalf("function %s not registered", id)
	}
	return s
}

const echoChunk = `
local M = {}
function M.function_id()
	return "test:echo"
end
function M.handle_tick(input)
	input.data["test:last_tick"] = input.tick
	return {
		{ kind = "transfer", to = coord.RIGHT, stack = { id = "test:iron", amount = 2 } },
	}
end
function M.accept_transaction(input)
	return input.stack.amount <= 4
end
function M.config_ui(input)
	return ui.col({
		ui.label("Echo"),
		ui.input_amount("test:limit", 64),
	})
end
return M
`

func TestHostRegistersByFunctionId(t *testing.T) {
	h, reg := newTestHost(t, echoChunk)
	if h.Len() != 1 {
		t.Fatalf("len: want 1, got %d", h.Len())
	}
	if _, ok := h.Function(reg.Interner.Intern("test:echo")); !ok {
		t.Fatalf("declared id not registered")
	}
	if _, ok := h.Function(reg.Interner.Intern("test:ghost")); ok {
		t.Fatalf("undeclared id registered")
	}
}

func TestHostRejectsDuplicateIds(t *testing.T) {
	reg := resources.NewRegistry(resources.NewInterner())
	src := `return { function_id = function() return "test:dup" end }`
	reg.Functions = append(reg.Functions,
		resources.FunctionSource{Name: "a.lua", Source: src},
		resources.FunctionSource{Name: "b.lua", Source: src},
	)
	if _, err := NewHost(reg, time.Second, log.Default()); err == nil {
		t.Fatalf("duplicate function id accepted")
	}
}

func TestHostRejectsMissingId(t *testing.T) {
	reg := resources.NewRegistry(resources.NewInterner())
	reg.Functions = append(reg.Functions, resources.FunctionSource{
		Name: "a.lua", Source: `return {}`,
	})
	if _, err := NewHost(reg, time.Second, log.Default()); err == nil {
		t.Fatalf("chunk without function_id accepted")
	}
}

func TestHostRejectsParseError(t *testing.T) {
	reg := resources.NewRegistry(resources.NewInterner())
	reg.Functions = append(reg.Functions, resources.FunctionSource{
		Name: "a.lua", Source: `function(`,
	})
	if _, err := NewHost(reg, time.Second, log.Default()); err == nil {
		t.Fatalf("unparsable chunk accepted")
	}
}

func TestTickCommandsAndWriteBack(t *testing.T) {
	h, reg := newTestHost(t, echoChunk)
	s := mustFunction(t, h, reg, "test:echo")

	dm := data.NewDataMap()
	cmds, err := s.Tick(game.ScriptInput{
		Coord:  coord.New(0, 0),
		TileId: reg.Interner.Intern("test:echo_tile"),
		Tick:   7,
		Setup:  data.NewDataMap(),
		Data:   dm,
	})
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(cmds) != 1 {
		t.Fatalf("commands: %v", cmds)
	}
	tr, ok := cmds[0].(game.Transfer)
	if !ok {
		t.Fatalf("command type: %T", cmds[0])
	}
	if tr.To != coord.Right {
		t.Fatalf("transfer dir: %v", tr.To)
	}
	if tr.Stack.Id != reg.Interner.Intern("test:iron") || tr.Stack.Amount != 2 {
		t.Fatalf("transfer stack: %+v", tr.Stack)
	}
	// The script wrote into input.data; mutations land in the Go map.
	if v, ok := dm.Amount(reg.Interner.Intern("test:last_tick")); !ok || v != 7 {
		t.Fatalf("write-back: %v %v", v, ok)
	}
}

func TestFailedWriteBackLeavesDataUntouched(t *testing.T) {
	h, reg := newTestHost(t, `
local M = {}
function M.function_id() return "test:wreck" end
function M.handle_tick(input)
	input.data["test:buffer"] = nil
	input.data["bad::key"] = 1
	return {}
end
return M
`)
	s := mustFunction(t, h, reg, "test:wreck")

	iron := reg.Interner.Intern("test:iron")
	buffer := reg.Interner.Intern("test:buffer")
	dm := data.NewDataMap()
	dm.InventoryOrNew(buffer).Add(iron, 5)
	want := dm.Clone()

	if _, err := s.Tick(game.ScriptInput{
		TileId: reg.Interner.Intern("test:wreck_tile"),
		Setup:  data.NewDataMap(),
		Data:   dm,
	}); err == nil {
		t.Fatalf("malformed key accepted")
	}
	// The errored tick is a no-op: the deleted buffer entry survives.
	inv, ok := dm.Inventory(buffer)
	if !ok || inv.Get(iron) != 5 {
		t.Fatalf("errored tick mutated the map: %v %v", inv, ok)
	}
	if len(dm) != len(want) {
		t.Fatalf("errored tick changed key count: %v", dm)
	}
}

func TestAcceptTransaction(t *testing.T) {
	h, reg := newTestHost(t, echoChunk)
	s := mustFunction(t, h, reg, "test:echo")

	in := game.AcceptInput{
		Coord:     coord.New(0, 0),
		TileId:    reg.Interner.Intern("test:echo_tile"),
		Setup:     data.NewDataMap(),
		Data:      data.NewDataMap(),
		Stack:     data.ItemStack{Id: reg.Interner.Intern("test:iron"), Amount: 3},
		SourceDir: coord.Left,
	}
	ok, err := s.AcceptTransaction(in)
	if err != nil || !ok {
		t.Fatalf("small stack: %v %v", ok, err)
	}
	in.Stack.Amount = 5
	ok, err = s.AcceptTransaction(in)
	if err != nil || ok {
		t.Fatalf("large stack: %v %v", ok, err)
	}
}

func TestConfigUiTree(t *testing.T) {
	h, reg := newTestHost(t, echoChunk)
	s := mustFunction(t, h, reg, "test:echo")

	root, ok, err := s.ConfigUi(game.ScriptInput{
		Coord:  coord.New(0, 0),
		TileId: reg.Interner.Intern("test:echo_tile"),
		Setup:  data.NewDataMap(),
		Data:   data.NewDataMap(),
	})
	if err != nil || !ok {
		t.Fatalf("config ui: %v %v", ok, err)
	}
	if root.Kind != game.UiCol || len(root.Children) != 2 {
		t.Fatalf("root: %+v", root)
	}
	if root.Children[0].Kind != game.UiLabel || root.Children[0].Text != "Echo" {
		t.Fatalf("label child: %+v", root.Children[0])
	}
	amount := root.Children[1]
	if amount.Kind != game.UiInputAmount || amount.Max != 64 {
		t.Fatalf("amount child: %+v", amount)
	}
	if amount.DataKey != reg.Interner.Intern("test:limit") {
		t.Fatalf("amount key: %v", amount.DataKey)
	}
}

func TestMissingHooksHaveDefaults(t *testing.T) {
	h, reg := newTestHost(t, `return { function_id = function() return "test:bare" end }`)
	s := mustFunction(t, h, reg, "test:bare")

	cmds, err := s.Tick(game.ScriptInput{Data: data.NewDataMap(), Setup: data.NewDataMap()})
	if err != nil || cmds != nil {
		t.Fatalf("tick default: %v %v", cmds, err)
	}
	ok, err := s.AcceptTransaction(game.AcceptInput{Data: data.NewDataMap(), Setup: data.NewDataMap()})
	if err != nil || ok {
		t.Fatalf("accept default: %v %v", ok, err)
	}
	if _, ok, err := s.ConfigUi(game.ScriptInput{Data: data.NewDataMap(), Setup: data.NewDataMap()}); err != nil || ok {
		t.Fatalf("ui default: %v %v", ok, err)
	}
}

func TestBudgetCancelsRunawayScript(t *testing.T) {
	h, reg := newTestHost(t, `
local M = {}
function M.function_id() return "test:spin" end
function M.handle_tick(input)
	while true do end
end
return M
`)
	s := mustFunction(t, h, reg, "test:spin")

	start := time.Now()
	_, err := s.Tick(game.ScriptInput{Data: data.NewDataMap(), Setup: data.NewDataMap()})
	if err == nil {
		t.Fatalf("infinite loop returned")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("budget did not bound the call: %v", elapsed)
	}
}

func TestVmIsolationBetweenInstances(t *testing.T) {
	h, reg := newTestHost(t, `
local M = {}
local counter = 0
function M.function_id() return "test:count" end
function M.handle_tick(input)
	counter = counter + 1
	input.data["test:count"] = counter
	return {}
end
return M
`)
	a := mustFunction(t, h, reg, "test:count")
	b := mustFunction(t, h, reg, "test:count")

	key := reg.Interner.Intern("test:count")
	dm := data.NewDataMap()
	for i := 0; i < 3; i++ {
		if _, err := a.Tick(game.ScriptInput{Data: dm, Setup: data.NewDataMap()}); err != nil {
			t.Fatalf("tick a: %v", err)
		}
	}
	if v, _ := dm.Amount(key); v != 3 {
		t.Fatalf("instance a count: %d", v)
	}

	dm = data.NewDataMap()
	if _, err := b.Tick(game.ScriptInput{Data: dm, Setup: data.NewDataMap()}); err != nil {
		t.Fatalf("tick b: %v", err)
	}
	// b has its own upvalue; a's three ticks never touched it.
	if v, _ := dm.Amount(key); v != 1 {
		t.Fatalf("instance b count: %d", v)
	}
}

func TestScriptErrorSurfaces(t *testing.T) {
	h, reg := newTestHost(t, `
local M = {}
function M.function_id() return "test:boom" end
function M.handle_tick(input)
	error("kaput")
end
return M
`)
	s := mustFunction(t, h, reg, "test:boom")
	if _, err := s.Tick(game.ScriptInput{Data: data.NewDataMap(), Setup: data.NewDataMap()}); err == nil {
		t.Fatalf("runtime error swallowed")
	}
}

func TestExtractorMinesIntoItsBuffer(t *testing.T) {
	src, err := os.ReadFile(filepath.Join("..", "..", "packs", "base", "functions", "extractor.lua"))
	if err != nil {
		t.Fatalf("read extractor.lua: %v", err)
	}
	h, reg := newTestHost(t, string(src))
	s := mustFunction(t, h, reg, "automancy:extractor")

	ore := reg.Interner.Intern("automancy:iron_ore")
	setup := data.NewDataMap()
	setup.Set(reg.Interner.Intern("automancy:item"), data.IdRef(ore))
	dm := data.NewDataMap()
	dm.Set(reg.Interner.Intern("automancy:target"), data.Coord(coord.Right))

	in := game.ScriptInput{
		TileId: data.TileId(reg.Interner.Intern("automancy:extractor")),
		Setup:  setup,
		Data:   dm,
	}
	cmds, err := s.Tick(in)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(cmds) != 1 {
		t.Fatalf("commands: %v", cmds)
	}
	tr, ok := cmds[0].(game.Transfer)
	if !ok || tr.To != coord.Right || tr.Stack.Id != ore || tr.Stack.Amount != 1 {
		t.Fatalf("transfer: %+v", cmds[0])
	}
	// The mined unit lands in the buffer, so the transfer is backed.
	inv, ok := dm.Inventory(reg.Builtin.Buffer)
	if !ok || inv.Get(ore) != 1 {
		t.Fatalf("buffer after mining: %v %v", inv, ok)
	}

	// A rejected shipment stalls mining: the buffer holds at one unit.
	if _, err := s.Tick(in); err != nil {
		t.Fatalf("second tick: %v", err)
	}
	inv, _ = dm.Inventory(reg.Builtin.Buffer)
	if inv.Get(ore) != 1 {
		t.Fatalf("buffer after stalled tick: %v", inv)
	}
}
