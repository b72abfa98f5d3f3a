package resources

import (
	"os"
	"path/filepath"
	"testing"
)

func writePack(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, body := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

func TestLoadPack(t *testing.T) {
	root := t.TempDir()
	writePack(t, root, map[string]string{
		"items/iron_ore.json":   `{"id": "t:iron_ore", "model": "t:model/item"}`,
		"items/iron_ingot.json": `{"id": "t:iron_ingot"}`,
		"tiles/smelter.json": `{
			"id": "t:smelter",
			"function": "t:machine",
			"data": {"t:capacity": {"kind": "amount", "amount": 8}}
		}`,
		"recipes/smelting.json": `{
			"id": "t:smelting",
			"inputs": [{"id": "t:iron_ore", "amount": 1}],
			"outputs": [{"id": "t:iron_ingot", "amount": 1}]
		}`,
		"tags/ores.json":           `{"id": "t:#ores", "entries": ["t:iron_ore"]}`,
		"categories/machines.json": `{"id": "t:machines", "ord": 1}`,
		"models/item.json":         `{"id": "t:model/item", "file": "item.gltf"}`,
		"translates/en.json":       `{"names": {"t:iron_ore": "Iron Ore"}, "strings": {"t:greet": "hi"}}`,
		"functions/machine.lua":    `return {}`,
	})

	reg, _, err := Load([]string{root})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	ore := reg.Interner.Intern("t:iron_ore")
	if _, ok := reg.Item(ore); !ok {
		t.Fatalf("item not loaded")
	}
	tile, ok := reg.Tile(reg.Interner.Intern("t:smelter"))
	if !ok {
		t.Fatalf("tile not loaded")
	}
	if tile.Function != reg.Interner.Intern("t:machine") {
		t.Fatalf("tile function not interned")
	}
	if v, ok := tile.Data.Amount(reg.Interner.Intern("t:capacity")); !ok || v != 8 {
		t.Fatalf("tile data: %v %v", v, ok)
	}
	rc, ok := reg.Recipe(reg.Interner.Intern("t:smelting"))
	if !ok || len(rc.Inputs) != 1 || len(rc.Outputs) != 1 {
		t.Fatalf("recipe: %+v %v", rc, ok)
	}
	if tag, ok := reg.Tag(reg.Interner.Intern("t:#ores")); !ok || len(tag.Entries) != 1 {
		t.Fatalf("tag: %+v %v", tag, ok)
	}
	if got := reg.Name(ore); got != "Iron Ore" {
		t.Fatalf("name: %q", got)
	}
	if s, ok := reg.String(reg.Interner.Intern("t:greet")); !ok || s != "hi" {
		t.Fatalf("string: %q %v", s, ok)
	}
	if len(reg.Functions) != 1 || reg.Functions[0].Name != "machine.lua" {
		t.Fatalf("functions: %+v", reg.Functions)
	}
	// The none tile exists even though the pack never defines it.
	if _, ok := reg.Tile(reg.Builtin.None); !ok {
		t.Fatalf("none tile missing")
	}
}

func TestLoadRejectsSchemaViolation(t *testing.T) {
	root := t.TempDir()
	writePack(t, root, map[string]string{
		"items/broken.json": `{"model": "t:model/item"}`,
	})
	if _, _, err := Load([]string{root}); err == nil {
		t.Fatalf("record without id accepted")
	}
}

func TestLoadRejectsDanglingTagEntry(t *testing.T) {
	root := t.TempDir()
	writePack(t, root, map[string]string{
		"tags/ores.json": `{"id": "t:#ores", "entries": ["t:ghost"]}`,
	})
	if _, _, err := Load([]string{root}); err == nil {
		t.Fatalf("tag with unknown entry accepted")
	}
}

func TestLoadLaterPackOverrides(t *testing.T) {
	base, mod := t.TempDir(), t.TempDir()
	writePack(t, base, map[string]string{
		"items/iron.json":    `{"id": "t:iron"}`,
		"translates/en.json": `{"names": {"t:iron": "Iron"}}`,
	})
	writePack(t, mod, map[string]string{
		"translates/en.json": `{"names": {"t:iron": "Ferrum"}}`,
	})

	reg, _, err := Load([]string{base, mod})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := reg.Name(reg.Interner.Intern("t:iron")); got != "Ferrum" {
		t.Fatalf("override lost: %q", got)
	}
}

func TestLoadMissingDirsAreFine(t *testing.T) {
	reg, _, err := Load([]string{t.TempDir()})
	if err != nil {
		t.Fatalf("empty pack: %v", err)
	}
	if _, ok := reg.Tile(reg.Builtin.None); !ok {
		t.Fatalf("none tile missing from empty pack")
	}
}
