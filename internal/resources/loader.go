package resources

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"automancy.dev/internal/data"
)

// Raw record shapes as they appear on disk. Every reference is a string
// id; interning happens while the registry is built.

type rawStack struct {
	Id     string `json:"id"`
	Amount int    `json:"amount"`
}

type rawItem struct {
	Id    string `json:"id"`
	Model string `json:"model,omitempty"`
}

type rawTile struct {
	Id       string          `json:"id"`
	Function string          `json:"function,omitempty"`
	Category string          `json:"category,omitempty"`
	Model    string          `json:"model,omitempty"`
	Data     data.RawDataMap `json:"data,omitempty"`
}

type rawRecipe struct {
	Id      string     `json:"id"`
	Inputs  []rawStack `json:"inputs,omitempty"`
	Outputs []rawStack `json:"outputs"`
}

type rawTag struct {
	Id      string   `json:"id"`
	Entries []string `json:"entries"`
}

type rawCategory struct {
	Id   string `json:"id"`
	Ord  int    `json:"ord"`
	Icon string `json:"icon,omitempty"`
	Item string `json:"item,omitempty"`
}

type rawResearch struct {
	Id            string     `json:"id"`
	Category      string     `json:"category,omitempty"`
	DependsOn     string     `json:"depends_on,omitempty"`
	Unlocks       []string   `json:"unlocks,omitempty"`
	RequiredItems []rawStack `json:"required_items,omitempty"`
}

type rawModel struct {
	Id   string `json:"id"`
	File string `json:"file"`
}

type rawTranslate struct {
	Names   map[string]string `json:"names,omitempty"`
	Strings map[string]string `json:"strings,omitempty"`
}

// Assets are the opaque files the core only enumerates for its
// collaborators (audio, fonts, shader code, model buffers).
type Assets struct {
	Audio   []string
	Fonts   []string
	Shaders []string
	Models  []string
}

// Load reads every pack root in order and builds a fresh interner and
// registry. Later packs may extend earlier ones; a record with an id seen
// before replaces it, which is how mods override base content.
func Load(packRoots []string) (*Registry, *Assets, error) {
	schemas, err := compileSchemas()
	if err != nil {
		return nil, nil, err
	}

	in := NewInterner()
	reg := NewRegistry(in)
	assets := &Assets{}

	for _, root := range packRoots {
		if err := loadPack(reg, assets, schemas, root); err != nil {
			return nil, nil, fmt.Errorf("pack %s: %w", root, err)
		}
	}
	// The none tile always exists, even for packs that never mention it.
	if _, ok := reg.TileDefs[reg.Builtin.None]; !ok {
		reg.TileDefs[reg.Builtin.None] = TileDef{Id: reg.Builtin.None, Data: data.NewDataMap()}
	}
	if err := verify(reg); err != nil {
		return nil, nil, err
	}
	return reg, assets, nil
}

func loadPack(reg *Registry, assets *Assets, schemas *schemaSet, root string) error {
	intern := func(s string) (data.Id, error) { return reg.Interner.Parse(s, DefaultNamespace) }

	if err := eachRecord(filepath.Join(root, "items"), ".json", func(path string, raw []byte) error {
		var r rawItem
		if err := decodeRecord(schemas.item, raw, &r); err != nil {
			return err
		}
		id, err := intern(r.Id)
		if err != nil {
			return err
		}
		def := ItemDef{Id: id}
		if r.Model != "" {
			if def.ModelId, err = intern(r.Model); err != nil {
				return err
			}
		}
		reg.ItemDefs[id] = def
		return nil
	}); err != nil {
		return err
	}

	if err := eachRecord(filepath.Join(root, "tiles"), ".json", func(path string, raw []byte) error {
		var r rawTile
		if err := decodeRecord(schemas.tile, raw, &r); err != nil {
			return err
		}
		id, err := intern(r.Id)
		if err != nil {
			return err
		}
		def := TileDef{Id: id, Data: data.NewDataMap()}
		if r.Function != "" {
			if def.Function, err = intern(r.Function); err != nil {
				return err
			}
		}
		if r.Category != "" {
			if def.Category, err = intern(r.Category); err != nil {
				return err
			}
		}
		if r.Model != "" {
			if def.ModelId, err = intern(r.Model); err != nil {
				return err
			}
		}
		if r.Data != nil {
			if def.Data, err = data.MapFromRaw(r.Data, intern); err != nil {
				return err
			}
		}
		reg.TileDefs[id] = def
		return nil
	}); err != nil {
		return err
	}

	if err := eachRecord(filepath.Join(root, "recipes"), ".json", func(path string, raw []byte) error {
		var r rawRecipe
		if err := decodeRecord(schemas.recipe, raw, &r); err != nil {
			return err
		}
		id, err := intern(r.Id)
		if err != nil {
			return err
		}
		def := RecipeDef{Id: id}
		if def.Inputs, err = internStacks(intern, r.Inputs); err != nil {
			return err
		}
		if def.Outputs, err = internStacks(intern, r.Outputs); err != nil {
			return err
		}
		reg.RecipeDefs[id] = def
		return nil
	}); err != nil {
		return err
	}

	if err := eachRecord(filepath.Join(root, "tags"), ".json", func(path string, raw []byte) error {
		var r rawTag
		if err := decodeRecord(schemas.tag, raw, &r); err != nil {
			return err
		}
		id, err := intern(r.Id)
		if err != nil {
			return err
		}
		def := TagDef{Id: id, Entries: data.IdSet{}}
		for _, e := range r.Entries {
			eid, err := intern(e)
			if err != nil {
				return err
			}
			def.Entries[eid] = struct{}{}
		}
		reg.TagDefs[id] = def
		return nil
	}); err != nil {
		return err
	}

	if err := eachRecord(filepath.Join(root, "categories"), ".json", func(path string, raw []byte) error {
		var r rawCategory
		if err := decodeRecord(schemas.category, raw, &r); err != nil {
			return err
		}
		id, err := intern(r.Id)
		if err != nil {
			return err
		}
		def := CategoryDef{Id: id, Ord: r.Ord}
		if r.Icon != "" {
			if def.Icon, err = intern(r.Icon); err != nil {
				return err
			}
		}
		if r.Item != "" {
			if def.Item, err = intern(r.Item); err != nil {
				return err
			}
		}
		reg.Categories[id] = def
		return nil
	}); err != nil {
		return err
	}

	if err := eachRecord(filepath.Join(root, "research"), ".json", func(path string, raw []byte) error {
		var r rawResearch
		if err := decodeRecord(schemas.research, raw, &r); err != nil {
			return err
		}
		id, err := intern(r.Id)
		if err != nil {
			return err
		}
		def := ResearchDef{Id: id}
		if r.Category != "" {
			if def.Category, err = intern(r.Category); err != nil {
				return err
			}
		}
		if r.DependsOn != "" {
			if def.DependsOn, err = intern(r.DependsOn); err != nil {
				return err
			}
		}
		for _, u := range r.Unlocks {
			uid, err := intern(u)
			if err != nil {
				return err
			}
			def.Unlocks = append(def.Unlocks, uid)
		}
		if def.RequiredItems, err = internStacks(intern, r.RequiredItems); err != nil {
			return err
		}
		reg.Research[id] = def
		return nil
	}); err != nil {
		return err
	}

	if err := eachRecord(filepath.Join(root, "models"), ".json", func(path string, raw []byte) error {
		var r rawModel
		if err := decodeRecord(schemas.model, raw, &r); err != nil {
			return err
		}
		id, err := intern(r.Id)
		if err != nil {
			return err
		}
		reg.Models[id] = ModelDef{Id: id, File: filepath.Join(filepath.Dir(path), "files", r.File)}
		return nil
	}); err != nil {
		return err
	}

	if err := eachRecord(filepath.Join(root, "translates"), ".json", func(path string, raw []byte) error {
		var r rawTranslate
		if err := decodeRecord(schemas.translate, raw, &r); err != nil {
			return err
		}
		for k, v := range r.Names {
			id, err := intern(k)
			if err != nil {
				return err
			}
			reg.translate.Names[id] = v
		}
		for k, v := range r.Strings {
			id, err := intern(k)
			if err != nil {
				return err
			}
			reg.translate.Strings[id] = v
		}
		return nil
	}); err != nil {
		return err
	}

	if err := eachRecord(filepath.Join(root, "functions"), ".lua", func(path string, raw []byte) error {
		reg.Functions = append(reg.Functions, FunctionSource{
			Name:   filepath.Base(path),
			Source: string(raw),
		})
		return nil
	}); err != nil {
		return err
	}

	assets.Audio = append(assets.Audio, listFiles(filepath.Join(root, "audio"), ".ogg")...)
	assets.Fonts = append(assets.Fonts, listFiles(filepath.Join(root, "fonts"), ".ttf", ".otf")...)
	assets.Shaders = append(assets.Shaders, listFiles(filepath.Join(root, "shaders"), ".wgsl")...)
	assets.Models = append(assets.Models, listFiles(filepath.Join(root, "models", "files"), ".gltf")...)
	return nil
}

// verify checks cross-references that individual records cannot. Model
// lookups fall back to the missing sentinels, so only genuinely broken
// references fail here.
func verify(reg *Registry) error {
	for id, t := range reg.TagDefs {
		for e := range t.Entries {
			if _, ok := reg.ItemDefs[e]; ok {
				continue
			}
			if _, ok := reg.TileDefs[e]; ok {
				continue
			}
			return fmt.Errorf("tag %s: unknown entry %s",
				reg.Interner.Resolve(id), reg.Interner.Resolve(e))
		}
	}
	for id, rc := range reg.RecipeDefs {
		for _, s := range append(append([]data.ItemStack{}, rc.Inputs...), rc.Outputs...) {
			if _, ok := reg.ItemDefs[s.Id]; ok {
				continue
			}
			if _, ok := reg.TagDefs[s.Id]; ok {
				continue
			}
			return fmt.Errorf("recipe %s: unknown item %s",
				reg.Interner.Resolve(id), reg.Interner.Resolve(s.Id))
		}
	}
	return nil
}

func internStacks(intern data.Intern, in []rawStack) ([]data.ItemStack, error) {
	var out []data.ItemStack
	for _, s := range in {
		id, err := intern(s.Id)
		if err != nil {
			return nil, err
		}
		out = append(out, data.ItemStack{Id: id, Amount: s.Amount})
	}
	return out, nil
}

// eachRecord walks dir recursively, calling fn for every file with the
// given extension in sorted path order. A missing directory is fine; a
// failing record aborts the load with its path attached.
func eachRecord(dir, ext string, fn func(path string, raw []byte) error) error {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(d.Name(), ext) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	sort.Strings(files)

	for _, p := range files {
		raw, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		if err := fn(p, raw); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func listFiles(dir string, exts ...string) []string {
	var out []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		for _, ext := range exts {
			if strings.HasSuffix(d.Name(), ext) {
				out = append(out, path)
				break
			}
		}
		return nil
	})
	sort.Strings(out)
	return out
}
