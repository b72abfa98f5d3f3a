package resources

import (
	"sort"
	"sync"

	"automancy.dev/internal/data"
)

type ItemDef struct {
	Id      data.Id
	ModelId data.Id
}

type TileDef struct {
	Id       data.TileId
	Function data.Id // script chunk that drives this tile, NoId for inert tiles
	Category data.Id
	ModelId  data.Id
	Data     data.DataMap // setup values copied into each placed tile
}

// RecipeDef maps input stacks consumed from a tile's buffer to the
// output stacks it emits.
type RecipeDef struct {
	Id      data.Id
	Inputs  []data.ItemStack
	Outputs []data.ItemStack
}

type TagDef struct {
	Id      data.Id
	Entries data.IdSet
}

type CategoryDef struct {
	Id   data.Id
	Ord  int
	Icon data.Id
	Item data.Id
}

type ResearchDef struct {
	Id            data.Id
	Category      data.Id
	DependsOn     data.Id
	Unlocks       []data.Id
	RequiredItems []data.ItemStack
}

// Mesh is an already-parsed model buffer; the renderer collaborator
// consumes it untouched.
type Mesh struct {
	Vertices []float32
	Indices  []uint32
}

type ModelDef struct {
	Id     data.Id
	File   string
	Meshes []Mesh
}

// FunctionSource is a script chunk as loaded from a pack, before the
// scripting host compiles it.
type FunctionSource struct {
	Name   string // file name, for error context
	Source string
}

// Builtin holds the sentinel and engine-level ids every component needs.
type Builtin struct {
	Any  data.Id // tag that matches every id
	None data.TileId

	ItemMissing data.Id
	TileMissing data.Id

	// DataMap keys the engine itself reads and writes.
	Buffer   data.Id // tile inventory
	Target   data.Id // configured output direction (Coord)
	Script   data.Id // configured recipe id
	Capacity data.Id // max stored amount per item
	Link     data.Id // linked coordinate

	UnlockedResearch data.Id // global game state: set of finished research
}

func newBuiltin(in *Interner) Builtin {
	id := func(s string) data.Id { return in.Intern(DefaultNamespace + ":" + s) }
	return Builtin{
		Any:              id("#any"),
		None:             id("none"),
		ItemMissing:      id("item_missing"),
		TileMissing:      id("tile_missing"),
		Buffer:           id("buffer"),
		Target:           id("target"),
		Script:           id("script"),
		Capacity:         id("capacity"),
		Link:             id("link"),
		UnlockedResearch: id("unlocked_research"),
	}
}

// Registry is the immutable post-load catalog of all definitions.
// A reload builds a fresh Registry (and a fresh Interner) from scratch.
type Registry struct {
	Interner *Interner
	Builtin  Builtin

	ItemDefs   map[data.Id]ItemDef
	TileDefs   map[data.TileId]TileDef
	RecipeDefs map[data.Id]RecipeDef
	TagDefs    map[data.Id]TagDef
	Categories map[data.Id]CategoryDef
	Research   map[data.Id]ResearchDef
	Models     map[data.Id]ModelDef
	Functions  []FunctionSource

	translate Translate

	tagMu    sync.RWMutex
	tagCache map[data.Id][]data.Id
}

func NewRegistry(in *Interner) *Registry {
	return &Registry{
		Interner:   in,
		Builtin:    newBuiltin(in),
		ItemDefs:   map[data.Id]ItemDef{},
		TileDefs:   map[data.TileId]TileDef{},
		RecipeDefs: map[data.Id]RecipeDef{},
		TagDefs:    map[data.Id]TagDef{},
		Categories: map[data.Id]CategoryDef{},
		Research:   map[data.Id]ResearchDef{},
		Models:     map[data.Id]ModelDef{},
		translate:  newTranslate(),
		tagCache:   map[data.Id][]data.Id{},
	}
}

func (r *Registry) Item(id data.Id) (ItemDef, bool) {
	d, ok := r.ItemDefs[id]
	return d, ok
}

func (r *Registry) Tile(id data.TileId) (TileDef, bool) {
	d, ok := r.TileDefs[id]
	return d, ok
}

func (r *Registry) Recipe(id data.Id) (RecipeDef, bool) {
	d, ok := r.RecipeDefs[id]
	return d, ok
}

func (r *Registry) Tag(id data.Id) (TagDef, bool) {
	d, ok := r.TagDefs[id]
	return d, ok
}

// ItemModel returns the model for an item, falling back to the
// item_missing sentinel when the item or its model is unknown.
func (r *Registry) ItemModel(id data.Id) data.Id {
	if d, ok := r.ItemDefs[id]; ok {
		if _, ok := r.Models[d.ModelId]; ok {
			return d.ModelId
		}
	}
	return r.Builtin.ItemMissing
}

// TileModel mirrors ItemModel for tile definitions.
func (r *Registry) TileModel(id data.TileId) data.Id {
	if d, ok := r.TileDefs[id]; ok {
		if _, ok := r.Models[d.ModelId]; ok {
			return d.ModelId
		}
	}
	return r.Builtin.TileMissing
}

// IdMatch reports whether candidate names query: either directly, or as a
// tag that contains it. The universal tag matches everything.
func (r *Registry) IdMatch(query, candidate data.Id) bool {
	if candidate == query {
		return true
	}
	if candidate == r.Builtin.Any {
		return true
	}
	if tag, ok := r.TagDefs[candidate]; ok {
		_, ok := tag.Entries[query]
		return ok
	}
	return false
}

// StackMatches reports whether any of the stacks names id.
func (r *Registry) StackMatches(id data.Id, stacks []data.ItemStack) bool {
	for _, s := range stacks {
		if r.IdMatch(id, s.Id) {
			return true
		}
	}
	return false
}

// ItemsOfTag returns the item ids matching the tag, ordered by translated
// name, cached per tag. The cache lives as long as the registry.
func (r *Registry) ItemsOfTag(tag data.Id) []data.Id {
	r.tagMu.RLock()
	cached, ok := r.tagCache[tag]
	r.tagMu.RUnlock()
	if ok {
		return cached
	}

	var ids []data.Id
	for id := range r.ItemDefs {
		if r.IdMatch(id, tag) {
			ids = append(ids, id)
		}
	}
	r.sortByName(ids)

	r.tagMu.Lock()
	r.tagCache[tag] = ids
	r.tagMu.Unlock()
	return ids
}

// OrderedItems returns every item id sorted by translated name.
func (r *Registry) OrderedItems() []data.Id {
	ids := make([]data.Id, 0, len(r.ItemDefs))
	for id := range r.ItemDefs {
		ids = append(ids, id)
	}
	r.sortByName(ids)
	return ids
}

// OrderedTiles returns every tile id sorted by translated name, with the
// none tile moved to the front.
func (r *Registry) OrderedTiles() []data.TileId {
	ids := make([]data.TileId, 0, len(r.TileDefs))
	for id := range r.TileDefs {
		ids = append(ids, id)
	}
	r.sortByName(ids)
	for i, id := range ids {
		if id == r.Builtin.None {
			copy(ids[1:i+1], ids[:i])
			ids[0] = id
			break
		}
	}
	return ids
}

func (r *Registry) sortByName(ids []data.Id) {
	sort.Slice(ids, func(i, j int) bool {
		a, b := r.Name(ids[i]), r.Name(ids[j])
		if a != b {
			return a < b
		}
		return ids[i] < ids[j]
	})
}
