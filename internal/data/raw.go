package data

import (
	"fmt"
	"sort"

	"automancy.dev/internal/coord"
)

// Raw forms resolve interned handles back to their string ids so that a
// persisted map survives a registry rebuild. Loading re-interns every id;
// handles are not stable across loads.

const (
	KindBool      = "bool"
	KindAmount    = "amount"
	KindCoord     = "coord"
	KindCoordSet  = "coord_set"
	KindId        = "id"
	KindIdSet     = "id_set"
	KindInventory = "inventory"
	KindStack     = "stack"
	KindStacks    = "stacks"
)

type RawItemStack struct {
	Id     string `json:"id"`
	Amount int    `json:"amount"`
}

type RawData struct {
	Kind string `json:"kind"`

	Bool      bool              `json:"bool,omitempty"`
	Amount    int               `json:"amount,omitempty"`
	Coord     *coord.TileCoord  `json:"coord,omitempty"`
	Coords    []coord.TileCoord `json:"coords,omitempty"`
	Id        string            `json:"id,omitempty"`
	Ids       []string          `json:"ids,omitempty"`
	Inventory []RawItemStack    `json:"inventory,omitempty"`
	Stack     *RawItemStack     `json:"stack,omitempty"`
	Stacks    []RawItemStack    `json:"stacks,omitempty"`
}

// RawDataMap is the string-keyed form of a DataMap.
type RawDataMap map[string]RawData

// Resolve turns an issued handle back into its string form. Infallible
// for handles the interner issued.
type Resolve func(Id) string

// Intern turns a string id into a handle, issuing one if needed.
type Intern func(string) (Id, error)

// ToRaw resolves d into its raw form.
func ToRaw(d Data, resolve Resolve) RawData {
	switch v := d.(type) {
	case Bool:
		return RawData{Kind: KindBool, Bool: bool(v)}
	case Amount:
		return RawData{Kind: KindAmount, Amount: int(v)}
	case Coord:
		c := coord.TileCoord(v)
		return RawData{Kind: KindCoord, Coord: &c}
	case CoordSet:
		coords := make([]coord.TileCoord, 0, len(v))
		for c := range v {
			coords = append(coords, c)
		}
		sort.Slice(coords, func(i, j int) bool { return coords[i].Less(coords[j]) })
		return RawData{Kind: KindCoordSet, Coords: coords}
	case IdRef:
		return RawData{Kind: KindId, Id: resolve(Id(v))}
	case IdSet:
		ids := make([]string, 0, len(v))
		for id := range v {
			ids = append(ids, resolve(id))
		}
		sort.Strings(ids)
		return RawData{Kind: KindIdSet, Ids: ids}
	case Inventory:
		out := make([]RawItemStack, 0, len(v))
		for _, id := range v.SortedIds() {
			out = append(out, RawItemStack{Id: resolve(id), Amount: v[id]})
		}
		return RawData{Kind: KindInventory, Inventory: out}
	case Stack:
		return RawData{Kind: KindStack, Stack: &RawItemStack{Id: resolve(v.Id), Amount: v.Amount}}
	case Stacks:
		out := make([]RawItemStack, 0, len(v))
		for _, s := range v {
			out = append(out, RawItemStack{Id: resolve(s.Id), Amount: s.Amount})
		}
		return RawData{Kind: KindStacks, Stacks: out}
	default:
		panic(fmt.Sprintf("data: unknown variant %T", d))
	}
}

// FromRaw re-interns r into a live Data value.
func FromRaw(r RawData, intern Intern) (Data, error) {
	switch r.Kind {
	case KindBool:
		return Bool(r.Bool), nil
	case KindAmount:
		return Amount(r.Amount), nil
	case KindCoord:
		if r.Coord == nil {
			return nil, fmt.Errorf("data: coord kind without coord")
		}
		return Coord(*r.Coord), nil
	case KindCoordSet:
		set := make(CoordSet, len(r.Coords))
		for _, c := range r.Coords {
			set[c] = struct{}{}
		}
		return set, nil
	case KindId:
		id, err := intern(r.Id)
		if err != nil {
			return nil, err
		}
		return IdRef(id), nil
	case KindIdSet:
		set := make(IdSet, len(r.Ids))
		for _, s := range r.Ids {
			id, err := intern(s)
			if err != nil {
				return nil, err
			}
			set[id] = struct{}{}
		}
		return set, nil
	case KindInventory:
		inv := NewInventory()
		for _, e := range r.Inventory {
			id, err := intern(e.Id)
			if err != nil {
				return nil, err
			}
			inv.Add(id, e.Amount)
		}
		return inv, nil
	case KindStack:
		if r.Stack == nil {
			return nil, fmt.Errorf("data: stack kind without stack")
		}
		id, err := intern(r.Stack.Id)
		if err != nil {
			return nil, err
		}
		return Stack(ItemStack{Id: id, Amount: r.Stack.Amount}), nil
	case KindStacks:
		out := make(Stacks, 0, len(r.Stacks))
		for _, e := range r.Stacks {
			id, err := intern(e.Id)
			if err != nil {
				return nil, err
			}
			out = append(out, ItemStack{Id: id, Amount: e.Amount})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("data: unknown kind %q", r.Kind)
	}
}

// MapToRaw resolves every entry of m.
func MapToRaw(m DataMap, resolve Resolve) RawDataMap {
	out := make(RawDataMap, len(m))
	for id, d := range m {
		out[resolve(id)] = ToRaw(d, resolve)
	}
	return out
}

// MapFromRaw re-interns every entry of raw.
func MapFromRaw(raw RawDataMap, intern Intern) (DataMap, error) {
	out := make(DataMap, len(raw))
	for key, r := range raw {
		id, err := intern(key)
		if err != nil {
			return nil, err
		}
		d, err := FromRaw(r, intern)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		out[id] = d
	}
	return out, nil
}
