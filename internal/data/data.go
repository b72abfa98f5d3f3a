package data

import "automancy.dev/internal/coord"

// Data is the tagged union of values a DataMap can hold.
type Data interface {
	isData()
	Clone() Data
}

type Bool bool

// Amount is the integer variant.
type Amount int

// Coord wraps a tile coordinate.
type Coord coord.TileCoord

// CoordSet is an unordered set of coordinates.
type CoordSet map[coord.TileCoord]struct{}

// IdRef wraps a single interned id.
type IdRef Id

// IdSet is an unordered set of interned ids.
type IdSet map[Id]struct{}

// Stack wraps a single item stack.
type Stack ItemStack

// Stacks is an ordered list of item stacks.
type Stacks []ItemStack

func (Bool) isData()      {}
func (Amount) isData()    {}
func (Coord) isData()     {}
func (CoordSet) isData()  {}
func (IdRef) isData()     {}
func (IdSet) isData()     {}
func (Inventory) isData() {}
func (Stack) isData()     {}
func (Stacks) isData()    {}

func (d Bool) Clone() Data   { return d }
func (d Amount) Clone() Data { return d }
func (d Coord) Clone() Data  { return d }
func (d CoordSet) Clone() Data {
	out := make(CoordSet, len(d))
	for k := range d {
		out[k] = struct{}{}
	}
	return out
}
func (d IdRef) Clone() Data { return d }
func (d IdSet) Clone() Data {
	out := make(IdSet, len(d))
	for k := range d {
		out[k] = struct{}{}
	}
	return out
}
func (d Inventory) Clone() Data { return d.CloneInv() }
func (d Stack) Clone() Data     { return d }
func (d Stacks) Clone() Data {
	out := make(Stacks, len(d))
	copy(out, d)
	return out
}

// DataMap maps ids to typed values. It is the payload inside every tile
// and inside the global game state.
type DataMap map[Id]Data

func NewDataMap() DataMap { return DataMap{} }

func (m DataMap) Get(id Id) (Data, bool) {
	d, ok := m[id]
	return d, ok
}

func (m DataMap) Set(id Id, d Data) { m[id] = d }

func (m DataMap) Remove(id Id) { delete(m, id) }

// Merge copies every entry of other into m, overwriting existing keys.
func (m DataMap) Merge(other DataMap) {
	for k, v := range other {
		m[k] = v.Clone()
	}
}

func (m DataMap) Clone() DataMap {
	out := make(DataMap, len(m))
	for k, v := range m {
		out[k] = v.Clone()
	}
	return out
}

// Typed accessors. Each returns the zero value and false when the key is
// missing or holds a different variant.

func (m DataMap) Bool(id Id) (bool, bool) {
	if v, ok := m[id].(Bool); ok {
		return bool(v), true
	}
	return false, false
}

func (m DataMap) Amount(id Id) (int, bool) {
	if v, ok := m[id].(Amount); ok {
		return int(v), true
	}
	return 0, false
}

func (m DataMap) Coord(id Id) (coord.TileCoord, bool) {
	if v, ok := m[id].(Coord); ok {
		return coord.TileCoord(v), true
	}
	return coord.TileCoord{}, false
}

func (m DataMap) CoordSet(id Id) (CoordSet, bool) {
	v, ok := m[id].(CoordSet)
	return v, ok
}

func (m DataMap) Id(id Id) (Id, bool) {
	if v, ok := m[id].(IdRef); ok {
		return Id(v), true
	}
	return NoId, false
}

func (m DataMap) IdSet(id Id) (IdSet, bool) {
	v, ok := m[id].(IdSet)
	return v, ok
}

func (m DataMap) Inventory(id Id) (Inventory, bool) {
	v, ok := m[id].(Inventory)
	return v, ok
}

// InventoryOrNew returns the inventory under id, creating it if absent.
func (m DataMap) InventoryOrNew(id Id) Inventory {
	if v, ok := m[id].(Inventory); ok {
		return v
	}
	inv := NewInventory()
	m[id] = inv
	return inv
}

func (m DataMap) Stack(id Id) (ItemStack, bool) {
	if v, ok := m[id].(Stack); ok {
		return ItemStack(v), true
	}
	return ItemStack{}, false
}

func (m DataMap) Stacks(id Id) (Stacks, bool) {
	v, ok := m[id].(Stacks)
	return v, ok
}
