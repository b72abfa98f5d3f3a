// Package data holds the typed values attached to tiles and to the global
// game state: interned identifiers, the Data sum type, DataMap, inventories
// and item stacks, plus their raw string-id forms used by persistence.
package data

// Id is a dense handle issued by the interner for a "namespace:name"
// identifier. The zero value is never issued and means "unset".
type Id int

const NoId Id = 0

// TileId is an Id that refers to a tile definition.
type TileId = Id

func (id Id) Valid() bool { return id != NoId }

// ItemStack is an amount of one item. Non-positive amounts are legal in
// messages (they act as no-ops); stored inventories clamp to non-negative.
type ItemStack struct {
	Id     Id
	Amount int
}

func (s ItemStack) Empty() bool { return !s.Id.Valid() || s.Amount <= 0 }
