package data

import "sort"

// Inventory maps item ids to stored amounts. Amounts never go negative;
// missing ids read as zero. Iteration order is by id handle so that any
// walk over an inventory is deterministic.
type Inventory map[Id]int

func NewInventory() Inventory { return Inventory{} }

func (inv Inventory) Get(id Id) int { return inv[id] }

// Add adds amount (which may be negative) and clamps the result at zero.
// Entries that reach zero are removed.
func (inv Inventory) Add(id Id, amount int) {
	n := inv[id] + amount
	if n <= 0 {
		delete(inv, id)
		return
	}
	inv[id] = n
}

// Take removes up to amount of id and returns how much was actually taken.
func (inv Inventory) Take(id Id, amount int) int {
	if amount <= 0 {
		return 0
	}
	have := inv[id]
	taken := amount
	if have < taken {
		taken = have
	}
	inv.Add(id, -taken)
	return taken
}

// Contains reports whether the full stack is present.
func (inv Inventory) Contains(s ItemStack) bool {
	if s.Empty() {
		return true
	}
	return inv[s.Id] >= s.Amount
}

// SortedIds returns the stored ids in handle order.
func (inv Inventory) SortedIds() []Id {
	ids := make([]Id, 0, len(inv))
	for id := range inv {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Total sums every stored amount.
func (inv Inventory) Total() int {
	n := 0
	for _, v := range inv {
		n += v
	}
	return n
}

// CloneInv copies the inventory. (Clone is taken by the Data interface.)
func (inv Inventory) CloneInv() Inventory {
	out := make(Inventory, len(inv))
	for k, v := range inv {
		out[k] = v
	}
	return out
}
