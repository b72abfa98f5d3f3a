package script

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"automancy.dev/internal/coord"
	"automancy.dev/internal/data"
	"automancy.dev/internal/resources"
)

// Everything crossing the VM boundary is plain data: booleans, numbers,
// strings (ids in "ns:name" form) and tables. No host references leak in.

func (s *luaScript) newCoord(c coord.TileCoord) *lua.LTable {
	t := s.L.NewTable()
	t.RawSetString("q", lua.LNumber(c.Q))
	t.RawSetString("r", lua.LNumber(c.R))
	s.L.SetMetatable(t, s.coordMT)
	return t
}

func coordFromTable(t *lua.LTable) (coord.TileCoord, bool) {
	q, qok := t.RawGetString("q").(lua.LNumber)
	r, rok := t.RawGetString("r").(lua.LNumber)
	if !qok || !rok {
		return coord.TileCoord{}, false
	}
	return coord.New(int(q), int(r)), true
}

func (s *luaScript) resolveId(id data.Id) lua.LString {
	if !id.Valid() {
		return ""
	}
	return lua.LString(s.reg.Interner.Resolve(id))
}

func (s *luaScript) internId(v lua.LValue) (data.Id, error) {
	str, ok := v.(lua.LString)
	if !ok {
		return data.NoId, fmt.Errorf("expected id string, got %s", v.Type())
	}
	return s.reg.Interner.Parse(string(str), resources.DefaultNamespace)
}

func (s *luaScript) stackToLua(st data.ItemStack) *lua.LTable {
	t := s.L.NewTable()
	t.RawSetString("id", s.resolveId(st.Id))
	t.RawSetString("amount", lua.LNumber(st.Amount))
	return t
}

func (s *luaScript) stackFromLua(v lua.LValue) (data.ItemStack, error) {
	t, ok := v.(*lua.LTable)
	if !ok {
		return data.ItemStack{}, fmt.Errorf("expected stack table, got %s", v.Type())
	}
	id, err := s.internId(t.RawGetString("id"))
	if err != nil {
		return data.ItemStack{}, err
	}
	amount, ok := t.RawGetString("amount").(lua.LNumber)
	if !ok {
		return data.ItemStack{}, fmt.Errorf("stack without amount")
	}
	return data.ItemStack{Id: id, Amount: int(amount)}, nil
}

// dataToLua lowers one Data value into its plain Lua form.
func (s *luaScript) dataToLua(d data.Data) lua.LValue {
	switch v := d.(type) {
	case data.Bool:
		return lua.LBool(v)
	case data.Amount:
		return lua.LNumber(v)
	case data.Coord:
		return s.newCoord(coord.TileCoord(v))
	case data.CoordSet:
		t := s.L.NewTable()
		i := 1
		for c := range v {
			t.RawSetInt(i, s.newCoord(c))
			i++
		}
		return t
	case data.IdRef:
		return s.resolveId(data.Id(v))
	case data.IdSet:
		t := s.L.NewTable()
		i := 1
		for id := range v {
			t.RawSetInt(i, s.resolveId(id))
			i++
		}
		return t
	case data.Inventory:
		t := s.L.NewTable()
		for _, id := range v.SortedIds() {
			t.RawSetString(string(s.resolveId(id)), lua.LNumber(v[id]))
		}
		return t
	case data.Stack:
		return s.stackToLua(data.ItemStack(v))
	case data.Stacks:
		t := s.L.NewTable()
		for i, st := range v {
			t.RawSetInt(i+1, s.stackToLua(st))
		}
		return t
	default:
		return lua.LNil
	}
}

// dataFromLua lifts a plain Lua value back into a Data variant. The
// shape decides the variant; scripts only ever see the shapes dataToLua
// produces.
func (s *luaScript) dataFromLua(v lua.LValue) (data.Data, error) {
	switch lv := v.(type) {
	case lua.LBool:
		return data.Bool(lv), nil
	case lua.LNumber:
		return data.Amount(int(lv)), nil
	case lua.LString:
		id, err := s.internId(lv)
		if err != nil {
			return nil, err
		}
		return data.IdRef(id), nil
	case *lua.LTable:
		return s.dataFromTable(lv)
	default:
		return nil, fmt.Errorf("cannot store %s in a data map", v.Type())
	}
}

func (s *luaScript) dataFromTable(t *lua.LTable) (data.Data, error) {
	// Coord and stack shapes are keyed tables.
	if c, ok := coordFromTable(t); ok {
		return data.Coord(c), nil
	}
	if t.RawGetString("id") != lua.LNil {
		st, err := s.stackFromLua(t)
		if err != nil {
			return nil, err
		}
		return data.Stack(st), nil
	}

	// Array part decides between the sequence shapes.
	if first := t.RawGetInt(1); first != lua.LNil {
		switch fv := first.(type) {
		case lua.LString:
			set := data.IdSet{}
			var err error
			t.ForEach(func(_, v lua.LValue) {
				if err != nil {
					return
				}
				id, e := s.internId(v)
				if e != nil {
					err = e
					return
				}
				set[id] = struct{}{}
			})
			return set, err
		case *lua.LTable:
			if c, ok := coordFromTable(fv); ok {
				set := data.CoordSet{c: {}}
				var err error
				t.ForEach(func(_, v lua.LValue) {
					if err != nil {
						return
					}
					ct, ok := v.(*lua.LTable)
					if !ok {
						err = fmt.Errorf("mixed coord set")
						return
					}
					if c, ok := coordFromTable(ct); ok {
						set[c] = struct{}{}
					}
				})
				return set, err
			}
			var stacks data.Stacks
			var err error
			t.ForEach(func(_, v lua.LValue) {
				if err != nil {
					return
				}
				st, e := s.stackFromLua(v)
				if e != nil {
					err = e
					return
				}
				stacks = append(stacks, st)
			})
			return stacks, err
		default:
			return nil, fmt.Errorf("unsupported sequence element %s", first.Type())
		}
	}

	// Anything else, including the empty table, is an inventory keyed by
	// id strings.
	inv := data.NewInventory()
	var err error
	t.ForEach(func(k, v lua.LValue) {
		if err != nil {
			return
		}
		id, e := s.internId(k)
		if e != nil {
			err = e
			return
		}
		n, ok := v.(lua.LNumber)
		if !ok {
			err = fmt.Errorf("inventory amount must be a number")
			return
		}
		inv.Add(id, int(n))
	})
	return inv, err
}

// dataMapToLua lowers a whole DataMap, keyed by id strings.
func (s *luaScript) dataMapToLua(m data.DataMap) *lua.LTable {
	t := s.L.NewTable()
	for id, d := range m {
		t.RawSetString(string(s.resolveId(id)), s.dataToLua(d))
	}
	return t
}

// dataMapFromLua lifts a Lua table back into m, replacing its contents.
func (s *luaScript) dataMapFromLua(t *lua.LTable, m data.DataMap) error {
	for k := range m {
		delete(m, k)
	}
	var err error
	t.ForEach(func(k, v lua.LValue) {
		if err != nil {
			return
		}
		id, e := s.internId(k)
		if e != nil {
			err = e
			return
		}
		d, e := s.dataFromLua(v)
		if e != nil {
			err = e
			return
		}
		m[id] = d
	})
	return err
}
