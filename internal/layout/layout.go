package layout

import (
	lltypes "github.com/llir/llvm/ir/types"
)

// TypeLayout is the ABI layout of a type for a specific Target.
type TypeLayout struct {
	Size  int
	Align int

	// Struct-only:
	FieldOffsets []int
	FieldAligns  []int
}

// LayoutEngine computes memory layout for IR types.
type LayoutEngine struct {
	Target Target

	cache *cache
}

// New creates a new LayoutEngine for the specified target.
func New(target Target) *LayoutEngine {
	return &LayoutEngine{
		Target: target,
		cache:  newCache(),
	}
}

type layoutState struct {
	stack []lltypes.Type
	index map[lltypes.Type]int
}

func newLayoutState() *layoutState {
	return &layoutState{
		index: make(map[lltypes.Type]int, 32),
	}
}

// LayoutOf computes and caches the layout of a type.
func (e *LayoutEngine) LayoutOf(t lltypes.Type) (TypeLayout, error) {
	if e == nil {
		return TypeLayout{Size: 0, Align: 1}, nil
	}
	if e.cache == nil {
		e.cache = newCache()
	}
	layout, err := e.layoutOf(t, newLayoutState())
	if err != nil {
		return layout, err
	}
	return layout, nil
}

func (e *LayoutEngine) layoutOf(t lltypes.Type, state *layoutState) (TypeLayout, *LayoutError) {
	if t == nil {
		return TypeLayout{Size: 0, Align: 1}, &LayoutError{Kind: LayoutErrUnsized}
	}
	if cached, ok := e.cache.get(t); ok {
		return cached.Layout, cached.Err
	}

	if idx, ok := state.index[t]; ok {
		cycle := append([]lltypes.Type(nil), state.stack[idx:]...)
		cycle = append(cycle, t)
		err := &LayoutError{
			Kind:  LayoutErrRecursiveUnsized,
			Type:  t,
			Cycle: cycle,
		}
		e.cache.put(t, &cacheEntry{Layout: TypeLayout{Size: 0, Align: 1}, Err: err})
		return TypeLayout{Size: 0, Align: 1}, err
	}

	state.index[t] = len(state.stack)
	state.stack = append(state.stack, t)
	layout, err := e.computeLayout(t, state)
	state.stack = state.stack[:len(state.stack)-1]
	delete(state.index, t)

	// Opaque structs may receive a body later; never pin their failure.
	if err == nil || err.Kind != LayoutErrOpaque {
		e.cache.put(t, &cacheEntry{Layout: layout, Err: err})
	}
	return layout, err
}

// SizeOf returns the allocation size of a type in bytes.
func (e *LayoutEngine) SizeOf(t lltypes.Type) (int, error) {
	l, err := e.LayoutOf(t)
	return l.Size, err
}

// AlignOf returns the alignment requirement of a type in bytes.
func (e *LayoutEngine) AlignOf(t lltypes.Type) (int, error) {
	l, err := e.LayoutOf(t)
	return l.Align, err
}

// FieldOffset returns the byte offset of a struct field.
func (e *LayoutEngine) FieldOffset(st *lltypes.StructType, fieldIdx int) (int, error) {
	l, err := e.LayoutOf(st)
	if err != nil {
		return 0, err
	}
	if fieldIdx < 0 || fieldIdx >= len(l.FieldOffsets) {
		return 0, nil
	}
	return l.FieldOffsets[fieldIdx], nil
}
