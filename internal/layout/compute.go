package layout

import (
	"fortio.org/safecast"
	lltypes "github.com/llir/llvm/ir/types"
)

func (e *LayoutEngine) computeLayout(t lltypes.Type, state *layoutState) (TypeLayout, *LayoutError) {
	switch tt := t.(type) {
	case *lltypes.IntType:
		return intLayout(tt.BitSize), nil

	case *lltypes.FloatType:
		switch tt.Kind {
		case lltypes.FloatKindHalf:
			return scalarLayoutBytes(2), nil
		case lltypes.FloatKindFloat:
			return scalarLayoutBytes(4), nil
		case lltypes.FloatKindDouble:
			return scalarLayoutBytes(8), nil
		default:
			return scalarLayoutBytes(16), nil
		}

	case *lltypes.PointerType:
		return e.ptrLayout(), nil

	case *lltypes.ArrayType:
		return e.arrayLayout(tt.ElemType, tt.Len, state)

	case *lltypes.VectorType:
		l, err := e.arrayLayout(tt.ElemType, tt.Len, state)
		if err != nil {
			return l, err
		}
		size := nextPow2(l.Size)
		return TypeLayout{Size: size, Align: maxInt(1, size)}, nil

	case *lltypes.StructType:
		if tt.Opaque {
			return TypeLayout{Size: 0, Align: 1}, &LayoutError{Kind: LayoutErrOpaque, Type: t}
		}
		return e.structLayout(tt, state)

	default:
		return TypeLayout{Size: 0, Align: 1}, &LayoutError{Kind: LayoutErrUnsized, Type: t}
	}
}

func (e *LayoutEngine) ptrLayout() TypeLayout {
	ptrSize := e.Target.PtrSize
	ptrAlign := e.Target.PtrAlign
	if ptrSize <= 0 {
		ptrSize = 8
	}
	if ptrAlign <= 0 {
		ptrAlign = ptrSize
	}
	return TypeLayout{Size: ptrSize, Align: ptrAlign}
}

// intLayout follows the x86_64 data layout: integers occupy the next power
// of two bytes and are aligned to it, up to 16.
func intLayout(bits uint64) TypeLayout {
	bytes, err := safecast.Conv[int]((bits + 7) / 8)
	if err != nil || bytes <= 0 {
		return TypeLayout{Size: 1, Align: 1}
	}
	size := nextPow2(bytes)
	align := size
	if align > 16 {
		align = 16
	}
	return TypeLayout{Size: roundUp(size, align), Align: align}
}

func scalarLayoutBytes(size int) TypeLayout {
	if size <= 0 {
		return TypeLayout{Size: 0, Align: 1}
	}
	return TypeLayout{Size: size, Align: size}
}

func (e *LayoutEngine) arrayLayout(elem lltypes.Type, length uint64, state *layoutState) (TypeLayout, *LayoutError) {
	elemLayout, err := e.layoutOf(elem, state)
	if err != nil {
		return TypeLayout{Size: 0, Align: 1}, err
	}
	elemAlign := maxInt(1, elemLayout.Align)
	stride := roundUp(elemLayout.Size, elemAlign)
	n, convErr := safecast.Conv[int](length)
	if convErr != nil || n < 0 {
		n = 0
	}
	return TypeLayout{
		Size:  stride * n,
		Align: elemAlign,
	}, nil
}

func (e *LayoutEngine) structLayout(st *lltypes.StructType, state *layoutState) (TypeLayout, *LayoutError) {
	offsets := make([]int, len(st.Fields))
	aligns := make([]int, len(st.Fields))

	if st.Packed {
		size := 0
		for i, f := range st.Fields {
			fl, err := e.layoutOf(f, state)
			if err != nil {
				return TypeLayout{Size: 0, Align: 1}, err
			}
			offsets[i] = size
			aligns[i] = 1
			size += fl.Size
		}
		return TypeLayout{
			Size:         size,
			Align:        1,
			FieldOffsets: offsets,
			FieldAligns:  aligns,
		}, nil
	}

	size := 0
	align := 1
	for i, f := range st.Fields {
		fl, err := e.layoutOf(f, state)
		if err != nil {
			return TypeLayout{Size: 0, Align: 1}, err
		}
		fAlign := maxInt(1, fl.Align)
		size = roundUp(size, fAlign)
		offsets[i] = size
		aligns[i] = fAlign
		size += fl.Size
		align = maxInt(align, fAlign)
	}
	size = roundUp(size, align)
	return TypeLayout{
		Size:         size,
		Align:        align,
		FieldOffsets: offsets,
		FieldAligns:  aligns,
	}, nil
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	r := n % align
	if r == 0 {
		return n
	}
	return n + (align - r)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
