package llvm

import (
	"fortio.org/safecast"
	"github.com/llir/llvm/ir/constant"
	lltypes "github.com/llir/llvm/ir/types"

	"classgen/internal/types"
)

// fitInt builds the integer constant v of type t, failing with ErrOverflow
// when v is negative or needs more than t's width.
func fitInt[F safecast.Integer](class, what string, t *lltypes.IntType, v F) (*constant.Int, error) {
	if t.BitSize <= 32 {
		n, err := narrow[uint32](class, what, v)
		if err != nil {
			return nil, err
		}
		if t.BitSize < 32 && uint64(n)>>t.BitSize != 0 {
			return nil, invariantf(ErrOverflow, class, "%s %d: wider than i%d", what, v, t.BitSize)
		}
		return constant.NewInt(t, int64(n)), nil
	}
	n, err := narrow[int64](class, what, v)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, invariantf(ErrOverflow, class, "%s %d: negative", what, v)
	}
	return constant.NewInt(t, n), nil
}

// zeroValue is the all-zero constant of t. Scalars, pointers and slices get
// literal constants; aggregates fall back to zeroinitializer.
func zeroValue(t lltypes.Type) constant.Constant {
	switch tt := t.(type) {
	case *lltypes.IntType:
		return constant.NewInt(tt, 0)
	case *lltypes.FloatType:
		return constant.NewFloat(tt, 0)
	case *lltypes.PointerType:
		return constant.NewNull(tt)
	case *lltypes.StructType:
		if isSliceType(tt) {
			return zeroSlice(tt)
		}
	}
	return constant.NewZeroInitializer(t)
}

func isSliceType(st *lltypes.StructType) bool {
	if st.Name() != "" || len(st.Fields) != 2 {
		return false
	}
	_, isInt := st.Fields[0].(*lltypes.IntType)
	_, isPtr := st.Fields[1].(*lltypes.PointerType)
	return isInt && isPtr
}

func zeroSlice(st *lltypes.StructType) constant.Constant {
	return constant.NewStruct(st, zeroValue(st.Fields[0]), zeroValue(st.Fields[1]))
}

func nullOf(t lltypes.Type) constant.Constant {
	if pt, ok := t.(*lltypes.PointerType); ok {
		return constant.NewNull(pt)
	}
	return constant.NewZeroInitializer(t)
}

// padding is the zero byte array filling a widened union slot.
func padding(n uint64) constant.Constant {
	arr := lltypes.NewArray(n, lltypes.I8)
	elems := make([]constant.Constant, n)
	for i := range elems {
		elems[i] = constant.NewInt(lltypes.I8, 0)
	}
	return constant.NewArray(arr, elems...)
}

// fieldInit is the constant a field holds in the instance image.
func (l *Lowerer) fieldInit(class string, f *types.Field, t lltypes.Type) (constant.Constant, error) {
	c := f.Init
	if c == nil {
		return zeroValue(t), nil
	}
	switch tt := t.(type) {
	case *lltypes.IntType:
		switch c.Kind {
		case types.ConstInt:
			return constant.NewInt(tt, c.Int), nil
		case types.ConstBool:
			if c.Bool {
				return constant.NewInt(tt, 1), nil
			}
			return constant.NewInt(tt, 0), nil
		}
	case *lltypes.FloatType:
		switch c.Kind {
		case types.ConstFloat:
			return constant.NewFloat(tt, c.Float), nil
		case types.ConstInt:
			return constant.NewFloat(tt, float64(c.Int)), nil
		}
	case *lltypes.PointerType:
		if c.Kind == types.ConstNull || (c.Kind == types.ConstInt && c.Int == 0) {
			return constant.NewNull(tt), nil
		}
	case *lltypes.StructType:
		if c.Kind == types.ConstNull && isSliceType(tt) {
			return zeroSlice(tt), nil
		}
	}
	return nil, invariantf(ErrBadInitializer, class, "field %s cannot hold %s", f.Name, constKindName(c.Kind))
}

func constKindName(k types.ConstKind) string {
	switch k {
	case types.ConstInt:
		return "an integer"
	case types.ConstFloat:
		return "a float"
	case types.ConstBool:
		return "a bool"
	case types.ConstNull:
		return "null"
	default:
		return "an unknown constant"
	}
}
