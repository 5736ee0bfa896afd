package llvm

import (
	"github.com/llir/llvm/ir"
	lltypes "github.com/llir/llvm/ir/types"

	"classgen/internal/types"
)

// classStruct returns the named IR struct of a class. The struct starts out
// opaque and receives its body when the class resolves.
func (l *Lowerer) classStruct(id types.TypeID) *lltypes.StructType {
	if st, ok := l.structs[id]; ok {
		return st
	}
	st := &lltypes.StructType{Opaque: true}
	l.structs[id] = st
	l.mod.NewTypeDef(l.in.Mangle(id), st)
	return st
}

// structType returns the named IR struct of a value struct. Fields keep the
// declaration order, natural alignment reproduces the source offsets.
func (l *Lowerer) structType(id types.TypeID) (*lltypes.StructType, error) {
	if st, ok := l.structs[id]; ok {
		return st, nil
	}
	info, ok := l.in.StructInfo(id)
	if !ok {
		return nil, invariantf(ErrUnknownType, "", "type#%d is not a struct", id)
	}
	st := &lltypes.StructType{}
	l.structs[id] = st
	l.mod.NewTypeDef(info.Mangle, st)
	fields := make([]lltypes.Type, 0, len(info.Fields))
	for _, f := range info.Fields {
		ft, err := l.irType(f.Type)
		if err != nil {
			return nil, err
		}
		fields = append(fields, ft)
	}
	st.Fields = fields
	return st, nil
}

// sliceType is the literal {length, pointer} pair of a dynamic array.
func (l *Lowerer) sliceType(elem types.TypeID) (*lltypes.StructType, error) {
	if st, ok := l.slices[elem]; ok {
		return st, nil
	}
	et, err := l.irType(elem)
	if err != nil {
		return nil, err
	}
	st := lltypes.NewStruct(l.sizeT, pointerTo(et))
	l.slices[elem] = st
	return st, nil
}

// irType maps a source type to its IR representation. Class references are
// pointers to the class struct; void* is i8*.
func (l *Lowerer) irType(id types.TypeID) (lltypes.Type, error) {
	tt, ok := l.in.Lookup(id)
	if !ok {
		return nil, invariantf(ErrUnknownType, "", "type#%d", id)
	}
	switch tt.Kind {
	case types.KindVoid:
		return lltypes.Void, nil
	case types.KindBool:
		return lltypes.I1, nil
	case types.KindChar:
		return lltypes.I8, nil
	case types.KindInt, types.KindUint:
		return lltypes.NewInt(uint64(tt.Width)), nil
	case types.KindFloat:
		if tt.Width == types.Width32 {
			return lltypes.Float, nil
		}
		return lltypes.Double, nil
	case types.KindPointer:
		elem, err := l.irType(tt.Elem)
		if err != nil {
			return nil, err
		}
		return pointerTo(elem), nil
	case types.KindArray:
		if tt.IsSlice() {
			return l.sliceType(tt.Elem)
		}
		elem, err := l.irType(tt.Elem)
		if err != nil {
			return nil, err
		}
		return lltypes.NewArray(uint64(tt.Count), elem), nil
	case types.KindStruct:
		return l.structType(id)
	case types.KindClass:
		return lltypes.NewPointer(l.classStruct(id)), nil
	case types.KindFn:
		info, ok := l.in.FnInfo(id)
		if !ok {
			return nil, invariantf(ErrUnknownType, "", "type#%d has no signature", id)
		}
		ft, err := l.signature(nil, info.Params, info.Result)
		if err != nil {
			return nil, err
		}
		return lltypes.NewPointer(ft), nil
	default:
		return nil, invariantf(ErrUnknownType, "", "type#%d of kind %s", id, tt.Kind)
	}
}

// pointerTo maps void to i8 so that void* becomes i8*.
func pointerTo(elem lltypes.Type) *lltypes.PointerType {
	if _, ok := elem.(*lltypes.VoidType); ok {
		return lltypes.I8Ptr
	}
	return lltypes.NewPointer(elem)
}

// signature builds a function type; a non-nil this becomes the leading
// parameter.
func (l *Lowerer) signature(this lltypes.Type, params []types.TypeID, result types.TypeID) (*lltypes.FuncType, error) {
	ret := lltypes.Type(lltypes.Void)
	if result != types.NoTypeID {
		rt, err := l.irType(result)
		if err != nil {
			return nil, err
		}
		ret = rt
	}
	ps := make([]lltypes.Type, 0, len(params)+1)
	if this != nil {
		ps = append(ps, this)
	}
	for _, p := range params {
		pt, err := l.irType(p)
		if err != nil {
			return nil, err
		}
		ps = append(ps, pt)
	}
	return lltypes.NewFunc(ret, ps...), nil
}

// methodType is the IR type of a member function: this is a pointer to the
// owner struct and constructors return it.
func (l *Lowerer) methodType(fn *types.Func) (*lltypes.FuncType, error) {
	this := lltypes.NewPointer(l.classStruct(fn.Owner))
	if fn.Kind == types.FuncCtor {
		ft, err := l.signature(this, fn.Params, types.NoTypeID)
		if err != nil {
			return nil, err
		}
		ft.RetType = this
		return ft, nil
	}
	return l.signature(this, fn.Params, fn.Result)
}

// funcFor declares a member function on first use.
func (l *Lowerer) funcFor(fn *types.Func) (*ir.Func, error) {
	if f, ok := l.funcs[fn]; ok {
		return f, nil
	}
	ft, err := l.methodType(fn)
	if err != nil {
		return nil, err
	}
	params := make([]*ir.Param, len(ft.Params))
	for i, p := range ft.Params {
		name := ""
		if i == 0 {
			name = "this"
		}
		params[i] = ir.NewParam(name, p)
	}
	f := l.mod.NewFunc(fn.Mangle, ft.RetType, params...)
	l.funcs[fn] = f
	return f, nil
}

func sameType(a, b lltypes.Type) bool {
	return a == b || a.Equal(b)
}
