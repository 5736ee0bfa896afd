package llvm

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"classgen/internal/types"
)

// CastKind is the strategy chosen for a conversion to a raw pointer or
// between class and interface references.
type CastKind uint8

const (
	CastInvalid CastKind = iota
	// CastReinterpret converts any value to a non-class pointer type.
	CastReinterpret
	// CastStaticClass is an upcast (or identity) along the base chain.
	CastStaticClass
	// CastDynamicClass asks the runtime whether the object derives from the
	// target class.
	CastDynamicClass
	// CastClassToInterface asks the runtime for the interface view of an
	// object.
	CastClassToInterface
	// CastInterfaceToObject recovers the object behind an interface.
	CastInterfaceToObject
	// CastInterfaceToInterface asks the runtime to re-view an interface.
	CastInterfaceToInterface
)

func (k CastKind) String() string {
	switch k {
	case CastReinterpret:
		return "reinterpret"
	case CastStaticClass:
		return "static"
	case CastDynamicClass:
		return "dynamic"
	case CastClassToInterface:
		return "class->interface"
	case CastInterfaceToObject:
		return "interface->object"
	case CastInterfaceToInterface:
		return "interface->interface"
	default:
		return "invalid"
	}
}

// ResolveCast picks the strategy for converting a value of type from to
// type to. Any source converts to a raw pointer; every other conversion
// needs class or interface types on both sides. It does not emit anything.
func ResolveCast(in *types.Interner, from, to types.TypeID) CastKind {
	toT, ok := in.Lookup(to)
	if !ok {
		return CastInvalid
	}
	if _, ok := in.Lookup(from); !ok {
		return CastInvalid
	}
	if toT.Kind == types.KindPointer {
		return CastReinterpret
	}
	if toT.Kind != types.KindClass {
		return CastInvalid
	}
	fromDecl, ok := in.Class(from)
	if !ok {
		return CastInvalid
	}
	toDecl, ok := in.Class(to)
	if !ok {
		return CastInvalid
	}
	if toDecl.IsInterface {
		if fromDecl.IsInterface {
			return CastInterfaceToInterface
		}
		return CastClassToInterface
	}
	if fromDecl.IsInterface {
		return CastInterfaceToObject
	}
	if in.IsBaseOf(to, from) {
		return CastStaticClass
	}
	return CastDynamicClass
}

// Cast emits the conversion of val from one class or interface type to
// another. The result always has the IR type of to.
func (l *Lowerer) Cast(fc *FuncContext, val value.Value, from, to types.TypeID) (value.Value, error) {
	kind := ResolveCast(l.in, from, to)
	if kind == CastInvalid {
		return nil, invariantf(ErrInvalidCast, "", "cannot convert %s to %s", l.in.Mangle(from), l.in.Mangle(to))
	}
	if fc == nil || fc.Block == nil {
		return nil, invariantf(ErrNoContext, "", "no block to emit into")
	}
	target, err := l.irType(to)
	if err != nil {
		return nil, err
	}
	b := fc.Block
	object := lltypes.NewPointer(l.classStruct(l.rt.Object))

	switch kind {
	case CastReinterpret:
		return reinterpret(b, val, target), nil
	case CastStaticClass:
		return castValue(b, val, target), nil
	case CastDynamicClass, CastClassToInterface:
		desc, err := l.Descriptor(to)
		if err != nil {
			return nil, err
		}
		fn := l.runtimeFunc(helperDynamicCast)
		res := b.NewCall(fn, castValue(b, val, object), castValue(b, desc, fn.Params[1].Typ))
		return castValue(b, res, target), nil
	case CastInterfaceToInterface:
		desc, err := l.Descriptor(to)
		if err != nil {
			return nil, err
		}
		fn := l.runtimeFunc(helperInterfaceCast)
		res := b.NewCall(fn, castValue(b, val, lltypes.I8Ptr), castValue(b, desc, fn.Params[1].Typ))
		return castValue(b, res, target), nil
	case CastInterfaceToObject:
		fn := l.runtimeFunc(helperToObject)
		res := b.NewCall(fn, castValue(b, val, lltypes.I8Ptr))
		return castValue(b, res, target), nil
	}
	return nil, fmt.Errorf("unhandled cast kind %s", kind)
}

// reinterpret converts val to the pointer type t: integers through
// inttoptr, everything else through a bitcast.
func reinterpret(b *ir.Block, val value.Value, t lltypes.Type) value.Value {
	if _, ok := val.Type().(*lltypes.IntType); !ok {
		return castValue(b, val, t)
	}
	if c, ok := val.(constant.Constant); ok {
		return constant.NewIntToPtr(c, t)
	}
	return b.NewIntToPtr(val, t)
}
