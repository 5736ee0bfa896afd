package llvm

import (
	"strconv"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"classgen/internal/types"
)

// buildVtblType fills the dispatch table struct of a class. Method slots
// use the signature of the first declaration of the override chain so that
// overrides in derived classes share the slot type.
func (l *Lowerer) buildVtblType(rec *classRecord) error {
	decl := rec.decl
	slots := make([]lltypes.Type, 0, len(decl.Vtbl))
	for i, e := range decl.Vtbl {
		if e.Descriptor {
			slots = append(slots, lltypes.NewPointer(l.descriptorContent(decl)))
			continue
		}
		if e.Func == nil {
			return invariantf(ErrMissingMethod, decl.PrettyName(), "vtbl slot %d is empty", i)
		}
		ft, err := l.methodType(e.Func.Root())
		if err != nil {
			return err
		}
		slots = append(slots, lltypes.NewPointer(ft))
	}
	rec.vtblType.Fields = slots
	rec.vtblType.Opaque = false
	return nil
}

// descriptorContent is the pointee of a class's descriptor slot: interfaces
// point at an interface info record, ClassInfo at itself and every other
// class at a ClassInfo.
func (l *Lowerer) descriptorContent(decl *types.ClassDecl) lltypes.Type {
	if decl.IsInterface {
		st, err := l.structType(l.rt.Interface)
		if err == nil {
			return st
		}
	}
	return l.classStruct(l.rt.ClassInfo)
}

// vtblInit builds the dispatch table constant of a concrete class.
func (l *Lowerer) vtblInit(rec *classRecord) (constant.Constant, error) {
	decl := rec.decl
	elems := make([]constant.Constant, len(decl.Vtbl))
	for i, e := range decl.Vtbl {
		slot := rec.vtblType.Fields[i]
		if e.Descriptor {
			if err := l.DeclareDescriptor(decl.Type); err != nil {
				return nil, err
			}
			elems[i] = castConst(rec.descriptor, slot)
			continue
		}
		if e.Func.Abstract {
			return nil, invariantf(ErrMissingMethod, decl.PrettyName(), "slot %d (%s) has no implementation", i, e.Func.Name)
		}
		f, err := l.funcFor(e.Func)
		if err != nil {
			return nil, err
		}
		elems[i] = castConst(f, slot)
	}
	return constant.NewStruct(rec.vtblType, elems...), nil
}

// castConst bitcasts c unless it already has type t.
func castConst(c constant.Constant, t lltypes.Type) constant.Constant {
	if sameType(c.Type(), t) {
		return c
	}
	return constant.NewBitCast(c, t)
}

// VirtualFunctionPointer loads the implementation of fn from the dispatch
// table of inst.
func (l *Lowerer) VirtualFunctionPointer(fc *FuncContext, inst value.Value, fn *types.Func) (value.Value, error) {
	if fc == nil || fc.Block == nil {
		return nil, invariantf(ErrNoContext, "", "no block to emit into")
	}
	if !fn.IsVirtual() {
		return nil, invariantf(ErrNotVirtual, "", "%s has vtbl index %d", fn.Name, fn.VtblIndex)
	}
	if err := l.Resolve(fn.Owner); err != nil {
		return nil, err
	}
	rec := l.classes[fn.Owner]
	if fn.VtblIndex >= len(rec.vtblType.Fields) {
		return nil, invariantf(ErrNotVirtual, rec.decl.PrettyName(), "vtbl index %d out of range", fn.VtblIndex)
	}
	b := fc.Block
	obj := castValue(b, inst, lltypes.NewPointer(rec.irType))
	slot := b.NewGetElementPtr(rec.irType, obj, i32(0), i32(0))
	table := b.NewLoad(lltypes.NewPointer(rec.vtblType), slot)
	entry := b.NewGetElementPtr(rec.vtblType, table, i32(0), i32(int64(fn.VtblIndex)))
	return b.NewLoad(rec.vtblType.Fields[fn.VtblIndex], entry), nil
}

// castValue bitcasts v in block b unless it already has type t.
func castValue(b *ir.Block, v value.Value, t lltypes.Type) value.Value {
	if sameType(v.Type(), t) {
		return v
	}
	if c, ok := v.(constant.Constant); ok {
		return constant.NewBitCast(c, t)
	}
	return b.NewBitCast(v, t)
}

func i32(v int64) *constant.Int {
	return constant.NewInt(lltypes.I32, v)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
