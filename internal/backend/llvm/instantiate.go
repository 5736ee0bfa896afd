package llvm

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"classgen/internal/types"
)

// FuncContext is the function being emitted into. NestedVar and ThisVar
// are the candidates for a nested class's outer context pointer.
type FuncContext struct {
	Func      *ir.Func
	Block     *ir.Block
	NestedVar value.Value
	ThisVar   value.Value
}

// NewExpr describes one instantiation site.
type NewExpr struct {
	OnStack bool
	Outer   value.Value
	Ctor    *types.Func
	Args    []value.Value
}

// NewClass emits the allocation, image copy, outer-context store and
// constructor call for a new instance. The result is the constructor's
// return value, or the initialized instance when there is no constructor.
func (l *Lowerer) NewClass(fc *FuncContext, id types.TypeID, ne NewExpr) (value.Value, error) {
	if fc == nil || fc.Block == nil {
		return nil, invariantf(ErrNoContext, "", "no block to emit into")
	}
	if err := l.Declare(id); err != nil {
		return nil, err
	}
	rec := l.classes[id]
	decl := rec.decl
	if rec.descriptor == nil {
		return nil, invariantf(ErrMissingDescriptor, decl.PrettyName(), "class has no descriptor")
	}
	if rec.init == nil || rec.vtbl == nil {
		return nil, invariantf(ErrMissingInitializer, decl.PrettyName(), "class cannot be instantiated")
	}
	b := fc.Block
	objPtr := lltypes.NewPointer(rec.irType)

	var mem value.Value
	if ne.OnStack {
		a := ir.NewAlloca(rec.irType)
		if fc.Func != nil && len(fc.Func.Blocks) > 0 {
			entry := fc.Func.Blocks[0]
			entry.Insts = append([]ir.Instruction{a}, entry.Insts...)
		} else {
			b.Insts = append(b.Insts, a)
		}
		mem = a
	} else {
		raw := b.NewCall(l.runtimeFunc(helperNewClass), rec.descriptor)
		mem = b.NewBitCast(raw, objPtr)
	}

	if err := l.InitClass(fc, id, mem); err != nil {
		return nil, err
	}

	switch {
	case ne.Outer != nil:
		if decl.VThis == nil {
			return nil, invariantf(ErrNoContext, decl.PrettyName(), "outer instance given to a class without one")
		}
		p, ok := rec.placement[decl.VThis]
		if !ok {
			return nil, invariantf(ErrOffsetNotFound, decl.PrettyName(), "outer context field is not placed")
		}
		slot := b.NewGetElementPtr(rec.irType, mem, i32(0), i32(int64(p.Index)))
		b.NewStore(castValue(b, ne.Outer, rec.irType.Fields[p.Index]), slot)
	case decl.IsNested:
		outer := fc.NestedVar
		if outer == nil {
			outer = fc.ThisVar
		}
		if outer == nil {
			return nil, invariantf(ErrNoContext, decl.PrettyName(), "nested class instantiated without an enclosing context")
		}
		idx := 2
		if decl.VThis != nil {
			if p, ok := rec.placement[decl.VThis]; ok {
				idx = p.Index
			}
		}
		if idx >= len(rec.irType.Fields) {
			return nil, invariantf(ErrNoContext, decl.PrettyName(), "no slot for the enclosing context")
		}
		slot := b.NewGetElementPtr(rec.irType, mem, i32(0), i32(int64(idx)))
		b.NewStore(castValue(b, outer, rec.irType.Fields[idx]), slot)
	}

	if ne.Ctor == nil {
		return mem, nil
	}
	return l.callCtor(b, decl, ne.Ctor, mem, ne.Args)
}

func (l *Lowerer) callCtor(b *ir.Block, decl *types.ClassDecl, ctor *types.Func, this value.Value, args []value.Value) (value.Value, error) {
	f, err := l.funcFor(ctor)
	if err != nil {
		return nil, err
	}
	if len(args)+1 != len(f.Params) {
		return nil, invariantf(ErrBadCtorArgs, decl.PrettyName(), "%s takes %d arguments, got %d", ctor.Name, len(f.Params)-1, len(args))
	}
	callArgs := make([]value.Value, 0, len(f.Params))
	callArgs = append(callArgs, castValue(b, this, f.Params[0].Typ))
	for i, a := range args {
		want := f.Params[i+1].Typ
		if sameType(a.Type(), want) {
			callArgs = append(callArgs, a)
			continue
		}
		_, fromPtr := a.Type().(*lltypes.PointerType)
		_, toPtr := want.(*lltypes.PointerType)
		if !fromPtr || !toPtr {
			return nil, invariantf(ErrBadCtorArgs, decl.PrettyName(), "argument %d is %s, want %s", i, a.Type().LLString(), want.LLString())
		}
		callArgs = append(callArgs, castValue(b, a, want))
	}
	return b.NewCall(f, callArgs...), nil
}

// InitClass stores the dispatch table and a null monitor into the header of
// dst, then copies the data area from the instance image.
func (l *Lowerer) InitClass(fc *FuncContext, id types.TypeID, dst value.Value) error {
	if fc == nil || fc.Block == nil {
		return invariantf(ErrNoContext, "", "no block to emit into")
	}
	if err := l.Declare(id); err != nil {
		return err
	}
	rec := l.classes[id]
	if rec.init == nil || rec.vtbl == nil {
		return invariantf(ErrMissingInitializer, rec.decl.PrettyName(), "class has no instance image")
	}
	b := fc.Block
	obj := castValue(b, dst, lltypes.NewPointer(rec.irType))

	vslot := b.NewGetElementPtr(rec.irType, obj, i32(0), i32(0))
	b.NewStore(rec.vtbl, vslot)
	mslot := b.NewGetElementPtr(rec.irType, obj, i32(0), i32(1))
	b.NewStore(constant.NewNull(lltypes.I8Ptr), mslot)

	size, err := l.layout.SizeOf(rec.irType)
	if err != nil {
		return err
	}
	total, err := narrow[int64](rec.decl.PrettyName(), "instance size", size)
	if err != nil {
		return err
	}
	header, err := narrow[int64](rec.decl.PrettyName(), "header size", l.headerSize)
	if err != nil {
		return err
	}
	n := total - header
	if n <= 0 {
		return nil
	}
	dstData := b.NewBitCast(b.NewGetElementPtr(rec.irType, obj, i32(0), i32(2)), lltypes.I8Ptr)
	srcData := constant.NewBitCast(constant.NewGetElementPtr(rec.irType, rec.init, i32(0), i32(2)), lltypes.I8Ptr)
	b.NewCall(l.runtimeFunc(helperMemCpy), dstData, srcData, constant.NewInt(lltypes.I64, n), constant.NewInt(lltypes.I1, 0))
	return nil
}

// CallClassDtors calls every destructor of the class on inst in declaration
// order.
func (l *Lowerer) CallClassDtors(fc *FuncContext, id types.TypeID, inst value.Value) error {
	if fc == nil || fc.Block == nil {
		return invariantf(ErrNoContext, "", "no block to emit into")
	}
	decl, ok := l.in.Class(id)
	if !ok {
		return invariantf(ErrUnknownType, "", "type#%d is not a class", id)
	}
	b := fc.Block
	for _, d := range decl.Dtors {
		f, err := l.funcFor(d)
		if err != nil {
			return err
		}
		b.NewCall(f, castValue(b, inst, f.Params[0].Typ))
	}
	return nil
}
