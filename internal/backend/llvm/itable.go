package llvm

import (
	"github.com/llir/llvm/ir/constant"
	lltypes "github.com/llir/llvm/ir/types"

	"classgen/internal/types"
)

// interfaceStruct is the IR form of the runtime interface info record.
func (l *Lowerer) interfaceStruct() (*lltypes.StructType, error) {
	return l.structType(l.rt.Interface)
}

// buildInterfaceInits computes, for every binding of a class, the info
// record and (for concrete classes) the secondary dispatch table.
func (l *Lowerer) buildInterfaceInits(rec *classRecord) error {
	if len(rec.ifaces) == 0 {
		return nil
	}
	infoType, err := l.interfaceStruct()
	if err != nil {
		return err
	}
	descField := infoType.Fields[0]
	sliceField, ok := infoType.Fields[1].(*lltypes.StructType)
	if !ok {
		return invariantf(ErrUnknownType, rec.decl.PrettyName(), "interface info vtbl is not a slice")
	}
	offsetField, ok := infoType.Fields[2].(*lltypes.IntType)
	if !ok {
		return invariantf(ErrUnknownType, rec.decl.PrettyName(), "interface info offset is not an integer")
	}

	inits := make([]constant.Constant, 0, len(rec.ifaces))
	for _, b := range rec.ifaces {
		if err := l.DeclareDescriptor(b.iface.Type); err != nil {
			return err
		}
		idesc := castConst(l.classes[b.iface.Type].descriptor, descField)

		if !rec.decl.IsConcrete() {
			b.infoInit = constant.NewStruct(infoType, idesc, zeroSlice(sliceField), constant.NewInt(offsetField, 0))
			inits = append(inits, b.infoInit)
			continue
		}

		table, err := l.interfaceTableInit(rec, b)
		if err != nil {
			return err
		}
		b.tableInit = table

		off, err := l.layout.FieldOffset(rec.irType, b.slot)
		if err != nil {
			return err
		}
		n := len(b.tableType.Fields) - 1
		count, err := fitInt(rec.decl.PrettyName(), "method count", l.sizeT, n)
		if err != nil {
			return err
		}
		thisOffset, err := fitInt(rec.decl.PrettyName(), "this offset of "+b.iface.PrettyName(), offsetField, off)
		if err != nil {
			return err
		}
		var methods constant.Constant
		if n > 0 {
			first := constant.NewGetElementPtr(b.tableType, b.table, i32(0), i32(1))
			methods = castConst(first, sliceField.Fields[1])
		} else {
			methods = nullOf(sliceField.Fields[1])
		}
		b.infoInit = constant.NewStruct(infoType,
			idesc,
			constant.NewStruct(sliceField, count, methods),
			thisOffset,
		)
		inits = append(inits, b.infoInit)
	}
	rec.constInfos = constant.NewArray(lltypes.NewArray(uint64(len(inits)), infoType), inits...)
	return nil
}

// interfaceTableInit lays out the secondary table: the info record of the
// binding, then the implementations of the interface's methods in the
// interface's slot order.
func (l *Lowerer) interfaceTableInit(rec *classRecord, b *interfaceBinding) (constant.Constant, error) {
	elems := make([]constant.Constant, 0, len(b.tableType.Fields))
	for i, e := range b.iface.Vtbl {
		slot := b.tableType.Fields[i]
		if e.Descriptor {
			elems = append(elems, castConst(b.info, slot))
			continue
		}
		impl, err := l.implementation(rec.decl, e.Func)
		if err != nil {
			return nil, err
		}
		f, err := l.funcFor(impl)
		if err != nil {
			return nil, err
		}
		elems = append(elems, castConst(f, slot))
	}
	return constant.NewStruct(b.tableType, elems...), nil
}

// implementation finds the method of decl that implements an interface
// method: the most derived dispatch table entry with the same signature,
// else a final method of the chain.
func (l *Lowerer) implementation(decl *types.ClassDecl, ifn *types.Func) (*types.Func, error) {
	for i := len(decl.Vtbl) - 1; i >= 0; i-- {
		if f := decl.Vtbl[i].Func; f.Implements(ifn) && !l.in.IsInterface(f.Owner) {
			return f, nil
		}
	}
	chain := l.in.Chain(decl.Type)
	for i := len(chain) - 1; i >= 0; i-- {
		for _, f := range chain[i].Methods {
			if f.Implements(ifn) {
				return f, nil
			}
		}
	}
	return nil, invariantf(ErrMissingMethod, decl.PrettyName(), "no implementation of %s.%s", l.className(ifn.Owner), ifn.Name)
}

func (l *Lowerer) className(id types.TypeID) string {
	if decl, ok := l.in.Class(id); ok {
		return decl.PrettyName()
	}
	return "?"
}
