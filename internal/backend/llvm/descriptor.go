package llvm

import (
	"fmt"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	lltypes "github.com/llir/llvm/ir/types"

	"classgen/internal/types"
)

// Descriptor flag bits.
const (
	FlagNoPointers uint32 = 2
	FlagHasOffTi   uint32 = 4
	FlagHasCtor    uint32 = 8
)

// DeclareDescriptor declares the runtime type descriptor of a class. Every
// descriptor has the layout of the runtime ClassInfo class.
func (l *Lowerer) DeclareDescriptor(id types.TypeID) error {
	if err := l.Resolve(id); err != nil {
		return err
	}
	rec := l.classes[id]
	if rec.desc >= descDeclared {
		return nil
	}
	if err := l.Resolve(l.rt.ClassInfo); err != nil {
		return err
	}
	rec.descriptor = l.declareGlobal(descriptorSymbol(rec.decl), l.classStruct(l.rt.ClassInfo), false)
	rec.desc = descDeclared
	return nil
}

// DefineDescriptor fills the descriptor of a module class. Slots not set
// here keep the value they have in the ClassInfo instance image.
func (l *Lowerer) DefineDescriptor(id types.TypeID) error {
	if err := l.DeclareDescriptor(id); err != nil {
		return err
	}
	rec := l.classes[id]
	if rec.desc >= descDefined || rec.decl.External {
		return nil
	}
	if err := l.ConstInit(l.rt.ClassInfo); err != nil {
		return err
	}
	ci := l.classes[l.rt.ClassInfo]
	tmpl, ok := ci.constInit.(*constant.Struct)
	if !ok {
		return invariantf(ErrMissingInitializer, ci.decl.PrettyName(), "descriptor template is not a struct")
	}
	span := l.begin("descriptor", rec)
	defer span.End("")

	d := &descriptorBuilder{l: l, ci: ci, fields: append([]constant.Constant(nil), tmpl.Fields...)}
	if err := d.fill(rec); err != nil {
		return err
	}
	rec.descriptor.Init = constant.NewStruct(ci.irType, d.fields...)
	rec.descriptor.Linkage = definitionLinkage(rec.decl)
	rec.desc = descDefined
	return nil
}

type descriptorBuilder struct {
	l      *Lowerer
	ci     *classRecord
	fields []constant.Constant
}

// slot returns the struct index and IR type of a named ClassInfo field.
func (d *descriptorBuilder) slot(name string) (int, lltypes.Type, error) {
	for _, f := range d.ci.decl.Fields {
		if f.Name != name {
			continue
		}
		p, ok := d.ci.placement[f]
		if !ok || p.Sub != 0 {
			break
		}
		return p.Index, d.ci.irType.Fields[p.Index], nil
	}
	return 0, nil, invariantf(ErrMissingDescriptor, d.ci.decl.PrettyName(), "no slot %q", name)
}

func (d *descriptorBuilder) set(name string, build func(t lltypes.Type) (constant.Constant, error)) error {
	idx, t, err := d.slot(name)
	if err != nil {
		return err
	}
	c, err := build(t)
	if err != nil {
		return err
	}
	d.fields[idx] = castConst(c, t)
	return nil
}

// slice builds a {length, pointer} constant of slice type t.
func slice(t lltypes.Type, n int, ptr constant.Constant) (constant.Constant, error) {
	st, ok := t.(*lltypes.StructType)
	if !ok || !isSliceType(st) {
		return nil, invariantf(ErrUnknownType, "", "%s is not a slice", t.LLString())
	}
	lenType, _ := st.Fields[0].(*lltypes.IntType)
	length, err := fitInt("", "slice length", lenType, n)
	if err != nil {
		return nil, err
	}
	return constant.NewStruct(st, length, castConst(ptr, st.Fields[1])), nil
}

func (d *descriptorBuilder) fill(rec *classRecord) error {
	l := d.l
	decl := rec.decl
	concrete := decl.IsConcrete()

	if concrete {
		size, err := l.layout.SizeOf(rec.irType)
		if err != nil {
			return err
		}
		if err := d.set("init", func(t lltypes.Type) (constant.Constant, error) {
			return slice(t, size, rec.init)
		}); err != nil {
			return err
		}
	}

	if err := d.set("name", func(t lltypes.Type) (constant.Constant, error) {
		s := l.stringConst(descriptorName(decl))
		arr := s.ContentType
		first := constant.NewGetElementPtr(arr, s, i32(0), i32(0))
		n, err := narrow[int](decl.PrettyName(), "name length", arr.(*lltypes.ArrayType).Len)
		if err != nil {
			return nil, err
		}
		return slice(t, n, first)
	}); err != nil {
		return err
	}

	if concrete {
		if err := d.set("vtbl", func(t lltypes.Type) (constant.Constant, error) {
			return slice(t, len(rec.vtblType.Fields), rec.vtbl)
		}); err != nil {
			return err
		}
		if rec.infos != nil {
			if err := d.set("interfaces", func(t lltypes.Type) (constant.Constant, error) {
				return slice(t, len(rec.ifaces), rec.infos)
			}); err != nil {
				return err
			}
		}
	}

	if decl.Base != types.NoTypeID && !decl.IsInterface {
		if err := l.DeclareDescriptor(decl.Base); err != nil {
			return err
		}
		base := l.classes[decl.Base].descriptor
		if err := d.set("base", func(lltypes.Type) (constant.Constant, error) { return base, nil }); err != nil {
			return err
		}
	}

	if !concrete {
		return nil
	}

	if err := d.set("destructor", func(lltypes.Type) (constant.Constant, error) {
		return l.destructorThunk(rec)
	}); err != nil {
		return err
	}

	flags := l.descriptorFlags(decl)
	if err := d.set("flags", func(t lltypes.Type) (constant.Constant, error) {
		it, ok := t.(*lltypes.IntType)
		if !ok {
			return nil, invariantf(ErrUnknownType, decl.PrettyName(), "flags slot is %s", t.LLString())
		}
		return constant.NewInt(it, int64(flags)), nil
	}); err != nil {
		return err
	}

	if err := d.set("offTi", func(t lltypes.Type) (constant.Constant, error) {
		return l.offsetTypeInfos(rec, t)
	}); err != nil {
		return err
	}

	if decl.DefaultCtor != nil {
		if err := d.set("defaultConstructor", func(lltypes.Type) (constant.Constant, error) {
			return l.funcFor(decl.DefaultCtor)
		}); err != nil {
			return err
		}
	}
	return nil
}

// descriptorName is the name a class reports at run time. Runtime type info
// classes report their bare name.
func descriptorName(decl *types.ClassDecl) string {
	if strings.HasPrefix(decl.Name, "TypeInfo_") && len(decl.Name) > len("TypeInfo_") {
		return decl.Name
	}
	return decl.PrettyName()
}

// descriptorFlags: 8 when the class declares a constructor, 2 when no data
// member of the chain holds pointers, 4 when the chain has any data member.
func (l *Lowerer) descriptorFlags(decl *types.ClassDecl) uint32 {
	var flags uint32
	if len(decl.Ctors) > 0 {
		flags |= FlagHasCtor
	}
	hasOffTi := false
	noPointers := true
	chain := l.in.Chain(decl.Type)
scan:
	for i := len(chain) - 1; i >= 0; i-- {
		for _, f := range chain[i].Fields {
			hasOffTi = true
			if l.in.HasPointers(f.Type) {
				noPointers = false
				break scan
			}
		}
	}
	if noPointers {
		flags |= FlagNoPointers
	}
	if hasOffTi {
		flags |= FlagHasOffTi
	}
	return flags
}

// offsetTypeInfos emits the (offset, type info) table of every data member
// of the chain, base-most class first. Offsets are from the instance start.
func (l *Lowerer) offsetTypeInfos(rec *classRecord, sliceT lltypes.Type) (constant.Constant, error) {
	otiType, err := l.structType(l.rt.OffsetTypeInfo)
	if err != nil {
		return nil, err
	}
	offType, ok := otiType.Fields[0].(*lltypes.IntType)
	if !ok {
		return nil, invariantf(ErrUnknownType, "", "offset type info offset is not an integer")
	}
	var elems []constant.Constant
	for _, anc := range l.in.Chain(rec.decl.Type) {
		start := l.in.DataStart(anc.Type)
		for _, f := range anc.Fields {
			ti, err := l.typeInfo(f.Type)
			if err != nil {
				return nil, err
			}
			off, err := fitInt(rec.decl.PrettyName(), "offset of "+f.Name, offType, l.headerSize+start+f.Offset)
			if err != nil {
				return nil, err
			}
			elems = append(elems, constant.NewStruct(otiType, off, castConst(ti, otiType.Fields[1])))
		}
	}
	st, _ := sliceT.(*lltypes.StructType)
	if len(elems) == 0 {
		if st == nil {
			return nil, invariantf(ErrUnknownType, "", "offTi slot is not a slice")
		}
		return zeroSlice(st), nil
	}
	arr := lltypes.NewArray(uint64(len(elems)), otiType)
	g := l.mod.NewGlobalDef(offsetTypeInfosSymbol(l.in.Mangle(rec.decl.Type)), constant.NewArray(arr, elems...))
	g.Immutable = true
	g.Linkage = enum.LinkageInternal
	l.noteGlobal(g)
	return slice(sliceT, len(elems), g)
}

// typeInfo declares the runtime type info object of a field type.
func (l *Lowerer) typeInfo(id types.TypeID) (*ir.Global, error) {
	if g, ok := l.typeInfos[id]; ok {
		return g, nil
	}
	if err := l.Resolve(l.rt.TypeInfo); err != nil {
		return nil, err
	}
	g := l.declareGlobal(typeInfoSymbol(l.in.Mangle(id)), l.classStruct(l.rt.TypeInfo), false)
	l.typeInfos[id] = g
	return g, nil
}

// destructorThunk is the descriptor's destructor entry: null without
// destructors, the destructor itself when there is one, else an internal
// function running them all in declaration order.
func (l *Lowerer) destructorThunk(rec *classRecord) (constant.Constant, error) {
	if rec.dtorThunk != nil {
		return rec.dtorThunk, nil
	}
	dtors := rec.decl.Dtors
	switch len(dtors) {
	case 0:
		rec.dtorThunk = constant.NewNull(lltypes.I8Ptr)
	case 1:
		f, err := l.funcFor(dtors[0])
		if err != nil {
			return nil, err
		}
		rec.dtorThunk = f
	default:
		this := ir.NewParam("this", lltypes.NewPointer(rec.irType))
		thunk := l.mod.NewFunc(destructorSymbol(rec.decl), lltypes.Void, this)
		thunk.Linkage = enum.LinkageInternal
		entry := thunk.NewBlock("entry")
		for _, d := range dtors {
			f, err := l.funcFor(d)
			if err != nil {
				return nil, err
			}
			if len(f.Params) == 0 {
				return nil, invariantf(ErrBadCtorArgs, rec.decl.PrettyName(), "destructor %s takes no instance", d.Name)
			}
			entry.NewCall(f, castValue(entry, this, f.Params[0].Typ))
		}
		entry.NewRet(nil)
		rec.dtorThunk = thunk
	}
	return rec.dtorThunk, nil
}

// stringConst interns a private constant character array.
func (l *Lowerer) stringConst(s string) *ir.Global {
	if g, ok := l.strConsts[s]; ok {
		return g
	}
	name := fmt.Sprintf(".str.%d", len(l.strConsts))
	g := l.mod.NewGlobalDef(name, constant.NewCharArrayFromString(s))
	g.Immutable = true
	g.Linkage = enum.LinkagePrivate
	g.UnnamedAddr = enum.UnnamedAddrUnnamedAddr
	l.strConsts[s] = g
	return g
}
