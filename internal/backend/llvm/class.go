package llvm

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	lltypes "github.com/llir/llvm/ir/types"

	"classgen/internal/types"
)

// Declare creates the module symbols of a class without contents: the
// dispatch table, interface infos, secondary tables, instance image and
// descriptor. Abstract classes and interfaces get no table or image.
func (l *Lowerer) Declare(id types.TypeID) (err error) {
	if err := l.Resolve(id); err != nil {
		return err
	}
	rec := l.classes[id]
	if rec.phase >= PhaseDeclared {
		return nil
	}
	if err := rec.enter(PhaseDeclared); err != nil {
		return err
	}
	defer func() { rec.leave(PhaseDeclared, err) }()
	span := l.begin("declare", rec)
	defer span.End("")

	decl := rec.decl
	if decl.IsConcrete() {
		rec.vtbl = l.declareGlobal(vtblSymbol(decl), rec.vtblType, true)
	}
	if len(rec.ifaces) > 0 {
		infoType, err := l.interfaceStruct()
		if err != nil {
			return err
		}
		arr := lltypes.NewArray(uint64(len(rec.ifaces)), infoType)
		rec.infos = l.declareGlobal(interfaceInfosSymbol(decl), arr, true)
		for i, b := range rec.ifaces {
			b.info = constant.NewGetElementPtr(arr, rec.infos, i32(0), i32(int64(i)))
			if decl.IsConcrete() {
				b.table = l.declareGlobal(interfaceTableSymbol(decl, b.iface), b.tableType, true)
			}
		}
	}
	if decl.IsConcrete() {
		rec.init = l.declareGlobal(initSymbol(decl), rec.irType, true)
	}
	return l.DeclareDescriptor(id)
}

// declareGlobal adds an external declaration; definition later attaches the
// initializer and the final linkage.
func (l *Lowerer) declareGlobal(name string, content lltypes.Type, immutable bool) *ir.Global {
	g := l.mod.NewGlobal(name, content)
	g.Immutable = immutable
	g.Linkage = enum.LinkageExternal
	l.noteGlobal(g)
	return g
}

// ConstInit computes the constant contents of the class's symbols. Nothing
// is attached to the module yet. Interfaces have no contents.
func (l *Lowerer) ConstInit(id types.TypeID) (err error) {
	if err := l.Declare(id); err != nil {
		return err
	}
	rec := l.classes[id]
	if rec.phase >= PhaseConstInitialized {
		return nil
	}
	if err := rec.enter(PhaseConstInitialized); err != nil {
		return err
	}
	defer func() { rec.leave(PhaseConstInitialized, err) }()
	decl := rec.decl
	if decl.IsInterface {
		return nil
	}
	span := l.begin("constinit", rec)
	defer span.End("")

	st := rec.irType
	inits := make([]constant.Constant, 0, len(st.Fields))
	if decl.IsConcrete() {
		inits = append(inits, rec.vtbl)
	} else {
		inits = append(inits, constant.NewNull(lltypes.NewPointer(rec.vtblType)))
	}
	inits = append(inits, constant.NewNull(lltypes.I8Ptr))
	for _, g := range rec.groups {
		c, err := l.fieldInit(decl.PrettyName(), g.owner, g.typ)
		if err != nil {
			return err
		}
		inits = append(inits, c)
		if g.pad > 0 {
			inits = append(inits, padding(g.pad))
		}
	}
	for _, b := range rec.ifaces {
		if decl.IsConcrete() {
			inits = append(inits, b.table)
		} else {
			inits = append(inits, constant.NewNull(lltypes.NewPointer(b.tableType)))
		}
	}
	rec.constInit = constant.NewStruct(st, inits...)

	if decl.IsConcrete() {
		vt, err := l.vtblInit(rec)
		if err != nil {
			return err
		}
		rec.constVtbl = vt
	}
	return l.buildInterfaceInits(rec)
}

// Define attaches the constant contents to the declared symbols of a class
// that belongs to the module being built, then defines its descriptor.
// External classes keep their declarations.
func (l *Lowerer) Define(id types.TypeID) (err error) {
	if err := l.ConstInit(id); err != nil {
		return err
	}
	rec := l.classes[id]
	if rec.phase >= PhaseDefined {
		return nil
	}
	if err := rec.enter(PhaseDefined); err != nil {
		return err
	}
	defer func() { rec.leave(PhaseDefined, err) }()
	decl := rec.decl
	if decl.External {
		return nil
	}
	span := l.begin("define", rec)
	defer span.End("")

	linkage := definitionLinkage(decl)
	if decl.IsConcrete() {
		define(rec.init, rec.constInit, linkage)
		define(rec.vtbl, rec.constVtbl, linkage)
		for _, b := range rec.ifaces {
			define(b.table, b.tableInit, linkage)
		}
	}
	if rec.infos != nil {
		define(rec.infos, rec.constInfos, linkage)
	}
	return l.DefineDescriptor(id)
}

func definitionLinkage(decl *types.ClassDecl) enum.Linkage {
	if decl.Template {
		return enum.LinkageWeakODR
	}
	return enum.LinkageNone
}

func define(g *ir.Global, init constant.Constant, linkage enum.Linkage) {
	if g == nil || init == nil {
		return
	}
	g.Init = init
	g.Linkage = linkage
}
