package llvm

import (
	"context"
	"testing"

	"github.com/llir/llvm/ir"

	"classgen/internal/types"
)

// fixture is a small program: interface I { int f(); }, class Base { int x
// = 7; void* p; int f(); } and class Derived : Base, I { long y; int f();
// this(int); two destructors }.
type fixture struct {
	prog    *types.Program
	in      *types.Interner
	b       types.Builtins
	iface   *types.ClassDecl
	base    *types.ClassDecl
	derived *types.ClassDecl
	ctor    *types.Func
}

func method(in *types.Interner, owner *types.ClassDecl, name string, idx int, params []types.TypeID, result types.TypeID) *types.Func {
	return &types.Func{
		Name:      name,
		Mangle:    in.FuncMangle(owner, name, params, result),
		Owner:     owner.Type,
		Params:    params,
		Result:    result,
		VtblIndex: idx,
	}
}

func special(in *types.Interner, owner *types.ClassDecl, kind types.FuncKind, name string, params []types.TypeID) *types.Func {
	f := method(in, owner, name, -1, params, in.Builtins().Void)
	f.Kind = kind
	return f
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	prog := types.NewProgram("app")
	in := prog.Types
	b := in.Builtins()

	iface := &types.ClassDecl{Name: "I", Module: "app", IsInterface: true}
	in.RegisterClass(iface)
	iff := method(in, iface, "f", 1, nil, b.Int)
	iff.Abstract = true
	iface.Methods = []*types.Func{iff}
	iface.Vtbl = []types.VtblEntry{{Descriptor: true}, {Func: iff}}

	base := &types.ClassDecl{Name: "Base", Module: "app", Base: prog.Runtime.Object}
	in.RegisterClass(base)
	base.Fields = []*types.Field{
		{Name: "x", Type: b.Int, Init: &types.Const{Kind: types.ConstInt, Int: 7}},
		{Name: "p", Type: b.VoidPtr},
	}
	in.AssignFieldOffsets(base, nil)
	bf := method(in, base, "f", 1, nil, b.Int)
	base.Methods = []*types.Func{bf}
	base.Vtbl = []types.VtblEntry{{Descriptor: true}, {Func: bf}}

	derived := &types.ClassDecl{Name: "Derived", Module: "app", Base: base.Type, Interfaces: []types.TypeID{iface.Type}}
	in.RegisterClass(derived)
	derived.Fields = []*types.Field{{Name: "y", Type: b.Long}}
	in.AssignFieldOffsets(derived, nil)
	df := method(in, derived, "f", 1, nil, b.Int)
	df.Overrides = bf
	derived.Methods = []*types.Func{df}
	derived.Vtbl = []types.VtblEntry{{Descriptor: true}, {Func: df}}
	ctor := special(in, derived, types.FuncCtor, "__ctor", []types.TypeID{b.Int})
	derived.Ctors = []*types.Func{ctor}
	derived.Dtors = []*types.Func{
		special(in, derived, types.FuncDtor, "__dtor", nil),
		special(in, derived, types.FuncDtor, "__fieldDtor", nil),
	}

	prog.Classes = []types.TypeID{iface.Type, base.Type, derived.Type}
	return &fixture{prog: prog, in: in, b: b, iface: iface, base: base, derived: derived, ctor: ctor}
}

func (f *fixture) lowerer() *Lowerer {
	return New(context.Background(), f.prog, DefaultConfig())
}

// addClass registers a class deriving Object with the given fields, placed
// by groups (nil places every field alone).
func (f *fixture) addClass(name string, fields []*types.Field, groups [][]*types.Field) *types.ClassDecl {
	c := &types.ClassDecl{Name: name, Module: "app", Base: f.prog.Runtime.Object}
	f.in.RegisterClass(c)
	c.Fields = fields
	f.in.AssignFieldOffsets(c, groups)
	c.Vtbl = []types.VtblEntry{{Descriptor: true}}
	f.prog.Classes = append(f.prog.Classes, c.Type)
	return c
}

func findGlobal(m *ir.Module, name string) *ir.Global {
	for _, g := range m.Globals {
		if g.Name() == name {
			return g
		}
	}
	return nil
}

func findFunc(m *ir.Module, name string) *ir.Func {
	for _, fn := range m.Funcs {
		if fn.Name() == name {
			return fn
		}
	}
	return nil
}

func countGlobals(m *ir.Module, name string) int {
	n := 0
	for _, g := range m.Globals {
		if g.Name() == name {
			n++
		}
	}
	return n
}

func calleeName(inst ir.Instruction) string {
	call, ok := inst.(*ir.InstCall)
	if !ok {
		return ""
	}
	if fn, ok := call.Callee.(*ir.Func); ok {
		return fn.Name()
	}
	return ""
}
