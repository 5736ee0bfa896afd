package llvm

import (
	"context"
	"strings"
	"testing"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"

	"classgen/internal/types"
)

func TestPhasesMoveForwardAndAreIdempotent(t *testing.T) {
	f := newFixture(t)
	l := f.lowerer()
	if err := l.Declare(f.derived.Type); err != nil {
		t.Fatalf("declare: %v", err)
	}
	if got := l.PhaseOf(f.derived.Type); got != PhaseDeclared {
		t.Fatalf("phase %s after declare", got)
	}
	if err := l.Resolve(f.derived.Type); err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	if got := l.PhaseOf(f.derived.Type); got != PhaseDeclared {
		t.Fatalf("phase regressed to %s", got)
	}
	for range 2 {
		if err := l.Define(f.derived.Type); err != nil {
			t.Fatalf("define: %v", err)
		}
	}
	if got := l.PhaseOf(f.derived.Type); got != PhaseDefined {
		t.Fatalf("phase %s after define", got)
	}
	for _, name := range []string{"_D3app7Derived6__vtblZ", "_D3app7Derived6__initZ", "_D3app7Derived7__ClassZ"} {
		if n := countGlobals(l.Module(), name); n != 1 {
			t.Errorf("%s declared %d times", name, n)
		}
	}
}

func TestDeclaredSymbolsByClassKind(t *testing.T) {
	f := newFixture(t)
	abs := f.addClass("Shape", nil, nil)
	abs.IsAbstract = true
	abs.Interfaces = []types.TypeID{f.iface.Type}
	area := method(f.in, abs, "f", 1, nil, f.b.Int)
	area.Abstract = true
	abs.Methods = []*types.Func{area}
	abs.Vtbl = []types.VtblEntry{{Descriptor: true}, {Func: area}}

	l := f.lowerer()
	if err := l.LowerModule(); err != nil {
		t.Fatalf("lower: %v", err)
	}
	m := l.Module()
	cases := []struct {
		name    string
		present bool
	}{
		{"_D3app7Derived6__vtblZ", true},
		{"_D3app7Derived6__initZ", true},
		{"_D3app7Derived16__interfaceInfosZ", true},
		{"_D3app7Derived11__interface3app1I6__vtblZ", true},
		{"_D3app7Derived7__ClassZ", true},
		{"_D3app1I11__InterfaceZ", true},
		{"_D3app1I6__vtblZ", false},
		{"_D3app1I6__initZ", false},
		{"_D3app1I16__interfaceInfosZ", false},
		{"_D3app5Shape6__vtblZ", false},
		{"_D3app5Shape6__initZ", false},
		{"_D3app5Shape16__interfaceInfosZ", true},
		{"_D3app5Shape7__ClassZ", true},
	}
	for _, tc := range cases {
		if got := findGlobal(m, tc.name) != nil; got != tc.present {
			t.Errorf("%s present=%v, want %v", tc.name, got, tc.present)
		}
	}

	init, err := l.Initializer(abs.Type)
	if err != nil {
		t.Fatal(err)
	}
	s := init.(*constant.Struct)
	if _, ok := s.Fields[0].(*constant.Null); !ok {
		t.Fatalf("abstract instance image slot 0 is %s", s.Fields[0].Ident())
	}
	infos := findGlobal(m, "_D3app5Shape16__interfaceInfosZ")
	rec := infos.Init.(*constant.Array).Elems[0].(*constant.Struct)
	if n := rec.Fields[1].(*constant.Struct).Fields[0].(*constant.Int); n.X.Int64() != 0 {
		t.Fatalf("abstract info record lists %d methods", n.X.Int64())
	}
}

func TestExternalClassesStayDeclarations(t *testing.T) {
	f := newFixture(t)
	l := f.lowerer()
	if err := l.LowerModule(); err != nil {
		t.Fatalf("lower: %v", err)
	}
	for _, name := range []string{"_D6object9ClassInfo7__ClassZ", "_D6object6Object7__ClassZ"} {
		g := findGlobal(l.Module(), name)
		if g == nil {
			t.Fatalf("%s missing", name)
		}
		if g.Init != nil || g.Linkage != enum.LinkageExternal {
			t.Fatalf("%s must stay an external declaration", name)
		}
	}
}

func TestVtblInitBitcastsOverrides(t *testing.T) {
	f := newFixture(t)
	l := f.lowerer()
	if err := l.ConstInit(f.derived.Type); err != nil {
		t.Fatalf("constinit: %v", err)
	}
	vt := l.classes[f.derived.Type].constVtbl.(*constant.Struct)
	if len(vt.Fields) != 2 {
		t.Fatalf("vtbl has %d entries", len(vt.Fields))
	}
	if vt.Fields[0] != l.classes[f.derived.Type].descriptor {
		t.Fatalf("slot 0 is %s", vt.Fields[0].Ident())
	}
	cast, ok := vt.Fields[1].(*constant.ExprBitCast)
	if !ok {
		t.Fatalf("override slot is %T", vt.Fields[1])
	}
	if fn := findFunc(l.Module(), "_D3app7Derived1fMFZi"); fn == nil || cast.From != fn {
		t.Fatalf("override slot points at %s", cast.From.Ident())
	}
}

func TestInterfaceTableAndInfoRecord(t *testing.T) {
	f := newFixture(t)
	l := f.lowerer()
	if err := l.Define(f.derived.Type); err != nil {
		t.Fatalf("define: %v", err)
	}
	m := l.Module()
	table := findGlobal(m, "_D3app7Derived11__interface3app1I6__vtblZ")
	tinit := table.Init.(*constant.Struct)
	if gep, ok := tinit.Fields[0].(*constant.ExprGetElementPtr); !ok || gep.Src != findGlobal(m, "_D3app7Derived16__interfaceInfosZ") {
		t.Fatalf("table slot 0 must point into the info array, got %s", tinit.Fields[0].Ident())
	}
	if _, ok := tinit.Fields[1].(*constant.ExprBitCast); !ok {
		t.Fatalf("implementation slot is %T", tinit.Fields[1])
	}

	infos := findGlobal(m, "_D3app7Derived16__interfaceInfosZ").Init.(*constant.Array)
	if len(infos.Elems) != 1 {
		t.Fatalf("got %d info records", len(infos.Elems))
	}
	rec := infos.Elems[0].(*constant.Struct)
	if rec.Fields[0] != findGlobal(m, "_D3app1I11__InterfaceZ") {
		t.Fatalf("info names %s", rec.Fields[0].Ident())
	}
	methods := rec.Fields[1].(*constant.Struct)
	if n := methods.Fields[0].(*constant.Int).X.Int64(); n != 1 {
		t.Fatalf("info lists %d methods", n)
	}
	if off := rec.Fields[2].(*constant.Int).X.Int64(); off != 40 {
		t.Fatalf("this offset %d, want 40", off)
	}
}

func TestMissingInterfaceMethod(t *testing.T) {
	f := newFixture(t)
	c := f.addClass("Lazy", nil, nil)
	c.Interfaces = []types.TypeID{f.iface.Type}
	l := f.lowerer()
	if err := l.ConstInit(c.Type); !IsInvariant(err, ErrMissingMethod) {
		t.Fatalf("expected missing method, got %v", err)
	}
}

func TestInstanceImageUsesFieldDefaults(t *testing.T) {
	f := newFixture(t)
	l := f.lowerer()
	init, err := l.Initializer(f.base.Type)
	if err != nil {
		t.Fatal(err)
	}
	s := init.(*constant.Struct)
	if s.Fields[0] != l.classes[f.base.Type].vtbl {
		t.Fatalf("slot 0 is %s", s.Fields[0].Ident())
	}
	if _, ok := s.Fields[1].(*constant.Null); !ok {
		t.Fatalf("monitor is %s", s.Fields[1].Ident())
	}
	if x := s.Fields[2].(*constant.Int).X.Int64(); x != 7 {
		t.Fatalf("x = %d", x)
	}
	if _, ok := s.Fields[3].(*constant.Null); !ok {
		t.Fatalf("p is %s", s.Fields[3].Ident())
	}
}

func TestBadInitializerRejected(t *testing.T) {
	f := newFixture(t)
	c := f.addClass("Bad", []*types.Field{{Name: "p", Type: f.b.VoidPtr, Init: &types.Const{Kind: types.ConstFloat, Float: 1.5}}}, nil)
	l := f.lowerer()
	if err := l.ConstInit(c.Type); !IsInvariant(err, ErrBadInitializer) {
		t.Fatalf("expected bad initializer, got %v", err)
	}
}

func TestTemplateClassesUseWeakLinkage(t *testing.T) {
	f := newFixture(t)
	f.base.Template = true
	l := f.lowerer()
	if err := l.LowerModule(); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"_D3app4Base6__vtblZ", "_D3app4Base6__initZ", "_D3app4Base7__ClassZ"} {
		if g := findGlobal(l.Module(), name); g.Linkage != enum.LinkageWeakODR {
			t.Errorf("%s linkage %s", name, g.Linkage)
		}
	}
}

func TestLoweringIsDeterministic(t *testing.T) {
	first, err := EmitModule(context.Background(), newFixture(t).prog, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	second, err := EmitModule(context.Background(), newFixture(t).prog, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatalf("two lowerings differ")
	}
	if !strings.Contains(first, "%C3app7Derived = type {") {
		t.Fatalf("class struct missing from output:\n%s", first)
	}
}
