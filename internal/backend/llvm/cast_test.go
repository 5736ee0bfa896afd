package llvm

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	lltypes "github.com/llir/llvm/ir/types"

	"classgen/internal/types"
)

func TestResolveCast(t *testing.T) {
	f := newFixture(t)
	in := f.in
	sub := &types.ClassDecl{Name: "J", Module: "app", IsInterface: true}
	in.RegisterClass(sub)
	cases := []struct {
		name     string
		from, to types.TypeID
		want     CastKind
	}{
		{"upcast", f.derived.Type, f.base.Type, CastStaticClass},
		{"identity", f.base.Type, f.base.Type, CastStaticClass},
		{"downcast", f.base.Type, f.derived.Type, CastDynamicClass},
		{"class to interface", f.derived.Type, f.iface.Type, CastClassToInterface},
		{"interface to class", f.iface.Type, f.base.Type, CastInterfaceToObject},
		{"interface to interface", f.iface.Type, sub.Type, CastInterfaceToInterface},
		{"to raw pointer", f.base.Type, f.b.VoidPtr, CastReinterpret},
		{"to int", f.base.Type, f.b.Int, CastInvalid},
		{"from int", f.b.Int, f.base.Type, CastInvalid},
		{"int to raw pointer", f.b.Long, f.b.VoidPtr, CastReinterpret},
		{"interface to raw pointer", f.iface.Type, f.b.VoidPtr, CastReinterpret},
	}
	for _, tc := range cases {
		if got := ResolveCast(in, tc.from, tc.to); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func castFixture(t *testing.T) (*fixture, *Lowerer, *FuncContext, *ir.Param) {
	t.Helper()
	f := newFixture(t)
	l := f.lowerer()
	st, err := l.ClassType(f.base.Type)
	if err != nil {
		t.Fatal(err)
	}
	p := ir.NewParam("obj", lltypes.NewPointer(st))
	fn := l.Module().NewFunc("caster", lltypes.Void, p)
	return f, l, &FuncContext{Func: fn, Block: fn.NewBlock("entry")}, p
}

func TestCastEmission(t *testing.T) {
	cases := []struct {
		name   string
		to     func(f *fixture) types.TypeID
		helper string
	}{
		{"upcast is a bitcast", func(f *fixture) types.TypeID { return f.prog.Runtime.Object }, ""},
		{"downcast asks the runtime", func(f *fixture) types.TypeID { return f.derived.Type }, "_d_dynamic_cast"},
		{"interface view asks the runtime", func(f *fixture) types.TypeID { return f.iface.Type }, "_d_dynamic_cast"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, l, fc, obj := castFixture(t)
			to := tc.to(f)
			res, err := l.Cast(fc, obj, f.base.Type, to)
			if err != nil {
				t.Fatalf("cast: %v", err)
			}
			want, _ := l.irType(to)
			if !sameType(res.Type(), want) {
				t.Fatalf("result type %s, want %s", res.Type(), want)
			}
			var called string
			for _, inst := range fc.Block.Insts {
				if name := calleeName(inst); name != "" {
					called = name
				}
			}
			if called != tc.helper {
				t.Fatalf("called %q, want %q", called, tc.helper)
			}
		})
	}
}

func TestCastIntegerToRawPointer(t *testing.T) {
	f := newFixture(t)
	l := f.lowerer()
	p := ir.NewParam("addr", lltypes.I64)
	fn := l.Module().NewFunc("addr", lltypes.Void, p)
	fc := &FuncContext{Func: fn, Block: fn.NewBlock("entry")}
	res, err := l.Cast(fc, p, f.b.Long, f.b.VoidPtr)
	if err != nil {
		t.Fatalf("cast: %v", err)
	}
	if _, ok := res.(*ir.InstIntToPtr); !ok || !sameType(res.Type(), lltypes.I8Ptr) {
		t.Fatalf("got %T of type %s", res, res.Type())
	}
}

func TestCastFromInterface(t *testing.T) {
	f := newFixture(t)
	l := f.lowerer()
	ist, err := l.ClassType(f.iface.Type)
	if err != nil {
		t.Fatal(err)
	}
	p := ir.NewParam("view", lltypes.NewPointer(ist))
	fn := l.Module().NewFunc("unwrap", lltypes.Void, p)
	fc := &FuncContext{Func: fn, Block: fn.NewBlock("entry")}
	if _, err := l.Cast(fc, p, f.iface.Type, f.base.Type); err != nil {
		t.Fatalf("cast: %v", err)
	}
	var calls []string
	for _, inst := range fc.Block.Insts {
		if name := calleeName(inst); name != "" {
			calls = append(calls, name)
		}
	}
	if len(calls) != 1 || calls[0] != "_d_toObject" {
		t.Fatalf("calls %v", calls)
	}
}

func TestInvalidCastFails(t *testing.T) {
	f, l, fc, obj := castFixture(t)
	if _, err := l.Cast(fc, obj, f.base.Type, f.b.Int); !IsInvariant(err, ErrInvalidCast) {
		t.Fatalf("expected invalid cast, got %v", err)
	}
}

func TestVirtualFunctionPointer(t *testing.T) {
	f, l, fc, obj := castFixture(t)
	fp, err := l.VirtualFunctionPointer(fc, obj, f.base.Methods[0])
	if err != nil {
		t.Fatalf("vfp: %v", err)
	}
	vt, _ := l.VtblType(f.base.Type)
	if !sameType(fp.Type(), vt.Fields[1]) {
		t.Fatalf("pointer type %s, want %s", fp.Type(), vt.Fields[1])
	}
	loads := 0
	for _, inst := range fc.Block.Insts {
		if _, ok := inst.(*ir.InstLoad); ok {
			loads++
		}
	}
	if loads != 2 {
		t.Fatalf("expected table and entry loads, got %d", loads)
	}

	final := method(f.in, f.base, "g", -1, nil, f.b.Void)
	if _, err := l.VirtualFunctionPointer(fc, obj, final); !IsInvariant(err, ErrNotVirtual) {
		t.Fatalf("expected not virtual, got %v", err)
	}
}

func TestCastKeepsConstants(t *testing.T) {
	f := newFixture(t)
	l := f.lowerer()
	st, _ := l.ClassType(f.derived.Type)
	null := constant.NewNull(lltypes.NewPointer(st))
	fn := l.Module().NewFunc("k", lltypes.Void)
	fc := &FuncContext{Func: fn, Block: fn.NewBlock("entry")}
	res, err := l.Cast(fc, null, f.derived.Type, f.base.Type)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := res.(*constant.ExprBitCast); !ok {
		t.Fatalf("constant upcast should fold, got %T", res)
	}
	if len(fc.Block.Insts) != 0 {
		t.Fatalf("constant upcast emitted %d instructions", len(fc.Block.Insts))
	}
}
