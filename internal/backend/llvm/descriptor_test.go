package llvm

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"

	"classgen/internal/types"
)

func descriptorFields(t *testing.T, l *Lowerer, id types.TypeID) []constant.Constant {
	t.Helper()
	g, err := l.Descriptor(id)
	if err != nil {
		t.Fatalf("descriptor: %v", err)
	}
	s, ok := g.Init.(*constant.Struct)
	if !ok {
		t.Fatalf("descriptor %s has no contents", g.Name())
	}
	return s.Fields
}

func sliceLen(t *testing.T, c constant.Constant) int64 {
	t.Helper()
	s, ok := c.(*constant.Struct)
	if !ok {
		t.Fatalf("%s is not a slice", c.Ident())
	}
	return s.Fields[0].(*constant.Int).X.Int64()
}

func TestDescriptorSlots(t *testing.T) {
	f := newFixture(t)
	l := f.lowerer()
	if err := l.LowerModule(); err != nil {
		t.Fatalf("lower: %v", err)
	}
	fields := descriptorFields(t, l, f.derived.Type)
	if len(fields) != 13 {
		t.Fatalf("descriptor has %d slots", len(fields))
	}
	if fields[0] != l.classes[f.prog.Runtime.ClassInfo].vtbl {
		t.Fatalf("slot 0 must be the ClassInfo vtbl, got %s", fields[0].Ident())
	}
	if n := sliceLen(t, fields[2]); n != 48 {
		t.Fatalf("init length %d, want instance size 48", n)
	}
	if n := sliceLen(t, fields[3]); n != int64(len("app.Derived")) {
		t.Fatalf("name length %d", n)
	}
	if n := sliceLen(t, fields[4]); n != 2 {
		t.Fatalf("vtbl length %d", n)
	}
	if n := sliceLen(t, fields[5]); n != 1 {
		t.Fatalf("interfaces length %d", n)
	}
	if fields[6] != l.classes[f.base.Type].descriptor {
		t.Fatalf("base slot is %s", fields[6].Ident())
	}
	if flags := fields[9].(*constant.Int).X.Int64(); flags != int64(FlagHasCtor|FlagHasOffTi) {
		t.Fatalf("flags %d", flags)
	}
	if n := sliceLen(t, fields[11]); n != 3 {
		t.Fatalf("offTi length %d", n)
	}
	if _, ok := fields[12].(*constant.Null); !ok {
		t.Fatalf("no default constructor expected, got %s", fields[12].Ident())
	}
}

func TestDescriptorFlags(t *testing.T) {
	f := newFixture(t)
	plain := f.addClass("Plain", []*types.Field{{Name: "n", Type: f.b.Int}}, nil)
	empty := f.addClass("Empty", nil, nil)
	l := f.lowerer()
	cases := []struct {
		decl *types.ClassDecl
		want uint32
	}{
		{f.base, FlagHasOffTi},
		{f.derived, FlagHasCtor | FlagHasOffTi},
		{plain, FlagNoPointers | FlagHasOffTi},
		{empty, FlagNoPointers},
	}
	for _, tc := range cases {
		if got := l.descriptorFlags(tc.decl); got != tc.want {
			t.Errorf("%s: flags %d, want %d", tc.decl.Name, got, tc.want)
		}
	}
}

func TestOffsetTypeInfosBaseFirst(t *testing.T) {
	f := newFixture(t)
	l := f.lowerer()
	if err := l.LowerModule(); err != nil {
		t.Fatalf("lower: %v", err)
	}
	g := findGlobal(l.Module(), "TypeInfo_C3app7Derived__OffsetTypeInfos")
	if g == nil {
		t.Fatalf("offTi table missing")
	}
	if g.Linkage != enum.LinkageInternal {
		t.Fatalf("offTi linkage %s", g.Linkage)
	}
	elems := g.Init.(*constant.Array).Elems
	want := []struct {
		offset int64
		ti     string
	}{
		{16, "_D10TypeInfo_i6__initZ"},
		{24, "_D11TypeInfo_Pv6__initZ"},
		{32, "_D10TypeInfo_l6__initZ"},
	}
	if len(elems) != len(want) {
		t.Fatalf("got %d entries", len(elems))
	}
	for i, w := range want {
		e := elems[i].(*constant.Struct)
		if off := e.Fields[0].(*constant.Int).X.Int64(); off != w.offset {
			t.Errorf("entry %d offset %d, want %d", i, off, w.offset)
		}
		if g, ok := e.Fields[1].(*ir.Global); !ok || g.Name() != w.ti {
			t.Errorf("entry %d type info %s, want %s", i, e.Fields[1].Ident(), w.ti)
		}
	}
}

func TestDestructorThunk(t *testing.T) {
	f := newFixture(t)
	one := f.addClass("One", nil, nil)
	one.Dtors = []*types.Func{special(f.in, one, types.FuncDtor, "__dtor", nil)}
	l := f.lowerer()
	if err := l.LowerModule(); err != nil {
		t.Fatalf("lower: %v", err)
	}

	thunk := findFunc(l.Module(), "_D3app7Derived12__destructorMFZv")
	if thunk == nil {
		t.Fatalf("thunk missing")
	}
	if thunk.Linkage != enum.LinkageInternal || len(thunk.Blocks) != 1 {
		t.Fatalf("thunk shape: linkage %s, %d blocks", thunk.Linkage, len(thunk.Blocks))
	}
	insts := thunk.Blocks[0].Insts
	var calls []string
	for _, inst := range insts {
		if name := calleeName(inst); name != "" {
			calls = append(calls, name)
		}
	}
	want := []string{f.derived.Dtors[0].Mangle, f.derived.Dtors[1].Mangle}
	if len(calls) != 2 || calls[0] != want[0] || calls[1] != want[1] {
		t.Fatalf("thunk calls %v, want %v", calls, want)
	}
	if _, ok := thunk.Blocks[0].Term.(*ir.TermRet); !ok {
		t.Fatalf("thunk does not return")
	}

	oneFields := descriptorFields(t, l, one.Type)
	cast, ok := oneFields[7].(*constant.ExprBitCast)
	if !ok || cast.From != findFunc(l.Module(), one.Dtors[0].Mangle) {
		t.Fatalf("single destructor must be referenced directly, got %s", oneFields[7].Ident())
	}
	baseFields := descriptorFields(t, l, f.base.Type)
	if _, ok := baseFields[7].(*constant.Null); !ok {
		t.Fatalf("no destructor must be null, got %s", baseFields[7].Ident())
	}
}

func TestTypeInfoNamedClassReportsBareName(t *testing.T) {
	f := newFixture(t)
	c := f.addClass("TypeInfo_Struct", nil, nil)
	if got := descriptorName(c); got != "TypeInfo_Struct" {
		t.Fatalf("name %q", got)
	}
	if got := descriptorName(f.base); got != "app.Base" {
		t.Fatalf("name %q", got)
	}
	bare := &types.ClassDecl{Name: "TypeInfo_", Module: "app"}
	if got := descriptorName(bare); got != "app.TypeInfo_" {
		t.Fatalf("name %q", got)
	}
}

func TestInterfaceDescriptorHasNoBase(t *testing.T) {
	f := newFixture(t)
	l := f.lowerer()
	if err := l.LowerModule(); err != nil {
		t.Fatal(err)
	}
	fields := descriptorFields(t, l, f.iface.Type)
	if _, ok := fields[6].(*constant.Null); !ok {
		t.Fatalf("interface base slot is %s", fields[6].Ident())
	}
	if n := sliceLen(t, fields[4]); n != 0 {
		t.Fatalf("interface vtbl slice length %d", n)
	}
}
