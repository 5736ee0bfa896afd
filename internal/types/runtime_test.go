package types

import "testing"

func TestRuntimeClassInfoLayout(t *testing.T) {
	prog := NewProgram("app")
	in := prog.Types
	ci, ok := in.Class(prog.Runtime.ClassInfo)
	if !ok {
		t.Fatalf("ClassInfo not registered")
	}
	want := []struct {
		name   string
		offset uint64
	}{
		{"init", 0},
		{"name", 16},
		{"vtbl", 32},
		{"interfaces", 48},
		{"base", 64},
		{"destructor", 72},
		{"invariant", 80},
		{"flags", 88},
		{"deallocator", 96},
		{"offTi", 104},
		{"defaultConstructor", 120},
	}
	if len(ci.Fields) != len(want) {
		t.Fatalf("ClassInfo has %d fields, want %d", len(ci.Fields), len(want))
	}
	for i, w := range want {
		f := ci.Fields[i]
		if f.Name != w.name || f.Offset != w.offset {
			t.Errorf("field %d: got %s@%d, want %s@%d", i, f.Name, f.Offset, w.name, w.offset)
		}
	}
	if ci.DataSize != 128 {
		t.Fatalf("ClassInfo data size %d", ci.DataSize)
	}
	if ci.Base != prog.Runtime.Object || !ci.External {
		t.Fatalf("ClassInfo must derive Object and be external")
	}
}

func TestRuntimeInterfaceStruct(t *testing.T) {
	prog := NewProgram("app")
	info, ok := prog.Types.StructInfo(prog.Runtime.Interface)
	if !ok || len(info.Fields) != 3 {
		t.Fatalf("Interface struct malformed: %+v", info)
	}
	if info.Size != 32 {
		t.Fatalf("Interface size %d, want 32", info.Size)
	}
	if got := prog.Types.Mangle(prog.Runtime.Interface); got != "S6object9Interface" {
		t.Fatalf("mangle %q", got)
	}
}

func TestMangle(t *testing.T) {
	prog := NewProgram("app")
	in := prog.Types
	b := in.Builtins()
	c := &ClassDecl{Name: "Base", Module: "app"}
	in.RegisterClass(c)
	cases := []struct {
		id   TypeID
		want string
	}{
		{b.Int, "i"},
		{b.Ulong, "m"},
		{in.Intern(MakePointer(b.Char)), "Pa"},
		{in.Intern(MakeArray(b.Int, ArrayDynamicLength)), "Ai"},
		{in.Intern(MakeArray(b.Double, 3)), "G3d"},
		{c.Type, "C3app4Base"},
	}
	for _, tc := range cases {
		if got := in.Mangle(tc.id); got != tc.want {
			t.Errorf("mangle type#%d = %q, want %q", tc.id, got, tc.want)
		}
	}
	if got := in.FuncMangle(c, "f", nil, b.Void); got != "_D3app4Base1fMFZv" {
		t.Fatalf("func mangle %q", got)
	}
}
