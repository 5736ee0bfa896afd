package types

import "testing"

func TestSizeAlign(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	cases := []struct {
		name  string
		id    TypeID
		size  uint64
		align uint64
	}{
		{"bool", b.Bool, 1, 1},
		{"short", b.Short, 2, 2},
		{"int", b.Int, 4, 4},
		{"double", b.Double, 8, 8},
		{"void*", b.VoidPtr, 8, 8},
		{"char[]", in.Intern(MakeArray(b.Char, ArrayDynamicLength)), 16, 8},
		{"int[3]", in.Intern(MakeArray(b.Int, 3)), 12, 4},
	}
	for _, tc := range cases {
		size, align := in.SizeAlign(tc.id)
		if size != tc.size || align != tc.align {
			t.Errorf("%s: got size=%d align=%d, want %d/%d", tc.name, size, align, tc.size, tc.align)
		}
	}
}

func TestStructFieldsGetNaturalOffsets(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	id := in.RegisterStruct("app", "S")
	in.SetStructFields(id, []StructField{
		{Name: "a", Type: b.Ubyte},
		{Name: "b", Type: b.Long},
		{Name: "c", Type: b.Short},
	})
	info, _ := in.StructInfo(id)
	want := []uint64{0, 8, 16}
	for i, f := range info.Fields {
		if f.Offset != want[i] {
			t.Fatalf("field %s: offset %d, want %d", f.Name, f.Offset, want[i])
		}
	}
	if info.Size != 24 || info.Align != 8 {
		t.Fatalf("struct size=%d align=%d", info.Size, info.Align)
	}
}

func TestAssignFieldOffsetsContinuesAfterBase(t *testing.T) {
	prog := NewProgram("app")
	in := prog.Types
	b := in.Builtins()

	base := &ClassDecl{Name: "Base", Module: "app", Base: prog.Runtime.Object}
	in.RegisterClass(base)
	base.Fields = []*Field{{Name: "x", Type: b.Int}}
	in.AssignFieldOffsets(base, nil)

	derived := &ClassDecl{Name: "Derived", Module: "app", Base: base.Type}
	in.RegisterClass(derived)
	derived.Fields = []*Field{{Name: "y", Type: b.Int}, {Name: "p", Type: b.VoidPtr}}
	in.AssignFieldOffsets(derived, nil)

	if base.DataSize != 4 {
		t.Fatalf("base data size %d", base.DataSize)
	}
	if got := in.DataStart(derived.Type); got != 4 {
		t.Fatalf("derived data start %d", got)
	}
	// y lands right after x, p is aligned to 8 in flattened space (offset 8).
	if derived.Fields[0].Offset != 0 || derived.Fields[1].Offset != 4 {
		t.Fatalf("offsets %d %d", derived.Fields[0].Offset, derived.Fields[1].Offset)
	}
	if derived.Fields[1].Owner != derived.Type {
		t.Fatalf("owner not recorded")
	}
}

func TestAssignFieldOffsetsUnionGroup(t *testing.T) {
	prog := NewProgram("app")
	in := prog.Types
	b := in.Builtins()
	c := &ClassDecl{Name: "U", Module: "app", Base: prog.Runtime.Object}
	in.RegisterClass(c)
	i := &Field{Name: "i", Type: b.Int}
	l := &Field{Name: "l", Type: b.Long}
	z := &Field{Name: "z", Type: b.Int}
	c.Fields = []*Field{i, l, z}
	in.AssignFieldOffsets(c, [][]*Field{{i, l}, {z}})
	if i.Offset != 0 || l.Offset != 0 {
		t.Fatalf("union members must share offset: %d %d", i.Offset, l.Offset)
	}
	if z.Offset != 8 || c.DataSize != 12 {
		t.Fatalf("z offset %d, data size %d", z.Offset, c.DataSize)
	}
}

func TestHasPointers(t *testing.T) {
	prog := NewProgram("app")
	in := prog.Types
	b := in.Builtins()
	plain := in.RegisterStruct("app", "Plain")
	in.SetStructFields(plain, []StructField{{Name: "a", Type: b.Int}})
	withPtr := in.RegisterStruct("app", "WithPtr")
	in.SetStructFields(withPtr, []StructField{{Name: "p", Type: in.Intern(MakePointer(b.Int))}})

	cases := []struct {
		id   TypeID
		want bool
	}{
		{b.Int, false},
		{plain, false},
		{withPtr, true},
		{prog.Runtime.Object, true},
		{in.Intern(MakeArray(b.Int, 4)), false},
		{in.Intern(MakeArray(b.Int, ArrayDynamicLength)), true},
	}
	for _, tc := range cases {
		if got := in.HasPointers(tc.id); got != tc.want {
			t.Errorf("type#%d: HasPointers=%v, want %v", tc.id, got, tc.want)
		}
	}
}
