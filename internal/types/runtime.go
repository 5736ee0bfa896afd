package types

// RuntimeModule is the module that hosts the runtime-provided declarations.
const RuntimeModule = "object"

// Runtime holds the TypeIDs of declarations whose layout is shared with the
// runtime library. Their shape is fixed and must match the runtime exactly.
type Runtime struct {
	Object         TypeID
	TypeInfo       TypeID
	ClassInfo      TypeID
	Interface      TypeID
	OffsetTypeInfo TypeID
}

// NewRuntime registers the runtime declarations in the interner.
//
// Descriptor layout, after the two header slots:
//
//	init, name, vtbl, interfaces, base, destructor, invariant,
//	flags, deallocator, offTi, defaultConstructor
func NewRuntime(in *Interner) *Runtime {
	b := in.Builtins()
	rt := &Runtime{}

	object := &ClassDecl{Name: "Object", Module: RuntimeModule, External: true}
	rt.Object = in.RegisterClass(object)
	object.Vtbl = []VtblEntry{{Descriptor: true}}

	typeInfo := &ClassDecl{Name: "TypeInfo", Module: RuntimeModule, External: true, Base: rt.Object}
	rt.TypeInfo = in.RegisterClass(typeInfo)
	typeInfo.Vtbl = []VtblEntry{{Descriptor: true}}

	classInfo := &ClassDecl{Name: "ClassInfo", Module: RuntimeModule, External: true, Base: rt.Object}
	rt.ClassInfo = in.RegisterClass(classInfo)
	classInfo.Vtbl = []VtblEntry{{Descriptor: true}}

	voidPtrSlice := in.Intern(MakeArray(b.VoidPtr, ArrayDynamicLength))

	rt.Interface = in.RegisterStruct(RuntimeModule, "Interface")
	in.SetStructFields(rt.Interface, []StructField{
		{Name: "classinfo", Type: rt.ClassInfo},
		{Name: "vtbl", Type: voidPtrSlice},
		{Name: "offset", Type: b.Uint},
	})

	rt.OffsetTypeInfo = in.RegisterStruct(RuntimeModule, "OffsetTypeInfo")
	in.SetStructFields(rt.OffsetTypeInfo, []StructField{
		{Name: "offset", Type: b.Ulong},
		{Name: "ti", Type: rt.TypeInfo},
	})

	field := func(name string, t TypeID) *Field {
		return &Field{Name: name, Type: t}
	}
	classInfo.Fields = []*Field{
		field("init", in.Intern(MakeArray(b.Byte, ArrayDynamicLength))),
		field("name", in.Intern(MakeArray(b.Char, ArrayDynamicLength))),
		field("vtbl", voidPtrSlice),
		field("interfaces", in.Intern(MakeArray(rt.Interface, ArrayDynamicLength))),
		field("base", rt.ClassInfo),
		field("destructor", b.VoidPtr),
		field("invariant", b.VoidPtr),
		field("flags", b.Uint),
		field("deallocator", b.VoidPtr),
		field("offTi", in.Intern(MakeArray(rt.OffsetTypeInfo, ArrayDynamicLength))),
		field("defaultConstructor", b.VoidPtr),
	}
	in.AssignFieldOffsets(object, nil)
	in.AssignFieldOffsets(typeInfo, nil)
	in.AssignFieldOffsets(classInfo, nil)
	return rt
}

// Program is the validated input of one compilation unit.
type Program struct {
	Module  string
	Types   *Interner
	Runtime *Runtime
	// Classes lists the unit's own classes and interfaces in declaration
	// order. Runtime and imported declarations are reachable through the
	// interner only.
	Classes []TypeID
}

// NewProgram returns an empty program with the runtime registered, laid out
// for 8-byte pointers.
func NewProgram(module string) *Program {
	return NewProgramFor(module, 0)
}

// NewProgramFor is NewProgram for a target with ptrSize-byte pointers. Zero
// keeps the default.
func NewProgramFor(module string, ptrSize uint64) *Program {
	in := NewInterner()
	if ptrSize != 0 {
		in.PtrSize = ptrSize
	}
	return &Program{
		Module:  module,
		Types:   in,
		Runtime: NewRuntime(in),
	}
}
