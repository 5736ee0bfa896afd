package types

import "slices"

// ConstKind tags the payload of a field default initializer.
type ConstKind uint8

const (
	ConstInt ConstKind = iota + 1
	ConstFloat
	ConstBool
	ConstNull
)

// Const is a compile-time field initializer produced by the semantic pass.
type Const struct {
	Kind  ConstKind
	Int   int64
	Float float64
	Bool  bool
}

// Field is a data member of a class. Offset is relative to the start of the
// declaring class's own data, before inheritance flattening.
type Field struct {
	Name   string
	Type   TypeID
	Offset uint64
	Init   *Const
	Owner  TypeID
}

// FuncKind distinguishes methods from special members.
type FuncKind uint8

const (
	FuncMethod FuncKind = iota
	FuncCtor
	FuncDtor
)

// Func is a member function declaration. Bodies live elsewhere; lowering only
// needs the symbol and signature.
type Func struct {
	Name      string
	Mangle    string
	Owner     TypeID
	Kind      FuncKind
	Params    []TypeID
	Result    TypeID
	Abstract  bool
	Overrides *Func
	VtblIndex int // -1 when the function is not virtual
}

// Root returns the first declaration of the override chain.
func (f *Func) Root() *Func {
	for f != nil && f.Overrides != nil {
		f = f.Overrides
	}
	return f
}

// Implements reports whether f is a concrete method with the signature of
// the interface method ifn.
func (f *Func) Implements(ifn *Func) bool {
	return f != nil && ifn != nil && !f.Abstract &&
		f.Name == ifn.Name && f.Result == ifn.Result && slices.Equal(f.Params, ifn.Params)
}

// IsVirtual reports whether f occupies a dispatch table slot.
func (f *Func) IsVirtual() bool {
	return f != nil && f.VtblIndex > 0
}

// VtblEntry is one slot of a resolved dispatch table: a method, or the
// descriptor pointer that leads every table.
type VtblEntry struct {
	Func       *Func
	Descriptor bool
}

// ClassDecl is a validated class or interface declaration.
type ClassDecl struct {
	Name   string
	Module string
	Mangle string
	Type   TypeID

	Base       TypeID
	Interfaces []TypeID
	Fields     []*Field
	Vtbl       []VtblEntry
	Methods    []*Func
	Ctors      []*Func
	Dtors      []*Func

	DefaultCtor *Func
	VThis       *Field

	IsInterface bool
	IsAbstract  bool
	IsNested    bool
	External    bool
	Template    bool

	DataSize  uint64
	DataAlign uint64
}

// PrettyName returns the module-qualified class name.
func (c *ClassDecl) PrettyName() string {
	return qualifiedName(c.Module, c.Name)
}

// IsConcrete reports whether instances of the class can exist on their own.
func (c *ClassDecl) IsConcrete() bool {
	return !c.IsInterface && !c.IsAbstract
}

// RegisterClass allocates a class type slot and attaches the declaration.
func (in *Interner) RegisterClass(decl *ClassDecl) TypeID {
	in.classes = append(in.classes, decl)
	slot := payloadSlot(len(in.classes) - 1)
	id := in.internRaw(Type{Kind: KindClass, Payload: slot})
	decl.Type = id
	if decl.Mangle == "" {
		decl.Mangle = qualifiedMangle(decl.Module, decl.Name)
	}
	in.bindName(id, decl.PrettyName(), decl.Name)
	return id
}

// Class returns the declaration behind a class TypeID.
func (in *Interner) Class(id TypeID) (*ClassDecl, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindClass {
		return nil, false
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.classes) {
		return nil, false
	}
	decl := in.classes[tt.Payload]
	return decl, decl != nil
}

// IsInterface reports whether id names an interface.
func (in *Interner) IsInterface(id TypeID) bool {
	decl, ok := in.Class(id)
	return ok && decl.IsInterface
}

// Chain returns the class and its ancestors, base-most first.
func (in *Interner) Chain(id TypeID) []*ClassDecl {
	var rev []*ClassDecl
	seen := make(map[TypeID]struct{}, 4)
	for id != NoTypeID {
		if _, ok := seen[id]; ok {
			break
		}
		seen[id] = struct{}{}
		decl, ok := in.Class(id)
		if !ok {
			break
		}
		rev = append(rev, decl)
		id = decl.Base
	}
	out := make([]*ClassDecl, len(rev))
	for i, d := range rev {
		out[len(rev)-1-i] = d
	}
	return out
}

// IsBaseOf reports whether base is derived itself or one of its ancestors.
// Interfaces are not considered.
func (in *Interner) IsBaseOf(base, derived TypeID) bool {
	for _, decl := range in.Chain(derived) {
		if decl.Type == base {
			return true
		}
	}
	return false
}

// DataStart returns the flattened offset at which the class's own data
// begins, i.e. the data size of all ancestors.
func (in *Interner) DataStart(id TypeID) uint64 {
	decl, ok := in.Class(id)
	if !ok || decl.Base == NoTypeID {
		return 0
	}
	var total uint64
	for _, anc := range in.Chain(decl.Base) {
		total += anc.DataSize
	}
	return total
}
