package types

import (
	"fmt"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for common primitive types.
type Builtins struct {
	Invalid TypeID
	Void    TypeID
	Bool    TypeID
	Char    TypeID
	Byte    TypeID
	Ubyte   TypeID
	Short   TypeID
	Ushort  TypeID
	Int     TypeID
	Uint    TypeID
	Long    TypeID
	Ulong   TypeID
	Float   TypeID
	Double  TypeID
	VoidPtr TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
// Nominal types (structs, classes, function signatures) get a payload slot
// so that two declarations with the same shape stay distinct.
type Interner struct {
	// PtrSize is the pointer width used for source-level size queries.
	PtrSize uint64

	types    []Type
	index    map[typeKey]TypeID
	builtins Builtins
	structs  []StructInfo
	classes  []*ClassDecl
	fns      []FnInfo
	byName   map[string]TypeID
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		PtrSize: 8,
		index:   make(map[typeKey]TypeID, 64),
		byName:  make(map[string]TypeID, 32),
	}
	in.structs = append(in.structs, StructInfo{}) // reserve 0 as invalid sentinel
	in.classes = append(in.classes, nil)
	in.fns = append(in.fns, FnInfo{})
	in.builtins.Invalid = in.internRaw(Type{Kind: KindInvalid})
	in.builtins.Void = in.Intern(Type{Kind: KindVoid})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.Char = in.Intern(Type{Kind: KindChar, Width: Width8})
	in.builtins.Byte = in.Intern(MakeInt(Width8))
	in.builtins.Ubyte = in.Intern(MakeUint(Width8))
	in.builtins.Short = in.Intern(MakeInt(Width16))
	in.builtins.Ushort = in.Intern(MakeUint(Width16))
	in.builtins.Int = in.Intern(MakeInt(Width32))
	in.builtins.Uint = in.Intern(MakeUint(Width32))
	in.builtins.Long = in.Intern(MakeInt(Width64))
	in.builtins.Ulong = in.Intern(MakeUint(Width64))
	in.builtins.Float = in.Intern(MakeFloat(Width32))
	in.builtins.Double = in.Intern(MakeFloat(Width64))
	in.builtins.VoidPtr = in.Intern(MakePointer(in.builtins.Void))
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	key := typeKey(t)
	if id, ok := in.index[key]; ok {
		return id
	}
	return in.internRaw(t)
}

// internRaw adds the descriptor to the storage without consulting the map.
func (in *Interner) internRaw(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	in.index[typeKey(t)] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if in == nil || id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// Named returns the nominal type registered under a qualified name
// ("module.Name") or a bare name.
func (in *Interner) Named(name string) (TypeID, bool) {
	id, ok := in.byName[name]
	return id, ok
}

func (in *Interner) bindName(id TypeID, names ...string) {
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, taken := in.byName[n]; taken {
			continue
		}
		in.byName[n] = id
	}
}

type typeKey struct {
	Kind    Kind
	Elem    TypeID
	Count   uint32
	Width   Width
	Payload uint32
}
