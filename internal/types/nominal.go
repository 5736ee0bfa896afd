package types

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

// StructField describes a single field inside a nominal struct type.
type StructField struct {
	Name   string
	Type   TypeID
	Offset uint64
}

// StructInfo stores metadata for a struct type.
type StructInfo struct {
	Name   string
	Module string
	Mangle string
	Fields []StructField
	Size   uint64
	Align  uint64
}

// FnInfo stores metadata for function types.
type FnInfo struct {
	Params []TypeID
	Result TypeID
}

// RegisterStruct allocates a nominal struct type slot and returns its TypeID.
func (in *Interner) RegisterStruct(module, name string) TypeID {
	in.structs = append(in.structs, StructInfo{
		Name:   name,
		Module: module,
		Mangle: "S" + qualifiedMangle(module, name),
	})
	slot := payloadSlot(len(in.structs) - 1)
	id := in.internRaw(Type{Kind: KindStruct, Payload: slot})
	in.bindName(id, qualifiedName(module, name), name)
	return id
}

// SetStructFields stores the resolved field descriptors and recomputes the
// natural layout of the struct.
func (in *Interner) SetStructFields(typeID TypeID, fields []StructField) {
	info := in.structInfo(typeID)
	if info == nil {
		return
	}
	info.Fields = slices.Clone(fields)
	var off, align uint64 = 0, 1
	for i := range info.Fields {
		size, a := in.SizeAlign(info.Fields[i].Type)
		off = roundUp(off, a)
		info.Fields[i].Offset = off
		off += size
		align = max(align, a)
	}
	info.Size = roundUp(off, align)
	info.Align = align
}

// StructInfo returns metadata for the provided struct TypeID.
func (in *Interner) StructInfo(typeID TypeID) (*StructInfo, bool) {
	info := in.structInfo(typeID)
	if info == nil {
		return nil, false
	}
	return info, true
}

func (in *Interner) structInfo(typeID TypeID) *StructInfo {
	tt, ok := in.Lookup(typeID)
	if !ok || tt.Kind != KindStruct {
		return nil
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.structs) {
		return nil
	}
	return &in.structs[tt.Payload]
}

// RegisterFn creates or finds a function type.
func (in *Interner) RegisterFn(params []TypeID, result TypeID) TypeID {
	for id := TypeID(1); int(id) < len(in.types); id++ {
		tt := in.types[id]
		if tt.Kind != KindFn || int(tt.Payload) >= len(in.fns) {
			continue
		}
		info := in.fns[tt.Payload]
		if info.Result == result && slices.Equal(info.Params, params) {
			return id
		}
	}
	in.fns = append(in.fns, FnInfo{Params: slices.Clone(params), Result: result})
	return in.internRaw(Type{Kind: KindFn, Payload: payloadSlot(len(in.fns) - 1)})
}

// FnInfo retrieves function type metadata by TypeID.
func (in *Interner) FnInfo(id TypeID) (*FnInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindFn {
		return nil, false
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.fns) {
		return nil, false
	}
	return &in.fns[tt.Payload], true
}

func payloadSlot(n int) uint32 {
	slot, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("nominal slot overflow: %w", err))
	}
	return slot
}

func qualifiedName(module, name string) string {
	if module == "" {
		return name
	}
	return module + "." + name
}
