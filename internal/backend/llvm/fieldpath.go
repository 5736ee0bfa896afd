package llvm

import (
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"classgen/internal/types"
)

// PathStep is one level of a field access: the struct slot, the element
// within that slot for fields placed inside a union member, and the IR type
// reached.
type PathStep struct {
	Index int
	Sub   int
	Field lltypes.Type
}

// OffsetToIndex returns the struct slot that holds the field declared at a
// flattened data offset.
func (l *Lowerer) OffsetToIndex(id types.TypeID, offset uint64) (int, error) {
	if err := l.Resolve(id); err != nil {
		return 0, err
	}
	rec := l.classes[id]
	for _, e := range rec.entries {
		if e.offset == offset {
			return rec.placement[e.field].Index, nil
		}
	}
	return 0, invariantf(ErrOffsetNotFound, rec.decl.PrettyName(), "no field at offset %d", offset)
}

// FieldPath resolves a field of type fieldType at a flattened data offset
// to the slots leading to it. Fields of struct type are searched when the
// offset falls inside them.
func (l *Lowerer) FieldPath(id types.TypeID, fieldType types.TypeID, offset uint64) ([]PathStep, error) {
	if err := l.Resolve(id); err != nil {
		return nil, err
	}
	rec := l.classes[id]
	for _, e := range rec.entries {
		p := rec.placement[e.field]
		if e.offset == offset && e.field.Type == fieldType {
			return []PathStep{{Index: p.Index, Sub: p.Sub, Field: e.typ}}, nil
		}
	}
	for _, e := range rec.entries {
		if !l.isStruct(e.field.Type) || offset < e.offset || offset >= e.offset+e.size {
			continue
		}
		p := rec.placement[e.field]
		rest, err := l.structPath(e.field.Type, fieldType, offset-e.offset)
		if err != nil {
			continue
		}
		return append([]PathStep{{Index: p.Index, Sub: p.Sub, Field: e.typ}}, rest...), nil
	}
	return nil, invariantf(ErrOffsetNotFound, rec.decl.PrettyName(), "no %s field at offset %d", l.in.Mangle(fieldType), offset)
}

func (l *Lowerer) structPath(sid, fieldType types.TypeID, offset uint64) ([]PathStep, error) {
	info, ok := l.in.StructInfo(sid)
	if !ok {
		return nil, invariantf(ErrUnknownType, "", "type#%d is not a struct", sid)
	}
	st, err := l.structType(sid)
	if err != nil {
		return nil, err
	}
	for i, f := range info.Fields {
		if f.Offset == offset && f.Type == fieldType {
			return []PathStep{{Index: i, Field: st.Fields[i]}}, nil
		}
	}
	for i, f := range info.Fields {
		size, _ := l.in.SizeAlign(f.Type)
		if !l.isStruct(f.Type) || offset < f.Offset || offset >= f.Offset+size {
			continue
		}
		rest, err := l.structPath(f.Type, fieldType, offset-f.Offset)
		if err != nil {
			continue
		}
		return append([]PathStep{{Index: i, Field: st.Fields[i]}}, rest...), nil
	}
	return nil, invariantf(ErrOffsetNotFound, info.Name, "no %s field at offset %d", l.in.Mangle(fieldType), offset)
}

func (l *Lowerer) isStruct(id types.TypeID) bool {
	tt, ok := l.in.Lookup(id)
	return ok && tt.Kind == types.KindStruct
}

// IndexClass emits the address of the field of type fieldType at a
// flattened data offset of the instance ptr.
func (l *Lowerer) IndexClass(fc *FuncContext, ptr value.Value, id, fieldType types.TypeID, offset uint64) (value.Value, error) {
	if fc == nil || fc.Block == nil {
		return nil, invariantf(ErrNoContext, "", "no block to emit into")
	}
	steps, err := l.FieldPath(id, fieldType, offset)
	if err != nil {
		return nil, err
	}
	st := l.classes[id].irType
	return l.emitPath(fc, ptr, st, steps, fieldType)
}

// IndexStruct is IndexClass for a pointer to a value struct; offset is from
// the struct start.
func (l *Lowerer) IndexStruct(fc *FuncContext, ptr value.Value, sid, fieldType types.TypeID, offset uint64) (value.Value, error) {
	if fc == nil || fc.Block == nil {
		return nil, invariantf(ErrNoContext, "", "no block to emit into")
	}
	steps, err := l.structPath(sid, fieldType, offset)
	if err != nil {
		return nil, err
	}
	st, err := l.structType(sid)
	if err != nil {
		return nil, err
	}
	return l.emitPath(fc, ptr, st, steps, fieldType)
}

func (l *Lowerer) emitPath(fc *FuncContext, ptr value.Value, root lltypes.Type, steps []PathStep, fieldType types.TypeID) (value.Value, error) {
	want, err := l.irType(fieldType)
	if err != nil {
		return nil, err
	}
	b := fc.Block
	cur := castValue(b, ptr, lltypes.NewPointer(root))
	elem := root
	for _, s := range steps {
		cur = b.NewGetElementPtr(elem, cur, i32(0), i32(int64(s.Index)))
		if s.Sub != 0 || !sameType(slotType(elem, s.Index), s.Field) {
			cur = castValue(b, cur, lltypes.NewPointer(s.Field))
		}
		if s.Sub != 0 {
			cur = b.NewGetElementPtr(s.Field, cur, i32(int64(s.Sub)))
		}
		elem = s.Field
	}
	return castValue(b, cur, lltypes.NewPointer(want)), nil
}

func slotType(t lltypes.Type, idx int) lltypes.Type {
	if st, ok := t.(*lltypes.StructType); ok && idx < len(st.Fields) {
		return st.Fields[idx]
	}
	return t
}
