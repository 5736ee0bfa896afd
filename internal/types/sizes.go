package types

// SizeAlign returns the natural size and alignment of a type in bytes.
// Class references, pointers and functions are pointer sized; slices are a
// (length, pointer) pair.
func (in *Interner) SizeAlign(id TypeID) (size, align uint64) {
	tt, ok := in.Lookup(id)
	if !ok {
		return 0, 1
	}
	ptr := in.PtrSize
	if ptr == 0 {
		ptr = 8
	}
	switch tt.Kind {
	case KindVoid:
		return 0, 1
	case KindBool:
		return 1, 1
	case KindChar, KindInt, KindUint, KindFloat:
		n := uint64(tt.Width) / 8
		return n, n
	case KindPointer, KindClass, KindFn:
		return ptr, ptr
	case KindArray:
		if tt.IsSlice() {
			return 2 * ptr, ptr
		}
		elemSize, elemAlign := in.SizeAlign(tt.Elem)
		return roundUp(elemSize, elemAlign) * uint64(tt.Count), elemAlign
	case KindStruct:
		info := in.structInfo(id)
		if info == nil {
			return 0, 1
		}
		return info.Size, max(info.Align, 1)
	default:
		return 0, 1
	}
}

// HasPointers reports whether values of the type need pointer scanning.
func (in *Interner) HasPointers(id TypeID) bool {
	tt, ok := in.Lookup(id)
	if !ok {
		return false
	}
	switch tt.Kind {
	case KindPointer, KindClass, KindFn:
		return true
	case KindArray:
		return tt.IsSlice() || in.HasPointers(tt.Elem)
	case KindStruct:
		info := in.structInfo(id)
		if info == nil {
			return false
		}
		for _, f := range info.Fields {
			if in.HasPointers(f.Type) {
				return true
			}
		}
	}
	return false
}

// AssignFieldOffsets places the class's own fields after its ancestors'
// data. Each group shares one offset (a union); a nil groups slice places
// every field on its own. The group starts at the strictest alignment of its
// members.
func (in *Interner) AssignFieldOffsets(decl *ClassDecl, groups [][]*Field) {
	if groups == nil {
		groups = make([][]*Field, 0, len(decl.Fields))
		for _, f := range decl.Fields {
			groups = append(groups, []*Field{f})
		}
	}
	start := in.DataStart(decl.Type)
	cursor := start
	align := uint64(1)
	for _, g := range groups {
		var gsize, galign uint64 = 0, 1
		for _, f := range g {
			s, a := in.SizeAlign(f.Type)
			gsize = max(gsize, s)
			galign = max(galign, a)
		}
		cursor = roundUp(cursor, galign)
		for _, f := range g {
			f.Offset = cursor - start
			f.Owner = decl.Type
		}
		cursor += gsize
		align = max(align, galign)
	}
	decl.DataSize = cursor - start
	decl.DataAlign = align
}

func roundUp(n, align uint64) uint64 {
	if align <= 1 {
		return n
	}
	if r := n % align; r != 0 {
		return n + (align - r)
	}
	return n
}
