package llvm

import (
	lltypes "github.com/llir/llvm/ir/types"

	"classgen/internal/types"
)

// offsetEntry is one field of the inheritance chain at its flattened offset.
type offsetEntry struct {
	offset uint64
	size   uint64
	typ    lltypes.Type
	field  *types.Field
}

type groupMember struct {
	field *types.Field
	sub   int
}

// fieldGroup is one data slot of the class struct. Fields sharing the slot
// overlap it, either at its start (a union) or at an aligned sub-position.
type fieldGroup struct {
	offset  uint64
	size    uint64
	typ     lltypes.Type
	pad     uint64
	owner   *types.Field
	members []groupMember
}

// groupOffsets folds the offset-ordered entries into struct slots. A later
// entry either opens a new slot, widens the current one (a larger union
// member) or lands inside it at a whole multiple of its own size.
func groupOffsets(class string, entries []offsetEntry) ([]fieldGroup, bool, error) {
	var (
		groups    []fieldGroup
		hasUnions bool
	)
	for i, e := range entries {
		if i > 0 && e.offset < entries[i-1].offset {
			return nil, false, invariantf(ErrOffsetNotPlaceable, class,
				"field %s at %d follows offset %d", e.field.Name, e.offset, entries[i-1].offset)
		}
		if len(groups) == 0 {
			groups = append(groups, newGroup(e))
			continue
		}
		g := &groups[len(groups)-1]
		switch {
		case e.offset == g.offset:
			hasUnions = true
			if e.size > g.size {
				g.pad += e.size - g.size
				g.size = e.size
			}
			g.members = append(g.members, groupMember{field: e.field})
		case e.offset < g.offset+g.size:
			if e.size == 0 || e.offset+e.size > g.offset+g.size {
				return nil, false, invariantf(ErrOffsetNotPlaceable, class,
					"field %s at %d size %d straddles slot at %d size %d", e.field.Name, e.offset, e.size, g.offset, g.size)
			}
			rel := e.offset - g.offset
			if rel%e.size != 0 {
				return nil, false, invariantf(ErrOffsetNotPlaceable, class,
					"field %s at %d is not a whole element into slot at %d", e.field.Name, e.offset, g.offset)
			}
			hasUnions = true
			sub, err := narrow[int](class, "sub-index of "+e.field.Name, rel/e.size)
			if err != nil {
				return nil, false, err
			}
			g.members = append(g.members, groupMember{field: e.field, sub: sub})
		default:
			groups = append(groups, newGroup(e))
		}
	}
	return groups, hasUnions, nil
}

func newGroup(e offsetEntry) fieldGroup {
	return fieldGroup{
		offset:  e.offset,
		size:    e.size,
		typ:     e.typ,
		owner:   e.field,
		members: []groupMember{{field: e.field}},
	}
}
