package llvm

import (
	"sort"

	lltypes "github.com/llir/llvm/ir/types"

	"classgen/internal/types"
)

// Resolve computes the IR struct and dispatch table type of a class. Bases
// and every interface reachable from the class resolve first.
func (l *Lowerer) Resolve(id types.TypeID) (err error) {
	rec, err := l.record(id)
	if err != nil {
		return err
	}
	if rec.phase >= PhaseResolved {
		return nil
	}
	if err := rec.enter(PhaseResolved); err != nil {
		return err
	}
	defer func() { rec.leave(PhaseResolved, err) }()
	span := l.begin("resolve", rec)
	defer span.End("")

	decl := rec.decl
	if decl.Base != types.NoTypeID {
		if err := l.Resolve(decl.Base); err != nil {
			return err
		}
	}
	ifaces, err := l.flattenInterfaces(decl)
	if err != nil {
		return err
	}

	entries, err := l.chainEntries(id)
	if err != nil {
		return err
	}
	groups, hasUnions, err := groupOffsets(decl.PrettyName(), entries)
	if err != nil {
		return err
	}
	rec.entries = entries
	rec.groups = groups
	rec.hasUnions = hasUnions

	fields := []lltypes.Type{lltypes.NewPointer(rec.vtblType), lltypes.I8Ptr}
	groupSlots := make([]int, len(groups))
	for gi, g := range groups {
		idx := len(fields)
		groupSlots[gi] = idx
		fields = append(fields, g.typ)
		for _, m := range g.members {
			rec.placement[m.field] = fieldPlacement{Index: idx, Sub: m.sub}
		}
		if g.pad > 0 {
			fields = append(fields, lltypes.NewArray(g.pad, lltypes.I8))
		}
	}
	if !decl.IsInterface {
		for _, iface := range ifaces {
			irec := l.classes[iface.Type]
			rec.ifaces = append(rec.ifaces, &interfaceBinding{
				iface:     iface,
				slot:      len(fields),
				tableType: irec.vtblType,
			})
			fields = append(fields, lltypes.NewPointer(irec.vtblType))
		}
	}
	rec.irType.Fields = fields
	rec.irType.Opaque = false
	l.layout.Forget(rec.irType)

	for gi, g := range groups {
		got, err := l.layout.FieldOffset(rec.irType, groupSlots[gi])
		if err != nil {
			return err
		}
		at, err := narrow[uint64](decl.PrettyName(), "offset of "+g.owner.Name, got)
		if err != nil {
			return err
		}
		want := l.headerSize + g.offset
		if at != want {
			return invariantf(ErrOffsetMismatch, decl.PrettyName(),
				"field %s lands at %d, expected %d", g.owner.Name, got, want)
		}
	}

	if err := l.buildVtblType(rec); err != nil {
		return err
	}
	span.Set("slots", itoa(len(fields)))
	return nil
}

// chainEntries lists the data fields of the class and all its ancestors at
// their flattened offsets, ordered by offset. Fields sharing an offset keep
// declaration order.
func (l *Lowerer) chainEntries(id types.TypeID) ([]offsetEntry, error) {
	var entries []offsetEntry
	for _, anc := range l.in.Chain(id) {
		start := l.in.DataStart(anc.Type)
		for _, f := range anc.Fields {
			ft, err := l.irType(f.Type)
			if err != nil {
				return nil, err
			}
			size, _ := l.in.SizeAlign(f.Type)
			entries = append(entries, offsetEntry{
				offset: start + f.Offset,
				size:   size,
				typ:    ft,
				field:  f,
			})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].offset < entries[j].offset
	})
	return entries, nil
}

// flattenInterfaces walks the bases and interfaces of decl depth first and
// collects each interface once, super-interfaces before the interfaces that
// extend them.
func (l *Lowerer) flattenInterfaces(decl *types.ClassDecl) ([]*types.ClassDecl, error) {
	var (
		out  []*types.ClassDecl
		seen = make(map[types.TypeID]struct{})
	)
	var walk func(bases []types.TypeID) error
	walk = func(bases []types.TypeID) error {
		for _, b := range bases {
			if err := l.Resolve(b); err != nil {
				return err
			}
			bd := l.classes[b].decl
			if err := walk(directBases(bd)); err != nil {
				return err
			}
			if !bd.IsInterface {
				continue
			}
			if _, ok := seen[b]; ok {
				continue
			}
			seen[b] = struct{}{}
			out = append(out, bd)
		}
		return nil
	}
	if err := walk(directBases(decl)); err != nil {
		return nil, err
	}
	return out, nil
}

func directBases(decl *types.ClassDecl) []types.TypeID {
	bases := make([]types.TypeID, 0, len(decl.Interfaces)+1)
	if decl.Base != types.NoTypeID {
		bases = append(bases, decl.Base)
	}
	return append(bases, decl.Interfaces...)
}
