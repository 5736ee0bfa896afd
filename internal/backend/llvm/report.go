package llvm

import (
	"classgen/internal/types"
)

// SlotReport describes one slot of a class struct.
type SlotReport struct {
	Index  int      `msgpack:"index" json:"index"`
	Offset int      `msgpack:"offset" json:"offset"`
	Type   string   `msgpack:"type" json:"type"`
	Fields []string `msgpack:"fields,omitempty" json:"fields,omitempty"`
}

// BindingReport describes one entry of the flattened interface list.
type BindingReport struct {
	Interface  string `msgpack:"interface" json:"interface"`
	Slot       int    `msgpack:"slot" json:"slot"`
	ThisOffset int    `msgpack:"this_offset" json:"this_offset"`
}

// ClassReport is a printable summary of a resolved class layout.
type ClassReport struct {
	Name       string          `msgpack:"name" json:"name"`
	Kind       string          `msgpack:"kind" json:"kind"`
	Size       int             `msgpack:"size" json:"size"`
	HasUnions  bool            `msgpack:"has_unions" json:"has_unions"`
	Slots      []SlotReport    `msgpack:"slots" json:"slots"`
	Interfaces []BindingReport `msgpack:"interfaces,omitempty" json:"interfaces,omitempty"`
	Vtbl       []string        `msgpack:"vtbl" json:"vtbl"`
	Flags      uint32          `msgpack:"flags" json:"flags"`
}

// Report resolves a class and summarizes its layout.
func (l *Lowerer) Report(id types.TypeID) (ClassReport, error) {
	if err := l.Resolve(id); err != nil {
		return ClassReport{}, err
	}
	rec := l.classes[id]
	decl := rec.decl
	st := rec.irType
	size, err := l.layout.SizeOf(st)
	if err != nil {
		return ClassReport{}, err
	}
	r := ClassReport{
		Name:      decl.PrettyName(),
		Kind:      classKind(decl),
		Size:      size,
		HasUnions: rec.hasUnions,
	}
	names := make(map[int][]string)
	for _, e := range rec.entries {
		idx := rec.placement[e.field].Index
		names[idx] = append(names[idx], e.field.Name)
	}
	for i, ft := range st.Fields {
		off, err := l.layout.FieldOffset(st, i)
		if err != nil {
			return ClassReport{}, err
		}
		r.Slots = append(r.Slots, SlotReport{Index: i, Offset: off, Type: ft.String(), Fields: names[i]})
	}
	for _, b := range rec.ifaces {
		off, err := l.layout.FieldOffset(st, b.slot)
		if err != nil {
			return ClassReport{}, err
		}
		r.Interfaces = append(r.Interfaces, BindingReport{Interface: b.iface.PrettyName(), Slot: b.slot, ThisOffset: off})
	}
	for _, e := range decl.Vtbl {
		switch {
		case e.Descriptor:
			r.Vtbl = append(r.Vtbl, "<descriptor>")
		case e.Func != nil:
			r.Vtbl = append(r.Vtbl, e.Func.Mangle)
		}
	}
	if decl.IsConcrete() {
		r.Flags = l.descriptorFlags(decl)
	}
	return r, nil
}

func classKind(decl *types.ClassDecl) string {
	switch {
	case decl.IsInterface:
		return "interface"
	case decl.IsAbstract:
		return "abstract"
	default:
		return "class"
	}
}
