package types

import (
	"strconv"
	"strings"
)

// Mangle returns the type-string encoding used in symbol names.
func (in *Interner) Mangle(id TypeID) string {
	var sb strings.Builder
	in.mangleInto(&sb, id)
	return sb.String()
}

func (in *Interner) mangleInto(sb *strings.Builder, id TypeID) {
	tt, ok := in.Lookup(id)
	if !ok {
		sb.WriteByte('v')
		return
	}
	switch tt.Kind {
	case KindVoid:
		sb.WriteByte('v')
	case KindBool:
		sb.WriteByte('b')
	case KindChar:
		sb.WriteByte('a')
	case KindInt:
		sb.WriteByte(map[Width]byte{Width8: 'g', Width16: 's', Width32: 'i', Width64: 'l'}[tt.Width])
	case KindUint:
		sb.WriteByte(map[Width]byte{Width8: 'h', Width16: 't', Width32: 'k', Width64: 'm'}[tt.Width])
	case KindFloat:
		if tt.Width == Width32 {
			sb.WriteByte('f')
		} else {
			sb.WriteByte('d')
		}
	case KindPointer:
		sb.WriteByte('P')
		in.mangleInto(sb, tt.Elem)
	case KindArray:
		if tt.IsSlice() {
			sb.WriteByte('A')
		} else {
			sb.WriteByte('G')
			sb.WriteString(strconv.FormatUint(uint64(tt.Count), 10))
		}
		in.mangleInto(sb, tt.Elem)
	case KindStruct:
		if info := in.structInfo(id); info != nil {
			sb.WriteString(info.Mangle)
		}
	case KindClass:
		if decl, ok := in.Class(id); ok {
			sb.WriteByte('C')
			sb.WriteString(decl.Mangle)
		}
	case KindFn:
		if info, ok := in.FnInfo(id); ok {
			in.mangleSig(sb, info.Params, info.Result)
		}
	}
}

func (in *Interner) mangleSig(sb *strings.Builder, params []TypeID, result TypeID) {
	sb.WriteByte('F')
	for _, p := range params {
		in.mangleInto(sb, p)
	}
	sb.WriteByte('Z')
	in.mangleInto(sb, result)
}

// FuncMangle builds the symbol of a member function.
func (in *Interner) FuncMangle(owner *ClassDecl, name string, params []TypeID, result TypeID) string {
	var sb strings.Builder
	sb.WriteString("_D")
	sb.WriteString(owner.Mangle)
	sb.WriteString(strconv.Itoa(len(name)))
	sb.WriteString(name)
	sb.WriteByte('M')
	in.mangleSig(&sb, params, result)
	return sb.String()
}

// qualifiedMangle length-prefixes every component of module.name.
func qualifiedMangle(module, name string) string {
	var sb strings.Builder
	if module != "" {
		for _, part := range strings.Split(module, ".") {
			sb.WriteString(strconv.Itoa(len(part)))
			sb.WriteString(part)
		}
	}
	sb.WriteString(strconv.Itoa(len(name)))
	sb.WriteString(name)
	return sb.String()
}
