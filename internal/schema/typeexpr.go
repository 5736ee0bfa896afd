package schema

import (
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"classgen/internal/diag"
	"classgen/internal/types"
)

// typeError carries the diagnostic code a failed type expression maps to.
type typeError struct {
	code diag.Code
	msg  string
}

func (e *typeError) Error() string { return e.msg }

func badType(format string, args ...any) error {
	return &typeError{code: diag.DecBadTypeExpr, msg: fmt.Sprintf(format, args...)}
}

// parseType reads a type expression: a primitive or declared name followed
// by any number of "*", "[]" and "[N]" suffixes, applied left to right.
func (ld *loader) parseType(expr string) (types.TypeID, error) {
	s := strings.TrimSpace(expr)
	if s == "" {
		return types.NoTypeID, badType("empty type expression")
	}
	end := 0
	for end < len(s) && isNameByte(s[end], end == 0) {
		end++
	}
	if end == 0 {
		return types.NoTypeID, badType("type expression %q does not start with a name", expr)
	}
	id, err := ld.typeName(s[:end])
	if err != nil {
		return types.NoTypeID, err
	}
	rest := s[end:]
	for {
		rest = strings.TrimLeft(rest, " \t")
		if rest == "" {
			return id, nil
		}
		switch rest[0] {
		case '*':
			id = ld.in.Intern(types.MakePointer(id))
			rest = rest[1:]
		case '[':
			closing := strings.IndexByte(rest, ']')
			if closing < 0 {
				return types.NoTypeID, badType("unterminated array suffix in %q", expr)
			}
			if id == ld.b.Void {
				return types.NoTypeID, badType("array of void in %q", expr)
			}
			count := types.ArrayDynamicLength
			if n := strings.TrimSpace(rest[1:closing]); n != "" {
				v, perr := strconv.ParseUint(n, 10, 32)
				c, cerr := safecast.Conv[uint32](v)
				if perr != nil || cerr != nil || c == 0 || c == types.ArrayDynamicLength {
					return types.NoTypeID, badType("invalid array length %q in %q", n, expr)
				}
				count = c
			}
			id = ld.in.Intern(types.MakeArray(id, count))
			rest = rest[closing+1:]
		default:
			return types.NoTypeID, badType("unexpected %q in type expression %q", rest[:1], expr)
		}
	}
}

func isNameByte(c byte, first bool) bool {
	switch {
	case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9', c == '.':
		return !first
	}
	return false
}

func (ld *loader) typeName(name string) (types.TypeID, error) {
	switch name {
	case "void":
		return ld.b.Void, nil
	case "bool":
		return ld.b.Bool, nil
	case "char":
		return ld.b.Char, nil
	case "byte":
		return ld.b.Byte, nil
	case "ubyte":
		return ld.b.Ubyte, nil
	case "short":
		return ld.b.Short, nil
	case "ushort":
		return ld.b.Ushort, nil
	case "int":
		return ld.b.Int, nil
	case "uint":
		return ld.b.Uint, nil
	case "long":
		return ld.b.Long, nil
	case "ulong":
		return ld.b.Ulong, nil
	case "float":
		return ld.b.Float, nil
	case "double":
		return ld.b.Double, nil
	}
	if id, ok := ld.names[name]; ok {
		return id, nil
	}
	if id, ok := ld.in.Named(name); ok {
		return id, nil
	}
	return types.NoTypeID, &typeError{code: diag.DecUnknownType, msg: fmt.Sprintf("unknown type %q", name)}
}

// valueStructs returns the structs whose layout t embeds by value.
func (ld *loader) valueStructs(t types.TypeID) []types.TypeID {
	tt, ok := ld.in.Lookup(t)
	if !ok {
		return nil
	}
	switch {
	case tt.Kind == types.KindStruct:
		return []types.TypeID{t}
	case tt.Kind == types.KindArray && !tt.IsSlice():
		return ld.valueStructs(tt.Elem)
	}
	return nil
}
