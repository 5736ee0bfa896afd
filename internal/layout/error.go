package layout

import (
	"fmt"
	"strings"

	lltypes "github.com/llir/llvm/ir/types"
)

// LayoutErrorKind enumerates types of layout calculation errors.
type LayoutErrorKind uint8

const (
	// LayoutErrRecursiveUnsized indicates a struct that contains itself by value.
	LayoutErrRecursiveUnsized LayoutErrorKind = iota + 1
	// LayoutErrOpaque indicates a struct whose body has not been set.
	LayoutErrOpaque
	// LayoutErrUnsized indicates a type with no storage size (void, label, function).
	LayoutErrUnsized
)

// LayoutError represents an error during memory layout calculation.
type LayoutError struct {
	Kind  LayoutErrorKind
	Type  lltypes.Type
	Cycle []lltypes.Type // for LayoutErrRecursiveUnsized
}

func (e *LayoutError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case LayoutErrRecursiveUnsized:
		if len(e.Cycle) == 0 {
			return fmt.Sprintf("recursive value type has infinite size (%s)", typeName(e.Type))
		}
		parts := make([]string, 0, len(e.Cycle))
		for _, t := range e.Cycle {
			parts = append(parts, typeName(t))
		}
		return fmt.Sprintf("recursive value type has infinite size (cycle: %s)", strings.Join(parts, " -> "))
	case LayoutErrOpaque:
		return fmt.Sprintf("opaque type has no layout (%s)", typeName(e.Type))
	case LayoutErrUnsized:
		return fmt.Sprintf("type has no storage size (%s)", typeName(e.Type))
	default:
		return fmt.Sprintf("layout error kind=%d (%s)", e.Kind, typeName(e.Type))
	}
}

func typeName(t lltypes.Type) string {
	if t == nil {
		return "<nil>"
	}
	if name := t.Name(); name != "" {
		return "%" + name
	}
	return t.LLString()
}
