package testkit

import (
	"errors"
	"fmt"

	"github.com/llir/llvm/ir"
	lltypes "github.com/llir/llvm/ir/types"

	"classgen/internal/types"
)

// CheckModule runs every module-level invariant on a lowered program and
// joins the violations.
func CheckModule(mod *ir.Module, prog *types.Program) error {
	if mod == nil || prog == nil {
		return fmt.Errorf("nil module or program")
	}
	return errors.Join(
		CheckClassHeaders(mod, prog),
		CheckDescriptors(mod, prog),
		CheckDispatchTables(mod, prog),
		CheckUniqueGlobals(mod),
	)
}

// CheckClassHeaders verifies that every lowered class struct starts with
// the dispatch table pointer followed by the monitor slot.
func CheckClassHeaders(mod *ir.Module, prog *types.Program) error {
	defs := typeDefs(mod)
	var errs []error
	for _, id := range prog.Classes {
		decl, ok := prog.Types.Class(id)
		if !ok || decl.IsInterface {
			continue
		}
		st, ok := defs["C"+decl.Mangle].(*lltypes.StructType)
		if !ok {
			errs = append(errs, fmt.Errorf("%s: no class struct %%C%s", decl.PrettyName(), decl.Mangle))
			continue
		}
		if st.Opaque || len(st.Fields) < 2 {
			errs = append(errs, fmt.Errorf("%s: class struct has no header", decl.PrettyName()))
			continue
		}
		vp, ok := st.Fields[0].(*lltypes.PointerType)
		if !ok {
			errs = append(errs, fmt.Errorf("%s: slot 0 is %s, want a dispatch table pointer", decl.PrettyName(), st.Fields[0]))
		} else if _, ok := vp.ElemType.(*lltypes.StructType); !ok {
			errs = append(errs, fmt.Errorf("%s: slot 0 points at %s", decl.PrettyName(), vp.ElemType))
		}
		if !st.Fields[1].Equal(lltypes.I8Ptr) {
			errs = append(errs, fmt.Errorf("%s: monitor slot is %s, want i8*", decl.PrettyName(), st.Fields[1]))
		}
	}
	return errors.Join(errs...)
}

// CheckDescriptors verifies that every class of the module owns a defined
// descriptor global.
func CheckDescriptors(mod *ir.Module, prog *types.Program) error {
	globals := globalsByName(mod)
	var errs []error
	for _, id := range prog.Classes {
		decl, ok := prog.Types.Class(id)
		if !ok || decl.External {
			continue
		}
		name := "_D" + decl.Mangle + "7__ClassZ"
		if decl.IsInterface {
			name = "_D" + decl.Mangle + "11__InterfaceZ"
		}
		g, ok := globals[name]
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("%s: descriptor @%s missing", decl.PrettyName(), name))
		case g.Init == nil:
			errs = append(errs, fmt.Errorf("%s: descriptor @%s is only declared", decl.PrettyName(), name))
		}
	}
	return errors.Join(errs...)
}

// CheckDispatchTables verifies that concrete classes define a dispatch
// table with one entry per slot and that abstract classes define none.
func CheckDispatchTables(mod *ir.Module, prog *types.Program) error {
	globals := globalsByName(mod)
	var errs []error
	for _, id := range prog.Classes {
		decl, ok := prog.Types.Class(id)
		if !ok || decl.External || decl.IsInterface {
			continue
		}
		name := "_D" + decl.Mangle + "6__vtblZ"
		g, ok := globals[name]
		if !decl.IsConcrete() {
			if ok {
				errs = append(errs, fmt.Errorf("%s: abstract class has dispatch table @%s", decl.PrettyName(), name))
			}
			continue
		}
		if !ok || g.Init == nil {
			errs = append(errs, fmt.Errorf("%s: dispatch table @%s not defined", decl.PrettyName(), name))
			continue
		}
		st, ok := g.ContentType.(*lltypes.StructType)
		if !ok || len(st.Fields) != len(decl.Vtbl) {
			errs = append(errs, fmt.Errorf("%s: dispatch table has %s, want %d slots", decl.PrettyName(), g.ContentType, len(decl.Vtbl)))
		}
	}
	return errors.Join(errs...)
}

// CheckUniqueGlobals verifies that no symbol was emitted twice.
func CheckUniqueGlobals(mod *ir.Module) error {
	seen := make(map[string]struct{}, len(mod.Globals))
	var errs []error
	for _, g := range mod.Globals {
		if _, dup := seen[g.Name()]; dup {
			errs = append(errs, fmt.Errorf("global @%s emitted twice", g.Name()))
		}
		seen[g.Name()] = struct{}{}
	}
	return errors.Join(errs...)
}

func typeDefs(mod *ir.Module) map[string]lltypes.Type {
	out := make(map[string]lltypes.Type, len(mod.TypeDefs))
	for _, t := range mod.TypeDefs {
		out[t.Name()] = t
	}
	return out
}

func globalsByName(mod *ir.Module) map[string]*ir.Global {
	out := make(map[string]*ir.Global, len(mod.Globals))
	for _, g := range mod.Globals {
		out[g.Name()] = g
	}
	return out
}
