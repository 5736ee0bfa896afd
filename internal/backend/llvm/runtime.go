package llvm

import (
	"fmt"
	"strings"

	"github.com/llir/llvm/ir"
	lltypes "github.com/llir/llvm/ir/types"
)

// RuntimeNames are the symbols of the runtime helpers the lowering calls.
type RuntimeNames struct {
	NewClass      string
	DynamicCast   string
	InterfaceCast string
	ToObject      string
	MemCpy        string
}

// DefaultRuntimeNames returns the helper names of the stock runtime.
func DefaultRuntimeNames() RuntimeNames {
	return RuntimeNames{
		NewClass:      "_d_newclass",
		DynamicCast:   "_d_dynamic_cast",
		InterfaceCast: "_d_interface_cast",
		ToObject:      "_d_toObject",
		MemCpy:        "llvm.memcpy.p0i8.p0i8.i64",
	}
}

// Validate rejects empty helper names and names shared by two helpers.
func (n RuntimeNames) Validate() error {
	seen := make(map[string]string, 5)
	for _, h := range []struct{ key, name string }{
		{"new_class", n.NewClass},
		{"dynamic_cast", n.DynamicCast},
		{"interface_cast", n.InterfaceCast},
		{"to_object", n.ToObject},
		{"memcpy", n.MemCpy},
	} {
		name := strings.TrimSpace(h.name)
		if name == "" {
			return fmt.Errorf("runtime helper %s has no name", h.key)
		}
		if prev, dup := seen[name]; dup {
			return fmt.Errorf("runtime helpers %s and %s share the name %q", prev, h.key, name)
		}
		seen[name] = h.key
	}
	return nil
}

type runtimeHelper uint8

const (
	helperNewClass runtimeHelper = iota
	helperDynamicCast
	helperInterfaceCast
	helperToObject
	helperMemCpy
)

type builtinDecl struct {
	name   string
	ret    lltypes.Type
	params []lltypes.Type
}

func (l *Lowerer) runtimeDecl(h runtimeHelper) builtinDecl {
	object := lltypes.NewPointer(l.classStruct(l.rt.Object))
	classInfo := lltypes.NewPointer(l.classStruct(l.rt.ClassInfo))
	names := l.cfg.Runtime
	switch h {
	case helperNewClass:
		return builtinDecl{name: names.NewClass, ret: lltypes.I8Ptr, params: []lltypes.Type{classInfo}}
	case helperDynamicCast:
		return builtinDecl{name: names.DynamicCast, ret: object, params: []lltypes.Type{object, classInfo}}
	case helperInterfaceCast:
		return builtinDecl{name: names.InterfaceCast, ret: object, params: []lltypes.Type{lltypes.I8Ptr, classInfo}}
	case helperToObject:
		return builtinDecl{name: names.ToObject, ret: object, params: []lltypes.Type{lltypes.I8Ptr}}
	default:
		return builtinDecl{name: names.MemCpy, ret: lltypes.Void, params: []lltypes.Type{lltypes.I8Ptr, lltypes.I8Ptr, lltypes.I64, lltypes.I1}}
	}
}

// runtimeFunc declares a runtime helper on first use.
func (l *Lowerer) runtimeFunc(h runtimeHelper) *ir.Func {
	if f, ok := l.runtimeFns[h]; ok {
		return f
	}
	d := l.runtimeDecl(h)
	params := make([]*ir.Param, len(d.params))
	for i, p := range d.params {
		params[i] = ir.NewParam("", p)
	}
	f := l.mod.NewFunc(d.name, d.ret, params...)
	l.runtimeFns[h] = f
	return f
}
