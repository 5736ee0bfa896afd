package schema

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/BurntSushi/toml"

	"classgen/internal/diag"
	"classgen/internal/types"
)

// ErrInvalid is returned when a declaration file produced error diagnostics.
var ErrInvalid = errors.New("invalid declarations")

// Options tune how declarations are laid out.
type Options struct {
	// PtrSize is the target pointer width in bytes; zero means 8.
	PtrSize uint64
}

// LoadFile reads a declaration file and builds the program it describes.
func LoadFile(path string, rep diag.Reporter) (*types.Program, error) {
	return Options{}.LoadFile(path, rep)
}

// Parse builds a program from declaration file contents with default
// options.
func Parse(file string, data []byte, rep diag.Reporter) (*types.Program, error) {
	return Options{}.Parse(file, data, rep)
}

// LoadFile reads a declaration file and builds the program it describes.
func (o Options) LoadFile(path string, rep diag.Reporter) (*types.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		diag.ReportError(rep, diag.IOLoadFileError, diag.At(path), err.Error()).Emit()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return o.Parse(path, data, rep)
}

// Parse builds a program from declaration file contents. file is only used
// to locate diagnostics. Every problem found is reported; the program is
// returned only when none of them is an error.
func (o Options) Parse(file string, data []byte, rep diag.Reporter) (*types.Program, error) {
	r := &counter{next: rep}
	var doc document
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		diag.ReportError(r, diag.DecParse, diag.At(file), err.Error()).Emit()
		return nil, fmt.Errorf("%s: %w", file, ErrInvalid)
	}
	for _, key := range md.Undecoded() {
		diag.ReportError(r, diag.DecUnknownKey, diag.At(file, key.String()),
			fmt.Sprintf("unknown key %q", key.String())).Emit()
	}
	if doc.Module == "" {
		diag.ReportError(r, diag.DecParse, diag.At(file), "missing top-level module name").Emit()
		return nil, fmt.Errorf("%s: %w", file, ErrInvalid)
	}

	ld := newLoader(file, &doc, r, o.PtrSize)
	prog := ld.load()
	if r.errors > 0 {
		return nil, fmt.Errorf("%s: %d error(s): %w", file, r.errors, ErrInvalid)
	}
	return prog, nil
}

// counter forwards diagnostics and remembers whether any was an error.
type counter struct {
	next   diag.Reporter
	errors int
}

func (c *counter) Report(code diag.Code, sev diag.Severity, primary diag.Location, msg string, notes []diag.Note) {
	if sev >= diag.SevError {
		c.errors++
	}
	if c.next != nil {
		c.next.Report(code, sev, primary, msg, notes)
	}
}

type visit uint8

const (
	unvisited visit = iota
	visiting
	done
	failed
)

type structState struct {
	src   *structDecl
	id    types.TypeID
	state visit
}

// classState tracks one interface or class; exactly one of iface and class
// is set.
type classState struct {
	iface *interfaceDecl
	class *classDecl
	decl  *types.ClassDecl
	state visit
}

type loader struct {
	file string
	rep  diag.Reporter
	doc  *document
	prog *types.Program
	in   *types.Interner
	b    types.Builtins

	names   map[string]types.TypeID
	structs map[types.TypeID]*structState
	classes map[types.TypeID]*classState
	order   []*classState
}

func newLoader(file string, doc *document, rep diag.Reporter, ptrSize uint64) *loader {
	prog := types.NewProgramFor(doc.Module, ptrSize)
	return &loader{
		file:    file,
		rep:     rep,
		doc:     doc,
		prog:    prog,
		in:      prog.Types,
		b:       prog.Types.Builtins(),
		names:   make(map[string]types.TypeID),
		structs: make(map[types.TypeID]*structState),
		classes: make(map[types.TypeID]*classState),
	}
}

func (ld *loader) at(symbol ...string) diag.Location {
	return diag.At(ld.file, symbol...)
}

func (ld *loader) errorf(code diag.Code, loc diag.Location, format string, args ...any) {
	diag.ReportError(ld.rep, code, loc, fmt.Sprintf(format, args...)).Emit()
}

func (ld *loader) load() *types.Program {
	doc := ld.doc
	if len(doc.Structs)+len(doc.Interfaces)+len(doc.Classes) == 0 {
		diag.ReportWarning(ld.rep, diag.DecEmptyModule, ld.at(doc.Module),
			fmt.Sprintf("module %s declares nothing", doc.Module)).Emit()
	}
	ld.register()

	ids := make([]types.TypeID, 0, len(ld.structs))
	for id := range ld.structs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		ld.completeStruct(ld.structs[id])
	}
	for _, cs := range ld.order {
		ld.completeClass(cs)
	}

	for _, cs := range ld.order {
		if cs.state == done && !cs.decl.External {
			ld.prog.Classes = append(ld.prog.Classes, cs.decl.Type)
		}
	}
	return ld.prog
}

// register allocates a type for every declaration so that bodies may refer
// to each other regardless of order.
func (ld *loader) register() {
	doc := ld.doc
	seen := make(map[string]diag.Location)
	claim := func(kind, module, name string) bool {
		loc := ld.at(module, name)
		if !validName(name) {
			ld.errorf(diag.DecParse, loc, "%s has an invalid name %q", kind, name)
			return false
		}
		if prev, ok := seen[name]; ok {
			diag.ReportError(ld.rep, diag.DecDuplicateDecl, loc, fmt.Sprintf("%s %s is already declared", kind, name)).
				WithNote(prev, "previous declaration").
				Emit()
			return false
		}
		seen[name] = loc
		return true
	}
	bind := func(module, name string, id types.TypeID) {
		ld.names[name] = id
		ld.names[module+"."+name] = id
	}

	for i := range doc.Structs {
		s := &doc.Structs[i]
		if !claim("struct", doc.Module, s.Name) {
			continue
		}
		id := ld.in.RegisterStruct(doc.Module, s.Name)
		bind(doc.Module, s.Name, id)
		ld.structs[id] = &structState{src: s, id: id}
	}
	for i := range doc.Interfaces {
		src := &doc.Interfaces[i]
		if !claim("interface", doc.Module, src.Name) {
			continue
		}
		decl := &types.ClassDecl{Name: src.Name, Module: doc.Module, IsInterface: true}
		ld.in.RegisterClass(decl)
		bind(doc.Module, src.Name, decl.Type)
		cs := &classState{iface: src, decl: decl}
		ld.classes[decl.Type] = cs
		ld.order = append(ld.order, cs)
	}
	for i := range doc.Classes {
		src := &doc.Classes[i]
		module := doc.Module
		if src.Module != "" {
			if !src.Extern {
				ld.errorf(diag.DecParse, ld.at(doc.Module, src.Name), "class %s names module %s but is not extern", src.Name, src.Module)
			}
			module = src.Module
		}
		if !claim("class", module, src.Name) {
			continue
		}
		decl := &types.ClassDecl{
			Name:       src.Name,
			Module:     module,
			IsAbstract: src.Abstract,
			External:   src.Extern,
			Template:   src.Template,
		}
		ld.in.RegisterClass(decl)
		bind(module, src.Name, decl.Type)
		cs := &classState{class: src, decl: decl}
		ld.classes[decl.Type] = cs
		ld.order = append(ld.order, cs)
	}
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		if !isNameByte(name[i], i == 0) || name[i] == '.' {
			return false
		}
	}
	return true
}

// resolveType parses expr and reports a failure at loc.
func (ld *loader) resolveType(loc diag.Location, expr string) (types.TypeID, bool) {
	id, err := ld.parseType(expr)
	if err != nil {
		code := diag.DecBadTypeExpr
		var te *typeError
		if errors.As(err, &te) {
			code = te.code
		}
		ld.errorf(code, loc, "%s", err.Error())
		return types.NoTypeID, false
	}
	return id, true
}

// resolveValueType is resolveType for fields and parameters, which cannot be
// void.
func (ld *loader) resolveValueType(loc diag.Location, expr string) (types.TypeID, bool) {
	id, ok := ld.resolveType(loc, expr)
	if ok && id == ld.b.Void {
		ld.errorf(diag.DecBadTypeExpr, loc, "void is not a value type")
		return types.NoTypeID, false
	}
	return id, ok
}

func (ld *loader) completeStruct(st *structState) bool {
	switch st.state {
	case done:
		return true
	case failed:
		return false
	case visiting:
		ld.errorf(diag.DecInheritanceCycle, ld.at(ld.doc.Module, st.src.Name), "struct %s contains itself", st.src.Name)
		st.state = failed
		return false
	}
	st.state = visiting
	ok := true
	fields := make([]types.StructField, 0, len(st.src.Fields))
	names := make(map[string]struct{}, len(st.src.Fields))
	for _, f := range st.src.Fields {
		loc := ld.at(ld.doc.Module, st.src.Name, f.Name)
		if _, dup := names[f.Name]; dup || !validName(f.Name) {
			ld.errorf(diag.DecDuplicateMember, loc, "struct %s has a duplicate or invalid field %q", st.src.Name, f.Name)
			ok = false
			continue
		}
		names[f.Name] = struct{}{}
		if f.Init != nil {
			ld.errorf(diag.DecBadInitializer, loc, "struct fields cannot have initializers")
			ok = false
		}
		if f.Union != "" {
			ld.errorf(diag.DecBadUnion, loc, "struct fields cannot be union members")
			ok = false
		}
		t, tok := ld.resolveValueType(loc, f.Type)
		if !tok {
			ok = false
			continue
		}
		for _, dep := range ld.valueStructs(t) {
			if ds, own := ld.structs[dep]; own && !ld.completeStruct(ds) {
				ok = false
			}
		}
		fields = append(fields, types.StructField{Name: f.Name, Type: t})
	}
	if st.state == failed {
		return false
	}
	if !ok {
		st.state = failed
		return false
	}
	ld.in.SetStructFields(st.id, fields)
	st.state = done
	return true
}

// dependency completes a class-like type another declaration refers to.
// Runtime and other foreign declarations are always complete.
func (ld *loader) dependency(id types.TypeID) bool {
	cs, own := ld.classes[id]
	if !own {
		return true
	}
	return ld.completeClass(cs)
}

func (ld *loader) completeClass(cs *classState) bool {
	switch cs.state {
	case done:
		return true
	case failed:
		return false
	case visiting:
		ld.errorf(diag.DecInheritanceCycle, ld.at(cs.decl.Module, cs.decl.Name), "%s inherits from itself", cs.decl.Name)
		cs.state = failed
		return false
	}
	cs.state = visiting
	var ok bool
	if cs.iface != nil {
		ok = ld.completeInterface(cs)
	} else {
		ok = ld.completeClassBody(cs)
	}
	if cs.state == failed || !ok {
		cs.state = failed
		return false
	}
	cs.state = done
	return true
}

// interfaceList resolves names that must denote interfaces.
func (ld *loader) interfaceList(owner *types.ClassDecl, names []string) ([]types.TypeID, bool) {
	ok := true
	out := make([]types.TypeID, 0, len(names))
	for _, name := range names {
		loc := ld.at(owner.Module, owner.Name)
		id, tok := ld.resolveType(loc, name)
		if !tok {
			ok = false
			continue
		}
		if !ld.in.IsInterface(id) {
			ld.errorf(diag.DecNotInterface, loc, "%s is not an interface", name)
			ok = false
			continue
		}
		if slices.Contains(out, id) {
			continue
		}
		if !ld.dependency(id) {
			ok = false
			continue
		}
		out = append(out, id)
	}
	return out, ok
}

func (ld *loader) completeInterface(cs *classState) bool {
	decl, src := cs.decl, cs.iface
	exts, ok := ld.interfaceList(decl, src.Extends)
	decl.Interfaces = exts

	vtbl := []types.VtblEntry{{Descriptor: true}}
	for _, ext := range exts {
		parent, _ := ld.in.Class(ext)
		for _, e := range parent.Vtbl[1:] {
			if findSlot(vtbl, e.Func.Name, e.Func.Params) < 0 {
				vtbl = append(vtbl, e)
			}
		}
	}
	for _, m := range src.Methods {
		fn, mok := ld.method(decl, m)
		if !mok {
			ok = false
			continue
		}
		fn.Abstract = true
		if slices.ContainsFunc(decl.Methods, func(o *types.Func) bool { return sameSig(o, fn) }) {
			ld.errorf(diag.DecDuplicateMember, ld.at(decl.Module, decl.Name, m.Name), "method %s is declared twice", m.Name)
			ok = false
			continue
		}
		if !ld.placeVirtual(&vtbl, decl, fn, m) {
			ok = false
		}
		decl.Methods = append(decl.Methods, fn)
	}
	decl.Vtbl = vtbl
	ld.in.AssignFieldOffsets(decl, nil)
	return ok
}

func (ld *loader) completeClassBody(cs *classState) bool {
	decl, src := cs.decl, cs.class
	loc := ld.at(decl.Module, decl.Name)
	ok := true

	decl.Base = ld.prog.Runtime.Object
	if src.Base != "" {
		id, tok := ld.resolveType(loc, src.Base)
		switch {
		case !tok:
			return false
		case !isClass(ld.in, id) || ld.in.IsInterface(id):
			ld.errorf(diag.DecBadBase, loc, "base %s of %s is not a class", src.Base, decl.Name)
			return false
		}
		if !ld.dependency(id) {
			return false
		}
		decl.Base = id
	}
	base, _ := ld.in.Class(decl.Base)

	ifaces, iok := ld.interfaceList(decl, src.Implements)
	decl.Interfaces = ifaces
	ok = ok && iok

	if !ld.fields(decl, src) {
		ok = false
	}

	vtbl := slices.Clone(base.Vtbl)
	for _, m := range src.Methods {
		fn, mok := ld.method(decl, m)
		if !mok {
			ok = false
			continue
		}
		fn.Abstract = m.Abstract
		if slices.ContainsFunc(decl.Methods, func(o *types.Func) bool { return sameSig(o, fn) }) {
			ld.errorf(diag.DecDuplicateMember, ld.at(decl.Module, decl.Name, m.Name), "method %s is declared twice", m.Name)
			ok = false
			continue
		}
		if m.Final && findSlot(vtbl, fn.Name, fn.Params) < 0 && !m.Override {
			decl.Methods = append(decl.Methods, fn)
			continue
		}
		if !ld.placeVirtual(&vtbl, decl, fn, m) {
			ok = false
		}
		decl.Methods = append(decl.Methods, fn)
	}
	decl.Vtbl = vtbl

	if slices.ContainsFunc(vtbl, func(e types.VtblEntry) bool { return e.Func != nil && e.Func.Abstract }) && !decl.IsAbstract {
		diag.ReportWarning(ld.rep, diag.DecImplicitAbstract, loc,
			fmt.Sprintf("%s has abstract methods and is treated as abstract", decl.Name)).Emit()
		decl.IsAbstract = true
	}

	if !ld.specials(decl, src) {
		ok = false
	}
	if ok && decl.IsConcrete() {
		ok = ld.checkImplemented(decl)
	}
	return ok
}

func isClass(in *types.Interner, id types.TypeID) bool {
	_, ok := in.Class(id)
	return ok
}

// fields builds the class's own fields, synthesizes the enclosing-instance
// field of nested classes and assigns offsets by union group.
func (ld *loader) fields(decl *types.ClassDecl, src *classDecl) bool {
	ok := true
	var (
		groups [][]*types.Field
		byTag  = make(map[string]int)
		names  = make(map[string]struct{})
	)
	if src.NestedIn != "" {
		loc := ld.at(decl.Module, decl.Name)
		outer, tok := ld.resolveType(loc, src.NestedIn)
		switch {
		case !tok:
			ok = false
		case !isClass(ld.in, outer) || ld.in.IsInterface(outer):
			ld.errorf(diag.DecBadTypeExpr, loc, "nested_in must name a class, got %s", src.NestedIn)
			ok = false
		default:
			vthis := &types.Field{Name: "this", Type: outer}
			decl.IsNested = true
			decl.VThis = vthis
			decl.Fields = append(decl.Fields, vthis)
			groups = append(groups, []*types.Field{vthis})
			names[vthis.Name] = struct{}{}
		}
	}

	for _, f := range src.Fields {
		loc := ld.at(decl.Module, decl.Name, f.Name)
		if _, dup := names[f.Name]; dup || !validName(f.Name) {
			ld.errorf(diag.DecDuplicateMember, loc, "%s has a duplicate or invalid field %q", decl.Name, f.Name)
			ok = false
			continue
		}
		names[f.Name] = struct{}{}
		t, tok := ld.resolveValueType(loc, f.Type)
		if !tok {
			ok = false
			continue
		}
		field := &types.Field{Name: f.Name, Type: t}
		if f.Init != nil {
			c, cok := constOf(f.Init)
			if !cok || !ld.acceptsInit(t, c) {
				ld.errorf(diag.DecBadInitializer, loc, "field %s of type %s cannot be initialized with %v", f.Name, f.Type, f.Init)
				ok = false
				continue
			}
			field.Init = c
		}
		decl.Fields = append(decl.Fields, field)
		if f.Union == "" {
			groups = append(groups, []*types.Field{field})
			continue
		}
		gi, seen := byTag[f.Union]
		if !seen {
			byTag[f.Union] = len(groups)
			groups = append(groups, []*types.Field{field})
			continue
		}
		if field.Init != nil {
			ld.errorf(diag.DecBadUnion, loc, "only the first member of union %q may have an initializer", f.Union)
			ok = false
		}
		groups[gi] = append(groups[gi], field)
	}
	ld.in.AssignFieldOffsets(decl, groups)
	return ok
}

func constOf(v any) (*types.Const, bool) {
	switch x := v.(type) {
	case int64:
		return &types.Const{Kind: types.ConstInt, Int: x}, true
	case float64:
		return &types.Const{Kind: types.ConstFloat, Float: x}, true
	case bool:
		return &types.Const{Kind: types.ConstBool, Bool: x}, true
	case string:
		if x == "null" {
			return &types.Const{Kind: types.ConstNull}, true
		}
	}
	return nil, false
}

// acceptsInit mirrors the constants the backend can place in an instance
// image.
func (ld *loader) acceptsInit(t types.TypeID, c *types.Const) bool {
	tt, ok := ld.in.Lookup(t)
	if !ok {
		return false
	}
	switch tt.Kind {
	case types.KindBool, types.KindChar, types.KindInt, types.KindUint:
		return c.Kind == types.ConstInt || c.Kind == types.ConstBool
	case types.KindFloat:
		return c.Kind == types.ConstFloat || c.Kind == types.ConstInt
	case types.KindPointer, types.KindClass, types.KindFn:
		return c.Kind == types.ConstNull || (c.Kind == types.ConstInt && c.Int == 0)
	case types.KindArray:
		return tt.IsSlice() && c.Kind == types.ConstNull
	}
	return false
}

func (ld *loader) signature(loc diag.Location, params []string, result string) ([]types.TypeID, types.TypeID, bool) {
	ok := true
	ps := make([]types.TypeID, 0, len(params))
	for _, p := range params {
		t, tok := ld.resolveValueType(loc, p)
		if !tok {
			ok = false
			continue
		}
		ps = append(ps, t)
	}
	res := ld.b.Void
	if result != "" {
		t, tok := ld.resolveType(loc, result)
		if !tok {
			return nil, types.NoTypeID, false
		}
		res = t
	}
	return ps, res, ok
}

func (ld *loader) newFunc(owner *types.ClassDecl, kind types.FuncKind, name string, params []types.TypeID, result types.TypeID) *types.Func {
	return &types.Func{
		Name:      name,
		Mangle:    ld.in.FuncMangle(owner, name, params, result),
		Owner:     owner.Type,
		Kind:      kind,
		Params:    params,
		Result:    result,
		VtblIndex: -1,
	}
}

func (ld *loader) method(owner *types.ClassDecl, m methodDecl) (*types.Func, bool) {
	loc := ld.at(owner.Module, owner.Name, m.Name)
	if !validName(m.Name) {
		ld.errorf(diag.DecParse, loc, "method has an invalid name %q", m.Name)
		return nil, false
	}
	params, result, ok := ld.signature(loc, m.Params, m.Result)
	if !ok {
		return nil, false
	}
	return ld.newFunc(owner, types.FuncMethod, m.Name, params, result), true
}

// placeVirtual overrides the inherited slot with the same name and
// parameters in place, or appends a new slot.
func (ld *loader) placeVirtual(vtbl *[]types.VtblEntry, owner *types.ClassDecl, fn *types.Func, m methodDecl) bool {
	loc := ld.at(owner.Module, owner.Name, m.Name)
	idx := findSlot(*vtbl, fn.Name, fn.Params)
	if idx < 0 {
		if m.Override {
			ld.errorf(diag.DecUnknownOverride, loc, "%s overrides nothing", m.Name)
			return false
		}
		fn.VtblIndex = len(*vtbl)
		*vtbl = append(*vtbl, types.VtblEntry{Func: fn})
		return true
	}
	prev := (*vtbl)[idx].Func
	if prev.Result != fn.Result {
		diag.ReportError(ld.rep, diag.DecSignatureMismatch, loc,
			fmt.Sprintf("%s returns %s, overridden method returns %s", m.Name, ld.in.Mangle(fn.Result), ld.in.Mangle(prev.Result))).
			WithNote(ld.at(ld.ownerName(prev), prev.Name), "overridden here").
			Emit()
		return false
	}
	fn.Overrides = prev
	fn.VtblIndex = idx
	(*vtbl)[idx] = types.VtblEntry{Func: fn}
	return true
}

func (ld *loader) ownerName(fn *types.Func) string {
	if decl, ok := ld.in.Class(fn.Owner); ok {
		return decl.PrettyName()
	}
	return "?"
}

func findSlot(vtbl []types.VtblEntry, name string, params []types.TypeID) int {
	for i, e := range vtbl {
		if e.Func != nil && e.Func.Name == name && slices.Equal(e.Func.Params, params) {
			return i
		}
	}
	return -1
}

func sameSig(a, b *types.Func) bool {
	return a.Name == b.Name && slices.Equal(a.Params, b.Params)
}

func (ld *loader) specials(decl *types.ClassDecl, src *classDecl) bool {
	ok := true
	for _, c := range src.Ctors {
		loc := ld.at(decl.Module, decl.Name, "__ctor")
		params, _, sok := ld.signature(loc, c.Params, "")
		if !sok {
			ok = false
			continue
		}
		fn := ld.newFunc(decl, types.FuncCtor, "__ctor", params, decl.Type)
		if slices.ContainsFunc(decl.Ctors, func(o *types.Func) bool { return sameSig(o, fn) }) {
			ld.errorf(diag.DecDuplicateMember, loc, "constructor is declared twice")
			ok = false
			continue
		}
		decl.Ctors = append(decl.Ctors, fn)
		if len(params) == 0 {
			decl.DefaultCtor = fn
		}
	}
	for _, d := range src.Dtors {
		name := d.Name
		if name == "" {
			name = "__dtor"
		}
		loc := ld.at(decl.Module, decl.Name, name)
		if slices.ContainsFunc(decl.Dtors, func(o *types.Func) bool { return o.Name == name }) {
			ld.errorf(diag.DecDuplicateMember, loc, "destructor %s is declared twice", name)
			ok = false
			continue
		}
		decl.Dtors = append(decl.Dtors, ld.newFunc(decl, types.FuncDtor, name, nil, ld.b.Void))
	}
	return ok
}

// checkImplemented verifies that a concrete class provides every method of
// every interface reachable from it, looking the implementation up the same
// way the backend does.
func (ld *loader) checkImplemented(decl *types.ClassDecl) bool {
	ok := true
	for _, iface := range ld.reachableInterfaces(decl) {
		for _, e := range iface.Vtbl[1:] {
			ifn := e.Func
			if ld.implements(decl, ifn) {
				continue
			}
			diag.ReportError(ld.rep, diag.DecMissingImplementation, ld.at(decl.Module, decl.Name),
				fmt.Sprintf("%s does not implement %s.%s", decl.Name, iface.Name, ifn.Name)).
				WithNote(ld.at(iface.Module, iface.Name, ifn.Name), "declared here").
				Emit()
			ok = false
		}
	}
	return ok
}

func (ld *loader) implements(decl *types.ClassDecl, ifn *types.Func) bool {
	for _, e := range decl.Vtbl {
		if e.Func.Implements(ifn) && !ld.in.IsInterface(e.Func.Owner) {
			return true
		}
	}
	for _, anc := range ld.in.Chain(decl.Type) {
		if slices.ContainsFunc(anc.Methods, func(f *types.Func) bool { return f.Implements(ifn) }) {
			return true
		}
	}
	return false
}

// reachableInterfaces lists the interfaces of the class, its ancestors and
// their super-interfaces, each once.
func (ld *loader) reachableInterfaces(decl *types.ClassDecl) []*types.ClassDecl {
	var out []*types.ClassDecl
	seen := make(map[types.TypeID]struct{})
	var walk func(ids []types.TypeID)
	walk = func(ids []types.TypeID) {
		for _, id := range ids {
			d, ok := ld.in.Class(id)
			if !ok {
				continue
			}
			walk(d.Interfaces)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, d)
		}
	}
	for _, anc := range ld.in.Chain(decl.Type) {
		walk(anc.Interfaces)
	}
	return out
}
