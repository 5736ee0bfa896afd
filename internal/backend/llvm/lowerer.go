package llvm

import (
	"context"
	"strconv"

	"fortio.org/safecast"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	lltypes "github.com/llir/llvm/ir/types"

	"classgen/internal/layout"
	"classgen/internal/trace"
	"classgen/internal/types"
)

// Config selects the target and the runtime helper symbols.
type Config struct {
	Target  layout.Target
	Runtime RuntimeNames
}

// DefaultConfig returns the x86_64 target with the stock runtime names.
func DefaultConfig() Config {
	return Config{Target: layout.X86_64LinuxGNU(), Runtime: DefaultRuntimeNames()}
}

// Lowerer turns the class declarations of one program into IR module
// content. Phases are driven on demand and every phase is idempotent, so the
// order in which callers request classes does not matter.
type Lowerer struct {
	ctx context.Context

	prog   *types.Program
	in     *types.Interner
	rt     *types.Runtime
	cfg    Config
	mod    *ir.Module
	layout *layout.LayoutEngine

	sizeT      *lltypes.IntType
	headerSize uint64

	classes    map[types.TypeID]*classRecord
	structs    map[types.TypeID]*lltypes.StructType
	slices     map[types.TypeID]*lltypes.StructType
	funcs      map[*types.Func]*ir.Func
	runtimeFns map[runtimeHelper]*ir.Func
	typeInfos  map[types.TypeID]*ir.Global
	strConsts  map[string]*ir.Global
}

// New prepares a lowerer for prog. The context carries the tracer.
func New(ctx context.Context, prog *types.Program, cfg Config) *Lowerer {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Target.PtrSize <= 0 {
		cfg.Target = layout.X86_64LinuxGNU()
	}
	if cfg.Runtime == (RuntimeNames{}) {
		cfg.Runtime = DefaultRuntimeNames()
	}
	ptr := safecast.MustConv[uint64](cfg.Target.PtrSize)
	mod := ir.NewModule()
	mod.TargetTriple = cfg.Target.Triple
	return &Lowerer{
		ctx:        ctx,
		prog:       prog,
		in:         prog.Types,
		rt:         prog.Runtime,
		cfg:        cfg,
		mod:        mod,
		layout:     layout.New(cfg.Target),
		sizeT:      lltypes.NewInt(ptr * 8),
		headerSize: 2 * ptr,
		classes:    make(map[types.TypeID]*classRecord, len(prog.Classes)+4),
		structs:    make(map[types.TypeID]*lltypes.StructType),
		slices:     make(map[types.TypeID]*lltypes.StructType),
		funcs:      make(map[*types.Func]*ir.Func),
		runtimeFns: make(map[runtimeHelper]*ir.Func),
		typeInfos:  make(map[types.TypeID]*ir.Global),
		strConsts:  make(map[string]*ir.Global),
	}
}

// Module returns the IR module being populated.
func (l *Lowerer) Module() *ir.Module {
	return l.mod
}

// Layout exposes the layout engine used for size and offset queries.
func (l *Lowerer) Layout() *layout.LayoutEngine {
	return l.layout
}

// LowerModule defines every class of the program, which forces all earlier
// phases and the type descriptors.
func (l *Lowerer) LowerModule() error {
	if err := l.cfg.Runtime.Validate(); err != nil {
		return err
	}
	ctx, span := trace.Start(l.ctx, trace.ScopeModule, "lower:"+l.prog.Module)
	defer span.End("")
	outer := l.ctx
	l.ctx = ctx
	defer func() { l.ctx = outer }()
	for _, id := range l.prog.Classes {
		if err := l.ctx.Err(); err != nil {
			return err
		}
		if err := l.Define(id); err != nil {
			return err
		}
	}
	span.Set("classes", strconv.Itoa(len(l.prog.Classes)))
	return nil
}

// Descriptor returns the descriptor global of a class once declared.
func (l *Lowerer) Descriptor(id types.TypeID) (*ir.Global, error) {
	if err := l.DeclareDescriptor(id); err != nil {
		return nil, err
	}
	return l.classes[id].descriptor, nil
}

// ClassType returns the IR struct of a resolved class.
func (l *Lowerer) ClassType(id types.TypeID) (*lltypes.StructType, error) {
	if err := l.Resolve(id); err != nil {
		return nil, err
	}
	return l.classes[id].irType, nil
}

// VtblType returns the dispatch table type of a resolved class.
func (l *Lowerer) VtblType(id types.TypeID) (*lltypes.StructType, error) {
	if err := l.Resolve(id); err != nil {
		return nil, err
	}
	return l.classes[id].vtblType, nil
}

// Initializer returns the constant instance image of a concrete class.
func (l *Lowerer) Initializer(id types.TypeID) (constant.Constant, error) {
	if err := l.ConstInit(id); err != nil {
		return nil, err
	}
	return l.classes[id].constInit, nil
}

func (l *Lowerer) begin(phase string, rec *classRecord) *trace.Span {
	_, span := trace.Start(l.ctx, trace.ScopeClass, phase+":"+rec.decl.PrettyName())
	return span
}

func (l *Lowerer) noteGlobal(g *ir.Global) {
	trace.Point(l.ctx, trace.ScopeSymbol, "global", g.Name())
}

// EmitModule lowers every class of prog and returns the textual IR.
func EmitModule(ctx context.Context, prog *types.Program, cfg Config) (string, error) {
	l := New(ctx, prog, cfg)
	if err := l.LowerModule(); err != nil {
		return "", err
	}
	return l.mod.String(), nil
}
