package llvm

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	lltypes "github.com/llir/llvm/ir/types"

	"classgen/internal/types"
)

// Phase is the lowering progress of one class. It only moves forward.
type Phase uint8

const (
	PhaseUnresolved Phase = iota
	PhaseResolved
	PhaseDeclared
	PhaseConstInitialized
	PhaseDefined
)

func (p Phase) String() string {
	switch p {
	case PhaseUnresolved:
		return "unresolved"
	case PhaseResolved:
		return "resolved"
	case PhaseDeclared:
		return "declared"
	case PhaseConstInitialized:
		return "constinit"
	case PhaseDefined:
		return "defined"
	default:
		return "phase?"
	}
}

// descriptor progress is tracked apart from the class phase; a descriptor
// can be referenced (declared) long before its class is defined.
type descState uint8

const (
	descNone descState = iota
	descDeclared
	descDefined
)

type fieldPlacement struct {
	Index int
	Sub   int
}

// interfaceBinding is one entry of a class's flattened interface list.
type interfaceBinding struct {
	iface     *types.ClassDecl
	slot      int
	table     *ir.Global
	tableType *lltypes.StructType
	info      constant.Constant
	tableInit constant.Constant
	infoInit  constant.Constant
}

type classRecord struct {
	decl    *types.ClassDecl
	phase   Phase
	running uint8
	desc    descState

	irType   *lltypes.StructType
	vtblType *lltypes.StructType

	entries   []offsetEntry
	groups    []fieldGroup
	placement map[*types.Field]fieldPlacement
	hasUnions bool
	ifaces    []*interfaceBinding

	vtbl       *ir.Global
	init       *ir.Global
	infos      *ir.Global
	descriptor *ir.Global
	dtorThunk  constant.Constant

	constInit  constant.Constant
	constVtbl  constant.Constant
	constInfos constant.Constant
}

// record returns the bookkeeping of a class, creating its placeholder types
// on first sight so that other classes can point at it before it resolves.
func (l *Lowerer) record(id types.TypeID) (*classRecord, error) {
	if rec, ok := l.classes[id]; ok {
		return rec, nil
	}
	decl, ok := l.in.Class(id)
	if !ok {
		return nil, invariantf(ErrUnknownType, "", "type#%d is not a class", id)
	}
	st := l.classStruct(id)
	vt := &lltypes.StructType{Opaque: true}
	l.mod.NewTypeDef(vtblTypeName(st.Name()), vt)
	rec := &classRecord{
		decl:      decl,
		irType:    st,
		vtblType:  vt,
		placement: make(map[*types.Field]fieldPlacement, len(decl.Fields)),
	}
	l.classes[id] = rec
	return rec, nil
}

// enter guards against a phase of a class being requested while that same
// phase of the same class is still running.
func (rec *classRecord) enter(p Phase) error {
	bit := uint8(1) << p
	if rec.running&bit != 0 {
		return invariantf(ErrPhaseReentry, rec.decl.PrettyName(), "%s requested while running", p)
	}
	rec.running |= bit
	return nil
}

func (rec *classRecord) leave(p Phase, err error) {
	rec.running &^= uint8(1) << p
	if err == nil && rec.phase < p {
		rec.phase = p
	}
}

// PhaseOf reports how far a class has been lowered.
func (l *Lowerer) PhaseOf(id types.TypeID) Phase {
	if rec, ok := l.classes[id]; ok {
		return rec.phase
	}
	return PhaseUnresolved
}
