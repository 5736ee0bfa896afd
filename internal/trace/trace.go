// Package trace records spans of the build and lowering pipeline.
//
// Scopes nest from a whole declaration unit down to single emitted symbols:
//
//	unit    one declaration file through hash, load, lower and emit
//	module  one lowering pass over the classes of a unit
//	class   one class through one phase (resolve, declare, define, ...)
//	symbol  a single global or function added to the module
//
// A tracer travels in the context; Start and Point are no-ops without one.
package trace

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Scope is the granularity of an event. Smaller values are coarser.
type Scope uint8

const (
	ScopeUnit Scope = iota + 1
	ScopeModule
	ScopeClass
	ScopeSymbol
)

var scopeNames = [...]string{"", "unit", "module", "class", "symbol"}

func (s Scope) String() string {
	if int(s) < len(scopeNames) && s != 0 {
		return scopeNames[s]
	}
	return "unknown"
}

// Level selects the finest scope that is recorded.
type Level uint8

const (
	LevelOff    Level = 0
	LevelUnit         = Level(ScopeUnit)
	LevelModule       = Level(ScopeModule)
	LevelClass        = Level(ScopeClass)
	LevelSymbol       = Level(ScopeSymbol)
)

func (l Level) String() string {
	if l == LevelOff {
		return "off"
	}
	return Scope(l).String()
}

// Admits reports whether events of scope are recorded at this level.
func (l Level) Admits(s Scope) bool {
	return l != LevelOff && s != 0 && Scope(l) >= s
}

// ParseLevel accepts off, unit, module, class or symbol.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "", "off":
		return LevelOff, nil
	case "unit":
		return LevelUnit, nil
	case "module":
		return LevelModule, nil
	case "class":
		return LevelClass, nil
	case "symbol", "all":
		return LevelSymbol, nil
	}
	return LevelOff, fmt.Errorf("unknown trace level %q (off|unit|module|class|symbol)", s)
}

// Kind tells span boundaries from instant events.
type Kind uint8

const (
	KindBegin Kind = iota + 1
	KindEnd
	KindPoint
	KindHeartbeat
)

func (k Kind) String() string {
	switch k {
	case KindBegin:
		return "begin"
	case KindEnd:
		return "end"
	case KindPoint:
		return "point"
	case KindHeartbeat:
		return "heartbeat"
	}
	return "unknown"
}

// Attr is an ordered key/value annotation of an event.
type Attr struct {
	Key   string
	Value string
}

// Event is one recorded trace entry. Seq is assigned by the tracer.
type Event struct {
	Time    time.Time
	Seq     uint64
	Kind    Kind
	Scope   Scope
	Span    uint64
	Parent  uint64
	Name    string
	Detail  string
	Elapsed time.Duration
	Attrs   []Attr
}

// Tracer receives events. Implementations must be safe for concurrent use.
type Tracer interface {
	Emit(ev Event)
	Level() Level
	Close() error
}

type nop struct{}

func (nop) Emit(Event)   {}
func (nop) Level() Level { return LevelOff }
func (nop) Close() error { return nil }

// Nop discards every event.
var Nop Tracer = nop{}

type tracerKey struct{}
type spanKey struct{}

// WithTracer returns a context carrying t.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, tracerKey{}, t)
}

// FromContext returns the tracer of ctx or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx != nil {
		if t, ok := ctx.Value(tracerKey{}).(Tracer); ok {
			return t
		}
	}
	return Nop
}

// parentOf returns the innermost span started on ctx.
func parentOf(ctx context.Context) uint64 {
	if ctx != nil {
		if id, ok := ctx.Value(spanKey{}).(uint64); ok {
			return id
		}
	}
	return 0
}
