package trace

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"
)

var spanIDs atomic.Uint64

// Span is an open operation. A nil *Span is valid and records nothing.
type Span struct {
	t      Tracer
	id     uint64
	parent uint64
	scope  Scope
	name   string
	start  time.Time
	attrs  []Attr
}

// Start opens a span on the tracer of ctx. The returned context makes the
// span the parent of spans started from it. When the scope is filtered out
// ctx is returned unchanged together with a nil span.
func Start(ctx context.Context, scope Scope, name string) (context.Context, *Span) {
	t := FromContext(ctx)
	if !t.Level().Admits(scope) {
		return ctx, nil
	}
	s := &Span{
		t:      t,
		id:     spanIDs.Add(1),
		parent: parentOf(ctx),
		scope:  scope,
		name:   name,
		start:  time.Now(),
	}
	t.Emit(Event{Time: s.start, Kind: KindBegin, Scope: scope, Span: s.id, Parent: s.parent, Name: name})
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, spanKey{}, s.id), s
}

// Set annotates the end event of the span.
func (s *Span) Set(key, value string) *Span {
	if s != nil {
		s.attrs = append(s.attrs, Attr{Key: key, Value: value})
	}
	return s
}

// ID returns the span identifier, zero for a nil span.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// End closes the span and returns its duration.
func (s *Span) End(detail string) time.Duration {
	if s == nil {
		return 0
	}
	now := time.Now()
	d := now.Sub(s.start)
	s.t.Emit(Event{
		Time:    now,
		Kind:    KindEnd,
		Scope:   s.scope,
		Span:    s.id,
		Parent:  s.parent,
		Name:    s.name,
		Detail:  detail,
		Elapsed: d,
		Attrs:   s.attrs,
	})
	return d
}

// Point records an instant event under the current span of ctx.
func Point(ctx context.Context, scope Scope, name, detail string) {
	t := FromContext(ctx)
	if !t.Level().Admits(scope) {
		return
	}
	t.Emit(Event{Time: time.Now(), Kind: KindPoint, Scope: scope, Parent: parentOf(ctx), Name: name, Detail: detail})
}

// StartHeartbeat emits a heartbeat event every interval until the returned
// stop function is called. Heartbeats bypass level filtering so a stuck
// build still shows signs of life.
func StartHeartbeat(t Tracer, every time.Duration) (stop func()) {
	if t == nil || t.Level() == LevelOff || every <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		tick := time.NewTicker(every)
		defer tick.Stop()
		for n := 1; ; n++ {
			select {
			case now := <-tick.C:
				t.Emit(Event{Time: now, Kind: KindHeartbeat, Scope: ScopeUnit, Name: "heartbeat", Attrs: []Attr{{Key: "n", Value: strconv.Itoa(n)}}})
			case <-done:
				return
			}
		}
	}()
	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			close(done)
			<-finished
		}
	}
}
