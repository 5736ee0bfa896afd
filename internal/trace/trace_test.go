package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestLevelAdmits(t *testing.T) {
	cases := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeUnit, false},
		{LevelUnit, ScopeUnit, true},
		{LevelUnit, ScopeModule, false},
		{LevelModule, ScopeModule, true},
		{LevelClass, ScopeClass, true},
		{LevelClass, ScopeSymbol, false},
		{LevelSymbol, ScopeSymbol, true},
	}
	for _, tc := range cases {
		if got := tc.level.Admits(tc.scope); got != tc.want {
			t.Errorf("%s.Admits(%s) = %v, want %v", tc.level, tc.scope, got, tc.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{"": LevelOff, "unit": LevelUnit, "CLASS": LevelClass, "all": LevelSymbol} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("detail"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if _, err := ParseMode("both"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
	if _, err := ParseFormat("chrome"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestSpansNestThroughContext(t *testing.T) {
	var buf bytes.Buffer
	rec, err := New(Config{Level: LevelClass, Output: &buf, Format: FormatNDJSON})
	if err != nil {
		t.Fatal(err)
	}
	ctx := WithTracer(context.Background(), rec)
	ctx, unit := Start(ctx, ScopeUnit, "unit:app")
	cctx, class := Start(ctx, ScopeClass, "resolve:app.Base")
	if _, hidden := Start(cctx, ScopeSymbol, "global"); hidden != nil {
		t.Fatalf("symbol scope must be filtered at class level")
	}
	class.Set("slots", "3").End("")
	unit.End("done")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("want 4 events, got:\n%s", buf.String())
	}
	var begin, end jsonEvent
	if err := json.Unmarshal([]byte(lines[1]), &begin); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(lines[2]), &end); err != nil {
		t.Fatal(err)
	}
	if begin.Parent != unit.ID() || begin.Scope != "class" || begin.Seq != 2 {
		t.Fatalf("class span %+v not nested under unit %d", begin, unit.ID())
	}
	if end.Kind != "end" || end.Attrs["slots"] != "3" {
		t.Fatalf("end event %+v", end)
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	rec, err := New(Config{Level: LevelSymbol, Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	ctx := WithTracer(context.Background(), rec)
	ctx, span := Start(ctx, ScopeModule, "lower:app")
	Point(ctx, ScopeSymbol, "global", "_D3app4Base7__ClassZ")
	span.Set("classes", "2").End("")

	out := buf.String()
	for _, want := range []string{"  > lower:app", "      . global (_D3app4Base7__ClassZ)", "  < lower:app classes=2 ["} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestRingKeepsLastEvents(t *testing.T) {
	var buf bytes.Buffer
	rec, err := New(Config{Level: LevelSymbol, Mode: ModeRing, RingSize: 2, Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	ctx := WithTracer(context.Background(), rec)
	for _, name := range []string{"a", "b", "c"} {
		Point(ctx, ScopeSymbol, name, "")
	}
	snap := rec.Snapshot()
	if len(snap) != 2 || snap[0].Name != "b" || snap[1].Name != "c" {
		t.Fatalf("snapshot %+v", snap)
	}
	if buf.Len() != 0 {
		t.Fatalf("ring mode must not write before Close")
	}
	if err := rec.Close(); err != nil {
		t.Fatal(err)
	}
	if out := buf.String(); strings.Contains(out, " a") || !strings.Contains(out, ". c") {
		t.Fatalf("dump:\n%s", out)
	}
}

func TestNopWithoutTracer(t *testing.T) {
	ctx, span := Start(context.Background(), ScopeUnit, "x")
	if span != nil || ctx != context.Background() {
		t.Fatalf("Start without a tracer must be a no-op")
	}
	span.Set("k", "v").End("")
	if FromContext(nil) != Nop {
		t.Fatalf("nil context must yield Nop")
	}
}

type countTracer struct{ n chan struct{} }

func (c countTracer) Emit(ev Event) {
	if ev.Kind == KindHeartbeat {
		select {
		case c.n <- struct{}{}:
		default:
		}
	}
}
func (countTracer) Level() Level { return LevelUnit }
func (countTracer) Close() error { return nil }

func TestHeartbeat(t *testing.T) {
	ct := countTracer{n: make(chan struct{}, 1)}
	stop := StartHeartbeat(ct, time.Millisecond)
	select {
	case <-ct.n:
	case <-time.After(5 * time.Second):
		t.Fatalf("no heartbeat")
	}
	stop()
	stop()
}
