package ui

import (
	"math"
	"strings"
	"testing"

	"classgen/internal/backend/llvm"
	"classgen/internal/driver"
)

func TestRenderLayout(t *testing.T) {
	out := RenderLayout([]llvm.ClassReport{{
		Name: "app.Derived",
		Kind: "class",
		Size: 40,
		Slots: []llvm.SlotReport{
			{Index: 0, Offset: 0, Type: "%C3app7Derived__vtblType*"},
			{Index: 1, Offset: 8, Type: "i8*"},
			{Index: 2, Offset: 16, Type: "i32", Fields: []string{"x"}},
			{Index: 3, Offset: 24, Type: "%Interface**"},
		},
		Interfaces: []llvm.BindingReport{{Interface: "app.I", Slot: 3, ThisOffset: 24}},
		Vtbl:       []string{"<descriptor>", "_D3app7Derived1fMFZi"},
		Flags:      8,
	}})
	for _, want := range []string{"app.Derived (class, 40 bytes, flags 0x8)", "<vtbl>", "<monitor>", "<app.I>", "[1] _D3app7Derived1fMFZi", "app.I at slot 3, this offset 24"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdefgh", 6); got != "abc..." {
		t.Fatalf("got %q", got)
	}
	if got := truncate("abc", 6); got != "abc" {
		t.Fatalf("got %q", got)
	}
}

func TestProgressTracksUnits(t *testing.T) {
	m := NewProgressModel("build", []string{"lib", "app"}, nil).(*progressModel)
	m.applyEvent(driver.Event{Unit: "lib", Stage: driver.StageEmit, Status: driver.StatusDone})
	m.applyEvent(driver.Event{Unit: "app", Stage: driver.StageLower, Status: driver.StatusWorking})
	m.applyEvent(driver.Event{Unit: "other", Stage: driver.StageLower, Status: driver.StatusWorking})
	if m.items[0].status != "done" || m.items[1].status != "lowering" {
		t.Fatalf("items %+v", m.items)
	}
	if got := m.fraction(); math.Abs(got-0.8) > 1e-9 {
		t.Fatalf("fraction %v", got)
	}
	if !strings.Contains(m.View(), "lowering") {
		t.Fatalf("view:\n%s", m.View())
	}
}
