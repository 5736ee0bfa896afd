package diag

import "testing"

func TestCodeIDRanges(t *testing.T) {
	cases := map[Code]string{
		DecUnknownType:  "DEC1004",
		LowInvariant:    "LOW2001",
		CfgBadTarget:    "CFG3004",
		IOLoadFileError: "IO4001",
		ObsTimings:      "OBS6001",
		UnknownCode:     "E0000",
	}
	for code, want := range cases {
		if got := code.ID(); got != want {
			t.Errorf("%d.ID() = %q, want %q", code, got, want)
		}
	}
}

func TestBagLimitAndErrors(t *testing.T) {
	bag := NewBag(2)
	r := &BagReporter{Bag: bag}
	ReportWarning(r, DecImplicitAbstract, At("a.toml", "app", "A"), "w").Emit()
	if bag.HasErrors() || !bag.HasWarnings() {
		t.Fatalf("unexpected severity summary")
	}
	ReportError(r, DecUnknownType, At("a.toml", "app", "B", "x"), "e").Emit()
	ReportError(r, DecUnknownType, At("a.toml", "app", "C"), "dropped").Emit()
	if bag.Len() != 2 || !bag.HasErrors() {
		t.Fatalf("bag len=%d", bag.Len())
	}
}

func TestReportBuilderEmitsOnce(t *testing.T) {
	bag := NewBag(10)
	b := ReportError(&BagReporter{Bag: bag}, LowInvariant, At("", "app.C"), "boom").
		WithNote(At("", "app.B"), "base here")
	b.Emit()
	b.Emit()
	if bag.Len() != 1 || len(bag.Items()[0].Notes) != 1 {
		t.Fatalf("expected a single diagnostic with one note, got %+v", bag.Items())
	}
}

func TestSortAndDedup(t *testing.T) {
	bag := NewBag(10)
	bag.Add(NewError(DecUnknownType, At("b.toml", "x"), "m"))
	bag.Add(New(SevWarning, DecImplicitAbstract, At("a.toml", "y"), "w"))
	bag.Add(NewError(DecBadBase, At("a.toml", "y"), "e"))
	bag.Add(NewError(DecUnknownType, At("b.toml", "x"), "m"))
	bag.Dedup()
	bag.Sort()
	items := bag.Items()
	if len(items) != 3 {
		t.Fatalf("dedup kept %d items", len(items))
	}
	if items[0].Code != DecBadBase || items[1].Code != DecImplicitAbstract || items[2].Primary.File != "b.toml" {
		t.Fatalf("unexpected order %+v", items)
	}
}

func TestDedupReporter(t *testing.T) {
	bag := NewBag(10)
	r := NewDedupReporter(&BagReporter{Bag: bag})
	for range 3 {
		r.Report(LowOffsetMismatch, SevError, At("", "app.U"), "same", nil)
	}
	if bag.Len() != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", bag.Len())
	}
}

func TestLocationString(t *testing.T) {
	cases := []struct {
		loc  Location
		want string
	}{
		{Location{}, "<unknown>"},
		{At("a.toml"), "a.toml"},
		{At("", "app", "Base"), "app.Base"},
		{At("a.toml", "app", "Base"), "a.toml:app.Base"},
	}
	for _, tc := range cases {
		if got := tc.loc.String(); got != tc.want {
			t.Errorf("got %q, want %q", got, tc.want)
		}
	}
}
