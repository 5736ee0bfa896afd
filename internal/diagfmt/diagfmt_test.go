package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"classgen/internal/diag"
)

func sampleBag() *diag.Bag {
	bag := diag.NewBag(10)
	bag.Add(diag.NewError(diag.DecUnknownType, diag.At("decl/app.toml", "app", "Base", "x"), "unknown type \"foo\"").
		WithNote(diag.At("decl/app.toml", "app"), "module declared here"))
	bag.Add(diag.New(diag.SevWarning, diag.DecImplicitAbstract, diag.At("decl/app.toml", "app", "Shape"), "class has abstract methods\nmarked abstract"))
	return bag
}

func TestPrettyPlain(t *testing.T) {
	var buf bytes.Buffer
	Pretty(&buf, sampleBag(), PrettyOpts{PathMode: PathModeBasename, ShowNotes: true})
	want := "app.toml:app.Base.x: ERROR DEC1004: unknown type \"foo\"\n" +
		"    note: app.toml:app: module declared here\n" +
		"app.toml:app.Shape: WARNING DEC1015: class has abstract methods marked abstract\n"
	if got := buf.String(); got != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", got, want)
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, sampleBag(), JSONOpts{Max: 1, IncludeNotes: true}); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Count != 1 || out.Diagnostics[0].Code != "DEC1004" || len(out.Diagnostics[0].Notes) != 1 {
		t.Fatalf("unexpected json %+v", out)
	}
	if !strings.Contains(buf.String(), `"symbol": "app.Base.x"`) {
		t.Fatalf("symbol missing:\n%s", buf.String())
	}
}
