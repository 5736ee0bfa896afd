package driver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"classgen/internal/backend/llvm"
	"classgen/internal/diag"
	"classgen/internal/diagfmt"
	"classgen/internal/layout"
	"classgen/internal/observ"
	"classgen/internal/project"
)

// ReportLoweringError turns a lowering failure into a diagnostic. Broken
// invariants are internal errors: the declarations passed validation.
func ReportLoweringError(rep diag.Reporter, file string, err error) {
	var (
		ie *llvm.InvariantError
		le *layout.LayoutError
	)
	switch {
	case errors.As(err, &ie):
		code := diag.LowInvariant
		switch ie.Kind {
		case llvm.ErrOffsetMismatch, llvm.ErrOffsetNotPlaceable:
			code = diag.LowOffsetMismatch
		case llvm.ErrInvalidCast:
			code = diag.LowInvalidCast
		}
		loc := diag.At(file)
		if ie.Class != "" {
			loc = diag.At(file, ie.Class)
		}
		diag.ReportError(rep, code, loc, fmt.Sprintf("internal error: %s: %s", ie.Kind, ie.Detail)).Emit()
	case errors.As(err, &le):
		diag.ReportError(rep, diag.LowLayout, diag.At(file), le.Error()).Emit()
	default:
		diag.ReportError(rep, diag.LowInvariant, diag.At(file), "internal error: "+err.Error()).Emit()
	}
}

// Report is the machine-readable summary of a build.
type Report struct {
	Project string        `json:"project,omitempty"`
	Triple  string        `json:"triple"`
	PtrSize int           `json:"ptr_size"`
	Order   []string      `json:"order"`
	Units   []UnitReport  `json:"units"`
	Timings observ.Report `json:"timings"`
}

// UnitReport summarizes one unit.
type UnitReport struct {
	Name        string                   `json:"name"`
	Path        string                   `json:"path"`
	Hash        string                   `json:"hash"`
	Status      Status                   `json:"status"`
	Output      string                   `json:"output,omitempty"`
	Classes     []llvm.ClassReport       `json:"classes,omitempty"`
	Diagnostics []diagfmt.DiagnosticJSON `json:"diagnostics,omitempty"`
}

// NewReport summarizes res.
func NewReport(res *Result) Report {
	r := Report{
		Project: res.Plan.Name,
		Triple:  res.Plan.Config.Target.Triple,
		PtrSize: res.Plan.Config.Target.PtrSize,
		Order:   res.Order,
		Timings: res.Timings,
	}
	for _, u := range res.Units {
		r.Units = append(r.Units, UnitReport{
			Name:        u.Name,
			Path:        u.Path,
			Hash:        u.Hash.String(),
			Status:      u.Status(),
			Output:      u.Output,
			Classes:     u.Classes,
			Diagnostics: diagfmt.BuildDiagnosticsOutput(u.Bag, diagfmt.JSONOpts{IncludeNotes: true}).Diagnostics,
		})
	}
	return r
}

// Status is the final status of the unit.
func (u *UnitResult) Status() Status {
	switch {
	case u.Skipped:
		return StatusSkipped
	case u.Broken:
		return StatusError
	case u.Cached:
		return StatusCached
	default:
		return StatusDone
	}
}

// WriteReport encodes r as JSON or msgpack. Msgpack falls back to the json
// tags for field names.
func WriteReport(w io.Writer, format string, r Report) error {
	switch format {
	case project.ReportJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case project.ReportMsgpack:
		enc := msgpack.NewEncoder(w)
		enc.SetCustomStructTag("json")
		return enc.Encode(r)
	}
	return fmt.Errorf("unsupported report format %q", format)
}

// ReadReport decodes a msgpack report written by WriteReport.
func ReadReport(r io.Reader) (Report, error) {
	dec := msgpack.NewDecoder(r)
	dec.SetCustomStructTag("json")
	var out Report
	err := dec.Decode(&out)
	return out, err
}

// TimingDiagnostic renders a timing report as an info diagnostic whose note
// carries the JSON payload.
func TimingDiagnostic(kind string, rep observ.Report) diag.Diagnostic {
	if kind == "" {
		kind = "build"
	}
	d := diag.New(diag.SevInfo, diag.ObsTimings, diag.Location{}, fmt.Sprintf("timings (%s): total %.2f ms", kind, rep.TotalMS))
	data, err := json.Marshal(rep)
	if err != nil {
		return d
	}
	return d.WithNote(diag.Location{}, string(data))
}
