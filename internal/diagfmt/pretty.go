package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"classgen/internal/diag"
)

// Pretty renders diagnostics as
//
//	<path>:<symbol>: <SEV> <CODE>: <message>
//	    note: <path>:<symbol>: <message>
//
// Bags are expected to be sorted by the caller.
func Pretty(w io.Writer, bag *diag.Bag, opts PrettyOpts) {
	if bag == nil {
		return
	}
	sevColor := map[diag.Severity]*color.Color{
		diag.SevError:   color.New(color.FgRed, color.Bold),
		diag.SevWarning: color.New(color.FgYellow, color.Bold),
		diag.SevInfo:    color.New(color.FgCyan),
	}
	locColor := color.New(color.Bold)
	noteColor := color.New(color.FgBlue)
	for _, c := range []*color.Color{sevColor[diag.SevError], sevColor[diag.SevWarning], sevColor[diag.SevInfo], locColor, noteColor} {
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	for _, d := range bag.Items() {
		loc := renderLocation(d.Primary, opts.PathMode, opts.BaseDir)
		fmt.Fprintf(w, "%s: %s %s: %s\n",
			locColor.Sprint(loc),
			sevColor[d.Severity].Sprint(d.Severity.String()),
			d.Code.ID(),
			firstLine(d.Message),
		)
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			fmt.Fprintf(w, "    %s %s: %s\n",
				noteColor.Sprint("note:"),
				renderLocation(n.Location, opts.PathMode, opts.BaseDir),
				firstLine(n.Msg),
			)
		}
	}
}

func renderLocation(loc diag.Location, mode PathMode, base string) string {
	loc.File = formatPath(loc.File, mode, base)
	return loc.String()
}

func firstLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i]) + " " + strings.Join(strings.Fields(s[i+1:]), " ")
	}
	return s
}
