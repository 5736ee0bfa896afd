package diag

import "strings"

// Location points at the declaration a diagnostic is about. Symbol is the
// dotted path inside the file, e.g. "app.Derived.f" or "target.triple".
type Location struct {
	File   string
	Symbol string
}

func (l Location) String() string {
	switch {
	case l.File == "" && l.Symbol == "":
		return "<unknown>"
	case l.Symbol == "":
		return l.File
	case l.File == "":
		return l.Symbol
	}
	return l.File + ":" + l.Symbol
}

// At builds a Location from a file and symbol path components.
func At(file string, symbol ...string) Location {
	return Location{File: file, Symbol: strings.Join(symbol, ".")}
}

type Note struct {
	Location Location
	Msg      string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  Location
	Notes    []Note
}
