package project

import (
	"path/filepath"
	"strings"
	"unicode"

	"classgen/internal/diag"
)

// UnitMeta describes one compilation unit: a declaration file lowered into
// its own IR module.
type UnitMeta struct {
	Name    string
	Path    string // absolute path of the declaration file
	Depends []string
	Loc     diag.Location // where the unit is declared

	ContentHash Digest // hash of the declaration file
	UnitHash    Digest // content hash folded with the hashes of dependencies
}

func IsValidUnitName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r > unicode.MaxASCII {
			return false
		}
		if i == 0 && r != '_' && !unicode.IsLetter(r) {
			return false
		}
		if i > 0 && r != '_' && r != '-' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// UnitsFromFiles builds standalone units for declaration files given on the
// command line. Each unit is named after its file.
func UnitsFromFiles(paths []string) ([]UnitMeta, error) {
	units := make([]UnitMeta, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		units = append(units, UnitMeta{
			Name: strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs)),
			Path: abs,
			Loc:  diag.At(p),
		})
	}
	return units, nil
}

// Hash fills ContentHash from the unit's file.
func (u *UnitMeta) Hash() error {
	d, err := HashFile(u.Path)
	if err != nil {
		return err
	}
	u.ContentHash = d
	return nil
}
