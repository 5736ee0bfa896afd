package project

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"classgen/internal/diag"
	"classgen/internal/layout"
)

// ErrInvalidManifest is returned when classgen.toml produced error
// diagnostics.
var ErrInvalidManifest = errors.New("invalid project manifest")

// Report formats accepted by [output].report.
const (
	ReportNone    = ""
	ReportJSON    = "json"
	ReportMsgpack = "msgpack"
)

// RuntimeConfig overrides the names of runtime helper functions. Empty
// fields keep the defaults.
type RuntimeConfig struct {
	NewClass      string `toml:"new_class"`
	DynamicCast   string `toml:"dynamic_cast"`
	InterfaceCast string `toml:"interface_cast"`
	ToObject      string `toml:"to_object"`
	MemCpy        string `toml:"memcpy"`
}

type OutputConfig struct {
	Dir    string `toml:"dir"`
	Report string `toml:"report"`
	Cache  string `toml:"cache"`
}

// Manifest is a validated classgen.toml.
type Manifest struct {
	Path    string
	Root    string
	Name    string
	Target  layout.Target
	Runtime RuntimeConfig
	Output  OutputConfig
	Units   []UnitMeta
}

type manifestFile struct {
	Project struct {
		Name string `toml:"name"`
	} `toml:"project"`
	Target struct {
		Triple  string `toml:"triple"`
		PtrSize int    `toml:"ptr_size"`
	} `toml:"target"`
	Runtime RuntimeConfig `toml:"runtime"`
	Output  OutputConfig  `toml:"output"`
	Units   []struct {
		Name    string   `toml:"name"`
		Path    string   `toml:"path"`
		Depends []string `toml:"depends"`
	} `toml:"unit"`
}

// LoadManifest parses and validates a project manifest. Problems are
// reported to rep; the error is non-nil when any of them is an error.
func LoadManifest(path string, rep diag.Reporter) (*Manifest, error) {
	errs := 0
	report := func(code diag.Code, sev diag.Severity, loc diag.Location, format string, args ...any) {
		if sev == diag.SevError {
			errs++
		}
		diag.NewReportBuilder(rep, sev, code, loc, fmt.Sprintf(format, args...)).Emit()
	}

	var cfg manifestFile
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		report(diag.CfgParse, diag.SevError, diag.At(path), "failed to parse TOML: %v", err)
		return nil, fmt.Errorf("%s: %w", path, ErrInvalidManifest)
	}
	for _, key := range meta.Undecoded() {
		report(diag.CfgUnknownKey, diag.SevWarning, diag.At(path, key.String()), "unknown key %q", key.String())
	}

	root := filepath.Dir(path)
	m := &Manifest{
		Path:    path,
		Root:    root,
		Name:    strings.TrimSpace(cfg.Project.Name),
		Runtime: cfg.Runtime,
		Output:  cfg.Output,
	}
	if !meta.IsDefined("project", "name") || m.Name == "" {
		report(diag.CfgMissingKey, diag.SevError, diag.At(path, "project"), "missing [project].name")
	}

	if meta.IsDefined("target", "ptr_size") && cfg.Target.PtrSize != 4 && cfg.Target.PtrSize != 8 {
		report(diag.CfgBadTarget, diag.SevError, diag.At(path, "target", "ptr_size"),
			"pointer size %d is not supported, use 4 or 8", cfg.Target.PtrSize)
	}
	m.Target = layout.TargetFor(strings.TrimSpace(cfg.Target.Triple), cfg.Target.PtrSize)

	if m.Output.Dir == "" {
		m.Output.Dir = "build"
	}
	if !filepath.IsAbs(m.Output.Dir) {
		m.Output.Dir = filepath.Join(root, m.Output.Dir)
	}
	if m.Output.Cache != "" && !filepath.IsAbs(m.Output.Cache) {
		m.Output.Cache = filepath.Join(root, m.Output.Cache)
	}
	switch m.Output.Report {
	case ReportNone, ReportJSON, ReportMsgpack:
	default:
		report(diag.CfgParse, diag.SevError, diag.At(path, "output", "report"),
			"unsupported report format %q", m.Output.Report)
	}

	for i, u := range cfg.Units {
		loc := diag.At(path, "unit", u.Name)
		if !IsValidUnitName(u.Name) {
			report(diag.CfgParse, diag.SevError, diag.At(path, "unit", fmt.Sprint(i)), "invalid unit name %q", u.Name)
			continue
		}
		if strings.TrimSpace(u.Path) == "" {
			report(diag.CfgMissingKey, diag.SevError, loc, "unit %s has no path", u.Name)
			continue
		}
		p := filepath.FromSlash(u.Path)
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		m.Units = append(m.Units, UnitMeta{
			Name:    u.Name,
			Path:    filepath.Clean(p),
			Depends: u.Depends,
			Loc:     loc,
		})
	}

	if errs > 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrInvalidManifest)
	}
	return m, nil
}
