// Package diag defines the diagnostic model shared by the declaration loader,
// the project loader and the lowering driver.
//
// A Diagnostic carries a Severity, a stable Code (DEC for declaration input,
// LOW for lowering, CFG for project configuration, IO, OBS), a short message,
// the primary Location and optional Notes. Locations name a file and a dotted
// declaration path rather than byte spans: the inputs are structured
// declaration files, not source text.
//
// Producers emit through a Reporter, usually via ReportBuilder:
//
//	diag.ReportError(r, diag.DecUnknownType, diag.At(file, "app.Base", "x"), "unknown type \"foo\"").
//		WithNote(diag.At(file, "app"), "module declared here").
//		Emit()
//
// BagReporter collects into a Bag, which supports sorting and deduplication.
// Rendering lives in internal/diagfmt.
package diag
