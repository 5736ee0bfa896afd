package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Declaration input (schema files)
	DecInfo                  Code = 1000
	DecParse                 Code = 1001
	DecUnknownKey            Code = 1002
	DecDuplicateDecl         Code = 1003
	DecUnknownType           Code = 1004
	DecBadTypeExpr           Code = 1005
	DecInheritanceCycle      Code = 1006
	DecBadBase               Code = 1007
	DecNotInterface          Code = 1008
	DecUnknownOverride       Code = 1009
	DecMissingImplementation Code = 1010
	DecBadInitializer        Code = 1011
	DecBadUnion              Code = 1012
	DecDuplicateMember       Code = 1013
	DecSignatureMismatch     Code = 1014
	DecImplicitAbstract      Code = 1015
	DecEmptyModule           Code = 1016

	// Lowering
	LowInfo           Code = 2000
	LowInvariant      Code = 2001
	LowLayout         Code = 2002
	LowOffsetMismatch Code = 2003
	LowInvalidCast    Code = 2004

	// Project configuration
	CfgInfo             Code = 3000
	CfgManifestNotFound Code = 3001
	CfgParse            Code = 3002
	CfgUnknownKey       Code = 3003
	CfgBadTarget        Code = 3004
	CfgDuplicateUnit    Code = 3005
	CfgMissingUnit      Code = 3006
	CfgSelfDependency   Code = 3007
	CfgUnitCycle        Code = 3008
	CfgDependencyFailed Code = 3009
	CfgMissingKey       Code = 3010

	// I/O
	IOLoadFileError  Code = 4001
	IOWriteFileError Code = 4002

	// Observability
	ObsInfo    Code = 6000
	ObsTimings Code = 6001
	ObsCache   Code = 6002
)

var (
	codeDescription = map[Code]string{
		UnknownCode:              "Unknown error",
		DecInfo:                  "Declaration information",
		DecParse:                 "Malformed declaration file",
		DecUnknownKey:            "Unknown key in declaration file",
		DecDuplicateDecl:         "Duplicate declaration",
		DecUnknownType:           "Unknown type",
		DecBadTypeExpr:           "Invalid type expression",
		DecInheritanceCycle:      "Inheritance cycle",
		DecBadBase:               "Invalid base class",
		DecNotInterface:          "Implemented type is not an interface",
		DecUnknownOverride:       "Override of unknown method",
		DecMissingImplementation: "Interface method not implemented",
		DecBadInitializer:        "Invalid field initializer",
		DecBadUnion:              "Invalid union group",
		DecDuplicateMember:       "Duplicate member",
		DecSignatureMismatch:     "Override signature mismatch",
		DecImplicitAbstract:      "Class is implicitly abstract",
		DecEmptyModule:           "Module has no classes",
		LowInfo:                  "Lowering information",
		LowInvariant:             "Lowering invariant violated",
		LowLayout:                "Type layout error",
		LowOffsetMismatch:        "Field offset mismatch",
		LowInvalidCast:           "Invalid cast",
		CfgInfo:                  "Configuration information",
		CfgManifestNotFound:      "Project manifest not found",
		CfgParse:                 "Malformed project manifest",
		CfgUnknownKey:            "Unknown key in project manifest",
		CfgBadTarget:             "Unsupported target",
		CfgDuplicateUnit:         "Duplicate unit",
		CfgMissingUnit:           "Unknown unit dependency",
		CfgSelfDependency:        "Unit depends on itself",
		CfgUnitCycle:             "Unit dependency cycle",
		CfgDependencyFailed:      "Dependency unit has errors",
		CfgMissingKey:            "Missing required key",
		IOLoadFileError:          "I/O load file error",
		IOWriteFileError:         "I/O write file error",
		ObsInfo:                  "Observability information",
		ObsTimings:               "Pipeline timings",
		ObsCache:                 "Cache status",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("DEC%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("LOW%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("CFG%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
