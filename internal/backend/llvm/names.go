package llvm

import (
	"strconv"

	"classgen/internal/types"
)

func vtblSymbol(decl *types.ClassDecl) string {
	return "_D" + decl.Mangle + "6__vtblZ"
}

func initSymbol(decl *types.ClassDecl) string {
	return "_D" + decl.Mangle + "6__initZ"
}

func interfaceInfosSymbol(decl *types.ClassDecl) string {
	return "_D" + decl.Mangle + "16__interfaceInfosZ"
}

func interfaceTableSymbol(decl, iface *types.ClassDecl) string {
	return "_D" + decl.Mangle + "11__interface" + iface.Mangle + "6__vtblZ"
}

func descriptorSymbol(decl *types.ClassDecl) string {
	if decl.IsInterface {
		return "_D" + decl.Mangle + "11__InterfaceZ"
	}
	return "_D" + decl.Mangle + "7__ClassZ"
}

func destructorSymbol(decl *types.ClassDecl) string {
	return "_D" + decl.Mangle + "12__destructorMFZv"
}

// typeInfoName is the runtime name of the type info object for a type
// string, e.g. "TypeInfo_i" or "TypeInfo_C3app4Base".
func typeInfoName(typeMangle string) string {
	return "TypeInfo_" + typeMangle
}

func typeInfoSymbol(typeMangle string) string {
	name := typeInfoName(typeMangle)
	return "_D" + strconv.Itoa(len(name)) + name + "6__initZ"
}

func offsetTypeInfosSymbol(typeMangle string) string {
	return typeInfoName(typeMangle) + "__OffsetTypeInfos"
}

func vtblTypeName(classType string) string {
	return classType + "__vtblType"
}
