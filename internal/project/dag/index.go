package dag

import (
	"sort"

	"classgen/internal/project"
)

type UnitID uint32

type UnitIndex struct {
	NameToID map[string]UnitID
	IDToName []string
}

// BuildIndex collects unit names and dependency names, sorts them and hands
// out IDs in that order.
func BuildIndex(metas []project.UnitMeta) UnitIndex {
	uniq := make(map[string]struct{}, len(metas))
	for _, meta := range metas {
		if meta.Name != "" {
			uniq[meta.Name] = struct{}{}
		}
		for _, dep := range meta.Depends {
			if dep == "" {
				continue
			}
			uniq[dep] = struct{}{}
		}
	}

	names := make([]string, 0, len(uniq))
	for name := range uniq {
		names = append(names, name)
	}
	sort.Strings(names)

	nameToID := make(map[string]UnitID, len(names))
	for i, name := range names {
		nameToID[name] = UnitID(i)
	}

	return UnitIndex{
		NameToID: nameToID,
		IDToName: names,
	}
}
