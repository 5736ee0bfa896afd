package dag

import (
	"fmt"
	"slices"
	"strings"

	"classgen/internal/diag"
	"classgen/internal/project"
)

// Graph points from a unit to the units that depend on it, so that a
// topological order is a build order.
type Graph struct {
	Edges   [][]UnitID // Edges[dep] = dependents
	Deps    [][]UnitID // Deps[unit] = sorted dependencies
	Indeg   []int      // unresolved dependencies, present units only
	Present []bool     // the unit is declared, not only depended upon
}

type UnitNode struct {
	Meta     project.UnitMeta
	Reporter diag.Reporter
	Broken   bool
	FirstErr *diag.Diagnostic
}

type UnitSlot struct {
	Meta     project.UnitMeta
	Reporter diag.Reporter
	Present  bool
	Broken   bool
	FirstErr *diag.Diagnostic
}

func BuildGraph(idx UnitIndex, nodes []UnitNode) (Graph, []UnitSlot) {
	nodeCount := len(idx.IDToName)
	g := Graph{
		Edges:   make([][]UnitID, nodeCount),
		Deps:    make([][]UnitID, nodeCount),
		Indeg:   make([]int, nodeCount),
		Present: make([]bool, nodeCount),
	}
	slots := make([]UnitSlot, nodeCount)
	for i, name := range idx.IDToName {
		slots[i].Meta.Name = name
	}

	for _, node := range nodes {
		meta := node.Meta
		if meta.Name == "" {
			continue
		}
		id, ok := idx.NameToID[meta.Name]
		if !ok {
			continue
		}
		slot := &slots[int(id)]
		if slot.Present {
			if node.Reporter != nil {
				node.Reporter.Report(
					diag.CfgDuplicateUnit,
					diag.SevError,
					meta.Loc,
					fmt.Sprintf("duplicate unit %q", meta.Name),
					[]diag.Note{{Location: slot.Meta.Loc, Msg: fmt.Sprintf("previous declaration of %q", meta.Name)}},
				)
			}
			continue
		}
		slot.Meta = meta
		slot.Reporter = node.Reporter
		slot.Present = true
		slot.Broken = node.Broken
		slot.FirstErr = node.FirstErr
		g.Present[int(id)] = true
	}

	for from := range slots {
		slot := &slots[from]
		if !slot.Present || len(slot.Meta.Depends) == 0 {
			continue
		}
		seen := make(map[UnitID]struct{}, len(slot.Meta.Depends))
		for _, dep := range slot.Meta.Depends {
			if dep == "" {
				continue
			}
			depID := idx.NameToID[dep]
			if UnitID(from) == depID {
				if slot.Reporter != nil {
					slot.Reporter.Report(diag.CfgSelfDependency, diag.SevError, slot.Meta.Loc,
						fmt.Sprintf("unit %q depends on itself", slot.Meta.Name), nil)
				}
				continue
			}
			if _, dup := seen[depID]; dup {
				continue
			}
			seen[depID] = struct{}{}
			if !g.Present[int(depID)] {
				if slot.Reporter != nil {
					slot.Reporter.Report(diag.CfgMissingUnit, diag.SevError, slot.Meta.Loc,
						fmt.Sprintf("unit %q depends on unknown unit %q", slot.Meta.Name, dep), nil)
				}
				continue
			}
			g.Edges[int(depID)] = append(g.Edges[int(depID)], UnitID(from))
			g.Deps[from] = append(g.Deps[from], depID)
			g.Indeg[from]++
		}
		slices.Sort(g.Deps[from])
	}
	for i := range g.Edges {
		slices.Sort(g.Edges[i])
	}

	return g, slots
}

func ReportCycles(idx UnitIndex, slots []UnitSlot, topo *Topo) {
	if !topo.Cyclic || len(topo.Cycles) == 0 {
		return
	}
	names := make([]string, 0, len(topo.Cycles))
	for _, id := range topo.Cycles {
		names = append(names, idx.IDToName[int(id)])
	}
	summary := strings.Join(names, " -> ")

	for _, id := range topo.Cycles {
		slot := slots[int(id)]
		if !slot.Present || slot.Reporter == nil {
			continue
		}
		msg := fmt.Sprintf("unit %q participates in a dependency cycle: %s", slot.Meta.Name, summary)
		slot.Reporter.Report(diag.CfgUnitCycle, diag.SevError, slot.Meta.Loc, msg, nil)
	}
}

// ReportBrokenDeps tells every unit which of its dependencies failed.
func ReportBrokenDeps(idx UnitIndex, slots []UnitSlot) {
	for i := range slots {
		from := &slots[i]
		if !from.Present || from.Reporter == nil {
			continue
		}
		for _, dep := range from.Meta.Depends {
			id, ok := idx.NameToID[dep]
			if !ok || !slots[int(id)].Broken {
				continue
			}
			depSlot := slots[int(id)]
			var notes []diag.Note
			if depSlot.FirstErr != nil {
				notes = append(notes, diag.Note{
					Location: depSlot.FirstErr.Primary,
					Msg:      "first error in dependency: " + depSlot.FirstErr.Message,
				})
			}
			from.Reporter.Report(diag.CfgDependencyFailed, diag.SevError, from.Meta.Loc,
				fmt.Sprintf("dependency unit %q has errors", dep), notes)
		}
	}
}

// UnitHashes folds every unit's content hash with the unit hashes of its
// dependencies, in build order. Units left in a cycle keep a zero hash.
func UnitHashes(g Graph, slots []UnitSlot, topo *Topo) []project.Digest {
	out := make([]project.Digest, len(slots))
	for _, id := range topo.Order {
		deps := make([]project.Digest, 0, len(g.Deps[int(id)]))
		for _, d := range g.Deps[int(id)] {
			deps = append(deps, out[int(d)])
		}
		out[int(id)] = project.Combine(slots[int(id)].Meta.ContentHash, deps...)
	}
	return out
}
