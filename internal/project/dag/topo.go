package dag

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

type Topo struct {
	Order   []UnitID   // build order, declared units only
	Batches [][]UnitID // waves of units that can be lowered together
	Cyclic  bool
	Cycles  []UnitID // units left inside a cycle
}

func toID(i int) UnitID {
	id, err := safecast.Conv[UnitID](i)
	if err != nil {
		panic(fmt.Errorf("unit id overflow: %w", err))
	}
	return id
}

func ToposortKahn(g Graph) *Topo {
	nodeCount := len(g.Edges)
	indeg := make([]int, len(g.Indeg))
	copy(indeg, g.Indeg)

	topo := &Topo{
		Order:   make([]UnitID, 0, nodeCount),
		Batches: make([][]UnitID, 0),
	}

	active := 0
	current := make([]UnitID, 0, nodeCount)
	for i := range nodeCount {
		if !g.Present[i] {
			continue
		}
		active++
		if indeg[i] == 0 {
			current = append(current, toID(i))
		}
	}

	visited := 0
	for len(current) > 0 {
		batch := slices.Clone(current)
		topo.Batches = append(topo.Batches, batch)

		next := make([]UnitID, 0)
		for _, id := range batch {
			topo.Order = append(topo.Order, id)
			visited++
			for _, to := range g.Edges[int(id)] {
				indeg[int(to)]--
				if indeg[int(to)] == 0 {
					next = append(next, to)
				}
			}
		}
		slices.Sort(next)
		current = next
	}

	if visited != active {
		topo.Cyclic = true
		for i := range nodeCount {
			if g.Present[i] && indeg[i] > 0 {
				topo.Cycles = append(topo.Cycles, toID(i))
			}
		}
	}

	return topo
}
