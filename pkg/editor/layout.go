package editor

import (
	"sort"

	"github.com/jwebster45206/story-graph/pkg/story"
)

const (
	ColumnWidth = 300.0
	RowHeight   = 150.0
)

type cell struct{ col, row int }

// Layout assigns canvas positions in layers: breadth-first from the starting
// step, one column per hop, with unreachable steps in a trailing column.
// Unless force is set, existing positions are kept and new nodes take the
// first free row of their column. It returns the number of nodes placed.
func (e *Editor) Layout(force bool) int {
	sc := e.Scene()
	if sc.NodePositions == nil || force {
		sc.NodePositions = make(map[string]story.Position, len(sc.Steps))
	}

	columns := layerColumns(sc)

	occupied := make(map[cell]bool)
	for _, pos := range sc.NodePositions {
		occupied[cell{col: int(pos.X / ColumnWidth), row: int(pos.Y / RowHeight)}] = true
	}

	placed := 0
	for _, id := range layerOrder(sc, columns) {
		if _, ok := sc.NodePositions[id]; ok {
			continue
		}
		c := cell{col: columns[id]}
		for occupied[c] {
			c.row++
		}
		occupied[c] = true
		sc.NodePositions[id] = story.Position{X: float64(c.col) * ColumnWidth, Y: float64(c.row) * RowHeight}
		placed++
	}
	return placed
}

// layerColumns maps each step to its breadth-first depth from the starting
// step. Steps not reachable from it share the column after the deepest one.
func layerColumns(sc *story.Scene) map[string]int {
	columns := make(map[string]int, len(sc.Steps))
	deepest := -1

	if sc.HasStep(sc.StartingStep) {
		columns[sc.StartingStep] = 0
		deepest = 0
		queue := []string{sc.StartingStep}
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			for _, ref := range story.References(sc.Steps[id]) {
				if _, seen := columns[ref.Target]; seen || !sc.HasStep(ref.Target) {
					continue
				}
				columns[ref.Target] = columns[id] + 1
				if columns[ref.Target] > deepest {
					deepest = columns[ref.Target]
				}
				queue = append(queue, ref.Target)
			}
		}
	}

	for _, id := range sc.StepIDs() {
		if _, ok := columns[id]; !ok {
			columns[id] = deepest + 1
		}
	}
	return columns
}

// layerOrder sorts step ids by column, then id.
func layerOrder(sc *story.Scene, columns map[string]int) []string {
	ids := sc.StepIDs()
	sort.SliceStable(ids, func(i, j int) bool {
		return columns[ids[i]] < columns[ids[j]]
	})
	return ids
}
