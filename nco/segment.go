package nco

import (
	"math"
	"sort"
	"strings"

	"github.com/skillweave/skillweave/pdfdoc"
)

// SplitColumns partitions a page's words into the left and right columns
// of the two-column layout, split at the horizontal midpoint.
func SplitColumns(p pdfdoc.Page) (left, right []pdfdoc.Word) {
	mid := p.Width / 2
	for _, w := range p.Words {
		if w.X0 < mid {
			left = append(left, w)
		} else {
			right = append(right, w)
		}
	}
	return left, right
}

// GroupLines reconstructs text lines from positioned words. Words whose
// tops round to the same tenth of a point form one line; lines are emitted
// top to bottom with words joined left to right by single spaces.
func GroupLines(words []pdfdoc.Word) []string {
	if len(words) == 0 {
		return nil
	}

	byTop := make(map[float64][]pdfdoc.Word)
	for _, w := range words {
		key := math.Round(w.Top*10) / 10
		byTop[key] = append(byTop[key], w)
	}

	tops := make([]float64, 0, len(byTop))
	for t := range byTop {
		tops = append(tops, t)
	}
	sort.Float64s(tops)

	lines := make([]string, 0, len(tops))
	for _, t := range tops {
		ws := byTop[t]
		sort.SliceStable(ws, func(i, j int) bool { return ws[i].X0 < ws[j].X0 })
		parts := make([]string, len(ws))
		for i, w := range ws {
			parts[i] = w.Text
		}
		if line := strings.TrimSpace(strings.Join(parts, " ")); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// PageLines returns the page's text lines in reading order: the full left
// column first, then the right column.
func PageLines(p pdfdoc.Page) []string {
	left, right := SplitColumns(p)
	lines := GroupLines(left)
	return append(lines, GroupLines(right)...)
}
