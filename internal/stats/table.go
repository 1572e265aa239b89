package stats

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// formatTable lays rows out in space-separated columns sized to the widest
// cell, measured in terminal cells.
func formatTable(headers []string, rows [][]string, rightAlignCols map[int]bool) []string {
	all := make([][]string, 0, len(rows)+1)
	if len(headers) > 0 {
		all = append(all, headers)
	}
	all = append(all, rows...)

	var widths []int
	for _, row := range all {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	if len(widths) == 0 {
		return nil
	}

	lines := make([]string, 0, len(all))
	for _, row := range all {
		cells := make([]string, len(widths))
		for i, width := range widths {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			if rightAlignCols[i] {
				cells[i] = runewidth.FillLeft(cell, width)
			} else {
				cells[i] = runewidth.FillRight(cell, width)
			}
		}
		lines = append(lines, strings.Join(cells, " "))
	}
	return lines
}
