// Package grid holds the responsive grid constants and the breakpoint
// resolution derived from them.
package grid

import "github.com/haasonsaas/boxgrid/pkg/models"

const (
	// MinCellWidth is the narrowest a single column may render, in pixels.
	MinCellWidth = 200
	// Margin is the horizontal and vertical gap between cells, in pixels.
	Margin = 10
	// RowHeight is the default height of one grid row, in pixels.
	RowHeight = 48
)

var columns = map[models.Breakpoint]int{
	models.BreakpointXL:  6,
	models.BreakpointLG:  5,
	models.BreakpointMD:  4,
	models.BreakpointSM:  3,
	models.BreakpointXS:  2,
	models.BreakpointXXS: 1,
}

// Columns returns the column count for bp, or 0 for an unknown breakpoint.
func Columns(bp models.Breakpoint) int {
	return columns[bp]
}

// Threshold returns the minimum viewport width, in pixels, at which bp applies.
// The smallest breakpoint is always eligible.
func Threshold(bp models.Breakpoint) int {
	cols := Columns(bp)
	if cols <= 1 {
		return 0
	}
	return cols*MinCellWidth + (cols+2)*Margin
}

// Thresholds returns every breakpoint's threshold keyed by name.
func Thresholds() map[models.Breakpoint]int {
	out := make(map[models.Breakpoint]int, len(models.Breakpoints))
	for _, bp := range models.Breakpoints {
		out[bp] = Threshold(bp)
	}
	return out
}

// ColumnTable returns every breakpoint's column count keyed by name.
func ColumnTable() map[models.Breakpoint]int {
	out := make(map[models.Breakpoint]int, len(columns))
	for bp, cols := range columns {
		out[bp] = cols
	}
	return out
}

// Resolve selects the largest breakpoint whose threshold is at most width.
func Resolve(width int) models.Breakpoint {
	for i := len(models.Breakpoints) - 1; i >= 0; i-- {
		bp := models.Breakpoints[i]
		if width >= Threshold(bp) {
			return bp
		}
	}
	return models.SmallestBreakpoint
}

// Clamp fits an item into a breakpoint with cols columns. Width and height are
// at least one cell, coordinates are non-negative and the item never extends
// past the last column.
func Clamp(item models.LayoutItem, cols int) models.LayoutItem {
	if cols < 1 {
		cols = 1
	}
	if item.W < 1 {
		item.W = 1
	}
	if item.W > cols {
		item.W = cols
	}
	if item.H < 1 {
		item.H = 1
	}
	if item.X < 0 {
		item.X = 0
	}
	if item.Y < 0 {
		item.Y = 0
	}
	if item.X+item.W > cols {
		item.X = cols - item.W
	}
	return item
}

// Props is the renderer-facing description of the responsive grid.
type Props struct {
	Layouts     models.LayoutTable        `json:"layouts"`
	Breakpoint  models.Breakpoint         `json:"breakpoint"`
	Breakpoints map[models.Breakpoint]int `json:"breakpoints"`
	Cols        map[models.Breakpoint]int `json:"cols"`
	Margin      [2]int                    `json:"margin"`
	RowHeight   int                       `json:"rowHeight"`
	MinWidth    int                       `json:"minWidth"`
	Draggable   bool                      `json:"isDraggable"`
	Resizable   bool                      `json:"isResizable"`
}

// NewProps builds grid props for the given layouts and mode. A rowHeight of
// zero uses RowHeight.
func NewProps(layouts models.LayoutTable, current models.Breakpoint, editing bool, rowHeight int) Props {
	if rowHeight <= 0 {
		rowHeight = RowHeight
	}
	return Props{
		Layouts:     layouts.Clone(),
		Breakpoint:  current,
		Breakpoints: Thresholds(),
		Cols:        ColumnTable(),
		Margin:      [2]int{Margin, Margin},
		RowHeight:   rowHeight,
		MinWidth:    MinCellWidth,
		Draggable:   editing,
		Resizable:   editing,
	}
}
