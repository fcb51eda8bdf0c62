// Package grid converts pointer coordinates into 1-based grid cells.
// Everything here is pure; the widget controller owns the state.
package grid

import (
	"fmt"
	"math"

	"apex-dashboard/internal/common/models"
)

const (
	MinWidth  = 2
	MinHeight = 1
)

// Point is a pointer position in client pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Bounds is the grid's bounding box as measured when an interaction
// starts. RowHeight is the row pitch, row height plus gap.
type Bounds struct {
	Left      float64 `json:"left"`
	Top       float64 `json:"top"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Columns   int     `json:"columns"`
	RowHeight float64 `json:"row_height"`
}

// NewBounds builds a snapshot from a measured rectangle and the layout
// constants.
func NewBounds(left, top, width, height float64, columns, rowHeight, gap int) Bounds {
	return Bounds{
		Left:      left,
		Top:       top,
		Width:     width,
		Height:    height,
		Columns:   columns,
		RowHeight: float64(rowHeight + gap),
	}
}

func (b Bounds) ColumnWidth() float64 {
	if b.Columns <= 0 {
		return 0
	}
	return b.Width / float64(b.Columns)
}

func (b Bounds) Valid() bool {
	return b.Columns > 0 && b.Width > 0 && b.RowHeight > 0
}

// offset returns the pointer position relative to the grid origin.
func (b Bounds) offset(p Point) (float64, float64) {
	return p.X - b.Left, p.Y - b.Top
}

// round matches browser rounding: halves go up, also for negatives.
func round(v float64) int {
	return int(math.Floor(v + 0.5))
}

// PixelToCell maps an offset to a cell index, never below 1.
func PixelToCell(offsetPx, cellPx float64) int {
	if cellPx <= 0 {
		return 1
	}
	return max(1, round(offsetPx/cellPx))
}

// ClampColumnStart keeps a start column inside [1, columns].
func ClampColumnStart(cell, columns int) int {
	return min(columns, max(1, cell))
}

func ClampSpan(raw, minSpan int) int {
	return max(minSpan, raw)
}

// DragTarget returns the new origin for a widget dragged to p. X is
// clamped to the column count; Y only has a floor.
func DragTarget(b Bounds, p Point) (x, y int) {
	offX, offY := b.offset(p)
	x = ClampColumnStart(PixelToCell(offX, b.ColumnWidth()), b.Columns)
	y = PixelToCell(offY, b.RowHeight)
	return x, y
}

// ResizeTarget returns the new span for a widget whose resize started at
// start. The end column may sit one past the last column so the widget
// can reach the right edge.
func ResizeTarget(b Bounds, p Point, start models.Position) (w, h int) {
	offX, offY := b.offset(p)

	endColumn := 1
	if cw := b.ColumnWidth(); cw > 0 {
		endColumn = min(b.Columns+1, max(1, round(offX/cw)+1))
	}
	endRow := 1
	if b.RowHeight > 0 {
		endRow = max(1, round(offY/b.RowHeight)+1)
	}

	w = ClampSpan(endColumn-start.X, MinWidth)
	h = ClampSpan(endRow-start.Y, MinHeight)
	return w, h
}

// Placement is the CSS grid placement of a widget.
type Placement struct {
	Column string `json:"grid_column"`
	Row    string `json:"grid_row"`
}

func GridArea(p models.Position) Placement {
	return Placement{
		Column: fmt.Sprintf("%d / span %d", p.X, p.W),
		Row:    fmt.Sprintf("%d / span %d", p.Y, p.H),
	}
}
