package ui

// columns.go computes grid column widths for a block.
// Use ColumnSpec and CalculateWidths() instead of per-view width math.

import (
	"github.com/thesavant42/tableforms/internal/layout"
)

// =============================================================================
// Column Specification Types
// =============================================================================

// ColumnSpec defines a grid column with flexible or fixed width.
type ColumnSpec struct {
	Title      string
	MinWidth   int // Minimum width (0 = no minimum)
	MaxWidth   int // Maximum width (0 = no maximum)
	FixedWidth int // If > 0, use this exact width (ignores FlexRatio)
	FlexRatio  int // Relative ratio for flexible columns (0 = fixed-only)
}

// =============================================================================
// Column Calculation
// =============================================================================

// CalculateWidths computes column widths from specs.
// Flexible columns split remaining space by ratio after fixed columns are
// allocated; minimums and maximums are applied last.
func CalculateWidths(specs []ColumnSpec, totalWidth int) []int {
	fixedTotal := 0
	flexTotal := 0
	for _, s := range specs {
		if s.FixedWidth > 0 {
			fixedTotal += s.FixedWidth
		} else {
			flexTotal += s.FlexRatio
		}
	}

	remaining := totalWidth - fixedTotal
	if remaining < 0 {
		remaining = 0
	}

	widths := make([]int, len(specs))
	for i, s := range specs {
		var width int
		if s.FixedWidth > 0 {
			width = s.FixedWidth
		} else if flexTotal > 0 {
			width = remaining * s.FlexRatio / flexTotal
		}
		widths[i] = ClampWidth(width, s.MinWidth, s.MaxWidth)
	}
	return widths
}

// BlockColumns returns the specs of a block's list columns. Each column
// flexes by its declared width and never shrinks below half of it.
func BlockColumns(bd layout.BlockDef) []ColumnSpec {
	fields := bd.ListFields()
	specs := make([]ColumnSpec, 0, len(fields))
	for _, f := range fields {
		specs = append(specs, ColumnSpec{
			Title:     f.Label,
			MinWidth:  ClampWidth(f.Width/2, 3, 0),
			MaxWidth:  f.Width * 2,
			FlexRatio: f.Width,
		})
	}
	return specs
}

// GridWidths fits a block's columns into the inner width of the layout
func GridWidths(bd layout.BlockDef, l Layout) []int {
	specs := BlockColumns(bd)
	// two columns for the row marker, one gap after every cell
	avail := l.InnerWidth - 2 - CellGap*len(specs)
	return CalculateWidths(specs, avail)
}

// =============================================================================
// Width Utilities
// =============================================================================

// DistributeWidth distributes available width across columns by ratio.
func DistributeWidth(totalWidth int, ratios []int) []int {
	if len(ratios) == 0 {
		return nil
	}

	totalRatio := 0
	for _, r := range ratios {
		totalRatio += r
	}

	widths := make([]int, len(ratios))
	if totalRatio == 0 {
		// Equal distribution
		for i := range widths {
			widths[i] = totalWidth / len(ratios)
		}
		return widths
	}

	for i, r := range ratios {
		widths[i] = totalWidth * r / totalRatio
	}
	return widths
}

// ClampWidth ensures width is within min/max bounds.
func ClampWidth(width, minWidth, maxWidth int) int {
	if minWidth > 0 && width < minWidth {
		return minWidth
	}
	if maxWidth > 0 && width > maxWidth {
		return maxWidth
	}
	return width
}
