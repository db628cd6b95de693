// Package ordering computes the page emission order for stack-cut imposition:
// the sequence in which source pages must be placed into grid cells so that a
// printed stack, cut into rows x columns pieces and restacked in reading order,
// collates into a single correctly ordered document.
package ordering

// Func is the ordering seam. Given the number of source pages and the grid
// shape it returns the emission sequence, one element per grid cell, sheet by
// sheet in row-major cell order. Elements are 1-based page numbers; 0 marks an
// empty cell. Implementations must be pure and must not fail.
type Func func(entries, rows, columns int) []int

// Stack is the default ordering. Every cut piece becomes a stack of one page
// per sheet, and pieces are restacked in reading order of their grid position,
// so cell k of sheet s must show page k*sheets + s + 1.
func Stack(entries, rows, columns int) []int {
	cells := rows * columns
	if entries <= 0 || cells <= 0 {
		return nil
	}
	sheets := (entries + cells - 1) / cells

	seq := make([]int, 0, sheets*cells)
	for s := 0; s < sheets; s++ {
		for k := 0; k < cells; k++ {
			page := k*sheets + s + 1
			if page > entries {
				page = 0
			}
			seq = append(seq, page)
		}
	}
	return seq
}
