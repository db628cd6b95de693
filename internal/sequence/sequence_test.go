package sequence

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jerefrer/stacked-pdf-generator/internal/ordering"
)

func TestPadAndSerialize(t *testing.T) {
	t.Run("seven rows one column", func(t *testing.T) {
		got := Serialize(Pad(ordering.Stack(14, 7, 1), 7))
		assert.Equal(t, "1,3,5,7,9,11,13,2,4,6,8,10,12,14", got)
	})

	t.Run("blanks serialize as empty-page tokens", func(t *testing.T) {
		got := Serialize(Pad(ordering.Stack(3, 2, 1), 2))
		assert.Equal(t, "1,3,2,{}", got)
	})

	t.Run("token count is always a whole number of sheets", func(t *testing.T) {
		for entries := 0; entries <= 40; entries++ {
			for _, grid := range [][2]int{{1, 1}, {2, 1}, {7, 1}, {2, 2}, {3, 4}} {
				rows, columns := grid[0], grid[1]
				got := Serialize(Pad(ordering.Stack(entries, rows, columns), rows*columns))
				tokens := 0
				if got != "" {
					tokens = len(strings.Split(got, ","))
				}
				assert.Zero(t, tokens%(rows*columns),
					"entries=%d rows=%d columns=%d produced %d tokens", entries, rows, columns, tokens)
			}
		}
	})
}

func TestPad(t *testing.T) {
	t.Run("short ordering is padded to the sheet boundary", func(t *testing.T) {
		// An orderer that stops at the last real page instead of filling the
		// sheet: 5 entries on a 2x2 grid leave 3 cells to fill.
		truncated := []int{1, 2, 3, 4, 5}
		got := Serialize(Pad(truncated, 4))
		assert.Equal(t, "1,2,3,4,5,{},{},{}", got)
	})

	t.Run("exact multiple is untouched", func(t *testing.T) {
		assert.Equal(t, []int{1, 2, 3, 4}, Pad([]int{1, 2, 3, 4}, 2))
	})

	t.Run("empty sequence needs no padding", func(t *testing.T) {
		assert.Empty(t, Pad(nil, 4))
	})

	t.Run("padding count is the sheet remainder", func(t *testing.T) {
		for k := 0; k <= 20; k++ {
			seq := make([]int, k)
			for i := range seq {
				seq[i] = i + 1
			}
			for cells := 1; cells <= 6; cells++ {
				padded := Pad(append([]int(nil), seq...), cells)
				want := 0
				if k%cells != 0 {
					want = cells - k%cells
				}
				assert.Len(t, padded, k+want, "k=%d cells=%d", k, cells)
			}
		}
	})
}

func TestSerialize(t *testing.T) {
	assert.Equal(t, "", Serialize(nil))
	assert.Equal(t, "{}", Serialize([]int{0}))
	assert.Equal(t, "10,{},2", Serialize([]int{10, 0, 2}))
}
