package ticket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/kimserver/internal/randutil"
	"github.com/lox/kimserver/internal/ticketid"
)

func TestGenerateStructure(t *testing.T) {
	rng := randutil.New(42)

	for i := 0; i < 50; i++ {
		tk := Generate(rng)

		require.NoError(t, ticketid.Validate(tk.ID, ticketid.KindTicket))
		require.Len(t, tk.AllNumbers, NumbersPerTicket)
		require.Len(t, tk.Columns, NumColumns)
		require.Len(t, tk.Rows, NumRows)

		// All numbers distinct and in range
		seen := make(map[int]bool)
		for _, n := range tk.AllNumbers {
			assert.GreaterOrEqual(t, n, 1)
			assert.LessOrEqual(t, n, MaxNumber)
			assert.False(t, seen[n], "duplicate number %d", n)
			seen[n] = true
		}

		// Union of columns equals AllNumbers
		fromColumns := make(map[int]bool)
		for _, col := range tk.Columns {
			require.Len(t, col, NumRows)
			for _, n := range col {
				fromColumns[n] = true
			}
		}
		assert.Equal(t, seen, fromColumns)

		// Union of rows equals AllNumbers
		fromRows := make(map[int]bool)
		for _, row := range tk.Rows {
			require.Len(t, row, NumColumns)
			for _, n := range row {
				fromRows[n] = true
			}
		}
		assert.Equal(t, seen, fromRows)
	}
}

func TestGenerateColumnsSorted(t *testing.T) {
	rng := randutil.New(7)
	tk := Generate(rng)

	for c, col := range tk.Columns {
		for i := 1; i < len(col); i++ {
			assert.Less(t, col[i-1], col[i], "column %d not sorted ascending", c)
		}
	}
}

func TestGenerateRowsMatchColumnLayout(t *testing.T) {
	// Rows must be built positionally from the columns, never re-sorted:
	// row r, column c holds exactly Columns[c][r].
	rng := randutil.New(99)
	tk := Generate(rng)

	for r, row := range tk.Rows {
		for c, n := range row {
			assert.Equal(t, tk.Columns[c][r], n, "row %d col %d", r, c)
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a := Generate(randutil.New(1234))
	b := Generate(randutil.New(1234))

	assert.Equal(t, a.AllNumbers, b.AllNumbers)
	assert.Equal(t, a.Rows, b.Rows)
	assert.NotEqual(t, a.ID, b.ID, "IDs must be unique even for identical layouts")
}

func TestClaimProgress(t *testing.T) {
	tk := Generate(randutil.New(5))

	assert.Equal(t, 0, tk.ClaimedRowCount())
	assert.False(t, tk.RowClaimed(2))

	tk.MarkRowClaimed(2)
	tk.MarkRowClaimed(0)
	assert.True(t, tk.RowClaimed(2))
	assert.Equal(t, 2, tk.ClaimedRowCount())
	assert.Equal(t, []int{0, 2}, tk.ClaimedRows())

	assert.False(t, tk.WinPaid("1_row"))
	tk.MarkWinPaid("1_row")
	assert.True(t, tk.WinPaid("1_row"))
	assert.Equal(t, []string{"1_row"}, tk.PaidWins())

	tk.ResetClaims()
	assert.Equal(t, 0, tk.ClaimedRowCount())
	assert.False(t, tk.WinPaid("1_row"))
	assert.Empty(t, tk.ClaimedRows())
}

func TestRowOutOfRange(t *testing.T) {
	tk := Generate(randutil.New(5))

	_, ok := tk.Row(-1)
	assert.False(t, ok)
	_, ok = tk.Row(NumRows)
	assert.False(t, ok)

	row, ok := tk.Row(0)
	assert.True(t, ok)
	assert.Len(t, row, NumColumns)
}
