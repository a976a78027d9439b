// Package ticket implements KIM ticket generation and per-ticket claim
// progress. A ticket is a fixed 5x6 card of 30 distinct numbers drawn from
// 1-90; the layout is immutable for the lifetime of a round.
package ticket

import (
	rand "math/rand/v2"
	"slices"

	"github.com/lox/kimserver/internal/ticketid"
)

const (
	// NumColumns is the number of columns on a card.
	NumColumns = 5
	// NumRows is the number of rows on a card.
	NumRows = 6
	// NumbersPerTicket is the count of distinct numbers on a card.
	NumbersPerTicket = NumColumns * NumRows
	// MaxNumber is the largest callable number.
	MaxNumber = 90
)

// Ticket is one player's card. Columns hold the visual layout (each column
// sorted ascending); Rows are built positionally from the columns and are
// NOT re-sorted, so a row's contents match exactly what the claim button on
// the rendered card refers to.
type Ticket struct {
	ID         string
	AllNumbers []int     // draw order, before column sorting
	Columns    [][]int   // NumColumns groups of NumRows numbers
	Rows       [][]int   // NumRows tuples of NumColumns numbers

	claimedRows map[int]bool    // row index -> claimed
	paidWins    map[string]bool // win condition -> already paid out
}

// Generate produces a structurally valid ticket from the supplied RNG.
func Generate(rng *rand.Rand) *Ticket {
	// Uniform 30-subset of [1,90] in draw order.
	perm := rng.Perm(MaxNumber)
	numbers := make([]int, NumbersPerTicket)
	for i := range numbers {
		numbers[i] = perm[i] + 1
	}

	columns := make([][]int, NumColumns)
	for c := range columns {
		col := make([]int, NumRows)
		copy(col, numbers[c*NumRows:(c+1)*NumRows])
		slices.Sort(col)
		columns[c] = col
	}

	rows := make([][]int, NumRows)
	for r := range rows {
		row := make([]int, NumColumns)
		for c := range row {
			row[c] = columns[c][r]
		}
		rows[r] = row
	}

	return &Ticket{
		ID:          ticketid.NewTicketID(),
		AllNumbers:  numbers,
		Columns:     columns,
		Rows:        rows,
		claimedRows: make(map[int]bool),
		paidWins:    make(map[string]bool),
	}
}

// Row returns the numbers of the given row, or false if the index is out of
// range.
func (t *Ticket) Row(index int) ([]int, bool) {
	if index < 0 || index >= len(t.Rows) {
		return nil, false
	}
	return t.Rows[index], true
}

// RowClaimed reports whether the given row has already been claimed.
func (t *Ticket) RowClaimed(index int) bool {
	return t.claimedRows[index]
}

// MarkRowClaimed records a row as claimed.
func (t *Ticket) MarkRowClaimed(index int) {
	t.claimedRows[index] = true
}

// ClaimedRowCount returns the number of claimed rows.
func (t *Ticket) ClaimedRowCount() int {
	return len(t.claimedRows)
}

// ClaimedRows returns the claimed row indices in ascending order.
func (t *Ticket) ClaimedRows() []int {
	indices := make([]int, 0, len(t.claimedRows))
	for i := range t.claimedRows {
		indices = append(indices, i)
	}
	slices.Sort(indices)
	return indices
}

// WinPaid reports whether a win condition was already paid out on this
// ticket.
func (t *Ticket) WinPaid(condition string) bool {
	return t.paidWins[condition]
}

// MarkWinPaid records a win condition as paid out.
func (t *Ticket) MarkWinPaid(condition string) {
	t.paidWins[condition] = true
}

// PaidWins returns the win conditions already paid out, sorted for stable
// serialization.
func (t *Ticket) PaidWins() []string {
	wins := make([]string, 0, len(t.paidWins))
	for w := range t.paidWins {
		wins = append(wins, w)
	}
	slices.Sort(wins)
	return wins
}

// ResetClaims clears all claim progress. Called at round start; the number
// layout is untouched.
func (t *Ticket) ResetClaims() {
	clear(t.claimedRows)
	clear(t.paidWins)
}
