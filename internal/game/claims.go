package game

import (
	"errors"
	"fmt"
	"time"
)

// Claim guard rejections. These are denial reasons reported back to the
// requesting player, never fatal conditions.
var (
	ErrClaimsClosed      = errors.New("round is not accepting claims")
	ErrQuotaReached      = errors.New("winner quota reached")
	ErrTicketNotOwned    = errors.New("ticket not owned by player")
	ErrRowOutOfRange     = errors.New("row index out of range")
	ErrRowAlreadyClaimed = errors.New("row already claimed")
	ErrRowIncomplete     = errors.New("row is not complete")
)

// RowClaim is a player's assertion that one row of their ticket is fully
// called.
type RowClaim struct {
	TicketID string
	RowIndex int
}

// ClaimResult reports an approved row claim. Winner is non-nil when the
// claim also satisfied the round's win condition and a winner entry was
// recorded.
type ClaimResult struct {
	RowIndex    int
	Description string
	Winner      *Winner
}

// ClaimRow validates a row claim server-authoritatively and applies its
// state changes. Eligibility is computed exclusively from the session's
// called numbers; nothing the client marked locally is consulted.
//
// Guard order matches the reply a player should see first: round accepting
// claims, quota open, ticket owned, row in range, row not already claimed,
// row complete. A rejected claim mutates nothing.
func (s *Session) ClaimRow(p *Player, claim RowClaim, now time.Time) (*ClaimResult, error) {
	if s.status != StatusRunning && s.status != StatusPaused {
		return nil, ErrClaimsClosed
	}
	if s.QuotaReached() {
		return nil, ErrQuotaReached
	}

	t := p.Ticket
	if t == nil || t.ID != claim.TicketID {
		return nil, ErrTicketNotOwned
	}

	row, ok := t.Row(claim.RowIndex)
	if !ok {
		return nil, ErrRowOutOfRange
	}
	if t.RowClaimed(claim.RowIndex) {
		return nil, ErrRowAlreadyClaimed
	}

	for _, n := range row {
		if !s.called[n] {
			return nil, ErrRowIncomplete
		}
	}

	t.MarkRowClaimed(claim.RowIndex)

	result := &ClaimResult{
		RowIndex:    claim.RowIndex,
		Description: fmt.Sprintf("Row %d", claim.RowIndex+1),
	}

	if winner := s.checkMainWin(p, now); winner != nil {
		result.Winner = winner
	}

	return result, nil
}

// checkMainWin runs the aggregate win check after a new row claim: if the
// ticket's claimed-row count meets the round's win condition and that
// condition has not already been paid out on this ticket, a winner entry is
// recorded and returned.
func (s *Session) checkMainWin(p *Player, now time.Time) *Winner {
	t := p.Ticket
	condition := s.settings.WinCondition

	if t.ClaimedRowCount() < condition.RowsRequired() || t.WinPaid(string(condition)) {
		return nil
	}

	t.MarkWinPaid(string(condition))

	winner := Winner{
		PlayerID:    p.ID,
		Name:        p.Name,
		TicketID:    t.ID,
		Description: condition.Describe(),
		Rows:        t.ClaimedRows(),
		Time:        winnerTime(now),
	}
	s.winners = append(s.winners, winner)
	return &winner
}
