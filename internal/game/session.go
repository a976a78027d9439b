// Package game holds the authoritative round state for a KIM session: the
// lifecycle state machine, the called-number record, and the claim
// validation rules. The package is not goroutine-safe on its own; every
// mutating call must go through the single coordinator (internal/server's
// game service), which serializes access.
package game

import (
	"errors"
	"fmt"
	"time"

	"github.com/lox/kimserver/internal/ticket"
)

var (
	ErrRoundNotRunning  = errors.New("round is not running")
	ErrNumberOutOfRange = errors.New("number must be between 1 and 90")
	ErrNumberCalled     = errors.New("number already called")
)

// Status is the round lifecycle state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusPaused  Status = "paused"
	StatusStopped Status = "stopped"
)

// WinCondition names the target a ticket must reach to win the round.
type WinCondition string

const (
	WinOneRow    WinCondition = "1_row"
	WinTwoRows   WinCondition = "2_rows"
	WinThreeRows WinCondition = "3_rows"
	WinFourRows  WinCondition = "4_rows"
	WinFiveRows  WinCondition = "5_rows"
	WinFullHouse WinCondition = "full_house"
)

var winConditionRows = map[WinCondition]int{
	WinOneRow:    1,
	WinTwoRows:   2,
	WinThreeRows: 3,
	WinFourRows:  4,
	WinFiveRows:  5,
	WinFullHouse: ticket.NumRows,
}

// Valid reports whether the condition is one of the known values.
func (w WinCondition) Valid() bool {
	_, ok := winConditionRows[w]
	return ok
}

// RowsRequired returns the claimed-row count that satisfies the condition.
func (w WinCondition) RowsRequired() int {
	if n, ok := winConditionRows[w]; ok {
		return n
	}
	return 1
}

// Describe returns the human-readable form used in winner records, e.g.
// "2 rows" or "full house".
func (w WinCondition) Describe() string {
	switch w {
	case WinOneRow:
		return "1 row"
	case WinFullHouse:
		return "full house"
	default:
		return fmt.Sprintf("%d rows", w.RowsRequired())
	}
}

// Settings are the admin-supplied round parameters.
type Settings struct {
	MaxWinners   int          `json:"maxWinners"`
	WinCondition WinCondition `json:"winCondition"`
}

const (
	DefaultMaxWinners   = 10
	DefaultWinCondition = WinOneRow
)

// withDefaults fills unset fields, matching the defaults the admin page
// relied on.
func (s Settings) withDefaults() Settings {
	if s.MaxWinners <= 0 {
		s.MaxWinners = DefaultMaxWinners
	}
	if !s.WinCondition.Valid() {
		s.WinCondition = DefaultWinCondition
	}
	return s
}

// Winner is one entry in the round's append-only winner list.
type Winner struct {
	PlayerID    string `json:"playerId"`
	Name        string `json:"name"`
	TicketID    string `json:"ticketId"`
	Description string `json:"description"`
	Rows        []int  `json:"rows"`
	Time        string `json:"time"`
}

// Session is the single authoritative record of a round. All mutation
// happens through its methods; callers never touch fields directly.
type Session struct {
	status    Status
	called    map[int]bool
	callOrder []int
	last      int // 0 means no number called yet
	settings  Settings
	winners   []Winner
}

// NewSession returns an idle session with default settings.
func NewSession() *Session {
	return &Session{
		status:   StatusIdle,
		called:   make(map[int]bool),
		settings: Settings{MaxWinners: DefaultMaxWinners, WinCondition: DefaultWinCondition},
	}
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status { return s.status }

// IsPaused reports whether the round is paused.
func (s *Session) IsPaused() bool { return s.status == StatusPaused }

// Settings returns the settings adopted at the last start.
func (s *Session) Settings() Settings { return s.settings }

// Called reports whether a number has been drawn this round.
func (s *Session) Called(n int) bool { return s.called[n] }

// CalledNumbers returns the drawn numbers in call order.
func (s *Session) CalledNumbers() []int {
	out := make([]int, len(s.callOrder))
	copy(out, s.callOrder)
	return out
}

// LastNumber returns the most recently drawn number, or false if none has
// been drawn this round.
func (s *Session) LastNumber() (int, bool) {
	if s.last == 0 {
		return 0, false
	}
	return s.last, true
}

// Winners returns a copy of the winner list in record order.
func (s *Session) Winners() []Winner {
	out := make([]Winner, len(s.winners))
	copy(out, s.winners)
	return out
}

// WinnerCount returns the number of recorded winners.
func (s *Session) WinnerCount() int { return len(s.winners) }

// QuotaReached reports whether the winner quota is full.
func (s *Session) QuotaReached() bool {
	return len(s.winners) >= s.settings.MaxWinners
}

// Start begins a new round from idle or stopped. It resets the called
// numbers and winner list and adopts the supplied settings (defaults
// applied). Starting while running or paused is a no-op and returns false.
// Clearing per-ticket claim progress is the caller's job, since the session
// does not own tickets.
func (s *Session) Start(settings Settings) bool {
	if s.status == StatusRunning || s.status == StatusPaused {
		return false
	}

	s.status = StatusRunning
	s.called = make(map[int]bool)
	s.callOrder = nil
	s.last = 0
	s.winners = nil
	s.settings = settings.withDefaults()
	return true
}

// Stop ends the round. Stopping from idle or stopped is a no-op and returns
// false.
func (s *Session) Stop() bool {
	if s.status == StatusIdle || s.status == StatusStopped {
		return false
	}
	s.status = StatusStopped
	return true
}

// TogglePause flips between running and paused. The returned paused value is
// only meaningful when ok is true; toggling from idle or stopped is a no-op.
func (s *Session) TogglePause() (paused, ok bool) {
	switch s.status {
	case StatusRunning:
		s.status = StatusPaused
		return true, true
	case StatusPaused:
		s.status = StatusRunning
		return false, true
	default:
		return false, false
	}
}

// CallNumber draws a number. Only legal while the round is exactly running;
// re-calling an already drawn number returns ErrNumberCalled so the caller
// can treat it as a silent no-op without broadcasting.
func (s *Session) CallNumber(n int) error {
	if s.status != StatusRunning {
		return ErrRoundNotRunning
	}
	if n < 1 || n > ticket.MaxNumber {
		return ErrNumberOutOfRange
	}
	if s.called[n] {
		return ErrNumberCalled
	}

	s.called[n] = true
	s.callOrder = append(s.callOrder, n)
	s.last = n
	return nil
}

// Snapshot is the serializable copy of session state sent to clients after
// every change. Set-typed fields become ordered lists.
type Snapshot struct {
	Status        Status       `json:"status"`
	CalledNumbers []int        `json:"calledNumbers"`
	LastNumber    *int         `json:"lastNumber"`
	Winners       []Winner     `json:"winners"`
	MaxWinners    int          `json:"maxWinners"`
	WinCondition  WinCondition `json:"winCondition"`
	IsPaused      bool         `json:"isPaused"`
}

// Snapshot builds a safe snapshot of the current state. The copy is complete
// and internally consistent; callers may hand it out without holding any
// lock.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Status:        s.status,
		CalledNumbers: s.CalledNumbers(),
		Winners:       s.Winners(),
		MaxWinners:    s.settings.MaxWinners,
		WinCondition:  s.settings.WinCondition,
		IsPaused:      s.status == StatusPaused,
	}
	if last, ok := s.LastNumber(); ok {
		snap.LastNumber = &last
	}
	return snap
}

// winnerTime formats the wall-clock time recorded on winner entries.
func winnerTime(ts time.Time) string {
	return ts.Format("15:04:05")
}
