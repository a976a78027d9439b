package game

import (
	"github.com/lox/kimserver/internal/ticket"
	"github.com/lox/kimserver/internal/ticketid"
)

// Player is a registered identity owning exactly one ticket. Players are
// created at login and live for the server process; there is no logout path.
type Player struct {
	ID     string
	Name   string
	Ticket *ticket.Ticket
}

// NewPlayer creates a player with a fresh ID owning the given ticket.
func NewPlayer(name string, t *ticket.Ticket) *Player {
	return &Player{
		ID:     ticketid.NewPlayerID(),
		Name:   name,
		Ticket: t,
	}
}
