package server

import (
	"encoding/json"
	"time"

	"github.com/lox/kimserver/internal/game"
	"github.com/lox/kimserver/internal/ticket"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type LoginData struct {
	Name string `json:"name"`
}

type GetPlayerDataRequest struct {
	PlayerID string `json:"playerId"`
}

type AdminLoginData struct {
	Password string `json:"password"`
}

type AdminStartData struct {
	MaxWinners   int    `json:"maxWinners"`
	WinCondition string `json:"winCondition"`
}

type AdminCallNumberData struct {
	Number int `json:"number"`
}

type ClaimRowData struct {
	TicketID string `json:"ticketId"`
	RowIndex int    `json:"rowIndex"`
}

// Server → Client Messages

type LoginSuccessData struct {
	PlayerID string `json:"id"`
	Name     string `json:"name"`
}

type LoginFailedData struct {
	Reason string `json:"reason"`
}

// TicketState is the wire form of a player's ticket, claim progress
// included so a reconnecting client can restore its card.
type TicketState struct {
	ID          string   `json:"id"`
	Rows        [][]int  `json:"rows"`
	Columns     [][]int  `json:"cols"`
	AllNumbers  []int    `json:"allNumbers"`
	ClaimedRows []int    `json:"claimedRows"`
	PaidWins    []string `json:"winClaims"`
}

type PlayerDataResponse struct {
	PlayerID string      `json:"id"`
	Name     string      `json:"name"`
	Ticket   TicketState `json:"ticket"`
}

type RowClaimApprovedData struct {
	RowIndex    int    `json:"rowIndex"`
	Description string `json:"description"`
}

type ClaimDeniedData struct {
	RowIndex int    `json:"rowIndex"`
	Reason   string `json:"reason"`
}

type RoundStartedData struct {
	MaxWinners   int    `json:"maxWinners"`
	WinCondition string `json:"winCondition"`
}

type RoundStoppedData struct {
	Reason string `json:"reason"`
}

type PauseToggledData struct {
	Paused bool `json:"paused"`
}

type NumberCalledData struct {
	Number int `json:"number"`
}

type ErrorRedirectData struct {
	Message string `json:"message"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Helper functions to convert between internal types and message types

func TicketStateFromGame(t *ticket.Ticket) TicketState {
	return TicketState{
		ID:          t.ID,
		Rows:        t.Rows,
		Columns:     t.Columns,
		AllNumbers:  t.AllNumbers,
		ClaimedRows: t.ClaimedRows(),
		PaidWins:    t.PaidWins(),
	}
}

func PlayerDataFromGame(p *game.Player) PlayerDataResponse {
	return PlayerDataResponse{
		PlayerID: p.ID,
		Name:     p.Name,
		Ticket:   TicketStateFromGame(p.Ticket),
	}
}
