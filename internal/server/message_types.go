package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants
// These are used for client-server communication protocol
const (
	// Client to server messages
	MessageTypeLogin            MessageType = "login"
	MessageTypeGetPlayerData    MessageType = "get_player_data"
	MessageTypeGetGameState     MessageType = "get_game_state"
	MessageTypeAdminLogin       MessageType = "admin_login"
	MessageTypeAdminStart       MessageType = "admin_start"
	MessageTypeAdminStop        MessageType = "admin_stop"
	MessageTypeAdminTogglePause MessageType = "admin_toggle_pause"
	MessageTypeAdminCallNumber  MessageType = "admin_call_number"
	MessageTypeClaimRow         MessageType = "claim_row"

	// Server to client messages
	MessageTypeLoginSuccess       MessageType = "login_success"
	MessageTypeLoginFailed        MessageType = "login_failed"
	MessageTypePlayerData         MessageType = "player_data"
	MessageTypeGameState          MessageType = "game_state"
	MessageTypeNumberCalled       MessageType = "number_called"
	MessageTypeRoundStarted       MessageType = "round_started"
	MessageTypeRoundStopped       MessageType = "round_stopped"
	MessageTypePauseToggled       MessageType = "pause_toggled"
	MessageTypeRowClaimApproved   MessageType = "row_claim_approved"
	MessageTypeClaimDenied        MessageType = "claim_denied"
	MessageTypeWinnerAnnouncement MessageType = "winner_announcement"
	MessageTypeAdminAuthorized    MessageType = "admin_authorized"
	MessageTypeAdminDenied        MessageType = "admin_denied"
	MessageTypeErrorRedirect      MessageType = "error_redirect"
	MessageTypeError              MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
