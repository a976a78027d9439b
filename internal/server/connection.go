package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/kimserver/internal/game"
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn        *websocket.Conn
	send        chan *Message
	playerID    string
	role        ConnRole
	logger      *log.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.RWMutex
	closeOnce   sync.Once
	gameService *GameService
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, gameService *GameService) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:        conn,
		send:        make(chan *Message, 256),
		role:        RoleViewer,
		logger:      logger.WithPrefix("conn"),
		ctx:         ctx,
		cancel:      cancel,
		gameService: gameService,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed, this is expected during shutdown
			// Log at debug level to avoid spam during tests
			c.logger.Debug("Attempted to send message on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close() // Ignore close errors
		return ErrConnectionClosed
	}
}

// SetPlayer associates this connection with a player
func (c *Connection) SetPlayer(playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
}

// GetPlayer returns the associated player ID
func (c *Connection) GetPlayer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// SetRole sets the connection's authority level
func (c *Connection) SetRole(role ConnRole) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.role = role
}

// GetRole returns the connection's authority level
func (c *Connection) GetRole() ConnRole {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.role
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var (
	ErrConnectionClosed = websocket.ErrCloseSent
)

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }() // Ignore close errors during cleanup

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // Ignore close errors during cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "player", c.GetPlayer())

	switch msg.Type {
	case MessageTypeLogin:
		var data LoginData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse login data")
			return
		}
		c.handleLogin(data)

	case MessageTypeGetPlayerData:
		var data GetPlayerDataRequest
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse player data request")
			return
		}
		c.handleGetPlayerData(data)

	case MessageTypeGetGameState:
		c.handleGetGameState()

	case MessageTypeAdminLogin:
		var data AdminLoginData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse admin login data")
			return
		}
		c.handleAdminLogin(data)

	case MessageTypeAdminStart:
		var data AdminStartData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse start data")
			return
		}
		c.handleAdminStart(data)

	case MessageTypeAdminStop:
		c.handleAdminStop()

	case MessageTypeAdminTogglePause:
		c.handleAdminTogglePause()

	case MessageTypeAdminCallNumber:
		var data AdminCallNumberData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse call number data")
			return
		}
		c.handleAdminCallNumber(data)

	case MessageTypeClaimRow:
		var data ClaimRowData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse claim data")
			return
		}
		c.handleClaimRow(data)

	default:
		c.sendError("unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

// sendError sends an error message to the client
func (c *Connection) sendError(code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error("Failed to create error message", "error", err)
		return
	}

	_ = c.SendMessage(errorMsg) // Ignore send errors during error handling
}

// requireAdmin reports whether the connection may issue admin commands,
// sending the denial itself when it may not.
func (c *Connection) requireAdmin() bool {
	if c.gameService == nil {
		c.sendError("service_unavailable", "Game service not available")
		return false
	}
	if c.GetRole() != RoleAdmin {
		c.sendError("not_authorized", "Admin authorization required")
		return false
	}
	return true
}

// sendGameState pushes the current snapshot to this connection only.
func (c *Connection) sendGameState() {
	response, _ := NewMessage(MessageTypeGameState, c.gameService.Snapshot())
	_ = c.SendMessage(response) // Ignore send errors
}

func (c *Connection) handleLogin(data LoginData) {
	c.logger.Info("Login request", "name", data.Name)

	if c.gameService == nil {
		c.sendError("service_unavailable", "Game service not available")
		return
	}

	player, err := c.gameService.Login(data.Name)
	if err != nil {
		response, _ := NewMessage(MessageTypeLoginFailed, LoginFailedData{Reason: err.Error()})
		_ = c.SendMessage(response) // Ignore send errors
		return
	}

	c.SetPlayer(player.ID)
	c.SetRole(RolePlayer)

	response, _ := NewMessage(MessageTypeLoginSuccess, LoginSuccessData{
		PlayerID: player.ID,
		Name:     player.Name,
	})
	_ = c.SendMessage(response) // Ignore send errors
	c.sendGameState()
}

func (c *Connection) handleGetPlayerData(data GetPlayerDataRequest) {
	c.logger.Info("Player data request", "playerId", data.PlayerID)

	if c.gameService == nil {
		c.sendError("service_unavailable", "Game service not available")
		return
	}

	playerData, snap, ok := c.gameService.PlayerData(data.PlayerID)
	if !ok {
		response, _ := NewMessage(MessageTypeErrorRedirect, ErrorRedirectData{
			Message: "Player not found, please log in again",
		})
		_ = c.SendMessage(response) // Ignore send errors
		return
	}

	// Rebind the connection so broadcasts and replies target this player
	// again after a reconnect.
	c.SetPlayer(playerData.PlayerID)
	c.SetRole(RolePlayer)

	response, _ := NewMessage(MessageTypePlayerData, playerData)
	_ = c.SendMessage(response) // Ignore send errors

	stateMsg, _ := NewMessage(MessageTypeGameState, snap)
	_ = c.SendMessage(stateMsg) // Ignore send errors
}

func (c *Connection) handleGetGameState() {
	if c.gameService == nil {
		c.sendError("service_unavailable", "Game service not available")
		return
	}
	c.sendGameState()
}

func (c *Connection) handleAdminLogin(data AdminLoginData) {
	c.logger.Info("Admin login request", "player", c.GetPlayer())

	if c.gameService == nil {
		c.sendError("service_unavailable", "Game service not available")
		return
	}

	if !c.gameService.CheckAdminPassword(data.Password) {
		response, _ := NewMessage(MessageTypeAdminDenied, ErrorData{
			Code:    "bad_password",
			Message: "Incorrect admin password",
		})
		_ = c.SendMessage(response) // Ignore send errors
		return
	}

	c.SetRole(RoleAdmin)

	response, _ := NewMessage(MessageTypeAdminAuthorized, c.gameService.Snapshot())
	_ = c.SendMessage(response) // Ignore send errors
}

func (c *Connection) handleAdminStart(data AdminStartData) {
	if !c.requireAdmin() {
		return
	}

	settings := game.Settings{
		MaxWinners:   data.MaxWinners,
		WinCondition: game.WinCondition(data.WinCondition),
	}
	if !c.gameService.StartRound(settings) {
		c.sendError("round_active", "A round is already in progress")
	}
}

func (c *Connection) handleAdminStop() {
	if !c.requireAdmin() {
		return
	}

	if !c.gameService.StopRound("Round stopped by admin") {
		c.sendError("no_active_round", "No round to stop")
	}
}

func (c *Connection) handleAdminTogglePause() {
	if !c.requireAdmin() {
		return
	}

	if _, ok := c.gameService.TogglePause(); !ok {
		c.sendError("no_active_round", "No round to pause")
	}
}

func (c *Connection) handleAdminCallNumber(data AdminCallNumberData) {
	if !c.requireAdmin() {
		return
	}

	err := c.gameService.CallNumber(data.Number)
	if err != nil {
		// A re-called number is a safe no-op; everything else goes back to
		// the admin.
		if errors.Is(err, game.ErrNumberCalled) {
			return
		}
		c.sendError("call_failed", err.Error())
	}
}

func (c *Connection) handleClaimRow(data ClaimRowData) {
	if c.gameService == nil {
		c.sendError("service_unavailable", "Game service not available")
		return
	}

	playerID := c.GetPlayer()
	if playerID == "" {
		c.sendError("not_authenticated", "Must log in first")
		return
	}

	result, err := c.gameService.ClaimRow(playerID, data)
	if err != nil {
		response, _ := NewMessage(MessageTypeClaimDenied, ClaimDeniedData{
			RowIndex: data.RowIndex,
			Reason:   err.Error(),
		})
		_ = c.SendMessage(response) // Ignore send errors
		return
	}

	response, _ := NewMessage(MessageTypeRowClaimApproved, RowClaimApprovedData{
		RowIndex:    result.RowIndex,
		Description: result.Description,
	})
	_ = c.SendMessage(response) // Ignore send errors
}
