package client

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/kimserver/internal/server" // Reuse message types
)

// Client represents a WebSocket client for the game server
type Client struct {
	serverURL  string
	conn       *websocket.Conn
	send       chan *server.Message
	receive    chan *server.Message
	logger     *log.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	mu         sync.RWMutex
	connected  bool
	playerID   string
	playerName string
	ticketID   string
	closeOnce  sync.Once

	// Event handlers
	eventHandlers map[server.MessageType][]EventHandler
}

// EventHandler is a function that handles incoming events
type EventHandler func(*server.Message)

// NewClient creates a new WebSocket client
func NewClient(serverURL string, logger *log.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		serverURL:     serverURL,
		send:          make(chan *server.Message, 256),
		receive:       make(chan *server.Message, 256),
		logger:        logger.WithPrefix("client"),
		ctx:           ctx,
		cancel:        cancel,
		eventHandlers: make(map[server.MessageType][]EventHandler),
	}
}

// Connect establishes a WebSocket connection to the server
func (c *Client) Connect() error {
	c.logger.Info("Connecting to server", "url", c.serverURL)

	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	// Convert http/https to ws/wss
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	// Add WebSocket path
	u.Path = "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readPump()
	go c.writePump()
	go c.eventProcessor()

	c.logger.Info("Connected to server")
	return nil
}

// Disconnect closes the WebSocket connection
func (c *Client) Disconnect() error {
	c.closeOnce.Do(func() {
		c.cancel()

		c.mu.Lock()
		defer c.mu.Unlock()

		if c.conn != nil {
			_ = c.conn.Close() // Ignore close errors during shutdown
			c.connected = false
		}

		close(c.send)
		close(c.receive)

		c.logger.Info("Disconnected from server")
	})
	return nil
}

// IsConnected returns whether the client is connected
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// SendMessage sends a message to the server
func (c *Client) SendMessage(msg *server.Message) error {
	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		return fmt.Errorf("send buffer full")
	}
}

// readPump handles incoming messages from the server
func (c *Client) readPump() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg server.Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.logger.Debug("Received message", "type", msg.Type)

		select {
		case c.receive <- &msg:
		case <-c.ctx.Done():
			return
		}
	}
}

// writePump handles outgoing messages to the server
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second) // Ping interval
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // Ignore close errors during cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// eventProcessor processes incoming messages and dispatches to handlers
func (c *Client) eventProcessor() {
	for {
		select {
		case msg := <-c.receive:
			c.handleMessage(msg)
		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage dispatches messages to registered handlers
func (c *Client) handleMessage(msg *server.Message) {
	c.mu.RLock()
	handlers, exists := c.eventHandlers[msg.Type]
	c.mu.RUnlock()

	if exists {
		for _, handler := range handlers {
			go handler(msg) // Handle asynchronously
		}
	} else {
		c.logger.Debug("No handler for message type", "type", msg.Type)
	}
}

// AddEventHandler adds an event handler for a specific message type
func (c *Client) AddEventHandler(messageType server.MessageType, handler EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.eventHandlers[messageType] = append(c.eventHandlers[messageType], handler)
}

// Login registers a player name with the server
func (c *Client) Login(name string) error {
	c.mu.Lock()
	c.playerName = name
	c.mu.Unlock()

	loginMsg, err := server.NewMessage(server.MessageTypeLogin, server.LoginData{
		Name: name,
	})
	if err != nil {
		return err
	}

	return c.SendMessage(loginMsg)
}

// GetPlayerData requests the stored player record, used after a reconnect
func (c *Client) GetPlayerData(playerID string) error {
	msg, err := server.NewMessage(server.MessageTypeGetPlayerData, server.GetPlayerDataRequest{
		PlayerID: playerID,
	})
	if err != nil {
		return err
	}

	return c.SendMessage(msg)
}

// GetGameState requests the current state snapshot
func (c *Client) GetGameState() error {
	msg, err := server.NewMessage(server.MessageTypeGetGameState, map[string]interface{}{})
	if err != nil {
		return err
	}

	return c.SendMessage(msg)
}

// AdminLogin requests admin authority with the given password
func (c *Client) AdminLogin(password string) error {
	msg, err := server.NewMessage(server.MessageTypeAdminLogin, server.AdminLoginData{
		Password: password,
	})
	if err != nil {
		return err
	}

	return c.SendMessage(msg)
}

// StartRound asks the server to start a new round
func (c *Client) StartRound(maxWinners int, winCondition string) error {
	msg, err := server.NewMessage(server.MessageTypeAdminStart, server.AdminStartData{
		MaxWinners:   maxWinners,
		WinCondition: winCondition,
	})
	if err != nil {
		return err
	}

	return c.SendMessage(msg)
}

// StopRound asks the server to end the round
func (c *Client) StopRound() error {
	msg, err := server.NewMessage(server.MessageTypeAdminStop, map[string]interface{}{})
	if err != nil {
		return err
	}

	return c.SendMessage(msg)
}

// TogglePause asks the server to pause or resume the round
func (c *Client) TogglePause() error {
	msg, err := server.NewMessage(server.MessageTypeAdminTogglePause, map[string]interface{}{})
	if err != nil {
		return err
	}

	return c.SendMessage(msg)
}

// CallNumber asks the server to draw the given number
func (c *Client) CallNumber(number int) error {
	msg, err := server.NewMessage(server.MessageTypeAdminCallNumber, server.AdminCallNumberData{
		Number: number,
	})
	if err != nil {
		return err
	}

	return c.SendMessage(msg)
}

// ClaimRow submits a row claim for the client's ticket
func (c *Client) ClaimRow(ticketID string, rowIndex int) error {
	msg, err := server.NewMessage(server.MessageTypeClaimRow, server.ClaimRowData{
		TicketID: ticketID,
		RowIndex: rowIndex,
	})
	if err != nil {
		return err
	}

	return c.SendMessage(msg)
}

// SetPlayer records the identity the server assigned on login
func (c *Client) SetPlayer(playerID, ticketID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
	c.ticketID = ticketID
}

// GetPlayerID returns the server-assigned player ID
func (c *Client) GetPlayerID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// GetTicketID returns the server-assigned ticket ID
func (c *Client) GetTicketID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ticketID
}

// GetPlayerName returns the player name
func (c *Client) GetPlayerName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerName
}

// WaitForMessage waits for a specific message type with timeout
func (c *Client) WaitForMessage(messageType server.MessageType, timeout time.Duration) (*server.Message, error) {
	responseChan := make(chan *server.Message, 1)

	// Add temporary handler
	handler := func(msg *server.Message) {
		select {
		case responseChan <- msg:
		default:
		}
	}

	c.AddEventHandler(messageType, handler)

	// Wait for response or timeout
	select {
	case msg := <-responseChan:
		return msg, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("timeout waiting for %s", messageType)
	case <-c.ctx.Done():
		return nil, c.ctx.Err()
	}
}
