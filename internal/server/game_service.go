package server

import (
	"errors"
	rand "math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/kimserver/internal/game"
	"github.com/lox/kimserver/internal/ticket"
)

var (
	ErrNameEmpty     = errors.New("player name required")
	ErrNameTaken     = errors.New("name already used by another player")
	ErrUnknownPlayer = errors.New("player not found")
)

// Broadcaster fans messages out to connected clients. *Server implements it;
// tests substitute a capture fake.
type Broadcaster interface {
	Broadcast(msg *Message)
	SendToPlayer(playerID string, msg *Message) error
}

// ServiceConfig carries the game-level configuration for a service.
type ServiceConfig struct {
	AdminPassword   string
	GraceDelay      time.Duration
	DefaultSettings game.Settings
}

// GameService is the single funnel for every state-mutating command: round
// control from the admin, number calls, and player claims. One mutex guards
// the session and all ticket claim progress, so two simultaneous claims (or
// a claim racing a number call) serialize. Broadcasts are assembled under
// the lock and sent after it is released.
type GameService struct {
	broadcaster Broadcaster
	logger      *log.Logger
	clock       quartz.Clock
	bus         game.EventBus
	cfg         ServiceConfig

	mu       sync.Mutex
	rng      *rand.Rand
	session  *game.Session
	players  map[string]*game.Player // player id -> player
	names    map[string]string       // lowercased name -> player id
	roundSeq int                     // increments on every applied start
}

// NewGameService creates the coordinator and wires its event relay.
func NewGameService(b Broadcaster, logger *log.Logger, rng *rand.Rand, clock quartz.Clock, cfg ServiceConfig) *GameService {
	svc := &GameService{
		broadcaster: b,
		logger:      logger.WithPrefix("game"),
		clock:       clock,
		bus:         game.NewEventBus(),
		cfg:         cfg,
		rng:         rng,
		session:     game.NewSession(),
		players:     make(map[string]*game.Player),
		names:       make(map[string]string),
	}
	svc.bus.Subscribe(&eventRelay{svc: svc})
	return svc
}

// EventBus exposes the bus for additional subscribers (tests, monitors).
func (s *GameService) EventBus() game.EventBus { return s.bus }

// CheckAdminPassword reports whether the supplied password grants admin
// authority.
func (s *GameService) CheckAdminPassword(password string) bool {
	return password == s.cfg.AdminPassword
}

// Login registers a new player and generates their ticket. Names are unique
// case-insensitively for the lifetime of the process.
func (s *GameService) Login(name string) (*game.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(name)
	if _, exists := s.names[key]; exists {
		return nil, ErrNameTaken
	}

	p := game.NewPlayer(name, ticket.Generate(s.rng))
	s.players[p.ID] = p
	s.names[key] = p.ID

	s.logger.Info("Player logged in", "player", name, "id", p.ID, "ticket", p.Ticket.ID)
	return p, nil
}

// PlayerData returns the wire form of a player's record together with a
// consistent snapshot, or false if the id is unknown.
func (s *GameService) PlayerData(playerID string) (PlayerDataResponse, game.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[playerID]
	if !ok {
		return PlayerDataResponse{}, game.Snapshot{}, false
	}
	return PlayerDataFromGame(p), s.session.Snapshot(), true
}

// Snapshot returns the current safe state snapshot.
func (s *GameService) Snapshot() game.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Snapshot()
}

// PlayerCount returns the number of registered players.
func (s *GameService) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}

// StartRound starts a new round with the given settings (zero values fall
// back to the configured defaults). Starting while a round is live is a
// no-op and returns false.
func (s *GameService) StartRound(settings game.Settings) bool {
	if settings.MaxWinners <= 0 {
		settings.MaxWinners = s.cfg.DefaultSettings.MaxWinners
	}
	if !settings.WinCondition.Valid() {
		settings.WinCondition = s.cfg.DefaultSettings.WinCondition
	}

	s.mu.Lock()
	applied := s.session.Start(settings)
	if !applied {
		s.mu.Unlock()
		return false
	}
	s.roundSeq++
	for _, p := range s.players {
		p.Ticket.ResetClaims()
	}
	adopted := s.session.Settings()
	snap := s.session.Snapshot()
	s.mu.Unlock()

	s.logger.Info("Round started", "winCondition", adopted.WinCondition, "maxWinners", adopted.MaxWinners)
	s.bus.Publish(game.NewRoundStartedEvent(adopted, s.clock.Now()))
	s.broadcastSnapshot(snap)
	return true
}

// StopRound ends the round. Stopping an idle or already stopped round is a
// no-op and returns false.
func (s *GameService) StopRound(reason string) bool {
	s.mu.Lock()
	applied := s.session.Stop()
	if !applied {
		s.mu.Unlock()
		return false
	}
	snap := s.session.Snapshot()
	s.mu.Unlock()

	s.logger.Info("Round stopped", "reason", reason)
	s.bus.Publish(game.NewRoundStoppedEvent(reason, s.clock.Now()))
	s.broadcastSnapshot(snap)
	return true
}

// TogglePause pauses or resumes the round.
func (s *GameService) TogglePause() (paused, ok bool) {
	s.mu.Lock()
	paused, ok = s.session.TogglePause()
	if !ok {
		s.mu.Unlock()
		return false, false
	}
	snap := s.session.Snapshot()
	s.mu.Unlock()

	s.logger.Info("Pause toggled", "paused", paused)
	s.bus.Publish(game.NewPauseToggledEvent(paused, s.clock.Now()))
	s.broadcastSnapshot(snap)
	return paused, true
}

// CallNumber draws a number and broadcasts it. Re-calling an already drawn
// number returns game.ErrNumberCalled without any broadcast, so resubmission
// is a safe no-op.
func (s *GameService) CallNumber(n int) error {
	s.mu.Lock()
	err := s.session.CallNumber(n)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	snap := s.session.Snapshot()
	s.mu.Unlock()

	s.logger.Info("Number called", "number", n)
	s.bus.Publish(game.NewNumberCalledEvent(n, s.clock.Now()))
	s.broadcastSnapshot(snap)
	return nil
}

// ClaimRow validates a player's row claim. On approval the claim progress
// is recorded; if the claim also pays out the round's win condition, the
// winner is announced to everyone and the quota auto-stop is scheduled once
// the quota fills. Denials mutate nothing and are reported only to the
// caller.
func (s *GameService) ClaimRow(playerID string, data ClaimRowData) (*game.ClaimResult, error) {
	s.mu.Lock()
	p, ok := s.players[playerID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrUnknownPlayer
	}

	result, err := s.session.ClaimRow(p, game.RowClaim{TicketID: data.TicketID, RowIndex: data.RowIndex}, s.clock.Now())
	if err != nil {
		s.mu.Unlock()
		s.logger.Info("Claim denied", "player", p.Name, "row", data.RowIndex, "reason", err)
		return nil, err
	}

	quotaReached := s.session.QuotaReached()
	seq := s.roundSeq
	var snap game.Snapshot
	if result.Winner != nil {
		snap = s.session.Snapshot()
	}
	s.mu.Unlock()

	s.logger.Info("Row claim approved", "player", p.Name, "row", result.RowIndex)

	if result.Winner != nil {
		s.logger.Info("Winner recorded", "player", p.Name, "description", result.Winner.Description)
		s.bus.Publish(game.NewWinnerAnnouncedEvent(*result.Winner, s.clock.Now()))
		s.broadcastSnapshot(snap)

		if quotaReached {
			s.scheduleAutoStop(seq)
		}
	}

	return result, nil
}

// scheduleAutoStop arms the quota auto-stop without holding the state lock
// across the grace delay. The delay only exists so the final winner
// announcement lands before the stop broadcast; further claims are already
// denied by the quota guard.
func (s *GameService) scheduleAutoStop(seq int) {
	s.logger.Info("Winner quota reached, scheduling auto-stop", "delay", s.cfg.GraceDelay)
	s.clock.AfterFunc(s.cfg.GraceDelay, func() {
		s.autoStop(seq)
	})
}

// autoStop re-checks the stop conditions under the lock: the round must
// still be the one that filled the quota and must still be live.
func (s *GameService) autoStop(seq int) {
	s.mu.Lock()
	if s.roundSeq != seq || !s.session.QuotaReached() {
		s.mu.Unlock()
		return
	}
	applied := s.session.Stop()
	if !applied {
		s.mu.Unlock()
		return
	}
	snap := s.session.Snapshot()
	s.mu.Unlock()

	const reason = "winner quota reached"
	s.logger.Info("Round stopped", "reason", reason)
	s.bus.Publish(game.NewRoundStoppedEvent(reason, s.clock.Now()))
	s.broadcastSnapshot(snap)
}

func (s *GameService) broadcastSnapshot(snap game.Snapshot) {
	msg, err := NewMessage(MessageTypeGameState, snap)
	if err != nil {
		s.logger.Error("Failed to create game state message", "error", err)
		return
	}
	s.broadcaster.Broadcast(msg)
}

// eventRelay converts game events into wire messages and fans them out,
// so clients can animate deltas instead of diffing snapshots.
type eventRelay struct {
	svc *GameService
}

// OnEvent implements the EventSubscriber interface
func (r *eventRelay) OnEvent(event game.GameEvent) {
	var (
		msgType MessageType
		payload interface{}
	)

	switch e := event.(type) {
	case game.RoundStartedEvent:
		msgType = MessageTypeRoundStarted
		payload = RoundStartedData{
			MaxWinners:   e.Settings.MaxWinners,
			WinCondition: string(e.Settings.WinCondition),
		}
	case game.RoundStoppedEvent:
		msgType = MessageTypeRoundStopped
		payload = RoundStoppedData{Reason: e.Reason}
	case game.PauseToggledEvent:
		msgType = MessageTypePauseToggled
		payload = PauseToggledData{Paused: e.Paused}
	case game.NumberCalledEvent:
		msgType = MessageTypeNumberCalled
		payload = NumberCalledData{Number: e.Number}
	case game.WinnerAnnouncedEvent:
		msgType = MessageTypeWinnerAnnouncement
		payload = e.Winner
	default:
		return
	}

	msg, err := NewMessage(msgType, payload)
	if err != nil {
		r.svc.logger.Error("Failed to create event message", "type", event.EventType(), "error", err)
		return
	}
	r.svc.broadcaster.Broadcast(msg)
}
