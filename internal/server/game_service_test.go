package server

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/kimserver/internal/game"
	"github.com/lox/kimserver/internal/randutil"
)

// fakeBroadcaster captures outgoing messages instead of writing to sockets.
type fakeBroadcaster struct {
	mu       sync.Mutex
	messages []*Message
}

func (f *fakeBroadcaster) Broadcast(msg *Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
}

func (f *fakeBroadcaster) SendToPlayer(playerID string, msg *Message) error {
	f.Broadcast(msg)
	return nil
}

func (f *fakeBroadcaster) ofType(mt MessageType) []*Message {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*Message
	for _, msg := range f.messages {
		if msg.Type == mt {
			out = append(out, msg)
		}
	}
	return out
}

func (f *fakeBroadcaster) lastOfType(mt MessageType) *Message {
	msgs := f.ofType(mt)
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}

func (f *fakeBroadcaster) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = nil
}

const testGraceDelay = time.Second

func newTestService(t *testing.T) (*GameService, *fakeBroadcaster, *quartz.Mock) {
	t.Helper()

	broadcaster := &fakeBroadcaster{}
	clock := quartz.NewMock(t)
	svc := NewGameService(broadcaster, log.New(io.Discard), randutil.New(42), clock, ServiceConfig{
		AdminPassword: "secret",
		GraceDelay:    testGraceDelay,
		DefaultSettings: game.Settings{
			MaxWinners:   game.DefaultMaxWinners,
			WinCondition: game.DefaultWinCondition,
		},
	})
	return svc, broadcaster, clock
}

// callRowNumbers draws every number on the given row.
func callRowNumbers(t *testing.T, svc *GameService, p *game.Player, rowIndex int) {
	t.Helper()
	row, ok := p.Ticket.Row(rowIndex)
	require.True(t, ok)
	for _, n := range row {
		err := svc.CallNumber(n)
		if err != nil {
			require.ErrorIs(t, err, game.ErrNumberCalled)
		}
	}
}

func decodePayload[T any](t *testing.T, msg *Message) T {
	t.Helper()
	require.NotNil(t, msg)
	var data T
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	return data
}

func TestLogin(t *testing.T) {
	svc, _, _ := newTestService(t)

	p, err := svc.Login("Alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.Name)
	require.NotNil(t, p.Ticket)
	assert.Len(t, p.Ticket.AllNumbers, 30)
	assert.Equal(t, 1, svc.PlayerCount())
}

func TestLoginRejectsDuplicateNames(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Login("Alice")
	require.NoError(t, err)

	_, err = svc.Login("alice")
	assert.ErrorIs(t, err, ErrNameTaken)

	_, err = svc.Login("  ")
	assert.ErrorIs(t, err, ErrNameEmpty)

	assert.Equal(t, 1, svc.PlayerCount())
}

func TestPlayerDataUnknownID(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, _, ok := svc.PlayerData("P-NOPE")
	assert.False(t, ok)
}

func TestPlayerDataRoundTrip(t *testing.T) {
	svc, _, _ := newTestService(t)

	p, err := svc.Login("Alice")
	require.NoError(t, err)

	data, snap, ok := svc.PlayerData(p.ID)
	require.True(t, ok)
	assert.Equal(t, p.ID, data.PlayerID)
	assert.Equal(t, "Alice", data.Name)
	assert.Equal(t, p.Ticket.ID, data.Ticket.ID)
	assert.Equal(t, game.StatusIdle, snap.Status)
}

func TestCheckAdminPassword(t *testing.T) {
	svc, _, _ := newTestService(t)

	assert.True(t, svc.CheckAdminPassword("secret"))
	assert.False(t, svc.CheckAdminPassword("wrong"))
	assert.False(t, svc.CheckAdminPassword(""))
}

func TestStartRoundBroadcasts(t *testing.T) {
	svc, broadcaster, _ := newTestService(t)

	require.True(t, svc.StartRound(game.Settings{MaxWinners: 3, WinCondition: game.WinTwoRows}))

	started := decodePayload[RoundStartedData](t, broadcaster.lastOfType(MessageTypeRoundStarted))
	assert.Equal(t, 3, started.MaxWinners)
	assert.Equal(t, "2_rows", started.WinCondition)

	snap := decodePayload[game.Snapshot](t, broadcaster.lastOfType(MessageTypeGameState))
	assert.Equal(t, game.StatusRunning, snap.Status)
	assert.Equal(t, 3, snap.MaxWinners)
}

func TestStartRoundAppliesDefaults(t *testing.T) {
	svc, broadcaster, _ := newTestService(t)

	require.True(t, svc.StartRound(game.Settings{}))

	started := decodePayload[RoundStartedData](t, broadcaster.lastOfType(MessageTypeRoundStarted))
	assert.Equal(t, game.DefaultMaxWinners, started.MaxWinners)
	assert.Equal(t, string(game.DefaultWinCondition), started.WinCondition)
}

func TestStartRoundWhileRunningIsNoOp(t *testing.T) {
	svc, broadcaster, _ := newTestService(t)

	require.True(t, svc.StartRound(game.Settings{}))
	broadcaster.reset()

	assert.False(t, svc.StartRound(game.Settings{MaxWinners: 1}))
	assert.Empty(t, broadcaster.messages)
}

func TestStopRoundBroadcasts(t *testing.T) {
	svc, broadcaster, _ := newTestService(t)

	assert.False(t, svc.StopRound("nothing to stop"))

	require.True(t, svc.StartRound(game.Settings{}))
	require.True(t, svc.StopRound("Round stopped by admin"))

	stopped := decodePayload[RoundStoppedData](t, broadcaster.lastOfType(MessageTypeRoundStopped))
	assert.Equal(t, "Round stopped by admin", stopped.Reason)

	snap := decodePayload[game.Snapshot](t, broadcaster.lastOfType(MessageTypeGameState))
	assert.Equal(t, game.StatusStopped, snap.Status)
}

func TestTogglePauseBroadcasts(t *testing.T) {
	svc, broadcaster, _ := newTestService(t)

	_, ok := svc.TogglePause()
	assert.False(t, ok)

	require.True(t, svc.StartRound(game.Settings{}))

	paused, ok := svc.TogglePause()
	require.True(t, ok)
	assert.True(t, paused)
	assert.True(t, decodePayload[PauseToggledData](t, broadcaster.lastOfType(MessageTypePauseToggled)).Paused)

	paused, ok = svc.TogglePause()
	require.True(t, ok)
	assert.False(t, paused)
}

func TestCallNumberBroadcasts(t *testing.T) {
	svc, broadcaster, _ := newTestService(t)

	require.True(t, svc.StartRound(game.Settings{}))
	broadcaster.reset()

	require.NoError(t, svc.CallNumber(42))

	called := decodePayload[NumberCalledData](t, broadcaster.lastOfType(MessageTypeNumberCalled))
	assert.Equal(t, 42, called.Number)

	snap := decodePayload[game.Snapshot](t, broadcaster.lastOfType(MessageTypeGameState))
	assert.Equal(t, []int{42}, snap.CalledNumbers)
}

func TestCallNumberDuplicateIsSilent(t *testing.T) {
	svc, broadcaster, _ := newTestService(t)

	require.True(t, svc.StartRound(game.Settings{}))
	require.NoError(t, svc.CallNumber(42))
	broadcaster.reset()

	err := svc.CallNumber(42)
	assert.ErrorIs(t, err, game.ErrNumberCalled)
	assert.Empty(t, broadcaster.messages)
}

func TestClaimRowApproved(t *testing.T) {
	svc, broadcaster, _ := newTestService(t)

	p, err := svc.Login("Alice")
	require.NoError(t, err)

	require.True(t, svc.StartRound(game.Settings{MaxWinners: 2, WinCondition: game.WinOneRow}))
	callRowNumbers(t, svc, p, 0)
	broadcaster.reset()

	result, err := svc.ClaimRow(p.ID, ClaimRowData{TicketID: p.Ticket.ID, RowIndex: 0})
	require.NoError(t, err)
	assert.Equal(t, 0, result.RowIndex)
	assert.Equal(t, "Row 1", result.Description)

	require.NotNil(t, result.Winner)
	winner := decodePayload[game.Winner](t, broadcaster.lastOfType(MessageTypeWinnerAnnouncement))
	assert.Equal(t, "Alice", winner.Name)
	assert.Equal(t, "1 row", winner.Description)

	snap := decodePayload[game.Snapshot](t, broadcaster.lastOfType(MessageTypeGameState))
	require.Len(t, snap.Winners, 1)
}

func TestClaimRowUnknownPlayer(t *testing.T) {
	svc, _, _ := newTestService(t)

	require.True(t, svc.StartRound(game.Settings{}))

	_, err := svc.ClaimRow("P-NOPE", ClaimRowData{TicketID: "T-NOPE", RowIndex: 0})
	assert.ErrorIs(t, err, ErrUnknownPlayer)
}

func TestClaimRowDeniedDoesNotBroadcast(t *testing.T) {
	svc, broadcaster, _ := newTestService(t)

	p, err := svc.Login("Alice")
	require.NoError(t, err)

	require.True(t, svc.StartRound(game.Settings{}))
	broadcaster.reset()

	_, err = svc.ClaimRow(p.ID, ClaimRowData{TicketID: p.Ticket.ID, RowIndex: 0})
	assert.ErrorIs(t, err, game.ErrRowIncomplete)
	assert.Empty(t, broadcaster.messages)
}

func TestQuotaAutoStop(t *testing.T) {
	svc, broadcaster, clock := newTestService(t)

	alice, err := svc.Login("Alice")
	require.NoError(t, err)
	bob, err := svc.Login("Bob")
	require.NoError(t, err)

	require.True(t, svc.StartRound(game.Settings{MaxWinners: 1, WinCondition: game.WinOneRow}))
	callRowNumbers(t, svc, alice, 0)
	callRowNumbers(t, svc, bob, 0)
	broadcaster.reset()

	result, err := svc.ClaimRow(alice.ID, ClaimRowData{TicketID: alice.Ticket.ID, RowIndex: 0})
	require.NoError(t, err)
	require.NotNil(t, result.Winner)

	// Quota filled: claims close immediately, the round stays live through
	// the grace window.
	_, err = svc.ClaimRow(bob.ID, ClaimRowData{TicketID: bob.Ticket.ID, RowIndex: 0})
	assert.ErrorIs(t, err, game.ErrQuotaReached)
	assert.Equal(t, game.StatusRunning, svc.Snapshot().Status)
	assert.Nil(t, broadcaster.lastOfType(MessageTypeRoundStopped))

	clock.Advance(testGraceDelay).MustWait(context.Background())

	stopped := decodePayload[RoundStoppedData](t, broadcaster.lastOfType(MessageTypeRoundStopped))
	assert.Equal(t, "winner quota reached", stopped.Reason)
	assert.Equal(t, game.StatusStopped, svc.Snapshot().Status)
}

func TestAutoStopSkipsRestartedRound(t *testing.T) {
	svc, broadcaster, clock := newTestService(t)

	alice, err := svc.Login("Alice")
	require.NoError(t, err)

	require.True(t, svc.StartRound(game.Settings{MaxWinners: 1, WinCondition: game.WinOneRow}))
	callRowNumbers(t, svc, alice, 0)

	_, err = svc.ClaimRow(alice.ID, ClaimRowData{TicketID: alice.Ticket.ID, RowIndex: 0})
	require.NoError(t, err)

	// Admin stops and restarts inside the grace window; the stale timer
	// must not kill the new round.
	require.True(t, svc.StopRound("Round stopped by admin"))
	require.True(t, svc.StartRound(game.Settings{MaxWinners: 1, WinCondition: game.WinOneRow}))
	broadcaster.reset()

	clock.Advance(testGraceDelay).MustWait(context.Background())

	assert.Equal(t, game.StatusRunning, svc.Snapshot().Status)
	assert.Nil(t, broadcaster.lastOfType(MessageTypeRoundStopped))
}

func TestStartRoundResetsClaims(t *testing.T) {
	svc, _, clock := newTestService(t)

	alice, err := svc.Login("Alice")
	require.NoError(t, err)

	require.True(t, svc.StartRound(game.Settings{MaxWinners: 1, WinCondition: game.WinOneRow}))
	callRowNumbers(t, svc, alice, 0)

	_, err = svc.ClaimRow(alice.ID, ClaimRowData{TicketID: alice.Ticket.ID, RowIndex: 0})
	require.NoError(t, err)
	clock.Advance(testGraceDelay).MustWait(context.Background())
	require.Equal(t, game.StatusStopped, svc.Snapshot().Status)

	require.True(t, svc.StartRound(game.Settings{MaxWinners: 1, WinCondition: game.WinOneRow}))

	snap := svc.Snapshot()
	assert.Empty(t, snap.CalledNumbers)
	assert.Empty(t, snap.Winners)
	assert.Empty(t, alice.Ticket.ClaimedRows())
	assert.Empty(t, alice.Ticket.PaidWins())

	// The same row can win again in the fresh round.
	callRowNumbers(t, svc, alice, 0)
	result, err := svc.ClaimRow(alice.ID, ClaimRowData{TicketID: alice.Ticket.ID, RowIndex: 0})
	require.NoError(t, err)
	assert.NotNil(t, result.Winner)
}
