package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionInitialState(t *testing.T) {
	s := NewSession()

	assert.Equal(t, StatusIdle, s.Status())
	assert.Empty(t, s.CalledNumbers())
	assert.Empty(t, s.Winners())

	_, ok := s.LastNumber()
	assert.False(t, ok)
}

func TestStartAdoptsSettings(t *testing.T) {
	s := NewSession()

	ok := s.Start(Settings{MaxWinners: 3, WinCondition: WinTwoRows})
	require.True(t, ok)

	assert.Equal(t, StatusRunning, s.Status())
	assert.Equal(t, 3, s.Settings().MaxWinners)
	assert.Equal(t, WinTwoRows, s.Settings().WinCondition)
}

func TestStartAppliesDefaults(t *testing.T) {
	s := NewSession()

	require.True(t, s.Start(Settings{}))

	assert.Equal(t, DefaultMaxWinners, s.Settings().MaxWinners)
	assert.Equal(t, DefaultWinCondition, s.Settings().WinCondition)
}

func TestStartWhileRunningIsNoop(t *testing.T) {
	s := NewSession()
	require.True(t, s.Start(Settings{MaxWinners: 5}))
	require.NoError(t, s.CallNumber(17))

	ok := s.Start(Settings{MaxWinners: 99})
	assert.False(t, ok)

	// Nothing changed, including called numbers
	assert.Equal(t, []int{17}, s.CalledNumbers())
	assert.Equal(t, 5, s.Settings().MaxWinners)

	_, toggled := s.TogglePause()
	require.True(t, toggled)
	assert.False(t, s.Start(Settings{}), "start while paused must be a no-op")
}

func TestStartAfterStopResets(t *testing.T) {
	s := NewSession()
	require.True(t, s.Start(Settings{}))
	require.NoError(t, s.CallNumber(4))
	require.True(t, s.Stop())

	require.True(t, s.Start(Settings{}))

	assert.Empty(t, s.CalledNumbers())
	assert.Empty(t, s.Winners())
	_, ok := s.LastNumber()
	assert.False(t, ok)
}

func TestStopGuards(t *testing.T) {
	s := NewSession()
	assert.False(t, s.Stop(), "stop from idle is a no-op")

	require.True(t, s.Start(Settings{}))
	assert.True(t, s.Stop())
	assert.Equal(t, StatusStopped, s.Status())
	assert.False(t, s.Stop(), "stop from stopped is a no-op")
}

func TestStopWhilePausedClearsPause(t *testing.T) {
	s := NewSession()
	require.True(t, s.Start(Settings{}))
	_, ok := s.TogglePause()
	require.True(t, ok)

	require.True(t, s.Stop())

	assert.Equal(t, StatusStopped, s.Status())
	assert.False(t, s.IsPaused())
	assert.False(t, s.Snapshot().IsPaused)
}

func TestTogglePause(t *testing.T) {
	s := NewSession()

	_, ok := s.TogglePause()
	assert.False(t, ok, "toggle from idle is a no-op")

	require.True(t, s.Start(Settings{}))

	paused, ok := s.TogglePause()
	require.True(t, ok)
	assert.True(t, paused)
	assert.Equal(t, StatusPaused, s.Status())

	paused, ok = s.TogglePause()
	require.True(t, ok)
	assert.False(t, paused)
	assert.Equal(t, StatusRunning, s.Status())
}

func TestCallNumber(t *testing.T) {
	s := NewSession()

	assert.ErrorIs(t, s.CallNumber(10), ErrRoundNotRunning)

	require.True(t, s.Start(Settings{}))

	assert.ErrorIs(t, s.CallNumber(0), ErrNumberOutOfRange)
	assert.ErrorIs(t, s.CallNumber(91), ErrNumberOutOfRange)

	require.NoError(t, s.CallNumber(10))
	require.NoError(t, s.CallNumber(42))

	last, ok := s.LastNumber()
	require.True(t, ok)
	assert.Equal(t, 42, last)
	assert.Equal(t, []int{10, 42}, s.CalledNumbers())
	assert.True(t, s.Called(10))
	assert.False(t, s.Called(11))
}

func TestCallNumberDuplicateIsNoop(t *testing.T) {
	s := NewSession()
	require.True(t, s.Start(Settings{}))
	require.NoError(t, s.CallNumber(10))

	assert.ErrorIs(t, s.CallNumber(10), ErrNumberCalled)
	assert.Equal(t, []int{10}, s.CalledNumbers())
}

func TestCallNumberWhilePausedRejected(t *testing.T) {
	s := NewSession()
	require.True(t, s.Start(Settings{}))
	require.NoError(t, s.CallNumber(3))

	_, ok := s.TogglePause()
	require.True(t, ok)

	assert.ErrorIs(t, s.CallNumber(4), ErrRoundNotRunning)
	assert.Equal(t, []int{3}, s.CalledNumbers(), "pause preserves called numbers")
}

func TestSnapshot(t *testing.T) {
	s := NewSession()
	snap := s.Snapshot()

	assert.Equal(t, StatusIdle, snap.Status)
	assert.Empty(t, snap.CalledNumbers)
	assert.Nil(t, snap.LastNumber)
	assert.NotNil(t, snap.Winners)
	assert.Empty(t, snap.Winners)

	require.True(t, s.Start(Settings{MaxWinners: 2, WinCondition: WinFullHouse}))
	require.NoError(t, s.CallNumber(88))

	snap = s.Snapshot()
	assert.Equal(t, StatusRunning, snap.Status)
	assert.Equal(t, []int{88}, snap.CalledNumbers)
	require.NotNil(t, snap.LastNumber)
	assert.Equal(t, 88, *snap.LastNumber)
	assert.Equal(t, 2, snap.MaxWinners)
	assert.Equal(t, WinFullHouse, snap.WinCondition)
	assert.False(t, snap.IsPaused)

	// Snapshot is a copy: mutating it must not touch the session
	snap.CalledNumbers[0] = 1
	assert.Equal(t, []int{88}, s.CalledNumbers())
}

func TestWinConditionRowsRequired(t *testing.T) {
	tests := []struct {
		condition WinCondition
		rows      int
		describe  string
	}{
		{WinOneRow, 1, "1 row"},
		{WinTwoRows, 2, "2 rows"},
		{WinThreeRows, 3, "3 rows"},
		{WinFourRows, 4, "4 rows"},
		{WinFiveRows, 5, "5 rows"},
		{WinFullHouse, 6, "full house"},
	}

	for _, tt := range tests {
		t.Run(string(tt.condition), func(t *testing.T) {
			assert.True(t, tt.condition.Valid())
			assert.Equal(t, tt.rows, tt.condition.RowsRequired())
			assert.Equal(t, tt.describe, tt.condition.Describe())
		})
	}

	assert.False(t, WinCondition("7_rows").Valid())
}
