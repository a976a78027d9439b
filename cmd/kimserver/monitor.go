package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lox/kimserver/cmd/kimserver/shared"
	"github.com/lox/kimserver/internal/client"
	"github.com/lox/kimserver/internal/game"
	"github.com/lox/kimserver/internal/server"
)

// MonitorCmd tails round activity from a running server
type MonitorCmd struct {
	Server string `kong:"default='ws://localhost:3000/ws',help='WebSocket server URL'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
}

func (c *MonitorCmd) Run() error {
	logger := shared.SetupLogger(c.Debug)

	cl := client.NewClient(strings.TrimSpace(c.Server), logger)
	if err := cl.Connect(); err != nil {
		return err
	}
	defer func() { _ = cl.Disconnect() }()

	cl.AddEventHandler(server.MessageTypeRoundStarted, func(msg *server.Message) {
		var data server.RoundStartedData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		fmt.Printf("=== Round started: first to %s, %d winner(s) max ===\n", data.WinCondition, data.MaxWinners)
	})

	cl.AddEventHandler(server.MessageTypeNumberCalled, func(msg *server.Message) {
		var data server.NumberCalledData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		fmt.Printf("  number called: %d\n", data.Number)
	})

	cl.AddEventHandler(server.MessageTypePauseToggled, func(msg *server.Message) {
		var data server.PauseToggledData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		if data.Paused {
			fmt.Println("  -- paused --")
		} else {
			fmt.Println("  -- resumed --")
		}
	})

	cl.AddEventHandler(server.MessageTypeWinnerAnnouncement, func(msg *server.Message) {
		var winner game.Winner
		if err := json.Unmarshal(msg.Data, &winner); err != nil {
			return
		}
		fmt.Printf("  *** WINNER: %s (%s) at %s ***\n", winner.Name, winner.Description, winner.Time)
	})

	cl.AddEventHandler(server.MessageTypeRoundStopped, func(msg *server.Message) {
		var data server.RoundStoppedData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		fmt.Printf("=== Round stopped: %s ===\n", data.Reason)
	})

	cl.AddEventHandler(server.MessageTypeGameState, func(msg *server.Message) {
		var snap game.Snapshot
		if err := json.Unmarshal(msg.Data, &snap); err != nil {
			return
		}
		fmt.Printf("  state: %s, %d called, %d winner(s)\n", snap.Status, len(snap.CalledNumbers), len(snap.Winners))
	})

	// Prime the view with the current state.
	if err := cl.GetGameState(); err != nil {
		return err
	}

	fmt.Printf("Monitoring %s (ctrl-c to exit)\n", c.Server)
	<-shared.SetupSignalHandler().Done()
	return nil
}
