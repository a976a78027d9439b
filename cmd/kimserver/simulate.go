package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/kimserver/cmd/kimserver/shared"
	"github.com/lox/kimserver/internal/client"
	"github.com/lox/kimserver/internal/randutil"
	"github.com/lox/kimserver/internal/server"
	"github.com/lox/kimserver/internal/ticket"
)

// SimulateCmd drives a full round against a running server: one admin
// client calls numbers while scripted players claim rows as they complete.
type SimulateCmd struct {
	Server       string `kong:"default='ws://localhost:3000/ws',help='WebSocket server URL'"`
	Players      int    `kong:"default='5',help='Number of scripted players'"`
	Password     string `kong:"default='admin123',help='Admin password'"`
	MaxWinners   int    `kong:"default='3',help='Winner quota for the round'"`
	WinCondition string `kong:"default='1_row',help='Win condition for the round'"`
	IntervalMs   int    `kong:"default='100',help='Delay between number calls in milliseconds'"`
	Seed         int64  `kong:"default='1',help='Seed for the call order'"`
	Debug        bool   `kong:"help='Enable debug logging'"`
}

func (c *SimulateCmd) Run() error {
	logger := shared.SetupLogger(c.Debug)

	ctx := shared.SetupSignalHandlerWithLogger(logger)
	g, ctx := errgroup.WithContext(ctx)

	// Closed once any client observes round_stopped.
	stopped := make(chan struct{})
	var stopOnce sync.Once
	markStopped := func() { stopOnce.Do(func() { close(stopped) }) }

	for i := 0; i < c.Players; i++ {
		name := fmt.Sprintf("sim-player-%d", i+1)
		g.Go(func() error {
			return c.runPlayer(ctx, logger, name, stopped, markStopped)
		})
	}

	g.Go(func() error {
		return c.runCaller(ctx, logger, stopped, markStopped)
	})

	return g.Wait()
}

// runCaller authorizes as admin, starts the round and calls every number in
// a seeded order until the round stops or the pool runs out.
func (c *SimulateCmd) runCaller(ctx context.Context, logger *log.Logger, stopped <-chan struct{}, markStopped func()) error {
	cl := client.NewClient(strings.TrimSpace(c.Server), logger.WithPrefix("caller"))
	if err := cl.Connect(); err != nil {
		return err
	}
	defer func() { _ = cl.Disconnect() }()

	cl.AddEventHandler(server.MessageTypeRoundStopped, func(msg *server.Message) {
		markStopped()
	})

	if err := cl.AdminLogin(c.Password); err != nil {
		return err
	}
	if _, err := cl.WaitForMessage(server.MessageTypeAdminAuthorized, 5*time.Second); err != nil {
		return err
	}

	if err := cl.StartRound(c.MaxWinners, c.WinCondition); err != nil {
		return err
	}
	logger.Info("Round started", "players", c.Players, "winCondition", c.WinCondition, "maxWinners", c.MaxWinners)

	interval := time.Duration(c.IntervalMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	drawOrder := randutil.New(c.Seed).Perm(ticket.MaxNumber)
	for _, n := range drawOrder {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopped:
			logger.Info("Round stopped, caller finished")
			return nil
		case <-ticker.C:
			if err := cl.CallNumber(n + 1); err != nil {
				return err
			}
		}
	}

	// Pool exhausted without filling the quota; end the round ourselves.
	logger.Info("All numbers called, stopping round")
	if err := cl.StopRound(); err != nil {
		return err
	}

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timed out waiting for round to stop")
	}
}

// runPlayer logs in, fetches its ticket and claims each row as soon as every
// number on it has been called.
func (c *SimulateCmd) runPlayer(ctx context.Context, logger *log.Logger, name string, stopped <-chan struct{}, markStopped func()) error {
	cl := client.NewClient(strings.TrimSpace(c.Server), logger.WithPrefix(name))
	if err := cl.Connect(); err != nil {
		return err
	}
	defer func() { _ = cl.Disconnect() }()

	var mu sync.Mutex
	called := make(map[int]bool)

	cl.AddEventHandler(server.MessageTypeNumberCalled, func(msg *server.Message) {
		var data server.NumberCalledData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		mu.Lock()
		called[data.Number] = true
		mu.Unlock()
	})

	cl.AddEventHandler(server.MessageTypeRoundStopped, func(msg *server.Message) {
		markStopped()
	})

	cl.AddEventHandler(server.MessageTypeWinnerAnnouncement, func(msg *server.Message) {
		logger.Debug("Winner announced", "player", name)
	})

	if err := cl.Login(name); err != nil {
		return err
	}
	loginMsg, err := cl.WaitForMessage(server.MessageTypeLoginSuccess, 5*time.Second)
	if err != nil {
		return err
	}
	var login server.LoginSuccessData
	if err := json.Unmarshal(loginMsg.Data, &login); err != nil {
		return err
	}

	if err := cl.GetPlayerData(login.PlayerID); err != nil {
		return err
	}
	dataMsg, err := cl.WaitForMessage(server.MessageTypePlayerData, 5*time.Second)
	if err != nil {
		return err
	}
	var playerData server.PlayerDataResponse
	if err := json.Unmarshal(dataMsg.Data, &playerData); err != nil {
		return err
	}
	cl.SetPlayer(playerData.PlayerID, playerData.Ticket.ID)

	rows := playerData.Ticket.Rows
	claimed := make([]bool, len(rows))

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopped:
			return nil
		case <-ticker.C:
			mu.Lock()
			for i, row := range rows {
				if claimed[i] {
					continue
				}
				complete := true
				for _, n := range row {
					if !called[n] {
						complete = false
						break
					}
				}
				if complete {
					claimed[i] = true
					if err := cl.ClaimRow(playerData.Ticket.ID, i); err != nil {
						mu.Unlock()
						return err
					}
				}
			}
			mu.Unlock()
		}
	}
}
