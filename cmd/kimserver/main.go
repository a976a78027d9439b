package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Server   ServerCmd        `cmd:"" help:"Run the game server"`
	Monitor  MonitorCmd       `cmd:"" help:"Watch a running server's round activity"`
	Simulate SimulateCmd      `cmd:"" help:"Run a scripted round against a server"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("kimserver"),
		kong.Description("Authoritative WebSocket server for live KIM number-lottery rounds"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
