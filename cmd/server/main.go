package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/clubhub/cmd/server/internal/commands"
	"github.com/wolfeidau/clubhub/internal/logger"
)

var (
	version = "dev"
	cli     struct {
		Dev     bool                `help:"Enable development mode (console logging, debug level)." env:"CLUBHUB_DEV"`
		Version kong.VersionFlag    `help:"Print version and exit."`
		Serve   commands.ServeCmd   `cmd:"" help:"Start the session and authorization API server"`
		Migrate commands.MigrateCmd `cmd:"" help:"Apply PostgreSQL schema migrations"`
		Session commands.SessionCmd `cmd:"" help:"Issue, revoke and purge sessions"`
		Users   commands.UsersCmd   `cmd:"" help:"Manage users"`
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Name("clubhub"),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	log.Logger = logger.Setup(cli.Dev)
	zerolog.DefaultContextLogger = &log.Logger

	err := cmd.Run(&commands.Globals{Dev: cli.Dev, Version: version})
	cmd.FatalIfErrorf(err)
}
