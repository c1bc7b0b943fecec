package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/contribuart/adapter"
	"github.com/justapithecus/contribuart/cli/config"
	"github.com/justapithecus/contribuart/iox"
	"github.com/justapithecus/contribuart/lode"
	"github.com/justapithecus/contribuart/log"
	"github.com/justapithecus/contribuart/metrics"
	"github.com/justapithecus/contribuart/server"
)

// ServeCommand returns the serve command.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API server",
		Flags: append([]cli.Flag{
			ConfigFlag,
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default " + server.DefaultAddr + ")",
			},
			&cli.StringSliceFlag{
				Name:  "origin",
				Usage: "Allowed browser origin (repeatable)",
			},
		}, journalFlags()...),
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if addr := c.String("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if origins := c.StringSlice("origin"); len(origins) > 0 {
		cfg.Server.AllowedOrigins = origins
	}

	ctx, stop := signalContext(c.Context)
	defer stop()

	logger := log.NewServiceLogger("server")
	defer func() { _ = logger.Sync() }()

	collector := metrics.NewCollector(cfg.Journal.Backend, cfg.Adapter.Type)
	journal, err := openJournal(ctx, cfg.Journal, collector)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	notifier, err := newNotifier(cfg.Adapter)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if notifier != nil {
		defer iox.DiscardClose(notifier)
	}

	srv := server.New(serverConfig(cfg, journal, collector, logger, notifier))
	if err := srv.Run(ctx); err != nil {
		return cli.Exit(fmt.Sprintf("server failed: %v", err), 1)
	}
	logger.Info("server stopped", nil)
	return nil
}

// serverConfig maps the file config onto the server. GitHub clients are
// built per request from the caller's token.
func serverConfig(cfg *config.Config, journal lode.Writer, collector *metrics.Collector, logger *log.Logger, notifier adapter.Adapter) server.Config {
	return server.Config{
		Addr:           cfg.Server.Addr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		NewClient: func(token string) server.GitHubAPI {
			return newGitHubClient(cfg, token)
		},
		NewCalendar: func(ctx context.Context, token string) server.CalendarAPI {
			return newCalendar(ctx, cfg, token)
		},
		Branches:    cfg.GitHub.Branches,
		ForceUpdate: cfg.GitHub.ForceUpdate,
		Retry:       cfg.RetryPolicy(),
		Journal:     journal,
		Notifier:    notifier,
		Collector:   collector,
		Logger:      logger,
	}
}
