package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/gosom/yandex-maps-scraper/auth"
	"github.com/gosom/yandex-maps-scraper/config"
	"github.com/gosom/yandex-maps-scraper/scraper"
	"github.com/gosom/yandex-maps-scraper/storage"
	"github.com/gosom/yandex-maps-scraper/web"
)

func main() {
	if err := run(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func run() error {
	settings := config.Load()

	cmd := newCommand(settings, serve)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cmd.Run(ctx, os.Args)
}

// newCommand builds the CLI. Flags override the env-loaded settings, then
// action receives the final configuration.
func newCommand(settings *config.Settings, action func(context.Context, *config.Settings) error) *cli.Command {
	return &cli.Command{
		Name:  "yandex-maps-scraper",
		Usage: "licensed organization search API on top of Yandex Maps",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   settings.Addr,
				Usage:   "listen address",
				Sources: cli.EnvVars("ADDR"),
			},
			&cli.StringFlag{
				Name:    "db",
				Value:   settings.DatabasePath,
				Usage:   "sqlite database path",
				Sources: cli.EnvVars("DATABASE_PATH"),
			},
			&cli.BoolFlag{
				Name:    "headless",
				Value:   settings.Headless,
				Usage:   "run the browser headless",
				Sources: cli.EnvVars("HEADLESS"),
			},
			&cli.Int64Flag{
				Name:    "sessions",
				Value:   settings.MaxSessions,
				Usage:   "max concurrent browser sessions",
				Sources: cli.EnvVars("MAX_SESSIONS"),
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			settings.Addr = c.String("addr")
			settings.DatabasePath = c.String("db")
			settings.Headless = c.Bool("headless")
			settings.MaxSessions = c.Int64("sessions")

			return action(ctx, settings)
		},
	}
}

func serve(ctx context.Context, settings *config.Settings) error {
	dbFile := settings.DatabaseFile()

	if dir := filepath.Dir(dbFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	store, err := storage.New(dbFile)
	if err != nil {
		return err
	}
	defer store.Close()

	authSvc := auth.NewService(store, settings.SecretKey)
	scr := scraper.New(settings.Headless, settings.MaxSessions)
	svc := web.NewService(store, scr, authSvc, settings)

	srv, err := web.New(svc, settings.Addr)
	if err != nil {
		return err
	}

	return srv.Start(ctx)
}
