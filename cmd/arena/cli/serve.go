package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	arenahttp "arena/internal/http"
	"arena/internal/match"
	"arena/internal/service"
	"arena/internal/storage"
)

const gracefulShutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var (
		pidPath string
		pidLock bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run matches submitted over an HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pidLock && pidPath == "" {
				return errors.New("--pid-lock requires --pid")
			}
			if pidPath != "" {
				release, err := pidFile(pidPath, pidLock)
				if err != nil {
					return err
				}
				defer release()
			}
			return a.serve()
		},
	}

	f := cmd.Flags()
	f.String("host", "", "API server host")
	f.Int("port", 0, "API server port")
	f.Int("workers", 0, "matches played at once")
	f.String("profiles", "", "directory engine profiles are loaded from")
	f.Bool("dev", false, "development mode (relaxed rate limits, no access log)")
	f.String("storage-path", "", "sqlite database recording matches (disabled if empty)")
	f.StringVar(&pidPath, "pid", "", "optional path to write a PID file")
	f.BoolVar(&pidLock, "pid-lock", false, "lock the PID file so only one server runs (requires --pid)")

	for flag, key := range map[string]string{
		"host":         "server.host",
		"port":         "server.port",
		"workers":      "server.workers",
		"profiles":     "server.profiles",
		"dev":          "server.dev",
		"storage-path": "storage.path",
	} {
		_ = a.v.BindPFlag(key, f.Lookup(flag))
	}
	return cmd
}

func (a *app) serve() error {
	cfg := a.cfg
	log := a.log.With("component", "server")

	var store *storage.Store
	if cfg.Storage.Path != "" {
		var err error
		if store, err = storage.NewStore(cfg.Storage.Path, a.log); err != nil {
			return err
		}
		if err := store.InitDB(); err != nil {
			store.Close()
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
		log.Info("Persistent storage enabled", "path", cfg.Storage.Path)
	} else {
		log.Info("Persistent storage disabled (use --storage-path to enable)")
	}

	svc := service.New(service.Options{
		Workers:  cfg.Server.Workers,
		Settings: a.settings(),
		Store:    store,
		Log:      a.log,
	})

	app := arenahttp.NewFiberApp(svc, arenahttp.Options{
		Profiles: cfg.Server.Profiles,
		Match: match.Config{
			MoveTime:   cfg.Match.MoveTime,
			Timeout:    cfg.Match.Timeout,
			HardFactor: cfg.Match.HardFactor,
			MaxPlies:   cfg.Match.MaxPlies,
		},
		Dev: cfg.Server.Dev,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	listenErr := make(chan error, 1)
	go func() {
		log.Info("Arena API server starting", "addr", "http://"+addr, "workers", cfg.Server.Workers, "profiles", cfg.Server.Profiles, "dev", cfg.Server.Dev)
		listenErr <- app.Listen(addr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	var err error
	select {
	case <-quit:
		log.Info("Shutting down server")
	case err = <-listenErr:
		log.Error("API server listen error", "error", err)
	}

	if serr := app.ShutdownWithTimeout(gracefulShutdownTimeout); serr != nil {
		log.Warn("Server forced to shutdown", "error", serr)
	}
	if serr := svc.Close(gracefulShutdownTimeout); serr != nil {
		log.Warn("Service shutdown error", "error", serr)
	}

	log.Info("Server exited")
	return err
}
