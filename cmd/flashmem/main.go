package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/conorfennell/flashmem/internal/config"
	"github.com/conorfennell/flashmem/internal/deck"
	"github.com/conorfennell/flashmem/internal/session"
	"github.com/conorfennell/flashmem/internal/storage"
	"github.com/conorfennell/flashmem/internal/sync"
	"github.com/conorfennell/flashmem/internal/web"
)

func main() {
	// 1. Load configuration from file, environment and flags
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		code := configExitCode(err)
		if code != 0 {
			slog.Error("Failed to load config", "error", err)
		}
		os.Exit(code)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("flashmem failed", "error", err)
		os.Exit(1)
	}
}

// configExitCode is 0 when the user asked for --help, whose usage pflag
// has already printed, and 2 for any other config failure.
func configExitCode(err error) int {
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	return 2
}

func run(ctx context.Context, cfg *config.Config) error {
	// 2. Assemble the deck catalog
	catalogs := []deck.Catalog{deck.Builtin()}
	if cfg.DecksDir != "" {
		catalogs = append(catalogs, deck.NewFSCatalog(os.DirFS(cfg.DecksDir)))
	}

	var opts []web.Option
	if cfg.DB != "" {
		db, err := storage.Open(cfg.DB)
		if err != nil {
			return err
		}
		defer db.Close()
		slog.Info("Deck store opened", "path", cfg.DB)

		if cfg.AddSource != "" {
			if _, err := sync.AddSource(db, cfg.AddSource); err != nil {
				return err
			}
		}
		if cfg.RemoveSource != "" {
			if _, err := sync.RemoveSource(db, cfg.RemoveSource); err != nil {
				return err
			}
		}
		if cfg.Sync {
			if _, err := sync.RunSync(ctx, db, cfg.ReposDir); err != nil {
				return err
			}
		}
		catalogs = append(catalogs, db)
		opts = append(opts, web.WithDeckStore(db, cfg.ReposDir))
	} else if cfg.AddSource != "" || cfg.RemoveSource != "" || cfg.Sync {
		return errors.New("--add-source, --remove-source and --sync need a deck store (--db)")
	}

	if !cfg.Serve {
		return nil
	}

	// 3. Build the session engine
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	engine := session.NewEngine(
		session.WithShuffler(rand.New(rand.NewPCG(seed, seed))),
		session.WithLogger(slog.Default()),
	)

	mode, err := session.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}
	opts = append(opts, web.WithDefaultMode(mode))

	// 4. Serve until interrupted
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           web.NewServer(engine, deck.NewLoader(deck.Chain(catalogs...)), opts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		slog.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
