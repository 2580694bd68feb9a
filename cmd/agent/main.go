package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"go-outreach-automation/internal/agent"
	"go-outreach-automation/internal/browser"
	"go-outreach-automation/internal/config"
	"go-outreach-automation/internal/logger"
	"go-outreach-automation/internal/notify"
	"go-outreach-automation/internal/status"
	"go-outreach-automation/internal/store"
	"go-outreach-automation/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to a YAML or TOML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	launcher := browser.NewLauncher(cfg.Browser, log)
	defer func() {
		if err := launcher.Shutdown(); err != nil {
			log.Warn("playwright shutdown failed", "error", err)
		}
	}()

	a := agent.New(cfg, launcher, st, log,
		agent.WithNotifier(notify.New(cfg.Notify, log)),
		agent.WithScreenshots(utils.NewScreenshotDebugger(cfg.Browser.ScreenshotDir, log)),
	)

	log.Info("starting outreach agent",
		"listing", cfg.Platform.ListingURL,
		"send_enabled", cfg.Outreach.SendEnabled,
		"store", cfg.Store.Driver,
	)

	var srv *status.Server
	if cfg.Status.Addr != "" {
		srv = status.NewServer(cfg.Status.Addr, a, log)
		if err := srv.Listen(); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Run(gctx)
	})

	if srv != nil {
		// the agent keeps running without its status endpoint
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil {
				log.Error("status server stopped", "error", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("outreach agent stopped")
	return nil
}
