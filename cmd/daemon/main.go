// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/svoss/recplan/internal/api"
	"github.com/svoss/recplan/internal/config"
	"github.com/svoss/recplan/internal/history"
	"github.com/svoss/recplan/internal/listings"
	rlog "github.com/svoss/recplan/internal/log"
	"github.com/svoss/recplan/internal/plan"
	"github.com/svoss/recplan/internal/rules"
	"github.com/svoss/recplan/internal/sched"
	"github.com/svoss/recplan/internal/tunerctl"
	"golang.org/x/sys/unix"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	rlog.Configure(rlog.Config{Level: cfg.LogLevel, Service: "recplan"})
	logger := rlog.WithComponent("daemon")
	logger.Info().
		Str("version", version).
		Str("listen", cfg.Listen).
		Str("data_dir", cfg.DataDir).
		Msg("starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Fatal().Err(err).Msg("create data dir failed")
	}

	ruleMgr := rules.NewManager(cfg.DataDir)
	if err := ruleMgr.Load(); err != nil {
		logger.Fatal().Err(err).Msg("load rules failed")
	}
	if err := ruleMgr.Watch(ctx); err != nil {
		logger.Fatal().Err(err).Msg("watch rules failed")
	}

	guide := listings.NewFileSource(cfg.DataDir)
	if err := guide.Load(); err != nil {
		logger.Fatal().Err(err).Msg("load listings failed")
	}
	if err := guide.Watch(ctx); err != nil {
		logger.Fatal().Err(err).Msg("watch listings failed")
	}

	store, err := history.Open(filepath.Join(cfg.DataDir, "history.db"))
	if err != nil {
		logger.Fatal().Err(err).Msg("open history failed")
	}
	defer store.Close()

	backend := tunerctl.NewLoopback()
	deps := plan.Deps{
		History:   store,
		FreeSpace: freeSpace(cfg.DataDir),
	}

	scheduler := sched.New(ruleMgr, guide, backend, store, deps, cfg.PlanConfig(), cfg.PlanTuners(), sched.Options{
		BaseInterval:  config.Duration(cfg.Loop.Interval, 10*time.Minute),
		MaxInterval:   config.Duration(cfg.Loop.MaxInterval, time.Hour),
		Jitter:        config.Duration(cfg.Loop.Jitter, 30*time.Second),
		Horizon:       config.Duration(cfg.Loop.Horizon, 7*24*time.Hour),
		PreemptWarn:   config.Duration(cfg.Loop.PreemptWarn, 2*time.Minute),
		PromptTimeout: config.Duration(cfg.Loop.PromptTimeout, 45*time.Second),
		DataDir:       cfg.DataDir,
	})
	scheduler.RestorePersisted()
	ruleMgr.Subscribe(func() { scheduler.Trigger("rules_changed") })
	guide.Subscribe(func() { scheduler.Trigger("listings_refresh") })
	scheduler.Start(ctx)

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           api.New(scheduler, ruleMgr, store).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", cfg.Listen).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
	logger.Info().Msg("stopped")
}

// freeSpace reports the bytes available on the filesystem holding the data
// dir. Storage groups share one volume in this deployment shape.
func freeSpace(dataDir string) plan.FreeSpaceFunc {
	return func(string) int64 {
		var st unix.Statfs_t
		if err := unix.Statfs(dataDir, &st); err != nil {
			// Unknown is treated as plentiful; the planner only downgrades
			// on a definite shortage.
			return 1 << 62
		}
		return int64(st.Bavail) * int64(st.Bsize)
	}
}
