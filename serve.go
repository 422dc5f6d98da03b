package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"matchserver/config"
	"matchserver/loghandler"
	"matchserver/server"
	"matchserver/session"
	"matchserver/store"
)

// run bootstraps the persistence layer and core server, then accepts
// connections until ctx is cancelled by a shutdown signal.
func run(ctx context.Context, cfg *config.Config) error {
	slog.SetDefault(slog.New(loghandler.NewCompactHandler(os.Stdout, slog.LevelInfo)))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.NewStore(ctx, cfg.DatabaseURL, cfg.BaseRating)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	if st != nil {
		defer st.Close()
		slog.Info("persistence enabled", "tag", "server")
	} else {
		slog.Info("persistence disabled, no database URL configured", "tag", "server")
	}

	// Assigning a nil *store.Store directly to the store.RankingStore
	// interface parameter would produce a non-nil interface wrapping a nil
	// pointer; keep the interface itself nil when persistence is off.
	var rankingStore store.RankingStore
	if st != nil {
		rankingStore = st
	}

	srv := server.New(cfg, rankingStore)

	addr := fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	slog.Info("listening", "tag", "server", "addr", addr)

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, closing listener", "tag", "server")
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("accept: %w", err)
			}
		}
		go session.New(conn, srv, cfg.MaxLineBytes, cfg.MailboxDepth).Serve(ctx)
	}
}
