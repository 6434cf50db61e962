package main

import (
	"context"
	"os"
	"os/signal"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/blobgame/blob/internal/cache"
	"github.com/blobgame/blob/internal/database"
	"github.com/blobgame/blob/internal/game"
	"github.com/blobgame/blob/internal/server"
	"github.com/blobgame/blob/internal/session"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if os.Getenv("BLOB_VERBOSE") != "" {
		logrus.SetLevel(logrus.DebugLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Identity persistence: Postgres when configured, in-memory otherwise.
	var users game.UserStore
	if os.Getenv("PG_HOST") != "" {
		pool, err := database.Connect(ctx)
		if err != nil {
			logrus.Fatalf("failed to connect to database: %v", err)
		}
		defer pool.Close()
		users = database.NewUserStore(pool)
	} else {
		logrus.Warn("PG_HOST not set, using in-memory user store")
		users = database.NewMemoryUserStore()
	}

	// Optional action feed.
	actions, err := cache.Connect(ctx)
	if err != nil {
		logrus.Fatalf("failed to connect to redis: %v", err)
	}
	var logger game.ActionLogger
	if actions != nil {
		logger = actions
	}

	manager := game.NewManager(users, logger)
	registry := session.NewRegistry(users)
	srv := server.New(manager, registry, users)

	port := os.Getenv("BLOB_PORT")
	if port == "" {
		port = "8108"
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenTCP(ctx, ":"+port)
	}()
	if wsPort := os.Getenv("BLOB_WS_PORT"); wsPort != "" {
		go func() {
			errc <- srv.ListenWS(ctx, ":"+wsPort)
		}()
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	select {
	case err := <-errc:
		if err != nil {
			logrus.Errorf("failed to serve: %v", err)
		}
	case sig := <-sigs:
		logrus.Infof("terminating: %v", sig)
	}
}
