package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/finzz-app/finzz-client/internal/api"
	"github.com/finzz-app/finzz-client/internal/cache"
	"github.com/finzz-app/finzz-client/internal/config"
	"github.com/finzz-app/finzz-client/internal/credential"
	"github.com/finzz-app/finzz-client/internal/logger"
	"github.com/finzz-app/finzz-client/internal/model"
	"github.com/finzz-app/finzz-client/internal/queue"
	"github.com/finzz-app/finzz-client/internal/session"
	storage "github.com/finzz-app/finzz-client/internal/storage/badger"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	kv, err := storage.NewStore(storage.Config{
		Path:       cfg.Storage.Path,
		InMemory:   cfg.Storage.InMemory,
		SyncWrites: cfg.Storage.SyncWrites,
		Logger:     logger.Component("storage"),
	})
	if err != nil {
		logger.Fatal("failed to open local storage", "error", err)
	}
	defer kv.Close()

	creds := credential.NewStore(kv, logger.Component("credential"))
	dataCache := cache.New(kv, logger.Component("cache"))
	syncQueue := queue.New(kv, logger.Component("queue"))

	client := api.NewClient(cfg.API.BaseURL, cfg.API.Timeout, creds, logger.Component("api"))
	controller := session.NewController(client, creds, dataCache, syncQueue, logger.Component("session"))

	logAppVersion()

	controller.Bootstrap(ctx)
	logger.Info("session state resolved", "state", controller.State())

	// flush mutations queued by a previous offline run
	if controller.State() == model.StateAuthenticated && syncQueue.Len() > 0 {
		logger.Info("draining sync queue", "pending", syncQueue.Len())
		syncQueue.Drain(ctx, client.ReplayIntent)
		logger.Info("sync queue drained", "remaining", syncQueue.Len())
	}

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
