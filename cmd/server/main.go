package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CyberAshu/Chatwave-backend/internal/config"
	"github.com/CyberAshu/Chatwave-backend/internal/logger"
	"github.com/CyberAshu/Chatwave-backend/internal/registry"
	"github.com/CyberAshu/Chatwave-backend/internal/server"
	"github.com/CyberAshu/Chatwave-backend/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.FromEnv()
	log := logger.Setup(cfg.LogLevel)

	var st store.Store
	if cfg.MongoURI != "" {
		mongoStore, err := store.ConnectMongo(context.Background(), cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			log.Error("connecting to mongodb", "error", err)
			os.Exit(1)
		}
		st = mongoStore
		log.Info("using mongodb store", "database", cfg.MongoDatabase)
	} else {
		st = store.NewMemoryStore()
		log.Warn("MONGO_URI not set, using in-memory store")
	}

	reg := registry.New(st, log)
	handler := server.NewHandler(cfg, reg, st, log)
	httpServer := server.CreateServer(cfg.Port, server.SetupRoutes(handler))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer)
	}()

	select {
	case sig := <-stop:
		log.Info("received signal, shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
		}
	}

	_ = server.ShutdownServer(httpServer, shutdownTimeout)
	reg.Shutdown()
	if err := st.Close(context.Background()); err != nil {
		log.Error("closing store", "error", err)
	}
	log.Info("shutdown complete")
}
