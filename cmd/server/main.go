package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Tyrowin/chatrelay/internal/chat"
	"github.com/Tyrowin/chatrelay/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the chat core to the WebSocket gateway and serves HTTP until an
// interrupt or a server failure.
func run() error {
	cfg, err := server.LoadConfig()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(cfg.LogLevel)
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	hub := chat.NewHub(log)
	gateway := server.NewGateway(cfg, log, hub)
	go gateway.Run()

	httpServer := server.CreateServer(cfg.Port, server.SetupRoutes(gateway))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		if err := server.StartServer(httpServer, log); err != nil {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		_ = gateway.Shutdown(cfg.ShutdownTimeout)
		return err
	}

	if err := server.ShutdownServer(httpServer, cfg.ShutdownTimeout, log); err != nil {
		log.Warn("HTTP server did not stop cleanly", "error", err)
	}
	if err := gateway.Shutdown(cfg.ShutdownTimeout); err != nil {
		log.Warn("Gateway did not stop cleanly", "error", err)
	}
	log.Info("Server stopped cleanly")
	return nil
}
