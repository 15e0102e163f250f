package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Tyrowin/chatrelay/internal/client"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := client.LoadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	flag.StringVar(&cfg.ServerURL, "url", cfg.ServerURL, "relay WebSocket URL")
	flag.StringVar(&cfg.Name, "name", cfg.Name, "name to join with")
	flag.StringVar(&cfg.Origin, "origin", cfg.Origin, "Origin header to present")
	flag.BoolVar(&cfg.Colours, "colours", cfg.Colours, "colorize output")
	flag.Parse()

	log := logs.GetLoggerFromString(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := client.Dial(ctx, cfg, log)
	if err != nil {
		return err
	}

	console := client.NewConsole(conn, client.NewRenderer(os.Stdout, cfg.Colours))
	if cfg.Name != "" {
		if _, err := console.HandleLine(cfg.Name); err != nil {
			_ = conn.Close()
			return err
		}
	} else {
		fmt.Println("Enter a name to join (/quit to exit):")
	}

	return console.Run(ctx, os.Stdin)
}
