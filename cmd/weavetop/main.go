// weavetop is a terminal dashboard for a running timeweave engine. It talks
// to the engine console and needs no other access.
//
// Usage:
//
//	go run ./cmd/weavetop
//
// The console address and charset come from TIMEWEAVE_CONFIG (default
// config/timeweave.toml); the password, if any, from TIMEWEAVE_PASSWORD.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/timeweave/engine/internal/config"
	"github.com/timeweave/engine/internal/dashboard"
	gonet "github.com/timeweave/engine/internal/net"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := "config/timeweave.toml"
	if p := os.Getenv("TIMEWEAVE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	charset, err := gonet.Charset(cfg.Console.Charset)
	if err != nil {
		return err
	}

	addr := cfg.Console.BindAddress
	client, err := dashboard.Dial(addr, charset, zap.NewNop())
	if err != nil {
		return err
	}
	defer client.Close()

	if pw := os.Getenv("TIMEWEAVE_PASSWORD"); pw != "" {
		if err := client.Send("auth " + pw); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
		if err := awaitAuth(client); err != nil {
			return err
		}
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	return dashboard.Run(screen, client, addr, 250*time.Millisecond)
}

// awaitAuth skips the greeting and waits for the auth reply.
func awaitAuth(client *dashboard.Client) error {
	timeout := time.After(5 * time.Second)
	for {
		select {
		case line, ok := <-client.Lines():
			if !ok {
				return fmt.Errorf("console closed during auth")
			}
			switch {
			case line == "ok":
				return nil
			case line == "denied", strings.HasPrefix(line, "usage:"):
				return fmt.Errorf("auth rejected: %s", line)
			}
		case <-timeout:
			return fmt.Errorf("auth timed out")
		}
	}
}
