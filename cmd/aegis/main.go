// Aegis - a security gatekeeper for machine-learning artifacts.
//
// Given a path, it inspects files, classifies them by format, runs
// format-specific static analyses for code-execution, data-poisoning,
// and secret-leakage hazards, and produces a pass/fail verdict.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/asteroid-belt/aegis/internal/cli"
	"github.com/asteroid-belt/aegis/internal/config"
	"github.com/asteroid-belt/aegis/internal/log"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if cfg, err := config.Load(); err == nil {
		if err := log.Init(filepath.Join(cfg.BaseDir, "logs")); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file: %v\n", err)
		} else {
			defer log.Close()
		}
	}

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
