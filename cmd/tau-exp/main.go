// Package main runs long single-site chains for tau_exp measurements.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"ising-mc/internal/config"

	tauexpcmd "ising-mc/internal/cmd/tauexp"
)

func main() {
	cfg, err := tauexpcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := tauexpcmd.Run(ctx, cfg, os.Stdout, os.Stderr); err != nil {
		config.Exitf("Error: %v", err)
	}
}
