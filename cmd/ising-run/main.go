// Package main runs batch Metropolis runs over an (L, beta) grid.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"ising-mc/internal/config"

	isingruncmd "ising-mc/internal/cmd/isingrun"
)

func main() {
	cfg, err := isingruncmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := isingruncmd.Run(ctx, cfg, os.Stdout, os.Stderr); err != nil {
		config.Exitf("Error: %v", err)
	}
}
