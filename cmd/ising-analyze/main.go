// Package main runs blocking and jackknife analysis of sample files.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"ising-mc/internal/config"

	analyzecmd "ising-mc/internal/cmd/analyze"
)

func main() {
	cfg, err := analyzecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := analyzecmd.Run(ctx, cfg, os.Stdout, os.Stderr); err != nil {
		config.Exitf("Error: %v", err)
	}
}
