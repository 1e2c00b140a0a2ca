// Command viewkit-demo serves the example project tracker built on the
// viewkit packages.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/louisbranch/viewkit/config"
	"github.com/louisbranch/viewkit/internal/demo"
)

func main() {
	cfg, err := demo.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}

	log.SetPrefix("[VIEWKIT-DEMO] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := demo.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
