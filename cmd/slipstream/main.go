package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/slipstream-app/slipstream/pkg/slipstream"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := slipstream.Main(ctx, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
