// Package main provides the entry point for the BookStack sync API server.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"
	"github.com/spf13/pflag"

	"github.com/faithconnect/bookstack-sync/internal/config"
	"github.com/faithconnect/bookstack-sync/internal/di"
	"github.com/faithconnect/bookstack-sync/internal/logger"
)

func main() {
	fs := pflag.NewFlagSet("bookstack-sync-api", pflag.ExitOnError)
	flags := config.RegisterFlags(fs)
	_ = fs.Parse(os.Args[1:])

	// Create DI container
	injector := di.NewContainer(flags)

	// Bootstrap all services
	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap server: %v\n", err)
		os.Exit(1)
	}

	// Get logger for shutdown messages
	log := do.MustInvoke[*logger.Logger](injector)

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	// The container stops the HTTP server, cancels background syncs and
	// closes the journal, in reverse dependency order.
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}

	log.Info("Server stopped")
}
