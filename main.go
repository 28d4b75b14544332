package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	logger "github.com/sirupsen/logrus"

	"github.com/depdoctor/depdoctor/cmd"
	"github.com/depdoctor/depdoctor/domain"
)

const (
	exitFatal = 1
	exitUsage = 2
)

func main() {
	//nolint:exhaustruct // Minimal TextFormatter initialization with required fields only
	logger.SetFormatter(&logger.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})
	if os.Getenv("DEBUG") == "true" {
		logger.SetLevel(logger.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		var usageErr *domain.UsageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitUsage)
		}
		logger.Errorf("Error executing 'depdoctor': %v", err)
		os.Exit(exitFatal)
	}
}
