package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gosom/selfstorage-scraper/runner"
	"github.com/gosom/selfstorage-scraper/runner/filerunner"
	"github.com/gosom/selfstorage-scraper/runner/installplaywright"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan

		log.Println("Received signal, finishing current step and exporting what was collected...")

		cancel()
	}()

	cfg := runner.ParseConfig()

	if cfg.RunMode == runner.RunModeFile {
		runner.Banner(os.Stderr, cfg)
	}

	runnerInstance, err := runnerFactory(ctx, cfg)
	if err != nil {
		cancel()
		os.Stderr.WriteString(err.Error() + "\n")

		os.Exit(1)
	}

	if err := runnerInstance.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		os.Stderr.WriteString(err.Error() + "\n")

		_ = runnerInstance.Close(ctx)

		cancel()

		os.Exit(1)
	}

	if err := runnerInstance.Close(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "closing: %v\n", err)
	}
}

func runnerFactory(ctx context.Context, cfg *runner.Config) (runner.Runner, error) {
	switch cfg.RunMode {
	case runner.RunModeFile:
		return filerunner.New(ctx, cfg)
	case runner.RunModeInstallPlaywright:
		return installplaywright.New(cfg)
	default:
		return nil, fmt.Errorf("%w: %d", runner.ErrInvalidRunMode, cfg.RunMode)
	}
}
