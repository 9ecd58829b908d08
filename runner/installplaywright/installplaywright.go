package installplaywright

import (
	"context"
	"fmt"
	"os"

	"github.com/gosom/selfstorage-scraper/browser"
	"github.com/gosom/selfstorage-scraper/runner"
)

type installer struct {
	install func() error
}

func New(cfg *runner.Config) (runner.Runner, error) {
	if cfg.RunMode != runner.RunModeInstallPlaywright {
		return nil, fmt.Errorf("%w: %d", runner.ErrInvalidRunMode, cfg.RunMode)
	}

	return &installer{install: browser.Install}, nil
}

func (i *installer) Run(context.Context) error {
	fmt.Fprintln(os.Stderr, "[INSTALL] installing playwright driver and chromium")

	if err := i.install(); err != nil {
		return fmt.Errorf("playwright install failed: %w", err)
	}

	fmt.Fprintln(os.Stderr, "[INSTALL] done")

	return nil
}

func (i *installer) Close(context.Context) error {
	return nil
}
