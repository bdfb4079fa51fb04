package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/jezek/xgb/xproto"
	"github.com/spf13/pflag"

	"github.com/suutaku/pixmirror/internal/config"
	"github.com/suutaku/pixmirror/internal/gpu"
	"github.com/suutaku/pixmirror/internal/logging"
	"github.com/suutaku/pixmirror/internal/mirror"
	"github.com/suutaku/pixmirror/internal/x11"
	"github.com/suutaku/pixmirror/pkg/screenshot"
)

func main() {
	cfg, err := config.Parse("pixmirror", os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "pixmirror: %v\n", err)
		os.Exit(2)
	}

	logger, err := logging.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pixmirror: %v\n", err)
		os.Exit(2)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("exit", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *log.Logger) error {
	display, err := x11.Open(cfg.Display, logger.WithPrefix("x11"))
	if err != nil {
		return err
	}
	defer display.Close()

	glc, err := gpu.Setup(display.Conn(), display.ScreenNumber(),
		gpu.Options{DoubleBuffered: cfg.DoubleBuffered}, logger.WithPrefix("gpu"))
	if err != nil {
		return fmt.Errorf("rendering context: %w", err)
	}
	logger.Info("rendering context ready", "fbconfig", glc.FBConfig(), "direct", glc.Direct())

	opts := mirror.Options{
		Width:    cfg.Width,
		Height:   cfg.Height,
		Tick:     cfg.Tick,
		Seed:     cfg.Seed,
		MaxTicks: cfg.MaxTicks,
	}
	if cfg.Snapshot != "" {
		opts.OnTerminate = func(output xproto.Window) {
			if err := screenshot.NewScreenshot(display, output).SavePNG(cfg.Snapshot); err != nil {
				logger.Warn("snapshot", "path", cfg.Snapshot, "err", err)
				return
			}
			logger.Info("snapshot saved", "path", cfg.Snapshot)
		}
	}

	driver, err := mirror.NewDriver(display, glc, opts, logger.WithPrefix("mirror"))
	if err != nil {
		return errors.Join(err, glc.Destroy())
	}
	if err := driver.Show(); err != nil {
		return errors.Join(err, driver.Close())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("mirroring", "source", driver.Source(), "output", driver.Output(), "tick", cfg.Tick)
	return driver.Run(ctx, display.Events(ctx))
}
