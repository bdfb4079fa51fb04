package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Display        string
	DoubleBuffered bool
	Tick           time.Duration
	Width, Height  int
	Seed           int64
	MaxTicks       int
	Snapshot       string
	LogLevel       string
}

func Default() Config {
	return Config{
		Tick:     time.Second,
		Width:    400,
		Height:   300,
		LogLevel: "info",
	}
}

// Parse reads args (without the program name) on top of Default. A help
// request is returned as pflag.ErrHelp.
func Parse(name string, args []string) (Config, error) {
	cfg := Default()

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringVar(&cfg.Display, "display", cfg.Display, "X display to connect to (default $DISPLAY)")
	fs.BoolVar(&cfg.DoubleBuffered, "double-buffer", cfg.DoubleBuffered, "request a double-buffered framebuffer config")
	fs.DurationVar(&cfg.Tick, "tick", cfg.Tick, "capture source repaint period")
	fs.IntVar(&cfg.Width, "width", cfg.Width, "initial window width")
	fs.IntVar(&cfg.Height, "height", cfg.Height, "initial window height")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "rectangle generator seed, 0 for a time based one")
	fs.IntVar(&cfg.MaxTicks, "max-ticks", cfg.MaxTicks, "stop after this many ticks, 0 runs until a window is closed")
	fs.StringVar(&cfg.Snapshot, "snapshot", cfg.Snapshot, "write the output window to this PNG file before exiting")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if fs.NArg() > 0 {
		return cfg, fmt.Errorf("unexpected arguments %q: %w", fs.Args(), ErrInvalid)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d: %w", c.Width, c.Height, ErrInvalid))
	}
	if c.Tick <= 0 {
		errs = append(errs, fmt.Errorf("tick %s: %w", c.Tick, ErrInvalid))
	}
	if c.MaxTicks < 0 {
		errs = append(errs, fmt.Errorf("max ticks %d: %w", c.MaxTicks, ErrInvalid))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log level %q: %w", c.LogLevel, ErrInvalid))
	}
	return errors.Join(errs...)
}
