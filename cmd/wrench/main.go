// Package main loads the wrench configuration and log, reports the resolved
// options and exercises the detour engine on the running process.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/apex/log"
	"github.com/pkg/errors"

	"github.com/k2io/wrench/internal/config"
	"github.com/k2io/wrench/internal/features"
	"github.com/k2io/wrench/internal/logging"
)

type options struct {
	Config  string
	Log     string
	Debug   bool
	Quiet   bool
	Display bool
}

func parseFlags(args []string) (options, error) {
	flags := flag.NewFlagSet("wrench", flag.ContinueOnError)
	var opts options
	flags.StringVar(&opts.Config, "config", "Wrench.toml", "name of the TOML config file")
	flags.StringVar(&opts.Log, "log", "", "name of the log file, stderr if empty")
	flags.BoolVar(&opts.Debug, "debug", false, "enable debug logging")
	flags.BoolVar(&opts.Quiet, "q", false, "log errors only")
	flags.BoolVar(&opts.Display, "display", false, "install the display fixes into the running process")
	if err := flags.Parse(args); err != nil {
		return opts, err
	}
	if flags.NArg() > 0 {
		return opts, errors.Errorf("unexpected argument %s", flags.Arg(0))
	}
	return opts, nil
}

func openLog(opts options) (*log.Logger, func(), error) {
	if opts.Log == "" {
		return logging.New(os.Stderr, opts.Debug, opts.Quiet), func() {}, nil
	}
	f, err := logging.Create(opts.Log)
	if err != nil {
		return nil, nil, err
	}
	return logging.New(f, opts.Debug, opts.Quiet), func() { _ = f.Close() }, nil
}

// loadConfig returns the defaults merged with the config file. A missing
// or broken file leaves the defaults in place.
func loadConfig(path string, l log.Interface) *config.Config {
	cfg := config.New()
	features.Defaults(cfg)
	if path == "" {
		return cfg
	}
	if err := cfg.Load(path); err != nil {
		logging.Func(l, "LoadConfig").Errorf("Could not load %s: %v", path, err)
	}
	return cfg
}

func run(opts options, stdout io.Writer) error {
	logger, closeLog, err := openLog(opts)
	if err != nil {
		return err
	}
	defer closeLog()

	cfg := loadConfig(opts.Config, logger)
	features.LogConfig(cfg, logger)

	if opts.Display {
		if err := installDisplay(cfg, logger); err != nil {
			return err
		}
	}
	return selfTest(logger, stdout)
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(opts, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
