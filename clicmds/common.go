package clicmds

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/davecgh/go-spew/spew"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"gitlab.com/browserstep/harness"
)

func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "TOML config with defaults and the environment matrix",
			Value: "",
		},
		&cli.StringFlag{
			Name:  "url",
			Usage: "url of the site under test, overrides the config",
			Value: "",
		},
		&cli.StringSliceFlag{
			Name:    "env",
			Usage:   "environment(s) to run, all configured environments when unset",
			EnvVars: []string{"BROWSERSTEP_ENVS"},
		},
		&cli.StringFlag{
			Name:  "errors",
			Usage: "directory failure screenshots are written to",
			Value: "",
		},
		&cli.BoolFlag{
			Name:  "headless",
			Usage: "force headless mode on or off for every environment",
		},
		&cli.BoolFlag{
			Name:  "dump",
			Usage: "dump the resolved config before running",
			Value: false,
		},
	}
}

// loadConfig reads --config if given and applies the command line overrides
func loadConfig(cliCtx *cli.Context) (*harness.Config, error) {
	cfg := harness.DefaultConfig()
	if path := cliCtx.String("config"); path != "" {
		var err error
		if cfg, err = harness.LoadConfig(path); err != nil {
			return nil, err
		}
	}

	if cliCtx.String("url") != "" {
		cfg.URL = cliCtx.String("url")
	}
	if cliCtx.String("errors") != "" {
		cfg.ErrorDir = cliCtx.String("errors")
	}
	if cliCtx.IsSet("headless") {
		for i := range cfg.Environments {
			cfg.Environments[i].Headless = cliCtx.Bool("headless")
		}
	}

	if cliCtx.Bool("dump") {
		spew.Dump(cfg)
	}
	return cfg, cfg.Validate()
}

// signalContext is cancelled on ctrl-c or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-c:
			log.Info().Msg("Ctrl-C Pressed, shutting down")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(c)
	}()
	return ctx, cancel
}
