package clicmds

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"gitlab.com/browserstep/runner"
	"gitlab.com/browserstep/runner/browser"
	"gitlab.com/browserstep/scenario"
)

// RunnerFlags configures a scenario run
func RunnerFlags() []cli.Flag {
	return append(configFlags(),
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "log every element lookup",
			Value: false,
		},
		&cli.BoolFlag{
			Name:  "summary",
			Usage: "print a summary of every step",
			Value: true,
		},
	)
}

// Run the account creation scenario against the selected environments
func Run(cliCtx *cli.Context) error {
	if cliCtx.Bool("debug") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := loadConfig(cliCtx)
	if err != nil {
		log.Error().Err(err).Msg("invalid config")
		return err
	}

	resolver := browser.NewResolver()
	defer resolver.Close()

	ctx, cancel := signalContext()
	defer cancel()

	r := runner.New(cfg, scenario.AccountCreation(nil), resolver.Resolve).
		SetEnvironments(cliCtx.StringSlice("env"))
	summary, err := r.Run(ctx)
	if summary != nil && cliCtx.Bool("summary") {
		summary.Print(os.Stdout)
	}
	if err != nil {
		log.Error().Err(err).Msg("run failed")
		return cli.Exit(err.Error(), 1)
	}
	log.Info().Msg("all environments passed")
	return nil
}
