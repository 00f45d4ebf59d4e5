package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"gitlab.com/browserstep/clicmds"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	app := cli.NewApp()
	app.Name = "Browserstep"
	app.Version = "0.1"
	app.Usage = "Runs end to end browser scenarios against an environment matrix"
	app.Commands = []*cli.Command{
		{
			Name:    "run",
			Aliases: []string{"r"},
			Usage:   "run the account creation scenario",
			Action:  clicmds.Run,
			Flags:   clicmds.RunnerFlags(),
		},
		{
			Name:    "plan",
			Aliases: nil,
			Usage:   "print the steps each environment would run",
			Action:  clicmds.Plan,
			Flags:   clicmds.PlanFlags(),
		},
		{
			Name:    "fixtures",
			Aliases: nil,
			Usage:   "serve the local fixture pages",
			Action:  clicmds.Fixtures,
			Flags:   clicmds.FixtureFlags(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("browserstep failed")
	}
}
