package clicmds

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"gitlab.com/browserstep/fixture"
)

// FixtureFlags configures the fixture server
func FixtureFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "addr",
			Usage: "address to serve fixture pages on",
			Value: "127.0.0.1:8088",
		},
	}
}

// Fixtures serves the fixture pages until interrupted
func Fixtures(cliCtx *cli.Context) error {
	port, srv, err := fixture.Start(cliCtx.String("addr"))
	if err != nil {
		return err
	}
	log.Info().Str("port", port).Msg("serving fixture pages")

	ctx, cancel := signalContext()
	defer cancel()
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
