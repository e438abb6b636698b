package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"github.com/xeptore/flaw/v8"

	"github.com/unchained-app/unchained/constant"
	"github.com/unchained-app/unchained/errutil"
	"github.com/unchained-app/unchained/log"
)

const (
	flagConfigFilePath = "config"
	flagLogLevel       = "log-level"
	flagLogFormat      = "log-format"
	flagDebug          = "debug"
	flagJSON           = "json"
)

func main() {
	logger := log.NewPretty(os.Stderr).Level(zerolog.InfoLevel)
	if err := godotenv.Load(); nil != err {
		if errors.Is(err, os.ErrNotExist) {
			logger.Debug().Msg(".env file was not found")
		} else {
			logger.Fatal().Err(err).Msg("Failed to load .env file")
		}
	}

	var debug bool
	//nolint:exhaustruct
	app := &cli.App{
		Name:     "unchained",
		Version:  constant.Version,
		Compiled: constant.CompileTime,
		Suggest:  true,
		Usage:    "UNCHAINED music library and DJ client",
		Flags: []cli.Flag{
			//nolint:exhaustruct
			&cli.StringFlag{
				Name:    flagConfigFilePath,
				Aliases: []string{"c"},
				Usage:   "Config file path",
			},
			//nolint:exhaustruct
			&cli.StringFlag{
				Name:    flagLogLevel,
				Usage:   "Log level overriding the config file",
				EnvVars: []string{"UNCHAINED_LOG_LEVEL"},
			},
			//nolint:exhaustruct
			&cli.StringFlag{
				Name:    flagLogFormat,
				Usage:   "Log format: pretty or packed (one JSON object per line)",
				Value:   log.FormatPretty,
				EnvVars: []string{"UNCHAINED_LOG_FORMAT"},
			},
			//nolint:exhaustruct
			&cli.BoolFlag{
				Name:        flagDebug,
				Usage:       "Print a detailed error report on failure",
				Destination: &debug,
			},
			//nolint:exhaustruct
			&cli.BoolFlag{
				Name:  flagJSON,
				Usage: "Print results as JSON",
			},
		},
		Commands: []*cli.Command{
			healthCommand(),
			tracksCommand(),
			searchCommand(),
			scanCommand(),
			deckCommand(),
			djCommand(),
			effectsCommand(),
			metadataCommand(),
			analyticsCommand(),
			notifyCommand(),
			viewCommand(),
		},
	}

	if err := app.Run(os.Args); nil != err {
		if errors.Is(err, context.Canceled) {
			logger.Trace().Msg("Application was canceled")
			return
		}
		if flawErr := new(flaw.Flaw); errors.As(err, &flawErr) {
			if debug {
				if report, reportErr := errutil.FlawToYAML(flawErr); nil == reportErr {
					fmt.Fprintf(os.Stderr, "%s\n", report)
				}
			}
			logger.Fatal().Func(log.Flaw(flawErr)).Msg("Application exited with flaw")
			return
		}
		logger.Fatal().Err(err).Msg("Application exited with error")
	}
}
