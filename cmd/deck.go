package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/unchained-app/unchained/ctxutil"
	"github.com/unchained-app/unchained/djscript"
	"github.com/unchained-app/unchained/engine"
	"github.com/unchained-app/unchained/library/fs"
	"github.com/unchained-app/unchained/store"
)

func deckCommand() *cli.Command {
	//nolint:exhaustruct
	return &cli.Command{
		Name:        "deck",
		Usage:       "Run deck commands from a script file or stdin",
		ArgsUsage:   "[SCRIPT]",
		Description: "Commands, one per line:\n   " + strings.Join(djscript.Help(), "\n   "),
		Flags: []cli.Flag{
			//nolint:exhaustruct
			&cli.BoolFlag{Name: "events", Usage: "Print engine events as they happen"},
			//nolint:exhaustruct
			&cli.BoolFlag{Name: "save-on-exit", Usage: "Store the state of every loaded deck when the script ends"},
		},
		Action: action(func(cliCtx *cli.Context, e *env) (err error) {
			stateDir := fs.From(e.cfg.StateDir)
			if err := stateDir.Ensure(); nil != err {
				return err
			}

			var script io.Reader = os.Stdin
			if path := cliCtx.Args().First(); path != "" && path != "-" {
				f, openErr := os.Open(path)
				if nil != openErr {
					return fmt.Errorf("failed to open script: %v", openErr)
				}
				defer func() {
					if closeErr := f.Close(); nil != closeErr && nil == err {
						err = fmt.Errorf("failed to close script: %v", closeErr)
					}
				}()
				script = f
			}

			toasts := store.NewToasts(store.DefaultToastTTL)
			defer toasts.Close()

			eng := engine.New(e.client, e.logger)
			dj := store.NewDJ(eng, e.client, stateDir.Prefs(), toasts, e.logger)
			defer dj.Close()

			if cliCtx.Bool("events") {
				unsubscribe := eng.On(func(ev engine.Event) {
					e.logger.Info().Func(ev.Log).Msg("Deck event")
				})
				defer unsubscribe()
			}

			failed, runErr := djscript.New(dj, os.Stdout, e.logger).Run(e.ctx, script)

			if cliCtx.Bool("save-on-exit") {
				// Saves still complete shortly after an interrupt.
				saveCtx, cancel := ctxutil.WithDelayedTimeout(e.ctx, 5*time.Second)
				defer cancel()
				for _, id := range dj.Get().DeckOrder {
					stateID, err := dj.SaveDeckState(saveCtx, id)
					if nil != err {
						// Backend failures were already reported by the store.
						continue
					}
					e.logger.Info().Str("deck", id.String()).Int("deck_state_id", stateID).Msg("Deck state saved")
				}
			}

			if nil != runErr {
				return runErr
			}
			if failed > 0 {
				return fmt.Errorf("%d deck commands failed", failed)
			}
			return nil
		}),
	}
}
