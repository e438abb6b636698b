package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/unchained-app/unchained/errutil"
	"github.com/unchained-app/unchained/library"
	"github.com/unchained-app/unchained/library/events"
	"github.com/unchained-app/unchained/ptr"
)

func notifyCommand() *cli.Command {
	//nolint:exhaustruct
	return &cli.Command{
		Name:  "notify",
		Usage: "Listen to or emit backend notifications",
		Subcommands: []*cli.Command{
			{
				Name:  "listen",
				Usage: "Print backend notifications until interrupted",
				Flags: []cli.Flag{
					//nolint:exhaustruct
					&cli.IntFlag{Name: "count", Usage: "Exit after this many notifications"},
				},
				Action: action(func(cliCtx *cli.Context, e *env) error {
					ctx, cancel := context.WithCancel(e.ctx)
					defer cancel()

					limit, received := cliCtx.Int("count"), 0
					stream := events.New(e.client, e.logger, e.cfg.Notifications.MaxBackoff)
					err := stream.Run(ctx, func(n library.Notification) {
						text := n.Title
						if n.Body != "" {
							text += ": " + n.Body
						}
						if nil != n.TrackID {
							text += fmt.Sprintf(" (track %d)", *n.TrackID)
						}
						if err := e.out.value(n, text); nil != err {
							e.logger.Error().Err(err).Msg("Failed to print notification")
						}
						received++
						if limit > 0 && received >= limit {
							cancel()
						}
					})
					if !errutil.IsContext(ctx) {
						return err
					}
					e.logger.Info().Int("received", received).Msg("Stopped listening")
					return nil
				}),
			},
			{
				Name:  "emit",
				Usage: "Broadcast a notification to every listener",
				Flags: []cli.Flag{
					//nolint:exhaustruct
					&cli.StringFlag{Name: "type", Value: library.EventInfo},
					//nolint:exhaustruct
					&cli.StringFlag{Name: "message"},
					//nolint:exhaustruct
					&cli.IntFlag{Name: "track"},
				},
				Action: action(func(cliCtx *cli.Context, e *env) error {
					ev := library.ServerEvent{Type: strings.TrimSpace(cliCtx.String("type"))}
					if ev.Type == "" {
						return errors.New("event type must not be empty")
					}
					if cliCtx.IsSet("message") {
						ev.Message = ptr.Of(cliCtx.String("message"))
					}
					if cliCtx.IsSet("track") {
						ev.TrackID = ptr.Of(cliCtx.Int("track"))
					}
					if err := e.client.EmitEvent(e.ctx, ev); nil != err {
						return err
					}
					return e.out.value(ev, fmt.Sprintf("%s event emitted", ev.Type))
				}),
			},
		},
	}
}
