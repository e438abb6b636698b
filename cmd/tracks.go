package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"github.com/unchained-app/unchained/errutil"
	"github.com/unchained-app/unchained/library"
	"github.com/unchained-app/unchained/search"
)

func healthCommand() *cli.Command {
	//nolint:exhaustruct
	return &cli.Command{
		Name:  "health",
		Usage: "Check backend health",
		Action: action(func(_ *cli.Context, e *env) error {
			if err := e.client.Health(e.ctx); nil != err {
				return err
			}
			return e.out.value(map[string]string{"status": "ok"}, "backend at "+e.client.BaseURL()+" is healthy")
		}),
	}
}

func trackRows(tracks []library.Track) [][]string {
	return lo.Map(tracks, func(t library.Track, _ int) []string {
		return []string{strconv.Itoa(t.ID), t.DisplayTitle(), orDash(t.Artist), orDash(t.Album), formatDuration(t.DurationMs)}
	})
}

var trackHeader = []string{"ID", "TITLE", "ARTIST", "ALBUM", "LENGTH"}

func intArg(cliCtx *cli.Context, i int, name string) (int, error) {
	s := cliCtx.Args().Get(i)
	if s == "" {
		return 0, fmt.Errorf("missing %s argument", name)
	}
	v, err := strconv.Atoi(s)
	if nil != err {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return v, nil
}

func tracksCommand() *cli.Command {
	//nolint:exhaustruct
	return &cli.Command{
		Name:  "tracks",
		Usage: "List, show and import tracks",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List all tracks",
				Action: action(func(_ *cli.Context, e *env) error {
					tracks, err := fetch(e.ctx, "list tracks", e.client.Tracks)
					if nil != err {
						return err
					}
					return e.out.table(tracks, trackHeader, trackRows(tracks))
				}),
			},
			{
				Name:      "show",
				Usage:     "Show a track",
				ArgsUsage: "TRACK_ID",
				Action: action(func(cliCtx *cli.Context, e *env) error {
					id, err := intArg(cliCtx, 0, "track id")
					if nil != err {
						return err
					}
					track, err := fetch(e.ctx, "get track", func(ctx context.Context) (*library.Track, error) { return e.client.Track(ctx, id) })
					if nil != err {
						return err
					}
					return e.out.table(track, trackHeader, trackRows([]library.Track{*track}))
				}),
			},
			{
				Name:      "import",
				Usage:     "Upload audio files into the library",
				ArgsUsage: "FILE...",
				Action: action(func(cliCtx *cli.Context, e *env) error {
					if cliCtx.NArg() == 0 {
						return errors.New("no files given")
					}
					var results []library.ImportResult
					for _, name := range cliCtx.Args().Slice() {
						res, err := importFile(e, name)
						if nil != err {
							return err
						}
						e.logger.Info().Str("file", name).Int("track_id", res.TrackID).Msg("Track imported")
						results = append(results, *res)
					}
					rows := lo.Map(results, func(r library.ImportResult, _ int) []string { return []string{strconv.Itoa(r.TrackID), r.Message} })
					return e.out.table(results, []string{"TRACK_ID", "MESSAGE"}, rows)
				}),
			},
		},
	}
}

func importFile(e *env, name string) (res *library.ImportResult, err error) {
	f, err := os.Open(name)
	if nil != err {
		return nil, fmt.Errorf("failed to open %q: %v", name, err)
	}
	defer func() {
		if closeErr := f.Close(); nil != closeErr && nil == err {
			err = fmt.Errorf("failed to close %q: %v", name, closeErr)
		}
	}()
	return e.client.ImportTrack(e.ctx, name, f)
}

func searchCommand() *cli.Command {
	//nolint:exhaustruct
	return &cli.Command{
		Name:      "search",
		Usage:     "Search tracks locally and on the backend",
		ArgsUsage: "TERM",
		Flags: []cli.Flag{
			//nolint:exhaustruct
			&cli.BoolFlag{Name: "local", Usage: "Only match against the track list"},
			//nolint:exhaustruct
			&cli.DurationFlag{Name: "wait", Value: 5 * time.Second, Usage: "How long to wait for remote results"},
		},
		Action: action(func(cliCtx *cli.Context, e *env) error {
			term := cliCtx.Args().First()
			if term == "" {
				return errors.New("missing search term")
			}

			s := search.New(e.client, e.cfg.Search.Debounce, e.logger).WithLimit(e.cfg.Search.Limit)
			defer s.Close()

			tracks, err := fetch(e.ctx, "list tracks", e.client.Tracks)
			if nil != err {
				return err
			}
			s.SetTracks(tracks)

			if cliCtx.Bool("local") {
				local := s.Local(term)
				return e.out.table(local, trackHeader, trackRows(local))
			}

			var (
				done     = make(chan struct{})
				doneOnce sync.Once
			)
			unsubscribe := s.Subscribe(func(r search.Results) {
				if nil != r.Remote || nil != r.Err {
					doneOnce.Do(func() { close(done) })
				}
			})
			defer unsubscribe()
			s.Submit(term)

			select {
			case <-done:
			case <-time.After(cliCtx.Duration("wait")):
				e.logger.Warn().Msg("Remote search timed out, showing local matches")
			case <-e.ctx.Done():
				return e.ctx.Err()
			}
			if err := s.Get().Err; nil != err && !errutil.IsContext(e.ctx) {
				e.logger.Warn().Err(err).Msg("Remote search failed, showing local matches")
			}
			results := s.Results()
			return e.out.table(results, trackHeader, trackRows(results))
		}),
	}
}

func scanCommand() *cli.Command {
	//nolint:exhaustruct
	return &cli.Command{
		Name:      "scan",
		Usage:     "Index a local folder on the backend host",
		ArgsUsage: "FOLDER",
		Flags: []cli.Flag{
			//nolint:exhaustruct
			&cli.BoolFlag{Name: "copy", Usage: "Copy files into the library instead of referencing them"},
		},
		Action: action(func(cliCtx *cli.Context, e *env) error {
			folder := cliCtx.Args().First()
			if folder == "" {
				return errors.New("missing folder argument")
			}
			indexed, err := e.client.ScanLocalFolder(e.ctx, folder, cliCtx.Bool("copy"))
			if nil != err {
				return err
			}
			return e.out.value(map[string]int{"indexed": indexed}, fmt.Sprintf("indexed %d files from %s", indexed, folder))
		}),
	}
}
