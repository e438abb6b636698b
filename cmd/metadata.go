package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"github.com/unchained-app/unchained/library"
	"github.com/unchained-app/unchained/ptr"
)

var candidateHeader = []string{"ID", "SOURCE", "TITLE", "ARTIST", "ALBUM", "YEAR", "SCORE", "APPLIED"}

func candidateRows(candidates []library.Candidate) [][]string {
	return lo.Map(candidates, func(c library.Candidate, _ int) []string {
		id := "-"
		if nil != c.ID {
			id = strconv.Itoa(*c.ID)
		}
		return []string{
			id,
			c.Source,
			orDash(c.Title),
			orDash(c.Artist),
			orDash(c.Album),
			lo.Ternary(c.Year == "", "-", string(c.Year)),
			formatFloat(c.Score),
			strconv.FormatBool(bool(c.Applied)),
		}
	})
}

var attributionHeader = []string{"FIELD", "VALUE", "SOURCE", "CONFIDENCE", "APPLIED_AT", "REVERTED"}

func attributionRows(attrs []library.Attribution) [][]string {
	return lo.Map(attrs, func(a library.Attribution, _ int) []string {
		return []string{
			a.FieldName,
			orDash(a.Value),
			orDash(a.Source),
			formatFloat(a.Confidence),
			orDash(a.AppliedAt),
			strconv.FormatBool(bool(a.Reverted)),
		}
	})
}

// parseBulkItems reads CANDIDATE_ID:TRACK_ID pairs.
func parseBulkItems(args []string) ([]library.BulkApplyItem, error) {
	items := make([]library.BulkApplyItem, 0, len(args))
	for _, arg := range args {
		c, t, ok := strings.Cut(arg, ":")
		if !ok {
			return nil, fmt.Errorf("invalid pair %q: expected CANDIDATE_ID:TRACK_ID", arg)
		}
		candidateID, err := strconv.Atoi(c)
		if nil != err {
			return nil, fmt.Errorf("invalid candidate id in %q", arg)
		}
		trackID, err := strconv.Atoi(t)
		if nil != err {
			return nil, fmt.Errorf("invalid track id in %q", arg)
		}
		items = append(items, library.BulkApplyItem{CandidateID: candidateID, TrackID: trackID})
	}
	return items, nil
}

func metadataCommand() *cli.Command {
	//nolint:exhaustruct
	return &cli.Command{
		Name:  "metadata",
		Usage: "Search metadata candidates and manage field attribution",
		Subcommands: []*cli.Command{
			{
				Name:  "search",
				Usage: "Search metadata providers for candidates",
				Flags: []cli.Flag{
					//nolint:exhaustruct
					&cli.StringFlag{Name: "artist"},
					//nolint:exhaustruct
					&cli.StringFlag{Name: "album"},
					//nolint:exhaustruct
					&cli.StringFlag{Name: "title"},
					//nolint:exhaustruct
					&cli.StringFlag{Name: "path", Usage: "Audio file path known to the backend"},
					//nolint:exhaustruct
					&cli.StringFlag{Name: "discogs-token", EnvVars: []string{"DISCOGS_TOKEN"}},
				},
				Action: action(func(cliCtx *cli.Context, e *env) error {
					q := library.CandidateQuery{
						Artist:       cliCtx.String("artist"),
						Album:        cliCtx.String("album"),
						Title:        cliCtx.String("title"),
						PathAudio:    cliCtx.String("path"),
						DiscogsToken: cliCtx.String("discogs-token"),
					}
					if q.Artist == "" && q.Album == "" && q.Title == "" && q.PathAudio == "" {
						return errors.New("at least one of --artist, --album, --title or --path is required")
					}
					res, err := fetch(e.ctx, "search candidates", func(ctx context.Context) (*library.CandidateSearch, error) {
						return e.client.SearchCandidates(ctx, q)
					})
					if nil != err {
						return err
					}
					if !e.out.json {
						e.logger.Info().Str("temp_ref", ptr.ValueOr(res.TempRef, "")).Int("candidates", len(res.Candidates)).Msg("Candidates found")
					}
					return e.out.table(res, candidateHeader, candidateRows(res.Candidates))
				}),
			},
			{
				Name:      "apply",
				Usage:     "Apply a candidate to a track",
				ArgsUsage: "CANDIDATE_ID TRACK_ID",
				Action: action(func(cliCtx *cli.Context, e *env) error {
					candidateID, err := intArg(cliCtx, 0, "candidate id")
					if nil != err {
						return err
					}
					trackID, err := intArg(cliCtx, 1, "track id")
					if nil != err {
						return err
					}
					t, err := e.client.ApplyCandidate(e.ctx, candidateID, trackID)
					if nil != err {
						return err
					}
					return e.out.value(t, fmt.Sprintf("track %d: %s - %s", t.ID, orDash(t.Artist), orDash(t.Title)))
				}),
			},
			{
				Name:      "bulk-apply",
				Usage:     "Apply several candidates at once",
				ArgsUsage: "CANDIDATE_ID:TRACK_ID...",
				Action: action(func(cliCtx *cli.Context, e *env) error {
					items, err := parseBulkItems(cliCtx.Args().Slice())
					if nil != err {
						return err
					}
					if len(items) == 0 {
						return errors.New("no candidate/track pairs given")
					}
					applied, err := e.client.ApplyCandidatesBulk(e.ctx, items)
					if nil != err {
						return err
					}
					return e.out.value(applied, fmt.Sprintf("%d of %d candidates applied", len(applied), len(items)))
				}),
			},
			{
				Name:      "attribution",
				Usage:     "Show where each of a track's fields came from",
				ArgsUsage: "TRACK_ID",
				Action: action(func(cliCtx *cli.Context, e *env) error {
					id, err := intArg(cliCtx, 0, "track id")
					if nil != err {
						return err
					}
					attrs, err := fetch(e.ctx, "get attribution", func(ctx context.Context) ([]library.Attribution, error) {
						return e.client.Attribution(ctx, id)
					})
					if nil != err {
						return err
					}
					return e.out.table(attrs, attributionHeader, attributionRows(attrs))
				}),
			},
			{
				Name:      "revert",
				Usage:     "Revert a field to its previous value",
				ArgsUsage: "TRACK_ID FIELD",
				Action: action(func(cliCtx *cli.Context, e *env) error {
					id, err := intArg(cliCtx, 0, "track id")
					if nil != err {
						return err
					}
					field := strings.TrimSpace(cliCtx.Args().Get(1))
					if field == "" {
						return errors.New("missing field argument")
					}
					attrs, err := e.client.RevertField(e.ctx, id, field)
					if nil != err {
						return err
					}
					return e.out.table(attrs, attributionHeader, attributionRows(attrs))
				}),
			},
			{
				Name:      "recalc",
				Usage:     "Recalculate a track's attribution confidence",
				ArgsUsage: "TRACK_ID",
				Action: action(func(cliCtx *cli.Context, e *env) error {
					id, err := intArg(cliCtx, 0, "track id")
					if nil != err {
						return err
					}
					attrs, err := e.client.RecalcConfidence(e.ctx, id)
					if nil != err {
						return err
					}
					return e.out.table(attrs, attributionHeader, attributionRows(attrs))
				}),
			},
			{
				Name:      "diff",
				Usage:     "Compare a track's metadata with candidates",
				ArgsUsage: "TRACK_ID",
				Flags: []cli.Flag{
					//nolint:exhaustruct
					&cli.StringFlag{Name: "temp-ref", Usage: "Reference returned by a previous search"},
				},
				Action: action(func(cliCtx *cli.Context, e *env) error {
					id, err := intArg(cliCtx, 0, "track id")
					if nil != err {
						return err
					}
					diff, err := fetch(e.ctx, "get metadata diff", func(ctx context.Context) (*library.MetadataDiff, error) {
						return e.client.MetadataDiff(ctx, id, cliCtx.String("temp-ref"))
					})
					if nil != err {
						return err
					}
					if e.out.json {
						return e.out.writeJSON(diff)
					}
					cur := diff.Current
					fmt.Fprintf(e.out.w, "current: %s - %s (%s)\n\n", orDash(cur.Artist), orDash(cur.Title), orDash(cur.Album))
					if err := e.out.table(nil, attributionHeader, attributionRows(diff.Attribution)); nil != err {
						return err
					}
					fmt.Fprintln(e.out.w)
					return e.out.table(nil, candidateHeader, candidateRows(diff.Candidates))
				}),
			},
		},
	}
}
