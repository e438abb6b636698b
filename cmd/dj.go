package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"github.com/unchained-app/unchained/engine"
	"github.com/unchained-app/unchained/library"
	"github.com/unchained-app/unchained/ptr"
)

func formatFloat(v *float64) string {
	if nil == v {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func djCommand() *cli.Command {
	//nolint:exhaustruct
	return &cli.Command{
		Name:  "dj",
		Usage: "Manage track analyses, cues, loops, recordings and basic presets",
		Subcommands: []*cli.Command{
			{
				Name:      "analysis",
				Usage:     "Show a track's analysis",
				ArgsUsage: "TRACK_ID",
				Action: action(func(cliCtx *cli.Context, e *env) error {
					id, err := intArg(cliCtx, 0, "track id")
					if nil != err {
						return err
					}
					a, err := fetch(e.ctx, "get analysis", func(ctx context.Context) (*library.Analysis, error) { return e.client.Analysis(ctx, id) })
					if nil != err {
						return err
					}
					beats := 0
					if nil != a.BeatgridJSON {
						beats = len(engine.ParseBeatgrid(*a.BeatgridJSON))
					}
					rows := [][]string{{formatFloat(a.BPM), orDash(a.Key), formatFloat(a.Energy), strconv.Itoa(beats), orDash(a.Analyzer), orDash(a.AnalyzedAt)}}
					return e.out.table(a, []string{"BPM", "KEY", "ENERGY", "BEATS", "ANALYZER", "ANALYZED_AT"}, rows)
				}),
			},
			{
				Name:      "analyze",
				Usage:     "Store analysis results for a track",
				ArgsUsage: "TRACK_ID",
				Flags: []cli.Flag{
					//nolint:exhaustruct
					&cli.Float64Flag{Name: "bpm"},
					//nolint:exhaustruct
					&cli.StringFlag{Name: "key"},
					//nolint:exhaustruct
					&cli.StringFlag{Name: "beatgrid", Usage: "JSON array of beat positions in milliseconds"},
					//nolint:exhaustruct
					&cli.Float64Flag{Name: "energy"},
					//nolint:exhaustruct
					&cli.StringFlag{Name: "analyzer", Value: "manual"},
				},
				Action: action(func(cliCtx *cli.Context, e *env) error {
					id, err := intArg(cliCtx, 0, "track id")
					if nil != err {
						return err
					}
					in := library.AnalysisInput{Analyzer: cliCtx.String("analyzer")}
					if cliCtx.IsSet("bpm") {
						in.BPM = ptr.Of(cliCtx.Float64("bpm"))
					}
					if cliCtx.IsSet("key") {
						in.Key = ptr.Of(cliCtx.String("key"))
					}
					if cliCtx.IsSet("beatgrid") {
						in.BeatgridJSON = ptr.Of(cliCtx.String("beatgrid"))
					}
					if cliCtx.IsSet("energy") {
						in.Energy = ptr.Of(cliCtx.Float64("energy"))
					}
					a, err := e.client.AnalyzeTrack(e.ctx, id, in)
					if nil != err {
						return err
					}
					return e.out.value(a, fmt.Sprintf("analysis %d stored for track %d", a.ID, id))
				}),
			},
			{
				Name:      "cues",
				Usage:     "List a track's cues",
				ArgsUsage: "TRACK_ID",
				Action: action(func(cliCtx *cli.Context, e *env) error {
					id, err := intArg(cliCtx, 0, "track id")
					if nil != err {
						return err
					}
					cues, err := fetch(e.ctx, "list cues", func(ctx context.Context) ([]library.Cue, error) { return e.client.Cues(ctx, id) })
					if nil != err {
						return err
					}
					return e.out.table(cues, []string{"ID", "LABEL", "POSITION_MS", "COLOR"}, cueRows(cues))
				}),
			},
			{
				Name:      "delete-cue",
				Usage:     "Delete a cue",
				ArgsUsage: "TRACK_ID CUE_ID",
				Action: action(func(cliCtx *cli.Context, e *env) error {
					trackID, err := intArg(cliCtx, 0, "track id")
					if nil != err {
						return err
					}
					cueID, err := intArg(cliCtx, 1, "cue id")
					if nil != err {
						return err
					}
					cues, err := e.client.DeleteCue(e.ctx, trackID, cueID)
					if nil != err {
						return err
					}
					return e.out.table(cues, []string{"ID", "LABEL", "POSITION_MS", "COLOR"}, cueRows(cues))
				}),
			},
			{
				Name:      "loops",
				Usage:     "List a track's loops",
				ArgsUsage: "TRACK_ID",
				Action: action(func(cliCtx *cli.Context, e *env) error {
					id, err := intArg(cliCtx, 0, "track id")
					if nil != err {
						return err
					}
					loops, err := fetch(e.ctx, "list loops", func(ctx context.Context) ([]library.Loop, error) { return e.client.Loops(ctx, id) })
					if nil != err {
						return err
					}
					return e.out.table(loops, loopHeader, loopRows(loops))
				}),
			},
			{
				Name:      "delete-loop",
				Usage:     "Delete a loop",
				ArgsUsage: "TRACK_ID LOOP_ID",
				Action: action(func(cliCtx *cli.Context, e *env) error {
					trackID, err := intArg(cliCtx, 0, "track id")
					if nil != err {
						return err
					}
					loopID, err := intArg(cliCtx, 1, "loop id")
					if nil != err {
						return err
					}
					loops, err := e.client.DeleteLoop(e.ctx, trackID, loopID)
					if nil != err {
						return err
					}
					return e.out.table(loops, loopHeader, loopRows(loops))
				}),
			},
			{
				Name:  "recordings",
				Usage: "List recordings",
				Action: action(func(_ *cli.Context, e *env) error {
					recs, err := fetch(e.ctx, "list recordings", e.client.Recordings)
					if nil != err {
						return err
					}
					rows := lo.Map(recs, func(r library.Recording, _ int) []string {
						return []string{strconv.Itoa(r.ID), r.PathAudio, orDash(r.StartedAt), formatDuration(r.DurationMs), orDash(r.Notes)}
					})
					return e.out.table(recs, []string{"ID", "PATH", "STARTED_AT", "LENGTH", "NOTES"}, rows)
				}),
			},
			{
				Name:  "presets",
				Usage: "List basic fx presets",
				Action: action(func(_ *cli.Context, e *env) error {
					presets, err := fetch(e.ctx, "list fx presets", e.client.BasicFxPresets)
					if nil != err {
						return err
					}
					rows := lo.Map(presets, func(p library.FxPresetBasic, _ int) []string {
						return []string{strconv.Itoa(p.ID), p.Name, p.ParamsJSON}
					})
					return e.out.table(presets, []string{"ID", "NAME", "PARAMS"}, rows)
				}),
			},
			{
				Name:      "add-preset",
				Usage:     "Add a basic fx preset",
				ArgsUsage: "NAME PARAMS_JSON",
				Action: action(func(cliCtx *cli.Context, e *env) error {
					if cliCtx.NArg() != 2 {
						return fmt.Errorf("expected NAME and PARAMS_JSON arguments, got %d", cliCtx.NArg())
					}
					p, err := e.client.AddBasicFxPreset(e.ctx, cliCtx.Args().Get(0), cliCtx.Args().Get(1))
					if nil != err {
						return err
					}
					return e.out.value(p, fmt.Sprintf("preset %d added", p.ID))
				}),
			},
			{
				Name:  "fx-usage",
				Usage: "Show recent fx usage",
				Flags: []cli.Flag{
					//nolint:exhaustruct
					&cli.IntFlag{Name: "limit", Value: 50},
				},
				Action: action(func(cliCtx *cli.Context, e *env) error {
					usage, err := fetch(e.ctx, "list fx usage", func(ctx context.Context) ([]library.FxUsage, error) {
						return e.client.FxUsage(ctx, cliCtx.Int("limit"))
					})
					if nil != err {
						return err
					}
					rows := lo.Map(usage, func(u library.FxUsage, _ int) []string {
						return []string{u.DeckID, strconv.Itoa(u.PresetID), strconv.Itoa(u.TrackID), orDash(u.AppliedAt)}
					})
					return e.out.table(usage, []string{"DECK", "PRESET", "TRACK", "APPLIED_AT"}, rows)
				}),
			},
		},
	}
}

func cueRows(cues []library.Cue) [][]string {
	return lo.Map(cues, func(c library.Cue, _ int) []string {
		return []string{strconv.Itoa(c.ID), c.Label, strconv.FormatInt(c.PositionMs, 10), orDash(c.Color)}
	})
}

var loopHeader = []string{"ID", "START_MS", "END_MS", "BEATS", "QUANTIZED", "ACTIVE"}

func loopRows(loops []library.Loop) [][]string {
	return lo.Map(loops, func(l library.Loop, _ int) []string {
		return []string{
			strconv.Itoa(l.ID),
			strconv.FormatInt(l.StartMs, 10),
			strconv.FormatInt(l.EndMs, 10),
			formatFloat(l.LengthBeats),
			strconv.FormatBool(bool(l.Quantized)),
			strconv.FormatBool(bool(l.Active)),
		}
	})
}
