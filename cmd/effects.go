package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"github.com/unchained-app/unchained/engine"
	"github.com/unchained-app/unchained/library"
	"github.com/unchained-app/unchained/ptr"
)

// parseParams turns key=value pairs into effect parameters. Numeric and
// boolean values keep their type.
func parseParams(pairs []string) (map[string]any, error) {
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid parameter %q: expected key=value", pair)
		}
		k = strings.TrimSpace(k)
		if f, err := strconv.ParseFloat(v, 64); nil == err {
			params[k] = f
		} else if b, err := strconv.ParseBool(v); nil == err {
			params[k] = b
		} else {
			params[k] = v
		}
	}
	return params, nil
}

func parseEffects(raw string) ([]map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var effects []map[string]any
	if err := json.Unmarshal([]byte(raw), &effects); nil != err {
		return nil, fmt.Errorf("invalid effects JSON: %v", err)
	}
	return effects, nil
}

func deckIDArg(cliCtx *cli.Context, i int) (engine.DeckID, error) {
	if cliCtx.NArg() <= i {
		return "", errors.New("missing deck argument")
	}
	return engine.ParseDeckID(cliCtx.Args().Get(i))
}

var chainHeader = []string{"ID", "SLOT", "EFFECT", "CATEGORY", "ENABLED", "WET_DRY", "PARAMS"}

func chainRows(items []library.EffectChainItem) [][]string {
	return lo.Map(items, func(it library.EffectChainItem, _ int) []string {
		return []string{
			strconv.Itoa(it.ID),
			strconv.Itoa(it.Slot),
			it.EffectName,
			it.Category,
			strconv.FormatBool(bool(it.Enabled)),
			strconv.FormatFloat(it.WetDry, 'f', 2, 64),
			it.ParamsJSON,
		}
	})
}

func effectsCommand() *cli.Command {
	categoryFlag := &cli.StringFlag{Name: "category", Usage: "Only show this category"} //nolint:exhaustruct

	//nolint:exhaustruct
	return &cli.Command{
		Name:  "effects",
		Usage: "Browse effects and manage presets and deck effect chains",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List available effects",
				Flags: []cli.Flag{categoryFlag},
				Action: action(func(cliCtx *cli.Context, e *env) error {
					effects, err := fetch(e.ctx, "list effects", func(ctx context.Context) ([]library.Effect, error) {
						return e.client.Effects(ctx, cliCtx.String("category"))
					})
					if nil != err {
						return err
					}
					rows := lo.Map(effects, func(fx library.Effect, _ int) []string {
						return []string{strconv.Itoa(fx.ID), fx.Name, fx.Category, fx.Description}
					})
					return e.out.table(effects, []string{"ID", "NAME", "CATEGORY", "DESCRIPTION"}, rows)
				}),
			},
			{
				Name:  "categories",
				Usage: "List effect categories",
				Action: action(func(_ *cli.Context, e *env) error {
					categories, err := fetch(e.ctx, "list effect categories", e.client.EffectCategories)
					if nil != err {
						return err
					}
					return e.out.value(categories, strings.Join(categories, "\n"))
				}),
			},
			{
				Name:  "presets",
				Usage: "List fx presets",
				Flags: []cli.Flag{categoryFlag},
				Action: action(func(cliCtx *cli.Context, e *env) error {
					presets, err := fetch(e.ctx, "list fx presets", func(ctx context.Context) ([]library.FxPreset, error) {
						return e.client.FxPresets(ctx, cliCtx.String("category"))
					})
					if nil != err {
						return err
					}
					rows := lo.Map(presets, func(p library.FxPreset, _ int) []string {
						return []string{strconv.Itoa(p.ID), p.Name, p.Category, strconv.FormatBool(bool(p.IsFactory)), p.Description}
					})
					return e.out.table(presets, []string{"ID", "NAME", "CATEGORY", "FACTORY", "DESCRIPTION"}, rows)
				}),
			},
			{
				Name:      "create-preset",
				Usage:     "Create an fx preset",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					//nolint:exhaustruct
					&cli.StringFlag{Name: "description"},
					//nolint:exhaustruct
					&cli.StringFlag{Name: "category", Value: "custom"},
					//nolint:exhaustruct
					&cli.StringFlag{Name: "effects", Usage: "JSON array of effect objects", Required: true},
				},
				Action: action(func(cliCtx *cli.Context, e *env) error {
					name := strings.TrimSpace(cliCtx.Args().First())
					if name == "" {
						return errors.New("missing preset name")
					}
					effects, err := parseEffects(cliCtx.String("effects"))
					if nil != err {
						return err
					}
					p, err := e.client.CreateFxPreset(e.ctx, name, cliCtx.String("description"), cliCtx.String("category"), effects)
					if nil != err {
						return err
					}
					return e.out.value(p, fmt.Sprintf("preset %d created", p.ID))
				}),
			},
			{
				Name:      "update-preset",
				Usage:     "Update an fx preset",
				ArgsUsage: "PRESET_ID",
				Flags: []cli.Flag{
					//nolint:exhaustruct
					&cli.StringFlag{Name: "name"},
					//nolint:exhaustruct
					&cli.StringFlag{Name: "description"},
					//nolint:exhaustruct
					&cli.StringFlag{Name: "category"},
					//nolint:exhaustruct
					&cli.StringFlag{Name: "effects", Usage: "JSON array of effect objects"},
				},
				Action: action(func(cliCtx *cli.Context, e *env) error {
					id, err := intArg(cliCtx, 0, "preset id")
					if nil != err {
						return err
					}
					effects, err := parseEffects(cliCtx.String("effects"))
					if nil != err {
						return err
					}
					u := library.FxPresetUpdate{
						Name:        cliCtx.String("name"),
						Description: cliCtx.String("description"),
						Category:    cliCtx.String("category"),
						Effects:     effects,
					}
					if err := e.client.UpdateFxPreset(e.ctx, id, u); nil != err {
						return err
					}
					return e.out.value(map[string]int{"updated": id}, fmt.Sprintf("preset %d updated", id))
				}),
			},
			{
				Name:      "delete-preset",
				Usage:     "Delete an fx preset",
				ArgsUsage: "PRESET_ID",
				Action: action(func(cliCtx *cli.Context, e *env) error {
					id, err := intArg(cliCtx, 0, "preset id")
					if nil != err {
						return err
					}
					if err := e.client.DeleteFxPreset(e.ctx, id); nil != err {
						return err
					}
					return e.out.value(map[string]int{"deleted": id}, fmt.Sprintf("preset %d deleted", id))
				}),
			},
			{
				Name:      "chain",
				Usage:     "Show a deck's effect chain",
				ArgsUsage: "DECK",
				Action: action(func(cliCtx *cli.Context, e *env) error {
					deck, err := deckIDArg(cliCtx, 0)
					if nil != err {
						return err
					}
					items, err := fetch(e.ctx, "get deck effects", func(ctx context.Context) ([]library.EffectChainItem, error) {
						return e.client.DeckEffects(ctx, deck.String())
					})
					if nil != err {
						return err
					}
					return e.out.table(items, chainHeader, chainRows(items))
				}),
			},
			{
				Name:      "add",
				Usage:     "Add an effect to a deck's chain",
				ArgsUsage: "DECK EFFECT",
				Flags: []cli.Flag{
					//nolint:exhaustruct
					&cli.IntFlag{Name: "slot"},
					//nolint:exhaustruct
					&cli.Float64Flag{Name: "wet-dry", Value: 1},
					//nolint:exhaustruct
					&cli.StringSliceFlag{Name: "param", Usage: "Effect parameter as key=value, repeatable"},
				},
				Action: action(func(cliCtx *cli.Context, e *env) error {
					deck, err := deckIDArg(cliCtx, 0)
					if nil != err {
						return err
					}
					effect := strings.TrimSpace(cliCtx.Args().Get(1))
					if effect == "" {
						return errors.New("missing effect name")
					}
					params, err := parseParams(cliCtx.StringSlice("param"))
					if nil != err {
						return err
					}
					item, err := e.client.AddEffectToDeck(e.ctx, deck.String(), effect, cliCtx.Int("slot"), params, cliCtx.Float64("wet-dry"))
					if nil != err {
						return err
					}
					return e.out.table(item, chainHeader, chainRows([]library.EffectChainItem{*item}))
				}),
			},
			{
				Name:      "update",
				Usage:     "Update an effect in a deck's chain",
				ArgsUsage: "CHAIN_ID",
				Flags: []cli.Flag{
					//nolint:exhaustruct
					&cli.Float64Flag{Name: "wet-dry"},
					//nolint:exhaustruct
					&cli.BoolFlag{Name: "enabled"},
					//nolint:exhaustruct
					&cli.StringSliceFlag{Name: "param", Usage: "Effect parameter as key=value, repeatable"},
				},
				Action: action(func(cliCtx *cli.Context, e *env) error {
					id, err := intArg(cliCtx, 0, "chain id")
					if nil != err {
						return err
					}
					var u library.DeckEffectUpdate
					if cliCtx.IsSet("param") {
						params, err := parseParams(cliCtx.StringSlice("param"))
						if nil != err {
							return err
						}
						u.Params = params
					}
					if cliCtx.IsSet("wet-dry") {
						u.WetDry = ptr.Of(cliCtx.Float64("wet-dry"))
					}
					if cliCtx.IsSet("enabled") {
						u.Enabled = ptr.Of(cliCtx.Bool("enabled"))
					}
					if err := e.client.UpdateDeckEffect(e.ctx, id, u); nil != err {
						return err
					}
					return e.out.value(map[string]int{"updated": id}, fmt.Sprintf("chain item %d updated", id))
				}),
			},
			{
				Name:      "remove",
				Usage:     "Remove an effect from a deck's chain",
				ArgsUsage: "CHAIN_ID",
				Action: action(func(cliCtx *cli.Context, e *env) error {
					id, err := intArg(cliCtx, 0, "chain id")
					if nil != err {
						return err
					}
					if err := e.client.RemoveDeckEffect(e.ctx, id); nil != err {
						return err
					}
					return e.out.value(map[string]int{"removed": id}, fmt.Sprintf("chain item %d removed", id))
				}),
			},
			{
				Name:      "clear",
				Usage:     "Remove every effect from a deck's chain",
				ArgsUsage: "DECK",
				Action: action(func(cliCtx *cli.Context, e *env) error {
					deck, err := deckIDArg(cliCtx, 0)
					if nil != err {
						return err
					}
					if err := e.client.ClearDeckEffects(e.ctx, deck.String()); nil != err {
						return err
					}
					return e.out.value(map[string]string{"cleared": deck.String()}, fmt.Sprintf("deck %s effects cleared", deck))
				}),
			},
			{
				Name:      "apply-preset",
				Usage:     "Replace a deck's chain with a preset",
				ArgsUsage: "DECK PRESET_ID",
				Action: action(func(cliCtx *cli.Context, e *env) error {
					deck, err := deckIDArg(cliCtx, 0)
					if nil != err {
						return err
					}
					presetID, err := intArg(cliCtx, 1, "preset id")
					if nil != err {
						return err
					}
					items, err := e.client.ApplyPresetToDeck(e.ctx, deck.String(), presetID)
					if nil != err {
						return err
					}
					return e.out.table(items, chainHeader, chainRows(items))
				}),
			},
		},
	}
}
