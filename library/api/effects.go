package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/xeptore/flaw/v8"

	"github.com/unchained-app/unchained/errutil"
	"github.com/unchained-app/unchained/library"
)

func categoryQuery(category string) url.Values {
	if category == "" {
		return nil
	}
	return url.Values{"category": []string{category}}
}

func encodeParams(name string, v any) (string, error) {
	b, err := json.Marshal(v)
	if nil != err {
		flawP := flaw.P{"err_debug_tree": errutil.Tree(err).FlawP()}
		return "", flaw.From(fmt.Errorf("failed to encode %s: %v", name, err)).Append(flawP)
	}
	return string(b), nil
}

func (c *Client) Effects(ctx context.Context, category string) ([]library.Effect, error) {
	r := request{name: "list effects", method: http.MethodGet, path: "/dj/effects", query: categoryQuery(category)}
	return call[[]library.Effect](ctx, c, r, "effects")
}

func (c *Client) EffectCategories(ctx context.Context) ([]string, error) {
	r := request{name: "list effect categories", method: http.MethodGet, path: "/dj/effects/categories"}
	return call[[]string](ctx, c, r, "categories")
}

func (c *Client) FxPresets(ctx context.Context, category string) ([]library.FxPreset, error) {
	r := request{name: "list enhanced fx presets", method: http.MethodGet, path: "/dj/fx-presets/enhanced", query: categoryQuery(category)}
	return call[[]library.FxPreset](ctx, c, r, "fx_presets")
}

func (c *Client) CreateFxPreset(ctx context.Context, name, description, category string, effects []map[string]any) (*library.FxPreset, error) {
	effectsJSON, err := encodeParams("preset effects", effects)
	if nil != err {
		return nil, err
	}
	r := request{
		name:   "create fx preset",
		method: http.MethodPost,
		path:   "/dj/fx-presets/enhanced",
		body: map[string]any{
			"name":         name,
			"description":  description,
			"category":     category,
			"effects_json": effectsJSON,
		},
	}
	p, err := call[library.FxPreset](ctx, c, r, "preset")
	if nil != err {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdateFxPreset(ctx context.Context, presetID int, u library.FxPresetUpdate) error {
	body := make(map[string]any, 4)
	if u.Name != "" {
		body["name"] = u.Name
	}
	if u.Description != "" {
		body["description"] = u.Description
	}
	if u.Category != "" {
		body["category"] = u.Category
	}
	if nil != u.Effects {
		effectsJSON, err := encodeParams("preset effects", u.Effects)
		if nil != err {
			return err
		}
		body["effects_json"] = effectsJSON
	}
	r := request{name: "update fx preset", method: http.MethodPut, path: "/dj/fx-presets/" + strconv.Itoa(presetID), body: body}
	_, err := c.do(ctx, r)
	return err
}

func (c *Client) DeleteFxPreset(ctx context.Context, presetID int) error {
	r := request{name: "delete fx preset", method: http.MethodDelete, path: "/dj/fx-presets/" + strconv.Itoa(presetID)}
	_, err := c.do(ctx, r)
	return err
}

func deckEffectsPath(deckID string) string {
	return "/dj/decks/" + url.PathEscape(deckID) + "/effects"
}

func (c *Client) DeckEffects(ctx context.Context, deckID string) ([]library.EffectChainItem, error) {
	r := request{name: "list deck effects", method: http.MethodGet, path: deckEffectsPath(deckID)}
	return call[[]library.EffectChainItem](ctx, c, r, "effects")
}

func (c *Client) AddEffectToDeck(ctx context.Context, deckID, effectName string, slot int, params map[string]any, wetDry float64) (*library.EffectChainItem, error) {
	body := map[string]any{
		"effect_name": effectName,
		"slot":        slot,
		"wet_dry":     wetDry,
	}
	if nil != params {
		paramsJSON, err := encodeParams("effect params", params)
		if nil != err {
			return nil, err
		}
		body["params_json"] = paramsJSON
	}
	r := request{name: "add deck effect", method: http.MethodPost, path: deckEffectsPath(deckID), body: body}
	item, err := call[library.EffectChainItem](ctx, c, r, "effect")
	if nil != err {
		return nil, err
	}
	return &item, nil
}

func (c *Client) UpdateDeckEffect(ctx context.Context, chainID int, u library.DeckEffectUpdate) error {
	body := make(map[string]any, 3)
	if nil != u.Params {
		paramsJSON, err := encodeParams("effect params", u.Params)
		if nil != err {
			return err
		}
		body["params_json"] = paramsJSON
	}
	if nil != u.WetDry {
		body["wet_dry"] = *u.WetDry
	}
	if nil != u.Enabled {
		body["enabled"] = *u.Enabled
	}
	r := request{name: "update deck effect", method: http.MethodPut, path: "/dj/decks/effects/" + strconv.Itoa(chainID), body: body}
	_, err := c.do(ctx, r)
	return err
}

func (c *Client) RemoveDeckEffect(ctx context.Context, chainID int) error {
	r := request{name: "remove deck effect", method: http.MethodDelete, path: "/dj/decks/effects/" + strconv.Itoa(chainID)}
	_, err := c.do(ctx, r)
	return err
}

func (c *Client) ClearDeckEffects(ctx context.Context, deckID string) error {
	r := request{name: "clear deck effects", method: http.MethodDelete, path: deckEffectsPath(deckID)}
	_, err := c.do(ctx, r)
	return err
}

func (c *Client) ApplyPresetToDeck(ctx context.Context, deckID string, presetID int) ([]library.EffectChainItem, error) {
	r := request{
		name:   "apply preset to deck",
		method: http.MethodPost,
		path:   "/dj/decks/" + url.PathEscape(deckID) + "/apply-preset/" + strconv.Itoa(presetID),
	}
	return call[[]library.EffectChainItem](ctx, c, r, "effects")
}
