package library

type Effect struct {
	ID                int    `json:"id"`
	Name              string `json:"name"`
	Category          string `json:"category"`
	Description       string `json:"description"`
	DefaultParamsJSON string `json:"default_params_json"`
}

type FxPreset struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	EffectsJSON string `json:"effects_json"`
	IsFactory   Flag   `json:"is_factory"`
	CreatedAt   string `json:"created_at"`
}

// FxPresetUpdate leaves zero-valued fields untouched on the backend.
type FxPresetUpdate struct {
	Name        string
	Description string
	Category    string
	Effects     []map[string]any
}

type EffectChainItem struct {
	ID         int     `json:"id"`
	DeckID     string  `json:"deck_id"`
	Slot       int     `json:"slot"`
	EffectID   int     `json:"effect_id"`
	EffectName string  `json:"effect_name"`
	Category   string  `json:"category"`
	ParamsJSON string  `json:"params_json"`
	Enabled    Flag    `json:"enabled"`
	WetDry     float64 `json:"wet_dry"`
}

// DeckEffectUpdate sends only the non-nil fields.
type DeckEffectUpdate struct {
	Params  map[string]any
	WetDry  *float64
	Enabled *bool
}

const DefaultWetDry = 0.5
