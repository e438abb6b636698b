package library

type Analysis struct {
	ID           int      `json:"id"`
	BPM          *float64 `json:"bpm"`
	Key          *string  `json:"key"`
	WaveformPath *string  `json:"waveform_path"`
	BeatgridJSON *string  `json:"beatgrid_json"`
	Energy       *float64 `json:"energy"`
	Analyzer     *string  `json:"analyzer"`
	AnalyzedAt   *string  `json:"analyzed_at"`
}

type AnalysisInput struct {
	BPM          *float64 `json:"bpm,omitempty"`
	Key          *string  `json:"key,omitempty"`
	WaveformPath *string  `json:"waveform_path,omitempty"`
	BeatgridJSON *string  `json:"beatgrid_json,omitempty"`
	Energy       *float64 `json:"energy,omitempty"`
	Analyzer     string   `json:"analyzer,omitempty"`
}

type Cue struct {
	ID         int     `json:"id"`
	Label      string  `json:"label"`
	PositionMs int64   `json:"position_ms"`
	Color      *string `json:"color"`
	HotIndex   *int    `json:"hot_index"`
}

type CueInput struct {
	Label      string  `json:"label"`
	PositionMs int64   `json:"position_ms"`
	Color      *string `json:"color,omitempty"`
	HotIndex   *int    `json:"hot_index,omitempty"`
}

type Loop struct {
	ID          int      `json:"id"`
	StartMs     int64    `json:"start_ms"`
	EndMs       int64    `json:"end_ms"`
	LengthBeats *float64 `json:"length_beats"`
	Quantized   Flag     `json:"quantized"`
	Active      Flag     `json:"active"`
}

type LoopInput struct {
	StartMs     int64    `json:"start_ms"`
	EndMs       int64    `json:"end_ms"`
	LengthBeats *float64 `json:"length_beats,omitempty"`
	Quantized   bool     `json:"quantized"`
	Active      bool     `json:"active"`
}

type DeckStateInput struct {
	DeckID     string  `json:"deck_id"`
	TrackID    int     `json:"track_id"`
	PositionMs int64   `json:"position_ms"`
	Tempo      float64 `json:"tempo"`
	Pitch      float64 `json:"pitch"`
	KeyShift   int     `json:"key_shift"`
	SlipMode   bool    `json:"slip_mode"`
	KeyLock    bool    `json:"key_lock"`
	Quantize   bool    `json:"quantize"`
}

type Recording struct {
	ID         int     `json:"id"`
	PathAudio  string  `json:"path_audio"`
	StartedAt  *string `json:"started_at"`
	FinishedAt *string `json:"finished_at"`
	DurationMs *int64  `json:"duration_ms"`
	Notes      *string `json:"notes"`
}

type FxPresetBasic struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	ParamsJSON string  `json:"params_json"`
	CreatedAt  *string `json:"created_at"`
}

type FxUsage struct {
	ID        int     `json:"id"`
	DeckID    string  `json:"deck_id"`
	PresetID  int     `json:"preset_id"`
	TrackID   int     `json:"track_id"`
	AppliedAt *string `json:"applied_at"`
}

// Flag decodes SQLite-style 0/1 integers as well as JSON booleans.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case "true", "1":
		*f = true
	case "false", "0", "null":
		*f = false
	default:
		return &FlagError{Raw: string(b)}
	}
	return nil
}

type FlagError struct {
	Raw string
}

func (e *FlagError) Error() string {
	return "invalid flag value: " + e.Raw
}
