package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/unchained-app/unchained/cache"
	"github.com/unchained-app/unchained/config"
	"github.com/unchained-app/unchained/library"
)

func trackPath(trackID int, suffix string) string {
	return "/dj/tracks/" + strconv.Itoa(trackID) + suffix
}

// Analysis returns the stored analysis of a track, or ErrNotFound when the
// track has not been analyzed yet. Found analyses are cached.
func (c *Client) Analysis(ctx context.Context, trackID int) (*library.Analysis, error) {
	item, err := c.cache.Analyses.Fetch(trackID, cache.DefaultAnalysisTTL, func() (*library.Analysis, error) {
		return c.fetchAnalysis(ctx, trackID)
	})
	if nil != err {
		return nil, err
	}
	return item.Value(), nil
}

func (c *Client) fetchAnalysis(ctx context.Context, trackID int) (*library.Analysis, error) {
	r := request{
		name:    "get track analysis",
		method:  http.MethodGet,
		path:    trackPath(trackID, "/analysis"),
		timeout: config.AnalysisRequestTimeout,
	}
	a, err := call[library.Analysis](ctx, c, r, "analysis")
	if nil != err {
		return nil, err
	}
	return &a, nil
}

func (c *Client) AnalyzeTrack(ctx context.Context, trackID int, in library.AnalysisInput) (*library.Analysis, error) {
	r := request{name: "analyze track", method: http.MethodPost, path: trackPath(trackID, "/analyze"), body: in}
	a, err := call[library.Analysis](ctx, c, r, "analysis")
	if nil != err {
		return nil, err
	}
	c.cache.Analyses.Delete(trackID)
	return &a, nil
}

func (c *Client) Cues(ctx context.Context, trackID int) ([]library.Cue, error) {
	r := request{name: "list cues", method: http.MethodGet, path: trackPath(trackID, "/cues")}
	return call[[]library.Cue](ctx, c, r, "cues")
}

// UpsertCue stores a cue point; the backend replaces an existing cue with the same label.
func (c *Client) UpsertCue(ctx context.Context, trackID int, in library.CueInput) (*library.Cue, error) {
	r := request{name: "add cue", method: http.MethodPost, path: trackPath(trackID, "/cues"), body: in}
	cue, err := call[library.Cue](ctx, c, r, "cue")
	if nil != err {
		return nil, err
	}
	return &cue, nil
}

func (c *Client) DeleteCue(ctx context.Context, trackID, cueID int) ([]library.Cue, error) {
	r := request{name: "delete cue", method: http.MethodDelete, path: trackPath(trackID, "/cues/"+strconv.Itoa(cueID))}
	return call[[]library.Cue](ctx, c, r, "cues")
}

func (c *Client) Loops(ctx context.Context, trackID int) ([]library.Loop, error) {
	r := request{name: "list loops", method: http.MethodGet, path: trackPath(trackID, "/loops")}
	return call[[]library.Loop](ctx, c, r, "loops")
}

func (c *Client) AddLoop(ctx context.Context, trackID int, in library.LoopInput) (*library.Loop, error) {
	if in.EndMs <= in.StartMs {
		return nil, errors.New("loop end must be after loop start")
	}
	r := request{name: "add loop", method: http.MethodPost, path: trackPath(trackID, "/loops"), body: in}
	loop, err := call[library.Loop](ctx, c, r, "loop")
	if nil != err {
		return nil, err
	}
	return &loop, nil
}

func (c *Client) DeleteLoop(ctx context.Context, trackID, loopID int) ([]library.Loop, error) {
	r := request{name: "delete loop", method: http.MethodDelete, path: trackPath(trackID, "/loops/"+strconv.Itoa(loopID))}
	return call[[]library.Loop](ctx, c, r, "loops")
}

func (c *Client) SaveDeckState(ctx context.Context, in library.DeckStateInput) (int, error) {
	r := request{name: "save deck state", method: http.MethodPost, path: "/dj/decks/state/save", body: in}
	return call[int](ctx, c, r, "deck_state_id")
}

func (c *Client) StartRecording(ctx context.Context, pathAudio, notes string) (int, error) {
	body := map[string]any{"path_audio": pathAudio}
	if notes != "" {
		body["notes"] = notes
	}
	r := request{name: "start recording", method: http.MethodPost, path: "/dj/recordings/start", body: body}
	return call[int](ctx, c, r, "recording_id")
}

// StopRecording finishes a recording; durationMs <= 0 lets the backend leave it unset.
func (c *Client) StopRecording(ctx context.Context, recordingID int, durationMs int64) error {
	body := map[string]any{"recording_id": recordingID}
	if durationMs > 0 {
		body["duration_ms"] = durationMs
	}
	r := request{name: "stop recording", method: http.MethodPost, path: "/dj/recordings/stop", body: body}
	_, err := c.do(ctx, r)
	return err
}

func (c *Client) Recordings(ctx context.Context) ([]library.Recording, error) {
	r := request{name: "list recordings", method: http.MethodGet, path: "/dj/recordings"}
	return call[[]library.Recording](ctx, c, r, "recordings")
}

func (c *Client) BasicFxPresets(ctx context.Context) ([]library.FxPresetBasic, error) {
	r := request{name: "list fx presets", method: http.MethodGet, path: "/dj/fx-presets"}
	return call[[]library.FxPresetBasic](ctx, c, r, "fx_presets")
}

func (c *Client) AddBasicFxPreset(ctx context.Context, name, paramsJSON string) (*library.FxPresetBasic, error) {
	r := request{
		name:   "add fx preset",
		method: http.MethodPost,
		path:   "/dj/fx-presets",
		body:   map[string]any{"name": name, "params_json": paramsJSON},
	}
	p, err := call[library.FxPresetBasic](ctx, c, r, "preset")
	if nil != err {
		return nil, err
	}
	return &p, nil
}

func (c *Client) LogFxUsage(ctx context.Context, deckID string, presetID, trackID int) error {
	r := request{
		name:   "log fx usage",
		method: http.MethodPost,
		path:   "/dj/fx-usage/log",
		body:   map[string]any{"deck_id": deckID, "preset_id": presetID, "track_id": trackID},
	}
	_, err := c.do(ctx, r)
	return err
}

func (c *Client) FxUsage(ctx context.Context, limit int) ([]library.FxUsage, error) {
	query := url.Values{"limit": []string{strconv.Itoa(limit)}}
	r := request{name: "list fx usage", method: http.MethodGet, path: "/dj/fx-usage", query: query}
	return call[[]library.FxUsage](ctx, c, r, "fx_usage")
}
