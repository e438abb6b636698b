package api_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeptore/flaw/v8"

	"github.com/unchained-app/unchained/cache"
	"github.com/unchained-app/unchained/library"
	"github.com/unchained-app/unchained/library/api"
)

func newClient(t *testing.T, mux *http.ServeMux) *api.Client {
	t.Helper()

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := cache.New()
	t.Cleanup(c.Stop)

	client, err := api.New(srv.URL+"/", c)
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"status":"ok"}`)
	})
	require.NoError(t, newClient(t, mux).Health(context.Background()))
}

func TestTracksAreCached(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tracks/", func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, `[{"id":1,"title":"Strobe","artist":"deadmau5","album":null,"duration_ms":634000,"path_audio":"a.mp3"}]`)
	})
	client := newClient(t, mux)

	tracks, err := client.Tracks(context.Background())
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "Strobe", tracks[0].DisplayTitle())
	assert.Nil(t, tracks[0].Album)
	require.NotNil(t, tracks[0].DurationMs)
	assert.Equal(t, int64(634000), *tracks[0].DurationMs)

	_, err = client.Tracks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSearchTracksSendsQuery(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /tracks/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "daft punk", r.URL.Query().Get("q"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, `[{"id":3,"title":"Aerodynamic","artist":"Daft Punk"}]`)
	})

	tracks, err := newClient(t, mux).SearchTracks(context.Background(), "daft punk", 10)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, 3, tracks[0].ID)
}

func TestAnalysisNotFound(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /dj/tracks/{id}/analysis", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"detail":"Analysis not found"}`)
	})

	_, err := newClient(t, mux).Analysis(context.Background(), 9)
	require.ErrorIs(t, err, api.ErrNotFound)
}

func TestAnalysisEnvelope(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /dj/tracks/{id}/analysis", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "4", r.PathValue("id"))
		writeJSON(w, http.StatusOK, `{"analysis":{"id":2,"bpm":124.5,"key":"8A","beatgrid_json":"[0,484,968]"}}`)
	})
	client := newClient(t, mux)

	a, err := client.Analysis(context.Background(), 4)
	require.NoError(t, err)
	require.NotNil(t, a.BPM)
	assert.InDelta(t, 124.5, *a.BPM, 1e-9)
	require.NotNil(t, a.BeatgridJSON)
	assert.Equal(t, "[0,484,968]", *a.BeatgridJSON)

	_, err = client.Analysis(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTooManyRequests(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /dj/recordings", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := newClient(t, mux).Recordings(context.Background())
	require.ErrorIs(t, err, api.ErrTooManyRequests)
}

func TestClientErrorCarriesDetail(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /sources/metadata/revert", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"detail":"field_name is required"}`)
	})

	_, err := newClient(t, mux).RevertField(context.Background(), 1, "")
	require.Error(t, err)

	var f *flaw.Flaw
	require.ErrorAs(t, err, &f)
	assert.Contains(t, f.Inner, "status 400")
	assert.Contains(t, f.Inner, "field_name is required")
}

func TestServerErrorIsFlaw(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /dj/effects/categories", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := newClient(t, mux).EffectCategories(context.Background())
	var f *flaw.Flaw
	require.ErrorAs(t, err, &f)
	assert.Contains(t, f.Inner, "500")
}

func TestServerErrorCarriesRequest(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /dj/fx-usage", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := newClient(t, mux).FxUsage(context.Background(), 5)
	var f *flaw.Flaw
	require.ErrorAs(t, err, &f)
	require.NotEmpty(t, f.Records)
	req, ok := f.Records[len(f.Records)-1].Payload["request"].(flaw.P)
	require.True(t, ok)
	assert.Equal(t, http.MethodGet, req["method"])
	assert.Equal(t, "list fx usage", req["name"])
	assert.Contains(t, req["url"], "/dj/fx-usage?limit=5")
}

func TestEmptyBody(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /dj/tracks/{id}/cues", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("DELETE /dj/fx-presets/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	client := newClient(t, mux)

	_, err := client.Cues(context.Background(), 1)
	var f *flaw.Flaw
	require.ErrorAs(t, err, &f)
	assert.Contains(t, f.Inner, "unexpected empty response body")

	require.NoError(t, client.DeleteFxPreset(context.Background(), 7))
}

func TestMissingEnvelopeKey(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /dj/tracks/{id}/cues", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"items":[]}`)
	})

	_, err := newClient(t, mux).Cues(context.Background(), 1)
	var f *flaw.Flaw
	require.ErrorAs(t, err, &f)
	assert.Contains(t, f.Inner, `"cues"`)
}

func TestAddLoopDecodesFlags(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /dj/tracks/{id}/loops", func(w http.ResponseWriter, r *http.Request) {
		var in library.LoopInput
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, int64(1000), in.StartMs)
		assert.Equal(t, int64(3000), in.EndMs)
		assert.True(t, in.Quantized)
		writeJSON(w, http.StatusOK, `{"loop":{"id":5,"start_ms":1000,"end_ms":3000,"length_beats":4,"quantized":1,"active":0}}`)
	})
	client := newClient(t, mux)

	loop, err := client.AddLoop(context.Background(), 2, library.LoopInput{StartMs: 1000, EndMs: 3000, Quantized: true, Active: true})
	require.NoError(t, err)
	assert.Equal(t, 5, loop.ID)
	assert.True(t, bool(loop.Quantized))
	assert.False(t, bool(loop.Active))

	_, err = client.AddLoop(context.Background(), 2, library.LoopInput{StartMs: 3000, EndMs: 3000})
	require.Error(t, err)
}

func TestImportTrackIsMultipart(t *testing.T) {
	t.Parallel()

	var listCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tracks/", func(w http.ResponseWriter, _ *http.Request) {
		listCalls.Add(1)
		writeJSON(w, http.StatusOK, `[]`)
	})
	mux.HandleFunc("POST /tracks/import", func(w http.ResponseWriter, r *http.Request) {
		f, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		b, err := io.ReadAll(f)
		assert.NoError(t, err)
		assert.Equal(t, "song.mp3", header.Filename)
		assert.Equal(t, "ID3", string(b))
		writeJSON(w, http.StatusOK, `{"track_id":11,"message":"imported"}`)
	})
	client := newClient(t, mux)

	_, err := client.Tracks(context.Background())
	require.NoError(t, err)

	res, err := client.ImportTrack(context.Background(), "/music/song.mp3", strings.NewReader("ID3"))
	require.NoError(t, err)
	assert.Equal(t, 11, res.TrackID)

	_, err = client.Tracks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), listCalls.Load())
}

func TestCreateFxPresetEncodesEffects(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /dj/fx-presets/enhanced", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		effects, ok := body["effects_json"].(string)
		assert.True(t, ok)
		assert.JSONEq(t, `[{"effect":"echo","wet_dry":0.3}]`, effects)
		writeJSON(w, http.StatusOK, `{"preset":{"id":8,"name":"Dub","category":"delay","effects_json":"[]","is_factory":0}}`)
	})

	p, err := newClient(t, mux).CreateFxPreset(context.Background(), "Dub", "", "delay", []map[string]any{{"effect": "echo", "wet_dry": 0.3}})
	require.NoError(t, err)
	assert.Equal(t, 8, p.ID)
	assert.False(t, bool(p.IsFactory))
}

func TestUpdateDeckEffectSendsOnlySetFields(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("PUT /dj/decks/effects/{chain}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.PathValue("chain"))
		b, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.JSONEq(t, `{"enabled":false}`, string(b))
		writeJSON(w, http.StatusOK, `{"status":"ok"}`)
	})

	disabled := false
	err := newClient(t, mux).UpdateDeckEffect(context.Background(), 3, library.DeckEffectUpdate{Enabled: &disabled})
	require.NoError(t, err)
}

func TestEmbeddingsJoinsTrackIDs(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /analytics/embeddings", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1,2,3", r.URL.Query().Get("track_ids"))
		writeJSON(w, http.StatusOK, `{"embeddings":[{"track_id":1,"embedding":[0.1,0.2],"model_version":"v1","dimensionality":2}]}`)
	})

	embeddings, err := newClient(t, mux).Embeddings(context.Background(), []int{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, embeddings, 1)
	assert.Equal(t, []float64{0.1, 0.2}, embeddings[0].Embedding)
}

func TestReduceEmbeddingsRejectsComponents(t *testing.T) {
	t.Parallel()

	client, err := api.New("http://127.0.0.1:1", nil)
	require.NoError(t, err)

	_, err = client.ReduceEmbeddings(context.Background(), 4)
	require.Error(t, err)
}

func TestOpenEventStream(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /sources/events/stream", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"type\":\"info\"}\n\n")
	})

	body, err := newClient(t, mux).OpenEventStream(context.Background())
	require.NoError(t, err)
	defer body.Close()

	b, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "data: {\"type\":\"info\"}\n\n", string(b))
}

func TestCanceledContext(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /dj/recordings", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"recordings":[]}`)
	})
	client := newClient(t, mux)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Recordings(ctx)
	require.True(t, errors.Is(err, context.Canceled))
}
