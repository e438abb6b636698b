package djscript_test

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unchained-app/unchained/djscript"
	"github.com/unchained-app/unchained/engine"
	"github.com/unchained-app/unchained/library"
	"github.com/unchained-app/unchained/library/api"
	"github.com/unchained-app/unchained/library/fs"
	"github.com/unchained-app/unchained/ptr"
	"github.com/unchained-app/unchained/store"
)

type backend struct {
	loops []library.LoopInput
}

func (*backend) Analysis(_ context.Context, trackID int) (*library.Analysis, error) {
	if trackID != 7 {
		return nil, api.ErrNotFound
	}
	return &library.Analysis{ID: 1, BPM: ptr.Of(120.0), BeatgridJSON: ptr.Of("[0,500,1000,1500,2000,2500]")}, nil
}

func (*backend) Cues(context.Context, int) ([]library.Cue, error)   { return nil, nil }
func (*backend) Loops(context.Context, int) ([]library.Loop, error) { return nil, nil }

func (*backend) UpsertCue(_ context.Context, _ int, in library.CueInput) (*library.Cue, error) {
	return &library.Cue{Label: in.Label, PositionMs: in.PositionMs}, nil
}

func (b *backend) AddLoop(_ context.Context, _ int, in library.LoopInput) (*library.Loop, error) {
	b.loops = append(b.loops, in)
	return &library.Loop{ID: len(b.loops), StartMs: in.StartMs, EndMs: in.EndMs}, nil
}

func (*backend) LogFxUsage(context.Context, string, int, int) error { return nil }

func (*backend) SaveDeckState(context.Context, library.DeckStateInput) (int, error) { return 42, nil }

func (*backend) StartRecording(context.Context, string, string) (int, error) { return 1, nil }

func (*backend) StopRecording(context.Context, int, int64) error { return nil }

func newRunner(t *testing.T) (*djscript.Runner, *store.DJ, *backend, *bytes.Buffer) {
	t.Helper()

	b := new(backend)
	e := engine.New(b, zerolog.Nop())
	toasts := store.NewToasts(time.Hour)
	t.Cleanup(toasts.Close)
	dj := store.NewDJ(e, b, fs.From(t.TempDir()).Prefs(), toasts, zerolog.Nop())
	t.Cleanup(dj.Close)

	var out bytes.Buffer
	return djscript.New(dj, &out, zerolog.Nop()), dj, b, &out
}

func TestRunScript(t *testing.T) {
	t.Parallel()

	r, dj, b, out := newRunner(t)
	script := strings.Join([]string{
		"# warm up",
		"load A 7",
		"tempo a 3",
		"loop A 480 1530",
		"cue A drop 1260",
		"slip A on",
		"jump A 2000",
		"",
		"save A",
		"show A",
	}, "\n")

	failed, err := r.Run(context.Background(), strings.NewReader(script))
	require.NoError(t, err)
	assert.Zero(t, failed, out.String())

	d, err := dj.Deck(engine.DeckA)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, d.Tempo, 1e-9)
	assert.Equal(t, engine.Loop{StartMs: 500, EndMs: 1500}, *d.Loop)
	assert.Zero(t, d.PositionMs)
	assert.Equal(t, int64(2000), *d.SlipBufferMs)
	require.Len(t, b.loops, 1)

	assert.Contains(t, out.String(), "deck A saved as state 42")
	assert.Contains(t, out.String(), "deck A: track=7 pos=0ms tempo=2.000")
	assert.Contains(t, out.String(), "loop=500-1500ms (2.00 beats)")
	assert.Contains(t, out.String(), "cue drop @ 1500ms")
}

func TestRunReportsFailures(t *testing.T) {
	t.Parallel()

	r, _, _, out := newRunner(t)
	script := "play Z\nwarp A\ntempo A fast\nseek A\nplay B\n"

	failed, err := r.Run(context.Background(), strings.NewReader(script))
	require.NoError(t, err)
	assert.Equal(t, 4, failed)
	assert.Contains(t, out.String(), "line 1: play Z")
	assert.Contains(t, out.String(), `unknown command "warp"`)
	assert.Contains(t, out.String(), `invalid number "fast"`)
	assert.Contains(t, out.String(), "seek DECK MS")
}

func TestDeckManagement(t *testing.T) {
	t.Parallel()

	r, dj, _, out := newRunner(t)
	require.NoError(t, r.Exec(context.Background(), "add"))
	require.NoError(t, r.Exec(context.Background(), "active C"))
	assert.Equal(t, engine.DeckC, dj.Get().ActiveDeck)
	require.NoError(t, r.Exec(context.Background(), "remove C"))
	assert.Equal(t, engine.DeckA, dj.Get().ActiveDeck)
	require.ErrorIs(t, r.Exec(context.Background(), "remove A"), engine.ErrBaseDeck)
	assert.Contains(t, out.String(), "deck C added")
}

func TestRecordCommand(t *testing.T) {
	t.Parallel()

	r, dj, _, _ := newRunner(t)
	require.NoError(t, r.Exec(context.Background(), "record start "+os.TempDir()+"/set.wav"))
	require.NotNil(t, dj.Get().Recording)
	require.NoError(t, r.Exec(context.Background(), "record stop"))
	assert.Nil(t, dj.Get().Recording)
	require.ErrorIs(t, r.Exec(context.Background(), "record pause"), djscript.ErrUsage)
}

func TestHelpIsSorted(t *testing.T) {
	t.Parallel()

	help := djscript.Help()
	require.NotEmpty(t, help)
	assert.Equal(t, "active DECK", help[0])
}
