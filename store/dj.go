package store

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/unchained-app/unchained/engine"
	"github.com/unchained-app/unchained/library"
	"github.com/unchained-app/unchained/library/fs"
	"github.com/unchained-app/unchained/log"
)

var (
	ErrNoTrack          = errors.New("no track loaded on deck")
	ErrNotRecording     = errors.New("no recording in progress")
	ErrAlreadyRecording = errors.New("a recording is already in progress")
)

// Backend is the subset of the API client the DJ store persists through.
type Backend interface {
	Cues(ctx context.Context, trackID int) ([]library.Cue, error)
	Loops(ctx context.Context, trackID int) ([]library.Loop, error)
	UpsertCue(ctx context.Context, trackID int, in library.CueInput) (*library.Cue, error)
	AddLoop(ctx context.Context, trackID int, in library.LoopInput) (*library.Loop, error)
	LogFxUsage(ctx context.Context, deckID string, presetID, trackID int) error
	SaveDeckState(ctx context.Context, in library.DeckStateInput) (int, error)
	StartRecording(ctx context.Context, pathAudio, notes string) (int, error)
	StopRecording(ctx context.Context, recordingID int, durationMs int64) error
}

type PrefsFile interface {
	Read() (*fs.Prefs, error)
	Write(p fs.Prefs) error
}

type Cue struct {
	Label      string
	PositionMs int64
}

type Recording struct {
	Path      string
	ID        *int
	StartedAt time.Time
}

type DJState struct {
	DeckOrder  []engine.DeckID
	ActiveDeck engine.DeckID
	Cues       map[engine.DeckID][]Cue
	Loops      map[engine.DeckID][]library.Loop
	Recording  *Recording
	LastEvent  engine.EventType
}

// DJ mirrors engine events into a DJState and persists deck edits to the
// backend. Backend failures are logged, surfaced as error toasts and returned.
type DJ struct {
	*Store[DJState]
	engine      *engine.Engine
	backend     Backend
	prefs       PrefsFile
	toasts      *Toasts
	logger      zerolog.Logger
	unsubscribe func()
	now         func() time.Time
}

func NewDJ(e *engine.Engine, backend Backend, prefs PrefsFile, toasts *Toasts, logger zerolog.Logger) *DJ {
	logger = logger.With().Str("module", "dj").Logger()
	order, active := restorePrefs(prefs, logger)
	for _, id := range order {
		_, _ = e.Deck(id)
	}

	dj := &DJ{
		Store: New(DJState{
			DeckOrder:  order,
			ActiveDeck: active,
			Cues:       map[engine.DeckID][]Cue{},
			Loops:      map[engine.DeckID][]library.Loop{},
		}),
		engine:  e,
		backend: backend,
		prefs:   prefs,
		toasts:  toasts,
		logger:  logger,
		now:     time.Now,
	}
	dj.unsubscribe = e.On(dj.onEvent)
	return dj
}

func restorePrefs(prefs PrefsFile, logger zerolog.Logger) ([]engine.DeckID, engine.DeckID) {
	order := []engine.DeckID{engine.DeckA, engine.DeckB}
	active := engine.DeckA

	p, err := prefs.Read()
	if nil != err {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn().Func(log.Flaw(err)).Msg("Failed to read preferences, using defaults")
		}
		return order, active
	}

	restored := lo.Uniq(lo.FilterMap(p.DeckOrder, func(s string, _ int) (engine.DeckID, bool) {
		id, err := engine.ParseDeckID(s)
		return id, nil == err
	}))
	for _, base := range []engine.DeckID{engine.DeckB, engine.DeckA} {
		if !slices.Contains(restored, base) {
			restored = slices.Insert(restored, 0, base)
		}
	}
	slices.SortStableFunc(restored, func(a, b engine.DeckID) int {
		// base decks first, the rest in persisted order
		switch {
		case a.IsBase() && !b.IsBase():
			return -1
		case !a.IsBase() && b.IsBase():
			return 1
		case a.IsBase() && b.IsBase():
			return int(a[0]) - int(b[0])
		default:
			return 0
		}
	})

	if id, err := engine.ParseDeckID(p.ActiveDeck); nil == err && slices.Contains(restored, id) {
		active = id
	}
	return restored, active
}

func (dj *DJ) persistPrefs(s DJState) {
	p := fs.Prefs{
		DeckOrder:  lo.Map(s.DeckOrder, func(id engine.DeckID, _ int) string { return id.String() }),
		ActiveDeck: s.ActiveDeck.String(),
	}
	if err := dj.prefs.Write(p); nil != err {
		dj.logger.Error().Func(log.Flaw(err)).Msg("Failed to persist deck preferences")
	}
}

func (dj *DJ) onEvent(e engine.Event) {
	dj.Update(func(s DJState) DJState {
		s.LastEvent = e.Type
		switch e.Type { //nolint:exhaustive
		case engine.EventCueSet:
			s.Cues = maps.Clone(s.Cues)
			s.Cues[e.Deck] = upsertCue(s.Cues[e.Deck], Cue{Label: e.Label, PositionMs: e.PositionMs})
		case engine.EventRecordingStart:
			s.Recording = &Recording{Path: e.Path, StartedAt: dj.now()}
		case engine.EventRecordingStop:
			s.Recording = nil
		}
		return s
	})
}

// upsertCue replaces any cue with the same label and appends c last.
func upsertCue(cues []Cue, c Cue) []Cue {
	out := lo.Reject(cues, func(v Cue, _ int) bool { return v.Label == c.Label })
	return append(out, c)
}

func (dj *DJ) Close() {
	dj.unsubscribe()
}

func (dj *DJ) fail(err error, message string, fields func(e *zerolog.Event)) error {
	dj.logger.Error().Func(log.Flaw(err)).Func(fields).Msg(message)
	dj.toasts.Error(message)
	return err
}

func (dj *DJ) Deck(id engine.DeckID) (engine.Deck, error) {
	return dj.engine.Deck(id)
}

func (dj *DJ) Cues(id engine.DeckID) []Cue {
	return dj.Get().Cues[id]
}

// LoadTrack loads the track on the engine deck and seeds the deck's cues and
// loops from the backend.
func (dj *DJ) LoadTrack(ctx context.Context, id engine.DeckID, trackID int) error {
	if !id.Valid() {
		return engine.ErrUnknownDeck
	}
	fields := func(e *zerolog.Event) { e.Str("deck", id.String()).Int("track_id", trackID) }

	// A failed list fetch keeps the deck's lists only when they already
	// belong to this track.
	prev, _ := dj.engine.Deck(id)
	reload := nil != prev.TrackID && *prev.TrackID == trackID

	var (
		cues              []library.Cue
		loops             []library.Loop
		cuesErr, loopsErr error
		wg                errgroup.Group
	)
	// Each fetch runs on ctx itself: a failed cue or loop list must not
	// abort the analysis fetch.
	wg.Go(func() error {
		return dj.engine.LoadTrack(ctx, id, trackID)
	})
	wg.Go(func() error {
		cues, cuesErr = dj.backend.Cues(ctx, trackID)
		return nil
	})
	wg.Go(func() error {
		loops, loopsErr = dj.backend.Loops(ctx, trackID)
		return nil
	})
	loadErr := wg.Wait()

	dj.Update(func(s DJState) DJState {
		s.Cues = maps.Clone(s.Cues)
		s.Loops = maps.Clone(s.Loops)
		if nil == cuesErr {
			s.Cues[id] = lo.Map(cues, func(c library.Cue, _ int) Cue { return Cue{Label: c.Label, PositionMs: c.PositionMs} })
		} else if !reload {
			delete(s.Cues, id)
		}
		if nil == loopsErr {
			s.Loops[id] = loops
		} else if !reload {
			delete(s.Loops, id)
		}
		return s
	})
	if err := errors.Join(loadErr, cuesErr, loopsErr); nil != err {
		return dj.fail(err, "Failed to load track data", fields)
	}
	return nil
}

func (dj *DJ) Play(id engine.DeckID) error  { return dj.engine.Play(id) }
func (dj *DJ) Pause(id engine.DeckID) error { return dj.engine.Pause(id) }

func (dj *DJ) Seek(id engine.DeckID, ms int64) error {
	return dj.engine.Seek(id, ms)
}

func (dj *DJ) SetTempo(id engine.DeckID, tempo float64) error {
	return dj.engine.SetTempo(id, tempo)
}

func (dj *DJ) SetPitch(id engine.DeckID, cents float64) error {
	return dj.engine.SetPitch(id, cents)
}

func (dj *DJ) Sync(from, to engine.DeckID) error {
	return dj.engine.Sync(from, to)
}

func (dj *DJ) KeyShiftTo(id engine.DeckID, semitones int) error {
	return dj.engine.KeyShiftTo(id, semitones)
}

func (dj *DJ) SetKeyLock(id engine.DeckID, enabled bool) error {
	return dj.engine.SetKeyLock(id, enabled)
}

func (dj *DJ) SetQuantize(id engine.DeckID, enabled bool) error {
	return dj.engine.SetQuantize(id, enabled)
}

func (dj *DJ) SetSlip(id engine.DeckID, enabled bool) error {
	return dj.engine.SetSlip(id, enabled)
}

func (dj *DJ) JumpTo(id engine.DeckID, ms int64) error {
	return dj.engine.JumpTo(id, ms)
}

func (dj *DJ) ClearLoop(id engine.DeckID) error {
	return dj.engine.ClearLoop(id)
}

// SetLoop sets the deck loop and stores it for the loaded track.
func (dj *DJ) SetLoop(ctx context.Context, id engine.DeckID, startMs, endMs int64) error {
	if err := dj.engine.SetLoop(id, startMs, endMs); nil != err {
		return err
	}
	d, err := dj.engine.Deck(id)
	if nil != err {
		return err
	}
	if nil == d.TrackID || nil == d.Loop {
		return nil
	}

	in := library.LoopInput{StartMs: d.Loop.StartMs, EndMs: d.Loop.EndMs, Quantized: true, Active: true}
	if nil != d.BPM {
		beats := engine.LoopLengthBeats(d.Loop.StartMs, d.Loop.EndMs, *d.BPM)
		in.LengthBeats = &beats
	}
	loop, err := dj.backend.AddLoop(ctx, *d.TrackID, in)
	if nil != err {
		return dj.fail(err, "Failed to save loop", func(e *zerolog.Event) {
			e.Str("deck", id.String()).Int("track_id", *d.TrackID).Int64("start_ms", in.StartMs).Int64("end_ms", in.EndMs)
		})
	}
	dj.Update(func(s DJState) DJState {
		s.Loops = maps.Clone(s.Loops)
		s.Loops[id] = append(slices.Clone(s.Loops[id]), *loop)
		return s
	})
	return nil
}

// SetCue sets a cue at the quantized position and stores it for the loaded track.
func (dj *DJ) SetCue(ctx context.Context, id engine.DeckID, label string, ms int64) error {
	pos, err := dj.engine.SetCue(id, label, ms)
	if nil != err {
		return err
	}
	d, err := dj.engine.Deck(id)
	if nil != err {
		return err
	}
	if nil == d.TrackID {
		return nil
	}
	if _, err := dj.backend.UpsertCue(ctx, *d.TrackID, library.CueInput{Label: label, PositionMs: pos}); nil != err {
		return dj.fail(err, "Failed to save cue", func(e *zerolog.Event) {
			e.Str("deck", id.String()).Int("track_id", *d.TrackID).Str("label", label)
		})
	}
	return nil
}

// ApplyFx applies a preset. Usage is logged only for numeric preset ids on a
// deck with a loaded track.
func (dj *DJ) ApplyFx(ctx context.Context, id engine.DeckID, presetID string) error {
	if err := dj.engine.ApplyFx(id, presetID); nil != err {
		return err
	}
	d, err := dj.engine.Deck(id)
	if nil != err {
		return err
	}
	pid, err := strconv.Atoi(presetID)
	if nil != err || nil == d.TrackID {
		return nil
	}
	if err := dj.backend.LogFxUsage(ctx, id.String(), pid, *d.TrackID); nil != err {
		return dj.fail(err, "Failed to log effect usage", func(e *zerolog.Event) {
			e.Str("deck", id.String()).Int("track_id", *d.TrackID).Int("preset_id", pid)
		})
	}
	return nil
}

func (dj *DJ) StartRecording(ctx context.Context, path string) error {
	if nil != dj.Get().Recording {
		return ErrAlreadyRecording
	}
	dj.engine.StartRecording(path)

	recordingID, err := dj.backend.StartRecording(ctx, path, "")
	if nil != err {
		dj.Update(func(s DJState) DJState {
			if nil != s.Recording && s.Recording.Path == path && nil == s.Recording.ID {
				s.Recording = nil
			}
			return s
		})
		return dj.fail(err, "Failed to register recording", func(e *zerolog.Event) { e.Str("path", path) })
	}
	dj.Update(func(s DJState) DJState {
		if nil != s.Recording && s.Recording.Path == path {
			rec := *s.Recording
			rec.ID = &recordingID
			s.Recording = &rec
		}
		return s
	})
	return nil
}

func (dj *DJ) StopRecording(ctx context.Context) error {
	rec := dj.Get().Recording
	if nil == rec {
		return ErrNotRecording
	}
	dj.engine.StopRecording(rec.Path)
	if nil == rec.ID {
		return nil
	}

	duration := dj.now().Sub(rec.StartedAt)
	if err := dj.backend.StopRecording(ctx, *rec.ID, duration.Milliseconds()); nil != err {
		return dj.fail(err, "Failed to finish recording", func(e *zerolog.Event) { e.Str("path", rec.Path).Int("recording_id", *rec.ID) })
	}
	return nil
}

// SaveDeckState stores the deck's transport state and returns its backend id.
func (dj *DJ) SaveDeckState(ctx context.Context, id engine.DeckID) (int, error) {
	d, err := dj.engine.Deck(id)
	if nil != err {
		return 0, err
	}
	if nil == d.TrackID {
		return 0, fmt.Errorf("deck %s: %w", id, ErrNoTrack)
	}
	in := library.DeckStateInput{
		DeckID:     id.String(),
		TrackID:    *d.TrackID,
		PositionMs: d.PositionMs,
		Tempo:      d.Tempo,
		Pitch:      d.Pitch,
		KeyShift:   d.KeyShift,
		SlipMode:   d.Slip,
		KeyLock:    d.KeyLock,
		Quantize:   d.Quantize,
	}
	stateID, err := dj.backend.SaveDeckState(ctx, in)
	if nil != err {
		return 0, dj.fail(err, "Failed to save deck state", func(e *zerolog.Event) { e.Str("deck", id.String()).Int("track_id", *d.TrackID) })
	}
	return stateID, nil
}

func (dj *DJ) AddDeck() (engine.DeckID, error) {
	id, err := dj.engine.AddDeck()
	if nil != err {
		return "", err
	}
	s := dj.Update(func(s DJState) DJState {
		if !slices.Contains(s.DeckOrder, id) {
			s.DeckOrder = append(slices.Clone(s.DeckOrder), id)
		}
		return s
	})
	dj.persistPrefs(s)
	return id, nil
}

// RemoveDeck drops an extra deck. The active deck falls back to A when it is removed.
func (dj *DJ) RemoveDeck(id engine.DeckID) error {
	if err := dj.engine.RemoveDeck(id); nil != err {
		return err
	}
	s := dj.Update(func(s DJState) DJState {
		s.DeckOrder = slices.DeleteFunc(slices.Clone(s.DeckOrder), func(v engine.DeckID) bool { return v == id })
		s.Cues = maps.Clone(s.Cues)
		delete(s.Cues, id)
		s.Loops = maps.Clone(s.Loops)
		delete(s.Loops, id)
		if s.ActiveDeck == id {
			s.ActiveDeck = engine.DeckA
		}
		return s
	})
	dj.persistPrefs(s)
	return nil
}

func (dj *DJ) SetActiveDeck(id engine.DeckID) error {
	if !id.Valid() {
		return engine.ErrUnknownDeck
	}
	if !slices.Contains(dj.Get().DeckOrder, id) {
		return engine.ErrDeckNotFound
	}
	s := dj.Update(func(s DJState) DJState {
		s.ActiveDeck = id
		return s
	})
	dj.persistPrefs(s)
	return nil
}
