package engine

import (
	"context"
	"errors"
	"math"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/unchained-app/unchained/library"
	"github.com/unchained-app/unchained/library/api"
	"github.com/unchained-app/unchained/mathutil"
)

type AnalysisFetcher interface {
	Analysis(ctx context.Context, trackID int) (*library.Analysis, error)
}

type listener struct {
	id int
	fn Listener
}

// Engine simulates the transport state of up to six decks. It performs no
// audio processing.
type Engine struct {
	mux            sync.Mutex
	decks          map[DeckID]*Deck
	listeners      []listener
	nextListenerID int
	fetcher        AnalysisFetcher
	logger         zerolog.Logger
}

func New(fetcher AnalysisFetcher, logger zerolog.Logger) *Engine {
	return &Engine{
		decks: map[DeckID]*Deck{
			DeckA: defaultDeck(),
			DeckB: defaultDeck(),
		},
		fetcher: fetcher,
		logger:  logger.With().Str("module", "engine").Logger(),
	}
}

// On registers l and returns a function that unregisters it.
func (e *Engine) On(l Listener) (unsubscribe func()) {
	e.mux.Lock()
	defer e.mux.Unlock()

	id := e.nextListenerID
	e.nextListenerID++
	e.listeners = append(e.listeners, listener{id: id, fn: l})

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mux.Lock()
			defer e.mux.Unlock()
			e.listeners = slices.DeleteFunc(e.listeners, func(v listener) bool { return v.id == id })
		})
	}
}

func (e *Engine) emit(events ...Event) {
	e.mux.Lock()
	listeners := slices.Clone(e.listeners)
	e.mux.Unlock()

	for _, ev := range events {
		e.logger.Trace().Func(ev.Log).Msg("Engine event")
		for _, l := range listeners {
			l.fn(ev)
		}
	}
}

// deck must be called with e.mux held.
func (e *Engine) deck(id DeckID) (*Deck, error) {
	if !id.Valid() {
		return nil, ErrUnknownDeck
	}
	d, ok := e.decks[id]
	if !ok {
		d = defaultDeck()
		e.decks[id] = d
	}
	return d, nil
}

// update runs fn on the deck under the lock and emits the returned events
// after releasing it.
func (e *Engine) update(id DeckID, fn func(d *Deck) []Event) error {
	e.mux.Lock()
	d, err := e.deck(id)
	if nil != err {
		e.mux.Unlock()
		return err
	}
	events := fn(d)
	e.mux.Unlock()

	e.emit(events...)
	return nil
}

func (e *Engine) DeckIDs() []DeckID {
	e.mux.Lock()
	defer e.mux.Unlock()

	ids := make([]DeckID, 0, len(e.decks))
	for _, id := range AllDecks {
		if _, ok := e.decks[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func (e *Engine) AddDeck() (DeckID, error) {
	e.mux.Lock()
	defer e.mux.Unlock()

	for _, id := range AllDecks {
		if _, ok := e.decks[id]; !ok {
			e.decks[id] = defaultDeck()
			return id, nil
		}
	}
	return "", ErrMaxDecks
}

func (e *Engine) RemoveDeck(id DeckID) error {
	if !id.Valid() {
		return ErrUnknownDeck
	}
	if id.IsBase() {
		return ErrBaseDeck
	}

	e.mux.Lock()
	defer e.mux.Unlock()

	if _, ok := e.decks[id]; !ok {
		return ErrDeckNotFound
	}
	delete(e.decks, id)
	return nil
}

// Deck returns a snapshot of the deck, creating it with defaults when absent.
func (e *Engine) Deck(id DeckID) (Deck, error) {
	e.mux.Lock()
	defer e.mux.Unlock()

	d, err := e.deck(id)
	if nil != err {
		return Deck{}, err
	}
	return d.clone(), nil
}

// LoadTrack resets the deck for trackID and fetches its analysis. The
// trackLoaded event is emitted once the analysis has been applied, so
// listeners see the BPM and beatgrid. A track without analysis loads with an
// empty beatgrid. Other fetch failures are returned after the event. No event
// is emitted when another track replaced this one while the fetch was in flight.
func (e *Engine) LoadTrack(ctx context.Context, id DeckID, trackID int) error {
	err := e.update(id, func(d *Deck) []Event {
		d.TrackID = &trackID
		d.PositionMs = 0
		d.Loop = nil
		d.SlipBufferMs = nil
		d.BPM = nil
		d.TrackKey = nil
		d.Beatgrid = nil
		return nil
	})
	if nil != err {
		return err
	}

	var a *library.Analysis
	if nil != e.fetcher {
		a, err = e.fetcher.Analysis(ctx, trackID)
		if nil != err {
			if errors.Is(err, api.ErrNotFound) {
				e.logger.Debug().Str("deck", id.String()).Int("track_id", trackID).Msg("Track has no analysis")
				err = nil
			}
			a = nil
		}
	}

	e.mux.Lock()
	d, _ := e.deck(id)
	if nil == d.TrackID || *d.TrackID != trackID {
		e.mux.Unlock()
		return err
	}
	if nil != a {
		d.BPM = a.BPM
		d.TrackKey = a.Key
		if nil != a.BeatgridJSON {
			d.Beatgrid = ParseBeatgrid(*a.BeatgridJSON)
		}
	}
	e.mux.Unlock()

	e.emit(Event{Type: EventTrackLoaded, Deck: id, TrackID: trackID})
	return err
}

func (e *Engine) Play(id DeckID) error {
	return e.update(id, func(*Deck) []Event {
		return []Event{{Type: EventPlay, Deck: id}}
	})
}

func (e *Engine) Pause(id DeckID) error {
	return e.update(id, func(*Deck) []Event {
		return []Event{{Type: EventPause, Deck: id}}
	})
}

func (e *Engine) Seek(id DeckID, ms int64) error {
	return e.update(id, func(d *Deck) []Event {
		d.PositionMs = max(0, d.quantize(ms))
		return []Event{{Type: EventSeek, Deck: id, PositionMs: d.PositionMs}}
	})
}

func (e *Engine) SetTempo(id DeckID, tempo float64) error {
	if math.IsNaN(tempo) {
		tempo = 1.0
	}
	return e.update(id, func(d *Deck) []Event {
		d.Tempo = mathutil.Clamp(tempo, MinTempo, MaxTempo)
		return []Event{{Type: EventTempoChange, Deck: id, Tempo: d.Tempo}}
	})
}

func (e *Engine) SetPitch(id DeckID, cents float64) error {
	if math.IsNaN(cents) {
		cents = 0
	}
	return e.update(id, func(d *Deck) []Event {
		d.Pitch = mathutil.Clamp(cents, MinPitch, MaxPitch)
		return []Event{{Type: EventPitchChange, Deck: id, Pitch: d.Pitch}}
	})
}

func (e *Engine) KeyShiftTo(id DeckID, semitones int) error {
	return e.update(id, func(d *Deck) []Event {
		d.KeyShift = mathutil.Clamp(semitones, MinKeyShift, MaxKeyShift)
		return []Event{{Type: EventKeyShift, Deck: id, Semitones: d.KeyShift}}
	})
}

func (e *Engine) SetKeyLock(id DeckID, enabled bool) error {
	return e.update(id, func(d *Deck) []Event {
		d.KeyLock = enabled
		return []Event{{Type: EventKeyLock, Deck: id, Enabled: enabled}}
	})
}

// SetQuantize emits no event.
func (e *Engine) SetQuantize(id DeckID, enabled bool) error {
	return e.update(id, func(d *Deck) []Event {
		d.Quantize = enabled
		return nil
	})
}

// Sync matches the target deck's tempo and pitch to the source deck and, when
// both decks carry a beatgrid, aligns the target's nearest beat with the
// source's.
func (e *Engine) Sync(from, to DeckID) error {
	e.mux.Lock()
	src, err := e.deck(from)
	if nil != err {
		e.mux.Unlock()
		return err
	}
	tgt, err := e.deck(to)
	if nil != err {
		e.mux.Unlock()
		return err
	}
	tgt.Tempo = src.Tempo
	tgt.Pitch = src.Pitch
	if offset, ok := SyncOffset(src.Beatgrid, src.PositionMs, tgt.Beatgrid, tgt.PositionMs); ok {
		tgt.PositionMs = max(0, tgt.PositionMs+offset)
	}
	e.mux.Unlock()

	e.emit(Event{Type: EventSync, Deck: to, From: from})
	return nil
}

// SetSlip toggles slip mode. Turning it off moves the deck to the shadow
// position accumulated while it was on.
func (e *Engine) SetSlip(id DeckID, enabled bool) error {
	return e.update(id, func(d *Deck) []Event {
		d.Slip = enabled
		if !enabled && nil != d.SlipBufferMs {
			d.PositionMs = max(0, *d.SlipBufferMs)
			d.SlipBufferMs = nil
		}
		return []Event{{Type: EventSlipToggle, Deck: id, Enabled: enabled}}
	})
}

// JumpTo moves to a cue position. In slip mode the visible position stays put
// and only the shadow position advances.
func (e *Engine) JumpTo(id DeckID, ms int64) error {
	return e.update(id, func(d *Deck) []Event {
		snapped := d.quantize(ms)
		if d.Slip {
			// The visible position stays put; the shadow tracks the last jump target.
			buf := snapped
			d.SlipBufferMs = &buf
		} else {
			d.PositionMs = max(0, snapped)
		}
		return []Event{{Type: EventCueJump, Deck: id, PositionMs: d.PositionMs}}
	})
}

// SetLoop quantizes both bounds. A loop whose end does not come after its
// start clears the current loop instead.
func (e *Engine) SetLoop(id DeckID, startMs, endMs int64) error {
	return e.update(id, func(d *Deck) []Event {
		start := max(0, d.quantize(startMs))
		end := max(0, d.quantize(endMs))
		if end <= start {
			d.Loop = nil
			return []Event{{Type: EventLoopClear, Deck: id}}
		}
		d.Loop = &Loop{StartMs: start, EndMs: end}
		return []Event{{Type: EventLoopSet, Deck: id, Loop: *d.Loop}}
	})
}

func (e *Engine) ClearLoop(id DeckID) error {
	return e.update(id, func(d *Deck) []Event {
		d.Loop = nil
		return []Event{{Type: EventLoopClear, Deck: id}}
	})
}

// SetCue returns the quantized cue position. Cues are not stored on the deck.
func (e *Engine) SetCue(id DeckID, label string, ms int64) (int64, error) {
	var pos int64
	err := e.update(id, func(d *Deck) []Event {
		pos = max(0, d.quantize(ms))
		return []Event{{Type: EventCueSet, Deck: id, Label: label, PositionMs: pos}}
	})
	return pos, err
}

func (e *Engine) ApplyFx(id DeckID, presetID string) error {
	return e.update(id, func(*Deck) []Event {
		return []Event{{Type: EventFxApply, Deck: id, PresetID: presetID}}
	})
}

func (e *Engine) StartRecording(path string) {
	e.emit(Event{Type: EventRecordingStart, Path: path})
}

func (e *Engine) StopRecording(path string) {
	e.emit(Event{Type: EventRecordingStop, Path: path})
}
