package engine

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"
)

var (
	ErrUnknownDeck  = errors.New("unknown deck")
	ErrDeckNotFound = errors.New("deck not found")
	ErrBaseDeck     = errors.New("base decks cannot be removed")
	ErrMaxDecks     = errors.New("all decks are in use")
)

type DeckID string

const (
	DeckA DeckID = "A"
	DeckB DeckID = "B"
	DeckC DeckID = "C"
	DeckD DeckID = "D"
	DeckE DeckID = "E"
	DeckF DeckID = "F"
)

// AllDecks lists every deck slot in canonical order.
var AllDecks = []DeckID{DeckA, DeckB, DeckC, DeckD, DeckE, DeckF}

func ParseDeckID(s string) (DeckID, error) {
	id := DeckID(strings.ToUpper(strings.TrimSpace(s)))
	if !id.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownDeck, s)
	}
	return id, nil
}

func (id DeckID) Valid() bool {
	return slices.Contains(AllDecks, id)
}

// IsBase reports whether the deck is one of the two permanent decks.
func (id DeckID) IsBase() bool {
	return id == DeckA || id == DeckB
}

func (id DeckID) String() string {
	return string(id)
}

const (
	MinTempo    = 0.5
	MaxTempo    = 2.0
	MinPitch    = -50.0
	MaxPitch    = 50.0
	MinKeyShift = -12
	MaxKeyShift = 12
)

type Loop struct {
	StartMs int64
	EndMs   int64
}

type Deck struct {
	TrackID      *int
	PositionMs   int64
	Tempo        float64
	Pitch        float64
	KeyShift     int
	KeyLock      bool
	Slip         bool
	SlipBufferMs *int64
	Quantize     bool
	Loop         *Loop
	BPM          *float64
	Beatgrid     []int64
	TrackKey     *string
}

func defaultDeck() *Deck {
	return &Deck{
		Tempo:    1.0,
		KeyLock:  true,
		Quantize: true,
	}
}

// clone returns a deep copy so callers never share state with the engine.
func (d *Deck) clone() Deck {
	out := *d
	if nil != d.TrackID {
		v := *d.TrackID
		out.TrackID = &v
	}
	if nil != d.SlipBufferMs {
		v := *d.SlipBufferMs
		out.SlipBufferMs = &v
	}
	if nil != d.Loop {
		v := *d.Loop
		out.Loop = &v
	}
	if nil != d.BPM {
		v := *d.BPM
		out.BPM = &v
	}
	if nil != d.TrackKey {
		v := *d.TrackKey
		out.TrackKey = &v
	}
	out.Beatgrid = slices.Clone(d.Beatgrid)
	return out
}

func (d *Deck) quantize(ms int64) int64 {
	return Quantize(d.Quantize, d.Beatgrid, ms)
}

func (d Deck) Log(e *zerolog.Event) {
	if nil != d.TrackID {
		e.Int("track_id", *d.TrackID)
	}
	e.
		Int64("position_ms", d.PositionMs).
		Float64("tempo", d.Tempo).
		Float64("pitch", d.Pitch).
		Int("key_shift", d.KeyShift).
		Bool("key_lock", d.KeyLock).
		Bool("slip", d.Slip).
		Bool("quantize", d.Quantize)
	if nil != d.Loop {
		e.Int64("loop_start_ms", d.Loop.StartMs).Int64("loop_end_ms", d.Loop.EndMs)
	}
	if nil != d.BPM {
		e.Float64("bpm", *d.BPM)
	}
}
