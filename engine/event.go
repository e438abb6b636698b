package engine

import "github.com/rs/zerolog"

type EventType string

const (
	EventTrackLoaded    EventType = "trackLoaded"
	EventPlay           EventType = "play"
	EventPause          EventType = "pause"
	EventSeek           EventType = "seek"
	EventTempoChange    EventType = "tempoChange"
	EventPitchChange    EventType = "pitchChange"
	EventSync           EventType = "sync"
	EventKeyShift       EventType = "keyShift"
	EventKeyLock        EventType = "keyLock"
	EventSlipToggle     EventType = "slipToggle"
	EventLoopSet        EventType = "loopSet"
	EventLoopClear      EventType = "loopClear"
	EventCueSet         EventType = "cueSet"
	EventCueJump        EventType = "cueJump"
	EventFxApply        EventType = "fxApply"
	EventRecordingStart EventType = "recordingStart"
	EventRecordingStop  EventType = "recordingStop"
)

// Event describes one engine state change. Only the fields relevant to Type
// are set. Deck is empty for recording events; sync events carry the source
// deck in From and the target in Deck.
type Event struct {
	Type       EventType
	Deck       DeckID
	From       DeckID
	TrackID    int
	PositionMs int64
	Tempo      float64
	Pitch      float64
	Semitones  int
	Enabled    bool
	Loop       Loop
	Label      string
	PresetID   string
	Path       string
}

type Listener func(e Event)

func (e Event) Log(ev *zerolog.Event) {
	ev.Str("type", string(e.Type))
	if e.Deck != "" {
		ev.Str("deck", e.Deck.String())
	}
	switch e.Type { //nolint:exhaustive
	case EventTrackLoaded:
		ev.Int("track_id", e.TrackID)
	case EventSeek, EventCueJump:
		ev.Int64("position_ms", e.PositionMs)
	case EventTempoChange:
		ev.Float64("tempo", e.Tempo)
	case EventPitchChange:
		ev.Float64("pitch", e.Pitch)
	case EventSync:
		ev.Str("from", e.From.String())
	case EventKeyShift:
		ev.Int("semitones", e.Semitones)
	case EventKeyLock, EventSlipToggle:
		ev.Bool("enabled", e.Enabled)
	case EventLoopSet:
		ev.Int64("start_ms", e.Loop.StartMs).Int64("end_ms", e.Loop.EndMs)
	case EventCueSet:
		ev.Str("label", e.Label).Int64("position_ms", e.PositionMs)
	case EventFxApply:
		ev.Str("preset_id", e.PresetID)
	case EventRecordingStart, EventRecordingStop:
		ev.Str("path", e.Path)
	}
}
