// Package djscript drives a DJ store from line-oriented text commands, e.g.
//
//	load A 12
//	tempo A 1.04
//	loop A 1000 5000
//	sync A B
package djscript

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/unchained-app/unchained/engine"
	"github.com/unchained-app/unchained/log"
	"github.com/unchained-app/unchained/store"
)

var ErrUsage = errors.New("invalid command usage")

type command struct {
	usage string
	args  int
	run   func(ctx context.Context, r *Runner, args []string) error
}

// Runner executes commands against a DJ store and writes results to out.
type Runner struct {
	dj     *store.DJ
	out    io.Writer
	logger zerolog.Logger
}

func New(dj *store.DJ, out io.Writer, logger zerolog.Logger) *Runner {
	return &Runner{dj: dj, out: out, logger: logger.With().Str("module", "djscript").Logger()}
}

// Run executes every line of script. Blank lines and lines starting with #
// are skipped. Failing commands are reported and do not stop the script; the
// number of failed commands is returned.
func (r *Runner) Run(ctx context.Context, script io.Reader) (failed int, err error) {
	scanner := bufio.NewScanner(script)
	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); nil != err {
			return failed, err
		}
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := r.Exec(ctx, line); nil != err {
			if errors.Is(err, context.Canceled) && nil != ctx.Err() {
				return failed, err
			}
			failed++
			r.logger.Error().Func(log.Flaw(err)).Int("line", lineNo).Str("command", line).Msg("Command failed")
			fmt.Fprintf(r.out, "line %d: %s: %v\n", lineNo, line, err)
		}
	}
	return failed, scanner.Err()
}

// Exec runs a single command line.
func (r *Runner) Exec(ctx context.Context, line string) (err error) {
	defer func() {
		if v := recover(); nil != v {
			r.logger.Error().Func(log.Panic(v)).Str("command", line).Msg("Command panicked")
			err = fmt.Errorf("command panicked: %v", v)
		}
	}()

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	name, args := strings.ToLower(fields[0]), fields[1:]
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q", name)
	}
	if cmd.args >= 0 && len(args) != cmd.args {
		return fmt.Errorf("%w: %s", ErrUsage, cmd.usage)
	}
	return cmd.run(ctx, r, args)
}

// Help lists the supported commands.
func Help() []string {
	names := lo.Keys(commands)
	slices.Sort(names)
	return lo.Map(names, func(name string, _ int) string { return commands[name].usage })
}

func deckArg(s string) (engine.DeckID, error) {
	return engine.ParseDeckID(s)
}

func intArg(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if nil != err {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return v, nil
}

func msArg(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if nil != err {
		return 0, fmt.Errorf("invalid millisecond position %q", s)
	}
	return v, nil
}

func floatArg(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if nil != err {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

func boolArg(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	default:
		return false, fmt.Errorf("invalid switch %q, expected on or off", s)
	}
}

func deckOp(usage string, fn func(dj *store.DJ, id engine.DeckID) error) command {
	return command{usage: usage, args: 1, run: func(_ context.Context, r *Runner, args []string) error {
		id, err := deckArg(args[0])
		if nil != err {
			return err
		}
		return fn(r.dj, id)
	}}
}

func deckValueOp[T any](usage string, parse func(string) (T, error), fn func(dj *store.DJ, id engine.DeckID, v T) error) command {
	return command{usage: usage, args: 2, run: func(_ context.Context, r *Runner, args []string) error {
		id, err := deckArg(args[0])
		if nil != err {
			return err
		}
		v, err := parse(args[1])
		if nil != err {
			return err
		}
		return fn(r.dj, id, v)
	}}
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"load": {usage: "load DECK TRACK_ID", args: 2, run: func(ctx context.Context, r *Runner, args []string) error {
			id, err := deckArg(args[0])
			if nil != err {
				return err
			}
			trackID, err := intArg(args[1])
			if nil != err {
				return err
			}
			return r.dj.LoadTrack(ctx, id, trackID)
		}},
		"play":     deckOp("play DECK", (*store.DJ).Play),
		"pause":    deckOp("pause DECK", (*store.DJ).Pause),
		"seek":     deckValueOp("seek DECK MS", msArg, (*store.DJ).Seek),
		"jump":     deckValueOp("jump DECK MS", msArg, (*store.DJ).JumpTo),
		"tempo":    deckValueOp("tempo DECK RATIO", floatArg, (*store.DJ).SetTempo),
		"pitch":    deckValueOp("pitch DECK CENTS", floatArg, (*store.DJ).SetPitch),
		"key":      deckValueOp("key DECK SEMITONES", intArg, (*store.DJ).KeyShiftTo),
		"keylock":  deckValueOp("keylock DECK on|off", boolArg, (*store.DJ).SetKeyLock),
		"quantize": deckValueOp("quantize DECK on|off", boolArg, (*store.DJ).SetQuantize),
		"slip":     deckValueOp("slip DECK on|off", boolArg, (*store.DJ).SetSlip),
		"unloop":   deckOp("unloop DECK", (*store.DJ).ClearLoop),
		"sync": {usage: "sync FROM TO", args: 2, run: func(_ context.Context, r *Runner, args []string) error {
			from, err := deckArg(args[0])
			if nil != err {
				return err
			}
			to, err := deckArg(args[1])
			if nil != err {
				return err
			}
			return r.dj.Sync(from, to)
		}},
		"loop": {usage: "loop DECK START_MS END_MS", args: 3, run: func(ctx context.Context, r *Runner, args []string) error {
			id, err := deckArg(args[0])
			if nil != err {
				return err
			}
			start, err := msArg(args[1])
			if nil != err {
				return err
			}
			end, err := msArg(args[2])
			if nil != err {
				return err
			}
			return r.dj.SetLoop(ctx, id, start, end)
		}},
		"cue": {usage: "cue DECK LABEL MS", args: 3, run: func(ctx context.Context, r *Runner, args []string) error {
			id, err := deckArg(args[0])
			if nil != err {
				return err
			}
			ms, err := msArg(args[2])
			if nil != err {
				return err
			}
			return r.dj.SetCue(ctx, id, args[1], ms)
		}},
		"fx": {usage: "fx DECK PRESET_ID", args: 2, run: func(ctx context.Context, r *Runner, args []string) error {
			id, err := deckArg(args[0])
			if nil != err {
				return err
			}
			return r.dj.ApplyFx(ctx, id, args[1])
		}},
		"record": {usage: "record start PATH | record stop", args: -1, run: func(ctx context.Context, r *Runner, args []string) error {
			switch {
			case len(args) == 2 && args[0] == "start":
				return r.dj.StartRecording(ctx, args[1])
			case len(args) == 1 && args[0] == "stop":
				return r.dj.StopRecording(ctx)
			default:
				return fmt.Errorf("%w: record start PATH | record stop", ErrUsage)
			}
		}},
		"save": {usage: "save DECK", args: 1, run: func(ctx context.Context, r *Runner, args []string) error {
			id, err := deckArg(args[0])
			if nil != err {
				return err
			}
			stateID, err := r.dj.SaveDeckState(ctx, id)
			if nil != err {
				return err
			}
			fmt.Fprintf(r.out, "deck %s saved as state %d\n", id, stateID)
			return nil
		}},
		"add": {usage: "add", args: 0, run: func(_ context.Context, r *Runner, _ []string) error {
			id, err := r.dj.AddDeck()
			if nil != err {
				return err
			}
			fmt.Fprintf(r.out, "deck %s added\n", id)
			return nil
		}},
		"remove": deckOp("remove DECK", (*store.DJ).RemoveDeck),
		"active": deckOp("active DECK", (*store.DJ).SetActiveDeck),
		"show": {usage: "show DECK", args: 1, run: func(_ context.Context, r *Runner, args []string) error {
			id, err := deckArg(args[0])
			if nil != err {
				return err
			}
			d, err := r.dj.Deck(id)
			if nil != err {
				return err
			}
			fmt.Fprintln(r.out, FormatDeck(id, d))
			for _, c := range r.dj.Cues(id) {
				fmt.Fprintf(r.out, "  cue %s @ %dms\n", c.Label, c.PositionMs)
			}
			return nil
		}},
	}
}

// FormatDeck renders a one-line deck summary.
func FormatDeck(id engine.DeckID, d engine.Deck) string {
	var b strings.Builder
	fmt.Fprintf(&b, "deck %s:", id)
	if nil != d.TrackID {
		fmt.Fprintf(&b, " track=%d", *d.TrackID)
	} else {
		b.WriteString(" track=-")
	}
	fmt.Fprintf(&b, " pos=%dms tempo=%.3f pitch=%+.1fc key=%+d", d.PositionMs, d.Tempo, d.Pitch, d.KeyShift)
	fmt.Fprintf(&b, " keylock=%t quantize=%t slip=%t", d.KeyLock, d.Quantize, d.Slip)
	if nil != d.SlipBufferMs {
		fmt.Fprintf(&b, " slip_pos=%dms", *d.SlipBufferMs)
	}
	if nil != d.Loop {
		fmt.Fprintf(&b, " loop=%d-%dms", d.Loop.StartMs, d.Loop.EndMs)
		if nil != d.BPM {
			fmt.Fprintf(&b, " (%.2f beats)", engine.LoopLengthBeats(d.Loop.StartMs, d.Loop.EndMs, *d.BPM))
		}
	}
	if nil != d.BPM {
		fmt.Fprintf(&b, " bpm=%.2f", *d.BPM)
	}
	if nil != d.TrackKey {
		fmt.Fprintf(&b, " track_key=%s", *d.TrackKey)
	}
	return b.String()
}
