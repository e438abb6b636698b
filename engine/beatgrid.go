package engine

import (
	"math"
	"slices"

	"github.com/tidwall/gjson"

	"github.com/unchained-app/unchained/mathutil"
)

// NearestBeat returns the grid entry closest to ms. On an exact tie the
// earlier entry wins. An empty grid returns ms unchanged.
func NearestBeat(grid []int64, ms int64) int64 {
	if len(grid) == 0 {
		return ms
	}
	best := grid[0]
	diff := mathutil.Abs(ms - best)
	for _, b := range grid[1:] {
		if d := mathutil.Abs(ms - b); d < diff {
			best, diff = b, d
		}
	}
	return best
}

func Quantize(enabled bool, grid []int64, ms int64) int64 {
	if !enabled || len(grid) == 0 {
		return ms
	}
	return NearestBeat(grid, ms)
}

// SyncOffset is the shift that puts the target's nearest beat onto the
// source's nearest beat. It reports false unless both grids have at least two
// entries.
func SyncOffset(sourceGrid []int64, sourcePos int64, targetGrid []int64, targetPos int64) (int64, bool) {
	if len(sourceGrid) < 2 || len(targetGrid) < 2 {
		return 0, false
	}
	return NearestBeat(sourceGrid, sourcePos) - NearestBeat(targetGrid, targetPos), true
}

// ParseBeatgrid decodes a JSON array of beat positions in milliseconds.
// Non-numeric entries are dropped, and anything that is not an array yields nil.
func ParseBeatgrid(raw string) []int64 {
	if !gjson.Valid(raw) {
		return nil
	}
	v := gjson.Parse(raw)
	if !v.IsArray() {
		return nil
	}
	var grid []int64
	v.ForEach(func(_, entry gjson.Result) bool {
		if entry.Type == gjson.Number {
			grid = append(grid, int64(math.Round(entry.Float())))
		}
		return true
	})
	slices.Sort(grid)
	return grid
}

func LoopLengthBeats(startMs, endMs int64, bpm float64) float64 {
	return float64(max(0, endMs-startMs)) / 60000 * bpm
}
