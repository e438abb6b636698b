package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unchained-app/unchained/library"
)

func TestParseParams(t *testing.T) {
	t.Parallel()

	params, err := parseParams([]string{"cutoff=1200.5", "sync=true", "mode= lowpass", " q =2"})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"cutoff": 1200.5, "sync": true, "mode": " lowpass", "q": 2.0}, params)

	_, err = parseParams([]string{"cutoff"})
	require.ErrorContains(t, err, "expected key=value")

	_, err = parseParams([]string{"=1"})
	require.Error(t, err)
}

func TestParseEffects(t *testing.T) {
	t.Parallel()

	effects, err := parseEffects(`[{"effect_name":"echo","slot":0}]`)
	require.NoError(t, err)
	require.Len(t, effects, 1)
	require.Equal(t, "echo", effects[0]["effect_name"])

	effects, err = parseEffects("")
	require.NoError(t, err)
	require.Nil(t, effects)

	_, err = parseEffects("{")
	require.ErrorContains(t, err, "invalid effects JSON")
}

func TestParseBulkItems(t *testing.T) {
	t.Parallel()

	items, err := parseBulkItems([]string{"3:10", "4:11"})
	require.NoError(t, err)
	require.Equal(t, []library.BulkApplyItem{{CandidateID: 3, TrackID: 10}, {CandidateID: 4, TrackID: 11}}, items)

	for _, bad := range []string{"3", "x:10", "3:y"} {
		_, err := parseBulkItems([]string{bad})
		require.Error(t, err, bad)
	}
}

func TestParseTrackIDs(t *testing.T) {
	t.Parallel()

	ids, err := parseTrackIDs([]string{"1,2", "3", " ,4"})
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3, 4}, ids)

	_, err = parseTrackIDs([]string{"1,two"})
	require.ErrorContains(t, err, `invalid track id "two"`)
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	ms := int64(185_000)
	require.Equal(t, "3:05", formatDuration(&ms))
	require.Equal(t, "-", formatDuration(nil))
}
