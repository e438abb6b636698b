package errutil_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xeptore/flaw/v8"

	"github.com/unchained-app/unchained/errutil"
)

func leaf(message, typeName string) errutil.ErrInfo {
	return errutil.ErrInfo{Message: message, TypeName: typeName, Children: nil}
}

func TestTree(t *testing.T) {
	t.Parallel()

	assert.PanicsWithValue(t, "nil error", func() { errutil.Tree(nil) })

	missing := filepath.Join(t.TempDir(), "prefs.json")
	_, readErr := os.ReadFile(missing)
	pathMessage := "open " + missing + ": no such file or directory"

	testCases := []struct {
		name     string
		err      error
		expected errutil.ErrInfo
	}{
		{
			name:     "Plain",
			err:      errors.New("backend unreachable"),
			expected: leaf("backend unreachable", "*errors.errorString"),
		},
		{
			name: "Wrapped",
			err:  fmt.Errorf("load analysis: %w", context.DeadlineExceeded),
			expected: errutil.ErrInfo{
				Message:  "load analysis: context deadline exceeded",
				TypeName: "*fmt.wrapError",
				Children: []errutil.ErrInfo{leaf("context deadline exceeded", "context.deadlineExceededError")},
			},
		},
		{
			name: "Joined",
			err:  errors.Join(errors.New("save cue"), errors.Join(errors.New("close body"), errors.New("read body"))),
			expected: errutil.ErrInfo{
				Message:  "save cue\nclose body\nread body",
				TypeName: "*errors.joinError",
				Children: []errutil.ErrInfo{
					leaf("save cue", "*errors.errorString"),
					{
						Message:  "close body\nread body",
						TypeName: "*errors.joinError",
						Children: []errutil.ErrInfo{
							leaf("close body", "*errors.errorString"),
							leaf("read body", "*errors.errorString"),
						},
					},
				},
			},
		},
		{
			name: "PathError",
			err:  fmt.Errorf("read prefs: %w", readErr),
			expected: errutil.ErrInfo{
				Message:  "read prefs: " + pathMessage,
				TypeName: "*fmt.wrapError",
				Children: []errutil.ErrInfo{
					{
						Message:  pathMessage,
						TypeName: "*fs.PathError",
						Children: []errutil.ErrInfo{leaf("no such file or directory", "syscall.Errno")},
					},
				},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assertErrInfoAreEqual(t, tc.expected, errutil.Tree(tc.err))
		})
	}
}

func assertErrInfoAreEqual(t *testing.T, expected, actual errutil.ErrInfo) {
	t.Helper()
	assert.Exactly(t, expected.Message, actual.Message)
	assert.Exactly(t, expected.TypeName, actual.TypeName)
	if assert.Len(t, actual.Children, len(expected.Children), "children of %q", expected.Message) {
		for i, child := range actual.Children {
			assertErrInfoAreEqual(t, expected.Children[i], child)
		}
	}
}

func TestErrInfoFlawP(t *testing.T) {
	t.Parallel()

	tree := errutil.Tree(errors.Join(errors.New("first"), errors.New("second")))
	p := tree.FlawP()
	children, ok := p["children"].([]flaw.P)
	if assert.True(t, ok) {
		assert.Len(t, children, 2)
		assert.Equal(t, "first", children[0]["message"])
		assert.Equal(t, "second", children[1]["message"])
	}
}

func TestIsAny(t *testing.T) {
	t.Parallel()

	errA := errors.New("a")
	errB := errors.New("b")
	matched, ok := errutil.IsAny(fmt.Errorf("wrapped: %w", errB), errA, errB)
	assert.True(t, ok)
	assert.Equal(t, errB, matched)

	_, ok = errutil.IsAny(errors.New("c"), errA, errB)
	assert.False(t, ok)
}
