package must

import (
	"errors"

	"github.com/xeptore/flaw/v8"

	"github.com/unchained-app/unchained/errutil"
)

// BeFlaw returns the flaw in err's chain. Callers only use it on errors they
// constructed as flaws, so anything else is a programming error.
func BeFlaw(err error) *flaw.Flaw {
	var f *flaw.Flaw
	if !errors.As(err, &f) {
		panic(errutil.UnknownError(err))
	}
	return f
}
