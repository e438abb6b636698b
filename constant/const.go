package constant

import (
	_ "embed"
	"fmt"
	"strings"
	"time"
)

const AppName = "UNCHAINED"

var (
	//go:embed version
	version     string
	Version     = strings.TrimSpace(version)
	compileTime = "2026-10-16T00:00:00Z"
	CompileTime time.Time
)

// compileTime is overridden at build time with -ldflags "-X".
func init() {
	t, err := time.Parse(time.RFC3339, compileTime)
	if nil != err {
		panic(fmt.Errorf("could not parse CompileTime constant %q. Make sure it is set at build time", compileTime))
	}
	CompileTime = t
}
