package errutil

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/xeptore/flaw/v8"
)

// ErrInfo is a snapshot of an error chain, one node per wrapped or joined error.
type ErrInfo struct {
	Message    string
	TypeName   string
	SyntaxRepr string
	Children   []ErrInfo
}

func (e ErrInfo) FlawP() flaw.P {
	return flaw.P{
		"message":     e.Message,
		"type_name":   e.TypeName,
		"syntax_repr": e.SyntaxRepr,
		"children":    lo.Map(e.Children, func(c ErrInfo, _ int) flaw.P { return c.FlawP() }),
	}
}

func Tree(err error) ErrInfo {
	if nil == err {
		panic("nil error")
	}

	info := ErrInfo{
		Message:    err.Error(),
		TypeName:   fmt.Sprintf("%T", err),
		SyntaxRepr: fmt.Sprintf("%+#v", err),
		Children:   nil,
	}
	//nolint:errorlint
	switch x := err.(type) {
	case interface{ Unwrap() error }:
		if inner := x.Unwrap(); nil != inner {
			info.Children = []ErrInfo{Tree(inner)}
		}
	case interface{ Unwrap() []error }:
		info.Children = lo.Map(x.Unwrap(), func(inner error, _ int) ErrInfo { return Tree(inner) })
	}
	return info
}
