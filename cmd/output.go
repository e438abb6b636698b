package main

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
	"github.com/tidwall/pretty"
	"github.com/xeptore/flaw/v8"

	"github.com/unchained-app/unchained/errutil"
)

type output struct {
	w    io.Writer
	json bool
}

func newOutput(w io.Writer, asJSON bool) *output {
	return &output{w: w, json: asJSON}
}

func (o *output) writeJSON(v any) error {
	b, err := json.MarshalWithOption(v, json.DisableHTMLEscape())
	if nil != err {
		flawP := flaw.P{"err_debug_tree": errutil.Tree(err).FlawP()}
		return flaw.From(fmt.Errorf("failed to encode output: %v", err)).Append(flawP)
	}
	_, err = o.w.Write(pretty.Pretty(b))
	return err
}

// table prints rows under header, or v as JSON when JSON output is enabled.
func (o *output) table(v any, header []string, rows [][]string) error {
	if o.json {
		return o.writeJSON(v)
	}
	tw := tablewriter.NewWriter(o.w)
	tw.SetHeader(header)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetBorder(false)
	tw.SetHeaderLine(false)
	tw.SetCenterSeparator("")
	tw.SetColumnSeparator("")
	tw.SetRowSeparator("")
	tw.SetTablePadding("  ")
	tw.SetNoWhiteSpace(true)
	tw.AppendBulk(rows)
	tw.Render()
	return nil
}

// value prints a single result: JSON when enabled, otherwise the text line.
func (o *output) value(v any, text string) error {
	if o.json {
		return o.writeJSON(v)
	}
	_, err := fmt.Fprintln(o.w, text)
	return err
}

func (o *output) raw(b []byte) error {
	if o.json {
		_, err := o.w.Write(pretty.Pretty(b))
		return err
	}
	_, err := o.w.Write(pretty.Color(pretty.Pretty(b), nil))
	return err
}

func orDash(s *string) string {
	if nil == s || *s == "" {
		return "-"
	}
	return *s
}

func formatDuration(ms *int64) string {
	if nil == ms {
		return "-"
	}
	total := *ms / 1000
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
