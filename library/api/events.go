package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/xeptore/flaw/v8"

	"github.com/unchained-app/unchained/errutil"
	"github.com/unchained-app/unchained/httputil"
	"github.com/unchained-app/unchained/library"
)

func (c *Client) EmitEvent(ctx context.Context, e library.ServerEvent) error {
	r := request{name: "emit event", method: http.MethodPost, path: "/sources/events/emit", body: e}
	_, err := c.do(ctx, r)
	return err
}

// OpenEventStream connects to the backend notification stream. The returned
// body stays open until ctx ends or the caller closes it.
func (c *Client) OpenEventStream(ctx context.Context) (io.ReadCloser, error) {
	const name = "event stream"
	flawP := flaw.P{"request": flaw.P{"name": name, "method": http.MethodGet, "path": "/sources/events/stream"}}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/sources/events/stream", nil), nil)
	if nil != err {
		if errutil.IsContext(ctx) {
			return nil, ctx.Err()
		}
		flawP["err_debug_tree"] = errutil.Tree(err).FlawP()
		return nil, flaw.From(fmt.Errorf("failed to create %s request: %v", name, err)).Append(flawP)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	client := http.Client{Transport: c.transport} //nolint:exhaustruct
	resp, err := client.Do(req)
	if nil != err {
		if errutil.IsContext(ctx) {
			return nil, ctx.Err()
		}
		flawP["err_debug_tree"] = errutil.Tree(err).FlawP()
		return nil, flaw.From(fmt.Errorf("failed to connect to %s: %v", name, err)).Append(flawP)
	}
	if resp.StatusCode == http.StatusOK {
		return resp.Body, nil
	}

	flawP["response"] = errutil.HTTPResponseFlawPayload(resp)
	respBytes, readErr := httputil.ReadOptionalResponseBody(ctx, resp)
	if closeErr := resp.Body.Close(); nil != closeErr {
		readErr = errors.Join(readErr, closeErr)
	}
	if nil != readErr {
		flawP["read_err_debug_tree"] = errutil.Tree(readErr).FlawP()
	}
	flawP["response_body"] = string(respBytes)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusTooManyRequests:
		return nil, ErrTooManyRequests
	default:
		return nil, flaw.From(fmt.Errorf("unexpected status code received from %s: %d", name, resp.StatusCode)).Append(flawP)
	}
}
