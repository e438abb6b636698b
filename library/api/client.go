package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/xeptore/flaw/v8"

	"github.com/unchained-app/unchained/cache"
	"github.com/unchained-app/unchained/config"
	"github.com/unchained-app/unchained/errutil"
	"github.com/unchained-app/unchained/httputil"
	"github.com/unchained-app/unchained/must"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrTooManyRequests = errors.New("too many requests")
)

// Client talks to the UNCHAINED backend. It holds no state besides its caches.
type Client struct {
	baseURL   *url.URL
	transport http.RoundTripper
	cache     *cache.Cache
}

func New(baseURL string, c *cache.Cache) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if nil != err {
		flawP := flaw.P{"base_url": baseURL, "err_debug_tree": errutil.Tree(err).FlawP()}
		return nil, flaw.From(fmt.Errorf("failed to parse api base url: %v", err)).Append(flawP)
	}
	if nil == c {
		c = cache.New()
	}
	return &Client{baseURL: u, transport: http.DefaultTransport, cache: c}, nil
}

// WithTransport returns a copy of the client sending requests through rt.
func (c *Client) WithTransport(rt http.RoundTripper) *Client {
	out := *c
	out.transport = rt
	return &out
}

func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

type request struct {
	name        string
	method      string
	path        string
	query       url.Values
	body        any
	rawBody     io.Reader
	contentType string
	timeout     time.Duration
	// bodyRequired turns an empty success body into an error.
	bodyRequired bool
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) newRequest(ctx context.Context, r request, flawP flaw.P) (*http.Request, error) {
	var (
		body        io.Reader
		contentType = r.contentType
	)
	switch {
	case nil != r.rawBody:
		body = r.rawBody
	case nil != r.body:
		b, err := json.Marshal(r.body)
		if nil != err {
			flawP["err_debug_tree"] = errutil.Tree(err).FlawP()
			return nil, flaw.From(fmt.Errorf("failed to encode %s request body: %v", r.name, err)).Append(flawP)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.endpoint(r.path, r.query), body)
	if nil != err {
		if errutil.IsContext(ctx) {
			return nil, ctx.Err()
		}
		flawP["err_debug_tree"] = errutil.Tree(err).FlawP()
		return nil, flaw.From(fmt.Errorf("failed to create %s request: %v", r.name, err)).Append(flawP)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, r request) (respBytes []byte, err error) {
	flawP := flaw.P{"request": flaw.P{"name": r.name, "method": r.method, "path": r.path, "query": r.query.Encode()}}

	req, err := c.newRequest(ctx, r, flawP)
	if nil != err {
		return nil, err
	}
	reqP := errutil.HTTPRequestFlawPayload(req)
	reqP["name"] = r.name
	flawP["request"] = reqP

	timeout := r.timeout
	if timeout == 0 {
		timeout = config.DefaultRequestTimeout
	}
	client := http.Client{Timeout: timeout, Transport: c.transport} //nolint:exhaustruct
	resp, err := client.Do(req)
	if nil != err {
		switch {
		case errutil.IsContext(ctx):
			return nil, ctx.Err()
		case errors.Is(err, context.DeadlineExceeded):
			return nil, context.DeadlineExceeded
		default:
			flawP["err_debug_tree"] = errutil.Tree(err).FlawP()
			return nil, flaw.From(fmt.Errorf("failed to send %s request: %v", r.name, err)).Append(flawP)
		}
	}
	defer func() {
		if closeErr := resp.Body.Close(); nil != closeErr {
			flawP["err_debug_tree"] = errutil.Tree(closeErr).FlawP()
			closeErr = flaw.From(fmt.Errorf("failed to close %s response body: %v", r.name, closeErr)).Append(flawP)
			switch {
			case nil == err:
				err = closeErr
			case errutil.IsContext(ctx):
				err = flaw.From(errors.New("context was ended")).Join(closeErr)
			case errors.Is(err, context.DeadlineExceeded):
				err = flaw.From(errors.New("timeout has reached")).Join(closeErr)
			case errors.Is(err, ErrTooManyRequests):
				err = flaw.From(errors.New("too many requests")).Join(closeErr)
			case errors.Is(err, ErrNotFound):
				err = flaw.From(errors.New("not found")).Join(closeErr)
			case errutil.IsFlaw(err):
				err = must.BeFlaw(err).Join(closeErr)
			default:
				panic(errutil.UnknownError(err))
			}
		}
	}()
	flawP["response"] = errutil.HTTPResponseFlawPayload(resp)

	switch code := resp.StatusCode; {
	case code >= 200 && code < 300:
	case code == http.StatusNotFound:
		return nil, ErrNotFound
	case code == http.StatusTooManyRequests:
		return nil, ErrTooManyRequests
	case code >= 400 && code < 500:
		respBytes, err := httputil.ReadOptionalResponseBody(ctx, resp)
		if nil != err {
			return nil, err
		}
		flawP["response_body"] = string(respBytes)
		detail := httputil.Detail(respBytes)
		return nil, flaw.From(fmt.Errorf("backend rejected %s request with status %d: %s", r.name, code, detail)).Append(flawP)
	default:
		respBytes, err := httputil.ReadOptionalResponseBody(ctx, resp)
		if nil != err {
			return nil, err
		}
		flawP["response_body"] = string(respBytes)
		return nil, flaw.From(fmt.Errorf("unexpected status code received from %s: %d", r.name, code)).Append(flawP)
	}

	if r.bodyRequired {
		return httputil.ReadResponseBody(ctx, resp)
	}
	return httputil.ReadOptionalResponseBody(ctx, resp)
}

// decode unmarshals the value under key, or the whole body when key is empty.
func decode[T any](name string, respBytes []byte, key string) (T, error) {
	var out T
	raw := respBytes
	if key != "" {
		if !gjson.ValidBytes(respBytes) {
			flawP := flaw.P{"response_body": string(respBytes)}
			return out, flaw.From(fmt.Errorf("invalid %s response json", name)).Append(flawP)
		}
		res := gjson.GetBytes(respBytes, key)
		if !res.Exists() {
			flawP := flaw.P{"response_body": string(respBytes), "key": key}
			return out, flaw.From(fmt.Errorf("%s response has no %q key", name, key)).Append(flawP)
		}
		raw = []byte(res.Raw)
	}
	if err := json.Unmarshal(raw, &out); nil != err {
		flawP := flaw.P{"response_body": string(respBytes), "err_debug_tree": errutil.Tree(err).FlawP()}
		return out, flaw.From(fmt.Errorf("failed to decode %s response: %v", name, err)).Append(flawP)
	}
	return out, nil
}

func call[T any](ctx context.Context, c *Client, r request, key string) (T, error) {
	r.bodyRequired = true
	respBytes, err := c.do(ctx, r)
	if nil != err {
		var zero T
		return zero, err
	}
	return decode[T](r.name, respBytes, key)
}

func (c *Client) Health(ctx context.Context) error {
	res, err := call[struct {
		Status string `json:"status"`
	}](ctx, c, request{name: "health", method: http.MethodGet, path: "/health"}, "")
	if nil != err {
		return err
	}
	if res.Status != "ok" {
		return flaw.From(fmt.Errorf("backend reported status %q", res.Status))
	}
	return nil
}
