// Package httpfetch implements the HTTP collaborator used by the http
// supplier and the fetch function.
package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/solatis/jsonforge/internal/types"
)

// ErrFetch indicates a request that failed or returned a non-2xx status.
var ErrFetch = errors.New("fetch failed")

// Defaults applied when an option is not given.
const (
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "jsonforge"
	DefaultMaxBody   = int64(types.MaxDocumentSize)
)

// Client fetches resources and decodes them to text.
type Client struct {
	http      *http.Client
	userAgent string
	maxBody   int64
}

type Option func(*Client)

// WithHTTPClient replaces the underlying client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.http.Timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header sent unless the request sets one.
func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		if ua != "" {
			cl.userAgent = ua
		}
	}
}

// WithMaxBody bounds the number of body bytes read.
func WithMaxBody(n int64) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.maxBody = n
		}
	}
}

// New creates a client.
func New(opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{Timeout: DefaultTimeout},
		userAgent: DefaultUserAgent,
		maxBody:   DefaultMaxBody,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch performs req and returns the body decoded to UTF-8. The charset is
// taken from req, then from the response Content-Type, then defaults to UTF-8.
func (c *Client) Fetch(ctx context.Context, req types.RequestContext) (string, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	hreq, err := http.NewRequestWithContext(ctx, method, req.URI, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	hreq.Header.Set("User-Agent", c.userAgent)
	for k, v := range req.Headers {
		hreq.Header.Set(k, v)
	}

	resp, err := c.http.Do(hreq)
	if err != nil {
		return "", fmt.Errorf("%w: %s %s: %v", ErrFetch, method, req.URI, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %s %s: status %d", ErrFetch, method, req.URI, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", ErrFetch, err)
	}
	if int64(len(body)) > c.maxBody {
		return "", fmt.Errorf("%w: body exceeds %d bytes", types.ErrDocumentTooLarge, c.maxBody)
	}

	charset := req.Charset
	if charset == "" {
		charset = responseCharset(resp.Header.Get("Content-Type"))
	}
	return decode(body, charset)
}

func responseCharset(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}

// decode converts body from the named charset to UTF-8.
func decode(body []byte, charset string) (string, error) {
	if charset == "" || strings.EqualFold(charset, "utf-8") || strings.EqualFold(charset, "utf8") {
		return string(body), nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return "", fmt.Errorf("%w: unknown charset %q", ErrFetch, charset)
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", fmt.Errorf("%w: decode %s: %v", ErrFetch, charset, err)
	}
	return string(out), nil
}
