package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// UserAgent is sent with every outbound request.
const UserAgent = "rss2social/1.0 (+https://github.com/rss2social/rss2social)"

// ErrBodyTooLarge is returned by Get when a response exceeds the client's body limit.
var ErrBodyTooLarge = errors.New("response body too large")

// RestyClient adapts resty.Client to the httpclient.Client interface.
type RestyClient struct {
	client  *resty.Client
	maxBody int64
}

// Option configures a RestyClient.
type Option func(*RestyClient)

// WithMaxBodyBytes caps how much of a response body Get will read.
func WithMaxBodyBytes(n int64) Option {
	return func(r *RestyClient) { r.maxBody = n }
}

// NewRestyClient creates a new RestyClient with the specified timeout.
func NewRestyClient(timeout time.Duration, opts ...Option) *RestyClient {
	r := &RestyClient{client: newRestyBaseClient(timeout)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing custom verbs.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	return newRestyBaseClient(timeout)
}

// newRestyBaseClient creates a new resty.Client with the specified timeout.
func newRestyBaseClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	c.SetTimeout(timeout)
	c.SetHeader("User-Agent", UserAgent)
	return c
}

// Get performs an HTTP GET request with the specified context, URL, and headers.
func (r *RestyClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	req := r.client.R().SetContext(ctx)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	if r.maxBody > 0 {
		return r.getLimited(req, url)
	}
	resp, err := req.Get(url)
	if err != nil {
		return nil, err
	}
	return &restyResponseAdapter{resp: resp}, nil
}

// getLimited streams the body itself so an oversized response is never buffered whole.
func (r *RestyClient) getLimited(req *resty.Request, url string) (Response, error) {
	resp, err := req.SetDoNotParseResponse(true).Get(url)
	if err != nil {
		return nil, err
	}
	raw := resp.RawBody()
	defer raw.Close()

	if n := resp.RawResponse.ContentLength; n > r.maxBody {
		return nil, fmt.Errorf("%w: content-length %d exceeds %d", ErrBodyTooLarge, n, r.maxBody)
	}
	body, err := io.ReadAll(io.LimitReader(raw, r.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > r.maxBody {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, r.maxBody)
	}
	return &bufferedResponse{body: body, status: resp.StatusCode(), header: resp.Header()}, nil
}

// restyResponseAdapter adapts resty.Response to the httpclient.Response interface.
type restyResponseAdapter struct {
	resp *resty.Response
}

func (r *restyResponseAdapter) Body() []byte        { return r.resp.Body() }
func (r *restyResponseAdapter) StatusCode() int     { return r.resp.StatusCode() }
func (r *restyResponseAdapter) Header() http.Header { return r.resp.Header() }

type bufferedResponse struct {
	body   []byte
	status int
	header http.Header
}

func (b *bufferedResponse) Body() []byte        { return b.body }
func (b *bufferedResponse) StatusCode() int     { return b.status }
func (b *bufferedResponse) Header() http.Header { return b.header }
