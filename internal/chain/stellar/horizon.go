package stellar

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/stellar/go/clients/horizonclient"
)

// appName identifies the wallet to Horizon operators.
const appName = "caelus"

// horizonTransport routes SDK requests through the client's rate limiter,
// retry loop and circuit breaker. It is bound to one context and one
// endpoint name because the SDK request methods take neither.
type horizonTransport struct {
	c        *Client
	ctx      context.Context //nolint:containedctx // the SDK HTTP interface has no context parameter
	endpoint string
}

var _ horizonclient.HTTP = horizonTransport{}

// horizon returns an SDK client whose requests run under ctx and are
// accounted to endpoint.
func (c *Client) horizon(ctx context.Context, endpoint string) *horizonclient.Client {
	return &horizonclient.Client{
		HorizonURL: c.baseURL,
		HTTP:       horizonTransport{c: c, ctx: ctx, endpoint: endpoint},
		AppName:    appName,
	}
}

// Do replays req under the bound context. Retried requests get a fresh
// body from GetBody.
func (t horizonTransport) Do(req *http.Request) (*http.Response, error) {
	resp, err := t.c.do(t.ctx, t.endpoint, func() (*http.Request, error) {
		r := req.Clone(t.ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			r.Body = body
		}
		return r, nil
	})
	if err != nil {
		return nil, err
	}

	header := resp.header
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		Status:        http.StatusText(resp.status),
		StatusCode:    resp.status,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(resp.body)),
		ContentLength: int64(len(resp.body)),
		Request:       req,
	}, nil
}

// Get issues a GET through Do.
func (t horizonTransport) Get(rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(t.ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return t.Do(req)
}

// PostForm issues a form POST through Do.
func (t horizonTransport) PostForm(rawURL string, data url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(t.ctx, http.MethodPost, rawURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return t.Do(req)
}

// statusOf returns the HTTP status of a Horizon problem.
func statusOf(herr *horizonclient.Error) int {
	if herr.Response != nil {
		return herr.Response.StatusCode
	}
	return herr.Problem.Status
}

// isNotFound reports a 404 from Horizon, with or without a problem type.
func isNotFound(err error) bool {
	if horizonclient.IsNotFoundError(err) {
		return true
	}
	herr := horizonclient.GetError(err)
	return herr != nil && statusOf(herr) == http.StatusNotFound
}
