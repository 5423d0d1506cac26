// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package bridge

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/plexdesk/plexdesk/pkg/pluginsdk"
)

// Defaults for HTTPGateway.
const (
	DefaultTimeout = 30 * time.Second
	DefaultRetries = 3
	DefaultBackoff = 100 * time.Millisecond
)

// HTTPGateway forwards bridge requests to an HTTP backend at
// <base>/plugins/<plugin id>/<path>. Transport errors and 5xx responses are
// retried with exponential backoff; the last 5xx response is returned as is
// once retries run out.
type HTTPGateway struct {
	client  *resty.Client
	retries uint64
	backoff time.Duration
}

// HTTPOption configures an HTTPGateway.
type HTTPOption func(*HTTPGateway)

// WithRetries sets how many times a failed request is retried.
func WithRetries(n uint64) HTTPOption {
	return func(g *HTTPGateway) { g.retries = n }
}

// WithBackoff sets the base delay between retries.
func WithBackoff(d time.Duration) HTTPOption {
	return func(g *HTTPGateway) { g.backoff = d }
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(g *HTTPGateway) { g.client.SetTimeout(d) }
}

// WithClient replaces the underlying resty client. The base URL is kept.
func WithClient(c *resty.Client) HTTPOption {
	return func(g *HTTPGateway) {
		c.SetBaseURL(g.client.BaseURL)
		g.client = c
	}
}

// NewHTTPGateway creates a gateway for the backend at baseURL.
func NewHTTPGateway(baseURL string, opts ...HTTPOption) *HTTPGateway {
	g := &HTTPGateway{
		client: resty.New().
			SetBaseURL(strings.TrimSuffix(baseURL, "/")).
			SetTimeout(DefaultTimeout).
			SetHeader("User-Agent", "plexdesk-bridge"),
		retries: DefaultRetries,
		backoff: DefaultBackoff,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Do implements Gateway.
func (g *HTTPGateway) Do(ctx context.Context, pluginID, path string, req pluginsdk.BridgeRequest) (*pluginsdk.BridgeResponse, error) {
	target := "/plugins/" + url.PathEscape(pluginID) + "/" + strings.TrimPrefix(path, "/")
	method := req.EffectiveMethod()

	var last *resty.Response
	b := retry.WithMaxRetries(g.retries, retry.NewExponential(g.backoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		r := g.client.R().SetContext(ctx)
		if len(req.Headers) > 0 {
			r.SetHeaders(req.Headers)
		}
		if len(req.Query) > 0 {
			r.SetQueryParams(req.Query)
		}
		if req.Body != nil {
			r.SetBody(req.Body)
		}

		resp, err := r.Execute(method, target)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			return retry.RetryableError(err)
		}
		last = resp
		if resp.StatusCode() >= http.StatusInternalServerError {
			return retry.RetryableError(oops.Errorf("backend returned %d", resp.StatusCode()))
		}
		return nil
	})

	if err != nil {
		if last != nil && last.StatusCode() >= http.StatusInternalServerError {
			return Respond(last.StatusCode(), last.Body()), nil
		}
		return nil, oops.Code(CodeBridgeUnavailable).
			In("bridge").
			With("plugin", pluginID).
			With("path", path).
			With("method", method).
			Hint("bridge backend request failed").
			Wrap(err)
	}
	return Respond(last.StatusCode(), last.Body()), nil
}
