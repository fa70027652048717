package client

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/foomo/hbkbrowser/pkg/metrics"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const headerAcceptLanguage = "Accept-Language"

// get fetches path below the base url and returns the body of a 2xx reply
func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values, locale string) (body []byte, err error) {
	start := time.Now()
	defer func() {
		status := metrics.StatusLabel(err)
		if ctx.Err() != nil {
			status = "canceled"
		}
		metrics.BackendRequestCounter.WithLabelValues(endpoint, status).Inc()
		metrics.BackendRequestDuration.WithLabelValues(endpoint, status).Observe(time.Since(start).Seconds())
	}()

	u := c.server + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create backend request")
	}
	if locale != "" {
		req.Header.Set(headerAcceptLanguage, locale)
	}

	c.l.Debug("backend request", zap.String("endpoint", endpoint), zap.String("url", u), zap.String("locale", locale))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.Wrapf(ErrNotFound, "%s %s", endpoint, path)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &TransportError{Endpoint: endpoint, Status: resp.StatusCode}
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransportError{Endpoint: endpoint, Status: resp.StatusCode, Err: err}
	}
	return body, nil
}
