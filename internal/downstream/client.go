// Package downstream holds HTTP clients for the analysis, generation and
// deployment services. Calls are single-attempt; any transport failure or
// non-2xx response surfaces as an unavailable error.
package downstream

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/autostack/gateway/internal/metrics"
	appErr "github.com/autostack/gateway/pkg/errors"
	"github.com/autostack/gateway/pkg/logger"
)

const userAgent = "AutoStack-Gateway/1.0"

type client struct {
	service string
	http    *resty.Client
	log     *zap.Logger
}

func newClient(service, baseURL string, timeout time.Duration) *client {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("User-Agent", userAgent).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(0).
		SetTimeout(timeout)
	return &client{service: service, http: rc, log: logger.Named("downstream").With(zap.String("service", service))}
}

// call sends one request. result may be nil when the body is ignored.
func (c *client) call(ctx context.Context, op, method, path string, body, result any) error {
	start := time.Now()
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}
	resp, err := req.Execute(method, path)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		metrics.RecordDownstream(c.service, op, "error", elapsed)
		c.log.Warn("downstream request failed", zap.String("operation", op), zap.Error(err))
		return appErr.Wrap(err, appErr.CodeUnavailable, c.service+" service unavailable").
			WithMeta("service", c.service)
	}
	if resp.IsError() {
		metrics.RecordDownstream(c.service, op, "error", elapsed)
		c.log.Warn("downstream returned error",
			zap.String("operation", op),
			zap.Int("status", resp.StatusCode()),
			zap.String("body", truncate(resp.String(), 512)))
		return appErr.Wrap(fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode()),
			appErr.CodeUnavailable, c.service+" service unavailable").
			WithMeta("service", c.service).
			WithMeta("status", resp.StatusCode())
	}
	metrics.RecordDownstream(c.service, op, "ok", elapsed)
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
