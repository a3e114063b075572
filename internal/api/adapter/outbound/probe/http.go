package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anthanhphan/go-channel-file-storage/pkg/netmon"
	"github.com/valyala/fasthttp"
)

// HTTPProber times a GET against an endpoint. Any answer below 500 counts as
// reachable: the probe measures connectivity, not endpoint health.
type HTTPProber struct {
	client  *fasthttp.Client
	timeout time.Duration
}

var _ netmon.Prober = (*HTTPProber)(nil)

func NewHTTPProber(timeout time.Duration) *HTTPProber {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPProber{
		client: &fasthttp.Client{
			Name:                   "go-channel-file-storage-probe",
			MaxResponseBodySize:    1 << 20,
			DisablePathNormalizing: true,
		},
		timeout: timeout,
	}
}

func (p *HTTPProber) Probe(ctx context.Context, endpoint string) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	deadline := time.Now().Add(p.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(endpoint)
	req.Header.SetMethod(fasthttp.MethodGet)
	// Bypass intermediary caches so latency reflects the path to the endpoint.
	req.Header.Set(fasthttp.HeaderCacheControl, "no-cache")

	start := time.Now()
	err := p.client.DoDeadline(req, resp, deadline)
	latency := time.Since(start)
	if err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) {
			return latency, fmt.Errorf("probe %s timed out: %w", endpoint, err)
		}
		return latency, fmt.Errorf("probe %s: %w", endpoint, err)
	}
	if resp.StatusCode() >= fasthttp.StatusInternalServerError {
		return latency, fmt.Errorf("probe %s: status %d", endpoint, resp.StatusCode())
	}
	return latency, nil
}
