package selfquery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	acceptJSON   = "application/sparql-results+json"
	acceptTurtle = "text/turtle"
)

// endpointDriver issues SPARQL 1.1 Protocol queries over HTTP against an
// ordered list of endpoint candidates, falling through to the next
// candidate on any transport or HTTP-level error.
type endpointDriver struct {
	client     *http.Client
	candidates EndpointCandidates
}

// buildEndpointCandidates adds a docker-bridge fallback candidate: a
// caller running inside a container that points at host.docker.internal
// gets a second candidate using the container runtime's default bridge
// address, tried after the configured one fails.
func buildEndpointCandidates(endpoint string) EndpointCandidates {
	candidates := []string{endpoint}
	if strings.Contains(endpoint, "host.docker.internal") {
		alt := strings.ReplaceAll(endpoint, "host.docker.internal", "172.17.0.1")
		candidates = append(candidates, alt)
	}
	return dedupeStrings(candidates)
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func newEndpointDriver(endpoint string, timeoutSec int) *endpointDriver {
	return &endpointDriver{
		client:     &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		candidates: buildEndpointCandidates(endpoint),
	}
}

// run executes query against each candidate endpoint in order, requesting
// accept as the result representation. It returns the last error seen if
// every candidate fails, matching the driver's fail-with-last-error
// contract.
func (d *endpointDriver) run(ctx context.Context, query, accept string) ([]byte, error) {
	var lastErr error
	for _, endpoint := range d.candidates {
		body, err := d.runOne(ctx, endpoint, query, accept)
		if err != nil {
			slog.Warn("selfquery.endpoint: candidate failed", "endpoint", endpoint, "error", err)
			lastErr = err
			continue
		}
		return body, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("selfquery.endpoint: no endpoint candidates configured")
}

func (d *endpointDriver) runOne(ctx context.Context, endpoint, query, accept string) ([]byte, error) {
	form := url.Values{"query": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("selfquery.endpoint.runOne: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", accept)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("selfquery.endpoint.runOne: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("selfquery.endpoint.runOne: reading response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("selfquery.endpoint.runOne: endpoint returned status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
