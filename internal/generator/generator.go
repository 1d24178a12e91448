// Package generator calls the external code-generation service. The call is
// opaque to the ledger: a request goes in, code or an error comes out.
package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goccy/go-json"
)

// Request describes what to generate.
type Request struct {
	Description string `json:"description"`
	Language    string `json:"language"`
	PayloadType string `json:"payloadType"`
}

// Result is the generated code.
type Result struct {
	Code string `json:"code"`
}

// Generator produces code for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}

// ErrNotConfigured is returned when no generator endpoint is set.
var ErrNotConfigured = errors.New("generator endpoint not configured")

// StatusError reports a non-2xx reply from the generator endpoint.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("generator returned status %d: %s", e.Status, e.Body)
}

// HTTPGenerator posts requests as JSON to an HTTP endpoint using Fiber's client.
type HTTPGenerator struct {
	url     string
	timeout time.Duration
}

// NewHTTPGenerator returns a client for url.
func NewHTTPGenerator(url string, timeout time.Duration) *HTTPGenerator {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &HTTPGenerator{url: url, timeout: timeout}
}

func (g *HTTPGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	if g.url == "" {
		return nil, ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeout := g.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	agent := fiber.Post(g.url).
		JSONEncoder(json.Marshal).
		JSONDecoder(json.Unmarshal).
		JSON(req).
		Timeout(timeout)

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, &StatusError{Status: status, Body: truncate(string(body), 256)}
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode generator response: %w", err)
	}
	if result.Code == "" {
		return nil, errors.New("generator returned no code")
	}
	return &result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
