package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"agentos/internal/domain"
	"agentos/internal/infra/config"
)

// maxResponseBody is the maximum response body size we read from LLM APIs.
const maxResponseBody = 10 * 1024 * 1024 // 10 MB

// Default provider timeouts. Translation calls must degrade into the
// deterministic fallback quickly, so both sides stay short.
const (
	defaultConnTimeout = 3 * time.Second
	defaultRespTimeout = 3 * time.Second
)

// NewHTTPClient creates an *http.Client with timeout defaults suitable for
// translation providers. Used by Gemini and Ollama to avoid duplicating
// client setup logic.
func NewHTTPClient(cfg config.ProviderConfig) *http.Client {
	connTimeout := cfg.ConnTimeout
	if connTimeout == 0 {
		connTimeout = defaultConnTimeout
	}
	respTimeout := cfg.RespTimeout
	if respTimeout == 0 {
		respTimeout = defaultRespTimeout
	}

	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: connTimeout,
			}).DialContext,
			TLSHandshakeTimeout:   connTimeout,
			ResponseHeaderTimeout: respTimeout,
			ForceAttemptHTTP2:     true,
		},
		Timeout: connTimeout + respTimeout,
	}
}

// doJSONRequest performs a JSON POST request and returns the response body.
// It handles: create request, set headers, execute, read body (with limit),
// and check HTTP status code. Returns a domain error for non-200 responses.
func doJSONRequest(ctx context.Context, client *http.Client, url string, body []byte, headers map[string]string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, mapHTTPError(httpResp.StatusCode, respBody)
	}

	return respBody, nil
}

// mapHTTPError maps an HTTP status code + response body to a domain error
// so the circuit breaker and translation fallback can classify failures.
func mapHTTPError(statusCode int, body []byte) error {
	detail := fmt.Sprintf("API error %d: %s", statusCode, string(body))

	switch {
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimit, detail)
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrAuthInvalid, detail)
	case statusCode >= 500:
		return fmt.Errorf("%w: %s", domain.ErrProviderError, detail)
	default:
		return fmt.Errorf("%s", detail)
	}
}

// logGenerateCompleted logs the standard debug message after a successful
// LLM generation.
func logGenerateCompleted(logger *slog.Logger, providerName string, result *domain.GenerateResponse) {
	logger.Debug("llm generate completed",
		"provider", providerName,
		"model", result.Model,
		"chars", len(result.Text),
	)
}
