package twitterbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"agentos/internal/domain"
)

const defaultAPIBaseURL = "https://api.twitter.com"

// Tweet is one published or fetched post.
type Tweet struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Poster is the boundary to the social platform. The HTTP client below
// talks to the real API; tests inject a fake.
type Poster interface {
	PostTweet(ctx context.Context, text string) (Tweet, error)
	Timeline(ctx context.Context) ([]Tweet, error)
}

// HTTPPoster implements Poster against the v2 REST API using a bearer
// token.
type HTTPPoster struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPPoster creates an API client. An empty token is allowed here;
// calls will fail with an auth error, which the agent reports as an
// error envelope.
func NewHTTPPoster(baseURL, token string, timeout time.Duration) *HTTPPoster {
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPPoster{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (p *HTTPPoster) PostTweet(ctx context.Context, text string) (Tweet, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return Tweet{}, fmt.Errorf("marshal tweet: %w", err)
	}

	var resp struct {
		Data Tweet `json:"data"`
	}
	if err := p.do(ctx, http.MethodPost, "/2/tweets", body, &resp); err != nil {
		return Tweet{}, err
	}
	return resp.Data, nil
}

func (p *HTTPPoster) Timeline(ctx context.Context) ([]Tweet, error) {
	var resp struct {
		Data []Tweet `json:"data"`
	}
	if err := p.do(ctx, http.MethodGet, "/2/users/me/tweets", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (p *HTTPPoster) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: API returned %d", domain.ErrAuthInvalid, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: API returned 429", domain.ErrRateLimit)
	case resp.StatusCode >= 300:
		return fmt.Errorf("%w: API error %d: %s", domain.ErrProviderError, resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
