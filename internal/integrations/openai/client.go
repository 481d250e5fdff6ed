package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"welfare-agent/internal/domain"
	"welfare-agent/internal/integrations/paramstore"
)

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	defaultTimeout   = 30 * time.Second
	keyLookupTimeout = 5 * time.Second
)

// ErrMissingAPIKey is returned before any network call when no API key is configured.
var ErrMissingAPIKey = errors.New("openai: API key is not configured")

// chatRequest is the minimal request shape for the Chat Completions endpoint.
type chatRequest struct {
	Model          string               `json:"model"`
	Messages       []domain.ChatMessage `json:"messages"`
	Temperature    *float64             `json:"temperature,omitempty"`
	MaxTokens      int                  `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat      `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatResponse is the minimal response shape returned by the Chat Completions endpoint.
type chatResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Choices []struct {
		Index   int                `json:"index"`
		Message domain.ChatMessage `json:"message"`
	} `json:"choices"`
}

// tokenPayload is the expected JSON shape stored in SSM for the API token.
type tokenPayload struct {
	Token string `json:"token"`
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// KeySource resolves the API key. An empty key with a nil error means no
// credential is configured.
type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

// StaticKey is a KeySource backed by a fixed value, typically OPENAI_API_KEY.
type StaticKey string

func (k StaticKey) APIKey(context.Context) (string, error) {
	return strings.TrimSpace(string(k)), nil
}

// ParamStoreKey reads the key from a parameter holding {"token": "..."}.
// A successful lookup is reused for the lifetime of the process; a failed
// one is retried on the next call.
type ParamStoreKey struct {
	getter Getter
	name   string

	mu       sync.Mutex
	resolved bool
	apiKey   string
}

// NewParamStoreKey returns a KeySource reading <paramPrefix>/open-ai-token.
func NewParamStoreKey(ps Getter, paramPrefix string) (*ParamStoreKey, error) {
	if ps == nil {
		return nil, errors.New("openai: paramstore getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("openai: parameter prefix must not be empty")
	}
	return &ParamStoreKey{getter: ps, name: paramPrefix + "/open-ai-token"}, nil
}

func (k *ParamStoreKey) APIKey(ctx context.Context) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.resolved {
		return k.apiKey, nil
	}

	// The result outlives this request, so its cancellation must not poison it.
	lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), keyLookupTimeout)
	defer cancel()
	key, err := fetchAPIKeyFromParamStore(lookupCtx, k.getter, k.name)
	if err != nil {
		return "", err
	}
	k.apiKey, k.resolved = key, true
	return key, nil
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("openai: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client is a focused OpenAI-compatible client for chat completions.
type Client struct {
	baseURL    string
	httpClient *http.Client
	keys       KeySource
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client that resolves its API key through keys on
// every call. Resolution is cheap for both StaticKey and ParamStoreKey.
func NewClient(keys KeySource, opts ...Option) (*Client, error) {
	if keys == nil {
		return nil, errors.New("openai: key source must not be nil")
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		keys:       keys,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// resolvedHTTPClient returns the configured HTTP client, or a default with a
// 30s timeout if none was set.
func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: defaultTimeout}
}

func chatURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + "/v1/chat/completions"
}

// Chat sends one completion request and returns the content of the first choice.
// The content may be empty; callers decide how to treat that.
func (c *Client) Chat(ctx context.Context, in domain.CompletionRequest) (string, error) {
	if in.Model == "" {
		return "", errors.New("openai: model must not be empty")
	}

	apiKey, err := c.keys.APIKey(ctx)
	if err != nil {
		return "", fmt.Errorf("openai: resolve API key: %w", err)
	}
	if apiKey == "" {
		return "", ErrMissingAPIKey
	}

	temperature := in.Temperature
	payload := chatRequest{
		Model:       in.Model,
		Messages:    in.Messages,
		Temperature: &temperature,
		MaxTokens:   in.MaxTokens,
	}
	if in.JSONOutput {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("openai: marshal request: %w", err)
	}

	url := chatURL(c.baseURL)

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if reqErr != nil {
		return "", fmt.Errorf("openai: create request: %w", reqErr)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	raw, err := c.doJSONRequest(req, url)
	if err != nil {
		return "", fmt.Errorf("openai: request failed: %w", err)
	}

	var out chatResponse
	if decErr := json.Unmarshal(raw, &out); decErr != nil {
		return "", fmt.Errorf("openai: decode response: %w", decErr)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("openai: no choices in response")
	}
	return out.Choices[0].Message.Content, nil
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}

func fetchAPIKeyFromParamStore(ctx context.Context, getter Getter, name string) (string, error) {
	if getter == nil {
		return "", errors.New("openai: paramstore getter is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("openai: token parameter name is empty")
	}

	raw, err := getter.GetParameter(ctx, name)
	if errors.Is(err, paramstore.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("openai: fetch token from paramstore: %w", err)
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("openai: unmarshal paramstore token value as JSON: %w", err)
	}
	if tp.Token == "" {
		return "", fmt.Errorf("openai: API token is empty")
	}
	return tp.Token, nil
}
