// Package client calls the welfare-agent HTTP endpoints and turns every
// failure into a localized, user-facing message.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"welfare-agent/internal/domain"
)

const (
	DefaultTimeout = 30 * time.Second
	// historyLimit caps the chat turns forwarded with each message.
	historyLimit = 10
)

type Kind string

const (
	KindTimeout Kind = "timeout"
	KindNetwork Kind = "network"
	KindStatus  Kind = "status"
	KindDecode  Kind = "decode"
)

// Error is the only error type returned by Client operations. Message is
// safe to show to the user.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type recommendationsResponse struct {
	Recommendations []domain.Recommendation `json:"recommendations"`
	Message         string                  `json:"message"`
}

type chatRequest struct {
	Message     string              `json:"message"`
	UserInfo    *domain.UserProfile `json:"userInfo"`
	ChatHistory []domain.ChatTurn   `json:"chatHistory"`
}

type chatResponse struct {
	Response string `json:"response"`
	Message  string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("client: base URL must not be empty")
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchRecommendations posts the profile and returns the recommendation set.
func (c *Client) FetchRecommendations(ctx context.Context, profile domain.UserProfile) ([]domain.Recommendation, error) {
	var out recommendationsResponse
	if err := c.postJSON(ctx, "/recommendations", profile, &out); err != nil {
		return nil, err
	}
	return out.Recommendations, nil
}

// SendChatMessage posts a chat message with the profile (nil when absent) and
// the most recent history turns, and returns the assistant's reply.
func (c *Client) SendChatMessage(ctx context.Context, message string, profile *domain.UserProfile, history []domain.ChatTurn) (string, error) {
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	if history == nil {
		history = []domain.ChatTurn{}
	}
	var out chatResponse
	if err := c.postJSON(ctx, "/chat", chatRequest{Message: message, UserInfo: profile, ChatHistory: history}, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

// Health reports whether GET /health answers with a 2xx status.
func (c *Client) Health(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = res.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
	return res.StatusCode >= 200 && res.StatusCode < 300
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return &Error{Kind: KindDecode, Message: MessageUnknown, Err: fmt.Errorf("marshal request: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return &Error{Kind: KindNetwork, Message: MessageNetwork, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Info("api request", "method", http.MethodPost, "path", path)
	start := time.Now()

	res, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("api request failed", "path", path, "err", err)
		return transportError(err)
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return transportError(err)
	}
	c.logger.Info("api response", "status", res.StatusCode, "path", path, "duration", time.Since(start))

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		c.logger.Error("api response error", "status", res.StatusCode, "path", path, "body", string(raw))
		return statusError(res.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Kind: KindDecode, StatusCode: res.StatusCode, Message: MessageUnknown, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func transportError(err error) *Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Kind: KindTimeout, Message: MessageTimeout, Err: err}
	}
	return &Error{Kind: KindNetwork, Message: MessageNetwork, Err: err}
}

func statusError(status int, body []byte) *Error {
	msg := StatusMessage(status)
	if status == http.StatusBadRequest {
		var er errorResponse
		if json.Unmarshal(body, &er) == nil && strings.TrimSpace(er.Error) != "" {
			msg = er.Error
		}
	}
	return &Error{Kind: KindStatus, StatusCode: status, Message: msg}
}
