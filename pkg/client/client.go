// Package client is the Go consumer of the music_stream API: REST calls, a
// push or poll event source, and state that converges no matter which
// source delivered an event.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"music_stream/internal/domain"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// TokenSource returns the bearer token. refresh is true after the server
// rejected the previous token.
type TokenSource func(ctx context.Context, refresh bool) (string, error)

func StaticToken(token string) TokenSource {
	return func(context.Context, bool) (string, error) { return token, nil }
}

type Options struct {
	HTTPClient *http.Client
	// MaxRetries bounds retries of idempotent GETs. Writes are never retried.
	MaxRetries     uint64
	InitialBackoff time.Duration
}

type Client struct {
	baseURL        *url.URL
	http           *http.Client
	tokens         TokenSource
	maxRetries     uint64
	initialBackoff time.Duration
}

func New(baseURL string, tokens TokenSource, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 200 * time.Millisecond
	}
	return &Client{
		baseURL:        u,
		http:           opts.HTTPClient,
		tokens:         tokens,
		maxRetries:     opts.MaxRetries,
		initialBackoff: opts.InitialBackoff,
	}, nil
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
	Code    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

type request struct {
	method string
	path   string
	// body is rebuilt for every attempt
	body func() (io.Reader, string, error)
}

func jsonBody(v interface{}) func() (io.Reader, string, error) {
	return func() (io.Reader, string, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(b), "application/json", nil
	}
}

func (c *Client) do(ctx context.Context, req request, out interface{}) error {
	if req.method != http.MethodGet {
		return c.attempt(ctx, req, out)
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.initialBackoff
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, c.maxRetries), ctx)

	return backoff.Retry(func() error {
		err := c.attempt(ctx, req, out)
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 || apiErr.Status == http.StatusTooManyRequests
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// transport failures only; token and decode errors repeat on every attempt
	var netErr net.Error
	return errors.As(err, &netErr)
}

// attempt sends req once, and once more with a refreshed token on 401.
func (c *Client) attempt(ctx context.Context, req request, out interface{}) error {
	resp, err := c.send(ctx, req, false)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		_ = resp.Body.Close()
		if resp, err = c.send(ctx, req, true); err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}

func (c *Client) send(ctx context.Context, req request, refresh bool) (*http.Response, error) {
	var body io.Reader
	var contentType string
	if req.body != nil {
		var err error
		if body, contentType, err = req.body(); err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL.String()+req.path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")

	if c.tokens != nil {
		token, err := c.tokens(ctx, refresh)
		if err != nil {
			return nil, fmt.Errorf("get token: %w", err)
		}
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	return c.http.Do(httpReq)
}

func decodeResponse(resp *http.Response, out interface{}) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var body struct {
			Error   string `json:"error"`
			Message string `json:"message"`
			Code    string `json:"code"`
		}
		_ = json.Unmarshal(raw, &body)
		msg := body.Error
		if msg == "" {
			msg = body.Message
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg, Code: body.Code}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodGet, path: "/api/health"}, nil)
}

func (c *Client) Users(ctx context.Context) ([]*domain.User, error) {
	var users []*domain.User
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/users"}, &users)
	return users, err
}

// Conversation returns the messages between the caller and userID, oldest first.
func (c *Client) Conversation(ctx context.Context, userID string) ([]*domain.Message, error) {
	var messages []*domain.Message
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/messages/" + url.PathEscape(userID)}, &messages)
	return messages, err
}

func (c *Client) Messages(ctx context.Context) ([]*domain.Message, error) {
	var messages []*domain.Message
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/messages"}, &messages)
	return messages, err
}

type SendMessage struct {
	ReceiverID string `json:"receiverId"`
	Text       string `json:"message,omitempty"`
	ReplyToID  string `json:"replyToId,omitempty"`
}

func (c *Client) SendMessage(ctx context.Context, msg SendMessage) (*domain.Message, error) {
	var out domain.Message
	if err := c.do(ctx, request{method: http.MethodPost, path: "/api/messages", body: jsonBody(msg)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendFile uploads content as the message attachment. content is buffered so
// the request can be replayed after a token refresh.
func (c *Client) SendFile(ctx context.Context, msg SendMessage, name string, content io.Reader) (*domain.Message, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, fmt.Errorf("read attachment: %w", err)
	}

	body := func() (io.Reader, string, error) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fields := map[string]string{"receiverId": msg.ReceiverID, "message": msg.Text, "replyToId": msg.ReplyToID}
		for k, v := range fields {
			if v == "" {
				continue
			}
			if err := mw.WriteField(k, v); err != nil {
				return nil, "", err
			}
		}
		fw, err := mw.CreateFormFile("file", name)
		if err != nil {
			return nil, "", err
		}
		if _, err := fw.Write(data); err != nil {
			return nil, "", err
		}
		if err := mw.Close(); err != nil {
			return nil, "", err
		}
		return &buf, mw.FormDataContentType(), nil
	}

	var out domain.Message
	if err := c.do(ctx, request{method: http.MethodPost, path: "/api/messages", body: body}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) EditMessage(ctx context.Context, id uuid.UUID, text string) (*domain.Message, error) {
	var out domain.Message
	req := request{method: http.MethodPut, path: "/api/messages/" + id.String(), body: jsonBody(map[string]string{"message": text})}
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteMessage(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/api/messages/" + id.String()}, nil)
}

type statusEnvelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

func (c *Client) Statuses(ctx context.Context) ([]*domain.PresenceRecord, error) {
	var out statusEnvelope[[]*domain.PresenceRecord]
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/user-status"}, &out)
	return out.Data, err
}

func (c *Client) Status(ctx context.Context, userID string) (*domain.PresenceRecord, error) {
	var out statusEnvelope[*domain.PresenceRecord]
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/user-status/" + url.PathEscape(userID)}, &out)
	return out.Data, err
}

func (c *Client) UpdateStatus(ctx context.Context, userID string, status domain.PresenceStatus) (*domain.PresenceRecord, error) {
	var out statusEnvelope[*domain.PresenceRecord]
	body := jsonBody(map[string]string{"userId": userID, "status": string(status)})
	if err := c.do(ctx, request{method: http.MethodPost, path: "/api/user-status", body: body}, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// websocketURL builds the /ws address carrying the current token.
func (c *Client) websocketURL(ctx context.Context) (string, error) {
	u := *c.baseURL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"

	if c.tokens != nil {
		token, err := c.tokens(ctx, false)
		if err != nil {
			return "", fmt.Errorf("get token: %w", err)
		}
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
