package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tableflip.dev/procure/pkg/message"
)

const DefaultTimeout = 30 * time.Second

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message        string            `json:"message"`
	ConversationID *string           `json:"conversation_id"`
	CachedMessages []message.Message `json:"cached_messages"`
}

// ChatResponse is the body returned by POST /api/chat.
type ChatResponse struct {
	ConversationID           string                        `json:"conversation_id"`
	Response                 string                        `json:"response"`
	ProductSpecification     *message.ProductSpecification `json:"productSpecification,omitempty"`
	IsSpecificationFinalized bool                          `json:"isSpecificationFinalized"`
	Messages                 []message.Message             `json:"messages"`
	ShoppingOptions          []message.ShoppingOption      `json:"shoppingOptions,omitempty"`
}

// TransportError covers everything between "request built" and "response
// decoded": unreachable server, non-2xx status, and undecodable bodies.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway: %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("gateway: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client talks JSON to the chat backend.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = client }
}

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

// NewClient creates a client for the backend rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chat posts a user message and returns the server's authoritative state.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.CachedMessages == nil {
		req.CachedMessages = []message.Message{}
	}
	resp := &ChatResponse{}
	if err := c.doRequest(ctx, "chat", http.MethodPost, "/api/chat", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Conversation fetches a conversation by id.
func (c *Client) Conversation(ctx context.Context, id string) (*message.Conversation, error) {
	conv := &message.Conversation{}
	path := "/api/conversations/" + url.PathEscape(id)
	if err := c.doRequest(ctx, "fetch conversation", http.MethodGet, path, nil, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (c *Client) doRequest(ctx context.Context, op, method, path string, body, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("gateway: %s: marshal request: %w", op, err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("gateway: %s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", strings.TrimSpace(string(data)))}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
