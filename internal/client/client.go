// Package client talks to the qrmenu HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"qrmenu/internal/model"
	"qrmenu/internal/ordering"
)

const errorBodyReadLimit int64 = 64 * 1024

var errBaseURLRequired = errors.New("api base URL is required")

var _ ordering.Submitter = (*Client)(nil)

// APIError is a non-2xx API response.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details map[string]string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.Status, e.Code)
	}
	return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
}

// IsCode reports whether err is an APIError with the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// Client is an HTTP client for the public, ordering and owner endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     zerolog.Logger

	mu    sync.RWMutex
	token string
}

// Option configures optional client behaviour.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With().Str("component", "api-client").Logger()
	}
}

// WithSessionToken sets the token sent on owner requests.
func WithSessionToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base URL: %w", err)
	}

	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    trimmed,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// SessionToken returns the current session token.
func (c *Client) SessionToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login authenticates an owner and keeps the session token for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (*model.LoginResponse, error) {
	var resp model.LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/auth", nil, model.LoginRequest{Username: username, Password: password}, nil, &resp)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.token = resp.SessionToken
	c.mu.Unlock()
	return &resp, nil
}

// PublicMenu fetches a tenant's profile with every list and item.
func (c *Client) PublicMenu(ctx context.Context, username string) (*model.PublicMenu, error) {
	var menu model.PublicMenu
	if err := c.do(ctx, http.MethodGet, "/api/public/menu/"+url.PathEscape(username), nil, nil, nil, &menu); err != nil {
		return nil, err
	}
	return &menu, nil
}

// SubmitOrder records a website or WhatsApp order.
func (c *Client) SubmitOrder(ctx context.Context, req *model.CreateOrderRequest, idempotencyKey string) (*model.Order, error) {
	var order model.Order
	if err := c.do(ctx, http.MethodPost, "/api/orders", nil, req, idempotency(idempotencyKey), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// SubmitTableOrder records a table order.
func (c *Client) SubmitTableOrder(ctx context.Context, req *model.CreateTableOrderRequest, idempotencyKey string) (*model.Order, error) {
	var order model.Order
	if err := c.do(ctx, http.MethodPost, "/api/table-orders", nil, req, idempotency(idempotencyKey), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Menu fetches the lists and items of adminID.
func (c *Client) Menu(ctx context.Context, adminID uuid.UUID) (*model.ItemsResponse, error) {
	var resp model.ItemsResponse
	q := url.Values{"adminId": {adminID.String()}}
	if err := c.do(ctx, http.MethodGet, "/api/menu", q, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateList creates a menu list.
func (c *Client) CreateList(ctx context.Context, req *model.CreateListRequest) (*model.MenuList, error) {
	var list model.MenuList
	if err := c.do(ctx, http.MethodPost, "/api/lists", nil, req, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// UpdateList edits a menu list.
func (c *Client) UpdateList(ctx context.Context, id uuid.UUID, req *model.UpdateListRequest) (*model.MenuList, error) {
	var list model.MenuList
	if err := c.do(ctx, http.MethodPut, "/api/lists/"+id.String(), nil, req, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// DeleteList removes a list and its items.
func (c *Client) DeleteList(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/lists/"+id.String(), nil, nil, nil, nil)
}

// CreateItem creates a menu item.
func (c *Client) CreateItem(ctx context.Context, req *model.CreateItemRequest) (*model.MenuItem, error) {
	var item model.MenuItem
	if err := c.do(ctx, http.MethodPost, "/api/menu", nil, req, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItem edits a menu item.
func (c *Client) UpdateItem(ctx context.Context, id uuid.UUID, req *model.UpdateItemRequest) (*model.MenuItem, error) {
	var item model.MenuItem
	if err := c.do(ctx, http.MethodPut, "/api/menu/"+id.String(), nil, req, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteItem removes a menu item.
func (c *Client) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/menu/"+id.String(), nil, nil, nil, nil)
}

func idempotency(key string) http.Header {
	if key == "" {
		return nil
	}
	return http.Header{"Idempotency-Key": {key}}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, header http.Header, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s %s request: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build %s %s request: %w", method, path, err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.SessionToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Bool("replayed", resp.Header.Get("Idempotent-Replay") == "true").
		Msg("api call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
	apiErr := &APIError{Status: resp.StatusCode}

	var body model.ErrorResponse
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		apiErr.Code = body.Error
		apiErr.Message = body.Message
		apiErr.Details = body.Details
		return apiErr
	}

	apiErr.Code = http.StatusText(resp.StatusCode)
	apiErr.Message = strings.TrimSpace(string(raw))
	return apiErr
}
