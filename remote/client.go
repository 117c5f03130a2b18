package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/newsgenie/storycache/model"
)

// DefaultTimeout bounds every remote call unless overridden.
const DefaultTimeout = 15 * time.Second

// TokenProvider supplies the current bearer token, or "" when the user
// is not authenticated.
type TokenProvider func() string

// Client talks to the mobile BFF over HTTP. Responses arrive in a
// uniform envelope {data, success, message?, meta?}; failures surface
// as *APIError.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenProvider
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithTokenProvider attaches bearer-token auth to every request.
func WithTokenProvider(tp TokenProvider) Option {
	return func(c *Client) {
		c.token = tp
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// NewClient creates a Client for the given API base URL,
// e.g. "https://api.newsgenie.com/v1".
func NewClient(baseURL string, opts ...Option) *Client {
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

// envelope is the uniform response wrapper used by every endpoint.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Meta    json.RawMessage `json:"meta,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			Message:    resp.Status,
			Code:       "HTTP_ERROR",
			StatusCode: resp.StatusCode,
		}
		// The body may carry a structured error; keep the synthesized
		// one when it doesn't decode.
		var decoded APIError
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err == nil && decoded.Message != "" {
			decoded.StatusCode = resp.StatusCode
			apiErr = &decoded
		}
		return apiErr
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response for %s %s: %w", method, path, err)
	}
	if !env.Success {
		return &APIError{
			Message:    env.Message,
			Code:       "REQUEST_FAILED",
			StatusCode: resp.StatusCode,
		}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode payload for %s %s: %w", method, path, err)
		}
	}
	return nil
}

// GetFeed fetches one page of the personalized mobile feed.
func (c *Client) GetFeed(ctx context.Context, params model.FeedParams) (*model.FeedPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(params.Page))
	if params.Limit > 0 {
		query.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Cursor != "" {
		query.Set("cursor", params.Cursor)
	}
	for _, category := range params.Categories {
		query.Add("categories", string(category))
	}
	for _, language := range params.Languages {
		query.Add("languages", string(language))
	}

	var page model.FeedPage
	if err := c.do(ctx, http.MethodGet, "/mobile/feed", query, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetStory fetches a single story by ID.
func (c *Client) GetStory(ctx context.Context, storyID string) (*model.StoryCard, error) {
	var story model.StoryCard
	if err := c.do(ctx, http.MethodGet, "/stories/"+url.PathEscape(storyID), nil, nil, &story); err != nil {
		return nil, err
	}
	return &story, nil
}

// BookmarkStory persists a bookmark server-side.
func (c *Client) BookmarkStory(ctx context.Context, storyID string) error {
	return c.do(ctx, http.MethodPost, "/stories/"+url.PathEscape(storyID)+"/bookmark", nil, nil, nil)
}

// UnbookmarkStory removes a server-side bookmark.
func (c *Client) UnbookmarkStory(ctx context.Context, storyID string) error {
	return c.do(ctx, http.MethodDelete, "/stories/"+url.PathEscape(storyID)+"/bookmark", nil, nil, nil)
}

// ShareStory records a share event.
func (c *Client) ShareStory(ctx context.Context, storyID, platform string) error {
	body := map[string]string{"platform": platform}
	return c.do(ctx, http.MethodPost, "/stories/"+url.PathEscape(storyID)+"/share", nil, body, nil)
}
