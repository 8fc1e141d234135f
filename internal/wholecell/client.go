package wholecell

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"phonedeck/internal/config"
)

// ErrNotConfigured is returned before any network call when a required
// credential is missing.
var ErrNotConfigured = errors.New("wholecell credentials not configured")

// APIError is a non-2xx response from the WholeCell API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wholecell api error: %d - %s", e.StatusCode, e.Body)
}

// Client talks to the WholeCell inventories API. Requests are paced with a
// fixed inter-page delay to stay under the vendor's 2 req/sec limit.
type Client struct {
	baseURL    string
	appKey     string
	appSecret  string
	pageDelay  time.Duration
	httpClient *http.Client
}

// NewClient creates a WholeCell client from config. Credentials are not
// checked here; every fetch validates them first so a misconfigured install
// fails with a clear message instead of a 401.
func NewClient(cfg config.WholeCellConfig) *Client {
	delay := cfg.PageDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		appKey:     cfg.AppKey,
		appSecret:  cfg.AppSecret,
		pageDelay:  delay,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) checkCredentials() error {
	if c.appKey == "" {
		return fmt.Errorf("%w: WHOLECELL_APP_KEY is not set", ErrNotConfigured)
	}
	if c.appSecret == "" {
		return fmt.Errorf("%w: WHOLECELL_APP_SECRET is not set", ErrNotConfigured)
	}
	return nil
}

func (c *Client) authHeader() string {
	credentials := base64.StdEncoding.EncodeToString([]byte(c.appKey + ":" + c.appSecret))
	return "Basic " + credentials
}

// FetchPage fetches a single page of inventories, optionally filtered by
// vendor status text.
func (c *Client) FetchPage(ctx context.Context, page int, status string) (*InventoryPage, error) {
	return c.fetchPage(ctx, page, status, nil)
}

func (c *Client) fetchPage(ctx context.Context, page int, status string, updatedSince *time.Time) (*InventoryPage, error) {
	if err := c.checkCredentials(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	if status != "" {
		params.Set("status", status)
	}
	if updatedSince != nil {
		params.Set("updated_since", updatedSince.UTC().Format(time.RFC3339))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/inventories?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.authHeader())
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wholecell request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out InventoryPage
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("wholecell response decode: %w", err)
	}
	return &out, nil
}

// FetchAll walks every page of the listing and concatenates the records in
// vendor order. When updatedSince is set it is forwarded as a server-side
// lower-bound filter so incremental syncs stay cheap; the result is still
// correct if the vendor ignores it, just larger. Any page failure aborts the
// whole call so partial vendor data is never mistaken for a complete set.
func (c *Client) FetchAll(ctx context.Context, status string, updatedSince *time.Time) ([]InventoryRecord, error) {
	var all []InventoryRecord

	page := 1
	pages := 1
	for page <= pages {
		resp, err := c.fetchPage(ctx, page, status, updatedSince)
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Data...)
		pages = resp.Pages
		page++

		// Pace requests between pages, not after the last one.
		if page <= pages {
			select {
			case <-time.After(c.pageDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return all, nil
}
