package ebay

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"phonedeck/internal/config"
	"phonedeck/internal/logger"

	"go.uber.org/zap"
)

// ErrNotConfigured is returned when the OAuth application credentials are
// missing from the environment.
var ErrNotConfigured = errors.New("ebay credentials not configured")

// scopes requested during authorization. The sell.inventory scope covers
// inventory item, offer and publish calls.
var scopes = strings.Join([]string{
	"https://api.ebay.com/oauth/api_scope",
	"https://api.ebay.com/oauth/api_scope/sell.inventory",
	"https://api.ebay.com/oauth/api_scope/sell.account",
	"https://api.ebay.com/oauth/api_scope/sell.fulfillment",
}, " ")

// conditionMap translates the dashboard's condition labels to eBay condition
// enums. Unknown labels fall back to USED_EXCELLENT.
var conditionMap = map[string]string{
	"New":                      "NEW",
	"Open box":                 "NEW_OTHER",
	"Certified refurbished":    "MANUFACTURER_REFURBISHED",
	"Seller refurbished":       "SELLER_REFURBISHED",
	"Used":                     "USED_EXCELLENT",
	"For parts or not working": "FOR_PARTS_OR_NOT_WORKING",
}

// TokenResponse is the OAuth token grant payload.
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshExpiresIn int    `json:"refresh_token_expires_in"`
	TokenType        string `json:"token_type"`
}

// APIError carries an eBay error response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ebay api error: %d - %s", e.StatusCode, e.Message)
}

// Client talks to the eBay OAuth and Sell Inventory APIs.
type Client struct {
	apiBase     string
	authBase    string
	clientID    string
	secret      string
	redirectURI string
	httpClient  *http.Client
}

// NewClient creates an eBay client. redirectURI is where eBay sends the
// operator back after consent.
func NewClient(cfg config.EbayConfig, redirectURI string) *Client {
	apiBase := "https://api.ebay.com"
	authBase := "https://auth.ebay.com"
	if cfg.Sandbox {
		apiBase = "https://api.sandbox.ebay.com"
		authBase = "https://auth.sandbox.ebay.com"
	}
	return &Client{
		apiBase:     apiBase,
		authBase:    authBase,
		clientID:    cfg.ClientID,
		secret:      cfg.ClientSecret,
		redirectURI: redirectURI,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) checkCredentials() error {
	if c.clientID == "" {
		return fmt.Errorf("%w: EBAY_CLIENT_ID is not set", ErrNotConfigured)
	}
	if c.secret == "" {
		return fmt.Errorf("%w: EBAY_CLIENT_SECRET is not set", ErrNotConfigured)
	}
	return nil
}

// AuthorizationURL builds the consent page URL the operator is sent to.
func (c *Client) AuthorizationURL() (string, error) {
	if err := c.checkCredentials(); err != nil {
		return "", err
	}
	params := url.Values{}
	params.Set("client_id", c.clientID)
	params.Set("response_type", "code")
	params.Set("redirect_uri", c.redirectURI)
	params.Set("scope", scopes)
	params.Set("prompt", "login")
	return c.authBase + "/oauth2/authorize?" + params.Encode(), nil
}

// ExchangeCode trades an authorization code for access and refresh tokens.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.redirectURI)
	return c.tokenGrant(ctx, form)
}

// Refresh trades a refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("scope", scopes)
	return c.tokenGrant(ctx, form)
}

func (c *Client) tokenGrant(ctx context.Context, form url.Values) (*TokenResponse, error) {
	if err := c.checkCredentials(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/identity/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.secret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		logger.Log.Error("ebay token grant failed",
			zap.Int("status", resp.StatusCode),
			zap.String("grant_type", form.Get("grant_type")))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	var token TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	return &token, nil
}

// InventoryItemInput is the payload for creating or replacing an eBay
// inventory item record.
type InventoryItemInput struct {
	Title                string
	Description          string
	Condition            string
	ConditionDescription string
	Aspects              map[string][]string
	ImageURLs            []string
}

// CreateInventoryItem creates or replaces the eBay inventory item for sku.
func (c *Client) CreateInventoryItem(ctx context.Context, accessToken, sku string, input InventoryItemInput) error {
	product := map[string]interface{}{
		"title":       truncate(input.Title, 80),
		"description": truncate(input.Description, 4000),
	}
	if len(input.Aspects) > 0 {
		product["aspects"] = input.Aspects
	}
	if len(input.ImageURLs) > 0 {
		product["imageUrls"] = input.ImageURLs
	}

	condition, ok := conditionMap[input.Condition]
	if !ok {
		condition = "USED_EXCELLENT"
	}

	payload := map[string]interface{}{
		"availability": map[string]interface{}{
			"shipToLocationAvailability": map[string]interface{}{
				"quantity": 1,
			},
		},
		"condition": condition,
		"product":   product,
	}
	if input.ConditionDescription != "" {
		payload["conditionDescription"] = input.ConditionDescription
	}

	path := "/sell/inventory/v1/inventory_item/" + url.PathEscape(sku)
	resp, body, err := c.do(ctx, http.MethodPut, path, accessToken, payload)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Message: apiMessage(body)}
	}
	return nil
}

// OfferInput is the payload for creating a fixed-price offer.
type OfferInput struct {
	Price              float64
	CategoryID         string
	ListingDescription string
}

// CreateOffer creates a fixed-price EBAY_US offer for sku and returns the
// offer id.
func (c *Client) CreateOffer(ctx context.Context, accessToken, sku string, input OfferInput) (string, error) {
	categoryID := input.CategoryID
	if categoryID == "" {
		categoryID = "9355" // Cell Phones & Smartphones
	}

	payload := map[string]interface{}{
		"sku":               sku,
		"marketplaceId":     "EBAY_US",
		"format":            "FIXED_PRICE",
		"availableQuantity": 1,
		"pricingSummary": map[string]interface{}{
			"price": map[string]interface{}{
				"value":    fmt.Sprintf("%.2f", input.Price),
				"currency": "USD",
			},
		},
		"categoryId": categoryID,
	}
	if input.ListingDescription != "" {
		payload["listingDescription"] = truncate(input.ListingDescription, 4000)
	}

	resp, body, err := c.do(ctx, http.MethodPost, "/sell/inventory/v1/offer", accessToken, payload)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusCreated {
		return "", &APIError{StatusCode: resp.StatusCode, Message: apiMessage(body)}
	}

	var result struct {
		OfferID string `json:"offerId"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode offer response: %w", err)
	}
	return result.OfferID, nil
}

// PublishOffer publishes an offer and returns the live listing id.
func (c *Client) PublishOffer(ctx context.Context, accessToken, offerID string) (string, error) {
	path := "/sell/inventory/v1/offer/" + url.PathEscape(offerID) + "/publish"
	resp, body, err := c.do(ctx, http.MethodPost, path, accessToken, nil)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Message: apiMessage(body)}
	}

	var result struct {
		ListingID string `json:"listingId"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode publish response: %w", err)
	}
	return result.ListingID, nil
}

func (c *Client) do(ctx context.Context, method, path, accessToken string, payload interface{}) (*http.Response, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Language", "en-US")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("ebay request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read ebay response: %w", err)
	}
	return resp, body, nil
}

// apiMessage pulls the first error message out of an eBay error body.
func apiMessage(body []byte) string {
	var parsed struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && len(parsed.Errors) > 0 {
		return parsed.Errors[0].Message
	}
	return string(body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
