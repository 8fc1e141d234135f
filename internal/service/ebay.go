package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"phonedeck/internal/cache"
	"phonedeck/internal/ebay"
	"phonedeck/internal/logger"
	"phonedeck/internal/model"

	"go.uber.org/zap"
)

// ebayTokenKey is the cache key for the single stored OAuth credential pair.
const ebayTokenKey = "ebay:token"

var (
	// ErrEbayNotConnected means no authorization has been completed yet.
	ErrEbayNotConnected = errors.New("not connected to ebay, authorize first")
	// ErrEbayAuthExpired means the refresh token is dead and the operator
	// must go through consent again.
	ErrEbayAuthExpired = errors.New("ebay authorization has expired, re-authorize")
	// ErrNoListing means publish was requested for an item without a
	// generated listing.
	ErrNoListing = errors.New("item has no generated listing")
)

// EbayService handles the OAuth token lifecycle and pushes generated
// listings to eBay. Tokens live in the cache, matching the single-operator
// model: one credential pair for the whole app.
type EbayService struct {
	client *ebay.Client
	items  *ItemService
	tokens cache.Cache
}

// NewEbayService creates the eBay integration service.
func NewEbayService(client *ebay.Client, items *ItemService, tokens cache.Cache) *EbayService {
	return &EbayService{client: client, items: items, tokens: tokens}
}

// AuthorizationURL returns the consent URL the operator visits to connect.
func (s *EbayService) AuthorizationURL() (string, error) {
	return s.client.AuthorizationURL()
}

// HandleCallback completes the OAuth flow with the code eBay sent back.
func (s *EbayService) HandleCallback(ctx context.Context, code string) error {
	grant, err := s.client.ExchangeCode(ctx, code)
	if err != nil {
		return fmt.Errorf("code exchange failed: %w", err)
	}

	now := time.Now().UTC()
	token := model.EbayToken{
		AccessToken:      grant.AccessToken,
		RefreshToken:     grant.RefreshToken,
		ExpiresAt:        now.Add(time.Duration(grant.ExpiresIn) * time.Second),
		RefreshExpiresAt: now.Add(time.Duration(grant.RefreshExpiresIn) * time.Second),
		TokenType:        grant.TokenType,
	}
	if err := s.storeToken(ctx, token); err != nil {
		return err
	}

	logger.Log.Info("ebay connected",
		zap.Time("access_expires", token.ExpiresAt),
		zap.Time("refresh_expires", token.RefreshExpiresAt))
	return nil
}

// Connected reports whether a usable credential pair is on file.
func (s *EbayService) Connected(ctx context.Context) bool {
	token, err := s.loadToken(ctx)
	if err != nil || token == nil {
		return false
	}
	return !token.RefreshExpired(time.Now().UTC())
}

// Disconnect discards the stored credential pair.
func (s *EbayService) Disconnect(ctx context.Context) error {
	return s.tokens.Delete(ctx, ebayTokenKey)
}

// accessToken returns a valid access token, refreshing it first when the
// short-lived token has expired.
func (s *EbayService) accessToken(ctx context.Context) (string, error) {
	token, err := s.loadToken(ctx)
	if err != nil {
		return "", err
	}
	if token == nil {
		return "", ErrEbayNotConnected
	}

	now := time.Now().UTC()
	if token.RefreshExpired(now) {
		_ = s.tokens.Delete(ctx, ebayTokenKey)
		return "", ErrEbayAuthExpired
	}
	if !token.AccessExpired(now) {
		return token.AccessToken, nil
	}

	logger.Log.Info("ebay access token expired, refreshing")
	grant, err := s.client.Refresh(ctx, token.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("token refresh failed: %w", err)
	}

	token.AccessToken = grant.AccessToken
	token.ExpiresAt = now.Add(time.Duration(grant.ExpiresIn) * time.Second)
	if err := s.storeToken(ctx, *token); err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

// PublishResult reports the eBay identifiers of a published listing.
type PublishResult struct {
	OfferID   string `json:"offerId"`
	ListingID string `json:"listingId"`
}

// Publish pushes an item's generated listing to eBay: inventory item, then
// offer, then publish. On success the item is marked listed.
func (s *EbayService) Publish(ctx context.Context, itemID string) (*PublishResult, error) {
	item, err := s.items.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Listing == nil {
		return nil, ErrNoListing
	}

	accessToken, err := s.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	aspects := map[string][]string{}
	if item.Details.Brand != "" {
		aspects["Brand"] = []string{item.Details.Brand}
	}
	if item.Details.Model != "" {
		aspects["Model"] = []string{item.Details.Model}
	}
	if item.Details.Storage != "" {
		aspects["Storage Capacity"] = []string{item.Details.Storage}
	}
	if item.Details.Color != "" {
		aspects["Color"] = []string{item.Details.Color}
	}

	err = s.client.CreateInventoryItem(ctx, accessToken, item.SKU, ebay.InventoryItemInput{
		Title:                item.Listing.Title,
		Description:          item.Listing.Description,
		Condition:            item.Condition,
		ConditionDescription: strings.Join(item.Details.Conditions, ", "),
		Aspects:              aspects,
		ImageURLs:            item.Photos,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ebay inventory item: %w", err)
	}

	offerID, err := s.client.CreateOffer(ctx, accessToken, item.SKU, ebay.OfferInput{
		Price:              item.Listing.Price,
		ListingDescription: item.Listing.Description,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create offer: %w", err)
	}

	listingID, err := s.client.PublishOffer(ctx, accessToken, offerID)
	if err != nil {
		return nil, fmt.Errorf("failed to publish offer: %w", err)
	}

	listed := true
	if _, err := s.items.Update(ctx, itemID, model.ItemUpdate{Listed: &listed}); err != nil {
		logger.Log.Error("published to ebay but failed to mark item listed",
			zap.String("item_id", itemID),
			zap.Error(err))
	}

	logger.Log.Info("listing published",
		zap.String("item_id", itemID),
		zap.String("offer_id", offerID),
		zap.String("listing_id", listingID))
	return &PublishResult{OfferID: offerID, ListingID: listingID}, nil
}

func (s *EbayService) loadToken(ctx context.Context) (*model.EbayToken, error) {
	data, err := s.tokens.Get(ctx, ebayTokenKey)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var token model.EbayToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("stored ebay token is corrupt: %w", err)
	}
	return &token, nil
}

func (s *EbayService) storeToken(ctx context.Context, token model.EbayToken) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode ebay token: %w", err)
	}
	ttl := time.Until(token.RefreshExpiresAt)
	if err := s.tokens.Set(ctx, ebayTokenKey, data, ttl); err != nil {
		return fmt.Errorf("failed to store ebay token: %w", err)
	}
	return nil
}
