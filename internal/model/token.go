package model

import "time"

// EbayToken is the single stored eBay OAuth credential pair for the app.
type EbayToken struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	ExpiresAt        time.Time `json:"expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	TokenType        string    `json:"token_type"`
}

// AccessExpired reports whether the short-lived access token needs a refresh.
func (t *EbayToken) AccessExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// RefreshExpired reports whether the long-lived refresh token is dead and the
// operator has to re-authorize.
func (t *EbayToken) RefreshExpired(now time.Time) bool {
	return !now.Before(t.RefreshExpiresAt)
}
