package bookstack

import (
	"fmt"
	"net/url"
	"strings"
)

// Side names which of the two instances a client or credential set targets.
type Side string

// The two ends of a sync.
const (
	SideSource      Side = "source"
	SideDestination Side = "destination"
)

// Valid reports whether s is one of the known sides.
func (s Side) Valid() bool {
	return s == SideSource || s == SideDestination
}

// ParseSide maps a user-supplied string to a Side.
func ParseSide(s string) (Side, error) {
	side := Side(strings.ToLower(strings.TrimSpace(s)))
	if !side.Valid() {
		return "", fmt.Errorf("unknown instance side %q (must be source or destination)", s)
	}
	return side, nil
}

// Credentials addresses one BookStack instance. It is an immutable value;
// source and destination each get their own.
type Credentials struct {
	baseURL     string
	tokenID     string
	tokenSecret string
}

// NewCredentials builds a credential set. The base URL loses any trailing slash.
func NewCredentials(baseURL, tokenID, tokenSecret string) Credentials {
	return Credentials{
		baseURL:     strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		tokenID:     tokenID,
		tokenSecret: tokenSecret,
	}
}

// BaseURL returns the instance address, without trailing slash.
func (c Credentials) BaseURL() string { return c.baseURL }

// TokenID returns the API token identifier.
func (c Credentials) TokenID() string { return c.tokenID }

// TokenSecret returns the API token secret.
func (c Credentials) TokenSecret() string { return c.tokenSecret }

// AuthorizationHeader returns the value BookStack expects in the Authorization header.
func (c Credentials) AuthorizationHeader() string {
	return "Token " + c.tokenID + ":" + c.tokenSecret
}

// SameOrigin reports whether rawURL points at this instance's scheme and host.
func (c Credentials) SameOrigin(rawURL string) bool {
	base, err := url.Parse(c.baseURL)
	if err != nil || base.Host == "" {
		return false
	}
	target, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(base.Scheme, target.Scheme) && strings.EqualFold(base.Host, target.Host)
}

// String hides the secret.
func (c Credentials) String() string {
	return fmt.Sprintf("%s (token %s)", c.baseURL, c.tokenID)
}
