package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// StaticTokenProvider returns the same token forever.
type StaticTokenProvider struct {
	Token string
}

// NewStaticTokenProvider creates a new static token provider.
func NewStaticTokenProvider(token string) *StaticTokenProvider {
	return &StaticTokenProvider{Token: token}
}

// FetchToken returns Token with no expiry.
func (p *StaticTokenProvider) FetchToken(context.Context) (string, time.Time, error) {
	return p.Token, time.Time{}, nil
}

// TokenProviderFunc adapts a function to TokenProvider.
type TokenProviderFunc func(ctx context.Context) (string, time.Time, error)

// FetchToken calls f.
func (f TokenProviderFunc) FetchToken(ctx context.Context) (string, time.Time, error) {
	if f == nil {
		return "", time.Time{}, fmt.Errorf("fetch function is nil")
	}
	return f(ctx)
}

// OAuth2ClientCredentialsProvider implements the OAuth2 client credentials
// flow. The token endpoint is called through Executor, so it can be another
// facade client (without a token provider of its own).
type OAuth2ClientCredentialsProvider struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string
	Executor     Executor
}

// NewOAuth2ClientCredentialsProvider creates a provider; exec nil means a
// plain client with a 10s timeout.
func NewOAuth2ClientCredentialsProvider(exec Executor, tokenURL, clientID, clientSecret, scope string) (*OAuth2ClientCredentialsProvider, error) {
	if exec == nil {
		c, err := NewClient(WithTimeout(10 * time.Second))
		if err != nil {
			return nil, err
		}
		exec = c
	}
	return &OAuth2ClientCredentialsProvider{
		TokenURL:     tokenURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scope:        scope,
		Executor:     exec,
	}, nil
}

// FetchToken retrieves a token using the client credentials grant.
func (p *OAuth2ClientCredentialsProvider) FetchToken(ctx context.Context) (string, time.Time, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", p.ClientID)
	form.Set("client_secret", p.ClientSecret)
	if p.Scope != "" {
		form.Set("scope", p.Scope)
	}

	resp, err := p.Executor.Execute(ctx, RequestConfig{
		Method: http.MethodPost,
		URL:    p.TokenURL,
		Data:   form,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to fetch token: %w", err)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
		Scope       string `json:"scope"`
	}
	if err := json.Unmarshal(resp.Data, &tokenResp); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", time.Time{}, fmt.Errorf("empty access token in response")
	}

	expiresAt := time.Now()
	if tokenResp.ExpiresIn > 0 {
		// 10s safety margin
		expiresAt = expiresAt.Add(time.Duration(tokenResp.ExpiresIn-10) * time.Second)
	} else {
		expiresAt = expiresAt.Add(time.Hour)
	}
	return tokenResp.AccessToken, expiresAt, nil
}

// JWTTokenProvider mints short-lived HS256 service tokens locally.
type JWTTokenProvider struct {
	Issuer   string
	Subject  string
	Audience []string
	TTL      time.Duration
	Key      []byte
	// Claims are merged into every token.
	Claims map[string]any
}

// FetchToken signs a fresh token.
func (p *JWTTokenProvider) FetchToken(ctx context.Context) (string, time.Time, error) {
	if len(p.Key) == 0 {
		return "", time.Time{}, fmt.Errorf("jwt signing key is required")
	}
	ttl := p.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := jwt.MapClaims{}
	for k, v := range p.Claims {
		claims[k] = v
	}
	claims["jti"] = uuid.NewString()
	claims["iat"] = jwt.NewNumericDate(now)
	claims["exp"] = jwt.NewNumericDate(expiresAt)
	if p.Issuer != "" {
		claims["iss"] = p.Issuer
	}
	if p.Subject != "" {
		claims["sub"] = p.Subject
	}
	if len(p.Audience) > 0 {
		claims["aud"] = jwt.ClaimStrings(p.Audience)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.Key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing service token: %w", err)
	}
	return signed, expiresAt, nil
}
