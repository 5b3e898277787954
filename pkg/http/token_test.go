package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestTokenCache(t *testing.T) {
	var fetches atomic.Int32
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	provider := TokenProviderFunc(func(ctx context.Context) (string, time.Time, error) {
		fetches.Add(1)
		return "tok", now.Add(time.Minute), nil
	})

	tc := NewTokenCache(provider, 10*time.Second)
	tc.now = func() time.Time { return now }

	require.False(t, tc.IsValid())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := tc.GetToken(context.Background())
			require.NoError(t, err)
			require.Equal(t, "tok", tok)
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, fetches.Load())
	require.True(t, tc.IsValid())

	// inside the refresh buffer
	now = now.Add(55 * time.Second)
	_, err := tc.GetToken(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, fetches.Load())

	tc.Invalidate()
	require.False(t, tc.IsValid())
}

func TestTokenCachePropagatesError(t *testing.T) {
	tc := NewTokenCache(TokenProviderFunc(func(ctx context.Context) (string, time.Time, error) {
		return "", time.Time{}, errors.New("auth down")
	}), 0)
	_, err := tc.GetToken(context.Background())
	require.EqualError(t, err, "auth down")
	require.False(t, tc.IsValid())
}

func TestTokenCacheStaticAndEmpty(t *testing.T) {
	tc := NewTokenCache(NewStaticTokenProvider("fixed"), 0)
	tc.now = func() time.Time { return time.Date(2999, 1, 1, 0, 0, 0, 0, time.UTC) }

	tok, err := tc.GetToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "fixed", tok)
	require.True(t, tc.IsValid(), "a zero expiry never goes stale")

	empty := NewTokenCache(NewStaticTokenProvider(""), 0)
	_, err = empty.GetToken(context.Background())
	require.ErrorIs(t, err, errEmptyToken)
}

func TestOAuth2ClientCredentialsProvider(t *testing.T) {
	srv := newServer(t, func(r *gin.Engine) {
		r.POST("/token", func(c *gin.Context) {
			if c.PostForm("grant_type") != "client_credentials" || c.PostForm("client_id") != "svc" ||
				c.PostForm("client_secret") != "secret" || c.PostForm("scope") != "read" {
				c.Status(http.StatusBadRequest)
				return
			}
			c.JSON(http.StatusOK, gin.H{"access_token": "abc", "token_type": "Bearer", "expires_in": 3600})
		})
		r.POST("/empty", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{}) })
	})

	p, err := NewOAuth2ClientCredentialsProvider(nil, srv.URL+"/token", "svc", "secret", "read")
	require.NoError(t, err)

	tok, exp, err := p.FetchToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "abc", tok)
	require.WithinDuration(t, time.Now().Add(3590*time.Second), exp, 5*time.Second)

	p.TokenURL = srv.URL + "/empty"
	_, _, err = p.FetchToken(context.Background())
	require.EqualError(t, err, "empty access token in response")

	p.ClientSecret = "wrong"
	p.TokenURL = srv.URL + "/token"
	_, _, err = p.FetchToken(context.Background())
	require.ErrorContains(t, err, "failed to fetch token")
}

func TestJWTTokenProvider(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	p := &JWTTokenProvider{
		Issuer:   "reqfacade",
		Subject:  "billing",
		Audience: []string{"users-api"},
		TTL:      time.Minute,
		Key:      key,
		Claims:   map[string]any{"scope": "users:read"},
	}

	signed, exp, err := p.FetchToken(context.Background())
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Minute), exp, 5*time.Second)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(signed, claims, func(*jwt.Token) (any, error) { return key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer("reqfacade"),
		jwt.WithAudience("users-api"),
	)
	require.NoError(t, err)
	require.Equal(t, "billing", claims["sub"])
	require.Equal(t, "users:read", claims["scope"])
	require.NotEmpty(t, claims["jti"])

	_, _, err = (&JWTTokenProvider{}).FetchToken(context.Background())
	require.Error(t, err)
}

func TestStaticTokenProvider(t *testing.T) {
	tok, exp, err := NewStaticTokenProvider("s").FetchToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "s", tok)
	require.True(t, exp.IsZero())

	var nilFunc TokenProviderFunc
	_, _, err = nilFunc.FetchToken(context.Background())
	require.Error(t, err)
}
