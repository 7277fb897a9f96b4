// Package auth verifies caller identity. Search scoping depends on the
// verified tenant and user claims; they are never read from request bodies.
package auth

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Config struct {
	// SigningSecret verifies HS256 user tokens issued by the auth service.
	SigningSecret string
	ServiceName   string
	// CacheTTL bounds how long a verified token is trusted without re-parsing.
	CacheTTL time.Duration
}

// ConfigFromEnv loads auth configuration from environment variables.
func ConfigFromEnv() Config {
	cfg := Config{
		ServiceName: "search-indexer",
		CacheTTL:    5 * time.Minute,
	}
	if v := os.Getenv("AUTH_SIGNING_SECRET"); v != "" {
		cfg.SigningSecret = v
	}
	return cfg
}

// UserContext is the verified identity of one caller.
type UserContext struct {
	UserID   uuid.UUID `json:"user_id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
}

type cachedIdentity struct {
	user      *UserContext
	expiresAt time.Time
}

// Client validates user tokens and caches verified identities briefly so a
// burst of requests with the same token parses the JWT once.
type Client struct {
	config Config

	mu    sync.RWMutex
	cache map[string]cachedIdentity
}

func NewClient(config Config) *Client {
	return &Client{
		config: config,
		cache:  make(map[string]cachedIdentity),
	}
}

// ValidateUserToken verifies the token signature and expiry and extracts the
// identity claims that scope every query.
func (c *Client) ValidateUserToken(ctx context.Context, tokenString string) (*UserContext, error) {
	c.mu.RLock()
	if cached, ok := c.cache[tokenString]; ok && cached.expiresAt.After(time.Now()) {
		c.mu.RUnlock()
		return cached.user, nil
	}
	c.mu.RUnlock()

	user, err := c.parseUserToken(tokenString)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[tokenString] = cachedIdentity{user: user, expiresAt: time.Now().Add(c.config.CacheTTL)}
	c.mu.Unlock()

	return user, nil
}

func (c *Client) parseUserToken(tokenString string) (*UserContext, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(c.config.SigningSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	userID, err := uuid.Parse(stringClaim(claims, "user_id"))
	if err != nil {
		return nil, fmt.Errorf("invalid user_id claim: %w", err)
	}
	tenantID, err := uuid.Parse(stringClaim(claims, "tenant_id"))
	if err != nil {
		return nil, fmt.Errorf("invalid tenant_id claim: %w", err)
	}

	return &UserContext{
		UserID:   userID,
		TenantID: tenantID,
		Email:    stringClaim(claims, "email"),
		Role:     stringClaim(claims, "role"),
	}, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
