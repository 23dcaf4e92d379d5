package splatnet

import (
	"context"
	"fmt"
	"time"

	"github.com/splat3api/splatsync/internal/domain"
	"github.com/splat3api/splatsync/internal/logger"
)

const (
	// TokenCacheKey is the cache key of the bearer token.
	TokenCacheKey = "BulletToken"

	tokenExpiryMargin = 5 * time.Minute
)

// Token is a bearer token and its lifetime. ExpiresIn <= 0 means unknown.
type Token struct {
	Value     string
	ExpiresIn time.Duration
}

// TokenSource exchanges the long-lived credential for a bearer token.
// The login protocol itself lives outside this module.
type TokenSource interface {
	Token(ctx context.Context, serviceID string) (Token, error)
}

// StaticToken uses the configured credential as the bearer token.
type StaticToken string

func (s StaticToken) Token(_ context.Context, _ string) (Token, error) {
	if s == "" {
		return Token{}, fmt.Errorf("%w: empty credential", domain.ErrConfiguration)
	}
	return Token{Value: string(s)}, nil
}

// TokenCache is the subset of the freshness cache the authenticator needs.
type TokenCache interface {
	Get(ctx context.Context, key string) (domain.CacheEntry, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type AuthConfig struct {
	ServiceID string
	Source    TokenSource
	Cache     TokenCache // optional
	Client    ClientConfig
	Logger    logger.Logger
}

// Authenticator hands out authenticated API handles.
type Authenticator struct {
	serviceID string
	source    TokenSource
	cache     TokenCache
	client    ClientConfig
	log       logger.Logger
}

func NewAuthenticator(cfg AuthConfig) (*Authenticator, error) {
	if cfg.ServiceID == "" {
		return nil, fmt.Errorf("%w: service id is required", domain.ErrConfiguration)
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("%w: token source is required", domain.ErrConfiguration)
	}
	if cfg.Client.Catalogue == nil {
		return nil, fmt.Errorf("%w: query catalogue is required", domain.ErrConfiguration)
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Authenticator{
		serviceID: cfg.ServiceID,
		source:    cfg.Source,
		cache:     cfg.Cache,
		client:    cfg.Client,
		log:       log,
	}, nil
}

// Initialize returns a live handle. With useCache the cached token is reused
// while it is valid; a freshly issued token is cached until 5 minutes before
// its expiry.
func (a *Authenticator) Initialize(ctx context.Context, useCache bool) (*Client, error) {
	if useCache && a.cache != nil {
		entry, ok, err := a.cache.Get(ctx, TokenCacheKey)
		if err != nil {
			a.log.Warn("token cache read failed", logger.Error(err))
		} else if ok && len(entry.Value) > 0 {
			a.log.Debug("using cached bearer token", logger.Duration("ttl", entry.TTL))
			return newClient(a.client, string(entry.Value)), nil
		}
	}

	tok, err := a.source.Token(ctx, a.serviceID)
	if err != nil {
		return nil, fmt.Errorf("issue bearer token: %w", err)
	}

	if ttl := ReduceExpiration(tok.ExpiresIn); a.cache != nil && ttl > 0 {
		if err := a.cache.Set(ctx, TokenCacheKey, []byte(tok.Value), ttl); err != nil {
			a.log.Warn("token cache write failed", logger.Error(err))
		}
	}

	return newClient(a.client, tok.Value), nil
}

// ReduceExpiration shortens a token lifetime by the refresh margin.
func ReduceExpiration(expiresIn time.Duration) time.Duration {
	if expiresIn <= 0 {
		return 0
	}
	return expiresIn - tokenExpiryMargin
}
