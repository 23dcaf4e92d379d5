package splatnet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/splat3api/splatsync/internal/domain"
)

type memCache struct {
	values map[string][]byte
	ttls   map[string]time.Duration
	sets   int
}

func newMemCache() *memCache {
	return &memCache{values: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memCache) Get(_ context.Context, key string) (domain.CacheEntry, bool, error) {
	v, ok := m.values[key]
	if !ok {
		return domain.CacheEntry{}, false, nil
	}
	return domain.CacheEntry{Key: key, Value: v, TTL: m.ttls[key], Expires: m.ttls[key] > 0}, true, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.sets++
	m.values[key] = value
	m.ttls[key] = ttl
	return nil
}

type countingSource struct {
	tok   Token
	calls int
}

func (s *countingSource) Token(_ context.Context, serviceID string) (Token, error) {
	s.calls++
	if serviceID == "" {
		return Token{}, errors.New("no service id")
	}
	return s.tok, nil
}

func TestNewAuthenticatorRequiresConfig(t *testing.T) {
	cat := testCatalogue(t)
	tests := []struct {
		name string
		cfg  AuthConfig
	}{
		{"missing service id", AuthConfig{Source: StaticToken("x"), Client: ClientConfig{Catalogue: cat}}},
		{"missing source", AuthConfig{ServiceID: "svc", Client: ClientConfig{Catalogue: cat}}},
		{"missing catalogue", AuthConfig{ServiceID: "svc", Source: StaticToken("x")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAuthenticator(tt.cfg)
			if !errors.Is(err, domain.ErrConfiguration) {
				t.Errorf("NewAuthenticator() error = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestInitializeCachesToken(t *testing.T) {
	cache := newMemCache()
	src := &countingSource{tok: Token{Value: "bullet", ExpiresIn: 2 * time.Hour}}

	a, err := NewAuthenticator(AuthConfig{
		ServiceID: "4834290508791808",
		Source:    src,
		Cache:     cache,
		Client:    ClientConfig{BaseURL: "http://upstream", Catalogue: testCatalogue(t)},
	})
	if err != nil {
		t.Fatalf("NewAuthenticator() error = %v", err)
	}

	c, err := a.Initialize(context.Background(), true)
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if c.token != "bullet" {
		t.Errorf("token = %q, want bullet", c.token)
	}
	if got := cache.ttls[TokenCacheKey]; got != 2*time.Hour-5*time.Minute {
		t.Errorf("cached ttl = %v, want 1h55m", got)
	}

	// second call hits the cache
	if _, err := a.Initialize(context.Background(), true); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if src.calls != 1 {
		t.Errorf("source calls = %d, want 1", src.calls)
	}

	// useCache=false always reissues
	if _, err := a.Initialize(context.Background(), false); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if src.calls != 2 {
		t.Errorf("source calls = %d, want 2", src.calls)
	}
}

func TestInitializeStaticTokenNotCached(t *testing.T) {
	cache := newMemCache()
	a, err := NewAuthenticator(AuthConfig{
		ServiceID: "svc",
		Source:    StaticToken("static"),
		Cache:     cache,
		Client:    ClientConfig{Catalogue: testCatalogue(t)},
	})
	if err != nil {
		t.Fatalf("NewAuthenticator() error = %v", err)
	}
	c, err := a.Initialize(context.Background(), true)
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if c.token != "static" {
		t.Errorf("token = %q", c.token)
	}
	if cache.sets != 0 {
		t.Errorf("cache sets = %d, want 0 for a token without expiry", cache.sets)
	}
}

func TestReduceExpiration(t *testing.T) {
	tests := []struct {
		in, want time.Duration
	}{
		{0, 0},
		{-time.Second, 0},
		{10 * time.Minute, 5 * time.Minute},
		{3 * time.Minute, -2 * time.Minute},
	}
	for _, tt := range tests {
		if got := ReduceExpiration(tt.in); got != tt.want {
			t.Errorf("ReduceExpiration(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
