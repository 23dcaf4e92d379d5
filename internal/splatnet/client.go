package splatnet

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/splat3api/splatsync/internal/domain"
	"github.com/splat3api/splatsync/internal/logger"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxResponseBytes = 16 << 20

// ClientConfig configures an upstream API handle.
type ClientConfig struct {
	HTTPClient *http.Client  // optional, defaults to an otelhttp-instrumented client
	BaseURL    string        // ex: "https://api.lp1.av5ja.srv.nintendo.net"
	Timeout    time.Duration // per request
	Catalogue  *Catalogue
	Logger     logger.Logger
}

// Client is an authenticated handle on the persisted-query GraphQL endpoint.
type Client struct {
	httpClient *http.Client
	endpoint   string
	token      string
	catalogue  *Catalogue
	log        logger.Logger
}

type persistedQuery struct {
	Version    int    `json:"version"`
	SHA256Hash string `json:"sha256Hash"`
}

type requestBody struct {
	Variables  map[string]any `json:"variables"`
	Extensions struct {
		PersistedQuery persistedQuery `json:"persistedQuery"`
	} `json:"extensions"`
}

func newClient(cfg ClientConfig, token string) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	// the caller's client is used as given, never modified
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Client{
		httpClient: httpClient,
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + "/api/graphql",
		token:      token,
		catalogue:  cfg.Catalogue,
		log:        log,
	}
}

// FetchPage posts the named persisted query and returns the raw response body.
//
// Network failures, 429 and 5xx responses wrap domain.ErrTransientUpstream.
// Every other non-2xx status is permanent.
func (c *Client) FetchPage(ctx context.Context, query string, variables map[string]any) ([]byte, error) {
	hash, err := c.catalogue.Hash(query)
	if err != nil {
		return nil, err
	}

	body := requestBody{Variables: variables}
	if body.Variables == nil {
		body.Variables = map[string]any{}
	}
	body.Extensions.PersistedQuery = persistedQuery{Version: 1, SHA256Hash: hash}

	encoded, err := sonic.Marshal(body)
	if err != nil {
		return nil, crerr.Wrap(err, "marshal graphql request")
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	_, _ = buf.Write(encoded)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(buf.B))
	if err != nil {
		return nil, crerr.Wrap(err, "create graphql request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	if c.catalogue.WebViewVersion != "" {
		req.Header.Set("X-Web-View-Ver", c.catalogue.WebViewVersion)
	}
	if c.catalogue.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", c.catalogue.AcceptLanguage)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, crerr.Wrapf(domain.ErrTransientUpstream, "%s: send request: %v", query, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, crerr.Wrapf(domain.ErrTransientUpstream, "%s: read response: %v", query, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return raw, nil
	case isRetryableStatus(resp.StatusCode):
		c.log.Debug("upstream transient status",
			logger.String("query", query),
			logger.Int("status", resp.StatusCode))
		return nil, crerr.Wrapf(domain.ErrTransientUpstream, "%s: status=%d body=%s", query, resp.StatusCode, abbreviate(raw))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, crerr.Newf("%s: upstream rejected credentials (status=%d)", query, resp.StatusCode)
	default:
		return nil, crerr.Newf("%s: status=%d body=%s", query, resp.StatusCode, abbreviate(raw))
	}
}

// FetchSeasonInfo returns the current and past X ranking seasons of a region.
func (c *Client) FetchSeasonInfo(ctx context.Context, region string) (domain.Seasons, error) {
	raw, err := c.FetchPage(ctx, QueryXRanking, map[string]any{"region": region})
	if err != nil {
		return domain.Seasons{}, err
	}
	return DecodeSeasons(raw)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func abbreviate(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 256 {
		return s[:256] + "..."
	}
	return s
}

// String hides the bearer token in logs.
func (c *Client) String() string {
	return fmt.Sprintf("splatnet.Client{endpoint: %s}", c.endpoint)
}
