package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/splat3api/splatsync/internal/domain"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	TriggerTimeout  time.Duration // upper bound of one triggered command

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Upstream
	Credential      string        // long-lived credential exchanged for a bearer token
	BaseURL         string        // ex: "https://api.lp1.av5ja.srv.nintendo.net"
	ServiceID       string        // upstream service identifier
	Region          string        // X ranking region, ex: "PACIFIC"
	QueryFile       string        // optional override of the embedded query catalogue
	UpstreamTimeout time.Duration // per request

	// Fetch pacing
	PageGroups       int
	PageSize         int
	MaxRetries       int
	RetryMinWait     time.Duration
	RetryMaxWait     time.Duration
	PageInterval     time.Duration
	GroupInterval    time.Duration
	RefreshThreshold time.Duration // skip schedule refresh while cached TTL is above this

	// Storage
	BucketURL      string // gs://bucket, file:///dir or mem://
	TimeZone       string // zone of snapshot and archive dates
	ArchiveWorkers int

	// Scheduler, zero interval disables the job
	ScheduleInterval time.Duration
	RankingInterval  time.Duration
	SeasonInterval   time.Duration
	ArchiveAt        string // "HH:MM" in TimeZone, empty disables

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	// Trigger endpoint
	AllowedHosts     []string // optional, restrict /trigger to specific Host headers
	AllowedCIDRS     []string // optional, restrict /trigger and /readyz to specific IPs/CIDRs
	TrustProxy       bool     // true => trust X-Forwarded-For headers
	TriggerBurst     int      // rate limit burst per client IP
	TriggerPerMinute int      // rate limit refill per client IP
}

// Load reads the environment. Every missing required variable is reported
// in one ErrConfiguration.
func Load() (*Config, error) {
	var missing []string
	require := func(key string) string {
		v := os.Getenv(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := &Config{
		// Server settings
		ListenPort:      getenv("SPLATSYNC_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("SPLATSYNC_SHUTDOWN_TIMEOUT", 5*time.Second),
		TriggerTimeout:  mustDuration("SPLATSYNC_TRIGGER_TIMEOUT", 15*time.Minute),

		// Logging
		LogLevel:  getenv("SPLATSYNC_LOG_LEVEL", "info"),
		PrettyLog: mustBool("SPLATSYNC_PRETTY_LOG", false),

		// Upstream
		Credential:      require("SPLATSYNC_CREDENTIAL"),
		BaseURL:         require("SPLATSYNC_BASE_URL"),
		ServiceID:       require("SPLATSYNC_SERVICE_ID"),
		Region:          getenv("SPLATSYNC_REGION", "PACIFIC"),
		QueryFile:       getenv("SPLATSYNC_QUERY_FILE", ""),
		UpstreamTimeout: mustDuration("SPLATSYNC_UPSTREAM_TIMEOUT", 30*time.Second),

		// Fetch pacing
		PageGroups:       getenvInt("SPLATSYNC_PAGE_GROUPS", 5),
		PageSize:         getenvInt("SPLATSYNC_PAGE_SIZE", 25),
		MaxRetries:       getenvInt("SPLATSYNC_MAX_RETRIES", 3),
		RetryMinWait:     mustDuration("SPLATSYNC_RETRY_MIN_WAIT", 5*time.Second),
		RetryMaxWait:     mustDuration("SPLATSYNC_RETRY_MAX_WAIT", 10*time.Second),
		PageInterval:     mustDuration("SPLATSYNC_PAGE_INTERVAL", time.Second),
		GroupInterval:    mustDuration("SPLATSYNC_GROUP_INTERVAL", 5*time.Second),
		RefreshThreshold: mustDuration("SPLATSYNC_REFRESH_THRESHOLD", 2*time.Hour+5*time.Minute),

		// Storage
		BucketURL:      getenv("SPLATSYNC_BUCKET_URL", "mem://"),
		TimeZone:       getenv("SPLATSYNC_TIME_ZONE", "Asia/Tokyo"),
		ArchiveWorkers: getenvInt("SPLATSYNC_ARCHIVE_WORKERS", 4),

		// Scheduler
		ScheduleInterval: mustDuration("SPLATSYNC_SCHEDULE_INTERVAL", time.Hour),
		RankingInterval:  mustDuration("SPLATSYNC_RANKING_INTERVAL", time.Hour),
		SeasonInterval:   mustDuration("SPLATSYNC_SEASON_INTERVAL", 24*time.Hour),
		ArchiveAt:        getenv("SPLATSYNC_ARCHIVE_AT", "23:30"),

		// Redis settings
		RedisAddr:             getenv("SPLATSYNC_REDIS_ADDR", "localhost:6379"),
		RedisUser:             getenv("SPLATSYNC_REDIS_USERNAME", ""),
		RedisPasswordRequired: mustBool("SPLATSYNC_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("SPLATSYNC_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("SPLATSYNC_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts:     splitAndTrim(getenv("SPLATSYNC_ALLOWED_HOSTS", "")),
		AllowedCIDRS:     parseAllowedIPs(getenv("SPLATSYNC_ALLOWED_CIDRS", "")),
		TrustProxy:       mustBool("SPLATSYNC_TRUST_PROXY", false),
		TriggerBurst:     getenvInt("SPLATSYNC_TRIGGER_BURST", 5),
		TriggerPerMinute: getenvInt("SPLATSYNC_TRIGGER_PER_MINUTE", 10),
	}

	if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		missing = append(missing, "SPLATSYNC_REDIS_PASSWORD")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: required environment variables not set: %s",
			domain.ErrConfiguration, strings.Join(missing, ", "))
	}

	if cfg.ArchiveAt != "" {
		if _, _, err := ParseClock(cfg.ArchiveAt); err != nil {
			return nil, fmt.Errorf("%w: SPLATSYNC_ARCHIVE_AT: %w", domain.ErrConfiguration, err)
		}
	}
	if cfg.PageGroups < 1 || cfg.PageSize < 1 {
		return nil, fmt.Errorf("%w: page groups and page size must be positive", domain.ErrConfiguration)
	}

	return cfg, nil
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if c.Credential != "" {
		c.Credential = "***REDACTED***"
	}
	if c.RedisPassword != "" {
		c.RedisPassword = "***REDACTED***"
	}
	if c.RedisUser != "" {
		c.RedisUser = "***REDACTED***"
	}
	return c
}

// ParseClock reads a "HH:MM" wall clock time.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock %q (want HH:MM): %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
