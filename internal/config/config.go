package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":3000"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	PageTitle       string        // heading echoed into snapshot meta
	PollInterval    time.Duration // 0 disables scheduled polling (manual refresh still works)
	FetchTimeout    time.Duration // per-fetch deadline against the data source
	PublicHTTPPort  int           // used only to suppress default ports in derived URLs
	PublicHTTPSPort int

	IncludeRedirects bool // expose redirect hosts in the view model
	IncludeStreams   bool // expose stream hosts in the view model

	// Data source. Priority: NPM API when configured, else SQLite, else
	// the YAML hosts file, else an empty source.
	NPMBaseURL  string
	NPMEmail    string
	NPMPassword string
	SQLitePath  string
	HostsFile   string

	TitlesPath string // display-name overrides file

	BasicAuthUser     string
	BasicAuthPassword string
	BasicAuthRealm    string

	// Redis snapshot mirror (optional; empty addr disables it).
	RedisAddr           string
	RedisUser           string
	RedisPassword       string
	RedisDB             int
	RedisDialTimeout    time.Duration
	RedisReadTimeout    time.Duration
	RedisWriteTimeout   time.Duration
	RedisConnectTimeout time.Duration
	RedisRetryInterval  time.Duration
	RedisMaxWait        time.Duration
	RedisPingTimeout    time.Duration
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("DECK_LISTEN_PORT", ":3000"),
		ShutdownTimeout: mustDuration("DECK_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("DECK_LOG_LEVEL", "info"),
		PrettyLog: mustBool("DECK_PRETTY_LOG", false),

		// Polling
		PageTitle:       getenv("DECK_PAGE_TITLE", "Services"),
		PollInterval:    mustDuration("DECK_POLL_INTERVAL", time.Minute),
		FetchTimeout:    mustDuration("DECK_FETCH_TIMEOUT", 10*time.Second),
		PublicHTTPPort:  getenvInt("DECK_PUBLIC_HTTP_PORT", 80),
		PublicHTTPSPort: getenvInt("DECK_PUBLIC_HTTPS_PORT", 443),

		IncludeRedirects: mustBool("DECK_INCLUDE_REDIRECTS", false),
		IncludeStreams:   mustBool("DECK_INCLUDE_STREAMS", false),

		// Data source
		NPMBaseURL:  getenv("DECK_NPM_BASE_URL", ""),
		NPMEmail:    getenv("DECK_NPM_EMAIL", ""),
		NPMPassword: getenv("DECK_NPM_PASSWORD", ""),
		SQLitePath:  resolvePath(getenv("DECK_SQLITE_PATH", "")),
		HostsFile:   resolvePath(getenv("DECK_HOSTS_FILE", "")),

		TitlesPath: resolvePath(getenv("DECK_TITLES_PATH", "data/titles.json")),

		// Basic auth for the HTTP surface (healthz stays open)
		BasicAuthUser:     getenv("DECK_BASIC_AUTH_USERNAME", "admin"),
		BasicAuthPassword: getenv("DECK_BASIC_AUTH_PASSWORD", "admin"),
		BasicAuthRealm:    getenv("DECK_BASIC_AUTH_REALM", "Portal"),

		// Redis mirror settings
		RedisAddr:           getenv("DECK_REDIS_ADDR", ""),
		RedisUser:           getenv("DECK_REDIS_USERNAME", "default"),
		RedisPassword:       getenv("DECK_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("DECK_REDIS_DB", 0),
		RedisDialTimeout:    mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisReadTimeout:    mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWriteTimeout:   mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 15*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
	}

	if cfg.NPMBaseURL != "" && (cfg.NPMEmail == "" || cfg.NPMPassword == "") {
		panic("❌ FATAL: DECK_NPM_EMAIL and DECK_NPM_PASSWORD are required when DECK_NPM_BASE_URL is set")
	}
	if cfg.BasicAuthUser == "" || cfg.BasicAuthPassword == "" {
		panic("❌ FATAL: DECK_BASIC_AUTH_USERNAME and DECK_BASIC_AUTH_PASSWORD must not be empty")
	}
	if cfg.PollInterval < 0 {
		panic(fmt.Sprintf("❌ FATAL: DECK_POLL_INTERVAL must be >= 0, got %v", cfg.PollInterval))
	}

	return cfg
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

// resolvePath expands a leading ~ and makes the path absolute. Empty
// stays empty (meaning: not configured).
func resolvePath(p string) string {
	if p == "" {
		return ""
	}
	if p[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	if !filepath.IsAbs(p) {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
	}
	return p
}
