package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/snapetech/iptvaddon/internal/streamid"
)

// Live stream URL templates. The placeholders {host}, {user}, {pass} and {id} are substituted at resolve time.
const (
	LiveTemplateBare = streamid.LiveTemplateBare
	LiveTemplateTS   = streamid.LiveTemplateTS
)

// Config holds listener, upstream and addon settings.
// Nothing here describes a backend: every request carries its own descriptor token.
type Config struct {
	Addr       string // listen address, e.g. :7000
	LogLevel   string // zerolog level name
	PublicHost string // host[:port] used in stremio:// install links; empty = request Host

	// LiveURLTemplate builds Xtream live stream URLs. Providers disagree on the layout,
	// so this stays configurable (LiveTemplateBare or LiveTemplateTS, or a custom one).
	LiveURLTemplate string

	// Upstream call timeouts. Short for category lookups, longer for bulk listings and playlists.
	CategoryTimeout         time.Duration
	ListingTimeout          time.Duration
	SearchTimeout           time.Duration
	SeriesTimeout           time.Duration
	PlaylistTimeout         time.Duration
	ManifestPlaylistTimeout time.Duration

	// Upstream politeness: per-host concurrent requests and requests per second (0 = unlimited rate).
	UpstreamHostConcurrency int
	UpstreamHostRPS         float64
	UserAgent               string

	// Inbound HTTP.
	RateLimitPerMinute int // per client IP on addon routes; 0 disables
	CORSOrigins        []string
	CatalogCacheMaxAge time.Duration
}

// Load reads config from environment. Call LoadEnvFile(".env") before Load() to use a .env file.
// PORT is honoured when IPTV_ADDON_ADDR is unset (PaaS convention).
func Load() *Config {
	addr := os.Getenv("IPTV_ADDON_ADDR")
	if addr == "" {
		if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
			addr = ":" + port
		} else {
			addr = ":7000"
		}
	}
	c := &Config{
		Addr:                    addr,
		LogLevel:                getEnv("IPTV_ADDON_LOG_LEVEL", "info"),
		PublicHost:              strings.TrimSpace(os.Getenv("IPTV_ADDON_PUBLIC_HOST")),
		LiveURLTemplate:         getEnvLiveTemplate("IPTV_ADDON_LIVE_URL_TEMPLATE", LiveTemplateBare),
		CategoryTimeout:         getEnvDuration("IPTV_ADDON_CATEGORY_TIMEOUT", 4500*time.Millisecond),
		ListingTimeout:          getEnvDuration("IPTV_ADDON_LISTING_TIMEOUT", 9*time.Second),
		SearchTimeout:           getEnvDuration("IPTV_ADDON_SEARCH_TIMEOUT", 8*time.Second),
		SeriesTimeout:           getEnvDuration("IPTV_ADDON_SERIES_TIMEOUT", 8*time.Second),
		PlaylistTimeout:         getEnvDuration("IPTV_ADDON_PLAYLIST_TIMEOUT", 9*time.Second),
		ManifestPlaylistTimeout: getEnvDuration("IPTV_ADDON_MANIFEST_PLAYLIST_TIMEOUT", 8*time.Second),
		UpstreamHostConcurrency: getEnvInt("IPTV_ADDON_UPSTREAM_HOST_CONCURRENCY", 4),
		UpstreamHostRPS:         getEnvFloat("IPTV_ADDON_UPSTREAM_HOST_RPS", 20),
		UserAgent:               getEnv("IPTV_ADDON_USER_AGENT", "IPTVAddon/1.0"),
		RateLimitPerMinute:      getEnvInt("IPTV_ADDON_RATE_LIMIT_PER_MINUTE", 600),
		CORSOrigins:             getEnvList("IPTV_ADDON_CORS_ORIGINS", []string{"*"}),
		CatalogCacheMaxAge:      getEnvDuration("IPTV_ADDON_CATALOG_CACHE_MAX_AGE", 60*time.Second),
	}
	if c.UpstreamHostConcurrency <= 0 {
		c.UpstreamHostConcurrency = 4
	}
	if c.UpstreamHostRPS < 0 {
		c.UpstreamHostRPS = 0
	}
	if c.RateLimitPerMinute < 0 {
		c.RateLimitPerMinute = 0
	}
	if c.CategoryTimeout <= 0 {
		c.CategoryTimeout = 4500 * time.Millisecond
	}
	if c.ListingTimeout <= 0 {
		c.ListingTimeout = 9 * time.Second
	}
	return c
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, _ := strconv.Atoi(v)
		return n
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return defaultVal
		}
		return f
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

// getEnvList splits a comma-separated value, dropping blanks.
func getEnvList(key string, defaultVal []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

// getEnvLiveTemplate accepts the shorthands "bare" and "ts", or a full template containing {id}.
func getEnvLiveTemplate(key, defaultVal string) string {
	v := strings.TrimSpace(os.Getenv(key))
	switch strings.ToLower(v) {
	case "":
		return defaultVal
	case "bare":
		return LiveTemplateBare
	case "ts":
		return LiveTemplateTS
	}
	if !strings.Contains(v, "{id}") {
		return defaultVal
	}
	return v
}
