package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string
	UserAgent string

	MongoURI      string
	MongoDatabase string
	RedisURL      string

	QBittorrentHost     string
	QBittorrentUsername string
	QBittorrentPassword string
	QBittorrentTimeout  time.Duration

	SearchTimeout     time.Duration
	SearchCacheTTL    time.Duration
	CacheDisabled     bool
	PirateBayEndpoint string
	TorznabName       string
	TorznabEndpoint   string
	TorznabAPIKey     string

	DefaultDownloadPath string
	RefreshInterval     time.Duration
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:  getEnv("HTTP_ADDR", ":8090"),
		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),
		UserAgent: getEnv("SEARCH_USER_AGENT", "torrenthub/1.0"),

		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "torrenthub"),
		RedisURL:      getEnv("REDIS_URL", ""),

		QBittorrentHost:     getEnv("QBITTORRENT_HOST", "http://localhost:8080"),
		QBittorrentUsername: getEnv("QBITTORRENT_USERNAME", "admin"),
		QBittorrentPassword: strings.TrimSpace(os.Getenv("QBITTORRENT_PASSWORD")),
		QBittorrentTimeout:  time.Duration(getEnvInt("QBITTORRENT_TIMEOUT_SECONDS", 30)) * time.Second,

		SearchTimeout:     time.Duration(getEnvInt("SEARCH_TIMEOUT_SECONDS", 15)) * time.Second,
		SearchCacheTTL:    time.Duration(getEnvInt("SEARCH_CACHE_TTL_MINUTES", 10)) * time.Minute,
		CacheDisabled:     getEnvBool("SEARCH_CACHE_DISABLED", false),
		PirateBayEndpoint: getEnv("SEARCH_SOURCE_PIRATEBAY_ENDPOINT", "https://apibay.org/q.php"),
		TorznabName:       getEnv("SEARCH_SOURCE_TORZNAB_NAME", "jackett"),
		TorznabEndpoint:   getEnv("SEARCH_SOURCE_TORZNAB_ENDPOINT", ""),
		TorznabAPIKey:     strings.TrimSpace(os.Getenv("SEARCH_SOURCE_TORZNAB_APIKEY")),

		DefaultDownloadPath: getEnv("DEFAULT_DOWNLOAD_PATH", "/downloads"),
		RefreshInterval:     time.Duration(getEnvInt("REFRESH_INTERVAL_SECONDS", 10)) * time.Second,
	}
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
