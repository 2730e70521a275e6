// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Queue       QueueConfig       `mapstructure:"queue"`
	Checkpoint  CheckpointConfig  `mapstructure:"checkpoint"`
	Spotify     SpotifyConfig     `mapstructure:"spotify"`
	TMDB        TMDBConfig        `mapstructure:"tmdb"`
	OpenLibrary OpenLibraryConfig `mapstructure:"openlibrary"`
	Content     ContentConfig     `mapstructure:"content"`
	Fallback    FallbackConfig    `mapstructure:"fallback"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// HTTPConfig configures upstream client timeout and retry behavior.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	MaxRetries     int `mapstructure:"max_retries"`
	BackoffBaseMs  int `mapstructure:"backoff_base_ms"`
	BackoffMaxMs   int `mapstructure:"backoff_max_ms"`
}

// QueueConfig governs enrichment fan-out.
type QueueConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	DelayMs     int `mapstructure:"delay_ms"`
}

// CheckpointConfig selects and configures the checkpoint provider.
type CheckpointConfig struct {
	Provider string `mapstructure:"provider"`
	BaseDir  string `mapstructure:"base_dir"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
}

// SpotifyConfig holds the music upstream's endpoints and credentials.
type SpotifyConfig struct {
	APIURL       string  `mapstructure:"api_url"`
	TokenURL     string  `mapstructure:"token_url"`
	ClientID     string  `mapstructure:"client_id"`
	ClientSecret string  `mapstructure:"client_secret"`
	RefreshToken string  `mapstructure:"refresh_token"`
	RPS          float64 `mapstructure:"rps"`
}

// TMDBConfig holds the media upstream's endpoint and token.
type TMDBConfig struct {
	APIURL string  `mapstructure:"api_url"`
	Token  string  `mapstructure:"token"`
	RPS    float64 `mapstructure:"rps"`
}

// OpenLibraryConfig holds the books upstream's endpoint.
type OpenLibraryConfig struct {
	APIURL string  `mapstructure:"api_url"`
	RPS    float64 `mapstructure:"rps"`
}

// FeedRef is one content reference in the feed.
type FeedRef struct {
	Value string `mapstructure:"value"`
	Label string `mapstructure:"label"`
}

// ContentConfig is the opaque content feed: what to enrich per domain.
type ContentConfig struct {
	Media          []FeedRef `mapstructure:"media"`
	Books          []FeedRef `mapstructure:"books"`
	MusicFavorites []FeedRef `mapstructure:"music_favorites"`
	BestOfPlaylist string    `mapstructure:"best_of_playlist"`
	TopLimit       int       `mapstructure:"top_limit"`
}

// FallbackConfig toggles the offline sample decorator. Meant to be on
// for demos and development, off in production.
type FallbackConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PRELOADER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.backoff_base_ms", 1000)
	v.SetDefault("http.backoff_max_ms", 60000)
	v.SetDefault("queue.concurrency", 3)
	v.SetDefault("queue.delay_ms", 200)
	v.SetDefault("checkpoint.provider", "file")
	v.SetDefault("checkpoint.base_dir", "data/checkpoints")
	v.SetDefault("checkpoint.table", "preload_checkpoints")
	v.SetDefault("spotify.api_url", "https://api.spotify.com")
	v.SetDefault("spotify.token_url", "https://accounts.spotify.com/api/token")
	v.SetDefault("spotify.rps", 4)
	v.SetDefault("tmdb.api_url", "https://api.themoviedb.org")
	v.SetDefault("tmdb.rps", 4)
	v.SetDefault("openlibrary.api_url", "https://openlibrary.org")
	v.SetDefault("openlibrary.rps", 2)
	v.SetDefault("content.top_limit", 10)
	v.SetDefault("fallback.enabled", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	if c.Queue.Concurrency <= 0 {
		return fmt.Errorf("queue.concurrency must be > 0")
	}
	switch c.Checkpoint.Provider {
	case "file":
		if c.Checkpoint.BaseDir == "" {
			return fmt.Errorf("checkpoint.base_dir is required for the file provider")
		}
	case "postgres":
		if c.Checkpoint.DSN == "" {
			return fmt.Errorf("checkpoint.dsn is required for the postgres provider")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown checkpoint provider %q", c.Checkpoint.Provider)
	}
	return nil
}

// ClientTimeout converts the HTTP timeout into a duration.
func (c Config) ClientTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// QueueDelay converts the inter-task pacing into a duration.
func (c Config) QueueDelay() time.Duration {
	return time.Duration(c.Queue.DelayMs) * time.Millisecond
}
