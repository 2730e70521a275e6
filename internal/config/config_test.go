package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 15, cfg.HTTP.TimeoutSeconds)
	require.Equal(t, 3, cfg.HTTP.MaxRetries)
	require.Equal(t, 1000, cfg.HTTP.BackoffBaseMs)
	require.Equal(t, 60000, cfg.HTTP.BackoffMaxMs)
	require.Equal(t, 3, cfg.Queue.Concurrency)
	require.Equal(t, "file", cfg.Checkpoint.Provider)
	require.Equal(t, "data/checkpoints", cfg.Checkpoint.BaseDir)
	require.Equal(t, "https://api.spotify.com", cfg.Spotify.APIURL)
	require.Equal(t, "https://api.themoviedb.org", cfg.TMDB.APIURL)
	require.Equal(t, "https://openlibrary.org", cfg.OpenLibrary.APIURL)
	require.Equal(t, 10, cfg.Content.TopLimit)
	require.True(t, cfg.Fallback.Enabled)

	require.Equal(t, 15*time.Second, cfg.ClientTimeout())
	require.Equal(t, 200*time.Millisecond, cfg.QueueDelay())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
queue:
  concurrency: 5
checkpoint:
  provider: memory
content:
  books:
    - value: "9780441172719"
      label: "Dune"
  best_of_playlist: "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 5, cfg.Queue.Concurrency)
	require.Equal(t, "memory", cfg.Checkpoint.Provider)
	require.Len(t, cfg.Content.Books, 1)
	require.Equal(t, "Dune", cfg.Content.Books[0].Label)
	require.NotEmpty(t, cfg.Content.BestOfPlaylist)

	// Untouched keys keep their defaults.
	require.Equal(t, 15, cfg.HTTP.TimeoutSeconds)
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() Config {
		return Config{
			Server:     ServerConfig{Port: 8080},
			HTTP:       HTTPConfig{TimeoutSeconds: 15, MaxRetries: 3},
			Queue:      QueueConfig{Concurrency: 3},
			Checkpoint: CheckpointConfig{Provider: "memory"},
		}
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(*Config){
		"zero port":            func(c *Config) { c.Server.Port = 0 },
		"zero timeout":         func(c *Config) { c.HTTP.TimeoutSeconds = 0 },
		"negative retries":     func(c *Config) { c.HTTP.MaxRetries = -1 },
		"zero concurrency":     func(c *Config) { c.Queue.Concurrency = 0 },
		"unknown provider":     func(c *Config) { c.Checkpoint.Provider = "redis" },
		"file without basedir": func(c *Config) { c.Checkpoint = CheckpointConfig{Provider: "file"} },
		"postgres without dsn": func(c *Config) { c.Checkpoint = CheckpointConfig{Provider: "postgres"} },
	}
	for name, mutate := range cases {
		cfg := valid()
		mutate(&cfg)
		require.Error(t, cfg.Validate(), name)
	}
}

func TestValidate_ProviderRequirementsSatisfied(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Server:     ServerConfig{Port: 8080},
		HTTP:       HTTPConfig{TimeoutSeconds: 15},
		Queue:      QueueConfig{Concurrency: 3},
		Checkpoint: CheckpointConfig{Provider: "file", BaseDir: "/tmp/ckpt"},
	}
	require.NoError(t, cfg.Validate())

	cfg.Checkpoint = CheckpointConfig{Provider: "postgres", DSN: "postgres://localhost/preloader"}
	require.NoError(t, cfg.Validate())
}
