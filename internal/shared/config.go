package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Discovery   DiscoveryConfig   `toml:"discovery"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	LastFM  LastFMConfig  `toml:"lastfm"`
	Spotify SpotifyConfig `toml:"spotify"`
}

// LastFMConfig contains Last.fm API credentials.
type LastFMConfig struct {
	APIKey   string `toml:"api_key"`
	Username string `toml:"username"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	UserID       string `toml:"user_id"`
}

// DiscoveryConfig contains pipeline tuning knobs.
type DiscoveryConfig struct {
	WindowMonths       int `toml:"window_months"`
	PageLimit          int `toml:"page_limit"`
	CandidateLimit     int `toml:"candidate_limit"`
	PerArtistCap       int `toml:"per_artist_cap"`
	Concurrency        int `toml:"concurrency"`
	ConsentTimeoutSecs int `toml:"consent_timeout_secs"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains OAuth callback server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyEnv()
	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.applyEnv()
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnv overlays secret values from the environment so credentials never
// have to live in the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("LASTFM_API_KEY"); v != "" {
		c.Credentials.LastFM.APIKey = v
	}
	if v := os.Getenv("LASTFM_USERNAME"); v != "" {
		c.Credentials.LastFM.Username = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Credentials.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_USER_ID"); v != "" {
		c.Credentials.Spotify.UserID = v
	}
}

// Validate checks that the configuration carries everything a discovery run needs.
func (c *Config) Validate() error {
	if c.Credentials.LastFM.APIKey == "" {
		return fmt.Errorf("%w: lastfm api_key", ErrMissingCredentials)
	}
	if c.Credentials.LastFM.Username == "" {
		return fmt.Errorf("%w: lastfm username", ErrMissingCredentials)
	}
	if c.Credentials.Spotify.ClientID == "" || c.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client_id/client_secret", ErrMissingCredentials)
	}
	if c.Discovery.PerArtistCap <= 0 || c.Discovery.CandidateLimit <= 0 {
		return fmt.Errorf("%w: per_artist_cap and candidate_limit must be positive", ErrInvalidConfig)
	}
	return nil
}
