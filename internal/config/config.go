// Package config provides configuration for the voicebridge service.
// Values come from environment variables with an optional YAML file
// overlay, so deployments can use either mechanism.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for tunable parameters.
const (
	DefaultPort            = 8080
	DefaultModel           = "gemini-live-2.5-flash-preview-native-audio-09-2025"
	DefaultExtractModel    = "gemini-2.0-flash"
	DefaultProfilesDir     = "./profiles"
	DefaultExtractInterval = 2 * time.Second
	DefaultHumanNumber     = "+15164598996"
)

// Config holds all service configuration.
type Config struct {
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
	Debug    bool   `yaml:"debug"`

	// PublicWSURL is the externally reachable base URL (wss://...) Twilio
	// connects its media stream to.
	PublicWSURL string `yaml:"public_ws_url"`
	Greeting    string `yaml:"greeting"`

	TwilioAccountSID string `yaml:"twilio_account_sid"`
	TwilioAuthToken  string `yaml:"twilio_auth_token"`
	HumanNumber      string `yaml:"human_number"`

	// Gemini credentials: either an API key for the public endpoint, or a
	// Vertex project+region pair using application default credentials.
	GoogleAPIKey  string `yaml:"google_api_key"`
	VertexProject string `yaml:"vertex_project"`
	VertexRegion  string `yaml:"vertex_region"`
	Model         string `yaml:"model"`
	Voice         string `yaml:"voice"`
	ExtractModel  string `yaml:"extract_model"`

	ProfilesDir     string        `yaml:"profiles_dir"`
	ExtractInterval time.Duration `yaml:"extract_interval"`
}

// Load builds a Config from the environment, overlaid by the YAML file
// at path when path is non-empty.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Port:             envInt("PORT", DefaultPort),
		LogLevel:         envOr("LOG_LEVEL", "info"),
		Debug:            os.Getenv("DEBUG") == "1",
		PublicWSURL:      os.Getenv("PUBLIC_WS_URL"),
		Greeting:         envOr("GREETING", "Welcome to our car rental service. A service representative will connect with you shortly."),
		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		HumanNumber:      envOr("HUMAN_NUMBER", DefaultHumanNumber),
		GoogleAPIKey:     os.Getenv("GOOGLE_API_KEY"),
		VertexProject:    os.Getenv("PROJECT_ID"),
		VertexRegion:     os.Getenv("GEMINI_REGION"),
		Model:            envOr("GEMINI_MODEL", DefaultModel),
		Voice:            os.Getenv("GEMINI_VOICE"),
		ExtractModel:     envOr("EXTRACT_MODEL", DefaultExtractModel),
		ProfilesDir:      envOr("PROFILES_DIR", DefaultProfilesDir),
		ExtractInterval:  envDuration("EXTRACT_INTERVAL", DefaultExtractInterval),
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	return cfg, nil
}

// Validate checks that required credentials are present.
func (c *Config) Validate() error {
	if c.TwilioAccountSID == "" || c.TwilioAuthToken == "" {
		return errors.New("config: TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN are required")
	}
	if c.GoogleAPIKey == "" && (c.VertexProject == "" || c.VertexRegion == "") {
		return errors.New("config: GOOGLE_API_KEY or PROJECT_ID+GEMINI_REGION is required")
	}
	if c.PublicWSURL == "" {
		return errors.New("config: PUBLIC_WS_URL is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	return nil
}

// UseVertex reports whether the Vertex AI endpoint should be used
// instead of the public API-key endpoint.
func (c *Config) UseVertex() bool {
	return c.GoogleAPIKey == "" && c.VertexProject != ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
