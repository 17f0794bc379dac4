package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration settings.
type Config struct {
	Environment string `envconfig:"AU_ENV" default:"development"`

	HTTPPort    int           `envconfig:"AU_HTTP_PORT" default:"8080"`
	HTTPTimeout time.Duration `envconfig:"AU_HTTP_TIMEOUT" default:"15s"`

	SpaceID       string `envconfig:"AU_SPACE_ID"`
	EnvironmentID string `envconfig:"AU_ENVIRONMENT_ID" default:"master"`
	AccessToken   string `envconfig:"AU_ACCESS_TOKEN"`

	APIBaseURL    string `envconfig:"AU_API_BASE_URL" default:"https://api.contentful.com"`
	UploadBaseURL string `envconfig:"AU_UPLOAD_BASE_URL" default:"https://upload.contentful.com"`

	ParallelCount int    `envconfig:"AU_PARALLEL_COUNT" default:"3"`
	InboxDir      string `envconfig:"AU_INBOX_DIR" default:"./inbox"`
	AssetTag      string `envconfig:"AU_ASSET_TAG"`

	ShutdownTimeout time.Duration `envconfig:"AU_SHUTDOWN_TIMEOUT" default:"30s"`

	LogLevel  string `envconfig:"AU_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"AU_LOG_FORMAT" default:"json"`
}

// Validate checks the configuration for invalid or missing values.
// Credentials are deliberately not required here: a run start without them
// is rejected at that point as a configuration error.
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	if c.ParallelCount < 1 || c.ParallelCount > 10 {
		return fmt.Errorf("parallel count must be within [1,10]: %d", c.ParallelCount)
	}

	if c.InboxDir == "" {
		return fmt.Errorf("inbox directory cannot be empty")
	}

	if c.APIBaseURL == "" || c.UploadBaseURL == "" {
		return fmt.Errorf("asset store base URLs cannot be empty")
	}

	return nil
}

// HasCredentials reports whether the asset store credentials are configured.
func (c *Config) HasCredentials() bool {
	return c.SpaceID != "" && c.EnvironmentID != "" && c.AccessToken != ""
}
