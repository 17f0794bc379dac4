package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		HTTPPort:      8080,
		ParallelCount: 3,
		InboxDir:      "./inbox",
		APIBaseURL:    "https://api.example.com",
		UploadBaseURL: "https://upload.example.com",
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())

	cfg = validConfig()
	cfg.HTTPPort = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.ParallelCount = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.ParallelCount = 11
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.InboxDir = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.APIBaseURL = ""
	assert.Error(t, cfg.Validate())
}

func TestConfig_HasCredentials(t *testing.T) {
	cfg := validConfig()
	assert.False(t, cfg.HasCredentials())

	cfg.SpaceID = "space"
	cfg.EnvironmentID = "master"
	cfg.AccessToken = "token"
	assert.True(t, cfg.HasCredentials())

	cfg.AccessToken = ""
	assert.False(t, cfg.HasCredentials())
}
