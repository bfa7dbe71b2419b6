package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *AppConfig {
	return &AppConfig{
		Host:            "127.0.0.1",
		Port:            5001,
		LogLevel:        "INFO",
		MembersLimit:    16,
		JoinGraceSec:    30,
		SendBuffer:      64,
		VideoServiceURL: "http://localhost:5000",
	}
}

func TestAppConfigValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cfg := validConfig()
	cfg.MembersLimit = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.SendBuffer = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.VideoServiceURL = ""
	assert.Error(t, cfg.Validate())
}
