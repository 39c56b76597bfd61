package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":13370", cfg.Addr)
	assert.Equal(t, "data", cfg.DataDir)
	assert.NotEmpty(t, cfg.AdminPassword)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ADDR", ":9999")
	t.Setenv("DATA_DIR", "/tmp/party")
	t.Setenv("ADMIN_PASSWORD", "s3cret")
	t.Setenv("WIFI_SSID", "PartyNet")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, "/tmp/party", cfg.DataDir)
	assert.Equal(t, "s3cret", cfg.AdminPassword)
	assert.Equal(t, "PartyNet", cfg.WifiSSID)
}
