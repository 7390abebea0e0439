package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ELF_IMAGE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, 90*time.Second, cfg.Transform.Timeout)
	assert.False(t, cfg.Transform.UseRemoteTransform())
	assert.Equal(t, 64, cfg.SessionCache)
	assert.NotEmpty(t, cfg.Badge.ProxyURL)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", ":9090")
	t.Setenv("ELF_IMAGE_URL", "https://example.test/functions/v1/elf-image")
	t.Setenv("ELF_IMAGE_TIMEOUT", "15s")
	t.Setenv("OBF_CLIENT_ID", "client")
	t.Setenv("OBF_CLIENT_SECRET", "secret")
	t.Setenv("KIOSK_CORS_ORIGINS", "https://a.test,https://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr())
	assert.True(t, cfg.Transform.UseRemoteTransform())
	assert.Equal(t, 15*time.Second, cfg.Transform.Timeout)
	assert.True(t, cfg.Badge.DirectOBF())
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.CORSOrigins)
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	t.Setenv("ELF_IMAGE_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
}
