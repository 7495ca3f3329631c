package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCoords(t *testing.T) {
	x, y, err := parseCoords("100", "250.5")
	require.NoError(t, err)
	assert.Equal(t, 100.0, x)
	assert.Equal(t, 250.5, y)

	_, _, err = parseCoords("left", "200")
	assert.Error(t, err)

	_, _, err = parseCoords("100", "middle")
	assert.Error(t, err)
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.WithDefaults()
	assert.Equal(t, 1280, cfg.ViewportWidth)
	assert.Equal(t, 800, cfg.ViewportHeight)
	assert.Equal(t, 80, cfg.JPEGQuality)

	cfg = Config{ViewportWidth: 1920, ViewportHeight: 1080, JPEGQuality: 101}.WithDefaults()
	assert.Equal(t, 1920, cfg.ViewportWidth)
	assert.Equal(t, 1080, cfg.ViewportHeight)
	assert.Equal(t, 80, cfg.JPEGQuality, "out-of-range quality falls back")
}
