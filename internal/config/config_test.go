package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tt1717/battleserver/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg := config.Load()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "gen1ou", cfg.TourFormat)
	assert.Equal(t, 1, cfg.TourBestOf)
	assert.False(t, cfg.TourAutoInit)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ADDR", ":9999")
	t.Setenv("TOUR_BEST_OF", "20")
	t.Setenv("TOUR_PLAYERS", "Alice, Bob ,Carol,Dave")
	t.Setenv("TOUR_SHUFFLE", "true")

	cfg := config.Load()

	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, 20, cfg.TourBestOf)
	assert.Equal(t, []string{"Alice", "Bob", "Carol", "Dave"}, cfg.TourPlayers)
	assert.True(t, cfg.TourShuffle)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("TOUR_BEST_OF", "not-a-number")
	t.Setenv("TOUR_AUTO_INIT", "sometimes")

	cfg := config.Load()

	assert.Equal(t, 1, cfg.TourBestOf)
	assert.False(t, cfg.TourAutoInit)
}
