package cli

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, parseLevel("INFO"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelWarn, parseLevel("verbose"))
}

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("MOSGAL_TEST_VALUE", "json")
	assert.Equal(t, "json", envOrDefault("MOSGAL_TEST_VALUE", "text"))
	assert.Equal(t, "text", envOrDefault("MOSGAL_TEST_UNSET", "text"))
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "0f8fad5b", shortID("0f8fad5b-d9cb-469f-a165-70867728950e"))
	assert.Equal(t, "run-1", shortID("run-1"))
}

func TestCommandsRegistered(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"init", "crawl", "update", "status", "watch", "serve", "completion"} {
		assert.Contains(t, names, want)
	}
}
