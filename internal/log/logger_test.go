package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavectl/wavectl/internal/errors"
)

func newBufferLogger(level Level, format Format) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := New(Config{
		Level:  level,
		Format: format,
		Output: NewOutput(&buf),
	})
	return logger, &buf
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, LevelError, ParseLevel("ERROR"))
	assert.Equal(t, LevelInfo, ParseLevel("nonsense"))
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatText, ParseFormat("console"))
	assert.Equal(t, FormatJSON, ParseFormat("JSON"))
	assert.Equal(t, FormatJSON, ParseFormat("nonsense"))
}

func TestLevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(LevelWarn, FormatText)

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("visible")
	assert.Contains(t, buf.String(), "visible")

	assert.False(t, logger.Enabled(context.Background(), LevelDebug))
	assert.True(t, logger.Enabled(context.Background(), LevelError))
}

func TestJSONOutputCarriesAttributes(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo, FormatJSON)

	logger.With("wave", 2).Info("wave complete", "tasks", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "wave complete", entry["msg"])
	assert.Equal(t, float64(2), entry["wave"])
	assert.Equal(t, float64(3), entry["tasks"])
}

func TestWithErrorExpandsCodedErrors(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo, FormatJSON)
	err := errors.New(errors.ErrCodeHaltTiers, "both tiers exhausted").
		WithSuggestion("Fix the tests manually")

	logger.WithError(err).Error("verification failed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "HALT-002", entry["error_code"])
	assert.Equal(t, "both tiers exhausted", entry["error"])
	assert.Contains(t, entry["suggestions"], "Fix the tests manually")
}

func TestLogErrorPlainError(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo, FormatJSON)

	logger.LogError(assert.AnError)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "operation failed", entry["msg"])
	assert.Equal(t, assert.AnError.Error(), entry["error"])
}

func TestDefaultLoggerIsLazyAndStable(t *testing.T) {
	first := DefaultLogger()
	require.NotNil(t, first)
	assert.Same(t, first, DefaultLogger())
}
