package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEventSinkConfig_Defaults(t *testing.T) {
	t.Setenv("EVENT_RATE_LIMIT", "")
	t.Setenv("EVENT_RATE_BURST", "")

	config, err := LoadEventSinkConfig()

	require.NoError(t, err)
	assert.Equal(t, 5.0, config.EventsPerSecond)
	assert.Equal(t, 10, config.Burst)
}

func TestLoadEventSinkConfig_ValidValues(t *testing.T) {
	t.Setenv("EVENT_RATE_LIMIT", "20")
	t.Setenv("EVENT_RATE_BURST", "40")

	config, err := LoadEventSinkConfig()

	require.NoError(t, err)
	assert.Equal(t, 20.0, config.EventsPerSecond)
	assert.Equal(t, 40, config.Burst)
}

func TestLoadEventSinkConfig_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("EVENT_RATE_LIMIT", "-3")
	t.Setenv("EVENT_RATE_BURST", "0")

	config, err := LoadEventSinkConfig()

	require.NoError(t, err)
	assert.Equal(t, 5.0, config.EventsPerSecond)
	assert.Equal(t, 10, config.Burst)
}

func TestEventSinkConfig_SustainedInterval(t *testing.T) {
	config := &EventSinkConfig{EventsPerSecond: 5.0, Burst: 10}

	assert.Equal(t, 200*time.Millisecond, config.SustainedInterval())
}

func TestEventSinkConfig_SustainedInterval_ZeroRate(t *testing.T) {
	config := &EventSinkConfig{}

	assert.Equal(t, time.Duration(0), config.SustainedInterval())
}
