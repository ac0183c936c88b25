package config

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvString(t *testing.T) {
	t.Run("set", func(t *testing.T) {
		t.Setenv("TEST_STRING", "custom_value")
		assert.Equal(t, "custom_value", LoadEnvString("TEST_STRING", "default_value"))
	})

	t.Run("unset means default", func(t *testing.T) {
		assert.Equal(t, "default_value", LoadEnvString("TEST_STRING_UNSET", "default_value"))
	})

	t.Run("empty means default", func(t *testing.T) {
		t.Setenv("TEST_STRING", "")
		assert.Equal(t, "default_value", LoadEnvString("TEST_STRING", "default_value"))
	})
}

func TestLoadEnvWithFallback(t *testing.T) {
	tests := []struct {
		name         string
		set          bool
		value        string
		def          string
		validator    func(string) error
		wantValue    string
		wantFallback bool
		warnContains []string
	}{
		{
			name:      "valid schedule accepted",
			set:       true,
			value:     "0 6 * * *",
			def:       "*/10 * * * *",
			validator: ValidateCronSchedule,
			wantValue: "0 6 * * *",
		},
		{
			name:      "unset means default with no warning",
			def:       "*/10 * * * *",
			validator: ValidateCronSchedule,
			wantValue: "*/10 * * * *",
		},
		{
			name:      "nil validator accepts anything",
			set:       true,
			value:     "any_value",
			def:       "default",
			wantValue: "any_value",
		},
		{
			name:         "invalid schedule falls back",
			set:          true,
			value:        "invalid format",
			def:          "*/10 * * * *",
			validator:    ValidateCronSchedule,
			wantValue:    "*/10 * * * *",
			wantFallback: true,
			warnContains: []string{"TEST_FALLBACK", "falling back to default"},
		},
		{
			name:         "invalid timezone falls back",
			set:          true,
			value:        "Not/AZone",
			def:          "UTC",
			validator:    ValidateTimezone,
			wantValue:    "UTC",
			wantFallback: true,
			warnContains: []string{"invalid timezone"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.set {
				t.Setenv("TEST_FALLBACK", tt.value)
			}

			result := LoadEnvWithFallback("TEST_FALLBACK", tt.def, tt.validator)

			assert.Equal(t, tt.wantValue, result.Value)
			assert.Equal(t, tt.wantFallback, result.FallbackApplied)
			if len(tt.warnContains) == 0 {
				assert.Empty(t, result.Warnings)
				return
			}
			require.Len(t, result.Warnings, 1)
			for _, fragment := range tt.warnContains {
				assert.Contains(t, result.Warnings[0], fragment)
			}
		})
	}
}

func TestLoadEnvDuration(t *testing.T) {
	rangeValidator := func(d time.Duration) error {
		return ValidateDuration(d, time.Second, time.Hour)
	}

	tests := []struct {
		name         string
		set          bool
		value        string
		validator    func(time.Duration) error
		wantValue    time.Duration
		wantFallback bool
		warnContains string
	}{
		{
			name:      "valid value accepted",
			set:       true,
			value:     "45s",
			validator: ValidatePositiveDuration,
			wantValue: 45 * time.Second,
		},
		{
			name:      "unset means default",
			validator: ValidatePositiveDuration,
			wantValue: 2 * time.Minute,
		},
		{
			name:         "unparseable value falls back",
			set:          true,
			value:        "not-a-duration",
			validator:    ValidatePositiveDuration,
			wantValue:    2 * time.Minute,
			wantFallback: true,
			warnContains: "invalid duration format",
		},
		{
			name:         "negative parses but fails validation",
			set:          true,
			value:        "-10s",
			validator:    ValidatePositiveDuration,
			wantValue:    2 * time.Minute,
			wantFallback: true,
			warnContains: "must be positive",
		},
		{
			name:         "out of range falls back",
			set:          true,
			value:        "3h",
			validator:    rangeValidator,
			wantValue:    2 * time.Minute,
			wantFallback: true,
			warnContains: "exceeds maximum",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.set {
				t.Setenv("TEST_TIMEOUT", tt.value)
			}

			result := LoadEnvDuration("TEST_TIMEOUT", 2*time.Minute, tt.validator)

			assert.Equal(t, tt.wantValue, result.Value)
			assert.Equal(t, tt.wantFallback, result.FallbackApplied)
			if tt.warnContains != "" {
				require.Len(t, result.Warnings, 1)
				assert.Contains(t, result.Warnings[0], tt.warnContains)
			} else {
				assert.Empty(t, result.Warnings)
			}
		})
	}
}

func TestLoadEnvInt(t *testing.T) {
	parallelismRange := func(v int) error {
		return ValidateIntRange(v, 1, 50)
	}
	unprivilegedPort := func(v int) error {
		if v < 1024 {
			return fmt.Errorf("port %d is reserved", v)
		}
		return nil
	}

	tests := []struct {
		name         string
		set          bool
		value        string
		validator    func(int) error
		wantValue    int
		wantFallback bool
		warnContains string
	}{
		{
			name:      "valid value accepted",
			set:       true,
			value:     "5",
			validator: parallelismRange,
			wantValue: 5,
		},
		{
			name:      "unset means default",
			wantValue: 3,
		},
		{
			name:         "unparseable value falls back",
			set:          true,
			value:        "three",
			wantValue:    3,
			wantFallback: true,
			warnContains: "invalid integer format",
		},
		{
			name:         "out of range falls back",
			set:          true,
			value:        "500",
			validator:    parallelismRange,
			wantValue:    3,
			wantFallback: true,
			warnContains: "exceeds maximum",
		},
		{
			name:         "custom validator rejection falls back",
			set:          true,
			value:        "80",
			validator:    unprivilegedPort,
			wantValue:    3,
			wantFallback: true,
			warnContains: "reserved",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.set {
				t.Setenv("TEST_PARALLELISM", tt.value)
			}

			result := LoadEnvInt("TEST_PARALLELISM", 3, tt.validator)

			assert.Equal(t, tt.wantValue, result.Value)
			assert.Equal(t, tt.wantFallback, result.FallbackApplied)
			if tt.warnContains != "" {
				require.Len(t, result.Warnings, 1)
				assert.Contains(t, result.Warnings[0], tt.warnContains)
			} else {
				assert.Empty(t, result.Warnings)
			}
		})
	}
}
