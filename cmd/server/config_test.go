package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/smartcity/flowsense/internal/service"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{
		"DATABASE_URL", "SQLITE_PATH", "VISION_SERVICE_URL", "PORT", "GO_ENV",
		"SAMPLE_INTERVAL", "HISTORY_RETENTION", "RETENTION_SCHEDULE", "CYCLE_ORDER",
	} {
		t.Setenv(key, "")
	}

	cfg := loadConfig()
	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "http://localhost:8000", cfg.VisionServiceURL)
	assert.Equal(t, service.DefaultSampleInterval, cfg.SampleInterval)
	assert.Equal(t, 720*time.Hour, cfg.HistoryRetention)
	assert.Equal(t, "@hourly", cfg.RetentionSchedule)
	assert.Equal(t, service.SourceCycleOrder, cfg.CycleOrder)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SAMPLE_INTERVAL", "2s")
	t.Setenv("HISTORY_RETENTION", "0")
	t.Setenv("CYCLE_ORDER", "Clockwise")

	cfg := loadConfig()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 2*time.Second, cfg.SampleInterval)
	assert.Equal(t, time.Duration(0), cfg.HistoryRetention)
	assert.Equal(t, service.ClockwiseCycleOrder, cfg.CycleOrder)
}

func TestGetEnvDuration_Invalid(t *testing.T) {
	t.Setenv("SAMPLE_INTERVAL", "soon")
	assert.Equal(t, time.Second, getEnvDuration("SAMPLE_INTERVAL", time.Second))

	t.Setenv("SAMPLE_INTERVAL", "-1s")
	assert.Equal(t, time.Second, getEnvDuration("SAMPLE_INTERVAL", time.Second))
}

func TestParseCycleOrder_Unknown(t *testing.T) {
	assert.Equal(t, service.SourceCycleOrder, parseCycleOrder("zigzag"))
}
