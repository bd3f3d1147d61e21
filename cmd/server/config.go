package main

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/smartcity/flowsense/internal/domain"
	"github.com/smartcity/flowsense/internal/service"
)

type Config struct {
	DatabaseURL       string
	SQLitePath        string
	VisionServiceURL  string
	Port              string
	Env               string
	SampleInterval    time.Duration
	HistoryRetention  time.Duration
	RetentionSchedule string
	CycleOrder        []domain.LaneID
}

func loadConfig() *Config {
	return &Config{
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		SQLitePath:        getEnv("SQLITE_PATH", ""),
		VisionServiceURL:  getEnv("VISION_SERVICE_URL", "http://localhost:8000"),
		Port:              getEnv("PORT", "5000"),
		Env:               getEnv("GO_ENV", "development"),
		SampleInterval:    getEnvDuration("SAMPLE_INTERVAL", service.DefaultSampleInterval),
		HistoryRetention:  getEnvDuration("HISTORY_RETENTION", 30*24*time.Hour),
		RetentionSchedule: getEnv("RETENTION_SCHEDULE", "@hourly"),
		CycleOrder:        parseCycleOrder(getEnv("CYCLE_ORDER", "source")),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		log.Printf("Warning: invalid %s=%q, using %v", key, value, defaultValue)
		return defaultValue
	}
	return d
}

func parseCycleOrder(value string) []domain.LaneID {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "clockwise":
		return service.ClockwiseCycleOrder
	case "source", "":
		return service.SourceCycleOrder
	default:
		log.Printf("Warning: unknown CYCLE_ORDER=%q, using source order", value)
		return service.SourceCycleOrder
	}
}
