// Package optimization provides buffer and pool tuning profiles.
package optimization

import (
	"fmt"
	"runtime"
)

// Config holds tuned parameters for the server's queues and connection pools.
type Config struct {
	// Channel buffer sizes
	BroadcastChannelBuffer int
	ClientSendBuffer       int

	// In-memory event history
	JournalLimit int

	// Connection pools
	PostgresMaxConns int
	RedisMaxIdle     int

	// Decoded save slots kept in the LRU cache
	SlotCacheSize int
}

// Profile names accepted by ForProfile.
const (
	ProfileDefault = "default"
	ProfileStress  = "stress"
	ProfileLow     = "low"
)

// ForProfile returns the named profile. An empty name selects the default.
func ForProfile(name string) (*Config, error) {
	switch name {
	case "", ProfileDefault:
		return DefaultConfig(), nil
	case ProfileStress:
		return StressTestConfig(), nil
	case ProfileLow:
		return LowResourceConfig(), nil
	}
	return nil, fmt.Errorf("unknown tuning profile %q", name)
}

// DefaultConfig returns sensible defaults for production.
func DefaultConfig() *Config {
	numCPU := runtime.NumCPU()

	return &Config{
		BroadcastChannelBuffer: 256,
		ClientSendBuffer:       256,

		JournalLimit: 1000,

		PostgresMaxConns: numCPU * 4,
		RedisMaxIdle:     numCPU * 2,

		SlotCacheSize: 16,
	}
}

// StressTestConfig returns aggressive settings for stress testing.
func StressTestConfig() *Config {
	numCPU := runtime.NumCPU()

	return &Config{
		BroadcastChannelBuffer: 1024,
		ClientSendBuffer:       512,

		JournalLimit: 10000,

		PostgresMaxConns: numCPU * 8,
		RedisMaxIdle:     numCPU * 4,

		SlotCacheSize: 64,
	}
}

// LowResourceConfig returns minimal settings for development.
func LowResourceConfig() *Config {
	return &Config{
		BroadcastChannelBuffer: 32,
		ClientSendBuffer:       16,

		JournalLimit: 200,

		PostgresMaxConns: 4,
		RedisMaxIdle:     2,

		SlotCacheSize: 4,
	}
}

// Recommendations provides suggestions based on observed metrics.
type Recommendations struct {
	IncreaseBroadcastBuffer bool
	IncreasePoolSize        bool
	Notes                   []string
}

// Analyze examines a metrics snapshot and returns tuning recommendations.
func Analyze(metrics map[string]interface{}) *Recommendations {
	rec := &Recommendations{
		Notes: make([]string, 0),
	}

	if tick, ok := metrics["tick"].(map[string]interface{}); ok {
		if maxLat, ok := tick["max_latency_ms"].(float64); ok && maxLat > 100 {
			rec.Notes = append(rec.Notes, "Tick latency exceeds 100ms - settlement or subscribers are slow")
		}
	}

	if p, ok := metrics["persistence"].(map[string]interface{}); ok {
		saveErrs, _ := p["saves_failed"].(int64)
		eventErrs, _ := p["event_errors"].(int64)
		if saveErrs > 0 || eventErrs > 0 {
			rec.IncreasePoolSize = true
			rec.Notes = append(rec.Notes, "Persistence errors detected - check the storage backend and pool size")
		}
	}

	if ws, ok := metrics["websocket"].(map[string]interface{}); ok {
		if errors, ok := ws["errors"].(int64); ok && errors > 0 {
			rec.IncreaseBroadcastBuffer = true
			rec.Notes = append(rec.Notes, "WebSocket errors detected - increase client send buffer")
		}
	}

	return rec
}

// ApplyRecommendations modifies config based on recommendations.
func ApplyRecommendations(config *Config, rec *Recommendations) *Config {
	if rec.IncreaseBroadcastBuffer {
		config.BroadcastChannelBuffer *= 2
		config.ClientSendBuffer *= 2
	}
	if rec.IncreasePoolSize {
		config.PostgresMaxConns = int(float64(config.PostgresMaxConns) * 1.5)
		config.RedisMaxIdle = int(float64(config.RedisMaxIdle) * 1.5)
	}
	return config
}
