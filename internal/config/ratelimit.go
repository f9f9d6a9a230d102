package config

import (
	"os"
	"time"
)

// RateLimitConfig controls the request counter applied to the device API.
// Requests beyond Max inside Window are rejected; requests beyond DelayAfter
// are slowed down by Delay before processing continues.
type RateLimitConfig struct {
	Enabled    bool
	Window     time.Duration // counting window per client
	Max        int           // hard cap per window
	DelayAfter int           // soft threshold before throttling kicks in
	Delay      time.Duration // delay applied to throttled requests
	Prefix     string        // key namespace in the counter backend
}

func LoadRateLimitConfig() RateLimitConfig {
	def := RateLimitConfig{
		Enabled:    envBool("RATE_LIMIT_ENABLED", true),
		Window:     envDur("RATE_LIMIT_WINDOW", 15*time.Minute),
		Max:        envInt("RATE_LIMIT_MAX", 100),
		DelayAfter: envInt("RATE_LIMIT_DELAY_AFTER", 20),
		Delay:      envDur("RATE_LIMIT_DELAY", 500*time.Millisecond),
		Prefix:     envStr("RATE_LIMIT_PREFIX", "rl"),
	}
	if def.Max < 1 {
		def.Max = 1
	}
	if def.Window <= 0 {
		def.Window = 15 * time.Minute
	}
	if def.DelayAfter < 0 {
		def.DelayAfter = 0
	}
	if def.Delay < 0 {
		def.Delay = 0
	}
	return def
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
