package config

import "time"

// CacheConfig defines settings for the in-process telemetry caches.  Each
// cache holds entries for TTL and sweeps expired entries every Sweep
// interval.  The health and summary caches are configured independently so
// their staleness bounds can diverge if needed.
type CacheConfig struct {
	HealthTTL  time.Duration
	SummaryTTL time.Duration
	Sweep      time.Duration
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults match a dashboard that tolerates up to one minute of staleness.
func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		HealthTTL:  envDur("HEALTH_CACHE_TTL", 60*time.Second),
		SummaryTTL: envDur("SUMMARY_CACHE_TTL", 60*time.Second),
		Sweep:      envDur("CACHE_SWEEP_INTERVAL", 120*time.Second),
	}
	if cfg.HealthTTL <= 0 {
		cfg.HealthTTL = 60 * time.Second
	}
	if cfg.SummaryTTL <= 0 {
		cfg.SummaryTTL = 60 * time.Second
	}
	if cfg.Sweep <= 0 {
		cfg.Sweep = 120 * time.Second
	}
	return cfg
}
