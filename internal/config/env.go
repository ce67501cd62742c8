package config

import (
	"os"
	"strconv"
	"time"
)

// envPrefix namespaces all environment overrides.
const envPrefix = "DATAFEED_"

// applyEnv layers environment overrides over the file configuration.
// Only deployment-level settings are overridable; provider wiring stays in
// the file.
func (c *Config) applyEnv() {
	c.App.Env = envString("ENV", c.App.Env)
	c.Server.Host = envString("SERVER_HOST", c.Server.Host)
	c.Server.Port = envInt("SERVER_PORT", c.Server.Port)
	c.Logging.Level = envString("LOG_LEVEL", c.Logging.Level)
	c.Logging.Output = envString("LOG_OUTPUT", c.Logging.Output)
	c.Failover.HealthCheck.Interval = envDuration("HEALTH_CHECK_INTERVAL", c.Failover.HealthCheck.Interval)
	c.Failover.Cache.DefaultTTL = envDuration("CACHE_TTL", c.Failover.Cache.DefaultTTL)
}

func envString(key, defaultValue string) string {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v
	}
	return defaultValue
}

func envInt(key string, defaultValue int) int {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return defaultValue
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return defaultValue
}

func envDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return defaultValue
}
