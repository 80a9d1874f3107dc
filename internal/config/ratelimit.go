package config

import (
	"os"
	"strconv"
	"time"
)

// RateLimitConfig configures the Redis token bucket.  The email token
// endpoint gets its own, much smaller bucket since every call sends mail.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool

	EmailCapacity       int
	EmailRefillInterval time.Duration
}

func LoadRateLimitConfig() RateLimitConfig {
	def := RateLimitConfig{
		Enabled:             envBool("RATE_LIMIT_ENABLED", true),
		Capacity:            envInt("RATE_LIMIT_CAPACITY", 60),
		RefillTokens:        envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval:      envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:                 envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:         envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
		Prefix:              envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:               envBool("RATE_LIMIT_DEBUG", false),
		EmailCapacity:       envInt("RATE_LIMIT_EMAIL_CAPACITY", 3),
		EmailRefillInterval: envDur("RATE_LIMIT_EMAIL_REFILL_INTERVAL", 20*time.Second),
	}
	if b := envInt("RATE_LIMIT_BURST", -1); b > 0 {
		def.Capacity = b
	}
	if def.Capacity < 1 {
		def.Capacity = 1
	}
	if def.RefillTokens < 1 {
		def.RefillTokens = 1
	}
	if def.RefillInterval <= 0 {
		def.RefillInterval = time.Second
	}
	if def.EmailCapacity < 1 {
		def.EmailCapacity = 1
	}
	if def.EmailRefillInterval <= 0 {
		def.EmailRefillInterval = 20 * time.Second
	}
	minTTL := 5 * def.RefillInterval
	if m := 5 * def.EmailRefillInterval; m > minTTL {
		minTTL = m
	}
	if def.TTL < minTTL {
		def.TTL = minTTL
	}
	return def
}

// Email returns the bucket settings for the email token endpoint.
func (c RateLimitConfig) Email() RateLimitConfig {
	e := c
	e.Capacity = c.EmailCapacity
	e.RefillTokens = 1
	e.RefillInterval = c.EmailRefillInterval
	e.KeyStrategy = "ip_route"
	return e
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
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
