package constants

import "time"

// Context keys.
const (
	ContextTokenData = "token_data"
)

// Booking core.
const (
	// HoldTTL is how long a hold reserves a slot before the sweeper
	// reclaims it.
	HoldTTL = 15 * time.Minute

	// MinLeadTime is the earliest a guest may book ahead of now. A slot
	// starting exactly at now+MinLeadTime is not bookable.
	MinLeadTime = 2 * time.Hour

	// SweepInterval bounds how stale an expired hold can remain active.
	SweepInterval = 30 * time.Second
)

// Database pool defaults.
const (
	DatabaseMaxOpenConns    = 25
	DatabaseMaxIdleConns    = 5
	DatabaseConnMaxLifetime = 30 // minutes
	DatabaseSSLMode         = "disable"
)

// Request handling.
const (
	DefaultRequestTimeout = 30 * time.Second
)

// Public rate limits (per minute, per IP).
const (
	RateLimitHoldPerMinute   = 5
	RateLimitPublicPerMinute = 100
)
