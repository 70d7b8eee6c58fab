package model

import "time"

// Shared defaults used by both the client and the mock API.
const (
	DefaultAPIBaseURL     = "http://127.0.0.1:8080"
	DefaultMockAddr       = "127.0.0.1:8080"
	DefaultBackoffInitial = time.Second
	DefaultProbeRetry     = 2 * time.Second
	DefaultSlowNetwork    = 10 * time.Second
	DefaultToastDuration  = 5 * time.Second
	DefaultSessionTTL     = time.Hour
	DefaultStartPath      = "/exercises"
	DefaultMarkerRedisKey = "ruterm:"
	DefaultResetTokenTTL  = 30 * time.Minute
)
