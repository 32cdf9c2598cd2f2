package model

// RateLimitSnapshot is a point-in-time read of one credential's remaining
// platform API budget. Rate limits are never gated on, only observed.
type RateLimitSnapshot struct {
	CredentialLabel string
	Limit           int
	Remaining       int
	Used            int
}
