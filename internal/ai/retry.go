package ai

import (
	"math/rand/v2"
	"time"
)

const (
	// Rate limit waits start at rateLimitBase and double per attempt until
	// they reach rateLimitCeiling.
	rateLimitBase    = time.Second
	rateLimitCeiling = 30 * time.Second
)

// rateLimitWait is how long the pacer sleeps before retrying a 429 that
// carried no Retry-After. The result lies between half and all of the
// doubled delay.
func rateLimitWait(attempt int) time.Duration {
	d := rateLimitCeiling
	if attempt < 0 {
		attempt = 0
	}
	if attempt < 6 {
		d = min(rateLimitBase<<attempt, rateLimitCeiling)
	}
	half := d / 2
	return half + rand.N(half+1)
}
