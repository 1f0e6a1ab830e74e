package generation

import (
	"errors"
	"strings"

	"tourloop/config"
)

// ErrInsufficientCredits is the normalized terminal error for the whole
// non-retryable credits/authorization class.
var ErrInsufficientCredits = errors.New(config.CreditsExhaustedMessage)

// nonRetryablePatterns match failures that repeating the request cannot fix:
// exhausted balance/credits or a rejected session.
var nonRetryablePatterns = []string{
	"insufficient",
	"balance",
	"credit",
	"unauthorized",
	"not authorized",
	"payment required",
}

// NonRetryable reports whether a failure reason belongs to the
// credits/authorization class that must abort the retry loop immediately.
func NonRetryable(reason string) bool {
	lower := strings.ToLower(reason)
	for _, pattern := range nonRetryablePatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
