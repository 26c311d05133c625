package constants

import (
	"fmt"
	"time"
)

// Redis keys follow cineseat:{module}:{operation}:{identifier}

const (
	CACHE_PREFIX = "cineseat"
)

// ================== PRICING ==================

const (
	// Snapshot of every active price rule. Invalidated by any rule write.
	CACHE_KEY_ACTIVE_PRICE_RULES = CACHE_PREFIX + ":pricing:rules:active"

	TTL_ACTIVE_PRICE_RULES = 5 * time.Minute
)

// ================== RATE LIMITING ==================

const (
	RATE_LIMIT_KEY_PREFIX = CACHE_PREFIX + ":ratelimit:" // + type:identifier
)

// ================== KAFKA ==================

const (
	TOPIC_SEAT_EVENTS    = "seat-events"
	TOPIC_PAYMENT_EVENTS = "payment-events"

	CONSUMER_GROUP_CHECKOUT = "cineseat-checkout"
)

func BuildRateLimitKey(limitType, identifier string) string {
	return fmt.Sprintf("%s%s:%s", RATE_LIMIT_KEY_PREFIX, limitType, identifier)
}

// ================== ANALYTICS ==================

const (
	CACHE_KEY_ANALYTICS_OVERVIEW = CACHE_PREFIX + ":analytics:overview"

	TTL_ANALYTICS_OVERVIEW = time.Minute
)
