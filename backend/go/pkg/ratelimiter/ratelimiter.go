package ratelimiter

import "time"

// RateLimiter decides whether one more request may proceed right now.
type RateLimiter interface {
	Allow() bool
}

type clock func() time.Time
