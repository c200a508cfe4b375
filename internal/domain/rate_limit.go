package domain

import (
	"time"
)

// UnknownClient is the shared bucket for requests without a usable client address.
const UnknownClient = "unknown"

type RateLimitResult struct {
	Allowed    bool          `json:"allowed"`
	Limit      int           `json:"limit"`
	Remaining  int           `json:"remaining"`
	ResetAt    time.Time     `json:"reset_at"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
	Blocked    bool          `json:"blocked"`
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds.
func (r *RateLimitResult) RetryAfterSeconds() int {
	if r.RetryAfter <= 0 {
		return 0
	}
	return int((r.RetryAfter + time.Second - 1) / time.Second)
}
