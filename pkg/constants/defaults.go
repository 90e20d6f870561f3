package constants

import "time"

// ISO8601MillisFormat matches JavaScript's Date.toISOString, which is what
// the landing page and spreadsheet imports expect for "Joined Date".
const ISO8601MillisFormat = "2006-01-02T15:04:05.000Z"

const (
	DefaultRateLimitRequests = 100
	DefaultRateLimitWindow   = time.Minute
	DefaultRequestTimeout    = 30 * time.Second

	// DefaultExportCacheTTL bounds how stale a cached CSV export can be when
	// an invalidation is missed.
	DefaultExportCacheTTL = 30 * time.Second
)
