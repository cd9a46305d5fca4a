package interaction

import (
	"time"

	"golang.org/x/time/rate"
)

// DefaultMoveRate bounds pointer sampling independent of display refresh.
const DefaultMoveRate = 60

// MoveThrottle drops pointer samples beyond a fixed rate. Dropped samples are not queued.
type MoveThrottle struct {
	limiter *rate.Limiter
}

// NewMoveThrottle allows perSecond samples with no burst. perSecond <= 0 disables throttling.
func NewMoveThrottle(perSecond float64) *MoveThrottle {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &MoveThrottle{limiter: rate.NewLimiter(limit, 1)}
}

// Allow reports whether a sample taken at t should be kept.
func (m *MoveThrottle) Allow(t time.Time) bool {
	return m.limiter.AllowN(t, 1)
}
