package camera

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultPanDuration is how long a selection pan takes.
const DefaultPanDuration = time.Second

// Pan interpolates the camera between two positions with an ease-out cubic
// curve. It is a pure function of time and holds no clock.
type Pan struct {
	From     mgl64.Vec3
	To       mgl64.Vec3
	Start    time.Time
	Duration time.Duration
}

// Progress returns elapsed/Duration clamped to [0, 1]. A non-positive
// duration completes immediately.
func (p Pan) Progress(now time.Time) float64 {
	if p.Duration <= 0 {
		return 1
	}
	return math.Max(0, math.Min(1, float64(now.Sub(p.Start))/float64(p.Duration)))
}

// Position returns the eased camera position at now.
func (p Pan) Position(now time.Time) mgl64.Vec3 {
	e := EaseOutCubic(p.Progress(now))
	return p.From.Add(p.To.Sub(p.From).Mul(e))
}

// Done reports whether the pan has reached its destination.
func (p Pan) Done(now time.Time) bool {
	return p.Progress(now) >= 1
}

// EaseOutCubic is 1 - (1-p)^3.
func EaseOutCubic(p float64) float64 {
	q := 1 - p
	return 1 - q*q*q
}
