package poller

import (
	"math"
	"time"

	"github.com/charmbracelet/log"
)

// Defaults used when an Options field is left zero.
const (
	DefaultInitialInterval = 2 * time.Second
	DefaultMaxInterval     = 10 * time.Second
	DefaultGrowthRate      = 1.5
	DefaultGrowthEvery     = 3
	DefaultMaxAttempts     = 60
	DefaultElapsedTick     = 100 * time.Millisecond
)

// Options configures the timing policy of a polling session.
type Options struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	GrowthRate      float64
	// GrowthEvery is the number of attempts between two interval increases.
	GrowthEvery int
	// Progressive disables backoff when false; every wait is InitialInterval.
	Progressive bool
	// MaxAttempts bounds the number of status checks. Zero means unbounded.
	MaxAttempts int
	ElapsedTick time.Duration

	Logger *log.Logger
}

// DefaultOptions returns the stock polling policy: 2s growing by 1.5x every
// three attempts up to 10s, at most 60 checks.
func DefaultOptions() Options {
	return Options{
		InitialInterval: DefaultInitialInterval,
		MaxInterval:     DefaultMaxInterval,
		GrowthRate:      DefaultGrowthRate,
		GrowthEvery:     DefaultGrowthEvery,
		Progressive:     true,
		MaxAttempts:     DefaultMaxAttempts,
		ElapsedTick:     DefaultElapsedTick,
	}
}

func (o Options) withDefaults() Options {
	if o.InitialInterval <= 0 {
		o.InitialInterval = DefaultInitialInterval
	}
	if o.MaxInterval <= 0 {
		o.MaxInterval = DefaultMaxInterval
	}
	if o.MaxInterval < o.InitialInterval {
		o.MaxInterval = o.InitialInterval
	}
	if o.GrowthRate < 1 {
		o.GrowthRate = 1
	}
	if o.GrowthEvery <= 0 {
		o.GrowthEvery = DefaultGrowthEvery
	}
	if o.MaxAttempts < 0 {
		o.MaxAttempts = 0
	}
	if o.ElapsedTick <= 0 {
		o.ElapsedTick = DefaultElapsedTick
	}
	return o
}

// Interval returns the delay to wait after the given attempt number.
//
//	min(InitialInterval * GrowthRate^floor(attempt/GrowthEvery), MaxInterval)
func (o Options) Interval(attempt int) time.Duration {
	o = o.withDefaults()
	if !o.Progressive {
		return o.InitialInterval
	}
	if attempt < 0 {
		attempt = 0
	}
	steps := attempt / o.GrowthEvery
	next := float64(o.InitialInterval) * math.Pow(o.GrowthRate, float64(steps))
	if math.IsInf(next, 0) || math.IsNaN(next) || next >= float64(o.MaxInterval) {
		return o.MaxInterval
	}
	return time.Duration(next)
}
