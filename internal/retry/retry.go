// Package retry runs an operation again under a pluggable backoff policy.
package retry

import (
	"context"
	"errors"
	"math"
	"time"
)

// Policy decides how long to wait before retry n (1-based), or that no more
// retries should happen.
type Policy interface {
	Delay(n int) (time.Duration, bool)
}

// Never 不重试
var Never Policy = Fixed{}

// Fixed waits the same interval between each of at most Retries retries.
type Fixed struct {
	Interval time.Duration
	Retries  int
}

func (f Fixed) Delay(n int) (time.Duration, bool) {
	if n > f.Retries {
		return 0, false
	}
	return f.Interval, true
}

// Exponential multiplies Base by Factor for every retry, capped at Max.
type Exponential struct {
	Base    time.Duration
	Max     time.Duration
	Factor  float64 // defaults to 2
	Retries int
}

func (e Exponential) Delay(n int) (time.Duration, bool) {
	if n > e.Retries {
		return 0, false
	}
	factor := e.Factor
	if factor <= 1 {
		factor = 2
	}
	f := float64(e.Base) * math.Pow(factor, float64(n-1))
	switch {
	case e.Max > 0 && f > float64(e.Max):
		return e.Max, true
	case f >= math.MaxInt64:
		return time.Duration(math.MaxInt64), true
	}
	return time.Duration(f), true
}

var sleep = Sleep

// Do calls fn until it succeeds, retryable rejects the error, the policy
// gives up or ctx ends. A nil policy means no retry, a nil retryable retries
// every error. The last error from fn is returned.
func Do(ctx context.Context, p Policy, retryable func(error) bool, fn func(context.Context) error) error {
	if p == nil {
		p = Never
	}
	for n := 1; ; n++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		d, ok := p.Delay(n)
		if !ok {
			return err
		}
		if serr := sleep(ctx, d); serr != nil {
			return errors.Join(err, serr)
		}
	}
}

// Sleep 等待 d，ctx 结束时提前返回
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
