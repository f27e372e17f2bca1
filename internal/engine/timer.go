package engine

import (
	"sync"
	"time"
)

// countdown is the cancellable per-question timer. It fires onTick once per
// interval with the seconds left and onExpire exactly once when the budget
// is exhausted, then stops itself. cancel is safe to call multiple times
// and after expiry.
type countdown struct {
	stop chan struct{}
	once sync.Once
}

func startCountdown(seconds int, interval time.Duration, onTick func(remaining int), onExpire func()) *countdown {
	c := &countdown{stop: make(chan struct{})}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		remaining := seconds
		for {
			select {
			case <-ticker.C:
				remaining--
				if remaining <= 0 {
					onExpire()
					return
				}
				onTick(remaining)
			case <-c.stop:
				return
			}
		}
	}()
	return c
}

func (c *countdown) cancel() {
	c.once.Do(func() { close(c.stop) })
}
