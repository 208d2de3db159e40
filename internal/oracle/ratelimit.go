package oracle

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// pacer enforces a minimum interval between calls to one provider. Burst is
// pinned to 1 so consecutive calls always wait out the full floor.
type pacer struct {
	limiter *rate.Limiter
}

func newPacer(minInterval time.Duration) *pacer {
	if minInterval <= 0 {
		minInterval = time.Second
	}
	return &pacer{
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

// wait suspends until the minimum interval since the previous call elapses.
func (p *pacer) wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
