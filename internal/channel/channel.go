// Package channel delivers serialized settings snapshots to the control
// process. Delivery is fire-and-forget: the returned status is informational.
package channel

import (
	"context"
	"log"

	"golang.org/x/time/rate"
)

// Channel sends a serialized message and returns a status code. Implementations
// in this package return the number of receivers that accepted the message,
// or a negative value when the message could not be sent at all.
type Channel interface {
	Send(msg string) int
}

// Func adapts a plain function to Channel.
type Func func(msg string) int

// Send calls f.
func (f Func) Send(msg string) int {
	return f(msg)
}

// Multi fans a message out to several channels.
type Multi []Channel

// Send delivers msg to every non-nil channel and sums the non-negative results.
func (m Multi) Send(msg string) int {
	total := 0
	for _, c := range m {
		if c == nil {
			continue
		}
		if n := c.Send(msg); n > 0 {
			total += n
		}
	}
	return total
}

// Throttled limits how fast messages reach the wrapped channel. Send blocks
// until the limiter admits the message or ctx ends.
type Throttled struct {
	ctx     context.Context
	next    Channel
	limiter *rate.Limiter
}

// NewThrottled wraps next with a limiter of perSecond messages and the given burst.
func NewThrottled(ctx context.Context, next Channel, perSecond float64, burst int) *Throttled {
	if burst < 1 {
		burst = 1
	}
	return &Throttled{
		ctx:     ctx,
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Send waits for the limiter and forwards msg.
func (t *Throttled) Send(msg string) int {
	if err := t.limiter.Wait(t.ctx); err != nil {
		log.Printf("[Channel] Dropping notification: %v", err)
		return -1
	}
	return t.next.Send(msg)
}
