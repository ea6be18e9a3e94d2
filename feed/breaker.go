package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/rustyeddy/optsim/market"
)

// BreakerSettings configures the circuit around a feed.
type BreakerSettings struct {
	MaxFailures uint32        // consecutive failures before the circuit opens
	Timeout     time.Duration // how long the circuit stays open
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{MaxFailures: 3, Timeout: 30 * time.Second}
}

// Breaker wraps a DataFeed with a circuit breaker. While the circuit is
// open Get fails fast with ErrDataUnavailable.
type Breaker struct {
	feed DataFeed
	cb   *gobreaker.CircuitBreaker
}

func NewBreaker(feed DataFeed, settings BreakerSettings, log logrus.FieldLogger) *Breaker {
	if settings.MaxFailures == 0 {
		settings.MaxFailures = DefaultBreakerSettings().MaxFailures
	}
	if log == nil {
		log = discard()
	}
	max := settings.MaxFailures
	return &Breaker{
		feed: feed,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "feed",
			MaxRequests: 1,
			Timeout:     settings.Timeout,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= max
			},
			IsSuccessful: func(err error) bool {
				// only an unreachable source counts as a failure
				return !errors.Is(err, ErrDataUnavailable) || errors.Is(err, ErrNoTable)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
					Warn("feed circuit state changed")
			},
		}),
	}
}

func (b *Breaker) Get(ctx context.Context, symbol string, f Filter) ([]market.Quote, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.feed.Get(ctx, symbol, f)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s: %w: %v", symbol, ErrDataUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	quotes, _ := res.([]market.Quote)
	return quotes, nil
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func discard() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
