package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/rustyeddy/optsim/event"
	"github.com/rustyeddy/optsim/feed"
	"github.com/rustyeddy/optsim/market"
	"github.com/rustyeddy/optsim/options"
	"github.com/rustyeddy/optsim/order"
)

// StreamNext advances to the next quote date: it marks the book to
// market, settles expirations, works pending orders and enqueues a Data
// event. It returns false once the stream is exhausted.
func (b *Broker) StreamNext(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stream == nil || b.stale {
		b.stream = feed.NewStream(b.tables, b.date)
		b.stale = false
	}

	snap, ok := b.stream.Next()
	if !ok {
		return false, nil
	}
	b.date = snap.Date
	b.chain = snap.Chain
	b.stats.Ticks++

	if err := b.updateLocked(snap.Chain); err != nil {
		return false, err
	}
	if err := b.equityLocked(); err != nil {
		return false, fmt.Errorf("journal equity: %w", err)
	}
	b.statusLocked()

	b.sink.Put(event.Data{Date: snap.Date, Snapshot: snap})
	return true, nil
}

// updateLocked runs one tick against a fresh chain. DAY orders left over
// from an earlier date lapse first, then positions are marked and settled,
// then the remaining WORKING orders are repriced and filled when
// marketable.
func (b *Broker) updateLocked(c *market.Chain) error {
	for _, o := range b.workingLocked() {
		if o.TIF == order.Day && o.Date.Before(c.Date) {
			if err := b.expireLocked(o, ReasonDay); err != nil {
				return err
			}
		}
	}

	if err := b.acct.Update(c); err != nil {
		return fmt.Errorf("%s: mark to market: %w", c.Date.Format(market.DateLayout), err)
	}

	for _, s := range b.acct.CheckExpiration(c.Date) {
		if err := b.settleLocked(s); err != nil {
			return err
		}
	}

	for _, o := range b.workingLocked() {
		if !o.Strategy.Expiration().After(c.Date) {
			if err := b.expireLocked(o, ReasonContractExpired); err != nil {
				return err
			}
			continue
		}
		if err := o.Update(c); err != nil {
			if errors.Is(err, options.ErrMissingQuote) {
				// not quoted today, the order keeps working on its last mark
				b.orderLog(o).Debug("order legs not quoted")
				continue
			}
			return err
		}
		if o.Executable() {
			if err := b.executeLocked(o); err != nil {
				return err
			}
		}
	}
	return nil
}
