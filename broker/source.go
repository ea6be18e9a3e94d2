package broker

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/optsim/feed"
	"github.com/rustyeddy/optsim/market"
)

// Source fetches and caches the quote table of one symbol. Symbols that
// are already cached are left alone. A symbol added mid-run joins the
// stream from the next date on.
func (b *Broker) Source(ctx context.Context, symbol string, f feed.Filter) error {
	return b.SourceAll(ctx, []string{symbol}, f)
}

// SourceAll fetches every uncached symbol concurrently.
func (b *Broker) SourceAll(ctx context.Context, symbols []string, f feed.Filter) error {
	b.mu.Lock()
	var missing []string
	seen := map[string]bool{}
	for _, sym := range symbols {
		if _, ok := b.tables[sym]; ok || seen[sym] {
			continue
		}
		seen[sym] = true
		missing = append(missing, sym)
	}
	b.mu.Unlock()

	if len(missing) == 0 {
		return nil
	}

	tables := make([][]market.Quote, len(missing))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, sym := range missing {
		i, sym := i, sym
		g.Go(func() error {
			quotes, err := b.feed.Get(gctx, sym, f)
			if err != nil {
				return fmt.Errorf("source %s: %w", sym, err)
			}
			tables[i] = quotes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sym := range missing {
		if _, ok := b.tables[sym]; ok {
			continue
		}
		b.tables[sym] = tables[i]
		b.stale = true
		b.log.WithFields(logrus.Fields{"symbol": sym, "rows": len(tables[i])}).Info("sourced quotes")
	}
	return nil
}

// Symbols lists the cached symbols.
func (b *Broker) Symbols() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.tables))
	for sym := range b.tables {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
