package feed

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Open builds the feed named by kind: sqlite and csv read from path,
// postgres connects to dsn. Every feed except memory is wrapped in a
// Breaker logging to log, which may be nil.
func Open(ctx context.Context, kind, path, dsn string, log logrus.FieldLogger) (DataFeed, func() error, error) {
	nop := func() error { return nil }

	switch strings.ToLower(kind) {
	case "", "sqlite", "sqlite3":
		f, err := NewSQLite(path)
		if err != nil {
			return nil, nop, err
		}
		return NewBreaker(f, DefaultBreakerSettings(), log), f.Close, nil
	case "csv":
		f, err := NewCSV(path)
		if err != nil {
			return nil, nop, err
		}
		return NewBreaker(f, DefaultBreakerSettings(), log), nop, nil
	case "postgres", "postgresql", "pg":
		f, err := NewPostgres(ctx, dsn)
		if err != nil {
			return nil, nop, err
		}
		return NewBreaker(f, DefaultBreakerSettings(), log), f.Close, nil
	case "memory":
		return NewMemory(), nop, nil
	}
	return nil, nop, fmt.Errorf("unknown data type %q", kind)
}
