package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/rustyeddy/optsim/market"
)

// MemoryFeed serves quote tables held in memory.
type MemoryFeed struct {
	mu     sync.RWMutex
	tables map[string][]market.Quote
	calls  map[string]int

	// Err, when set, is returned from every Get.
	Err error
}

func NewMemory() *MemoryFeed {
	return &MemoryFeed{
		tables: map[string][]market.Quote{},
		calls:  map[string]int{},
	}
}

func (m *MemoryFeed) Add(symbol string, quotes ...market.Quote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[symbol] = append(m.tables[symbol], quotes...)
}

func (m *MemoryFeed) Get(ctx context.Context, symbol string, f Filter) ([]market.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.calls[symbol]++
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	rows, ok := m.tables[symbol]
	if !ok {
		return nil, noTable(symbol, fmt.Errorf("not loaded"))
	}
	return f.apply(symbol, rows), nil
}

// Calls reports how often symbol was requested.
func (m *MemoryFeed) Calls(symbol string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[symbol]
}
