package strategy

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rustyeddy/optsim/config"
)

// Factory builds a configured strategy.
type Factory func(cfg config.StrategyConfig) (Strategy, error)

var (
	mu       sync.RWMutex
	registry = make(map[string]Factory)
)

// Register adds a factory under name. Registering a name twice panics.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	key := normalize(name)
	if _, dup := registry[key]; dup {
		panic(fmt.Sprintf("strategy %q registered twice", name))
	}
	registry[key] = f
}

// New builds the strategy named by cfg.Name.
func New(cfg config.StrategyConfig) (Strategy, error) {
	mu.RLock()
	f, ok := registry[normalize(cfg.Name)]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (supported: %s)", cfg.Name, strings.Join(Names(), ", "))
	}
	return f(cfg)
}

// Names lists registered strategies in order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
