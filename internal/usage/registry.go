// Package usage maps limit keys to live usage counters. Feature packages
// register a counter for each limit key they own; the entitlement resolver
// reads current usage through the registry without knowing who counts what.
package usage

import (
	"context"
	"sync"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

// CounterFunc returns the current usage for an account under one limit key.
type CounterFunc func(ctx context.Context, accountID snowflake.ID) (int64, error)

type Registry struct {
	mu       sync.RWMutex
	counters map[string]CounterFunc
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		counters: make(map[string]CounterFunc),
		log:      log.Named("usage.registry"),
	}
}

// Register binds a counter to a limit key. Later registrations replace
// earlier ones.
func (r *Registry) Register(key string, fn CounterFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[key] = fn
}

// Current returns usage for key. Missing counters and counter errors both
// report zero so a broken counter never blocks entitlement resolution.
func (r *Registry) Current(ctx context.Context, key string, accountID snowflake.ID) int64 {
	r.mu.RLock()
	fn, ok := r.counters[key]
	r.mu.RUnlock()
	if !ok {
		return 0
	}

	n, err := fn(ctx, accountID)
	if err != nil {
		r.log.Warn("usage counter failed",
			zap.String("key", key),
			zap.String("account_id", accountID.String()),
			zap.Error(err),
		)
		return 0
	}
	return n
}

// Keys lists the registered limit keys.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.counters))
	for k := range r.counters {
		keys = append(keys, k)
	}
	return keys
}
