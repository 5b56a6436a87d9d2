package bus

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"
)

// Query represents a read-only query
type Query interface {
	Validate() error
}

// Cacheable is implemented by queries whose results may be cached
type Cacheable interface {
	CacheKey() string
}

// QueryHandler handles a specific query type
type QueryHandler interface {
	Handle(ctx context.Context, query Query) (interface{}, error)
}

// Middleware wraps a query handler
type Middleware func(next QueryHandler) QueryHandler

// QueryBus dispatches queries to their handlers
type QueryBus struct {
	handlers    map[reflect.Type]QueryHandler
	middlewares []Middleware
	mu          sync.RWMutex
}

// NewQueryBus creates a new query bus
func NewQueryBus(middlewares ...Middleware) *QueryBus {
	return &QueryBus{
		handlers:    make(map[reflect.Type]QueryHandler),
		middlewares: middlewares,
	}
}

// Register registers a handler for a query type
func (b *QueryBus) Register(queryType Query, handler QueryHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := reflect.TypeOf(queryType)
	if _, exists := b.handlers[t]; exists {
		return fmt.Errorf("handler already registered for query type %s", t.Name())
	}

	for i := len(b.middlewares) - 1; i >= 0; i-- {
		handler = b.middlewares[i](handler)
	}
	b.handlers[t] = handler
	return nil
}

// Ask dispatches a query to its handler and returns the result
func (b *QueryBus) Ask(ctx context.Context, query Query) (interface{}, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("query validation failed: %w", err)
	}

	b.mu.RLock()
	handler, exists := b.handlers[reflect.TypeOf(query)]
	b.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("no handler registered for query type %T", query)
	}

	result, err := handler.Handle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query handler failed: %w", err)
	}

	return result, nil
}

// QueryHandlerFunc is an adapter to allow functions to be used as handlers
type QueryHandlerFunc func(ctx context.Context, query Query) (interface{}, error)

// Handle implements QueryHandler
func (f QueryHandlerFunc) Handle(ctx context.Context, query Query) (interface{}, error) {
	return f(ctx, query)
}

// Cache interface for caching. Generation changes whenever a key is
// invalidated so a result read before the invalidation is never stored.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Generation(ctx context.Context, key string) uint64
	SetIfGeneration(ctx context.Context, key string, value interface{}, ttl int, generation uint64) error
}

// CacheObserver is told about every cache lookup
type CacheObserver interface {
	ObserveCache(hit bool)
}

// CachingMiddleware serves Cacheable queries from the cache when possible
func CachingMiddleware(cache Cache, ttl int, observer CacheObserver) Middleware {
	return func(next QueryHandler) QueryHandler {
		return QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
			cacheable, ok := query.(Cacheable)
			if !ok || cache == nil {
				return next.Handle(ctx, query)
			}

			key := cacheable.CacheKey()
			if cached, found := cache.Get(ctx, key); found {
				if observer != nil {
					observer.ObserveCache(true)
				}
				return cached, nil
			}
			if observer != nil {
				observer.ObserveCache(false)
			}
			generation := cache.Generation(ctx, key)

			result, err := next.Handle(ctx, query)
			if err != nil {
				return nil, err
			}

			// A failed cache write only costs the next reader a lookup
			_ = cache.SetIfGeneration(ctx, key, result, ttl, generation)

			return result, nil
		})
	}
}

// QueryObserver records query executions
type QueryObserver interface {
	ObserveQuery(query string, duration time.Duration, err error)
}

// MetricsMiddleware reports each query's duration and status
func MetricsMiddleware(observer QueryObserver) Middleware {
	return func(next QueryHandler) QueryHandler {
		return QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
			start := time.Now()
			result, err := next.Handle(ctx, query)
			if observer != nil {
				observer.ObserveQuery(reflect.TypeOf(query).Name(), time.Since(start), err)
			}
			return result, err
		})
	}
}
