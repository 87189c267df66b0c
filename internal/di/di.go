// Package di is the dependency lookup surface used at store construction.
//
// The store depends only on Resolver. Container is a small lazy-singleton
// implementation; any other container can be adapted with ResolverFunc.
package di

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Token names a dependency.
type Token string

// Well-known tokens.
const (
	TokenCollectionCreator Token = "entcache.collection-creator"
	TokenActionFactory     Token = "entcache.action-factory"
	TokenEntityEffects     Token = "entcache.entity-effects"
	TokenDataService       Token = "entcache.data-service"
	TokenLogger            Token = "entcache.logger"
)

var (
	// ErrNotProvided is returned for tokens without a provider.
	ErrNotProvided = errors.New("di: token not provided")
	// ErrCycle is returned when a factory depends on itself.
	ErrCycle = errors.New("di: dependency cycle")
	// ErrTypeMismatch is returned by Get when the value has the wrong type.
	ErrTypeMismatch = errors.New("di: type mismatch")
)

// Resolver looks up a dependency by token.
type Resolver interface {
	Resolve(Token) (any, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(Token) (any, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(t Token) (any, error) {
	return f(t)
}

// Factory builds a dependency. It must resolve its own dependencies through
// r, not through the container directly.
type Factory func(r Resolver) (any, error)

// Container resolves tokens to lazily built singletons. Safe for concurrent
// use; resolutions are serialized.
type Container struct {
	build sync.Mutex // held for a whole top-level resolution

	mu        sync.Mutex
	factories map[Token]Factory
	values    map[Token]any
}

// NewContainer returns an empty container.
func NewContainer() *Container {
	return &Container{
		factories: map[Token]Factory{},
		values:    map[Token]any{},
	}
}

// Provide registers a factory for t, replacing any earlier provider and
// forgetting a value already built for t.
func (c *Container) Provide(t Token, f Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[t] = f
	delete(c.values, t)
}

// ProvideValue registers a ready value for t.
func (c *Container) ProvideValue(t Token, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.factories, t)
	c.values[t] = v
}

// Has reports whether t has a provider.
func (c *Container) Has(t Token) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, isValue := c.values[t]
	_, isFactory := c.factories[t]
	return isValue || isFactory
}

// Resolve returns the singleton for t, building it on first use.
func (c *Container) Resolve(t Token) (any, error) {
	c.build.Lock()
	defer c.build.Unlock()
	return (&resolution{c: c}).Resolve(t)
}

// resolution tracks the tokens being built so cycles are reported instead
// of recursing forever.
type resolution struct {
	c     *Container
	stack []Token
}

func (r *resolution) Resolve(t Token) (any, error) {
	r.c.mu.Lock()
	if v, ok := r.c.values[t]; ok {
		r.c.mu.Unlock()
		return v, nil
	}
	f, ok := r.c.factories[t]
	r.c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotProvided, t)
	}

	for _, pending := range r.stack {
		if pending == t {
			return nil, fmt.Errorf("%w: %s", ErrCycle, r.path(t))
		}
	}
	r.stack = append(r.stack, t)
	v, err := f(r)
	r.stack = r.stack[:len(r.stack)-1]
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", t, err)
	}

	r.c.mu.Lock()
	r.c.values[t] = v
	r.c.mu.Unlock()
	return v, nil
}

func (r *resolution) path(t Token) string {
	parts := make([]string, 0, len(r.stack)+1)
	for _, s := range r.stack {
		parts = append(parts, string(s))
	}
	parts = append(parts, string(t))
	return strings.Join(parts, " -> ")
}

// Get resolves t and asserts its type.
func Get[T any](r Resolver, t Token) (T, error) {
	var zero T
	v, err := r.Resolve(t)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T, want %T", ErrTypeMismatch, t, v, zero)
	}
	return typed, nil
}

// Optional is Get that treats ErrNotProvided as absent.
func Optional[T any](r Resolver, t Token) (T, bool, error) {
	v, err := Get[T](r, t)
	if errors.Is(err, ErrNotProvided) {
		var zero T
		return zero, false, nil
	}
	if err != nil {
		return v, false, err
	}
	return v, true, nil
}
