package di

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeter struct{ name string }

func TestProvideValue(t *testing.T) {
	c := NewContainer()
	c.ProvideValue("answer", 42)

	v, err := Get[int](c, "answer")
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.True(t, c.Has("answer"))
}

func TestProvide_LazySingleton(t *testing.T) {
	c := NewContainer()
	builds := 0
	c.Provide("greeter", func(Resolver) (any, error) {
		builds++
		return &greeter{name: "hi"}, nil
	})
	assert.Equal(t, 0, builds)

	a, err := Get[*greeter](c, "greeter")
	require.NoError(t, err)
	b, err := Get[*greeter](c, "greeter")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, 1, builds)
}

func TestProvide_Dependencies(t *testing.T) {
	c := NewContainer()
	c.ProvideValue("name", "Ada")
	c.Provide("greeter", func(r Resolver) (any, error) {
		name, err := Get[string](r, "name")
		if err != nil {
			return nil, err
		}
		return &greeter{name: name}, nil
	})

	g, err := Get[*greeter](c, "greeter")
	require.NoError(t, err)
	assert.Equal(t, "Ada", g.name)
}

func TestResolve_NotProvided(t *testing.T) {
	c := NewContainer()
	_, err := c.Resolve("missing")
	require.ErrorIs(t, err, ErrNotProvided)
	assert.Contains(t, err.Error(), "missing")
}

func TestResolve_Cycle(t *testing.T) {
	c := NewContainer()
	c.Provide("a", func(r Resolver) (any, error) { return r.Resolve("b") })
	c.Provide("b", func(r Resolver) (any, error) { return r.Resolve("a") })

	_, err := c.Resolve("a")
	require.ErrorIs(t, err, ErrCycle)
	assert.Contains(t, err.Error(), "a -> b -> a")
}

func TestResolve_FactoryErrorNotCached(t *testing.T) {
	c := NewContainer()
	calls := 0
	c.Provide("flaky", func(Resolver) (any, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("not yet")
		}
		return "ok", nil
	})

	_, err := c.Resolve("flaky")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolve flaky: not yet")

	v, err := c.Resolve("flaky")
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestGet_TypeMismatch(t *testing.T) {
	c := NewContainer()
	c.ProvideValue("n", "not an int")

	_, err := Get[int](c, "n")
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestOptional(t *testing.T) {
	c := NewContainer()

	_, ok, err := Optional[string](c, "absent")
	require.NoError(t, err)
	assert.False(t, ok)

	c.ProvideValue("present", "yes")
	v, ok, err := Optional[string](c, "present")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "yes", v)

	c.ProvideValue("wrong", 1)
	_, _, err = Optional[string](c, "wrong")
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestProvide_Replaces(t *testing.T) {
	c := NewContainer()
	c.ProvideValue(TokenLogger, "first")
	c.Provide(TokenLogger, func(Resolver) (any, error) { return "second", nil })

	v, err := c.Resolve(TokenLogger)
	require.NoError(t, err)
	assert.Equal(t, "second", v)
}

func TestResolverFunc(t *testing.T) {
	r := ResolverFunc(func(tok Token) (any, error) { return string(tok), nil })
	v, err := Get[string](r, "echo")
	require.NoError(t, err)
	assert.Equal(t, "echo", v)
}

func TestContainer_ConcurrentResolve(t *testing.T) {
	c := NewContainer()
	builds := 0
	c.Provide("s", func(Resolver) (any, error) {
		builds++
		return &greeter{}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Resolve("s")
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, builds)
}
