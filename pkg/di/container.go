package di

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/goliatone/go-redis-cache/cache"
	"github.com/goliatone/go-redis-cache/funccache"
)

// Container shares cache controllers. Configurations with the same identity
// (namespace and resolved connection URL) get the same Controller, so every
// wrapped function pointing at one store reuses one client.
type Container struct {
	mu          sync.Mutex
	controllers map[string]*cache.Controller
	options     []cache.Option
}

// NewContainer creates an empty container. opts are applied to every
// controller it opens, after the options derived from each Config.
func NewContainer(opts ...cache.Option) *Container {
	return &Container{
		controllers: make(map[string]*cache.Controller),
		options:     opts,
	}
}

var (
	defaultOnce      sync.Once
	defaultContainer *Container
)

// Default returns the process wide container.
func Default() *Container {
	defaultOnce.Do(func() {
		defaultContainer = NewContainer()
	})
	return defaultContainer
}

// Controller returns the controller registered for cfg, opening it on first
// use. Later calls with an equal identity return the first controller and
// ignore the remaining fields of cfg.
func (c *Container) Controller(ctx context.Context, cfg cache.Config) (*cache.Controller, error) {
	id := cfg.Identity()

	c.mu.Lock()
	defer c.mu.Unlock()

	if controller, ok := c.controllers[id]; ok {
		return controller, nil
	}

	controller, err := cache.Open(ctx, cfg, c.options...)
	if err != nil {
		return nil, err
	}
	c.controllers[id] = controller
	return controller, nil
}

// Lookup returns the controller registered for cfg without opening one.
func (c *Container) Lookup(cfg cache.Config) (*cache.Controller, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	controller, ok := c.controllers[cfg.Identity()]
	return controller, ok
}

// Identities lists the registered configuration identities in sorted order.
func (c *Container) Identities() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.controllers))
	for id := range c.controllers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered controllers.
func (c *Container) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.controllers)
}

// Close closes every registered controller and empties the container.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for id, controller := range c.controllers {
		if err := controller.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(c.controllers, id)
	}
	return errors.Join(errs...)
}

// NewCached binds fn to the controller registered for cfg.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: NewCached[[]int](ctx, container, cfg, compute, funccache.WithTTL(time.Minute))
func NewCached[R any](ctx context.Context, container *Container, cfg cache.Config, fn funccache.Func[R], opts ...funccache.Option) (*funccache.Cached[R], error) {
	controller, err := container.Controller(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return funccache.New(controller, fn, opts...), nil
}
