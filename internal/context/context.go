package context

import (
	"context"
	"sync"

	"sopdrop.com/cli/internal/config"
	"sopdrop.com/cli/sopdrop"
)

type ctxKey string

const key ctxKey = "sopdrop.com/cli/internal/context"

// Context carries the structures the pre-run hook builds once per
// invocation: the resolved configuration and the assembled sopdrop
// client. They travel as pointers on the command context so every
// subcommand reaches them in O(1) without global state.
type Context struct {
	mu sync.RWMutex

	// configuration is the fully resolved configuration, env overrides
	// already applied. Always set before any RunE executes.
	configuration *config.Config

	// client is the sopdrop client assembled from the configuration,
	// with its prompt bound to the command's IO.
	client *sopdrop.Client
}

// WithConfiguration creates or updates the command context with the
// given configuration. It can be read back via [FromContext] and
// [Context.Configuration].
func WithConfiguration(ctx context.Context, cfg *config.Config) context.Context {
	ctx, sdctx := retrieveOrCreateContext(ctx)
	sdctx.mu.Lock()
	defer sdctx.mu.Unlock()
	sdctx.configuration = cfg
	return ctx
}

// WithClient creates or updates the command context with the given
// client. It can be read back via [FromContext] and [Context.Client].
func WithClient(ctx context.Context, client *sopdrop.Client) context.Context {
	ctx, sdctx := retrieveOrCreateContext(ctx)
	sdctx.mu.Lock()
	defer sdctx.mu.Unlock()
	sdctx.client = client
	return ctx
}

func (ctx *Context) Configuration() *config.Config {
	if ctx == nil {
		return nil
	}
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	return ctx.configuration
}

func (ctx *Context) Client() *sopdrop.Client {
	if ctx == nil {
		return nil
	}
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	return ctx.client
}

// FromContext retrieves the sopdrop context. It returns nil when none
// was registered; within a command executed under the root command's
// pre-run hook it is always present.
func FromContext(ctx context.Context) *Context {
	if ctx == nil {
		return nil
	}

	if v, ok := ctx.Value(key).(*Context); ok {
		return v
	}
	return nil
}

// WithContext attaches an existing sopdrop context.
func WithContext(ctx context.Context, c *Context) context.Context {
	if c == nil {
		return nil
	}
	return context.WithValue(ctx, key, c)
}

// retrieveOrCreateContext returns the sopdrop context of ctx, creating
// and attaching a fresh one when ctx carries none.
func retrieveOrCreateContext(ctx context.Context) (context.Context, *Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	sdctx := FromContext(ctx)
	if sdctx == nil {
		sdctx = &Context{}
		ctx = WithContext(ctx, sdctx)
	}
	return ctx, sdctx
}
