package service

import (
	"context"
	"errors"
)

// ErrNoController is the panic value of MustFromContext when no controller was provided.
var ErrNoController = errors.New("auth session controller not provided in context")

// controllerKey is an unexported context key type to avoid collisions across packages.
type controllerKey struct{}

// WithController returns a child context that carries c.
// If c is nil, the original ctx is returned unchanged.
func WithController(ctx context.Context, c *AuthSessionController) context.Context {
	if c == nil {
		return ctx
	}
	return context.WithValue(ctx, controllerKey{}, c)
}

// FromContext returns the controller from ctx and a boolean indicating presence.
func FromContext(ctx context.Context) (*AuthSessionController, bool) {
	if c, ok := ctx.Value(controllerKey{}).(*AuthSessionController); ok && c != nil {
		return c, true
	}
	return nil, false
}

// MustFromContext returns the controller from ctx. Using auth operations
// outside a provided context is a programming error, so it panics.
func MustFromContext(ctx context.Context) *AuthSessionController {
	c, ok := FromContext(ctx)
	if !ok {
		panic(ErrNoController)
	}
	return c
}
