package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControllerContext(t *testing.T) {
	f := newFixture(t, "/")
	ctx := context.Background()

	assert.Equal(t, ctx, WithController(ctx, nil))
	_, ok := FromContext(ctx)
	assert.False(t, ok)
	assert.PanicsWithValue(t, ErrNoController, func() { MustFromContext(ctx) })

	ctx = WithController(ctx, f.ctrl)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, f.ctrl, got)
	assert.Same(t, f.ctrl, MustFromContext(ctx))
}
