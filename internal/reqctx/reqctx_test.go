package reqctx

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartAndFrom(t *testing.T) {
	ctx := Start(context.Background(), "transcript")
	op := From(ctx)
	assert.Len(t, op.ID, 16)
	assert.Equal(t, "transcript", op.Name)
	assert.GreaterOrEqual(t, op.Elapsed().Nanoseconds(), int64(0))

	other := From(Start(context.Background(), "grades"))
	assert.NotEqual(t, op.ID, other.ID)

	assert.Equal(t, "unknown", From(context.Background()).ID)
}

func TestWrapError(t *testing.T) {
	ctx := Start(context.Background(), "login")
	base := errors.New("boom")

	err := WrapError(ctx, base)
	require.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), From(ctx).ID)

	var oe *OperationError
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, From(ctx).ID, oe.OperationID)

	assert.NoError(t, WrapError(ctx, nil))
}
