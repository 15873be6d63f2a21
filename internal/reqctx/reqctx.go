// Package reqctx tags a CLI operation with an id that follows it through
// logs and errors, including the per-year goroutines it fans out to.
package reqctx

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type key int

const operationKey key = 0

// Operation describes one top-level command run.
type Operation struct {
	ID        string
	Name      string
	StartTime time.Time
}

// Start attaches a new operation to ctx.
func Start(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, operationKey, &Operation{
		ID:        generateID(),
		Name:      name,
		StartTime: time.Now(),
	})
}

// From returns the operation on ctx, or a placeholder when none was started.
func From(ctx context.Context) *Operation {
	if op, ok := ctx.Value(operationKey).(*Operation); ok {
		return op
	}
	return &Operation{
		ID:        "unknown",
		StartTime: time.Now(),
	}
}

// Elapsed returns the time since the operation started.
func (o *Operation) Elapsed() time.Duration {
	return time.Since(o.StartTime)
}

// Logger returns the global logger with the operation fields attached.
func Logger(ctx context.Context) zerolog.Logger {
	op := From(ctx)
	l := log.With().Str("op_id", op.ID)
	if op.Name != "" {
		l = l.Str("op", op.Name)
	}
	return l.Logger()
}

func generateID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// OperationError wraps an error with the id of the operation that failed
type OperationError struct {
	OperationID string
	Err         error
}

// Error implements the error interface
func (e *OperationError) Error() string {
	return fmt.Sprintf("[%s] %v", e.OperationID, e.Err)
}

// Unwrap returns the underlying error
func (e *OperationError) Unwrap() error {
	return e.Err
}

// WrapError tags err with the operation id from ctx. nil stays nil.
func WrapError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	return &OperationError{
		OperationID: From(ctx).ID,
		Err:         err,
	}
}
