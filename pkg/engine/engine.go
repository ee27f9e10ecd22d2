// Package engine defines the contract of the privacy-transformation engine.
//
// An engine searches once for a transformation that satisfies a criteria set on a
// representative sample and then applies that transformation to arbitrary tables.
package engine

import (
	"context"
	"errors"

	"github.com/ruslano69/tdtp-deid/pkg/core/schema"
	"github.com/ruslano69/tdtp-deid/pkg/core/table"
	"github.com/ruslano69/tdtp-deid/pkg/criteria"
)

var (
	// ErrNoSolution is returned when no transformation satisfies the criteria.
	ErrNoSolution = errors.New("no transformation satisfies the criteria")

	// ErrLatticeTooLarge is returned when the search space exceeds the configured bound.
	ErrLatticeTooLarge = errors.New("search space exceeds configured limit")

	// ErrUnknownHandle is returned by Apply for a handle the engine did not produce.
	ErrUnknownHandle = errors.New("unknown transformation handle")
)

// Handle identifies a transformation chosen by an engine. It is opaque to callers.
type Handle interface {
	String() string
}

// Result is the outcome of a search.
type Result struct {
	Handle Handle
	// Header is the column order Apply will produce.
	Header []string
}

// Engine computes and applies transformations.
//
// Apply must return exactly one row per input row, in input order, and must not
// modify the input table.
type Engine interface {
	ComputeOptimalTransformation(ctx context.Context, s schema.Schema, c criteria.Set, sample table.Table) (Result, error)
	Apply(ctx context.Context, h Handle, t table.Table) (table.Table, error)
}

// Reentrant is implemented by engines whose Apply may be called concurrently.
type Reentrant interface {
	Reentrant() bool
}

// IsReentrant reports whether e declares itself safe for concurrent Apply calls.
func IsReentrant(e Engine) bool {
	r, ok := e.(Reentrant)
	return ok && r.Reentrant()
}
