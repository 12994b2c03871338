package model

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the topology packages matches exactly
// one of ErrNotFound, ErrUnsupported or ErrIntegrity (or ErrInvalidAsset for
// malformed input) under errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnsupported  = errors.New("unsupported configuration")
	ErrIntegrity    = errors.New("integrity violation")
	ErrInvalidAsset = errors.New("invalid asset")

	ErrNotImplemented   = fmt.Errorf("%w: not implemented", ErrUnsupported)
	ErrNoCompatiblePort = fmt.Errorf("%w: no compatible port found", ErrUnsupported)
	ErrPortCollision    = fmt.Errorf("%w: duplicate port id", ErrIntegrity)
	ErrDuplicateID      = fmt.Errorf("%w: duplicate asset id", ErrIntegrity)
	ErrMissingEndpoint  = fmt.Errorf("%w: port has no indexed coordinate", ErrIntegrity)
)

// TopologyError provides structured error information for model operations.
type TopologyError struct {
	Op      string // Operation that failed (e.g., "connect", "add")
	Entity  string // Entity kind (e.g., "asset", "area", "port")
	ID      string // Entity id (if applicable)
	Context string // Additional context
	Cause   error  // Underlying error
}

// Error implements the error interface.
func (e *TopologyError) Error() string {
	switch {
	case e.ID != "" && e.Context != "":
		return fmt.Sprintf("%s %s %s (%s): %v", e.Op, e.Entity, e.ID, e.Context, e.Cause)
	case e.ID != "":
		return fmt.Sprintf("%s %s %s: %v", e.Op, e.Entity, e.ID, e.Cause)
	case e.Context != "":
		return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Entity, e.Context, e.Cause)
	default:
		return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
	}
}

// Unwrap returns the underlying cause for error chain support.
func (e *TopologyError) Unwrap() error {
	return e.Cause
}

// ErrorBuilder provides a fluent interface for building TopologyErrors.
type ErrorBuilder struct {
	err TopologyError
}

// NewError creates a new error builder with the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: TopologyError{Op: op}}
}

// Asset sets the entity to "asset" with the given id.
func (b *ErrorBuilder) Asset(id string) *ErrorBuilder {
	b.err.Entity = "asset"
	b.err.ID = id
	return b
}

// Area sets the entity to "area" with the given id.
func (b *ErrorBuilder) Area(id string) *ErrorBuilder {
	b.err.Entity = "area"
	b.err.ID = id
	return b
}

// Container sets the entity to "container" with the given id.
func (b *ErrorBuilder) Container(id string) *ErrorBuilder {
	b.err.Entity = "container"
	b.err.ID = id
	return b
}

// Port sets the entity to "port" with the given id.
func (b *ErrorBuilder) Port(id string) *ErrorBuilder {
	b.err.Entity = "port"
	b.err.ID = id
	return b
}

// Entity sets a free-form entity kind.
func (b *ErrorBuilder) Entity(kind string) *ErrorBuilder {
	b.err.Entity = kind
	return b
}

// Context sets additional context information.
func (b *ErrorBuilder) Context(ctx string) *ErrorBuilder {
	b.err.Context = ctx
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Build returns the constructed TopologyError.
func (b *ErrorBuilder) Build() *TopologyError {
	e := b.err
	return &e
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	return b.Build()
}

// AssetNotFoundError creates an asset not found error.
func AssetNotFoundError(op, id string) error {
	return NewError(op).Asset(id).Cause(ErrNotFound).Err()
}

// AreaNotFoundError creates an area not found error.
func AreaNotFoundError(op, id string) error {
	return NewError(op).Area(id).Cause(ErrNotFound).Err()
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnsupported returns true for unsupported-configuration errors, including not-implemented.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupported)
}

// IsIntegrity returns true for data-integrity violations.
func IsIntegrity(err error) bool {
	return errors.Is(err, ErrIntegrity)
}

// IsInvalid returns true for malformed input.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidAsset)
}
