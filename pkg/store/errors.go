package store

import (
	"errors"

	perrors "github.com/vango-dev/partition/internal/errors"
	"github.com/vango-dev/partition/pkg/part"
)

var (
	// ErrUnknownPart is raised when an action targets a part the store was
	// not partitioned with.
	ErrUnknownPart = errors.New("partition: unknown part")

	// ErrNilListener is raised when subscribing a nil listener.
	ErrNilListener = errors.New("partition: nil listener")

	// ErrNilAction is raised when dispatching nil.
	ErrNilAction = errors.New("partition: nil action")

	// ErrUndefinedSlice is raised when an external reducer returns nil.
	ErrUndefinedSlice = errors.New("partition: reducer returned nil")

	// ErrInvalidPartition is returned for part lists that cannot form a
	// root state.
	ErrInvalidPartition = errors.New("partition: invalid partition")
)

func unknownPartError(id uint64) *perrors.PartitionError {
	return perrors.New("P001").
		WithPart(id, "").
		Wrap(ErrUnknownPart).
		WithSuggestion("Pass the part's top-level owner to Partition")
}

func invalidPartition(p *part.Part, detail string) *perrors.PartitionError {
	err := perrors.New("P025").Wrap(ErrInvalidPartition).WithDetail(detail)
	if p != nil {
		err.WithPart(p.ID(), p.Name())
	}
	return err
}

func nilListenerError() *perrors.PartitionError {
	return perrors.New("P002").Wrap(ErrNilListener)
}

func nilActionError() *perrors.PartitionError {
	return perrors.New("P003").Wrap(ErrNilAction)
}

func undefinedSliceError(key string) *perrors.PartitionError {
	return perrors.New("P024").
		Wrap(ErrUndefinedSlice).
		WithDetail("The reducer for key " + key + " returned nil. Return the previous slice when an action is not handled.")
}
