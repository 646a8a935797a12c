package part

import (
	"errors"

	perrors "github.com/vango-dev/partition/internal/errors"
)

var (
	// ErrInvalidConfig is returned for constructor arguments that describe no part kind.
	ErrInvalidConfig = errors.New("partition: invalid part configuration")

	// ErrAlreadyComposed is returned when a part that has a parent is composed again.
	ErrAlreadyComposed = errors.New("partition: part already composed")

	// ErrDuplicateName is returned when sibling parts share a name.
	ErrDuplicateName = errors.New("partition: duplicate part name")

	// ErrForeignGraph is returned when parts from different graphs are combined.
	ErrForeignGraph = errors.New("partition: part belongs to another graph")

	// ErrReadOnly is raised when writing through a part that has no setter.
	ErrReadOnly = errors.New("partition: part is read-only")
)

// configError builds a coded error around sentinel. It takes no locks so it
// can be called while the graph is being wired.
func configError(code string, sentinel error, p *Part, detail string) *perrors.PartitionError {
	err := perrors.New(code).Wrap(sentinel)
	if p != nil {
		err.WithPart(p.id, p.name)
	}
	if detail != "" {
		err.WithDetail(detail)
	}
	return err
}

func readOnlyError(p *Part) *perrors.PartitionError {
	return configError("P004", ErrReadOnly, p, "").
		WithSuggestion("Declare a proxy part to write through a derived view")
}
