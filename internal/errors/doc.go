// Package errors provides structured, coded errors for the partition packages.
//
// Every programmer error raised while wiring parts or dispatching actions
// carries a code (e.g. "P001") that maps to a short message, a longer
// explanation and a documentation link. Public packages export sentinel
// errors and wrap them in a PartitionError so callers can still use
// errors.Is.
//
// # Error Categories
//
//   - config: malformed part construction or partitioner arguments
//   - runtime: misuse detected while the store is running
//   - devtools: inspector request errors
//   - cli: command line errors
//
// # Usage
//
//	err := errors.New("P001").
//	    WithPart(42, "user.firstName").
//	    WithSuggestion("Pass the part's top-level ancestor to store.Partition").
//	    Wrap(ErrUnknownPart)
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR P001: Dispatch to unknown part
//	//
//	//   part 42 (user.firstName)
//	//
//	//   An action referenced a part the store was not created with.
//	//
//	//   Hint: Pass the part's top-level ancestor to store.Partition
package errors
