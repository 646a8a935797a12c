package middleware

import (
	"log/slog"
	"time"

	"github.com/vango-dev/partition/pkg/store"
)

// Logger returns middleware that logs every part action at debug level and
// every panicking dispatch at error level. Thunks are not logged; the actions
// they dispatch are.
func Logger(logger *slog.Logger) store.Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return func(s *store.Store, next store.DispatchFunc) store.DispatchFunc {
		return func(action any) any {
			kind, partID, actionType := describe(action)
			if kind == kindThunk {
				return next(action)
			}

			start := time.Now()
			before := s.Version()
			defer func() {
				if r := recover(); r != nil {
					logger.Error("dispatch panicked",
						"store", s.ID(),
						"kind", kind,
						"part", partID,
						"type", actionType,
						"panic", r,
					)
					panic(r)
				}
			}()

			result := next(action)

			after := s.Version()
			logger.Debug("dispatch",
				"store", s.ID(),
				"kind", kind,
				"part", partID,
				"type", actionType,
				"changed", after != before,
				"version", after,
				"duration", time.Since(start),
			)
			return result
		}
	}
}
