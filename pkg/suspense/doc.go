// Package suspense provides settle-once promises and a cache of cancellable
// wrappers around them.
//
// A derived part whose value depends on asynchronous work publishes a
// *Promise as its value. Consumers await it. When the part recomputes, the
// previous promise is cancelled through the Cache: its wrapper resolves with
// no value and no error, so a consumer waiting on stale work never observes a
// spurious failure.
//
//	cache := suspense.NewCache()
//	w := cache.Wrap(suspense.Go(func() (any, error) {
//	    return fetchProfile()
//	}))
//
//	cache.Cancel(w)
//	v, err := w.Await(ctx) // v == nil, err == nil
//
// # Result States
//
// A settled promise carries a Result. Result.State reports Ready or Failed;
// an unsettled promise is Pending. Cancellation is a flag on a Ready result,
// never a Failed one.
package suspense
