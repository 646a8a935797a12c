package store

import (
	"log/slog"
	"time"
)

// Notifier runs a notification pass. It may call notify later, or coalesce
// several calls into one; passes never interleave state changes out of order
// because each pass reads the dirty set when it runs.
type Notifier func(notify func())

// DispatchFunc applies an action.
type DispatchFunc func(action any) any

// Middleware wraps the dispatch function of s. The first middleware passed to
// WithMiddleware is the outermost.
type Middleware func(s *Store, next DispatchFunc) DispatchFunc

// NotifyInfo describes one notification pass.
type NotifyInfo struct {
	StoreID string
	Version uint64

	// Dirty lists the part ids dispatched since the previous pass.
	Dirty []uint64

	// Parts is the number of parts whose listeners were considered.
	Parts int

	// Listeners is the number of listener calls made.
	Listeners int

	Duration time.Duration
}

// Observer is told about every notification pass.
type Observer interface {
	OnNotify(info NotifyInfo)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(info NotifyInfo)

// OnNotify calls f.
func (f ObserverFunc) OnNotify(info NotifyInfo) { f(info) }

// Option configures a Store.
type Option func(*options)

type options struct {
	notifier   Notifier
	middleware []Middleware
	logger     *slog.Logger
	observers  []Observer
	preloaded  any
}

// WithNotifier sets the function that runs notification passes. The default
// runs them synchronously at the end of each state-changing dispatch.
func WithNotifier(n Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithMiddleware appends dispatch middleware.
func WithMiddleware(mw ...Middleware) Option {
	return func(o *options) {
		o.middleware = append(o.middleware, mw...)
	}
}

// WithLogger sets the logger used for debug output. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithObserver adds an observer of notification passes.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observers = append(o.observers, obs)
	}
}

// WithPreloadedState sets the initial root state used by New. Keys missing
// from state are filled from the parts' initial values.
func WithPreloadedState(state map[string]any) Option {
	return func(o *options) {
		o.preloaded = state
	}
}

func applyOptions(opts []Option) options {
	o := options{
		notifier: func(notify func()) { notify() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.notifier == nil {
		o.notifier = func(notify func()) { notify() }
	}
	return o
}
