// Package devtools serves an HTTP inspector for a running store.
//
// Routes:
//
//	GET  /state             full state tree and version
//	GET  /parts             every part of the graph with its dependents
//	GET  /parts/{id}        one part and its current value
//	PUT  /parts/{id}        write through a part: {"value": v} or {"args": [...]}
//	GET  /parts/{id}/watch  WebSocket stream of {id, version, value} frames
//	GET  /metrics           the handler set with WithMetricsHandler
//
// Async values are reported by state: {"state":"pending"} while pending, and
// with their value, error or cancellation once settled.
//
// The inspector can write to the store and allows any origin by default.
// Bind it to a local address.
package devtools
