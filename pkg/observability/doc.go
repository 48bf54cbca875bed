/*
Package observability provides Prometheus instrumentation for the concierge engine.

It counts turns by dispatcher branch and decision mode, times them, and tracks
degradations of the external capabilities (completion and embedding), guard
rejections and KV cache lookups. Every method is nil-safe so components can
accept an optional *Metrics without branching.
*/
package observability
