// Package tag exposes build-time feature flags checked by the rest of the
// tree: a single bool, flipped by a build tag, that gates the pointer
// scrubbing that is worth paying for in development but not in
// production.
package tag

// Debug is true when the binary was built with the "debug" build tag
// (go build -tags debug ./...). cache reads it to scrub the dangling
// pointers of a removed node. The same tag also compiles in cache's
// invariant checks (cache/invariants_debug.go), which do not read this
// bool.
var Debug = debug
