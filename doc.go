// Package podcache is the RESP-speaking front end: it accepts TCP
// connections, frames and decodes RESP command arrays off the wire,
// dispatches them against a tiered.Cache, and writes back RESP replies.
// Everything below this package (hash, cache, diskstore, tiered) is
// transport-agnostic; this is the only layer that knows about sockets or
// wire bytes.
package podcache
