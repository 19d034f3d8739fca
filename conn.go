package podcache

import (
	"bufio"
	"io"
	"net"

	"github.com/carlodg/podcache/log"
	"github.com/carlodg/podcache/tiered"
)

const (
	minBufSize = 16 * 1024
	readChunk  = 16 * 1024
)

// conn owns one client socket: its unparsed byte accumulator, its reply
// writer, and the tiered.Cache it dispatches commands against. Reads and
// writes on a single conn happen on the same goroutine and are never
// concurrent with each other, so no locking is needed here.
type conn struct {
	nc    net.Conn
	cache *tiered.Cache
	log   log.Logger

	acc   []byte // unconsumed bytes read so far
	chunk []byte
	w     *bufio.Writer
}

func newConn(nc net.Conn, cache *tiered.Cache, l log.Logger) *conn {
	return &conn{
		nc:    nc,
		cache: cache,
		log:   l,
		acc:   make([]byte, 0, minBufSize),
		chunk: make([]byte, readChunk),
		w:     bufio.NewWriterSize(nc, minBufSize),
	}
}

// serve runs this connection's read-parse-dispatch-reply loop until the
// peer disconnects, a protocol error occurs, or QUIT is received.
func (c *conn) serve() {
	defer c.nc.Close()

	for {
		n, err := c.nc.Read(c.chunk)
		if n == 0 {
			if err != nil && err != io.EOF {
				c.log.Debugf("read error: %v", err)
			}
			return
		}
		c.acc = append(c.acc, c.chunk[:n]...)

		if c.drain() {
			return
		}
		if err != nil {
			return
		}
	}
}

// drain dispatches every complete command currently sitting in the
// accumulator, flushing replies as it goes. It reports whether the
// connection should close.
func (c *conn) drain() (closeConn bool) {
	for {
		args, consumed, err := parseCommand(c.acc)
		if err == errNeedMore {
			break
		}
		if err != nil {
			writeError(c.w, "ERR protocol error")
			c.w.Flush()
			return true
		}

		c.acc = c.acc[consumed:]
		if dispatch(c.w, c.cache, c.log, args) {
			c.w.Flush()
			return true
		}
	}

	if err := c.w.Flush(); err != nil {
		return true
	}

	// Compact the accumulator periodically so a long-lived pipelining
	// connection doesn't grow its backing array without bound just
	// because append keeps sliding the unconsumed window forward.
	if len(c.acc) == 0 && cap(c.acc) > minBufSize {
		c.acc = make([]byte, 0, minBufSize)
	}
	return false
}
