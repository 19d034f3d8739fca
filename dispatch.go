package podcache

import (
	"bufio"
	"math"
	"strconv"

	"github.com/carlodg/podcache/cache"
	"github.com/carlodg/podcache/log"
	"github.com/carlodg/podcache/tiered"
)

// dispatch decodes and runs one already-framed command, writing its reply
// to w. It reports whether the connection should close after this reply
// (true only for QUIT).
func dispatch(w *bufio.Writer, c *tiered.Cache, l log.Logger, args [][]byte) (quit bool) {
	name := upperASCII(string(args[0]))

	switch name {
	case "PING":
		if !checkArity(w, name, args, 1) {
			return false
		}
		writeSimple(w, "PONG")

	case "SET":
		if !checkArity(w, name, args, 3) {
			return false
		}
		handleSet(w, c, l, string(args[1]), args[2])

	case "GET":
		if !checkArity(w, name, args, 2) {
			return false
		}
		handleGet(w, c, string(args[1]))

	case "DEL", "UNLINK":
		if !checkArity(w, name, args, 2) {
			return false
		}
		handleDel(w, c, name, string(args[1]))

	case "INCR":
		if !checkArity(w, name, args, 2) {
			return false
		}
		handleIncr(w, c, l, string(args[1]))

	case "CLIENT":
		writeSimple(w, "OK")

	case "QUIT":
		if !checkArity(w, name, args, 1) {
			return false
		}
		writeSimple(w, "OK BYE")
		return true

	default:
		writeError(w, "ERR unknown command")
	}

	return false
}

func checkArity(w *bufio.Writer, name string, args [][]byte, want int) bool {
	if len(args) == want {
		return true
	}
	writeError(w, "ERR wrong number of arguments for '"+name+"' command")
	return false
}

func handleSet(w *bufio.Writer, c *tiered.Cache, l log.Logger, key string, value []byte) {
	if err := c.Put(key, value); err != nil {
		writeError(w, errorToWireMessage(err))
		l.WithFields(log.Fields{"key": key}).Warnf("SET failed: %v", err)
		return
	}
	writeSimple(w, "OK")
}

func handleGet(w *bufio.Writer, c *tiered.Cache, key string) {
	value, ok, err := c.Get(key)
	if err != nil {
		writeError(w, errorToWireMessage(err))
		return
	}
	writeBulk(w, value, ok)
}

func handleDel(w *bufio.Writer, c *tiered.Cache, name, key string) {
	removed, err := c.Evict(key)
	if err != nil {
		writeError(w, errorToWireMessage(err))
		return
	}
	if removed {
		writeInteger(w, 1)
	} else {
		writeInteger(w, 0)
	}
}

func handleIncr(w *bufio.Writer, c *tiered.Cache, l log.Logger, key string) {
	current, ok, err := c.Get(key)
	if err != nil {
		writeError(w, errorToWireMessage(err))
		return
	}

	var n int64
	if ok {
		n, err = strconv.ParseInt(string(current), 10, 64)
		if err != nil || n == math.MaxInt64 {
			writeError(w, "ERR value is not an integer or out of range")
			return
		}
	}
	n++

	if err := c.Put(key, []byte(strconv.FormatInt(n, 10))); err != nil {
		writeError(w, errorToWireMessage(err))
		l.WithFields(log.Fields{"key": key}).Warnf("INCR failed: %v", err)
		return
	}
	writeInteger(w, n)
}

// errorToWireMessage maps a typed TieredCache error to its RESP error
// string. This is the only layer that does this translation; everything
// below returns typed Go errors. tiered passes errors from the layers
// below it through stackerr.Wrap, so a sentinel may arrive wrapped; the
// loop walks the wrap chain one layer at a time via unwrapOnce until it
// finds a known sentinel or runs out of layers.
func errorToWireMessage(err error) string {
	for e := err; e != nil; e = unwrapOnce(e) {
		switch e {
		case tiered.ErrTooLarge:
			return "ERR value too large"
		case cache.ErrAlloc:
			return "ERR out of memory"
		case tiered.ErrSpillFailed:
			return "ERR storage error"
		}
	}
	return "ERR storage error"
}

// unwrapOnce returns the error one stackerr.Err wrapping layer beneath
// err, or nil if err doesn't wrap anything this way.
func unwrapOnce(err error) error {
	type hasUnderlying interface {
		Underlying() error
	}
	if eh, ok := err.(hasUnderlying); ok {
		return eh.Underlying()
	}
	return nil
}

func upperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}
