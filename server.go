package podcache

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/facebookgo/stackerr"

	"github.com/carlodg/podcache/log"
	"github.com/carlodg/podcache/tiered"
)

// Server accepts TCP connections and serves RESP commands against a
// tiered.Cache, backing off on transient accept errors rather than
// busy-looping on them.
type Server struct {
	Addr  string
	Cache *tiered.Cache
	Log   log.Logger

	mu       sync.Mutex
	listener net.Listener
	closed   atomic.Bool
	wg       sync.WaitGroup
}

// ListenAndServe opens Addr and serves until Close is called.
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return stackerr.Wrap(err)
	}
	return s.Serve(l)
}

// Serve accepts connections from l until Close is called, dispatching
// each to its own goroutine. It never returns a non-nil error for a
// per-connection failure; only a fatal accept-loop condition (the
// listener itself failing permanently, or Close) ends it.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()

	var tempDelay time.Duration
	for {
		nc, err := l.Accept()
		if err != nil {
			if s.closed.Load() {
				s.wg.Wait()
				return nil
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else {
					tempDelay *= 2
				}
				if max := time.Second; tempDelay > max {
					tempDelay = max
				}
				s.Log.Warnf("accept error: %v; retrying in %v", err, tempDelay)
				time.Sleep(tempDelay)
				continue
			}
			return stackerr.Wrap(err)
		}
		tempDelay = 0

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			c := newConn(nc, s.Cache, s.connLogger(nc))
			c.serve()
		}()
	}
}

// Close stops the accept loop by closing the listener and returns without
// waiting. It does not close in-flight connections: each keeps serving its
// client until that client disconnects or sends QUIT, and Serve returns
// only after all of them have ended.
func (s *Server) Close() error {
	s.closed.Store(true)
	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()
	if l == nil {
		return nil
	}
	return l.Close()
}

var connCounter atomic.Uint64

func (s *Server) connLogger(nc net.Conn) log.Logger {
	n := connCounter.Add(1)
	return s.Log.WithFields(log.Fields{"conn": n, "remote": nc.RemoteAddr().String()})
}
