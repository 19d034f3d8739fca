// Command podcached starts a PodCache server: a single TCP listener
// speaking a RESP subset, backed by a tiered memory/disk LRU cache. It
// takes no arguments; everything is configured via environment
// variables (see package config).
package main

import (
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/pkg/errors"

	"github.com/carlodg/podcache"
	"github.com/carlodg/podcache/config"
	"github.com/carlodg/podcache/log"
	"github.com/carlodg/podcache/tiered"
)

func main() {
	os.Exit(run())
}

func run() int {
	conf, warnings := config.FromEnviron()

	logger := log.New(conf.LogLevel, os.Stdout)
	for _, w := range warnings {
		logger.Warn(w)
	}

	cache, err := tiered.New(tiered.Config{
		Partitions:    conf.Partitions,
		CapacityBytes: conf.CapacityBytes,
		FSRoot:        conf.FSRoot,
		Log:           logger,
	})
	if err != nil {
		logger.Errorf("fatal startup error: %v", errors.Wrap(err, "constructing cache"))
		return 1
	}
	defer cache.Close()

	reporter := podcache.NewStatusReporter(cache, logger)
	reporter.Start()
	defer reporter.Stop()

	server := &podcache.Server{
		Addr:  ":" + strconv.Itoa(conf.ServerPort),
		Cache: cache,
		Log:   logger,
	}

	// SIGPIPE needs no explicit handling: Go delivers a write to a
	// closed peer as a plain error return from Write, never as a
	// terminating signal, so there is nothing to install a handler for.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	logger.Infof("podcached listening on %s, %d partitions, %d bytes capacity",
		server.Addr, conf.Partitions, conf.CapacityBytes)

	select {
	case sig := <-sigCh:
		logger.Infof("received %v, shutting down", sig)
		if err := server.Close(); err != nil {
			logger.Warnf("error closing listener: %v", err)
		}
		<-errCh
	case err := <-errCh:
		logger.Errorf("fatal server error: %v", errors.Wrap(err, "accept loop"))
		return 1
	}

	return 0
}
