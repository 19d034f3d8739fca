// Package config reads PodCache's runtime configuration from the
// environment, parsing and validating each variable independently and
// falling back to its default when it's unset, or to its default with a
// warning when it's unparseable or out of range.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/carlodg/podcache/log"
)

const (
	EnvCapacityBytes = "PODCACHE_SIZE"
	EnvServerPort    = "PODCACHE_SERVER_PORT"
	EnvPartitions    = "PODCACHE_PARTITIONS"
	EnvFSRoot        = "PODCACHE_FSROOT"
	EnvLogLevel      = "PODCACHE_LOG_LEVEL"
)

const (
	DefaultSizeMiB    = 100
	DefaultServerPort = 6379
	DefaultPartitions = 1
	DefaultFSRoot     = "./"
	DefaultLogLevel   = log.InfoLevel

	// DefaultCapacityBytes is DefaultSizeMiB expressed in bytes, for
	// callers that only want the final Config.CapacityBytes value.
	DefaultCapacityBytes int64 = DefaultSizeMiB << 20

	minSizeMiB, maxSizeMiB       = 1, 4096
	minServerPort, maxServerPort = 1024, 65535
	minPartitions, maxPartitions = 1, 64
)

// Config holds every value the rest of PodCache needs to start.
type Config struct {
	CapacityBytes int64
	ServerPort    int
	Partitions    int
	FSRoot        string
	LogLevel      log.Level
}

// FromEnviron reads a Config from the process environment, applying
// DefaultXxx for anything unset and collecting a warning for anything
// set but invalid or out of range.
//
// It does not itself log, since no Logger exists yet at the point config
// is read; callers should pass the returned warnings to a Logger once
// one is constructed from the result's LogLevel. Every field has a valid
// default, so there is no fatal configuration error to report here —
// fatal startup failures (an unbindable port, an uncreatable disk root)
// surface later, from the components that actually attempt them.
func FromEnviron() (Config, []string) {
	var warnings []string
	warn := func(format string, args ...interface{}) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	conf := Config{
		CapacityBytes: DefaultCapacityBytes,
		ServerPort:    DefaultServerPort,
		Partitions:    DefaultPartitions,
		FSRoot:        DefaultFSRoot,
		LogLevel:      DefaultLogLevel,
	}

	if v, ok := os.LookupEnv(EnvCapacityBytes); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < minSizeMiB || n > maxSizeMiB {
			warn("%s=%q is invalid (must be %d-%d), using default %d", EnvCapacityBytes, v, minSizeMiB, maxSizeMiB, DefaultSizeMiB)
		} else {
			conf.CapacityBytes = int64(n) << 20
		}
	}

	if v, ok := os.LookupEnv(EnvServerPort); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < minServerPort || n > maxServerPort {
			warn("%s=%q is invalid (must be %d-%d), using default %d", EnvServerPort, v, minServerPort, maxServerPort, DefaultServerPort)
		} else {
			conf.ServerPort = n
		}
	}

	if v, ok := os.LookupEnv(EnvPartitions); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < minPartitions || n > maxPartitions {
			warn("%s=%q is invalid (must be %d-%d), using default %d", EnvPartitions, v, minPartitions, maxPartitions, DefaultPartitions)
		} else {
			conf.Partitions = n
		}
	}

	if v, ok := os.LookupEnv(EnvFSRoot); ok && v != "" {
		conf.FSRoot = v
	}

	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		l, err := log.LevelFromString(v)
		if err != nil {
			warn("%s=%q is invalid, using default %s", EnvLogLevel, v, DefaultLogLevel)
		} else {
			conf.LogLevel = l
		}
	}

	return conf, warnings
}
