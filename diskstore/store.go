package diskstore

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/facebookgo/stackerr"

	"github.com/carlodg/podcache/hash"
)

const (
	valueFile = "value.dat"
	timeFile  = "time.dat"
	dirPerm   = 0o755
	filePerm  = 0o644
)

// Store is the disk tier: it knows nothing about partitions, eviction
// policy or capacity. Callers (package tiered) are the ones deciding when
// a key belongs here.
//
// One mutex serializes every operation. The disk tier is expected to see
// far less traffic than memory (only spills and promotions touch it), so
// giving up per-key concurrency here is a deliberate simplicity trade,
// not an oversight.
type Store struct {
	mu      sync.Mutex
	baseDir string

	// registry records every leaf directory written by a completed Put
	// and not yet removed. Get and Evict treat a leaf missing from it as
	// absent, and Count (for the status reporter) reports its size without
	// walking the filesystem.
	registry map[string]bool
}

// New creates a fresh base directory named fsRoot with an 8-hex-digit
// random suffix appended directly (no path separator is inserted, so a
// trailing slash on fsRoot controls whether the suffix lands inside it
// or alongside it), and returns a Store rooted there.
func New(fsRoot string) (*Store, error) {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return nil, stackerr.Wrap(err)
	}
	baseDir := fsRoot + hex.EncodeToString(suffix)
	if err := os.MkdirAll(baseDir, dirPerm); err != nil {
		return nil, stackerr.Wrap(err)
	}

	return &Store{baseDir: baseDir, registry: make(map[string]bool)}, nil
}

// leafDir returns the four-level content-addressable directory for key,
// one path component per 16 hex characters of SHA-256(key).
func (s *Store) leafDir(key string) string {
	digest := hash.SHA256Hex([]byte(key))
	return filepath.Join(s.baseDir, digest[0:16], digest[16:32], digest[32:48], digest[48:64])
}

// Put writes value to disk under key, replacing anything already there
// for the same key, and returns the leaf path it wrote to.
func (s *Store) Put(key string, value []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	leaf := s.leafDir(key)
	// Clear any previous contents for this leaf unconditionally: the
	// registry only records Puts that ran to completion, so a leaf left
	// half-populated by an earlier failed Put wouldn't be caught by a
	// registry[leaf] check, and os.Mkdir below would then fail with
	// EEXIST on every future Put for the same key.
	if err := s.removeLocked(leaf); err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(leaf), dirPerm); err != nil {
		return "", stackerr.Wrap(err)
	}
	if err := os.Mkdir(leaf, dirPerm); err != nil {
		return "", stackerr.Wrap(err)
	}

	if err := os.WriteFile(filepath.Join(leaf, valueFile), value, filePerm); err != nil {
		s.removeLocked(leaf)
		return "", stackerr.Wrap(err)
	}
	stamp := strconv.FormatInt(time.Now().Unix(), 10)
	if err := os.WriteFile(filepath.Join(leaf, timeFile), []byte(stamp), filePerm); err != nil {
		s.removeLocked(leaf)
		return "", stackerr.Wrap(err)
	}

	s.registry[leaf] = true
	return leaf, nil
}

// Get reads back the value stored for key, if any.
func (s *Store) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	leaf := s.leafDir(key)
	if !s.registry[leaf] {
		return nil, false, nil
	}

	data, err := os.ReadFile(filepath.Join(leaf, valueFile))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, stackerr.Wrap(err)
	}
	return data, true, nil
}

// Evict removes key from disk if present, reporting whether it was.
func (s *Store) Evict(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	leaf := s.leafDir(key)
	if !s.registry[leaf] {
		return false, nil
	}
	if err := s.removeLocked(leaf); err != nil {
		return false, err
	}
	return true, nil
}

// removeLocked deletes the leaf's two files and then rmdirs the four path
// segments from leaf to root, stopping at the first directory that isn't
// empty (a sibling key shares that prefix).
func (s *Store) removeLocked(leaf string) error {
	if err := os.Remove(filepath.Join(leaf, valueFile)); err != nil && !os.IsNotExist(err) {
		return stackerr.Wrap(err)
	}
	if err := os.Remove(filepath.Join(leaf, timeFile)); err != nil && !os.IsNotExist(err) {
		return stackerr.Wrap(err)
	}

	dir := leaf
	for i := 0; i < 4; i++ {
		if err := os.Remove(dir); err != nil {
			// ENOTEMPTY (a sibling key shares this prefix) is expected
			// and not an error; anything else, including ENOENT, ends
			// the walk too since there's nothing further to clean.
			break
		}
		dir = filepath.Dir(dir)
	}

	delete(s.registry, leaf)
	return nil
}

// Count returns the number of keys currently resident on disk, for the
// status reporter.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.registry)
}

// Destroy removes the entire base directory tree. Callers use this on
// clean shutdown; PodCache carries no durability guarantee across
// restarts, so nothing is lost by doing this unconditionally.
func (s *Store) Destroy() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.RemoveAll(s.baseDir); err != nil {
		return stackerr.Wrap(err)
	}
	s.registry = make(map[string]bool)
	return nil
}

// BaseDir returns the root directory this Store was created under, for
// logging at startup.
func (s *Store) BaseDir() string {
	return s.baseDir
}
