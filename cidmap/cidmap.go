// Package cidmap persists the fingerprint -> locator mapping on local disk.
//
// The fingerprint is a one-way digest of the locator, so this mapping is the
// only path from a fingerprint back to its blob. Losing an entry makes the
// blob permanently unreachable; the store therefore never overwrites the
// primary file in place and never discards corrupt bytes without a backup.
//
// Concurrency: the store assumes a single writing process. Within the
// process, concurrent Set calls to different fingerprints are always
// preserved by the reload-merge in Save. Concurrent writers racing on the
// same fingerprint resolve last-writer-wins with disk precedence; across
// processes the disk-wins merge can still drop an in-memory update. That is
// a known, documented limitation, not a bug to fix silently.
package cidmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codethor0/DecentraFile/fingerprint"
)

// Store is a durable fingerprint -> locator map backed by a single JSON
// file of {fingerprintHex: locator} pairs.
type Store struct {
	path string
	log  *slog.Logger

	mu sync.Mutex
}

// New constructs a store backed by the file at path. The file does not need
// to exist yet. A nil logger falls back to slog.Default().
func New(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("cidmap: backing file path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	return &Store{path: path, log: logger}, nil
}

// Load reads the backing file. A missing or empty file yields an empty map.
// A file that fails to parse also yields an empty map: the corrupt bytes are
// first moved to a timestamped .corrupted backup (never deleted), and a
// warning is logged. Only real I/O failures are returned as errors.
func (s *Store) Load() (map[fingerprint.Fingerprint]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() (map[fingerprint.Fingerprint]string, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[fingerprint.Fingerprint]string{}, nil
		}
		return nil, err
	}
	if len(raw) == 0 {
		return map[fingerprint.Fingerprint]string{}, nil
	}

	entries, err := decode(raw)
	if err != nil {
		backup := s.path + ".corrupted." + strconv.FormatInt(time.Now().UnixMilli(), 10)
		if rerr := os.Rename(s.path, backup); rerr != nil {
			// Without the backup a later Save would destroy the only copy of
			// the corrupt bytes; refuse to continue.
			return nil, fmt.Errorf("cidmap: backing up corrupt file: %w", rerr)
		}
		s.log.Warn("cidmap: corrupt mapping file recovered",
			"backup", filepath.Base(backup),
			"cause", err.Error(),
		)
		return map[fingerprint.Fingerprint]string{}, nil
	}
	return entries, nil
}

// Save merges updates with the current on-disk state and atomically replaces
// the backing file. Disk entries take precedence over conflicting in-memory
// entries (the documented disk-wins policy). The primary file is never
// observable in a partially written state: content goes to a temp file in
// the same directory, is fsynced, and is renamed over the primary.
func (s *Store) Save(updates map[fingerprint.Fingerprint]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	disk, err := s.loadLocked()
	if err != nil {
		return err
	}

	merged := make(map[fingerprint.Fingerprint]string, len(disk)+len(updates))
	for fp, locator := range updates {
		merged[fp] = locator
	}
	for fp, locator := range disk {
		merged[fp] = locator
	}

	raw, err := encode(merged)
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp." + uuid.NewString()
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(raw); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Get returns the locator bound to fp, or ok=false when no binding exists.
func (s *Store) Get(fp fingerprint.Fingerprint) (locator string, ok bool, err error) {
	entries, err := s.Load()
	if err != nil {
		return "", false, err
	}
	locator, ok = entries[fp]
	return locator, ok, nil
}

// Set binds fp to locator and persists immediately via Save.
func (s *Store) Set(fp fingerprint.Fingerprint, locator string) error {
	if fp.IsZero() {
		return errors.New("cidmap: zero fingerprint")
	}
	if locator == "" {
		return errors.New("cidmap: empty locator")
	}
	return s.Save(map[fingerprint.Fingerprint]string{fp: locator})
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

func decode(raw []byte) (map[fingerprint.Fingerprint]string, error) {
	var byHex map[string]string
	if err := json.Unmarshal(raw, &byHex); err != nil {
		return nil, err
	}
	out := make(map[fingerprint.Fingerprint]string, len(byHex))
	for hexFP, locator := range byHex {
		fp, err := fingerprint.ParseHex(hexFP)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", hexFP, err)
		}
		out[fp] = locator
	}
	return out, nil
}

func encode(entries map[fingerprint.Fingerprint]string) ([]byte, error) {
	byHex := make(map[string]string, len(entries))
	for fp, locator := range entries {
		byHex[fp.Hex()] = locator
	}
	// MarshalIndent keeps the file human-inspectable; key order is sorted by
	// encoding/json, so identical state serializes identically.
	return json.MarshalIndent(byHex, "", "  ")
}
