// Package store keeps local snapshots of fetched transcripts and grades so
// they can be viewed again without logging in.
//
// Snapshots live in the OS keyring (encrypted by the OS) and fall back to
// JSON files under ~/.guc/snapshots when no keyring is reachable (CI,
// Codespaces) or the keyring refuses the payload size. Credentials are never
// stored.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/law-makers/guc/pkg/models"
	"github.com/rs/zerolog/log"
	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name for keyring storage
	KeyringService = "guc-cli"
	// FallbackDir is the snapshot directory, relative to the home directory
	FallbackDir = ".guc/snapshots"
	// DefaultTTL is how long a snapshot stays usable
	DefaultTTL = 24 * time.Hour

	manifestKey = "_manifest"
	probeKey    = "_probe"
)

// Kind is the record type a snapshot holds.
type Kind string

const (
	KindTranscript Kind = "transcript"
	KindGrades     Kind = "grades"
)

var (
	ErrNotFound   = errors.New("snapshot not found")
	ErrExpired    = errors.New("snapshot expired")
	ErrInvalidKey = errors.New("invalid snapshot name")
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._@-]+$`)

// Snapshot is a stored fetch result.
type Snapshot struct {
	Username   string                  `json:"username"`
	Kind       Kind                    `json:"kind"`
	FetchedAt  time.Time               `json:"fetched_at"`
	ExpiresAt  time.Time               `json:"expires_at,omitempty"`
	Transcript []models.TranscriptYear `json:"transcript,omitempty"`
	Grades     *models.Grades          `json:"grades,omitempty"`
}

// Key identifies the snapshot within the store.
func (s *Snapshot) Key() string {
	return key(s.Username, s.Kind)
}

// Expired reports whether the snapshot is past its expiry at now.
func (s *Snapshot) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Info describes a stored snapshot without its records.
type Info struct {
	Username  string
	Kind      Kind
	FetchedAt time.Time
	ExpiresAt time.Time
	Expired   bool
	Location  string // "keyring" or the file path
}

// Options configures Open.
type Options struct {
	Dir      string        // fallback directory; ~/.guc/snapshots when empty
	TTL      time.Duration // DefaultTTL when zero; negative disables expiry
	FileOnly bool          // skip the keyring entirely
}

// Store reads and writes snapshots.
type Store struct {
	dir      string
	ttl      time.Duration
	fileOnly bool
	now      func() time.Time
}

// Open prepares a store. The keyring is probed once; when it is not usable
// every snapshot goes to files.
func Open(opts Options) (*Store, error) {
	dir := opts.Dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to find home directory: %w", err)
		}
		dir = filepath.Join(home, FallbackDir)
	}

	ttl := opts.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}

	s := &Store{
		dir:      dir,
		ttl:      ttl,
		fileOnly: opts.FileOnly || useFileBasedStorage(),
		now:      time.Now,
	}
	log.Debug().Bool("file_only", s.fileOnly).Str("dir", dir).Msg("Snapshot store opened")
	return s, nil
}

// useFileBasedStorage reports whether the keyring is unavailable.
func useFileBasedStorage() bool {
	if os.Getenv("CODESPACES") != "" || os.Getenv("CI") != "" {
		return true
	}
	if err := keyring.Set(KeyringService, probeKey, "probe"); err != nil {
		log.Debug().Err(err).Msg("Keyring unavailable, using files")
		return true
	}
	keyring.Delete(KeyringService, probeKey)
	return false
}

func key(username string, kind Kind) string {
	return username + "." + string(kind)
}

func validate(username string, kind Kind) error {
	if !usernamePattern.MatchString(username) || strings.Contains(username, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, username)
	}
	if kind != KindTranscript && kind != KindGrades {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidKey, kind)
	}
	return nil
}

func (s *Store) path(k string) string {
	return filepath.Join(s.dir, k+".json")
}

// Save stores snap, stamping FetchedAt (when unset) and ExpiresAt.
func (s *Store) Save(snap *Snapshot) error {
	if err := validate(snap.Username, snap.Kind); err != nil {
		return err
	}
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = s.now()
	}
	if s.ttl > 0 {
		snap.ExpiresAt = snap.FetchedAt.Add(s.ttl)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	k := snap.Key()
	if !s.fileOnly {
		err := keyring.Set(KeyringService, k, string(data))
		if err == nil {
			return s.updateManifest(k, true)
		}
		if !errors.Is(err, keyring.ErrSetDataTooBig) {
			return fmt.Errorf("failed to save to keyring: %w", err)
		}
		log.Debug().Str("snapshot", k).Int("bytes", len(data)).Msg("Snapshot too big for keyring, using file")
	}

	return s.writeFile(k, data)
}

func (s *Store) writeFile(k string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	if err := os.WriteFile(s.path(k), data, 0600); err != nil {
		return fmt.Errorf("failed to save snapshot file: %w", err)
	}
	return nil
}

// Load returns a stored snapshot. An expired snapshot returns ErrExpired.
func (s *Store) Load(username string, kind Kind) (*Snapshot, error) {
	if err := validate(username, kind); err != nil {
		return nil, err
	}
	k := key(username, kind)

	data, err := s.read(k)
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to deserialize snapshot: %w", err)
	}
	if snap.Expired(s.now()) {
		return nil, fmt.Errorf("%w: %s (fetched %s)", ErrExpired, k, snap.FetchedAt.Format(time.RFC3339))
	}
	return &snap, nil
}

func (s *Store) read(k string) ([]byte, error) {
	if !s.fileOnly {
		data, err := keyring.Get(KeyringService, k)
		if err == nil {
			return []byte(data), nil
		}
		if !errors.Is(err, keyring.ErrNotFound) {
			return nil, fmt.Errorf("failed to load from keyring: %w", err)
		}
	}

	data, err := os.ReadFile(s.path(k))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, k)
		}
		return nil, fmt.Errorf("failed to load snapshot file: %w", err)
	}
	return data, nil
}

// Delete removes a snapshot from wherever it is stored.
func (s *Store) Delete(username string, kind Kind) error {
	if err := validate(username, kind); err != nil {
		return err
	}
	k := key(username, kind)
	found := false

	if !s.fileOnly {
		err := keyring.Delete(KeyringService, k)
		switch {
		case err == nil:
			found = true
		case !errors.Is(err, keyring.ErrNotFound):
			return fmt.Errorf("failed to delete from keyring: %w", err)
		}
		if err := s.updateManifest(k, false); err != nil {
			return err
		}
	}

	err := os.Remove(s.path(k))
	switch {
	case err == nil:
		found = true
	case !os.IsNotExist(err):
		return fmt.Errorf("failed to delete snapshot file: %w", err)
	}

	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, k)
	}
	return nil
}

// List describes every stored snapshot, expired ones included, sorted by key.
func (s *Store) List() ([]Info, error) {
	locations := map[string]string{}

	if !s.fileOnly {
		keys, err := s.manifest()
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			locations[k] = "keyring"
		}
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		k := strings.TrimSuffix(entry.Name(), ".json")
		if _, ok := locations[k]; !ok {
			locations[k] = s.path(k)
		}
	}

	keys := make([]string, 0, len(locations))
	for k := range locations {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	now := s.now()
	infos := make([]Info, 0, len(keys))
	for _, k := range keys {
		data, err := s.read(k)
		if err != nil {
			log.Debug().Err(err).Str("snapshot", k).Msg("Skipping unreadable snapshot")
			continue
		}
		var snap Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			log.Debug().Err(err).Str("snapshot", k).Msg("Skipping corrupt snapshot")
			continue
		}
		infos = append(infos, Info{
			Username:  snap.Username,
			Kind:      snap.Kind,
			FetchedAt: snap.FetchedAt,
			ExpiresAt: snap.ExpiresAt,
			Expired:   snap.Expired(now),
			Location:  locations[k],
		})
	}
	return infos, nil
}

func (s *Store) manifest() ([]string, error) {
	data, err := keyring.Get(KeyringService, manifestKey)
	if err != nil {
		// No manifest exists yet
		return []string{}, nil
	}

	var keys []string
	if err := json.Unmarshal([]byte(data), &keys); err != nil {
		return nil, fmt.Errorf("failed to deserialize manifest: %w", err)
	}
	return keys, nil
}

// updateManifest adds or removes a keyring key from the manifest
func (s *Store) updateManifest(k string, add bool) error {
	keys, err := s.manifest()
	if err != nil {
		return err
	}

	kept := keys[:0]
	for _, existing := range keys {
		if existing != k {
			kept = append(kept, existing)
		}
	}
	if add {
		kept = append(kept, k)
	}

	data, err := json.Marshal(kept)
	if err != nil {
		return err
	}
	if err := keyring.Set(KeyringService, manifestKey, string(data)); err != nil {
		return fmt.Errorf("failed to update manifest: %w", err)
	}
	return nil
}
