// Package cache persists issued session credentials across invocations so a
// still-valid session is reused instead of triggering a fresh AssumeRole call
// and MFA prompt.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// Credentials is the result of one AssumeRole call. Entries are replaced,
// never mutated.
type Credentials struct {
	AccessKeyID     string    `json:"access_key_id"`
	SecretAccessKey string    `json:"secret_access_key"`
	SessionToken    string    `json:"session_token"`
	Expiration      time.Time `json:"expiration"`
}

type entry struct {
	Credentials
	Signature string    `json:"signature"`
	CachedAt  time.Time `json:"cached_at"`
}

// Store is a file-backed credential cache. The backing file may be shared by
// concurrent invocations; writes take an advisory lock and land via rename so
// a racing refresh can never leave a half-written entry.
type Store struct {
	path         string
	safetyMargin time.Duration
	now          func() time.Time
}

// New returns a Store backed by path. Entries are treated as expired once
// now >= expiration - safetyMargin, absorbing clock skew and call latency.
func New(path string, safetyMargin time.Duration) *Store {
	return &Store{
		path:         path,
		safetyMargin: safetyMargin,
		now:          time.Now,
	}
}

// DefaultPath returns the cache location under the user's home directory
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find home directory: %w", err)
	}
	return filepath.Join(home, ".aws", "assume-role", "cache.json"), nil
}

// Signature derives the cache key from everything that affects the identity
// and validity of issued credentials, so a config change invalidates stale
// entries on its own.
func Signature(profileName, roleArn, externalID string, mfaRequired bool, durationSeconds int) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\n%s\n%s\n%t\n%d\n", profileName, roleArn, externalID, mfaRequired, durationSeconds)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached credentials for sig if they are still inside the
// safety margin. Anything else is a miss.
func (s *Store) Get(sig string) (*Credentials, bool) {
	entries, err := s.read()
	if err != nil {
		return nil, false
	}

	e, ok := entries[sig]
	if !ok {
		return nil, false
	}
	if !s.now().Before(e.Expiration.Add(-s.safetyMargin)) {
		return nil, false
	}

	creds := e.Credentials
	return &creds, true
}

// Put replaces any prior entry for sig. The store time is recorded for
// observability only; expiry decisions use the STS-reported expiration.
func (s *Store) Put(sig string, creds Credentials) error {
	return s.update(func(entries map[string]entry) {
		entries[sig] = entry{
			Credentials: creds,
			Signature:   sig,
			CachedAt:    s.now().UTC(),
		}
	})
}

// Invalidate evicts the entry for sig, used by the forced-refresh path.
// Evicting an absent entry is not an error.
func (s *Store) Invalidate(sig string) error {
	return s.update(func(entries map[string]entry) {
		delete(entries, sig)
	})
}

func (s *Store) read() (map[string]entry, error) {
	entries := make(map[string]entry)

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading credential cache: %w", err)
	}

	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing credential cache %s: %w", s.path, err)
	}
	return entries, nil
}

// update performs a locked read-modify-write of the cache file. The new
// content is written to a temp file in the same directory and renamed into
// place so readers only ever see a complete document.
func (s *Store) update(mutate func(map[string]entry)) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	lock := flock.New(s.path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking credential cache: %w", err)
	}
	defer lock.Unlock() //nolint:errcheck

	entries, err := s.read()
	if err != nil {
		// A corrupt cache file must not block writes; start over and let the
		// rename below replace it with a clean document.
		entries = make(map[string]entry)
	}
	mutate(entries)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding credential cache: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".cache-*")
	if err != nil {
		return fmt.Errorf("creating cache temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	// The cache holds live secret material, so it must never be world-readable
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("restricting cache permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing credential cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing credential cache: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing credential cache: %w", err)
	}
	return nil
}
