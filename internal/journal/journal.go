// Package journal is the durable record of outstanding system-wide
// mutations. An entry is written after a successful apply and before the
// payload runs, and deleted only after a confirmed revert, so a crash at
// any point leaves enough on disk for a later standalone reset to undo the
// change.
//
// Entries are one JSON file each inside the store directory. Every
// read-modify-write sequence runs under an exclusive flock on a lock file
// in the same directory, so a concurrent reset and a running invocation
// cannot double-revert.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"github.com/oklog/ulid/v2"

	"github.com/aretw0/chronoshift/pkg/domain"
)

// Entry records one unresolved system-wide mutation.
type Entry struct {
	ID         string              `json:"id"`
	Technique  domain.TechniqueID  `json:"technique"`
	CreatedAt  time.Time           `json:"created_at"`
	Invocation string              `json:"invocation"`
	State      domain.AppliedState `json:"state"`
}

// NewEntry builds an entry for the given invocation and applied state.
func NewEntry(invocation string, state domain.AppliedState) Entry {
	return Entry{
		ID:         NewID(),
		Technique:  state.Technique,
		CreatedAt:  time.Now().UTC(),
		Invocation: invocation,
		State:      state,
	}
}

// NewID returns a fresh ULID.
func NewID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.DefaultEntropy()).String()
}

// DefaultDir is the well-known journal location: system state dir for
// root, the XDG state dir otherwise. Both survive reboots and are
// readable by a later independent reset invocation.
func DefaultDir() string {
	if os.Geteuid() == 0 {
		return "/var/lib/chronoshift"
	}
	if base := os.Getenv("XDG_STATE_HOME"); base != "" {
		return filepath.Join(base, "chronoshift")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "chronoshift")
	}
	return filepath.Join(home, ".local", "state", "chronoshift")
}

// Store persists entries under BasePath.
type Store struct {
	BasePath string
}

// NewStore returns a store rooted at basePath, defaulting to DefaultDir.
func NewStore(basePath string) *Store {
	if basePath == "" {
		basePath = DefaultDir()
	}
	return &Store{BasePath: basePath}
}

// lock acquires the exclusive store lock, creating the directory on first
// use. The returned func releases it.
func (s *Store) lock() (func(), error) {
	if err := os.MkdirAll(s.BasePath, 0700); err != nil {
		return nil, fmt.Errorf("failed to ensure journal directory: %w", err)
	}
	fl := flock.New(filepath.Join(s.BasePath, "journal.lock"))
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("failed to lock journal: %w", err)
	}
	return func() { _ = fl.Unlock() }, nil
}

// Append persists a new entry. It enforces the single-outstanding
// invariant: if any unresolved entry already exists the append is refused
// with domain.ErrJournalConflict and nothing is written.
func (s *Store) Append(e Entry) error {
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	existing, err := s.listLocked()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return fmt.Errorf("%w (entry %s from %s)", domain.ErrJournalConflict,
			existing[0].ID, existing[0].CreatedAt.Format(time.RFC3339))
	}
	return s.writeLocked(e)
}

// List returns all unresolved entries, oldest first.
func (s *Store) List() ([]Entry, error) {
	unlock, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.listLocked()
}

// Resolve runs revert for the identified entry and deletes it on success,
// all under the store lock. A missing entry reports found=false with no
// error: a concurrent reset already cleared it, which callers treat as
// already-reverted success.
func (s *Store) Resolve(id string, revert func(Entry) error) (found bool, err error) {
	unlock, err := s.lock()
	if err != nil {
		return false, err
	}
	defer unlock()

	e, err := s.readLocked(id)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := revert(e); err != nil {
		return true, err
	}
	return true, s.deleteLocked(id)
}

// ResolveAll reverts every unresolved entry, deleting the ones whose
// revert succeeds and keeping the rest. The lock is held across the whole
// scan so concurrent resets cannot double-revert. Returns the entries
// resolved and the entries kept with their revert errors.
func (s *Store) ResolveAll(revert func(Entry) error) (resolved []Entry, kept []KeptEntry, err error) {
	unlock, err := s.lock()
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	entries, err := s.listLocked()
	if err != nil {
		return nil, nil, err
	}
	for _, e := range entries {
		if rerr := revert(e); rerr != nil {
			kept = append(kept, KeptEntry{Entry: e, Err: rerr})
			continue
		}
		if derr := s.deleteLocked(e.ID); derr != nil {
			kept = append(kept, KeptEntry{Entry: e, Err: derr})
			continue
		}
		resolved = append(resolved, e)
	}
	return resolved, kept, nil
}

// KeptEntry is an entry whose revert failed during ResolveAll.
type KeptEntry struct {
	Entry Entry
	Err   error
}

func (s *Store) entryPath(id string) string {
	return filepath.Join(s.BasePath, id+".json")
}

func (s *Store) listLocked() ([]Entry, error) {
	dirents, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list journal: %w", err)
	}
	var entries []Entry
	for _, d := range dirents {
		if d.IsDir() || filepath.Ext(d.Name()) != ".json" {
			continue
		}
		id := d.Name()[:len(d.Name())-len(".json")]
		e, err := s.readLocked(id)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.Before(entries[j].CreatedAt) })
	return entries, nil
}

func (s *Store) readLocked(id string) (Entry, error) {
	data, err := os.ReadFile(s.entryPath(id))
	if err != nil {
		return Entry{}, err
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("failed to parse journal entry %s: %w", id, err)
	}
	return e, nil
}

// writeLocked persists the entry atomically: temp file in the same
// directory, fsync, rename. The entry must be durable before the payload
// launches, so the fsync is not optional.
func (s *Store) writeLocked(e Entry) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}

	tmp, err := os.CreateTemp(s.BasePath, "tmp-"+e.ID+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write journal entry: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to fsync journal entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close journal entry: %w", err)
	}
	if err := os.Rename(tmpPath, s.entryPath(e.ID)); err != nil {
		return fmt.Errorf("failed to rename journal entry into place: %w", err)
	}
	return nil
}

func (s *Store) deleteLocked(id string) error {
	err := os.Remove(s.entryPath(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete journal entry: %w", err)
	}
	return nil
}
