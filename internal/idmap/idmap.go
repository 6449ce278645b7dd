// Package idmap implements the four-namespace IdMapping store used by
// the fallback normalizer to translate alternate-provider ids into this
// system's internal ids, minting a fresh id on first sight of an
// external one.
package idmap

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
)

// Namespace identifies which of the four independent id spaces a lookup
// or mint applies to.
type Namespace string

const (
	NamespaceMatch      Namespace = "match"
	NamespaceTeam       Namespace = "team"
	NamespacePlayer     Namespace = "player"
	NamespaceTournament Namespace = "tournament"
)

// Persister durably stores the full mapping for one namespace. Writes
// are expected to be called with the namespace's lock already held.
type Persister interface {
	Save(ns Namespace, mapping map[string]string) error
	Load(ns Namespace) (map[string]string, error)
}

// Store holds one map[external_id]internal_id per namespace, each
// guarded by its own mutex so a write to "team" never blocks a read of
// "player". Reads take the read lock; writes (including the mint-on-miss
// path) take the write lock and persist before releasing it.
type Store struct {
	persist Persister

	mu   map[Namespace]*sync.RWMutex
	data map[Namespace]map[string]string
}

// New creates a Store over the four fixed namespaces, loading any
// previously persisted mappings via persist.
func New(persist Persister) (*Store, error) {
	s := &Store{
		persist: persist,
		mu:      make(map[Namespace]*sync.RWMutex),
		data:    make(map[Namespace]map[string]string),
	}
	for _, ns := range []Namespace{NamespaceMatch, NamespaceTeam, NamespacePlayer, NamespaceTournament} {
		s.mu[ns] = &sync.RWMutex{}
		loaded, err := persist.Load(ns)
		if err != nil {
			return nil, fmt.Errorf("idmap: load %s: %w", ns, err)
		}
		if loaded == nil {
			loaded = make(map[string]string)
		}
		s.data[ns] = loaded
	}
	return s, nil
}

// Lookup returns the internal id already mapped for externalID in ns,
// if any. An empty externalID always misses.
func (s *Store) Lookup(ns Namespace, externalID string) (string, bool) {
	if externalID == "" {
		return "", false
	}
	lock := s.mu[ns]
	lock.RLock()
	defer lock.RUnlock()
	id, ok := s.data[ns][externalID]
	return id, ok
}

// GetOrCreate returns the internal id for externalID in ns, minting and
// persisting a fresh opaque id the first time externalID is seen. An
// empty externalID returns "", nil without minting (mirroring the original fallback
// source's "no id to map" case).
func (s *Store) GetOrCreate(ns Namespace, externalID string) (string, error) {
	if externalID == "" {
		return "", nil
	}

	lock := s.mu[ns]

	lock.RLock()
	if id, ok := s.data[ns][externalID]; ok {
		lock.RUnlock()
		return id, nil
	}
	lock.RUnlock()

	lock.Lock()
	defer lock.Unlock()

	// Re-check: another writer may have minted it while we waited for
	// the write lock.
	if id, ok := s.data[ns][externalID]; ok {
		return id, nil
	}

	newID := uuid.NewString()
	s.data[ns][externalID] = newID
	if err := s.persist.Save(ns, s.data[ns]); err != nil {
		delete(s.data[ns], externalID)
		return "", fmt.Errorf("idmap: persist %s mapping: %w", ns, err)
	}
	return newID, nil
}

// FilePersister persists mappings as one JSON file per namespace inside
// a base directory. It exists so the normalizer can run without a
// database, matching the file-backed event store's role for tests.
type FilePersister struct {
	baseDir string
	mu      sync.Mutex
}

// NewFilePersister creates a FilePersister rooted at baseDir.
func NewFilePersister(baseDir string) *FilePersister {
	return &FilePersister{baseDir: baseDir}
}

func (p *FilePersister) path(ns Namespace) string {
	return p.baseDir + "/" + string(ns) + "_mappings.json"
}

// Load reads the namespace's mapping file. A missing file is not an
// error; it means no mappings have been minted yet.
func (p *FilePersister) Load(ns Namespace) (map[string]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, err := os.ReadFile(p.path(ns))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Save writes the namespace's mapping file in full.
func (p *FilePersister) Save(ns Namespace, mapping map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.MkdirAll(p.baseDir, 0o755); err != nil {
		return err
	}
	b, err := json.Marshal(mapping)
	if err != nil {
		return err
	}
	return os.WriteFile(p.path(ns), b, 0o644)
}
