package policystore

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// State of the store lifecycle: Empty -> Loaded -> Persisted.
type State int

const (
	Empty State = iota
	Loaded
	Persisted
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Loaded:
		return "loaded"
	case Persisted:
		return "persisted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Policies maps agent id to an opaque policy blob.
type Policies map[int]json.RawMessage

// Backend reads and writes the whole mapping. Load reports found=false when
// nothing has been persisted at the location yet.
type Backend interface {
	Load() (policies Policies, found bool, err error)
	Save(Policies) error
}

// Store holds the id -> policy mapping for one run. It is touched only by
// the orchestrator between episodes and is not safe for concurrent use.
type Store struct {
	path     string
	backend  Backend
	state    State
	policies Policies

	logger zerolog.Logger
}

// Open loads the mapping at path if one exists. An empty path yields a store
// that never persists.
func Open(path string) (*Store, error) {
	if path == "" {
		return newStore("", nil), nil
	}
	return OpenBackend(path, backendFor(path))
}

// OpenBackend is Open with an explicit backend.
func OpenBackend(path string, b Backend) (*Store, error) {
	s := newStore(path, b)
	policies, found, err := b.Load()
	if err != nil {
		return nil, fmt.Errorf("load policies from %s: %w", path, err)
	}
	if found {
		s.policies = policies
		s.state = Loaded
		s.logger.Info().Ints("agents", s.IDs()).Msg("loaded policies")
	}
	return s, nil
}

func newStore(path string, b Backend) *Store {
	return &Store{
		path:     path,
		backend:  b,
		state:    Empty,
		policies: make(Policies),
		logger:   log.With().Str("component", "policystore").Str("path", path).Logger(),
	}
}

func backendFor(path string) Backend {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return NewSQLiteBackend(path)
	}
	return NewFileBackend(path)
}

func (s *Store) Path() string     { return s.path }
func (s *Store) State() State     { return s.state }
func (s *Store) Loaded() bool     { return s.state == Loaded }
func (s *Store) Configured() bool { return s.path != "" }

// Lookup returns the stored blob for id. Missing ids are not an error.
func (s *Store) Lookup(id int) (json.RawMessage, bool) {
	p, ok := s.policies[id]
	return p, ok
}

// Update overwrites or inserts the blob for id.
func (s *Store) Update(id int, policy json.RawMessage) {
	s.policies[id] = policy
}

// IDs lists the stored agent ids in ascending order.
func (s *Store) IDs() []int {
	ids := make([]int, 0, len(s.policies))
	for id := range s.policies {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Snapshot returns a copy of the mapping.
func (s *Store) Snapshot() Policies {
	out := make(Policies, len(s.policies))
	for id, p := range s.policies {
		out[id] = append(json.RawMessage(nil), p...)
	}
	return out
}

// Persist writes the whole mapping, including entries for agents that did
// not take part in this run, in one atomic replace.
func (s *Store) Persist() error {
	if !s.Configured() {
		return nil
	}
	if err := s.backend.Save(s.policies); err != nil {
		return fmt.Errorf("save policies to %s: %w", s.path, err)
	}
	s.state = Persisted
	s.logger.Info().Ints("agents", s.IDs()).Msg("saved policies")
	return nil
}
