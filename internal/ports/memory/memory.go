package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"spendlog/internal/core"
)

// Store keeps logs in process memory. It implements ports.LogRepository and
// ports.LogReader.
type Store struct {
	mu    sync.Mutex
	logs  map[string]core.Log
	order []string // insertion order, used to break CreatedAt ties
	newID func() string
}

func New() *Store {
	return &Store{logs: make(map[string]core.Log), newID: uuid.NewString}
}

type seedLog struct {
	ID string `json:"id"`
	core.LogDocument
}

// NewFromFiles seeds the store from base/seed_logs.json when present. Entries
// that fail to decode or violate the log invariants are skipped.
func NewFromFiles(base string) *Store {
	s := New()
	raw, err := os.ReadFile(filepath.Join(base, "seed_logs.json"))
	if err != nil {
		return s
	}
	var seeds []seedLog
	if err := json.Unmarshal(raw, &seeds); err != nil {
		slog.Warn("Ignoring malformed seed file", "path", base, "error", err)
		return s
	}
	for _, seed := range seeds {
		id := seed.ID
		if id == "" {
			id = s.newID()
		}
		l, err := core.FromDocument(id, seed.LogDocument)
		if err == nil {
			err = l.Validate()
		}
		if err != nil {
			slog.Warn("Skipping invalid seed log", "log_id", id, "error", err)
			continue
		}
		s.put(l)
	}
	return s
}

func (s *Store) put(l core.Log) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.logs[l.ID]; !ok {
		s.order = append(s.order, l.ID)
	}
	s.logs[l.ID] = l.Clone()
}

// Create stores l under a fresh ID.
func (s *Store) Create(_ context.Context, ownerID string, l core.Log) (string, error) {
	if ownerID == "" {
		return "", fmt.Errorf("create log: %w", core.ErrNoSession)
	}
	l.ID = s.newID()
	l.OwnerID = ownerID
	s.put(l)
	return l.ID, nil
}

// Query returns the owner's logs, newest first.
func (s *Store) Query(_ context.Context, ownerID string) ([]core.Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Log, 0, len(s.logs))
	for i := len(s.order) - 1; i >= 0; i-- {
		l := s.logs[s.order[i]]
		if l.OwnerID == ownerID {
			out = append(out, l.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) Update(_ context.Context, logID string, u core.LogUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.logs[logID]
	if !ok {
		return fmt.Errorf("update log %s: %w", logID, core.ErrNotFound)
	}
	s.logs[logID] = l.Apply(u)
	return nil
}

func (s *Store) Delete(_ context.Context, logID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.logs[logID]; !ok {
		return fmt.Errorf("delete log %s: %w", logID, core.ErrNotFound)
	}
	delete(s.logs, logID)
	for i, id := range s.order {
		if id == logID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) Get(_ context.Context, logID string) (core.Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.logs[logID]
	if !ok {
		return core.Log{}, fmt.Errorf("get log %s: %w", logID, core.ErrNotFound)
	}
	return l.Clone(), nil
}

// Len reports how many logs are stored across all owners.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.logs)
}
