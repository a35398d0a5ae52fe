package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"spendlog/internal/core"
	applog "spendlog/internal/log"
	"spendlog/internal/ports"
	"spendlog/internal/session"
)

// LogStore holds the signed-in user's logs and the current-log selection and
// keeps them consistent with the repository.
//
// In-memory state changes only after the repository confirms a write, so a
// failed call leaves Logs and CurrentLog exactly as they were. Mutations on a
// log that already has a write in flight fail with core.ErrConflict.
type LogStore struct {
	repo      ports.LogRepository
	identity  session.Provider
	publisher ports.ChangePublisher
	logger    *applog.Logger
	now       func() time.Time
	newID     func() string

	mu         sync.RWMutex
	owner      string     // user whose logs are loaded
	logs       []core.Log // newest first
	currentID  string
	inflight   map[string]struct{}
	generation uint64 // bumped on every reset; stale completions are dropped

	// While a hydrate is running, confirmed writes record their sequence
	// number so the snapshot cannot overwrite them.
	mutations uint64
	touched   map[string]uint64
	hydrating int

	hydrate singleflight.Group
}

// Option configures a LogStore.
type Option func(*LogStore)

// WithPublisher announces every persisted mutation through p.
func WithPublisher(p ports.ChangePublisher) Option {
	return func(s *LogStore) { s.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *LogStore) { s.now = now }
}

// WithIDGenerator sets the transaction ID source.
func WithIDGenerator(newID func() string) Option {
	return func(s *LogStore) { s.newID = newID }
}

func WithLogger(l *applog.Logger) Option {
	return func(s *LogStore) { s.logger = l }
}

func NewLogStore(repo ports.LogRepository, identity session.Provider, opts ...Option) *LogStore {
	s := &LogStore{
		repo:     repo,
		identity: identity,
		logger:   applog.Discard(),
		now:      time.Now,
		inflight: make(map[string]struct{}),
		touched:  make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(applog.ComponentStore)
	return s
}

// Hydrate replaces the collection with the owner's logs from the repository.
// Concurrent calls share one query. Logs written or deleted locally while the
// query ran keep their local state. When the selected log is gone the
// selection falls back to the first log.
func (s *LogStore) Hydrate(ctx context.Context) error {
	owner, gen, err := s.session()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.hydrating++
	s.mu.Unlock()
	defer s.doneHydrating()

	ch := s.hydrate.DoChan(owner, func() (any, error) {
		s.mu.RLock()
		since := s.mutations
		s.mu.RUnlock()
		// joined callers must not inherit the first caller's cancellation
		logs, err := s.repo.Query(context.WithoutCancel(ctx), owner)
		return snapshot{logs: logs, since: since}, err
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return &core.PersistenceError{Op: applog.OpHydrate, Err: res.Err}
	}
	snap := res.Val.(snapshot)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return fmt.Errorf("hydrate: %w", core.ErrNoSession)
	}
	s.logs = s.mergeLocked(snap)
	if s.currentID != "" && s.indexOf(s.currentID) < 0 {
		s.currentID = ""
		if len(s.logs) > 0 {
			s.currentID = s.logs[0].ID
		}
	}

	s.logger.DebugContext(ctx, "Logs hydrated",
		applog.FieldOwnerID, owner, applog.FieldCount, len(s.logs), "shared", res.Shared)
	return nil
}

type snapshot struct {
	logs  []core.Log
	since uint64 // mutation sequence read before the query
}

// mergeLocked combines a repository snapshot with the loaded logs. Entries
// with a write in flight, or confirmed after the snapshot was taken, keep
// their in-memory state.
func (s *LogStore) mergeLocked(snap snapshot) []core.Log {
	local := make(map[string]core.Log, len(s.logs))
	for _, l := range s.logs {
		local[l.ID] = l
	}
	keepLocal := func(id string) bool {
		_, busy := s.inflight[id]
		return busy || s.touched[id] > snap.since
	}

	merged := make([]core.Log, 0, len(snap.logs))
	seen := make(map[string]bool, len(snap.logs))
	for _, l := range snap.logs {
		seen[l.ID] = true
		if !keepLocal(l.ID) {
			merged = append(merged, l.Clone())
		} else if cur, ok := local[l.ID]; ok {
			merged = append(merged, cur)
		}
	}
	for _, l := range s.logs {
		if !seen[l.ID] && keepLocal(l.ID) {
			merged = append(merged, l)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged
}

func (s *LogStore) doneHydrating() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hydrating--
	if s.hydrating == 0 {
		clear(s.touched)
	}
}

// markLocked records a confirmed local write of id.
func (s *LogStore) markLocked(id string) {
	s.mutations++
	if s.hydrating > 0 {
		s.touched[id] = s.mutations
	}
}

// CreateLog persists a new log with the default categories and inserts it at
// the front of the collection. The selection is not changed.
func (s *LogStore) CreateLog(ctx context.Context, title string) (core.Log, error) {
	owner, gen, err := s.session()
	if err != nil {
		return core.Log{}, err
	}
	l, err := core.NewLog(title, owner, s.now())
	if err != nil {
		return core.Log{}, err
	}

	id, err := s.repo.Create(ctx, owner, l)
	if err != nil {
		s.logFailure(ctx, applog.OpCreate, "", owner, err)
		return core.Log{}, &core.PersistenceError{Op: applog.OpCreate, Err: err}
	}
	l.ID = id

	s.mu.Lock()
	if s.generation == gen {
		s.logs = append([]core.Log{l.Clone()}, s.logs...)
		s.markLocked(id)
	}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Log created",
		applog.NewFields().WithLog(id, owner).WithOperation(applog.OpCreate).ToSlice()...)
	s.publish(ctx, core.LogCreated, l)
	return l, nil
}

// SelectLog points the current selection at id. It never touches the
// repository.
func (s *LogStore) SelectLog(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(id) < 0 {
		return fmt.Errorf("select log %s: %w", id, core.ErrNotFound)
	}
	s.currentID = id
	return nil
}

// RecordTransaction appends a transaction to the current log. The updated
// aggregate is persisted before the collection entry is replaced.
func (s *LogStore) RecordTransaction(ctx context.Context, in core.TransactionInput) (core.Log, error) {
	if _, _, err := s.session(); err != nil {
		return core.Log{}, err
	}

	s.mu.Lock()
	i := s.indexOf(s.currentID)
	if i < 0 {
		s.mu.Unlock()
		return core.Log{}, core.ErrNoCurrentLog
	}
	current := s.logs[i].Clone()
	if err := s.begin(current.ID); err != nil {
		s.mu.Unlock()
		return core.Log{}, err
	}
	gen := s.generation
	s.mu.Unlock()

	next, err := core.AppendTransaction(current, in, s.newID)
	if err != nil {
		s.end(current.ID)
		return core.Log{}, err
	}
	next.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, current.ID, next.Update()); err != nil {
		s.end(current.ID)
		s.logFailure(ctx, applog.OpRecord, current.ID, current.OwnerID, err)
		return core.Log{}, &core.PersistenceError{Op: applog.OpRecord, LogID: current.ID, Err: err}
	}

	s.mu.Lock()
	if s.generation == gen {
		if j := s.indexOf(current.ID); j >= 0 {
			s.logs[j] = next.Clone()
		}
		s.markLocked(current.ID)
	}
	delete(s.inflight, current.ID)
	s.mu.Unlock()

	tx := next.Transactions[len(next.Transactions)-1]
	s.logger.InfoContext(ctx, "Transaction recorded",
		applog.NewFields().
			WithLog(next.ID, next.OwnerID).
			WithTransaction(tx.ID, core.FormatAmount(tx.Amount), tx.Category).
			WithOperation(applog.OpRecord).
			ToSlice()...)
	s.publish(ctx, core.LogUpdated, next)
	return next, nil
}

// DeleteLog removes a log remotely and then locally. When the current log is
// deleted the selection falls back to the first remaining log, or to none.
// A log the repository no longer knows is removed locally as well.
func (s *LogStore) DeleteLog(ctx context.Context, id string) error {
	if _, _, err := s.session(); err != nil {
		return err
	}

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("delete log %s: %w", id, core.ErrNotFound)
	}
	target := s.logs[i].Clone()
	if err := s.begin(id); err != nil {
		s.mu.Unlock()
		return err
	}
	gen := s.generation
	s.mu.Unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			s.end(id)
			s.logFailure(ctx, applog.OpDelete, id, target.OwnerID, err)
			return &core.PersistenceError{Op: applog.OpDelete, LogID: id, Err: err}
		}
		s.logger.WarnContext(ctx, "Log already gone from repository, removing locally",
			applog.FieldLogID, id)
	}

	s.mu.Lock()
	if s.generation == gen {
		if j := s.indexOf(id); j >= 0 {
			s.logs = append(s.logs[:j:j], s.logs[j+1:]...)
		}
		if s.currentID == id {
			s.currentID = ""
			if len(s.logs) > 0 {
				s.currentID = s.logs[0].ID
			}
		}
		s.markLocked(id)
	}
	delete(s.inflight, id)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Log deleted",
		applog.NewFields().WithLog(id, target.OwnerID).WithOperation(applog.OpDelete).ToSlice()...)
	s.publish(ctx, core.LogDeleted, target)
	return nil
}

// Logs returns copies of every loaded log, newest first.
func (s *LogStore) Logs() []core.Log {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Log, len(s.logs))
	for i, l := range s.logs {
		out[i] = l.Clone()
	}
	return out
}

func (s *LogStore) CurrentLog() (core.Log, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(s.currentID)
	if i < 0 {
		return core.Log{}, false
	}
	return s.logs[i].Clone(), true
}

func (s *LogStore) Log(id string) (core.Log, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Log{}, fmt.Errorf("log %s: %w", id, core.ErrNotFound)
	}
	return s.logs[i].Clone(), nil
}

// SignOut drops the collection and the selection. Writes still in flight
// complete remotely but no longer touch memory.
func (s *LogStore) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.logger.Info("Store cleared", applog.FieldOperation, applog.OpSignOut)
}

func (s *LogStore) resetLocked() {
	s.owner = ""
	s.logs = nil
	s.currentID = ""
	s.generation++
}

// session resolves the signed-in user. No user clears the store; a different
// user than the one loaded resets it before the new user's first operation.
func (s *LogStore) session() (string, uint64, error) {
	owner, ok := s.identity.CurrentUserID()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !ok {
		if s.owner != "" || len(s.logs) > 0 {
			s.resetLocked()
		}
		return "", s.generation, core.ErrNoSession
	}
	if s.owner != owner {
		if s.owner != "" {
			s.resetLocked()
		}
		s.owner = owner
	}
	return owner, s.generation, nil
}

// begin marks id as having a write in flight. Callers hold s.mu.
func (s *LogStore) begin(id string) error {
	if _, busy := s.inflight[id]; busy {
		return fmt.Errorf("log %s: %w", id, core.ErrConflict)
	}
	s.inflight[id] = struct{}{}
	return nil
}

func (s *LogStore) end(id string) {
	s.mu.Lock()
	delete(s.inflight, id)
	s.mu.Unlock()
}

func (s *LogStore) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.logs {
		if s.logs[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *LogStore) publish(ctx context.Context, kind core.ChangeKind, l core.Log) {
	if s.publisher == nil {
		return
	}
	change := core.LogChange{
		LogID:     l.ID,
		OwnerID:   l.OwnerID,
		Title:     l.Title,
		Kind:      kind,
		Timestamp: s.now(),
	}
	if err := s.publisher.PublishLogChange(ctx, change); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish log change",
			applog.NewFields().
				WithLog(l.ID, l.OwnerID).
				WithOperation(applog.OpPublish).
				WithError(err).
				ToSlice()...)
	}
}

func (s *LogStore) logFailure(ctx context.Context, op, logID, ownerID string, err error) {
	s.logger.ErrorContext(ctx, "Repository call failed",
		applog.NewFields().WithLog(logID, ownerID).WithOperation(op).WithError(err).ToSlice()...)
}
