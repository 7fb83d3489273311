package app

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"sync"
	"time"

	"weightlog/internal/domain"
)

// Mutation names reported to the Observer.
const (
	OpAdd    = "add"
	OpUpdate = "update"
	OpDelete = "delete"
)

// RecordStore owns the weight collection, persists it as a single snapshot
// after every mutation and keeps the first-to-last difference current.
type RecordStore struct {
	mu         sync.Mutex
	blobs      domain.BlobStore
	key        string
	logger     *slog.Logger
	observer   Observer
	entries    []domain.Entry
	difference float64
}

// StoreOption configures a RecordStore.
type StoreOption func(*RecordStore)

// WithSnapshotKey overrides the blob key the snapshot is stored under.
func WithSnapshotKey(key string) StoreOption {
	return func(s *RecordStore) {
		if key != "" {
			s.key = key
		}
	}
}

// WithStoreLogger sets the logger used for absorbed failures.
func WithStoreLogger(l *slog.Logger) StoreOption {
	return func(s *RecordStore) { s.logger = l }
}

// WithStoreObserver attaches an Observer.
func WithStoreObserver(o Observer) StoreOption {
	return func(s *RecordStore) { s.observer = o }
}

// NewRecordStore creates an empty RecordStore backed by the given blob store.
func NewRecordStore(blobs domain.BlobStore, opts ...StoreOption) *RecordStore {
	s := &RecordStore{
		blobs:    blobs,
		key:      domain.SnapshotKey,
		logger:   slog.Default(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "record_store")
	return s
}

// Load replaces the in-memory collection with the persisted snapshot. A
// missing or undecodable snapshot leaves the collection empty and is not an
// error. A failing backend read is returned and also leaves it empty.
func (s *RecordStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	defer s.recompute()

	data, err := s.blobs.GetBlob(ctx, s.key)
	if errors.Is(err, domain.ErrBlobNotFound) {
		s.logger.Info("no snapshot found, starting empty", "key", s.key)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load snapshot %q: %w", s.key, err)
	}

	entries, err := domain.DecodeSnapshot(data)
	if err != nil {
		s.logger.Warn("discarding unreadable snapshot", "key", s.key, "error", err)
		return nil
	}
	s.entries = entries
	s.logger.Info("snapshot loaded", "key", s.key, "entries", len(entries))
	return nil
}

// Add parses rawValue and appends a new entry for date. Unparseable input is
// rejected with a domain.ErrValidation error and nothing changes.
func (s *RecordStore) Add(ctx context.Context, date time.Time, rawValue string) (domain.Entry, error) {
	value, err := domain.ParseValue(rawValue)
	if err != nil {
		s.observer.ObserveMutation(OpAdd, err)
		return domain.Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := domain.NewEntry(date, value)
	next := append(slices.Clone(s.entries), entry)
	if err := s.commit(ctx, OpAdd, next); err != nil {
		return domain.Entry{}, err
	}
	return entry, nil
}

// Update replaces the date and value of the entry with the given id, keeping
// its id. It reports false without error when no such entry exists.
func (s *RecordStore) Update(ctx context.Context, id string, date time.Time, rawValue string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := domain.IndexOf(s.entries, id)
	if idx < 0 {
		return false, nil
	}
	value, err := domain.ParseValue(rawValue)
	if err != nil {
		s.observer.ObserveMutation(OpUpdate, err)
		return false, err
	}

	next := slices.Clone(s.entries)
	next[idx].Date = domain.NormalizeDate(date)
	next[idx].Value = value
	if err := s.commit(ctx, OpUpdate, next); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes the entries with the given ids and returns how many were
// removed. Unknown ids are ignored.
func (s *RecordStore) Delete(ctx context.Context, ids ...string) (int, error) {
	return s.DeleteMatching(ctx, ids, nil)
}

// DeleteAt removes entries by their position in the date-ordered view.
// Positions outside the view are ignored.
func (s *RecordStore) DeleteAt(ctx context.Context, positions ...int) (int, error) {
	return s.DeleteMatching(ctx, nil, positions)
}

// DeleteMatching removes the entries named by id or by position in the
// date-ordered view as one mutation with a single save. Positions refer to the
// view before anything is removed.
func (s *RecordStore) DeleteMatching(ctx context.Context, ids []string, positions []int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	drop := make(map[string]struct{}, len(ids)+len(positions))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	if len(positions) > 0 {
		ordered := domain.SortByDate(s.entries)
		for _, p := range positions {
			if p >= 0 && p < len(ordered) {
				drop[ordered[p].ID] = struct{}{}
			}
		}
	}
	return s.deleteWhere(ctx, func(e domain.Entry) bool {
		_, ok := drop[e.ID]
		return ok
	})
}

func (s *RecordStore) deleteWhere(ctx context.Context, match func(domain.Entry) bool) (int, error) {
	next := slices.DeleteFunc(slices.Clone(s.entries), match)
	removed := len(s.entries) - len(next)
	if removed == 0 {
		return 0, nil
	}
	if err := s.commit(ctx, OpDelete, next); err != nil {
		return 0, err
	}
	return removed, nil
}

// commit persists next and only then makes it the current collection.
// Callers must hold s.mu.
func (s *RecordStore) commit(ctx context.Context, op string, next []domain.Entry) error {
	err := s.save(ctx, next)
	s.observer.ObserveMutation(op, err)
	if err != nil {
		s.logger.Error("mutation not persisted", "op", op, "key", s.key, "error", err)
		return err
	}
	s.entries = next
	s.recompute()
	return nil
}

func (s *RecordStore) save(ctx context.Context, entries []domain.Entry) error {
	data, err := domain.EncodeSnapshot(entries)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if err := s.blobs.SetBlob(ctx, s.key, data); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

func (s *RecordStore) recompute() {
	s.difference = domain.Difference(s.entries)
	s.observer.ObserveCollection(len(s.entries), s.difference)
}

// Reset drops the in-memory collection without touching the snapshot.
func (s *RecordStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.recompute()
}

// Get returns the entry with the given id.
func (s *RecordStore) Get(id string) (domain.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := domain.IndexOf(s.entries, id)
	if idx < 0 {
		return domain.Entry{}, false
	}
	return s.entries[idx], true
}

// Difference returns the last-minus-first value over the current collection.
func (s *RecordStore) Difference() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.difference
}

// Len returns the number of entries.
func (s *RecordStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Ordered yields the entries ascending by date. Each iteration sorts the
// collection as it is at that moment.
func (s *RecordStore) Ordered() iter.Seq[domain.Entry] {
	return func(yield func(domain.Entry) bool) {
		s.mu.Lock()
		current := slices.Clone(s.entries)
		s.mu.Unlock()
		for e := range domain.Ordered(current) {
			if !yield(e) {
				return
			}
		}
	}
}

// Entries returns the entries ascending by date.
func (s *RecordStore) Entries() []domain.Entry {
	return slices.Collect(s.Ordered())
}
