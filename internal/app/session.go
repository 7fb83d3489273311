package app

import (
	"context"
	"iter"
	"log/slog"
	"sync"
	"time"

	"weightlog/internal/domain"
)

// SessionState is the authorization state of a Session.
type SessionState int

const (
	// StateLocked means no successful authentication in this session.
	StateLocked SessionState = iota
	// StatePending means an authentication attempt is awaiting its outcome.
	StatePending
	// StateUnlocked means the owner is authenticated and the store is loaded.
	StateUnlocked
)

func (s SessionState) String() string {
	switch s {
	case StateLocked:
		return "locked"
	case StatePending:
		return "pending"
	case StateUnlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

// UnlockResult is delivered once an unlock attempt has been fully applied.
// LoadErr is set when authentication succeeded but the snapshot could not be
// read; the session then stays locked.
type UnlockResult struct {
	Outcome Outcome
	LoadErr error
}

// Unlocked reports whether the attempt left the session unlocked.
func (r UnlockResult) Unlocked() bool {
	return r.Outcome.Authorized() && r.LoadErr == nil
}

// Session composes an AuthGate and a RecordStore: the store is loaded only
// after the gate grants access, and every store operation is refused while
// the session is locked. Authorization lives only as long as the Session.
type Session struct {
	mu     sync.Mutex
	gate   *AuthGate
	store  *RecordStore
	logger *slog.Logger

	state SessionState
	gen   uint64
	last  UnlockResult
}

// NewSession creates a locked Session.
func NewSession(gate *AuthGate, store *RecordStore, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{gate: gate, store: store, logger: logger.With("component", "session")}
}

// State returns the current state and the result of the last finished unlock
// attempt.
func (s *Session) State() (SessionState, UnlockResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.last
}

// Unlock starts an authentication attempt. The returned channel receives the
// result after it has been applied to the session, so a receiver observes the
// new state. Unlocking an unlocked session resolves immediately as granted.
func (s *Session) Unlock(ctx context.Context) (<-chan UnlockResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(chan UnlockResult, 1)
	switch s.state {
	case StatePending:
		return nil, ErrAuthInProgress
	case StateUnlocked:
		out <- UnlockResult{Outcome: Outcome{Kind: OutcomeGranted}}
		return out, nil
	}

	s.state = StatePending
	gen := s.gen
	outcomes := s.gate.Authenticate(ctx)
	go func() {
		o := <-outcomes
		out <- s.apply(context.WithoutCancel(ctx), gen, o)
	}()
	return out, nil
}

// apply records an outcome on the session. Outcomes from attempts started
// before the last Lock are dropped.
func (s *Session) apply(ctx context.Context, gen uint64, o Outcome) UnlockResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := UnlockResult{Outcome: o}
	if gen != s.gen {
		res.Outcome = Outcome{Kind: OutcomeDenied, Reason: ErrLocked}
		return res
	}
	if o.Authorized() {
		if err := s.store.Load(ctx); err != nil {
			s.logger.Error("snapshot load failed after authentication", "error", err)
			res.LoadErr = err
			s.store.Reset()
		}
	}
	if res.Unlocked() {
		s.state = StateUnlocked
	} else {
		s.state = StateLocked
	}
	s.last = res
	return res
}

// Lock drops authorization and clears the in-memory collection. A pending
// attempt is abandoned.
func (s *Session) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.state = StateLocked
	s.last = UnlockResult{}
	s.store.Reset()
	s.logger.Info("session locked")
}

func (s *Session) unlocked() error {
	if s.state != StateUnlocked {
		return ErrLocked
	}
	return nil
}

// Add records a new entry. See RecordStore.Add.
func (s *Session) Add(ctx context.Context, date time.Time, rawValue string) (domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.unlocked(); err != nil {
		return domain.Entry{}, err
	}
	return s.store.Add(ctx, date, rawValue)
}

// Update changes an existing entry. See RecordStore.Update.
func (s *Session) Update(ctx context.Context, id string, date time.Time, rawValue string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.unlocked(); err != nil {
		return false, err
	}
	return s.store.Update(ctx, id, date, rawValue)
}

// Delete removes entries by id. See RecordStore.Delete.
func (s *Session) Delete(ctx context.Context, ids ...string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.unlocked(); err != nil {
		return 0, err
	}
	return s.store.Delete(ctx, ids...)
}

// DeleteAt removes entries by position in the ordered view. See RecordStore.DeleteAt.
func (s *Session) DeleteAt(ctx context.Context, positions ...int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.unlocked(); err != nil {
		return 0, err
	}
	return s.store.DeleteAt(ctx, positions...)
}

// DeleteMatching removes entries by id and by position in one save. See
// RecordStore.DeleteMatching.
func (s *Session) DeleteMatching(ctx context.Context, ids []string, positions []int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.unlocked(); err != nil {
		return 0, err
	}
	return s.store.DeleteMatching(ctx, ids, positions)
}

// Get returns a single entry by id.
func (s *Session) Get(id string) (domain.Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.unlocked(); err != nil {
		return domain.Entry{}, false, err
	}
	e, ok := s.store.Get(id)
	return e, ok, nil
}

// Ordered returns the date-ordered view of the collection.
func (s *Session) Ordered() (iter.Seq[domain.Entry], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.unlocked(); err != nil {
		return nil, err
	}
	return s.store.Ordered(), nil
}

// Entries returns the entries ascending by date together with the current
// difference, read atomically.
func (s *Session) Entries() ([]domain.Entry, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.unlocked(); err != nil {
		return nil, 0, err
	}
	return s.store.Entries(), s.store.Difference(), nil
}

// Difference returns the current first-to-last difference.
func (s *Session) Difference() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.unlocked(); err != nil {
		return 0, err
	}
	return s.store.Difference(), nil
}
