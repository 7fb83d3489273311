package app_test

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	"weightlog/internal/app"
	"weightlog/internal/domain"
)

// mockBlobStore keeps blobs in a map unless a function field overrides the call.
type mockBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
	sets  int

	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, data []byte) error
}

func newMockBlobStore() *mockBlobStore {
	return &mockBlobStore{blobs: make(map[string][]byte)}
}

func (m *mockBlobStore) GetBlob(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[key]
	if !ok {
		return nil, domain.ErrBlobNotFound
	}
	return slices.Clone(b), nil
}

func (m *mockBlobStore) SetBlob(ctx context.Context, key string, data []byte) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, data)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.blobs[key] = slices.Clone(data)
	return nil
}

func (m *mockBlobStore) snapshot(key string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.blobs[key])
}

func mustDay(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := domain.ParseDay(s)
	if err != nil {
		t.Fatalf("ParseDay(%q): %v", s, err)
	}
	return d
}

func assertDifference(t *testing.T, s *app.RecordStore, want float64) {
	t.Helper()
	if got := s.Difference(); math.Abs(got-want) > 1e-9 {
		t.Fatalf("Difference() = %v; want %v", got, want)
	}
}

func TestRecordStore_Scenario(t *testing.T) {
	ctx := context.Background()
	blobs := newMockBlobStore()
	s := app.NewRecordStore(blobs)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertDifference(t, s, 0)

	jan, err := s.Add(ctx, mustDay(t, "2024-01-01"), "80.5")
	if err != nil {
		t.Fatalf("Add jan: %v", err)
	}
	if _, err := s.Add(ctx, mustDay(t, "2024-02-01"), "78.0"); err != nil {
		t.Fatalf("Add feb: %v", err)
	}
	assertDifference(t, s, -2.5)

	updated, err := s.Update(ctx, jan.ID, mustDay(t, "2024-01-01"), "79.0")
	if err != nil || !updated {
		t.Fatalf("Update = %v, %v", updated, err)
	}
	assertDifference(t, s, -1.0)

	n, err := s.Delete(ctx, jan.ID)
	if err != nil || n != 1 {
		t.Fatalf("Delete = %d, %v", n, err)
	}
	assertDifference(t, s, 0)
	if s.Len() != 1 {
		t.Fatalf("Len() = %d; want 1", s.Len())
	}
}

func TestRecordStore_LoadAbsorbsMissingAndCorrupt(t *testing.T) {
	tests := []struct {
		name string
		blob []byte
	}{
		{"missing", nil},
		{"corrupt", []byte("{{{not json")},
		{"schema mismatch", []byte(`{"weights":[1,2,3]}`)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			blobs := newMockBlobStore()
			if tc.blob != nil {
				blobs.blobs[domain.SnapshotKey] = tc.blob
			}
			s := app.NewRecordStore(blobs)
			if err := s.Load(context.Background()); err != nil {
				t.Fatalf("Load returned %v; want nil", err)
			}
			if s.Len() != 0 {
				t.Fatalf("Len() = %d; want 0", s.Len())
			}
			assertDifference(t, s, 0)
		})
	}
}

func TestRecordStore_LoadReadError(t *testing.T) {
	blobs := newMockBlobStore()
	blobs.getFn = func(context.Context, string) ([]byte, error) {
		return nil, errors.New("disk on fire")
	}
	s := app.NewRecordStore(blobs)
	if err := s.Load(context.Background()); err == nil {
		t.Fatal("expected read error")
	}
	if s.Len() != 0 {
		t.Fatal("expected empty collection")
	}
}

func TestRecordStore_LoadReplacesCollection(t *testing.T) {
	ctx := context.Background()
	blobs := newMockBlobStore()
	writer := app.NewRecordStore(blobs)
	if _, err := writer.Add(ctx, mustDay(t, "2024-01-01"), "90"); err != nil {
		t.Fatal(err)
	}
	if _, err := writer.Add(ctx, mustDay(t, "2024-03-01"), "85"); err != nil {
		t.Fatal(err)
	}

	reader := app.NewRecordStore(blobs)
	if _, err := reader.Add(ctx, mustDay(t, "2023-01-01"), "100"); err != nil {
		t.Fatal(err)
	}
	// reader's add overwrote the snapshot; write it back from writer's view
	writerEntries := writer.Entries()
	data, err := domain.EncodeSnapshot(writerEntries)
	if err != nil {
		t.Fatal(err)
	}
	blobs.blobs[domain.SnapshotKey] = data

	if err := reader.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !sameEntries(reader.Entries(), writerEntries) {
		t.Fatalf("loaded %v; want %v", reader.Entries(), writerEntries)
	}
	assertDifference(t, reader, -5)
}

func TestRecordStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	blobs := newMockBlobStore()
	s := app.NewRecordStore(blobs, app.WithSnapshotKey("custom"))
	for i, v := range []string{"81.2", "80.9", "80.1", "79.95"} {
		date := mustDay(t, "2024-01-01").AddDate(0, 0, 7*i)
		if _, err := s.Add(ctx, date, v); err != nil {
			t.Fatal(err)
		}
	}
	if _, ok := blobs.blobs["custom"]; !ok {
		t.Fatal("expected snapshot under custom key")
	}

	reloaded := app.NewRecordStore(blobs, app.WithSnapshotKey("custom"))
	if err := reloaded.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if !sameEntries(reloaded.Entries(), s.Entries()) {
		t.Fatalf("round trip mismatch:\n got %v\nwant %v", reloaded.Entries(), s.Entries())
	}
	assertDifference(t, reloaded, s.Difference())
}

func TestRecordStore_RejectedAdd(t *testing.T) {
	ctx := context.Background()
	blobs := newMockBlobStore()
	s := app.NewRecordStore(blobs)
	if _, err := s.Add(ctx, mustDay(t, "2024-01-01"), "80"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(ctx, mustDay(t, "2024-02-01"), "78"); err != nil {
		t.Fatal(err)
	}
	before := blobs.snapshot(domain.SnapshotKey)
	sets := blobs.sets

	for _, raw := range []string{"not-a-number", "", "78,5"} {
		_, err := s.Add(ctx, mustDay(t, "2024-03-01"), raw)
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("Add(%q) err = %v; want validation error", raw, err)
		}
	}
	if s.Len() != 2 {
		t.Fatalf("Len() = %d; want 2", s.Len())
	}
	assertDifference(t, s, -2)
	if blobs.sets != sets || string(blobs.snapshot(domain.SnapshotKey)) != string(before) {
		t.Fatal("rejected add must not write a snapshot")
	}
}

func TestRecordStore_UpdatePreservesIdentity(t *testing.T) {
	ctx := context.Background()
	s := app.NewRecordStore(newMockBlobStore())
	e, err := s.Add(ctx, mustDay(t, "2024-01-01"), "80")
	if err != nil {
		t.Fatal(err)
	}
	ok, err := s.Update(ctx, e.ID, mustDay(t, "2024-01-15"), "81.5")
	if err != nil || !ok {
		t.Fatalf("Update = %v, %v", ok, err)
	}
	got, found := s.Get(e.ID)
	if !found {
		t.Fatal("entry vanished after update")
	}
	if got.ID != e.ID || got.Day() != "2024-01-15" || got.Value != 81.5 {
		t.Fatalf("unexpected entry after update: %+v", got)
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d; want 1", s.Len())
	}
}

func TestRecordStore_UpdateMissingIsNoop(t *testing.T) {
	ctx := context.Background()
	blobs := newMockBlobStore()
	s := app.NewRecordStore(blobs)
	ok, err := s.Update(ctx, "no-such-id", mustDay(t, "2024-01-01"), "garbage")
	if err != nil || ok {
		t.Fatalf("Update = %v, %v; want false, nil", ok, err)
	}
	if blobs.sets != 0 {
		t.Fatal("no-op update must not write")
	}
}

func TestRecordStore_UpdateRejectsBadValue(t *testing.T) {
	ctx := context.Background()
	s := app.NewRecordStore(newMockBlobStore())
	e, _ := s.Add(ctx, mustDay(t, "2024-01-01"), "80")
	ok, err := s.Update(ctx, e.ID, mustDay(t, "2024-02-01"), "eighty")
	if ok || !errors.Is(err, domain.ErrInvalidValue) {
		t.Fatalf("Update = %v, %v; want false, ErrInvalidValue", ok, err)
	}
	got, _ := s.Get(e.ID)
	if got.Value != 80 || got.Day() != "2024-01-01" {
		t.Fatalf("entry changed by rejected update: %+v", got)
	}
}

func TestRecordStore_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	blobs := newMockBlobStore()
	s := app.NewRecordStore(blobs)
	a, _ := s.Add(ctx, mustDay(t, "2024-01-01"), "80")
	_, _ = s.Add(ctx, mustDay(t, "2024-02-01"), "79")

	n, err := s.Delete(ctx, a.ID)
	if err != nil || n != 1 {
		t.Fatalf("first Delete = %d, %v", n, err)
	}
	once := s.Entries()
	sets := blobs.sets

	n, err = s.Delete(ctx, a.ID, "unknown")
	if err != nil || n != 0 {
		t.Fatalf("second Delete = %d, %v", n, err)
	}
	if !sameEntries(s.Entries(), once) {
		t.Fatal("second delete changed the collection")
	}
	if blobs.sets != sets {
		t.Fatal("deleting nothing must not write")
	}
}

func TestRecordStore_DeleteAt(t *testing.T) {
	ctx := context.Background()
	s := app.NewRecordStore(newMockBlobStore())
	// inserted out of date order; positions refer to the ordered view
	_, _ = s.Add(ctx, mustDay(t, "2024-03-01"), "77")
	_, _ = s.Add(ctx, mustDay(t, "2024-01-01"), "80")
	_, _ = s.Add(ctx, mustDay(t, "2024-02-01"), "79")

	n, err := s.DeleteAt(ctx, 0, 2, 7, -1)
	if err != nil || n != 2 {
		t.Fatalf("DeleteAt = %d, %v", n, err)
	}
	left := s.Entries()
	if len(left) != 1 || left[0].Day() != "2024-02-01" {
		t.Fatalf("unexpected remaining entries %v", left)
	}
}

func TestRecordStore_DeleteMatchingSavesOnce(t *testing.T) {
	ctx := context.Background()
	blobs := newMockBlobStore()
	s := app.NewRecordStore(blobs)
	_, _ = s.Add(ctx, mustDay(t, "2024-01-01"), "80")
	feb, _ := s.Add(ctx, mustDay(t, "2024-02-01"), "79")
	_, _ = s.Add(ctx, mustDay(t, "2024-03-01"), "77")
	sets := blobs.sets

	// position 0 is January, before February is removed by id
	n, err := s.DeleteMatching(ctx, []string{feb.ID}, []int{0})
	if err != nil || n != 2 {
		t.Fatalf("DeleteMatching = %d, %v", n, err)
	}
	if blobs.sets != sets+1 {
		t.Fatalf("expected one write, got %d", blobs.sets-sets)
	}
	left := s.Entries()
	if len(left) != 1 || left[0].Day() != "2024-03-01" {
		t.Fatalf("unexpected remaining entries %v", left)
	}
	assertDifference(t, s, 0)
}

func TestRecordStore_DeleteMatchingFailureKeepsCollection(t *testing.T) {
	ctx := context.Background()
	blobs := newMockBlobStore()
	s := app.NewRecordStore(blobs)
	_, _ = s.Add(ctx, mustDay(t, "2024-01-01"), "80")
	feb, _ := s.Add(ctx, mustDay(t, "2024-02-01"), "79")
	_, _ = s.Add(ctx, mustDay(t, "2024-03-01"), "77")
	before := s.Entries()
	snap := blobs.snapshot(domain.SnapshotKey)

	blobs.setFn = func(context.Context, string, []byte) error { return errors.New("disk full") }

	n, err := s.DeleteMatching(ctx, []string{feb.ID}, []int{0})
	if !errors.Is(err, app.ErrPersistence) || n != 0 {
		t.Fatalf("DeleteMatching = %d, %v; want ErrPersistence", n, err)
	}
	if !sameEntries(s.Entries(), before) {
		t.Fatal("failed delete changed the collection")
	}
	if string(blobs.snapshot(domain.SnapshotKey)) != string(snap) {
		t.Fatal("failed delete changed the snapshot")
	}
}

func TestRecordStore_SaveFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	blobs := newMockBlobStore()
	s := app.NewRecordStore(blobs)
	e, err := s.Add(ctx, mustDay(t, "2024-01-01"), "80")
	if err != nil {
		t.Fatal(err)
	}
	before := blobs.snapshot(domain.SnapshotKey)

	blobs.setFn = func(context.Context, string, []byte) error {
		return errors.New("read-only filesystem")
	}

	if _, err := s.Add(ctx, mustDay(t, "2024-02-01"), "70"); !errors.Is(err, app.ErrPersistence) {
		t.Fatalf("Add err = %v; want ErrPersistence", err)
	}
	if ok, err := s.Update(ctx, e.ID, mustDay(t, "2024-01-01"), "60"); ok || !errors.Is(err, app.ErrPersistence) {
		t.Fatalf("Update = %v, %v; want false, ErrPersistence", ok, err)
	}
	if n, err := s.Delete(ctx, e.ID); n != 0 || !errors.Is(err, app.ErrPersistence) {
		t.Fatalf("Delete = %d, %v; want 0, ErrPersistence", n, err)
	}

	if s.Len() != 1 {
		t.Fatalf("Len() = %d; want 1", s.Len())
	}
	got, _ := s.Get(e.ID)
	if got.Value != 80 {
		t.Fatalf("value = %v; want 80", got.Value)
	}
	assertDifference(t, s, 0)
	if string(blobs.snapshot(domain.SnapshotKey)) != string(before) {
		t.Fatal("snapshot changed despite failed writes")
	}
}

func TestRecordStore_OrderedRecomputedPerCall(t *testing.T) {
	ctx := context.Background()
	s := app.NewRecordStore(newMockBlobStore())
	_, _ = s.Add(ctx, mustDay(t, "2024-02-01"), "79")
	seq := s.Ordered()
	_, _ = s.Add(ctx, mustDay(t, "2024-01-01"), "80")

	var days []string
	for e := range seq {
		days = append(days, e.Day())
	}
	if !slices.Equal(days, []string{"2024-01-01", "2024-02-01"}) {
		t.Fatalf("ordered view = %v", days)
	}
}

// TestRecordStore_DifferenceInvariant applies random mutations and checks the
// derived difference against a brute-force recomputation after each step.
func TestRecordStore_DifferenceInvariant(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewPCG(42, 7))
	blobs := newMockBlobStore()
	s := app.NewRecordStore(blobs)
	base := mustDay(t, "2024-01-01")

	for step := 0; step < 300; step++ {
		entries := s.Entries()
		date := base.AddDate(0, 0, rng.IntN(60))
		raw := strconv.FormatFloat(60+rng.Float64()*40, 'f', 2, 64)

		switch op := rng.IntN(4); {
		case op == 0 || len(entries) == 0:
			if _, err := s.Add(ctx, date, raw); err != nil {
				t.Fatalf("step %d add: %v", step, err)
			}
		case op == 1:
			id := entries[rng.IntN(len(entries))].ID
			if _, err := s.Update(ctx, id, date, raw); err != nil {
				t.Fatalf("step %d update: %v", step, err)
			}
		case op == 2:
			id := entries[rng.IntN(len(entries))].ID
			if _, err := s.Delete(ctx, id); err != nil {
				t.Fatalf("step %d delete: %v", step, err)
			}
		default:
			if _, err := s.Add(ctx, date, "bogus"); err == nil {
				t.Fatalf("step %d: bogus value accepted", step)
			}
		}

		assertDifference(t, s, bruteDifference(s.Entries()))

		persisted, err := domain.DecodeSnapshot(blobs.snapshot(domain.SnapshotKey))
		if err != nil {
			t.Fatalf("step %d decode: %v", step, err)
		}
		if !sameEntries(domain.SortByDate(persisted), s.Entries()) {
			t.Fatalf("step %d: snapshot diverged from memory", step)
		}
	}
}

func bruteDifference(entries []domain.Entry) float64 {
	if len(entries) == 0 {
		return 0
	}
	minI, maxI := 0, 0
	for i, e := range entries {
		if e.Date.Before(entries[minI].Date) {
			minI = i
		}
		if !e.Date.Before(entries[maxI].Date) {
			maxI = i
		}
	}
	return entries[maxI].Value - entries[minI].Value
}

func sameEntries(a, b []domain.Entry) bool {
	if len(a) != len(b) {
		return false
	}
	byID := make(map[string]domain.Entry, len(a))
	for _, e := range a {
		byID[e.ID] = e
	}
	for _, e := range b {
		got, ok := byID[e.ID]
		if !ok || !got.Date.Equal(e.Date) || got.Value != e.Value {
			return false
		}
	}
	return true
}
