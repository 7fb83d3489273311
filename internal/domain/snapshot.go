package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// SnapshotKey is the default blob key the collection is stored under.
const SnapshotKey = "WeightData"

// ErrDecode indicates a persisted snapshot that is corrupt or of an unknown shape.
var ErrDecode = errors.New("snapshot decode failed")

type snapshotRecord struct {
	ID    string  `json:"id"`
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// EncodeSnapshot serializes the full collection.
func EncodeSnapshot(entries []Entry) ([]byte, error) {
	records := make([]snapshotRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, snapshotRecord{ID: e.ID, Date: e.Day(), Value: e.Value})
	}
	b, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

// DecodeSnapshot parses a snapshot produced by EncodeSnapshot. Any structural
// problem, including duplicate or missing ids, is reported as ErrDecode.
func DecodeSnapshot(data []byte) ([]Entry, error) {
	var records []snapshotRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	seen := make(map[string]struct{}, len(records))
	out := make([]Entry, 0, len(records))
	for i, r := range records {
		if r.ID == "" {
			return nil, fmt.Errorf("%w: record %d has no id", ErrDecode, i)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrDecode, r.ID)
		}
		seen[r.ID] = struct{}{}
		date, err := ParseDay(r.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrDecode, i, err)
		}
		out = append(out, Entry{ID: r.ID, Date: date, Value: r.Value})
	}
	return out, nil
}
