package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shortbox/shortbox/internal/registry"
)

// RecordStore adapts a Slot into the registry's record store, encoding
// the full record set as one JSON document.
type RecordStore struct {
	slot Slot
}

// NewRecordStore wraps a slot with the record codec.
func NewRecordStore(slot Slot) *RecordStore {
	return &RecordStore{slot: slot}
}

func (s *RecordStore) Load(ctx context.Context) ([]*registry.ShortenedURL, error) {
	data, err := s.slot.Load(ctx)
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, nil
	}

	var records []*registry.ShortenedURL
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}

	return records, nil
}

func (s *RecordStore) Save(ctx context.Context, records []*registry.ShortenedURL) error {
	if records == nil {
		records = []*registry.ShortenedURL{}
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}

	return s.slot.Store(ctx, data)
}

// Compile-time check.
var _ registry.Store = (*RecordStore)(nil)
