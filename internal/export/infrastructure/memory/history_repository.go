package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	readings "zaehlerwerk/internal/readings/domain"
)

// HistoryRepository is an in-memory snapshot archive for demo/testing.
type HistoryRepository struct {
	mu   sync.RWMutex
	data map[string]map[string]readings.SnapshotRow
}

// NewHistoryRepository constructs a repository.
func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{
		data: make(map[string]map[string]readings.SnapshotRow),
	}
}

// SaveSnapshots upserts a folder's snapshot rows.
func (r *HistoryRepository) SaveSnapshots(ctx context.Context, folder string, rows []readings.SnapshotRow) error {
	_ = ctx
	if folder == "" {
		return errors.New("memory history repo: empty folder")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	bucket := r.data[folder]
	if bucket == nil {
		bucket = make(map[string]readings.SnapshotRow)
		r.data[folder] = bucket
	}
	for _, row := range rows {
		if row.MeterKey == "" || !row.Granularity.IsValid() {
			return errors.New("memory history repo: invalid snapshot")
		}
		timeKey, err := row.TimeKey()
		if err != nil {
			return err
		}
		bucket[row.MeterKey+"|"+string(row.Granularity)+"|"+timeKey.String()] = row
	}
	return nil
}

// Snapshots returns a folder's archived rows in key order.
func (r *HistoryRepository) Snapshots(folder string) []readings.SnapshotRow {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket := r.data[folder]
	keys := make([]string, 0, len(bucket))
	for key := range bucket {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]readings.SnapshotRow, 0, len(keys))
	for _, key := range keys {
		result = append(result, bucket[key])
	}
	return result
}
