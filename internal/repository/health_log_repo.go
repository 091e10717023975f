package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/quocanhngo/otpwatch/internal/model"
	"github.com/quocanhngo/otpwatch/pkg/docstore"
)

const healthLogCollection = "health_logs"

// HealthLogRepository persists hourly reports and critical alerts
type HealthLogRepository struct {
	store docstore.Store
}

func NewHealthLogRepository(store docstore.Store) *HealthLogRepository {
	return &HealthLogRepository{store: store}
}

// Append stores payload as a new entry. The payload is flattened to a plain
// map so both store backends persist the same shape.
func (r *HealthLogRepository) Append(ctx context.Context, logType model.HealthLogType, payload any, timestampMs int64) (string, error) {
	data, err := toMap(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s payload: %w", logType, err)
	}

	return r.store.Add(ctx, healthLogCollection, &model.HealthLogEntry{
		Type:      logType,
		Data:      data,
		Timestamp: timestampMs,
	})
}

// ListOlderThan returns up to limit entries with a timestamp strictly before cutoffMs
func (r *HealthLogRepository) ListOlderThan(ctx context.Context, cutoffMs int64, limit int) ([]model.HealthLogEntry, error) {
	docs, err := r.store.QueryLess(ctx, healthLogCollection, "timestamp", cutoffMs, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]model.HealthLogEntry, 0, len(docs))
	for _, doc := range docs {
		var entry model.HealthLogEntry
		if err := doc.DataTo(&entry); err != nil {
			return nil, fmt.Errorf("failed to decode health log %s: %w", doc.ID, err)
		}
		entry.ID = doc.ID
		entries = append(entries, entry)
	}
	return entries, nil
}

// DeleteBatch removes up to docstore.MaxBatchSize entries in one commit
func (r *HealthLogRepository) DeleteBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.store.DeleteBatch(ctx, healthLogCollection, ids)
}

// Ping checks that the backing store is reachable
func (r *HealthLogRepository) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

func toMap(payload any) (map[string]any, error) {
	if m, ok := payload.(map[string]any); ok {
		return m, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
