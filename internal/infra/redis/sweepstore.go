package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/timedealhq/creditbot/pkg/domain/group"
)

const (
	sweepKeyPrefix = "sweep:run:"
	sweepLatestKey = "sweep:latest"

	// Completed sweep reports stick around for a week.
	sweepTTL = 7 * 24 * time.Hour
)

// SweepStore persists bulk reset progress in Redis so the in-progress
// state is visible to callers while a sweep runs.
type SweepStore struct {
	client *Client
}

// NewSweepStore creates a new SweepStore.
func NewSweepStore(client *Client) *SweepStore {
	return &SweepStore{client: client}
}

// Save writes a sweep report and marks it as the latest run.
func (s *SweepStore) Save(ctx context.Context, report *group.SweepReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal sweep report: %w", err)
	}

	pipe := s.client.client.TxPipeline()
	pipe.Set(ctx, sweepKeyPrefix+report.RunID, data, sweepTTL)
	pipe.Set(ctx, sweepLatestKey, report.RunID, sweepTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save sweep report: %w", err)
	}
	return nil
}

// Get returns the report for a run id, or (nil, nil) when unknown.
func (s *SweepStore) Get(ctx context.Context, runID string) (*group.SweepReport, error) {
	data, err := s.client.client.Get(ctx, sweepKeyPrefix+runID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sweep report: %w", err)
	}

	var report group.SweepReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sweep report: %w", err)
	}
	return &report, nil
}

// Latest returns the most recently saved report, or (nil, nil) when no
// sweep has run.
func (s *SweepStore) Latest(ctx context.Context) (*group.SweepReport, error) {
	runID, err := s.client.client.Get(ctx, sweepLatestKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest sweep id: %w", err)
	}
	return s.Get(ctx, runID)
}
