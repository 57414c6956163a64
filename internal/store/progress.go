package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vakinola/Studyassist-MVP/internal/models"
)

const (
	progressKeyPrefix = "progress:"
	progressTTL       = 2 * time.Hour

	// ProgressChannel carries every progress write as JSON for push
	// subscribers (the websocket hub). Pollers never see it.
	ProgressChannel = "progress:updates"

	// QueueDocumentProcessing is the list the upload handler feeds and the
	// worker pool drains.
	QueueDocumentProcessing = "queue:document-processing"
)

// progressUpdate is the pubsub payload: a report plus the job it belongs to.
type progressUpdate struct {
	JobID string `json:"job_id"`
	models.ProgressReport
}

// ProgressStore keeps per-job phase/pct records in redis. It replaces an
// in-process map so every server replica reports the same numbers.
type ProgressStore struct {
	redis *redis.Client
}

func NewProgressStore(client *redis.Client) *ProgressStore {
	return &ProgressStore{redis: client}
}

// Init seeds a fresh job record before any bytes arrive.
func (s *ProgressStore) Init(ctx context.Context, jobID string) error {
	return s.write(ctx, jobID, models.ProgressReport{Phase: models.PhaseUploading, Pct: 0})
}

// Set records a report. Pct never regresses for a live job: a stale writer
// cannot walk the bar backwards.
func (s *ProgressStore) Set(ctx context.Context, jobID string, report models.ProgressReport) error {
	current, err := s.Get(ctx, jobID)
	if err == nil && report.Phase != models.PhaseError && current.Pct > report.Pct {
		report.Pct = current.Pct
	}
	return s.write(ctx, jobID, report)
}

// Fail marks the job terminal with a message the client surfaces verbatim.
func (s *ProgressStore) Fail(ctx context.Context, jobID, message string) error {
	return s.write(ctx, jobID, models.ProgressReport{
		Phase: models.PhaseError,
		Pct:   100,
		Error: message,
	})
}

// Get returns the stored report, or the queued/0 default for unknown jobs.
func (s *ProgressStore) Get(ctx context.Context, jobID string) (models.ProgressReport, error) {
	raw, err := s.redis.Get(ctx, progressKeyPrefix+jobID).Result()
	if err == redis.Nil {
		return models.ProgressReport{Phase: models.PhaseQueued, Pct: 0}, nil
	}
	if err != nil {
		return models.ProgressReport{}, fmt.Errorf("failed to read progress for job %s: %w", jobID, err)
	}

	var report models.ProgressReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return models.ProgressReport{}, fmt.Errorf("corrupt progress record for job %s: %w", jobID, err)
	}
	return report, nil
}

// Delete discards a job record once a terminal phase has been consumed.
func (s *ProgressStore) Delete(ctx context.Context, jobID string) error {
	return s.redis.Del(ctx, progressKeyPrefix+jobID).Err()
}

// Enqueue pushes a processing task for the worker pool.
func (s *ProgressStore) Enqueue(ctx context.Context, task models.ProcessingTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return s.redis.LPush(ctx, QueueDocumentProcessing, payload).Err()
}

func (s *ProgressStore) write(ctx context.Context, jobID string, report models.ProgressReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, progressKeyPrefix+jobID, payload, progressTTL).Err(); err != nil {
		return fmt.Errorf("failed to write progress for job %s: %w", jobID, err)
	}

	update, _ := json.Marshal(progressUpdate{JobID: jobID, ProgressReport: report})
	s.redis.Publish(ctx, ProgressChannel, update)
	return nil
}
