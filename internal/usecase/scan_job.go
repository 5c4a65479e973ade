package usecase

import (
	"context"
	"errors"
	"fmt"

	"GammaPulse/internal/domain/models"
	drepo "GammaPulse/internal/domain/repository"
	"GammaPulse/pkg/queue"
)

// ScanJobType is the queue message type for detector scans.
const ScanJobType = "blast_scan"

// ScanJobHandler is the queue job that runs a detector scan for one chain.
type ScanJobHandler struct {
	scanner *BlastScanner
}

func NewScanJobHandler(scanner *BlastScanner) *ScanJobHandler {
	return &ScanJobHandler{scanner: scanner}
}

func (j *ScanJobHandler) Name() string { return "blast-scanner" }

func (j *ScanJobHandler) Type() string { return ScanJobType }

func (j *ScanJobHandler) Handle(ctx context.Context, payload interface{}) error {
	job, err := queue.ParsePayload[models.ScanJob](payload)
	if err != nil {
		return fmt.Errorf("parse scan job: %w", err)
	}
	if _, err := j.scanner.Scan(ctx, job.Symbol, job.Expiry); err != nil {
		// a chain with no snapshots yet is not worth a retry cycle
		if errors.Is(err, ErrNoSnapshots) {
			return nil
		}
		return err
	}
	return nil
}

var _ queue.Job = (*ScanJobHandler)(nil)

// redisScanQueue adapts the shared Redis queue to the domain ScanQueue port.
type redisScanQueue struct {
	q queue.QueueService
}

// NewRedisScanQueue wraps a queue publisher as a ScanQueue.
func NewRedisScanQueue(q queue.QueueService) drepo.ScanQueue {
	return &redisScanQueue{q: q}
}

func (r *redisScanQueue) Enqueue(ctx context.Context, job *models.ScanJob) error {
	return r.q.PublishMessage(ctx, ScanJobType, job)
}

func (r *redisScanQueue) Close() error { return nil }

// inlineScanQueue runs scans synchronously; used when Redis is disabled.
type inlineScanQueue struct {
	scanner *BlastScanner
}

// NewInlineScanQueue returns a ScanQueue that scans in the caller's goroutine.
func NewInlineScanQueue(scanner *BlastScanner) drepo.ScanQueue {
	return &inlineScanQueue{scanner: scanner}
}

func (q *inlineScanQueue) Enqueue(ctx context.Context, job *models.ScanJob) error {
	if job == nil {
		return nil
	}
	if _, err := q.scanner.Scan(ctx, job.Symbol, job.Expiry); err != nil && !errors.Is(err, ErrNoSnapshots) {
		return err
	}
	return nil
}

func (q *inlineScanQueue) Close() error { return nil }
