package app

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"studyqc/domain/core"
	"studyqc/domain/report"
	"studyqc/internal"
)

// BatchService runs QC over many studies with bounded concurrency. Studies
// are independent, so the only shared state is the run repository behind
// QCService.
type BatchService struct {
	qc     *QCService
	sem    *semaphore.Weighted
	logger *internal.Logger
}

// BatchOutcome is the per-study result of a batch run. Err is nil on
// success; a failed study never aborts its siblings.
type BatchOutcome struct {
	StudyKey core.StudyKey
	RunID    core.RunID
	Report   *report.Report
	Err      error
}

// BatchResult aggregates a full batch
type BatchResult struct {
	Outcomes  []BatchOutcome
	Succeeded int
	Failed    int
	RuntimeMs int64
}

// NewBatchService creates a batch service with the given concurrency limit
func NewBatchService(qcService *QCService, concurrency int, logger *internal.Logger) *BatchService {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &BatchService{
		qc:     qcService,
		sem:    semaphore.NewWeighted(int64(concurrency)),
		logger: logger.WithComponent("BatchService"),
	}
}

// RunBatch executes every request, at most `concurrency` at a time. Outcomes
// keep request order. Context cancellation marks not-yet-started studies as
// failed and waits for in-flight ones.
func (s *BatchService) RunBatch(ctx context.Context, requests []RunRequest) *BatchResult {
	startTime := time.Now()
	s.logger.Info("batch of %d studies started", len(requests))

	outcomes := make([]BatchOutcome, len(requests))
	var wg sync.WaitGroup

	for i, req := range requests {
		outcomes[i].StudyKey = req.StudyKey

		if err := s.sem.Acquire(ctx, 1); err != nil {
			outcomes[i].Err = err
			continue
		}

		wg.Add(1)
		go func(i int, req RunRequest) {
			defer wg.Done()
			defer s.sem.Release(1)

			result, err := s.qc.RunStudy(ctx, req)
			if err != nil {
				outcomes[i].Err = err
				return
			}
			outcomes[i].RunID = result.RunID
			outcomes[i].Report = &result.Report
		}(i, req)
	}
	wg.Wait()

	batch := &BatchResult{
		Outcomes:  outcomes,
		RuntimeMs: time.Since(startTime).Milliseconds(),
	}
	for _, o := range outcomes {
		if o.Err != nil {
			batch.Failed++
		} else {
			batch.Succeeded++
		}
	}

	s.logger.Info("batch finished: %d succeeded, %d failed in %dms",
		batch.Succeeded, batch.Failed, batch.RuntimeMs)
	return batch
}
