package api

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"structure-name-eval/internal/batch"
	"structure-name-eval/internal/store"
	"structure-name-eval/internal/util"
)

const classificationThrottle = 500 * time.Millisecond

// classificationJob tracks the state of a running batch classification.
type classificationJob struct {
	id        string
	cancel    context.CancelFunc
	startedAt time.Time
	total     int64
	batchID   uint
	batchName string
	requestID uint
}

type nameResult struct {
	Record *store.ParsedRecord
	Reused bool
	Err    error
}

// startClassification launches a new asynchronous job. The caller must
// hold s.jobMu prior to invoking this function.
func (s *Server) startClassification(req EvaluateRequest, nameBatch *store.NameBatch, totalNames int64) (*classificationJob, error) {
	if s.activeJob != nil {
		return nil, errors.New("classification already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	job := &classificationJob{
		id:        uuid.NewString(),
		cancel:    cancel,
		startedAt: time.Now().UTC(),
		total:     totalNames,
		batchID:   nameBatch.ID,
		batchName: nameBatch.Name,
	}

	request, err := s.db.CreateBatchRequest(nameBatch.ID, "classify", "running", job.id)
	if err != nil {
		job.cancel()
		return nil, fmt.Errorf("create batch request: %w", err)
	}
	job.requestID = request.ID

	s.activeJob = job
	go s.runClassification(ctx, job, req)
	return job, nil
}

func (s *Server) runClassification(ctx context.Context, job *classificationJob, req EvaluateRequest) {
	finishStatus := "completed"
	var finishErr error

	defer func() {
		if job.requestID != 0 {
			status := finishStatus
			if finishErr != nil && status == "completed" {
				status = "failed"
			}
			if err := s.db.UpdateBatchRequest(job.requestID, status); err != nil {
				logrus.WithError(err).WithField("batch_id", job.batchID).Warn("update batch request")
			}
		}
		if err := s.db.UpdateBatchProcessingInfo(job.batchID); err != nil {
			logrus.WithError(err).WithField("batch_id", job.batchID).Warn("refresh batch processing info")
		}
		s.jobMu.Lock()
		s.activeJob = nil
		s.jobMu.Unlock()
	}()

	chunkSize := req.Limit
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkSize > 5000 {
		chunkSize = 5000
	}

	skipExisting := req.Resume && !req.Force
	existing := make(map[string]struct{})
	totalProcessed := 0

	if skipExisting {
		classified, err := s.db.EvaluatedNamesForBatch(job.batchID)
		if err != nil {
			finishStatus = "failed"
			finishErr = err
			s.notifier.Broadcast(JobEvent{
				Type:    "error",
				JobID:   job.id,
				BatchID: job.batchID,
				Message: fmt.Sprintf("load existing records: %v", err),
			})
			logrus.WithError(err).Error("load existing records")
			return
		}
		for _, key := range classified {
			existing[key] = struct{}{}
		}
		totalProcessed = len(existing)
	}

	logrus.WithFields(logrus.Fields{
		"job":        job.id,
		"batch_id":   job.batchID,
		"batch_name": job.batchName,
		"total":      job.total,
		"processed":  totalProcessed,
		"resume":     req.Resume,
		"force":      req.Force,
	}).Info("classification job started")

	s.notifier.Broadcast(JobEvent{
		Type:      "started",
		JobID:     job.id,
		BatchID:   job.batchID,
		Total:     job.total,
		Processed: totalProcessed,
		Message:   "classification started",
	})

	workerCount := s.workers
	if workerCount <= 0 {
		workerCount = determineWorkerCount()
	}
	logrus.WithFields(logrus.Fields{
		"job":      job.id,
		"batch_id": job.batchID,
		"workers":  workerCount,
	}).Info("classification worker pool configured")

	taskCh := make(chan store.BatchNameRow, workerCount*4)
	resultCh := make(chan nameResult, workerCount*4)
	errCh := make(chan error, 1)

	var (
		lastEmit     time.Time
		hasPending   bool
		pendingEvent JobEvent
	)

	flush := func(force bool) {
		if !hasPending {
			return
		}
		if !force && !lastEmit.IsZero() && time.Since(lastEmit) < classificationThrottle {
			return
		}
		ev := pendingEvent
		s.notifier.Broadcast(ev)
		lastEmit = time.Now()
		hasPending = false
	}

	var workerWG sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		workerWG.Add(1)
		go func() {
			defer workerWG.Done()
			for task := range taskCh {
				select {
				case <-ctx.Done():
					return
				default:
				}
				res := s.classifyName(task, skipExisting, existing)
				select {
				case resultCh <- res:
				case <-ctx.Done():
					return
				}
				if res.Err != nil {
					return
				}
			}
		}()
	}

	go func() {
		workerWG.Wait()
		close(resultCh)
	}()

	go func() {
		defer close(taskCh)
		defer close(errCh)
		offset := req.Offset
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			rows, err := s.db.ListBatchNamesForEval(job.batchID, offset, chunkSize)
			if err != nil {
				errCh <- fmt.Errorf("list batch names: %w", err)
				return
			}
			if len(rows) == 0 {
				return
			}
			for _, row := range rows {
				select {
				case taskCh <- row:
				case <-ctx.Done():
					return
				}
			}
			offset += len(rows)
		}
	}()

	for res := range resultCh {
		if res.Err != nil {
			finishStatus = "failed"
			finishErr = res.Err
			s.notifier.Broadcast(JobEvent{
				Type:    "error",
				JobID:   job.id,
				BatchID: job.batchID,
				Message: res.Err.Error(),
			})
			logrus.WithError(res.Err).Error("classification worker")
			job.cancel()
			continue
		}

		totalProcessed++
		var dto *RecordDTO
		if res.Record != nil {
			d := FromModel(*res.Record)
			dto = &d
		}
		pendingEvent = JobEvent{
			Type:      "record",
			JobID:     job.id,
			BatchID:   job.batchID,
			Total:     job.total,
			Processed: totalProcessed,
			Record:    dto,
			Reused:    res.Reused,
		}
		hasPending = true
		flush(false)
	}
	flush(true)

	if err, ok := <-errCh; ok && err != nil && finishErr == nil {
		finishStatus = "failed"
		finishErr = err
		s.notifier.Broadcast(JobEvent{
			Type:    "error",
			JobID:   job.id,
			BatchID: job.batchID,
			Message: err.Error(),
		})
		logrus.WithError(err).Error("classification producer")
	}

	if ctx.Err() != nil && finishErr == nil {
		finishStatus = "cancelled"
		s.notifier.Broadcast(JobEvent{
			Type:      "cancelled",
			JobID:     job.id,
			BatchID:   job.batchID,
			Total:     job.total,
			Processed: totalProcessed,
			Message:   "classification cancelled",
		})
		logrus.WithFields(logrus.Fields{
			"job":       job.id,
			"batch_id":  job.batchID,
			"processed": totalProcessed,
		}).Info("classification job cancelled")
		return
	}

	if finishErr != nil {
		return
	}

	s.notifier.Broadcast(JobEvent{
		Type:      "completed",
		JobID:     job.id,
		BatchID:   job.batchID,
		Total:     job.total,
		Processed: totalProcessed,
		Message:   "classification completed",
	})
	logrus.WithFields(logrus.Fields{
		"job":       job.id,
		"batch_id":  job.batchID,
		"processed": totalProcessed,
		"duration":  time.Since(job.startedAt),
	}).Info("classification job completed")
}

// classifyName decomposes one batch name and persists the record.
// Already-classified names are skipped when the run resumes.
func (s *Server) classifyName(task store.BatchNameRow, skipExisting bool, existing map[string]struct{}) nameResult {
	if skipExisting {
		if _, ok := existing[task.NameKey]; ok && task.HasResult {
			return nameResult{Reused: true}
		}
	}

	timer := util.StartTimer()
	parsed := batch.ClassifyOne(task.Name)
	rec := store.RecordFromParsed(parsed, batch.ValidLength(task.Name), timer.ElapsedMs())

	if err := s.db.SaveRecord(rec); err != nil {
		return nameResult{Err: fmt.Errorf("save record %s: %w", task.Name, err)}
	}
	return nameResult{Record: rec}
}

func determineWorkerCount() int {
	workers := runtime.NumCPU()
	if workers < 2 {
		workers = 2
	}
	if workers > 12 {
		workers = 12
	}
	return workers
}
