package api

import (
	"time"

	"structure-name-eval/internal/classify"
	"structure-name-eval/internal/store"
)

// ClassifyRequest is the synchronous classification payload.
type ClassifyRequest struct {
	Names   []string `json:"names"`
	Persist bool     `json:"persist"`
}

// ClassifyResponse returns per-name records in input order plus the
// list-level checks.
type ClassifyResponse struct {
	Items          []RecordDTO `json:"items"`
	Duplicates     []string    `json:"duplicates"`
	Overlength     []string    `json:"overlength"`
	NamesWithSpace []string    `json:"names_with_space"`
	Nonconformant  int         `json:"nonconformant"`
}

// UploadResponse reports batch statistics after processing an upload.
type UploadResponse struct {
	BatchID       uint   `json:"batch_id"`
	BatchName     string `json:"batch_name"`
	Owner         string `json:"owner"`
	RowCount      int    `json:"row_count"`
	UniqueNames   int    `json:"unique_names"`
	DuplicateRows int    `json:"duplicate_rows"`
	Overlength    int    `json:"overlength_names"`
	Processed     int    `json:"processed_names"`
}

// EvaluateRequest controls pagination for classification runs.
type EvaluateRequest struct {
	BatchID uint `json:"batch_id"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Resume  bool `json:"resume"`
	Force   bool `json:"force"`
}

// EvaluateResponse holds record items and totals.
type EvaluateResponse struct {
	Items []RecordDTO `json:"items"`
	Total int64       `json:"total"`
}

// StartEvaluationResponse describes the asynchronous job kickoff
// payload.
type StartEvaluationResponse struct {
	JobID     string    `json:"job_id"`
	BatchID   uint      `json:"batch_id"`
	RequestID uint      `json:"request_id"`
	Total     int64     `json:"total"`
	StartedAt time.Time `json:"started_at"`
}

// RecordDTO is the API representation of a parsed structure name.
type RecordDTO struct {
	ID               uint                `json:"id,omitempty"`
	Parsed           classify.ParsedName `json:"parsed"`
	ValidLength      bool                `json:"valid_length"`
	ProcessingTimeMs int64               `json:"processing_time_ms,omitempty"`
	CreatedAt        *time.Time          `json:"created_at,omitempty"`
}

// BatchDTO represents metadata for an uploaded name list.
type BatchDTO struct {
	ID               uint       `json:"id"`
	Name             string     `json:"name"`
	Owner            string     `json:"owner"`
	OriginalFilename string     `json:"original_filename"`
	RowCount         int        `json:"row_count"`
	UniqueNames      int        `json:"unique_names"`
	DuplicateRows    int        `json:"duplicate_rows"`
	OverlengthNames  int        `json:"overlength_names"`
	ProcessedNames   int        `json:"processed_names"`
	CreatedAt        time.Time  `json:"created_at"`
	LastEvaluatedAt  *time.Time `json:"last_evaluated_at"`
}

// BatchesResponse is the paginated response for name batches.
type BatchesResponse struct {
	Items []BatchDTO `json:"items"`
	Total int64      `json:"total"`
}

// BatchRequestDTO represents job tracking metadata.
type BatchRequestDTO struct {
	ID         uint       `json:"id"`
	BatchID    uint       `json:"batch_id"`
	Type       string     `json:"type"`
	Status     string     `json:"status"`
	JobID      string     `json:"job_id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
}

// EvaluateStatusResponse describes the state of the active job.
type EvaluateStatusResponse struct {
	Running    bool       `json:"running"`
	JobID      string     `json:"job_id"`
	BatchID    uint       `json:"batch_id"`
	RequestID  uint       `json:"request_id"`
	State      string     `json:"state"`
	Message    string     `json:"message"`
	Processed  int        `json:"processed"`
	Total      int64      `json:"total"`
	LastRecord *RecordDTO `json:"last_record,omitempty"`
}

// FromModel converts a store.ParsedRecord into the DTO representation.
func FromModel(r store.ParsedRecord) RecordDTO {
	created := r.CreatedAt
	return RecordDTO{
		ID:               r.ID,
		Parsed:           r.Parsed(),
		ValidLength:      r.ValidLength,
		ProcessingTimeMs: r.ProcessingTimeMs,
		CreatedAt:        &created,
	}
}

// FromParsed wraps an in-memory classification result that has not been
// persisted.
func FromParsed(p classify.ParsedName, validLength bool) RecordDTO {
	return RecordDTO{Parsed: p, ValidLength: validLength}
}

// BatchFromModel converts a store.NameBatch into a DTO.
func BatchFromModel(b store.NameBatch) BatchDTO {
	return BatchDTO{
		ID:               b.ID,
		Name:             b.Name,
		Owner:            b.Owner,
		OriginalFilename: b.OriginalFilename,
		RowCount:         b.RowCount,
		UniqueNames:      b.UniqueNames,
		DuplicateRows:    b.DuplicateRows,
		OverlengthNames:  b.OverlengthNames,
		ProcessedNames:   b.ProcessedNames,
		CreatedAt:        b.CreatedAt,
		LastEvaluatedAt:  b.LastEvaluatedAt,
	}
}

// BatchRequestFromModel converts a store.BatchRequest into a DTO.
func BatchRequestFromModel(r store.BatchRequest) BatchRequestDTO {
	return BatchRequestDTO{
		ID:         r.ID,
		BatchID:    r.BatchID,
		Type:       r.Type,
		Status:     r.Status,
		JobID:      r.JobID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}
