package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// Open initializes the SQLite-backed database at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&ParsedRecord{}, &NameBatch{}, &BatchName{}, &BatchRequest{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	if err := applyIndexes(db); err != nil {
		return nil, fmt.Errorf("apply indexes: %w", err)
	}
	return &Database{gorm: db}, nil
}

// GORM exposes the raw gorm.DB handle.
func (d *Database) GORM() *gorm.DB {
	return d.gorm
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveRecord inserts or replaces the parsed record for a name. The
// lowercased name key is the conflict target, so re-classifying a name
// overwrites its previous decomposition.
func (d *Database) SaveRecord(rec *ParsedRecord) error {
	if rec == nil {
		return errors.New("record is nil")
	}
	rec.Name = strings.TrimSpace(rec.Name)
	rec.NameKey = normalizeNameKey(rec.Name)
	d.mu.Lock()
	defer d.mu.Unlock()
	columns := []string{
		"class",
		"not_eval_prefix",
		"not_eval_text",
		"target_type",
		"target_classifier",
		"target_number",
		"modalities_json",
		"structure_indicator",
		"dose_specifier",
		"external_crop_mm",
		"custom_qualifier",
		"oar_name",
		"structure_category",
		"plural",
		"custom_structure",
		"vertebrae_level",
		"vertebrae_number",
		"nerve_level",
		"neck_node_level",
		"spatial_indicator",
		"prv",
		"prv_size",
		"partial",
		"base_structure",
		"structure_qualifier",
		"structure_number",
		"total_dose_c_gy",
		"fractions",
		"remainder",
		"conformant",
		"valid_length",
		"processing_time_ms",
	}
	return d.gorm.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name_key"}},
		DoUpdates: clause.AssignmentColumns(append(columns, "name")),
	}).Create(rec).Error
}

// EvaluatedNames returns all names that already have a parsed record.
func (d *Database) EvaluatedNames() ([]string, error) {
	if d == nil {
		return nil, errors.New("database is nil")
	}
	var names []string
	if err := d.gorm.Model(&ParsedRecord{}).Pluck("name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

// ClearRecords removes previously stored parsed records.
func (d *Database) ClearRecords() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&ParsedRecord{}).Error
}

// CountRecords returns the parsed-record count.
func (d *Database) CountRecords() (int64, error) {
	var count int64
	if err := d.gorm.Model(&ParsedRecord{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// RecordQuery encapsulates filters and pagination for listing parsed
// records.
type RecordQuery struct {
	Query      string
	Class      string
	Conformant *bool
	BatchID    uint
	Sort       string
	Offset     int
	Limit      int
}

// ListRecords returns paginated parsed records applying optional
// filters.
func (d *Database) ListRecords(opts RecordQuery) ([]ParsedRecord, int64, error) {
	var total int64
	base := d.gorm.Model(&ParsedRecord{})
	if opts.BatchID > 0 {
		base = base.Where("name_key IN (SELECT name_key FROM batch_names WHERE batch_id = ?)", opts.BatchID)
	}
	if opts.Query != "" {
		like := fmt.Sprintf("%%%s%%", opts.Query)
		base = base.Where("name LIKE ? OR base_structure LIKE ? OR structure_indicator LIKE ?", like, like, like)
	}
	if cls := strings.TrimSpace(opts.Class); cls != "" {
		base = base.Where("class = ?", cls)
	}
	if opts.Conformant != nil {
		base = base.Where("conformant = ?", *opts.Conformant)
	}

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := orderForSort(opts.Sort)
	queryBuilder := base.Order(order).Offset(opts.Offset)
	if opts.Limit > 0 {
		queryBuilder = queryBuilder.Limit(opts.Limit)
	}

	var rows []ParsedRecord
	if err := queryBuilder.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func orderForSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "name_asc":
		return "parsed_records.name ASC"
	case "name_desc":
		return "parsed_records.name DESC"
	case "class_asc":
		return "parsed_records.class ASC, parsed_records.name ASC"
	case "dose_desc":
		return "parsed_records.total_dose_c_gy DESC, parsed_records.id DESC"
	case "created_asc":
		return "parsed_records.created_at ASC"
	case "created_desc":
		return "parsed_records.created_at DESC"
	default:
		return "parsed_records.id DESC"
	}
}

// BatchNameRow is one unique name in a batch along with its processing
// status.
type BatchNameRow struct {
	Name      string
	NameKey   string
	RowIndex  int
	HasResult bool
}

func normalizeNameKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func applyIndexes(db *gorm.DB) error {
	stmts := []string{
		"UPDATE parsed_records SET name_key = LOWER(name) WHERE name IS NOT NULL AND (name_key IS NULL OR name_key = '')",
		"UPDATE batch_names SET name_key = LOWER(name) WHERE name IS NOT NULL AND (name_key IS NULL OR name_key = '')",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_parsed_records_name_key ON parsed_records(name_key)",
		"CREATE INDEX IF NOT EXISTS idx_parsed_records_class ON parsed_records(class)",
		"CREATE INDEX IF NOT EXISTS idx_parsed_records_conformant ON parsed_records(conformant)",
		"CREATE INDEX IF NOT EXISTS idx_batch_names_batch_name_key ON batch_names(batch_id, name_key)",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// CreateNameBatch inserts a new batch record.
func (d *Database) CreateNameBatch(name, owner, filename string) (*NameBatch, error) {
	batch := &NameBatch{Name: name, Owner: owner, OriginalFilename: filename}
	if err := d.gorm.Create(batch).Error; err != nil {
		return nil, err
	}
	return batch, nil
}

// UpdateNameBatchStats updates aggregate statistics for a batch.
func (d *Database) UpdateNameBatchStats(batchID uint, rowCount, uniqueNames, duplicateRows, overlength, processed int) error {
	return d.gorm.Model(&NameBatch{}).
		Where("id = ?", batchID).
		Updates(map[string]any{
			"row_count":        rowCount,
			"unique_names":     uniqueNames,
			"duplicate_rows":   duplicateRows,
			"overlength_names": overlength,
			"processed_names":  processed,
		}).Error
}

// ReplaceBatchNames replaces all name entries associated with a batch.
func (d *Database) ReplaceBatchNames(batchID uint, rows []BatchName) error {
	return d.gorm.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("batch_id = ?", batchID).Delete(&BatchName{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 500).Error
	})
}

// CountBatchNames returns the number of distinct names in a batch.
func (d *Database) CountBatchNames(batchID uint) (int, error) {
	var count int64
	if err := d.gorm.Model(&BatchName{}).
		Where("batch_id = ?", batchID).
		Distinct("name_key").Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// CountBatchResults returns the number of names in a batch that already
// have parsed records.
func (d *Database) CountBatchResults(batchID uint) (int, error) {
	var count int64
	query := d.gorm.Table("batch_names AS bn").
		Select("COUNT(DISTINCT r.name_key)").
		Joins("JOIN parsed_records r ON r.name_key = bn.name_key").
		Where("bn.batch_id = ?", batchID)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// ListBatchNamesForEval returns unique batch names along with their
// classification status, ordered by first appearance.
func (d *Database) ListBatchNamesForEval(batchID uint, offset, limit int) ([]BatchNameRow, error) {
	var rows []BatchNameRow
	query := `
		SELECT MIN(bn.name) AS name,
		       bn.name_key AS name_key,
		       MIN(bn.row_index) AS row_index,
		       CASE WHEN SUM(CASE WHEN r.id IS NULL THEN 0 ELSE 1 END) > 0 THEN 1 ELSE 0 END AS has_result
		FROM batch_names bn
		LEFT JOIN parsed_records r ON r.name_key = bn.name_key
		WHERE bn.batch_id = ?
		GROUP BY bn.name_key
		ORDER BY MIN(bn.row_index)
		LIMIT ? OFFSET ?`
	if err := d.gorm.Raw(query, batchID, limit, offset).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// EvaluatedNamesForBatch returns the name keys already classified for
// the batch.
func (d *Database) EvaluatedNamesForBatch(batchID uint) ([]string, error) {
	var rows []string
	query := `
		SELECT DISTINCT r.name_key
		FROM parsed_records r
		JOIN batch_names bn ON bn.name_key = r.name_key
		WHERE bn.batch_id = ?`
	if err := d.gorm.Raw(query, batchID).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DuplicateBatchNames returns the name keys that occur more than once
// in a batch.
func (d *Database) DuplicateBatchNames(batchID uint) ([]string, error) {
	var rows []string
	query := `
		SELECT MIN(name)
		FROM batch_names
		WHERE batch_id = ?
		GROUP BY name_key
		HAVING COUNT(*) > 1`
	if err := d.gorm.Raw(query, batchID).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CreateBatchRequest records a new classification request for a batch.
func (d *Database) CreateBatchRequest(batchID uint, requestType, status, jobID string) (*BatchRequest, error) {
	request := &BatchRequest{
		BatchID:   batchID,
		Type:      requestType,
		Status:    status,
		JobID:     jobID,
		StartedAt: time.Now(),
	}
	if err := d.gorm.Create(request).Error; err != nil {
		return nil, err
	}
	return request, nil
}

// UpdateBatchRequest updates the status and timestamps of a batch request.
func (d *Database) UpdateBatchRequest(requestID uint, status string) error {
	updates := map[string]any{"status": status}
	if status == "completed" || status == "failed" {
		now := time.Now()
		updates["finished_at"] = &now
	}
	return d.gorm.Model(&BatchRequest{}).Where("id = ?", requestID).Updates(updates).Error
}

// UpdateBatchProcessingInfo refreshes processed counts and timestamp
// for a batch.
func (d *Database) UpdateBatchProcessingInfo(batchID uint) error {
	processed, err := d.CountBatchResults(batchID)
	if err != nil {
		return err
	}
	now := time.Now()
	return d.gorm.Model(&NameBatch{}).
		Where("id = ?", batchID).
		Updates(map[string]any{
			"processed_names":   processed,
			"last_evaluated_at": &now,
		}).Error
}

// ListNameBatches returns batches ordered by creation time.
func (d *Database) ListNameBatches(offset, limit int) ([]NameBatch, int64, error) {
	var total int64
	if err := d.gorm.Model(&NameBatch{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query := d.gorm.Model(&NameBatch{}).Order("created_at DESC")
	if limit > 0 {
		query = query.Offset(offset).Limit(limit)
	}
	var batches []NameBatch
	if err := query.Find(&batches).Error; err != nil {
		return nil, 0, err
	}
	return batches, total, nil
}

// GetNameBatch retrieves a batch by ID.
func (d *Database) GetNameBatch(batchID uint) (*NameBatch, error) {
	var batch NameBatch
	if err := d.gorm.First(&batch, batchID).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

// GetBatchRequest fetches a batch request record by ID.
func (d *Database) GetBatchRequest(requestID uint) (*BatchRequest, error) {
	var request BatchRequest
	if err := d.gorm.First(&request, requestID).Error; err != nil {
		return nil, err
	}
	return &request, nil
}
