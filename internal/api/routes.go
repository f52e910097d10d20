package api

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"structure-name-eval/internal/batch"
	"structure-name-eval/internal/export"
	"structure-name-eval/internal/grammar"
	"structure-name-eval/internal/store"
)

// Config defines server dependencies.
type Config struct {
	DBPath         string
	AllowedOrigins []string
	SilentDB       bool
	Workers        int
	MaxSyncNames   int
}

// Server wires HTTP handlers with persistence and the name classifier.
type Server struct {
	db             *store.Database
	allowedOrigins []string
	notifier       *JobNotifier
	jobMu          sync.Mutex
	activeJob      *classificationJob
	workers        int
	maxSyncNames   int
}

// NewServer constructs the API server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("db path required")
	}
	db, err := store.Open(cfg.DBPath, cfg.SilentDB)
	if err != nil {
		return nil, err
	}

	server := &Server{
		db:             db,
		allowedOrigins: cfg.AllowedOrigins,
		notifier:       NewJobNotifier(),
		workers:        cfg.Workers,
		maxSyncNames:   cfg.MaxSyncNames,
	}
	if server.maxSyncNames <= 0 {
		server.maxSyncNames = 1000
	}
	return server, nil
}

// Close releases the server's database handle.
func (s *Server) Close() error {
	return s.db.Close()
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = true
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/api/healthz", s.handleHealth)
	r.GET("/api/config", s.handleConfig)
	r.GET("/api/lexicon", s.handleLexicon)

	api := r.Group("/api")
	{
		api.POST("/classify", s.handleClassify)
		api.GET("/batches", s.handleListBatches)
		api.GET("/batches/:id", s.handleGetBatch)
		api.GET("/batches/:id/results", s.handleBatchResults)
		api.GET("/requests/:id/status", s.handleRequestStatus)
		api.POST("/upload", s.handleUpload)
		api.POST("/evaluate", s.handleEvaluate)
		api.GET("/evaluate/status", s.handleEvaluateStatus)
		api.DELETE("/evaluate/:jobID", s.handleCancelEvaluate)
		api.GET("/evaluate/stream", s.handleEvaluateStream)
		api.GET("/results", s.handleResults)
		api.GET("/export.csv", s.handleExportCSV)
		api.GET("/export.xlsx", s.handleExportXLSX)
	}

	return r, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleConfig(c *gin.Context) {
	records, err := s.db.CountRecords()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"max_name_length": batch.MaxNameLength,
		"max_sync_names":  s.maxSyncNames,
		"stored_records":  records,
	})
}

// handleLexicon exposes the code tables so clients can render long names
// next to the extracted codes.
func (s *Server) handleLexicon(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"categories":         grammar.CategoryNames,
		"vertebrae_levels":   grammar.VertebraeLevels,
		"spatial_indicators": grammar.SpatialNames,
		"target_types":       grammar.TargetTypeNames,
		"target_classifiers": grammar.TargetClassifierNames,
		"modalities":         grammar.ModalityNames,
	})
}

// handleClassify classifies a list of names synchronously. Intended for
// interactive use; uploads go through the batch endpoints.
func (s *Server) handleClassify(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	names := make([]string, 0, len(req.Names))
	for _, name := range req.Names {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	if len(names) == 0 {
		s.renderError(c, http.StatusBadRequest, errors.New("at least one name is required"))
		return
	}
	if len(names) > s.maxSyncNames {
		s.renderError(c, http.StatusBadRequest,
			fmt.Errorf("too many names for synchronous classification (max %d)", s.maxSyncNames))
		return
	}

	result, err := batch.Run(c.Request.Context(), names, batch.Options{Workers: s.workers})
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	resp := ClassifyResponse{
		Items:          make([]RecordDTO, 0, len(result.Records)),
		Duplicates:     result.Duplicates,
		Overlength:     result.Overlength,
		NamesWithSpace: result.NamesWithSpace,
	}
	for _, rec := range result.Records {
		if !rec.Conformant {
			resp.Nonconformant++
		}
		resp.Items = append(resp.Items, FromParsed(rec, batch.ValidLength(rec.Name)))
	}

	if req.Persist {
		for _, rec := range result.Records {
			row := store.RecordFromParsed(rec, batch.ValidLength(rec.Name), 0)
			if err := s.db.SaveRecord(row); err != nil {
				s.renderError(c, http.StatusInternalServerError, fmt.Errorf("save record %s: %w", rec.Name, err))
				return
			}
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListBatches(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 0 {
		page = 0
	}
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	if pageSize <= 0 {
		pageSize = 25
	}
	offset := page * pageSize

	rows, total, err := s.db.ListNameBatches(offset, pageSize)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	dtos := make([]BatchDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, BatchFromModel(row))
	}
	c.JSON(http.StatusOK, BatchesResponse{Items: dtos, Total: total})
}

func (s *Server) handleGetBatch(c *gin.Context) {
	batchID, err := parseUintParam(c.Param("id"))
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}

	nameBatch, err := s.db.GetNameBatch(batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.renderError(c, http.StatusNotFound, fmt.Errorf("batch %d not found", batchID))
		} else {
			s.renderError(c, http.StatusInternalServerError, err)
		}
		return
	}

	processed, err := s.db.CountBatchResults(nameBatch.ID)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	dto := BatchFromModel(*nameBatch)
	dto.ProcessedNames = processed
	c.JSON(http.StatusOK, dto)
}

func (s *Server) handleBatchResults(c *gin.Context) {
	batchID, err := parseUintParam(c.Param("id"))
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	if _, err := s.db.GetNameBatch(batchID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.renderError(c, http.StatusNotFound, fmt.Errorf("batch %d not found", batchID))
		} else {
			s.renderError(c, http.StatusInternalServerError, err)
		}
		return
	}
	s.renderResults(c, batchID)
}

func (s *Server) handleRequestStatus(c *gin.Context) {
	requestID, err := parseUintParam(c.Param("id"))
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}

	request, err := s.db.GetBatchRequest(requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.renderError(c, http.StatusNotFound, fmt.Errorf("request %d not found", requestID))
		} else {
			s.renderError(c, http.StatusInternalServerError, err)
		}
		return
	}

	c.JSON(http.StatusOK, BatchRequestFromModel(*request))
}

func (s *Server) handleUpload(c *gin.Context) {
	batchName := strings.TrimSpace(c.PostForm("batch_name"))
	if batchName == "" {
		s.renderError(c, http.StatusBadRequest, errors.New("batch_name is required"))
		return
	}
	ownerName := strings.TrimSpace(c.PostForm("owner_name"))
	if ownerName == "" {
		s.renderError(c, http.StatusBadRequest, errors.New("owner_name is required"))
		return
	}

	fileHeader, err := c.FormFile("names")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			s.renderError(c, http.StatusBadRequest, errors.New("names file is required"))
		} else {
			s.renderError(c, http.StatusBadRequest, err)
		}
		return
	}

	path, cleanup, err := saveFormFile(fileHeader)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	if cleanup != nil {
		defer cleanup()
	}

	parsed, err := parseNamesFile(path)
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	if parsed.rowCount == 0 {
		s.renderError(c, http.StatusBadRequest, errors.New("no structure names detected in file"))
		return
	}

	nameBatch, err := s.db.CreateNameBatch(batchName, ownerName, fileHeader.Filename)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	for i := range parsed.batchNames {
		parsed.batchNames[i].BatchID = nameBatch.ID
	}
	if err := s.db.ReplaceBatchNames(nameBatch.ID, parsed.batchNames); err != nil {
		s.renderError(c, http.StatusInternalServerError, fmt.Errorf("store batch names: %w", err))
		return
	}

	processedCount, err := s.db.CountBatchResults(nameBatch.ID)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	overlength := 0
	for _, name := range parsed.uniqueNames {
		if !batch.ValidLength(name) {
			overlength++
		}
	}

	if err := s.db.UpdateNameBatchStats(
		nameBatch.ID,
		parsed.rowCount,
		len(parsed.uniqueNames),
		parsed.duplicateRows,
		overlength,
		processedCount,
	); err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, UploadResponse{
		BatchID:       nameBatch.ID,
		BatchName:     nameBatch.Name,
		Owner:         nameBatch.Owner,
		RowCount:      parsed.rowCount,
		UniqueNames:   len(parsed.uniqueNames),
		DuplicateRows: parsed.duplicateRows,
		Overlength:    overlength,
		Processed:     processedCount,
	})
}

func (s *Server) handleEvaluate(c *gin.Context) {
	var req EvaluateRequest
	if c.Request.Body != nil {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			s.renderError(c, http.StatusBadRequest, err)
			return
		}
	}

	if req.BatchID == 0 {
		s.renderError(c, http.StatusBadRequest, errors.New("batch_id is required"))
		return
	}

	nameBatch, err := s.db.GetNameBatch(req.BatchID)
	if err != nil {
		s.renderError(c, http.StatusNotFound, fmt.Errorf("batch %d not found", req.BatchID))
		return
	}

	totalNames, err := s.db.CountBatchNames(nameBatch.ID)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	if totalNames == 0 {
		s.renderError(c, http.StatusBadRequest, errors.New("batch has no names to classify"))
		return
	}

	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	if s.activeJob != nil {
		s.renderError(c, http.StatusConflict, errors.New("classification already running"))
		return
	}

	job, err := s.startClassification(req, nameBatch, int64(totalNames))
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusAccepted, StartEvaluationResponse{
		JobID:     job.id,
		BatchID:   nameBatch.ID,
		RequestID: job.requestID,
		Total:     job.total,
		StartedAt: job.startedAt,
	})
}

func (s *Server) handleCancelEvaluate(c *gin.Context) {
	jobID := strings.TrimSpace(c.Param("jobID"))
	if jobID == "" {
		s.renderError(c, http.StatusBadRequest, errors.New("job id required"))
		return
	}

	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	if s.activeJob == nil {
		s.renderError(c, http.StatusNotFound, errors.New("no classification running"))
		return
	}
	if s.activeJob.id != jobID {
		s.renderError(c, http.StatusNotFound, errors.New("job not found"))
		return
	}

	s.activeJob.cancel()
	logrus.WithField("job", jobID).Info("classification cancellation requested")
	s.notifier.Broadcast(JobEvent{
		Type:    "progress",
		JobID:   s.activeJob.id,
		BatchID: s.activeJob.batchID,
		Total:   s.activeJob.total,
		Message: "cancellation requested",
	})

	c.JSON(http.StatusAccepted, gin.H{"status": "cancelling"})
}

func (s *Server) handleEvaluateStatus(c *gin.Context) {
	s.jobMu.Lock()
	job := s.activeJob
	s.jobMu.Unlock()

	status := s.notifier.LastStatus()

	resp := EvaluateStatusResponse{
		Running: job != nil,
	}
	if job != nil {
		resp.JobID = job.id
		resp.BatchID = job.batchID
		resp.RequestID = job.requestID
		resp.Total = job.total
	}
	if status != nil {
		resp.State = status.Type
		resp.Message = status.Message
		if status.Processed != 0 {
			resp.Processed = status.Processed
		}
		if status.Total != 0 {
			resp.Total = status.Total
		}
		if status.BatchID != 0 {
			resp.BatchID = status.BatchID
		}
		if status.Record != nil {
			copyRec := *status.Record
			resp.LastRecord = &copyRec
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleEvaluateStream(c *gin.Context) {
	upgrader := websocket.Upgrader{
		HandshakeTimeout:  5 * time.Second,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.allowedOrigins) == 0 {
				return true
			}
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			for _, allowed := range s.allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("upgrade websocket")
		return
	}

	client := s.notifier.Register(conn)
	logrus.WithField("remote", conn.RemoteAddr().String()).Info("classification websocket connected")
	defer s.notifier.Unregister(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("remote", conn.RemoteAddr().String()).Info("classification websocket closed")
			} else {
				logrus.WithError(err).Warn("classification websocket unexpected close")
			}
			break
		}
	}
}

func (s *Server) handleResults(c *gin.Context) {
	batchID, ok := s.optionalBatchID(c)
	if !ok {
		return
	}
	s.renderResults(c, batchID)
}

func (s *Server) renderResults(c *gin.Context, batchID uint) {
	query := strings.TrimSpace(c.Query("q"))
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 0 {
		page = 0
	}
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	if pageSize <= 0 {
		pageSize = 100
	}
	offset := page * pageSize

	class := strings.TrimSpace(c.Query("class"))
	sort := strings.TrimSpace(c.Query("sort"))

	var conformant *bool
	if value := strings.TrimSpace(c.Query("conformant")); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			s.renderError(c, http.StatusBadRequest, fmt.Errorf("invalid conformant: %s", value))
			return
		}
		conformant = &parsed
	}

	rows, total, err := s.db.ListRecords(store.RecordQuery{
		Query:      query,
		Class:      class,
		Conformant: conformant,
		BatchID:    batchID,
		Sort:       sort,
		Offset:     offset,
		Limit:      pageSize,
	})
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	dtos := make([]RecordDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, FromModel(row))
	}
	c.JSON(http.StatusOK, EvaluateResponse{Items: dtos, Total: total})
}

func (s *Server) handleExportCSV(c *gin.Context) {
	rows, ok := s.exportRows(c)
	if !ok {
		return
	}
	c.Header("Content-Disposition", "attachment; filename=structure-names.csv")
	c.Header("Content-Type", "text/csv")
	if err := export.WriteCSV(c.Writer, rows); err != nil {
		logrus.WithError(err).Warn("write csv export")
	}
}

func (s *Server) handleExportXLSX(c *gin.Context) {
	rows, ok := s.exportRows(c)
	if !ok {
		return
	}
	c.Header("Content-Disposition", "attachment; filename=structure-names.xlsx")
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := export.WriteXLSX(c.Writer, rows); err != nil {
		logrus.WithError(err).Warn("write xlsx export")
	}
}

func (s *Server) exportRows(c *gin.Context) ([]store.ParsedRecord, bool) {
	batchID, ok := s.optionalBatchID(c)
	if !ok {
		return nil, false
	}
	rows, _, err := s.db.ListRecords(store.RecordQuery{Limit: -1, BatchID: batchID, Sort: "name_asc"})
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return nil, false
	}
	return rows, true
}

func (s *Server) optionalBatchID(c *gin.Context) (uint, bool) {
	value := strings.TrimSpace(firstNonEmpty(c.Query("batch_id"), c.Query("batchId")))
	if value == "" {
		return 0, true
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("invalid batch_id: %s", value))
		return 0, false
	}
	return uint(parsed), true
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}

func saveFormFile(header *multipart.FileHeader) (string, func(), error) {
	if header == nil {
		return "", nil, errors.New("file header is nil")
	}
	src, err := header.Open()
	if err != nil {
		return "", nil, err
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "upload-*"+filepath.Ext(header.Filename))
	if err != nil {
		return "", nil, err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, err
	}
	if err := tmp.Close(); err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }
	return tmp.Name(), cleanup, nil
}

type namesParseResult struct {
	batchNames    []store.BatchName
	uniqueNames   []string
	rowCount      int
	duplicateRows int
}

// parseNamesFile accepts either a plain list of names (one per line) or
// a CSV with a recognizable name column. Duplicate detection is
// case-insensitive.
func parseNamesFile(path string) (*namesParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var (
		nameCol         = -1
		headerProcessed bool
		seen            = make(map[string]string)
		order           []string
		rows            []store.BatchName
		rowIndex        int
	)

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read names file: %w", err)
		}
		if len(record) == 0 {
			continue
		}

		if !headerProcessed {
			nameCol = detectNameColumn(record)
			headerProcessed = true
			if nameCol >= 0 {
				continue
			}
			nameCol = 0
		}

		if nameCol < 0 || nameCol >= len(record) {
			nameCol = 0
		}

		value := strings.TrimSpace(strings.TrimPrefix(record[nameCol], "\ufeff"))
		if value == "" {
			continue
		}

		rowIndex++
		key := strings.ToLower(value)
		rows = append(rows, store.BatchName{Name: value, NameKey: key, RowIndex: rowIndex})

		if _, ok := seen[key]; !ok {
			seen[key] = value
			order = append(order, key)
		}
	}

	unique := make([]string, 0, len(order))
	for _, key := range order {
		unique = append(unique, seen[key])
	}

	duplicates := rowIndex - len(unique)
	if duplicates < 0 {
		duplicates = 0
	}

	return &namesParseResult{
		batchNames:    rows,
		uniqueNames:   unique,
		rowCount:      rowIndex,
		duplicateRows: duplicates,
	}, nil
}

func detectNameColumn(record []string) int {
	for idx, value := range record {
		normalized := strings.ToLower(strings.TrimSpace(value))
		switch normalized {
		case "name", "names", "structure", "structures", "structure_name", "structurename":
			return idx
		}
	}
	return -1
}

func parseUintParam(value string) (uint, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, errors.New("identifier is required")
	}
	parsed, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid identifier: %w", err)
	}
	if parsed == 0 {
		return 0, errors.New("identifier must be greater than zero")
	}
	return uint(parsed), nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
