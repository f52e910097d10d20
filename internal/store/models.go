package store

import (
	"encoding/json"
	"strings"
	"time"

	"structure-name-eval/internal/classify"
)

// ParsedRecord is the persisted decomposition of one structure name.
// Optional components are empty strings; dose numerics are NULL when
// the specifier was absent or malformed. NameKey is the lowercased name
// and doubles as the duplicate-detection key.
type ParsedRecord struct {
	ID      uint   `gorm:"primaryKey"`
	Name    string `gorm:"size:255;index"`
	NameKey string `gorm:"size:255;uniqueIndex"`
	Class   string `gorm:"size:16;index"`

	NotEvalPrefix string `gorm:"size:1"`
	NotEvalText   string `gorm:"size:255"`

	TargetType         string `gorm:"size:8"`
	TargetClassifier   string `gorm:"size:8"`
	TargetNumber       string `gorm:"size:4"`
	ModalitiesJSON     string `gorm:"type:text"`
	StructureIndicator string `gorm:"size:64"`
	DoseSpecifier      string `gorm:"size:32"`
	ExternalCropMM     string `gorm:"size:4"`
	CustomQualifier    string `gorm:"size:64"`

	OARName string `gorm:"size:64"`

	StructureCategory  string `gorm:"size:8"`
	Plural             bool
	CustomStructure    string `gorm:"size:64"`
	VertebraeLevel     string `gorm:"size:2"`
	VertebraeNumber    string `gorm:"size:4"`
	NerveLevel         string `gorm:"size:8"`
	NeckNodeLevel      string `gorm:"size:8"`
	SpatialIndicator   string `gorm:"size:16"`
	PRV                bool
	PRVSize            string `gorm:"size:4"`
	Partial            bool
	BaseStructure      string `gorm:"size:64"`
	StructureQualifier string `gorm:"size:64"`
	StructureNumber    string `gorm:"size:8"`

	TotalDoseCGy *float64
	Fractions    *int

	Remainder        string `gorm:"size:255"`
	Conformant       bool   `gorm:"index"`
	ValidLength      bool
	ProcessingTimeMs int64
	CreatedAt        time.Time `gorm:"autoCreateTime"`
}

// SetModalities persists the modality pairs as JSON.
func (r *ParsedRecord) SetModalities(mods []classify.Modality) {
	if len(mods) == 0 {
		r.ModalitiesJSON = ""
		return
	}
	payload, _ := json.Marshal(mods)
	r.ModalitiesJSON = string(payload)
}

// Modalities returns the decoded modality pairs.
func (r *ParsedRecord) Modalities() []classify.Modality {
	if strings.TrimSpace(r.ModalitiesJSON) == "" {
		return nil
	}
	var out []classify.Modality
	if err := json.Unmarshal([]byte(r.ModalitiesJSON), &out); err != nil {
		return nil
	}
	return out
}

// RecordFromParsed flattens a classification result into its storage
// shape.
func RecordFromParsed(p classify.ParsedName, validLength bool, elapsedMs int64) *ParsedRecord {
	rec := &ParsedRecord{
		Name:               p.Name,
		NameKey:            normalizeNameKey(p.Name),
		Class:              string(p.Class),
		NotEvalPrefix:      p.NotEvalPrefix,
		NotEvalText:        p.NotEvalText,
		TargetType:         p.TargetType,
		TargetClassifier:   p.TargetClassifier,
		TargetNumber:       p.TargetNumber,
		StructureIndicator: p.StructureIndicator,
		DoseSpecifier:      p.DoseSpecifier,
		ExternalCropMM:     p.ExternalCropMM,
		CustomQualifier:    p.CustomQualifier,
		OARName:            p.OARName,
		StructureCategory:  p.StructureCategory,
		Plural:             p.Plural,
		CustomStructure:    p.CustomStructure,
		VertebraeLevel:     p.VertebraeLevel,
		VertebraeNumber:    p.VertebraeNumber,
		NerveLevel:         p.NerveLevel,
		NeckNodeLevel:      p.NeckNodeLevel,
		SpatialIndicator:   p.SpatialIndicator,
		PRV:                p.PRV,
		PRVSize:            p.PRVSize,
		Partial:            p.Partial,
		BaseStructure:      p.BaseStructure,
		StructureQualifier: p.StructureQualifier,
		StructureNumber:    p.StructureNumber,
		TotalDoseCGy:       p.TotalDoseCGy,
		Fractions:          p.Fractions,
		Remainder:          p.Remainder,
		Conformant:         p.Conformant,
		ValidLength:        validLength,
		ProcessingTimeMs:   elapsedMs,
	}
	rec.SetModalities(p.Modalities)
	return rec
}

// Parsed rebuilds the classification result from the stored row.
func (r *ParsedRecord) Parsed() classify.ParsedName {
	return classify.ParsedName{
		Name:               r.Name,
		Class:              classify.StructureClass(r.Class),
		NotEvalPrefix:      r.NotEvalPrefix,
		NotEvalText:        r.NotEvalText,
		TargetType:         r.TargetType,
		TargetClassifier:   r.TargetClassifier,
		TargetNumber:       r.TargetNumber,
		Modalities:         r.Modalities(),
		StructureIndicator: r.StructureIndicator,
		DoseSpecifier:      r.DoseSpecifier,
		ExternalCropMM:     r.ExternalCropMM,
		CustomQualifier:    r.CustomQualifier,
		OARName:            r.OARName,
		StructureCategory:  r.StructureCategory,
		Plural:             r.Plural,
		CustomStructure:    r.CustomStructure,
		VertebraeLevel:     r.VertebraeLevel,
		VertebraeNumber:    r.VertebraeNumber,
		NerveLevel:         r.NerveLevel,
		NeckNodeLevel:      r.NeckNodeLevel,
		SpatialIndicator:   r.SpatialIndicator,
		PRV:                r.PRV,
		PRVSize:            r.PRVSize,
		Partial:            r.Partial,
		BaseStructure:      r.BaseStructure,
		StructureQualifier: r.StructureQualifier,
		StructureNumber:    r.StructureNumber,
		TotalDoseCGy:       r.TotalDoseCGy,
		Fractions:          r.Fractions,
		Remainder:          r.Remainder,
		Conformant:         r.Conformant,
	}
}

// NameBatch represents an uploaded list of structure names.
type NameBatch struct {
	ID               uint   `gorm:"primaryKey"`
	Name             string `gorm:"size:128;index"`
	Owner            string `gorm:"size:128;index"`
	OriginalFilename string `gorm:"size:256"`
	RowCount         int
	UniqueNames      int
	DuplicateRows    int
	OverlengthNames  int
	ProcessedNames   int
	LastEvaluatedAt  *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// BatchName links structure names to batches, one row per occurrence.
type BatchName struct {
	ID        uint   `gorm:"primaryKey"`
	BatchID   uint   `gorm:"index"`
	Name      string `gorm:"size:255;index"`
	NameKey   string `gorm:"size:255;index"`
	RowIndex  int
	CreatedAt time.Time
}

// BatchRequest tracks a classification job for a batch.
type BatchRequest struct {
	ID         uint   `gorm:"primaryKey"`
	BatchID    uint   `gorm:"index"`
	Type       string `gorm:"size:32"`
	Status     string `gorm:"size:32"`
	JobID      string `gorm:"size:64"`
	StartedAt  time.Time
	FinishedAt *time.Time
	CreatedAt  time.Time
}
