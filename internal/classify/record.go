// Package classify decomposes TG-263 structure names into typed fields.
// Classification is a pure function of the input string and the static
// rule tables in internal/grammar; names may be classified in parallel
// without coordination.
package classify

// StructureClass is the mutually exclusive top-level bucket a name
// falls into. Empty means no alternative matched at all.
type StructureClass string

const (
	ClassNone         StructureClass = ""
	ClassNotEvaluated StructureClass = "NotEvaluated"
	ClassTarget       StructureClass = "Target"
	ClassCroppedOAR   StructureClass = "CroppedOAR"
	ClassBasicOAR     StructureClass = "BasicOAR"
)

// Modality is one imaging-modality reference inside a target name,
// e.g. MR2 -> {Code: "MR", Sequence: "2"}.
type Modality struct {
	Code     string `json:"code"`
	Sequence string `json:"sequence,omitempty"`
}

// ParsedName is the structured decomposition of one structure name.
// Optional string fields are empty when the corresponding component was
// not present; optional numerics are nil. A record is assembled once
// and never mutated afterwards.
type ParsedName struct {
	Name  string         `json:"name"`
	Class StructureClass `json:"structure_class,omitempty"`

	// NotEvaluated names carry an opaque body after the z/Z/_ prefix.
	NotEvalPrefix string `json:"not_eval_prefix,omitempty"`
	NotEvalText   string `json:"not_eval_text,omitempty"`

	// Target fields. TargetType/TargetClassifier/TargetNumber double as
	// the target-crop block of a CroppedOAR.
	TargetType         string     `json:"target_type,omitempty"`
	TargetClassifier   string     `json:"target_classifier,omitempty"`
	TargetNumber       string     `json:"target_number,omitempty"`
	Modalities         []Modality `json:"modalities,omitempty"`
	StructureIndicator string     `json:"structure_indicator,omitempty"`
	DoseSpecifier      string     `json:"dose_specifier,omitempty"`
	ExternalCropMM     string     `json:"external_crop_mm,omitempty"`
	CustomQualifier    string     `json:"custom_qualifier,omitempty"`

	// CroppedOAR: the organ portion in front of the subtracted target.
	OARName string `json:"oar_name,omitempty"`

	// BasicOAR fields extracted by the reduction pipeline.
	StructureCategory  string `json:"structure_category,omitempty"`
	Plural             bool   `json:"plural,omitempty"`
	CustomStructure    string `json:"custom_structure,omitempty"`
	VertebraeLevel     string `json:"vertebrae_level,omitempty"`
	VertebraeNumber    string `json:"vertebrae_number,omitempty"`
	NerveLevel         string `json:"nerve_level,omitempty"`
	NeckNodeLevel      string `json:"neck_node_level,omitempty"`
	SpatialIndicator   string `json:"spatial_indicator,omitempty"`
	PRV                bool   `json:"prv,omitempty"`
	PRVSize            string `json:"prv_size,omitempty"`
	Partial            bool   `json:"partial,omitempty"`
	BaseStructure      string `json:"base_structure,omitempty"`
	StructureQualifier string `json:"structure_qualifier,omitempty"`
	StructureNumber    string `json:"structure_number,omitempty"`

	// Filled by the batch driver from DoseSpecifier; nil when the
	// specifier is absent or malformed.
	TotalDoseCGy *float64 `json:"total_dose_cgy,omitempty"`
	Fractions    *int     `json:"fractions,omitempty"`

	// Remainder is the text the reduction pipeline could not account
	// for. A name is conformant iff the remainder is empty, or its
	// class grammar already required full-string consumption.
	Remainder  string `json:"remainder,omitempty"`
	Conformant bool   `json:"conformant"`
}
