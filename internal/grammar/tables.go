// Package grammar holds the TG-263 token tables and the compiled
// sub-patterns shared by every classification rule. All data here is
// built once at init and never mutated.
package grammar

// CategoryNames maps non-target structure-category prefixes to their
// long names.
var CategoryNames = map[string]string{
	"A":     "artery",
	"V":     "vein",
	"LN":    "lymph node",
	"CN":    "cranial nerve",
	"Glnd":  "glandular structure",
	"Bone":  "bone",
	"Musc":  "muscle",
	"Spc":   "space",
	"VB":    "vertebral body",
	"Sinus": "sinus",
}

// VertebraeLevels maps the vertebra-level letter used after a VB
// category to the spine region it denotes.
var VertebraeLevels = map[string]string{
	"C": "Cervical",
	"T": "Thoracic",
	"L": "Lumbar",
	"S": "Sacral",
}

// SpatialNames maps spatial-indicator codes to their meanings. Codes
// may be concatenated in a name (e.g. LI = left inferior).
var SpatialNames = map[string]string{
	"L":    "left",
	"R":    "right",
	"A":    "anterior",
	"P":    "posterior",
	"I":    "inferior",
	"S":    "superior",
	"M":    "middle",
	"RUL":  "right upper lobe",
	"RLL":  "right lower lobe",
	"RML":  "right middle lobe",
	"LUL":  "left upper lobe",
	"LLL":  "left lower lobe",
	"NAdj": "non-adjacent",
	"Dist": "distal",
	"Prox": "proximal",
}

// TargetTypeNames maps target-type codes to their long names.
var TargetTypeNames = map[string]string{
	"GTV":  "Gross Target Volume",
	"CTV":  "Clinical Target Volume",
	"PTV":  "Planning Target Volume",
	"ITV":  "Internal Target Volume",
	"IGTV": "Internal Gross Target Volume",
	"ICTV": "Internal Clinical Target Volume",
	"PTV!": "Partial Planning Target Volume",
}

// TargetClassifierNames maps target-classifier codes to their meanings.
var TargetClassifierNames = map[string]string{
	"n":   "nodal",
	"p":   "primary",
	"sb":  "surgical bed",
	"par": "parenchyma",
	"v":   "venous thrombosis",
	"vas": "vascular",
}

// ModalityNames maps imaging-modality codes to their long names.
var ModalityNames = map[string]string{
	"CT": "CT",
	"PT": "PET",
	"MR": "MRI",
	"US": "ultrasound",
	"SP": "SPECT",
}

// targetTypeTokens is ordered longest-first so that IGTV, ICTV and PTV!
// are recognized before their GTV/CTV/PTV/ITV prefixes. The scanner
// commits to the first token that lets the rest of the name parse.
var targetTypeTokens = []string{"IGTV", "ICTV", "PTV!", "GTV", "CTV", "PTV", "ITV"}

// targetClassifierTokens is ordered so that the multi-letter codes are
// tried before their single-letter prefixes (par before p, vas before v).
var targetClassifierTokens = []string{"par", "vas", "sb", "n", "p", "v"}

// modalityCodes are the two-letter imaging modality codes in scan order.
var modalityCodes = []string{"CT", "PT", "MR", "US", "SP"}
