package classify

import (
	"strings"
	"testing"
)

func TestClassifyPriorityOrder(t *testing.T) {
	// GTVp2 is also a legal basic-token sequence; the target grammar
	// must win.
	rec := Classify("GTVp2")
	if rec.Class != ClassTarget {
		t.Fatalf("expected Target, got %q", rec.Class)
	}
	if rec.TargetType != "GTV" || rec.TargetClassifier != "p" || rec.TargetNumber != "2" {
		t.Fatalf("unexpected target fields: %+v", rec)
	}

	// A z prefix overrides everything, even a valid target name.
	rec = Classify("zPTV_5040")
	if rec.Class != ClassNotEvaluated {
		t.Fatalf("expected NotEvaluated, got %q", rec.Class)
	}
	if rec.NotEvalPrefix != "z" || rec.NotEvalText != "PTV_5040" {
		t.Fatalf("unexpected not-evaluated fields: %+v", rec)
	}
	if !rec.Conformant || rec.Remainder != "" {
		t.Fatalf("not-evaluated names are conformant with empty remainder: %+v", rec)
	}
}

func TestClassifyNotEvaluated(t *testing.T) {
	for _, name := range []string{"zBody", "Z_Old_PTV", "_Unused"} {
		rec := Classify(name)
		if rec.Class != ClassNotEvaluated {
			t.Fatalf("%s: expected NotEvaluated, got %q", name, rec.Class)
		}
		if rec.NotEvalPrefix != name[:1] || rec.NotEvalText != name[1:] {
			t.Fatalf("%s: unexpected fields %+v", name, rec)
		}
	}
}

func TestClassifyTargetDecomposition(t *testing.T) {
	tests := []struct {
		name string
		want ParsedName
	}{
		{"PTV_Liver_5040", ParsedName{
			TargetType: "PTV", StructureIndicator: "Liver", DoseSpecifier: "5040",
		}},
		{"PTV", ParsedName{TargetType: "PTV"}},
		{"PTV!_Low", ParsedName{TargetType: "PTV!", DoseSpecifier: "Low"}},
		{"CTVsb", ParsedName{TargetType: "CTV", TargetClassifier: "sb"}},
		{"GTVp1", ParsedName{TargetType: "GTV", TargetClassifier: "p", TargetNumber: "1"}},
		{"PTV_Mid01", ParsedName{TargetType: "PTV", DoseSpecifier: "Mid01"}},
		{"PTV_High", ParsedName{TargetType: "PTV", DoseSpecifier: "High"}},
		{"PTV_Eval_7000-08", ParsedName{
			TargetType: "PTV", StructureIndicator: "Eval", DoseSpecifier: "7000", ExternalCropMM: "08",
		}},
		{"PTV-03", ParsedName{TargetType: "PTV", ExternalCropMM: "03"}},
		{"CTVp2-05", ParsedName{
			TargetType: "CTV", TargetClassifier: "p", TargetNumber: "2", ExternalCropMM: "05",
		}},
		{"PTV^Physician1", ParsedName{TargetType: "PTV", CustomQualifier: "Physician1"}},
		{"PTV_Liver_20Gyx3", ParsedName{
			TargetType: "PTV", StructureIndicator: "Liver", DoseSpecifier: "20Gyx3",
		}},
		{"GTV_Preop", ParsedName{TargetType: "GTV", StructureIndicator: "Preop"}},
		{"CTV_A_Aorta", ParsedName{TargetType: "CTV", StructureIndicator: "A_Aorta"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := Classify(tc.name)
			if rec.Class != ClassTarget {
				t.Fatalf("expected Target, got %q (remainder %q)", rec.Class, rec.Remainder)
			}
			if !rec.Conformant {
				t.Fatal("target names are conformant by construction")
			}
			if rec.TargetType != tc.want.TargetType {
				t.Errorf("type = %q, want %q", rec.TargetType, tc.want.TargetType)
			}
			if rec.TargetClassifier != tc.want.TargetClassifier {
				t.Errorf("classifier = %q, want %q", rec.TargetClassifier, tc.want.TargetClassifier)
			}
			if rec.TargetNumber != tc.want.TargetNumber {
				t.Errorf("number = %q, want %q", rec.TargetNumber, tc.want.TargetNumber)
			}
			if rec.StructureIndicator != tc.want.StructureIndicator {
				t.Errorf("indicator = %q, want %q", rec.StructureIndicator, tc.want.StructureIndicator)
			}
			if rec.DoseSpecifier != tc.want.DoseSpecifier {
				t.Errorf("dose = %q, want %q", rec.DoseSpecifier, tc.want.DoseSpecifier)
			}
			if rec.ExternalCropMM != tc.want.ExternalCropMM {
				t.Errorf("crop = %q, want %q", rec.ExternalCropMM, tc.want.ExternalCropMM)
			}
			if rec.CustomQualifier != tc.want.CustomQualifier {
				t.Errorf("custom = %q, want %q", rec.CustomQualifier, tc.want.CustomQualifier)
			}
		})
	}
}

func TestClassifyTargetModalities(t *testing.T) {
	rec := Classify("PTV_MR2_Prostate")
	if rec.Class != ClassTarget {
		t.Fatalf("expected Target, got %q", rec.Class)
	}
	if len(rec.Modalities) != 1 || rec.Modalities[0].Code != "MR" || rec.Modalities[0].Sequence != "2" {
		t.Fatalf("unexpected modalities: %+v", rec.Modalities)
	}
	if rec.StructureIndicator != "Prostate" {
		t.Fatalf("indicator = %q, want Prostate", rec.StructureIndicator)
	}

	rec = Classify("GTV_CTPT1_Lung")
	if len(rec.Modalities) != 2 {
		t.Fatalf("expected two modalities, got %+v", rec.Modalities)
	}
	if rec.Modalities[0].Code != "CT" || rec.Modalities[0].Sequence != "" {
		t.Fatalf("first modality = %+v", rec.Modalities[0])
	}
	if rec.Modalities[1].Code != "PT" || rec.Modalities[1].Sequence != "1" {
		t.Fatalf("second modality = %+v", rec.Modalities[1])
	}

	rec = Classify("GTV_CT_Liver")
	if len(rec.Modalities) != 1 || rec.Modalities[0].Code != "CT" || rec.Modalities[0].Sequence != "" {
		t.Fatalf("unexpected modalities: %+v", rec.Modalities)
	}
	if rec.StructureIndicator != "Liver" {
		t.Fatalf("indicator = %q, want Liver", rec.StructureIndicator)
	}

	// The modality parse of CTs dead-ends (nothing may follow a modality
	// block without a delimiter), so the scanner backs off and takes the
	// whole token as a structure indicator.
	rec = Classify("PTV_CTs")
	if rec.Class != ClassTarget {
		t.Fatalf("expected Target, got %q", rec.Class)
	}
	if len(rec.Modalities) != 0 {
		t.Fatalf("expected no modalities, got %+v", rec.Modalities)
	}
	if rec.StructureIndicator != "CTs" {
		t.Fatalf("indicator = %q, want CTs", rec.StructureIndicator)
	}
}

func TestClassifyCroppedOAR(t *testing.T) {
	tests := []struct {
		name       string
		oar        string
		targetType string
		classifier string
		number     string
	}{
		{"Brain-GTV", "Brain", "GTV", "", ""},
		{"Stomach-PTVp2", "Stomach", "PTV", "p", "2"},
		{"Lung_L-PTV", "Lung_L", "PTV", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := Classify(tc.name)
			if rec.Class != ClassCroppedOAR {
				t.Fatalf("expected CroppedOAR, got %q", rec.Class)
			}
			if !rec.Conformant {
				t.Fatal("cropped OARs are conformant by construction")
			}
			if rec.OARName != tc.oar {
				t.Errorf("oar = %q, want %q", rec.OARName, tc.oar)
			}
			if rec.TargetType != tc.targetType || rec.TargetClassifier != tc.classifier || rec.TargetNumber != tc.number {
				t.Errorf("target crop = %q/%q/%q, want %q/%q/%q",
					rec.TargetType, rec.TargetClassifier, rec.TargetNumber,
					tc.targetType, tc.classifier, tc.number)
			}
		})
	}
}

func TestClassifyBasicOAR(t *testing.T) {
	tests := []struct {
		name string
		want ParsedName
	}{
		{"Brain", ParsedName{BaseStructure: "Brain", Conformant: true}},
		{"Lung_L", ParsedName{BaseStructure: "Lung", SpatialIndicator: "L", Conformant: true}},
		{"Lungs", ParsedName{BaseStructure: "Lungs", Conformant: true}},
		{"SpinalCord_PRV05", ParsedName{BaseStructure: "SpinalCord", PRV: true, PRVSize: "05", Conformant: true}},
		{"Brain~", ParsedName{BaseStructure: "Brain", Partial: true, Conformant: true}},
		{"A_Aorta", ParsedName{StructureCategory: "A", BaseStructure: "Aorta", Conformant: true}},
		{"VB_L3", ParsedName{StructureCategory: "VB", VertebraeLevel: "L", VertebraeNumber: "3", Conformant: true}},
		{"VB_S", ParsedName{StructureCategory: "VB", VertebraeLevel: "S", Conformant: true}},
		{"CN_IX_L", ParsedName{StructureCategory: "CN", NerveLevel: "IX", SpatialIndicator: "L", Conformant: true}},
		{"CN_I", ParsedName{StructureCategory: "CN", NerveLevel: "I", Conformant: true}},
		{"LN_Neck_IA_L", ParsedName{StructureCategory: "LN", NeckNodeLevel: "IA", SpatialIndicator: "L", Conformant: true}},
		{"Nasalconcha_LI", ParsedName{BaseStructure: "Nasalconcha", SpatialIndicator: "LI", Conformant: true}},
		{"Lungs^Ex", ParsedName{BaseStructure: "Lungs", CustomStructure: "Ex", Conformant: true}},
		{"Glnd_Submand_L", ParsedName{StructureCategory: "Glnd", BaseStructure: "Submand", SpatialIndicator: "L", Conformant: true}},
		{"Rib01", ParsedName{BaseStructure: "Rib", StructureNumber: "01", Conformant: true}},
		{"Bowel_Bag", ParsedName{BaseStructure: "Bowel", StructureQualifier: "Bag", Conformant: true}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := Classify(tc.name)
			if rec.Class != ClassBasicOAR {
				t.Fatalf("expected BasicOAR, got %q", rec.Class)
			}
			if rec.Conformant != tc.want.Conformant {
				t.Fatalf("conformant = %v (remainder %q)", rec.Conformant, rec.Remainder)
			}
			if rec.StructureCategory != tc.want.StructureCategory {
				t.Errorf("category = %q, want %q", rec.StructureCategory, tc.want.StructureCategory)
			}
			if rec.BaseStructure != tc.want.BaseStructure {
				t.Errorf("base = %q, want %q", rec.BaseStructure, tc.want.BaseStructure)
			}
			if rec.SpatialIndicator != tc.want.SpatialIndicator {
				t.Errorf("spatial = %q, want %q", rec.SpatialIndicator, tc.want.SpatialIndicator)
			}
			if rec.VertebraeLevel != tc.want.VertebraeLevel || rec.VertebraeNumber != tc.want.VertebraeNumber {
				t.Errorf("vertebra = %q/%q, want %q/%q",
					rec.VertebraeLevel, rec.VertebraeNumber, tc.want.VertebraeLevel, tc.want.VertebraeNumber)
			}
			if rec.NerveLevel != tc.want.NerveLevel {
				t.Errorf("nerve = %q, want %q", rec.NerveLevel, tc.want.NerveLevel)
			}
			if rec.NeckNodeLevel != tc.want.NeckNodeLevel {
				t.Errorf("neck node = %q, want %q", rec.NeckNodeLevel, tc.want.NeckNodeLevel)
			}
			if rec.Plural != tc.want.Plural {
				t.Errorf("plural = %v, want %v", rec.Plural, tc.want.Plural)
			}
			if rec.PRV != tc.want.PRV || rec.PRVSize != tc.want.PRVSize {
				t.Errorf("prv = %v/%q, want %v/%q", rec.PRV, rec.PRVSize, tc.want.PRV, tc.want.PRVSize)
			}
			if rec.Partial != tc.want.Partial {
				t.Errorf("partial = %v, want %v", rec.Partial, tc.want.Partial)
			}
			if rec.CustomStructure != tc.want.CustomStructure {
				t.Errorf("custom = %q, want %q", rec.CustomStructure, tc.want.CustomStructure)
			}
			if rec.StructureQualifier != tc.want.StructureQualifier {
				t.Errorf("qualifier = %q, want %q", rec.StructureQualifier, tc.want.StructureQualifier)
			}
			if rec.StructureNumber != tc.want.StructureNumber {
				t.Errorf("number = %q, want %q", rec.StructureNumber, tc.want.StructureNumber)
			}
		})
	}
}

func TestClassifyVertebraAnteriorSegment(t *testing.T) {
	// The anterior segment label is not a spatial code; it lands in the
	// base-structure slot and the name is still fully consumed.
	rec := Classify("VB_L3_Ant")
	if rec.Class != ClassBasicOAR {
		t.Fatalf("expected BasicOAR, got %q", rec.Class)
	}
	if rec.VertebraeLevel != "L" || rec.VertebraeNumber != "3" {
		t.Fatalf("vertebra = %q/%q", rec.VertebraeLevel, rec.VertebraeNumber)
	}
	if rec.BaseStructure != "Ant" {
		t.Fatalf("base = %q, want Ant", rec.BaseStructure)
	}
	if !rec.Conformant || rec.Remainder != "" {
		t.Fatalf("expected conformant with empty remainder, got %v %q", rec.Conformant, rec.Remainder)
	}
}

func TestClassifyPartialConsumption(t *testing.T) {
	// A valid token sequence the reduction rules cannot fully consume: the
	// class sticks but the name is flagged nonconformant and the leftover
	// text is preserved for diagnosis.
	rec := Classify("OpticNerveChiasm")
	if rec.Class != ClassBasicOAR {
		t.Fatalf("expected BasicOAR, got %q", rec.Class)
	}
	if rec.Conformant {
		t.Fatal("expected nonconformant")
	}
	if rec.BaseStructure != "OpticNerve" {
		t.Fatalf("base = %q, want OpticNerve", rec.BaseStructure)
	}
	if rec.Remainder != "Chiasm" {
		t.Fatalf("remainder = %q, want Chiasm", rec.Remainder)
	}
}

func TestClassifyTotalFailure(t *testing.T) {
	// LN_lliac_Int_R has a lowercase typo, so it is not a token sequence
	// and no top-level alternative accepts it.
	for _, name := range []string{"brain", "Spinal Cord", "1Side", "LN_lliac_Int_R", ""} {
		rec := Classify(name)
		if rec.Class != ClassNone {
			t.Fatalf("%q: expected no class, got %q", name, rec.Class)
		}
		if rec.Conformant {
			t.Fatalf("%q: total failures are nonconformant", name)
		}
		if rec.Remainder != name {
			t.Fatalf("%q: remainder = %q, want full name", name, rec.Remainder)
		}
	}
}

func TestRemainderNeverGrows(t *testing.T) {
	// The reduction rules only ever consume; whatever is left is a
	// substring of the input.
	names := []string{
		"Brain", "Lung_L", "SpinalCord_PRV05", "VB_L3_Ant", "LN_Neck_IA_L",
		"OpticNerveChiasm", "Lungs^Ex", "Glnd_Submand_L", "Rib01",
	}
	for _, name := range names {
		rec := Classify(name)
		if len(rec.Remainder) > len(name) {
			t.Fatalf("%q: remainder %q longer than input", name, rec.Remainder)
		}
		if rec.Remainder != "" && !strings.Contains(name, rec.Remainder) {
			t.Fatalf("%q: remainder %q is not part of the input", name, rec.Remainder)
		}
	}
}

func TestClassifyIdempotent(t *testing.T) {
	names := []string{"PTV_Liver_5040", "Brain-GTV", "LN_Neck_IA_L", "zBody", "LN_lliac_Int_R"}
	for _, name := range names {
		first := Classify(name)
		second := Classify(name)
		if first.Class != second.Class || first.Remainder != second.Remainder ||
			first.Conformant != second.Conformant {
			t.Fatalf("%q: classification not repeatable: %+v vs %+v", name, first, second)
		}
	}
}
