package grammar

import "testing"

func TestMatchesSequence(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		match bool
	}{
		{"simple word", "Brain", true},
		{"uppercase run", "LN", true},
		{"two segments", "SpinalCord", true},
		{"underscore join", "Lung_L", true},
		{"plural marker", "Lungs", true},
		{"partial marker", "Brain~", true},
		{"digits", "Rib01", true},
		{"caret", "Lungs^Ex", true},
		{"roman levels", "CN_IX_L", true},
		{"lowercase start", "brain", false},
		{"space", "Spinal Cord", false},
		{"hyphen", "Brain-GTV", false},
		{"empty", "", false},
		{"three digits", "Rib012", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := MatchesSequence(tc.text); got != tc.match {
				t.Fatalf("MatchesSequence(%q) = %v, want %v", tc.text, got, tc.match)
			}
		})
	}
}

func TestSequenceEndsOrdering(t *testing.T) {
	ends := SequenceEnds("Liver_5")
	if len(ends) == 0 {
		t.Fatal("expected at least one end")
	}
	for i := 1; i < len(ends); i++ {
		if ends[i] <= ends[i-1] {
			t.Fatalf("ends not strictly ascending: %v", ends)
		}
	}
	// "Liver" and "Liver_" are both valid stopping points.
	want := map[int]bool{5: true, 6: true}
	found := 0
	for _, e := range ends {
		if want[e] {
			found++
		}
	}
	if found != len(want) {
		t.Fatalf("missing expected ends in %v", ends)
	}
}

func TestScanTargetType(t *testing.T) {
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"PTV_Liver", "PTV", true},
		{"PTV!_Low", "PTV!", true},
		{"IGTV2", "IGTV", true},
		{"GTVp", "GTV", true},
		{"Brain", "", false},
	}
	for _, tc := range tests {
		got, ok := ScanTargetType(tc.text)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ScanTargetType(%q) = %q,%v want %q,%v", tc.text, got, ok, tc.want, tc.ok)
		}
	}
}

func TestClassifierCandidates(t *testing.T) {
	got := ClassifierCandidates("par_Liver")
	if len(got) != 3 || got[0] != "par" || got[1] != "p" || got[2] != "" {
		t.Fatalf("expected [par p \"\"], got %v", got)
	}
	got = ClassifierCandidates("Liver")
	if len(got) != 1 || got[0] != "" {
		t.Fatalf("expected only the absent candidate, got %v", got)
	}
}

func TestCategoryRule(t *testing.T) {
	tests := []struct {
		name      string
		remainder string
		category  string
		plural    string
		rest      string
		fires     bool
	}{
		{"artery", "A_Aorta", "A", "", "Aorta", true},
		{"vein before vertebra", "V_Portal", "V", "", "Portal", true},
		{"vertebra", "VB_L3", "VB", "", "L3", true},
		{"plural vertebrae", "VBs", "VB", "s", "", true},
		{"lymph node", "LN_Neck_IA_L", "LN", "", "Neck_IA_L", true},
		{"no category", "Brain", "", "", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			groups, ok := CategoryRule.Apply(tc.remainder)
			if ok != tc.fires {
				t.Fatalf("fires = %v, want %v", ok, tc.fires)
			}
			if !ok {
				return
			}
			if groups["StructureCategory"] != tc.category {
				t.Fatalf("category = %q, want %q", groups["StructureCategory"], tc.category)
			}
			if groups["Plural"] != tc.plural {
				t.Fatalf("plural = %q, want %q", groups["Plural"], tc.plural)
			}
			if groups["Remainder"] != tc.rest {
				t.Fatalf("remainder = %q, want %q", groups["Remainder"], tc.rest)
			}
		})
	}
}

func TestSpatialRule(t *testing.T) {
	tests := []struct {
		name      string
		remainder string
		spatial   string
		rest      string
		fires     bool
	}{
		{"left", "Lung_L", "L", "Lung", true},
		{"compound", "Nasalconcha_LI", "LI", "Nasalconcha", true},
		{"lobe", "Lung_RUL", "RUL", "Lung", true},
		{"medial", "Lobe_M", "M", "Lobe", true},
		{"middle lobe", "Lung_RML", "RML", "Lung", true},
		{"bare code", "L", "L", "", true},
		{"no spatial", "Brain", "", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			groups, ok := SpatialRule.Apply(tc.remainder)
			if ok != tc.fires {
				t.Fatalf("fires = %v, want %v", ok, tc.fires)
			}
			if !ok {
				return
			}
			if groups["SpatialIndicator"] != tc.spatial {
				t.Fatalf("spatial = %q, want %q", groups["SpatialIndicator"], tc.spatial)
			}
			if groups["Remainder"] != tc.rest {
				t.Fatalf("remainder = %q, want %q", groups["Remainder"], tc.rest)
			}
		})
	}
}

func TestPRVRule(t *testing.T) {
	groups, ok := PRVRule.Apply("SpinalCord_PRV05")
	if !ok {
		t.Fatal("expected rule to fire")
	}
	if groups["Remainder"] != "SpinalCord" || groups["PrvSize"] != "05" {
		t.Fatalf("unexpected groups: %v", groups)
	}

	groups, ok = PRVRule.Apply("Brainstem_PRV")
	if !ok {
		t.Fatal("expected rule to fire without size")
	}
	if groups["Remainder"] != "Brainstem" || groups["PrvSize"] != "" {
		t.Fatalf("unexpected groups: %v", groups)
	}

	if _, ok := PRVRule.Apply("Brainstem"); ok {
		t.Fatal("rule should not fire without PRV marker")
	}
}

func TestBaseStructureRule(t *testing.T) {
	tests := []struct {
		name      string
		remainder string
		base      string
		qualifier string
		number    string
		rest      string
	}{
		{"simple", "Brain", "Brain", "", "", ""},
		{"camel case", "SpinalCord", "SpinalCord", "", "", ""},
		{"qualifier", "Bowel_Bag", "Bowel", "Bag", "", ""},
		{"numbered", "Rib01", "Rib", "", "01", ""},
		{"residual", "lliac_Int_R", "", "", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			groups, ok := BaseStructureRule.Apply(tc.remainder)
			if tc.base == "" {
				if ok {
					t.Fatalf("expected no match, got %v", groups)
				}
				return
			}
			if !ok {
				t.Fatal("expected rule to fire")
			}
			if groups["BaseStructure"] != tc.base {
				t.Fatalf("base = %q, want %q", groups["BaseStructure"], tc.base)
			}
			if groups["StructureQualifier"] != tc.qualifier {
				t.Fatalf("qualifier = %q, want %q", groups["StructureQualifier"], tc.qualifier)
			}
			if groups["StructureNumber"] != tc.number {
				t.Fatalf("number = %q, want %q", groups["StructureNumber"], tc.number)
			}
			if groups["Remainder"] != tc.rest {
				t.Fatalf("remainder = %q, want %q", groups["Remainder"], tc.rest)
			}
		})
	}
}
