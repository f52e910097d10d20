package classify

import (
	"strings"

	"structure-name-eval/internal/grammar"
)

// targetFields holds the components of a target name while the scanner
// is still deciding between alternatives.
type targetFields struct {
	Type       string
	Classifier string
	Number     string
	Modalities []Modality
	Indicator  string
	Dose       string
	CropMM     string
	Custom     string
}

// targetScan walks the target grammar left to right. Every optional
// component is a choice point; choices are tried in the grammar's
// preference order (longer captures first, component present before
// absent) and the first combination that consumes the whole string
// wins. Field assignments from failed branches are overwritten or
// cleared on the way out, so a true return leaves f consistent.
type targetScan struct {
	s string
	f targetFields
}

// scanTarget decomposes a target name. ok is false when the name does
// not consume fully under the target grammar.
func scanTarget(name string) (targetFields, bool) {
	t := &targetScan{s: name}
	tt, ok := grammar.ScanTargetType(name)
	if !ok {
		return targetFields{}, false
	}
	t.f.Type = tt
	p := len(tt)
	for _, cl := range grammar.ClassifierCandidates(name[p:]) {
		t.f.Classifier = cl
		q := p + len(cl)
		for dl := digitRun(name, q, 2); dl >= 0; dl-- {
			t.f.Number = name[q : q+dl]
			if t.modality(q + dl) {
				return t.f, true
			}
		}
	}
	return targetFields{}, false
}

// modality consumes an optional underscore-delimited block of one or
// two modality-code+sequence-number pairs (PTV_MR2_Prostate). The pairs
// are not separated from each other.
func (t *targetScan) modality(pos int) bool {
	if pos < len(t.s) && t.s[pos] == '_' {
		if code1, ok := grammar.ScanModalityCode(t.s[pos+1:]); ok {
			p1 := pos + 1 + len(code1)
			for d1 := digitRun(t.s, p1, 2); d1 >= 0; d1-- {
				first := Modality{Code: code1, Sequence: t.s[p1 : p1+d1]}
				q := p1 + d1
				if code2, ok := grammar.ScanModalityCode(t.s[q:]); ok {
					p2 := q + len(code2)
					for d2 := digitRun(t.s, p2, 2); d2 >= 0; d2-- {
						t.f.Modalities = []Modality{first, {Code: code2, Sequence: t.s[p2 : p2+d2]}}
						if t.structInd(p2 + d2) {
							return true
						}
					}
				}
				t.f.Modalities = []Modality{first}
				if t.structInd(q) {
					return true
				}
			}
		}
	}
	t.f.Modalities = nil
	return t.structInd(pos)
}

// structInd consumes an optional underscore-delimited basic-token
// sequence (PTV_Liver_5040). Text starting with Hig, Mid or Low is
// reserved for the dose specifier and never taken as an indicator.
func (t *targetScan) structInd(pos int) bool {
	if pos < len(t.s) && t.s[pos] == '_' {
		rest := t.s[pos+1:]
		if !strings.HasPrefix(rest, "Hig") && !strings.HasPrefix(rest, "Mid") && !strings.HasPrefix(rest, "Low") {
			ends := grammar.SequenceEnds(rest)
			for i := len(ends) - 1; i >= 0; i-- {
				t.f.Indicator = rest[:ends[i]]
				if t.dose(pos + 1 + ends[i]) {
					return true
				}
			}
		}
	}
	t.f.Indicator = ""
	return t.dose(pos)
}

// dose consumes an optional underscore-delimited dose specifier:
// relative dose, dose-per-fraction, or plain numeric dose, tried in
// that order. Fraction form must precede plain numeric form because the
// latter is a prefix of the former.
func (t *targetScan) dose(pos int) bool {
	if pos < len(t.s) && t.s[pos] == '_' {
		start := pos + 1
		for _, end := range doseEnds(t.s, start) {
			t.f.Dose = t.s[start:end]
			if t.crop(end) {
				return true
			}
		}
	}
	t.f.Dose = ""
	return t.crop(pos)
}

// crop consumes an optional external-crop suffix: a '-' sign and a
// two-digit size in millimeters (PTV-03, PTV_Eval_7000-08).
func (t *targetScan) crop(pos int) bool {
	if pos < len(t.s) && t.s[pos] == '-' && digitRun(t.s, pos+1, 2) == 2 {
		t.f.CropMM = t.s[pos+1 : pos+3]
		if t.custom(pos + 3) {
			return true
		}
	}
	t.f.CropMM = ""
	return t.custom(pos)
}

// custom consumes an optional caret-delimited qualifier running to the
// end of the name (PTV^Physician1).
func (t *targetScan) custom(pos int) bool {
	if pos < len(t.s) && t.s[pos] == '^' && pos+1 < len(t.s) {
		t.f.Custom = t.s[pos+1:]
		return true
	}
	t.f.Custom = ""
	return pos == len(t.s)
}

// scanCroppedOAR matches a basic-token sequence, a literal '-', and a
// target-crop block (type + optional classifier + optional number),
// consuming the whole string (Brain-GTV, Stomach-PTVp2).
func scanCroppedOAR(name string) (oar, targetType, classifier, number string, ok bool) {
	ends := grammar.SequenceEnds(name)
	for i := len(ends) - 1; i >= 0; i-- {
		e := ends[i]
		if e >= len(name) || name[e] != '-' {
			continue
		}
		if tt, cl, num, ok := matchTargetCrop(name[e+1:]); ok {
			return name[:e], tt, cl, num, true
		}
	}
	return "", "", "", "", false
}

// matchTargetCrop requires the target-crop block to consume s entirely.
func matchTargetCrop(s string) (targetType, classifier, number string, ok bool) {
	tt, ok := grammar.ScanTargetType(s)
	if !ok {
		return "", "", "", false
	}
	p := len(tt)
	for _, cl := range grammar.ClassifierCandidates(s[p:]) {
		q := p + len(cl)
		for dl := digitRun(s, q, 2); dl >= 0; dl-- {
			if q+dl == len(s) {
				return tt, cl, s[q : q+dl], true
			}
		}
	}
	return "", "", "", false
}

// digitRun returns the length of the digit run at pos, capped at max.
// Pass a negative max for no cap.
func digitRun(s string, pos, max int) int {
	n := 0
	for pos+n < len(s) && s[pos+n] >= '0' && s[pos+n] <= '9' {
		n++
		if max >= 0 && n == max {
			break
		}
	}
	return n
}

// doseEnds returns the candidate end offsets of a dose specifier
// starting at pos, in preference order, deduplicated.
func doseEnds(s string, pos int) []int {
	var out []int
	seen := make(map[int]bool)
	add := func(ends []int) {
		for _, e := range ends {
			if !seen[e] {
				seen[e] = true
				out = append(out, e)
			}
		}
	}
	add(relDoseEnds(s, pos))
	add(fractionDoseEnds(s, pos))
	add(numericDoseEnds(s, pos))
	return out
}

// relDoseEnds: High, Low, or Mid with an optional two-digit level.
func relDoseEnds(s string, pos int) []int {
	rest := s[pos:]
	var out []int
	if strings.HasPrefix(rest, "High") {
		out = append(out, pos+4)
	}
	if strings.HasPrefix(rest, "Low") {
		out = append(out, pos+3)
	}
	if strings.HasPrefix(rest, "Mid") {
		if digitRun(s, pos+3, 2) == 2 {
			out = append(out, pos+5)
		}
		out = append(out, pos+3)
	}
	return out
}

// numericDoseEnds: digits, optional '.'/'p' decimal point, more digits,
// optional Gy unit characters. Longer captures come first within each
// stage, outermost stage varying slowest.
func numericDoseEnds(s string, pos int) []int {
	var out []int
	d1 := digitRun(s, pos, -1)
	if d1 == 0 {
		return nil
	}
	for l1 := d1; l1 >= 1; l1-- {
		p := pos + l1
		decEnds := []int{}
		if p < len(s) && (s[p] == '.' || s[p] == 'p') {
			decEnds = append(decEnds, p+1)
		}
		decEnds = append(decEnds, p)
		for _, q := range decEnds {
			for l2 := digitRun(s, q, -1); l2 >= 0; l2-- {
				r := q + l2
				for lg := gyRun(s, r); lg >= 0; lg-- {
					out = append(out, r+lg)
				}
			}
		}
	}
	return out
}

// fractionDoseEnds: numeric dose, an 'x' delimiter, and a fraction
// count.
func fractionDoseEnds(s string, pos int) []int {
	var out []int
	for _, e := range numericDoseEnds(s, pos) {
		if e < len(s) && s[e] == 'x' {
			for lf := digitRun(s, e+1, -1); lf >= 1; lf-- {
				out = append(out, e+1+lf)
			}
		}
	}
	return out
}

func gyRun(s string, pos int) int {
	n := 0
	for pos+n < len(s) && (s[pos+n] == 'G' || s[pos+n] == 'y') {
		n++
	}
	return n
}
