package classify

import "structure-name-eval/internal/grammar"

// Classify decomposes one structure name. The four top-level classes
// are tried in strict priority order; the first grammar that accepts
// the name decides its class. A name no alternative accepts comes back
// with an empty class, the full name as remainder, and Conformant
// false.
//
// Classify is pure: identical inputs always produce identical records,
// and concurrent calls need no synchronization.
func Classify(name string) ParsedName {
	rec := ParsedName{Name: name}

	// Names prefixed z, Z or _ are excluded from evaluation; the rest
	// of the name is kept as opaque text.
	if len(name) > 0 && (name[0] == 'z' || name[0] == 'Z' || name[0] == '_') {
		rec.Class = ClassNotEvaluated
		rec.NotEvalPrefix = name[:1]
		rec.NotEvalText = name[1:]
		rec.Conformant = true
		return rec
	}

	// Target grammars must run before the non-target ones: a name like
	// GTVp2 is also a legal basic-token sequence.
	if f, ok := scanTarget(name); ok {
		rec.Class = ClassTarget
		rec.TargetType = f.Type
		rec.TargetClassifier = f.Classifier
		rec.TargetNumber = f.Number
		rec.Modalities = f.Modalities
		rec.StructureIndicator = f.Indicator
		rec.DoseSpecifier = f.Dose
		rec.ExternalCropMM = f.CropMM
		rec.CustomQualifier = f.Custom
		rec.Conformant = true
		return rec
	}

	if oar, tt, cl, num, ok := scanCroppedOAR(name); ok {
		rec.Class = ClassCroppedOAR
		rec.OARName = oar
		rec.TargetType = tt
		rec.TargetClassifier = cl
		rec.TargetNumber = num
		rec.Conformant = true
		return rec
	}

	if grammar.MatchesSequence(name) {
		rec.Class = ClassBasicOAR
		reduce(&rec, name)
		rec.Conformant = rec.Remainder == ""
		return rec
	}

	rec.Remainder = name
	rec.Conformant = false
	return rec
}
