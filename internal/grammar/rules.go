package grammar

import "regexp"

// Rule is an ordered extraction pattern with named capture groups. One
// group (Presence) is non-empty exactly when the rule fires; the
// Remainder group captures whatever the rule did not consume. Rules are
// compiled once at init and shared read-only across classifications.
type Rule struct {
	re       *regexp.Regexp
	Presence string
}

// Apply matches the rule against the current remainder. When the rule
// fires it returns the named captures; otherwise ok is false and the
// caller keeps the remainder untouched.
func (r Rule) Apply(remainder string) (groups map[string]string, ok bool) {
	m := r.re.FindStringSubmatch(remainder)
	if m == nil {
		return nil, false
	}
	groups = make(map[string]string, len(m))
	for i, name := range r.re.SubexpNames() {
		if name != "" {
			groups[name] = m[i]
		}
	}
	if groups[r.Presence] == "" {
		return nil, false
	}
	return groups, true
}

func mustRule(presence, pattern string) Rule {
	return Rule{re: regexp.MustCompile(pattern), Presence: presence}
}

// Extraction rules for the non-target reduction pipeline. Order and
// conditionality are decided by the pipeline, not here; single-letter
// spatial codes collide with vertebra letters and Roman numerals, so the
// VB/CN/LN rules must run before the generic spatial rule.
var (
	// Structure category prefix (A_Aorta, LN_Neck_IA_L, VB_L3, ...),
	// optional plural marker, optional underscore-delimited rest. The
	// single-letter V alternative precedes VB; a failed continuation
	// falls through to the longer code.
	CategoryRule = mustRule("StructureCategory",
		`^(?P<StructureCategory>A|V|LN|CN|Glnd|Bone|Musc|Spc|VB|Sinus)(?P<Plural>[si])?(?:_(?P<Remainder>.*))?$`)

	// Custom qualifier text after a caret (Lungs^Ex). The remainder here
	// is the prefix, not the suffix.
	CustomRule = mustRule("CustomStructure",
		`^(?P<Remainder>[^^]*)(?:\^(?P<CustomStructure>.+))?`)

	// Vertebra reference: level letter, optional 1-2 digit number
	// (VB_L3, VB_S). Applied only when the category is VB.
	VertebraRule = mustRule("VertebraeLevel",
		`^(?P<VertebraeLevel>[CTLS])(?P<VertebraeNumber>[0-9]{0,2})(?:_(?P<Remainder>.*))?$`)

	// Cranial-nerve level as a Roman-numeral run (CN_IX_L). Applied only
	// when the category is CN.
	NerveRule = mustRule("NerveLevel",
		`^(?P<NerveLevel>[IVX]+)(?:_(?P<Remainder>.*))?$`)

	// Neck-node level: literal Neck, Roman-numeral run, optional A/B
	// sub-level (LN_Neck_IA_L). Applied only when the category is LN.
	NeckNodeRule = mustRule("NodeLevel",
		`^(?P<NeckNode>Neck)_(?P<NodeLevel>[IVX]+[AB]?)(?:_(?P<Remainder>.*))?$`)

	// One or more trailing spatial codes, optionally preceded by an
	// underscore-delimited prefix (Lung_L, Nasalconcha_LI).
	SpatialRule = mustRule("SpatialIndicator",
		`^(?:(?P<Remainder>.*?)_)?(?P<SpatialIndicator>(?:L|R|A|P|I|S|M|NAdj|Dist|Prox|RUL|RLL|RML|LUL|LLL)+)$`)

	// Planning-risk-volume marker with optional expansion size in mm
	// (SpinalCord_PRV05).
	PRVRule = mustRule("Prv",
		`^(?P<Remainder>.*?)_?(?P<Prv>PRV(?P<PrvSize>[0-9]{1,2})?)$`)

	// Trailing partial-structure marker (Brain~).
	PartialRule = mustRule("Partial",
		`^(?P<Remainder>.*?)(?P<Partial>~)$`)

	// Base structure name: 1-2 capitalized camel-case segments, optional
	// plural marker, then any number of qualifier segments (capitalized
	// word or optional-letter+digits), then whatever is left.
	BaseStructureRule = mustRule("BaseStructure",
		`^(?P<BaseStructure>(?:[A-Z](?:[A-Z]+|[a-z]+)){1,2}(?P<Plural>[si])?)(?:_(?P<StructureQualifier>[A-Z](?:[A-Z]+|[a-z]+))|(?:_?(?P<StructureNumber>[A-Z]?[0-9]+)))*(?P<Remainder>.*)$`)
)
