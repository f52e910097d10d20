package classify

import "structure-name-eval/internal/grammar"

// reduceStep ties one extraction rule to the condition under which it
// runs and the record fields it fills. Steps run in a fixed order and
// each consumes from the shrinking remainder; a rule that does not fire
// leaves the remainder untouched.
type reduceStep struct {
	applies func(*ParsedName) bool
	rule    grammar.Rule
	assign  func(*ParsedName, map[string]string)
}

func always(*ParsedName) bool { return true }

// Step order matters: the vertebra, nerve and neck-node rules must run
// before the generic spatial rule because their level letters (L, S, I,
// V, ...) are also spatial codes, and the base-structure rule runs last
// as the catch-all.
var reduceSteps = []reduceStep{
	{always, grammar.CategoryRule, func(r *ParsedName, g map[string]string) {
		r.StructureCategory = g["StructureCategory"]
		if g["Plural"] != "" {
			r.Plural = true
		}
	}},
	{always, grammar.CustomRule, func(r *ParsedName, g map[string]string) {
		r.CustomStructure = g["CustomStructure"]
	}},
	{func(r *ParsedName) bool { return r.StructureCategory == "VB" },
		grammar.VertebraRule, func(r *ParsedName, g map[string]string) {
			r.VertebraeLevel = g["VertebraeLevel"]
			r.VertebraeNumber = g["VertebraeNumber"]
		}},
	{func(r *ParsedName) bool { return r.StructureCategory == "CN" },
		grammar.NerveRule, func(r *ParsedName, g map[string]string) {
			r.NerveLevel = g["NerveLevel"]
		}},
	{func(r *ParsedName) bool { return r.StructureCategory == "LN" },
		grammar.NeckNodeRule, func(r *ParsedName, g map[string]string) {
			r.NeckNodeLevel = g["NodeLevel"]
		}},
	{always, grammar.SpatialRule, func(r *ParsedName, g map[string]string) {
		r.SpatialIndicator = g["SpatialIndicator"]
	}},
	{always, grammar.PRVRule, func(r *ParsedName, g map[string]string) {
		r.PRV = true
		r.PRVSize = g["PrvSize"]
	}},
	{always, grammar.PartialRule, func(r *ParsedName, g map[string]string) {
		r.Partial = true
	}},
	{always, grammar.BaseStructureRule, func(r *ParsedName, g map[string]string) {
		r.BaseStructure = g["BaseStructure"]
		r.StructureQualifier = g["StructureQualifier"]
		r.StructureNumber = g["StructureNumber"]
		if g["Plural"] != "" {
			r.Plural = true
		}
	}},
}

// reduce runs the extraction steps over the name, shrinking the
// remainder as rules fire. The caller decides what a non-empty final
// remainder means.
func reduce(rec *ParsedName, name string) {
	rec.Remainder = name
	for _, step := range reduceSteps {
		if !step.applies(rec) {
			continue
		}
		groups, ok := step.rule.Apply(rec.Remainder)
		if !ok {
			continue
		}
		step.assign(rec, groups)
		rec.Remainder = groups["Remainder"]
	}
}
