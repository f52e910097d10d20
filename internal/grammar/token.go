package grammar

import "sort"

// A basic token is the building block of non-target names: one capital
// letter, an optional all-uppercase or all-lowercase run, an optional
// plural marker (s/i), an optional partial marker (~), up to two digits,
// and an optional trailing underscore or caret. Because every element
// after the capital is optional, a single position can end a token in
// several ways; the scanner enumerates all of them explicitly instead of
// relying on a pattern engine's backtracking.

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
func isLower(c byte) bool { return c >= 'a' && c <= 'z' }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// tokenEnds returns every offset at which a single basic token starting
// at position p may end. Empty when no token starts at p.
func tokenEnds(s string, p int) []int {
	n := len(s)
	if p >= n || !isUpper(s[p]) {
		return nil
	}

	// Letter run: absent, or an uppercase run, or a lowercase run.
	runEnds := []int{p + 1}
	for q := p + 1; q < n && isUpper(s[q]); q++ {
		runEnds = append(runEnds, q+1)
	}
	for q := p + 1; q < n && isLower(s[q]); q++ {
		runEnds = append(runEnds, q+1)
	}

	set := make(map[int]struct{})
	for _, r := range runEnds {
		for _, pl := range optionalByte(s, r, "si") {
			for _, pt := range optionalByte(s, pl, "~") {
				for _, d := range digitEnds(s, pt) {
					for _, u := range optionalByte(s, d, "_") {
						for _, c := range optionalByte(s, u, "^") {
							set[c] = struct{}{}
						}
					}
				}
			}
		}
	}
	return sortedKeys(set)
}

// optionalByte returns the positions reachable by optionally consuming
// one byte from the given set.
func optionalByte(s string, p int, set string) []int {
	if p < len(s) {
		for i := 0; i < len(set); i++ {
			if s[p] == set[i] {
				return []int{p, p + 1}
			}
		}
	}
	return []int{p}
}

// digitEnds returns the positions reachable by consuming zero, one or
// two digits.
func digitEnds(s string, p int) []int {
	out := []int{p}
	if p < len(s) && isDigit(s[p]) {
		out = append(out, p+1)
		if p+1 < len(s) && isDigit(s[p+1]) {
			out = append(out, p+2)
		}
	}
	return out
}

func sortedKeys(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// SequenceEnds returns, in ascending order, every offset e > 0 such that
// s[:e] can be consumed by one or more basic tokens.
func SequenceEnds(s string) []int {
	reached := make(map[int]struct{})
	frontier := []int{0}
	seen := map[int]struct{}{0: {}}
	for len(frontier) > 0 {
		p := frontier[0]
		frontier = frontier[1:]
		for _, e := range tokenEnds(s, p) {
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			reached[e] = struct{}{}
			frontier = append(frontier, e)
		}
	}
	return sortedKeys(reached)
}

// MatchesSequence reports whether the entire string is consumable as a
// sequence of one or more basic tokens.
func MatchesSequence(s string) bool {
	if s == "" {
		return false
	}
	for _, e := range SequenceEnds(s) {
		if e == len(s) {
			return true
		}
	}
	return false
}

// ScanTargetType returns the target-type code prefixing s, longest
// candidate first, and whether one was found.
func ScanTargetType(s string) (string, bool) {
	for _, tok := range targetTypeTokens {
		if len(s) >= len(tok) && s[:len(tok)] == tok {
			return tok, true
		}
	}
	return "", false
}

// ClassifierCandidates returns the target-classifier codes prefixing s
// in preference order, followed by the empty string (classifier absent).
func ClassifierCandidates(s string) []string {
	out := make([]string, 0, 2)
	for _, tok := range targetClassifierTokens {
		if len(s) >= len(tok) && s[:len(tok)] == tok {
			out = append(out, tok)
		}
	}
	return append(out, "")
}

// ScanModalityCode returns the imaging-modality code prefixing s, if any.
func ScanModalityCode(s string) (string, bool) {
	for _, code := range modalityCodes {
		if len(s) >= len(code) && s[:len(code)] == code {
			return code, true
		}
	}
	return "", false
}
