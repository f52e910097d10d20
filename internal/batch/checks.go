// Package batch runs the name classifier over lists of structure names
// and applies the batch-level validity checks that cannot be decided
// from a single name in isolation.
package batch

import "strings"

// MaxNameLength is the longest structure name most planning systems
// accept.
const MaxNameLength = 16

// ValidLength reports whether the name fits within MaxNameLength
// characters.
func ValidLength(name string) bool {
	return len(name) <= MaxNameLength
}

// NoSpaces reports whether the name is free of space characters.
// Underscores are the only permitted separator.
func NoSpaces(name string) bool {
	return !strings.ContainsRune(name, ' ')
}

// FindDuplicates returns the names that appear more than once in the
// list when compared case-insensitively. Lung and Lungs are distinct;
// Lungs and lungs are duplicates. Each offending name is reported once,
// in first-seen order, in its original spelling.
func FindDuplicates(names []string) []string {
	counts := make(map[string]int, len(names))
	for _, name := range names {
		counts[strings.ToLower(name)]++
	}
	var dups []string
	reported := make(map[string]bool)
	for _, name := range names {
		key := strings.ToLower(name)
		if counts[key] > 1 && !reported[key] {
			reported[key] = true
			dups = append(dups, name)
		}
	}
	return dups
}

// HasDuplicates reports whether any case-insensitive duplicate exists
// in the list.
func HasDuplicates(names []string) bool {
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		key := strings.ToLower(name)
		if seen[key] {
			return true
		}
		seen[key] = true
	}
	return false
}
