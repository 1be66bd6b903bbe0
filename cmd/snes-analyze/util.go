package main

import "sort"

// sortedKeys returns m's keys in ascending order, for deterministic listing
// output.
func sortedKeys(m map[string]*Command) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
