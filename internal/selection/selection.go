// Package selection computes the effective run set of fuzz targets.
package selection

import "sort"

// Result is the outcome of resolving a selection request against the
// catalog. All slices are sorted and duplicate-free.
type Result struct {
	// RunSet is (requested ∩ catalog) \ excluded, or catalog \ excluded
	// when nothing was requested explicitly.
	RunSet []string
	// UnknownRequested are requested names missing from the catalog.
	UnknownRequested []string
	// UnknownExcluded are excluded names that were not in the selection
	// anyway; nothing is removed for them.
	UnknownExcluded []string
}

// Select resolves the run set. Pure computation over sets; the caller
// decides what to log and whether an empty run set is fatal.
func Select(catalog, requested, excluded []string) Result {
	inCatalog := make(map[string]bool, len(catalog))
	for _, t := range catalog {
		inCatalog[t] = true
	}

	candidates := requested
	if len(candidates) == 0 {
		candidates = catalog
	}

	unknownRequested := make(map[string]bool)
	for _, t := range requested {
		if !inCatalog[t] {
			unknownRequested[t] = true
		}
	}

	selected := make(map[string]bool, len(candidates))
	for _, t := range candidates {
		if inCatalog[t] {
			selected[t] = true
		}
	}

	unknownExcluded := make(map[string]bool)
	for _, t := range excluded {
		if !selected[t] {
			unknownExcluded[t] = true
			continue
		}
		delete(selected, t)
	}

	return Result{
		RunSet:           sortedKeys(selected),
		UnknownRequested: sortedKeys(unknownRequested),
		UnknownExcluded:  sortedKeys(unknownExcluded),
	}
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
