// Package selection decides which discovered databases get dumped.
package selection

import (
	"slices"

	"github.com/fgeck/dbdump-homelab/internal/models"
)

// Select returns the ordered list of databases to dump.
//
// With a wildcard in spec.Include every discovered database is returned in
// discovery order, minus the names in spec.Exclude. Otherwise spec.Include is
// returned in its own order, filtered to names that were discovered; the
// exclusion list is not consulted and duplicates are kept.
func Select(discovered []string, spec models.ExportSpec) []string {
	selected := make([]string, 0, len(discovered))

	if slices.Contains(spec.Include, models.Wildcard) {
		for _, name := range discovered {
			if !slices.Contains(spec.Exclude, name) {
				selected = append(selected, name)
			}
		}
		return selected
	}

	for _, name := range spec.Include {
		if slices.Contains(discovered, name) {
			selected = append(selected, name)
		}
	}
	return selected
}
