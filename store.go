package voluba

import (
	"sort"
)

// Ingest merges incoming minute bars into an ordered store. Incoming bars
// are applied in ascending timestamp order and each one is compared with
// the current tail of the store: an equal timestamp replaces the tail,
// a greater one is appended and a lower one is dropped as stale.
//
// Neither argument is modified; the returned sequence shares bar pointers
// with its inputs but has its own backing array. Applying the same batch
// twice yields the same store as applying it once.
func Ingest(existing MinuteBars, incoming MinuteBars) MinuteBars {
	sorted := make(MinuteBars, 0, len(incoming))
	for _, minuteBar := range incoming {
		if minuteBar == nil {
			continue
		}
		sorted = append(sorted, minuteBar)
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	updated := make(MinuteBars, len(existing), len(existing)+len(sorted))
	copy(updated, existing)

	for _, minuteBar := range sorted {
		last := updated.Last()

		switch {
		case last == nil || minuteBar.Timestamp > last.Timestamp:
			updated = append(updated, minuteBar)
		case minuteBar.Timestamp == last.Timestamp:
			updated[len(updated)-1] = minuteBar
		}
	}

	return updated
}
