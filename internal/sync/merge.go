package sync

import (
	"sort"

	"github.com/pjp27/organizacion/internal/schema"
)

// Merge reconciles a remote record set with a local one.
//
// Records are matched by ID. When both sides hold the same ID, the local
// copy wins only if its created timestamp is strictly later; ties keep the
// remote copy. IDs present on one side only are always kept. The result is
// sorted by created timestamp, then by ID.
//
// Resolution is per record, not per field: a losing copy is dropped whole.
func Merge[T schema.Record](remote, local []T) []T {
	byID := make(map[string]T, len(remote)+len(local))
	order := make([]string, 0, len(remote)+len(local))

	for _, r := range remote {
		if _, seen := byID[r.Key()]; !seen {
			order = append(order, r.Key())
		}
		byID[r.Key()] = r
	}

	for _, l := range local {
		existing, seen := byID[l.Key()]
		if !seen {
			order = append(order, l.Key())
			byID[l.Key()] = l
			continue
		}
		if l.CreatedAt().After(existing.CreatedAt()) {
			byID[l.Key()] = l
		}
	}

	merged := make([]T, 0, len(order))
	for _, id := range order {
		merged = append(merged, byID[id])
	}

	sort.SliceStable(merged, func(i, j int) bool {
		ti, tj := merged[i].CreatedAt(), merged[j].CreatedAt()
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return merged[i].Key() < merged[j].Key()
	})
	return merged
}
