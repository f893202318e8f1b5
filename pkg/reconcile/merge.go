// Package reconcile keeps a client-side alert list consistent with an initial
// load, a live change feed and local optimistic edits.
package reconcile

import (
	"slices"

	"liyu1981.xyz/roomwatch-service/pkg/models"
)

// newer orders alerts newest-first; ties on created_at fall back to the
// higher id first so the order is total.
func newer(a, b models.Alert) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func SortNewestFirst(list []models.Alert) []models.Alert {
	out := slices.Clone(list)
	slices.SortStableFunc(out, func(a, b models.Alert) int {
		switch {
		case newer(a, b):
			return -1
		case newer(b, a):
			return 1
		}
		return 0
	})
	return out
}

func indexOf(list []models.Alert, id uint) int {
	return slices.IndexFunc(list, func(a models.Alert) bool { return a.ID == id })
}

// Merge applies one change to a newest-first list and returns the result; the
// input is never modified. Inserts of an id already present and updates of an
// absent id are ignored, deletes of an absent id are no-ops, so applying the
// same change twice gives the same list as applying it once.
func Merge(list []models.Alert, change models.AlertChange) []models.Alert {
	switch change.Type {
	case models.EventInsert:
		if change.New == nil || indexOf(list, change.New.ID) >= 0 {
			return list
		}
		at := slices.IndexFunc(list, func(a models.Alert) bool { return newer(*change.New, a) })
		if at < 0 {
			at = len(list)
		}
		return slices.Insert(slices.Clone(list), at, *change.New)

	case models.EventUpdate:
		if change.New == nil {
			return list
		}
		i := indexOf(list, change.New.ID)
		if i < 0 {
			return list
		}
		out := slices.Clone(list)
		out[i] = *change.New
		return out

	case models.EventDelete:
		i := indexOf(list, change.ID())
		if i < 0 {
			return list
		}
		return slices.Delete(slices.Clone(list), i, i+1)
	}
	return list
}
