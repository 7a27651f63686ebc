package ops

import (
	"strings"

	"github.com/ValentinKolb/opexec/lib/store"
)

// Write buckets of the replicated write cache hold markers instead of plain elements.
// "+e" means e was added, "-e" means e was removed since the last flush.
const (
	addPrefix    = "+"
	deletePrefix = "-"
)

// AddMarker returns the marker recording that e was added.
func AddMarker(e string) string {
	return addPrefix + e
}

// DeleteMarker returns the marker recording that e was removed.
func DeleteMarker(e string) string {
	return deletePrefix + e
}

// ParseMarker splits a marker into its element and kind.
func ParseMarker(marker string) (element string, add bool, ok bool) {
	switch {
	case strings.HasPrefix(marker, addPrefix):
		return marker[len(addPrefix):], true, true
	case strings.HasPrefix(marker, deletePrefix):
		return marker[len(deletePrefix):], false, true
	default:
		return "", false, false
	}
}

// ApplyMarkers applies the markers of a write bucket to a list.
// A write bucket never holds both markers of the same element.
func ApplyMarkers(list, markers []string) ([]string, error) {
	var toAdd, toRemove []string
	for _, m := range markers {
		e, add, ok := ParseMarker(m)
		if !ok {
			return nil, store.Errorf(store.RetCBackendFailure, "malformed write cache marker %q", m)
		}
		if add {
			toAdd = append(toAdd, e)
		} else {
			toRemove = append(toRemove, e)
		}
	}
	return store.ApplyListDelta(list, toAdd, toRemove), nil
}

// mergeLists concatenates the data buckets of a list and applies its write buckets.
// Write buckets of the add-only caches hold plain elements.
func mergeLists(data, write [][]string, markers bool) ([]string, error) {
	var merged []string
	for _, l := range data {
		merged = append(merged, l...)
	}
	for _, w := range write {
		if len(w) == 0 {
			continue
		}
		if !markers {
			merged = store.ApplyListDelta(merged, w, nil)
			continue
		}
		var err error
		if merged, err = ApplyMarkers(merged, w); err != nil {
			return nil, err
		}
	}
	if merged == nil {
		merged = []string{}
	}
	return merged, nil
}
