package store

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Value Codec (numbers and lists as JSON)
// --------------------------------------------------------------------------

// EncodeNumber encodes a counter value.
func EncodeNumber(n int64) []byte {
	b, _ := json.Marshal(n)
	return b
}

// DecodeNumber decodes a counter value.
func DecodeNumber(b []byte) (int64, error) {
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return 0, fmt.Errorf("value is not a number: %w", err)
	}
	return n, nil
}

// EncodeList encodes a list value. A nil list is encoded as an empty list.
func EncodeList(list []string) []byte {
	if list == nil {
		list = []string{}
	}
	b, _ := json.Marshal(list)
	return b
}

// DecodeList decodes a list value.
func DecodeList(b []byte) ([]string, error) {
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, fmt.Errorf("value is not a list: %w", err)
	}
	return list, nil
}

// ApplyListDelta removes every occurrence of each element in toRemove and then appends
// each element of toAdd that is not yet part of the list. The input is not modified.
func ApplyListDelta(current, toAdd, toRemove []string) []string {
	removed := make(map[string]struct{}, len(toRemove))
	for _, e := range toRemove {
		removed[e] = struct{}{}
	}

	result := make([]string, 0, len(current)+len(toAdd))
	present := make(map[string]struct{}, len(current)+len(toAdd))
	for _, e := range current {
		if _, ok := removed[e]; ok {
			continue
		}
		result = append(result, e)
		present[e] = struct{}{}
	}
	for _, e := range toAdd {
		if _, ok := present[e]; ok {
			continue
		}
		result = append(result, e)
		present[e] = struct{}{}
	}
	return result
}
