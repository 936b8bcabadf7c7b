package resolver

import (
	"sort"
	"strconv"

	"github.com/jonathan/careers-portal/internal/drafts"
)

// Entry is the resolved view of one list slot.
type Entry[T any] struct {
	Index  int    `json:"index"`
	Record T      `json:"record"`
	Source Source `json:"source"`
}

// SlotKey returns the draft slot key of a list index.
func SlotKey(index int) string {
	return strconv.Itoa(index)
}

// ParseSlotKey returns the list index of a draft slot key.
func ParseSlotKey(slot string) (int, bool) {
	i, err := strconv.Atoi(slot)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// Entries merges a persisted list with drafts keyed by list index. Draft
// records replace the persisted entry at the same index, indexes past the end
// of the persisted list are new entries, and deletion markers hide their slot.
// Indexes never shift, so a hidden slot leaves a gap.
func Entries[T any](persisted []T, draftMap map[string]drafts.Draft[T]) []Entry[T] {
	byIndex := make(map[int]Entry[T], len(persisted)+len(draftMap))
	for i, rec := range persisted {
		byIndex[i] = Entry[T]{Index: i, Record: rec, Source: SourcePersisted}
	}
	for slot, d := range draftMap {
		i, ok := ParseSlotKey(slot)
		if !ok {
			continue
		}
		if d.Deleted || d.Record == nil {
			delete(byIndex, i)
			continue
		}
		byIndex[i] = Entry[T]{Index: i, Record: *d.Record, Source: SourceDraft}
	}

	out := make([]Entry[T], 0, len(byIndex))
	for _, e := range byIndex {
		out = append(out, e)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Index < out[b].Index })
	return out
}

// NextIndex returns the first index not used by the persisted list or any draft.
func NextIndex[T any](persisted []T, draftMap map[string]drafts.Draft[T]) int {
	next := len(persisted)
	for slot := range draftMap {
		if i, ok := ParseSlotKey(slot); ok && i >= next {
			next = i + 1
		}
	}
	return next
}
