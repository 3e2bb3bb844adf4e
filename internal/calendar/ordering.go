package calendar

import (
	"sort"
	"strings"

	"github.com/qprogramming/daily/backend/internal/model"
)

// CompareStarts is a total order over event starts. Timed events come
// first, ordered by instant; all-day events follow, ordered by date;
// events with no start information sort last and compare equal among
// themselves.
func CompareStarts(a, b model.EventStart) int {
	switch {
	case a.Kind == model.StartInstant && b.Kind == model.StartInstant:
		return a.Instant.Compare(b.Instant)
	case a.Kind == model.StartInstant:
		return -1
	case b.Kind == model.StartInstant:
		return 1
	case a.Kind == model.StartDate && b.Kind == model.StartDate:
		// "2006-01-02" compares correctly as a string.
		return strings.Compare(a.Date, b.Date)
	case a.Kind == model.StartDate:
		return -1
	case b.Kind == model.StartDate:
		return 1
	}
	return 0
}

// SortEvents orders events by start in place. The sort is stable: ties
// keep their input order, so events without start information are never
// reshuffled.
func SortEvents(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return CompareStarts(events[i].Start, events[j].Start) < 0
	})
}
