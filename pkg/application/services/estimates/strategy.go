package estimates

import (
	"sort"
	"time"
)

// Strategy fixes which release anchors the zero quarter for a simulation
// date: the next release at/after the date, or the previous release
// at/before it. Each variant carries its own qualification predicate,
// quarter shift direction, and crossover search side.
type Strategy int

const (
	// NextQuarters anchors each date on the first release dated at or after
	// it; quarter offsets count forward.
	NextQuarters Strategy = iota
	// PreviousQuarters anchors each date on the last release dated at or
	// before it; quarter offsets count backward.
	PreviousQuarters
)

// String method for Strategy enum
func (s Strategy) String() string {
	switch s {
	case NextQuarters:
		return "next"
	case PreviousQuarters:
		return "previous"
	default:
		return "Unknown"
	}
}

// ParseStrategy maps a configuration string to a Strategy.
func ParseStrategy(name string) (Strategy, bool) {
	switch name {
	case "next":
		return NextQuarters, true
	case "previous":
		return PreviousQuarters, true
	default:
		return 0, false
	}
}

// shiftSign is the direction quarter offsets are applied in.
func (s Strategy) shiftSign() int {
	if s == NextQuarters {
		return 1
	}
	return -1
}

// qualifies reports whether a release dated eventDate can anchor date.
func (s Strategy) qualifies(eventDate, date time.Time) bool {
	if s == NextQuarters {
		return !eventDate.Before(date)
	}
	return !eventDate.After(date)
}

// better reports whether a qualifying candidate event date beats the current
// best. Next takes the earliest upcoming release, keeping the earlier
// quarter on ties; Previous takes the latest past release, keeping the later
// quarter on ties. Candidates are offered in ascending quarter order.
func (s Strategy) better(candidate, best time.Time) bool {
	if s == NextQuarters {
		return candidate.Before(best)
	}
	return !candidate.Before(best)
}

// crossoverRow locates the grid row at which a regime anchored on eventDate
// becomes visible. Next uses a strictly-greater search: a release landing
// exactly on a grid date is already reflected in that date's zero quarter,
// so the new regime starts at the following row. Previous uses a
// greater-or-equal search: the new regime starts on the release date itself.
func (s Strategy) crossoverRow(dates []time.Time, eventDate time.Time) int {
	if s == NextQuarters {
		return sort.Search(len(dates), func(i int) bool {
			return dates[i].After(eventDate)
		})
	}
	return sort.Search(len(dates), func(i int) bool {
		return !dates[i].Before(eventDate)
	})
}
