package model

import (
	"sort"
	"time"
)

// Interval is a half-open [start, end) range in unix milliseconds UTC.
type Interval [2]int64

func NewInterval(from, to time.Time) Interval {
	return Interval{from.UnixMilli(), to.UnixMilli()}
}

func (t Interval) Start() int64 { return t[0] }
func (t Interval) End() int64   { return t[1] }

func (t Interval) From() time.Time { return time.UnixMilli(t[0]).UTC() }
func (t Interval) To() time.Time   { return time.UnixMilli(t[1]).UTC() }

func (t Interval) Valid() bool { return t[1] > t[0] }

func (t Interval) Duration() time.Duration {
	return time.Duration(t[1]-t[0]) * time.Millisecond
}

func (t Interval) Overlaps(other Interval) bool {
	return t[0] < other[1] && other[0] < t[1]
}

func (t Interval) Contains(other Interval) bool {
	return t[0] <= other[0] && other[1] <= t[1]
}

// Clamp cuts t to bounds; the second result is false when nothing remains.
func (t Interval) Clamp(bounds Interval) (Interval, bool) {
	if t[0] < bounds[0] {
		t[0] = bounds[0]
	}
	if t[1] > bounds[1] {
		t[1] = bounds[1]
	}
	return t, t.Valid()
}

// Merge returns the union of intervals as a sorted, non-overlapping list.
// Duplicates and touching intervals coalesce.
func Merge(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}

	sorted := make([]Interval, 0, len(intervals))
	for _, t := range intervals {
		if t.Valid() {
			sorted = append(sorted, t)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i][0] < sorted[j][0]
	})

	var merged []Interval
	for _, t := range sorted {
		n := len(merged)
		if n == 0 || t[0] > merged[n-1][1] {
			merged = append(merged, t)
			continue
		}
		if t[1] > merged[n-1][1] {
			merged[n-1][1] = t[1]
		}
	}

	return merged
}

// Subtract clips busy out of free. free must be sorted and non-overlapping;
// busy may overlap and duplicate, it is merged first. One sweep over both.
func Subtract(free, busy []Interval) []Interval {
	busy = Merge(busy)
	if len(busy) == 0 {
		return free
	}

	var out []Interval
	j := 0
	for _, f := range free {
		lo := f[0]
		for j < len(busy) && busy[j][1] <= lo {
			j++
		}
		for k := j; k < len(busy) && busy[k][0] < f[1]; k++ {
			if busy[k][0] > lo {
				out = append(out, Interval{lo, busy[k][0]})
			}
			if busy[k][1] > lo {
				lo = busy[k][1]
			}
		}
		if lo < f[1] {
			out = append(out, Interval{lo, f[1]})
		}
	}

	return out
}

// IntersectK sweeps k sorted non-overlapping lists at once and emits every
// moment covered by all of them, dropping overlaps shorter than minLen.
// Advances whichever list ends earliest, so each interval is visited once.
func IntersectK(lists [][]Interval, minLen int64) []Interval {
	if len(lists) == 0 {
		return nil
	}
	if len(lists) == 1 {
		return atLeast(lists[0], minLen)
	}

	ptr := make([]int, len(lists))
	var out []Interval

	for {
		lo, hi := int64(0), int64(0)
		first := true
		earliest := -1

		for i, list := range lists {
			if ptr[i] >= len(list) {
				return out
			}
			cur := list[ptr[i]]
			if first || cur[0] > lo {
				lo = cur[0]
			}
			if first || cur[1] < hi {
				hi = cur[1]
				earliest = i
			}
			first = false
		}

		if hi-lo >= minLen {
			out = append(out, Interval{lo, hi})
		}

		ptr[earliest]++
	}
}

func atLeast(list []Interval, minLen int64) []Interval {
	var out []Interval
	for _, t := range list {
		if t[1]-t[0] >= minLen {
			out = append(out, t)
		}
	}
	return out
}
