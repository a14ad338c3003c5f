package model

import (
	"time"

	"github.com/hireloop/slotd/pkg/errors"
)

const minutesPerDay = 24 * 60

// MinuteRange is a half-open [start, end) range in minutes of day.
type MinuteRange [2]int

// DayHours is the recurring template for one weekday
// (time.Weekday numbering, Sunday = 0).
type DayHours struct {
	Weekday int           `json:"weekday" bson:"weekday"`
	Ranges  []MinuteRange `json:"ranges"  bson:"ranges"`
}

type WorkingHours struct {
	TenantID string `json:"tenant_id" bson:"tenant_id"`
	UserID   string `json:"user_id"   bson:"user_id"`

	Timezone string     `json:"timezone" bson:"timezone"`
	Days     []DayHours `json:"days"     bson:"days"`
}

const (
	HoursFieldTenant = "tenant_id"
	HoursFieldUser   = "user_id"
)

func (w WorkingHours) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(w.Timezone)
	return loc, errors.WrapFailf(err, "load zone %q", w.Timezone)
}

// Day returns the template for a weekday; nil means no free time that day.
func (w WorkingHours) Day(weekday time.Weekday) *DayHours {
	for i := range w.Days {
		if w.Days[i].Weekday == int(weekday) {
			return &w.Days[i]
		}
	}
	return nil
}

func (w WorkingHours) Validate() error {
	if _, err := w.Location(); err != nil {
		return err
	}

	if len(w.Days) > 7 {
		return errors.Error("%d weekday entries, at most 7 allowed", len(w.Days))
	}

	seen := [7]bool{}
	for _, d := range w.Days {
		if d.Weekday < 0 || d.Weekday > 6 {
			return errors.Error("weekday %d out of range", d.Weekday)
		}
		if seen[d.Weekday] {
			return errors.Error("duplicate entry for weekday %d", d.Weekday)
		}
		seen[d.Weekday] = true

		prevEnd := -1
		for _, r := range d.Ranges {
			if r[0] < 0 || r[1] > minutesPerDay || r[1] <= r[0] {
				return errors.Error("bad minute range [%d, %d)", r[0], r[1])
			}
			if r[0] < prevEnd {
				return errors.Error("ranges for weekday %d not sorted or overlapping", d.Weekday)
			}
			prevEnd = r[1]
		}
	}

	return nil
}
