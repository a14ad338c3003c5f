package rules

import (
	"context"
	"time"

	"github.com/hireloop/slotd/internal/model"
	"github.com/hireloop/slotd/internal/repo"
	"github.com/hireloop/slotd/pkg/errors"
	"github.com/hireloop/slotd/pkg/logger"
)

func New(log logger.Logger, client repo.Client) *Engine {
	return &Engine{
		rules: client.Rules(),
		slots: client.Slots(),
		hours: client.WorkingHours(),
		log:   log.With("rules"),
	}
}

type Engine struct {
	rules repo.RulesRepo
	slots repo.SlotsRepo
	hours repo.WorkingHoursRepo
	log   logger.Logger
}

// Snapshot reads the tenant rule once per computation; nil means the tenant
// has no constraints configured.
func (e *Engine) Snapshot(ctx context.Context, tenantID string) (*model.SchedulingRule, error) {
	rule, err := e.rules.Get(ctx, tenantID)
	return rule, errors.WrapFail(err, "read scheduling rule")
}

// Apply filters candidate free intervals against the tenant rule. Pure:
// notice window, buffer shrink, allowed weekdays, blackout subtraction.
// Emitted intervals are the bookable region, buffers already carved out,
// and always long enough for durationMinutes.
func Apply(rule *model.SchedulingRule, candidates []model.Interval, now time.Time, durationMinutes int64) []model.Interval {
	minLen := durationMinutes * time.Minute.Milliseconds()

	if rule == nil {
		return keepLonger(candidates, minLen)
	}

	out := candidates

	if rule.MinNoticeMinutes != nil {
		threshold := now.UnixMilli() + *rule.MinNoticeMinutes*time.Minute.Milliseconds()
		clipped := make([]model.Interval, 0, len(out))
		for _, t := range out {
			if t[1] <= threshold {
				continue
			}
			if t[0] < threshold {
				t[0] = threshold
			}
			clipped = append(clipped, t)
		}
		out = clipped
	}

	if rule.BufferBeforeMinutes != nil || rule.BufferAfterMinutes != nil {
		var before, after int64
		if rule.BufferBeforeMinutes != nil {
			before = *rule.BufferBeforeMinutes * time.Minute.Milliseconds()
		}
		if rule.BufferAfterMinutes != nil {
			after = *rule.BufferAfterMinutes * time.Minute.Milliseconds()
		}

		shrunk := make([]model.Interval, 0, len(out))
		for _, t := range out {
			t[0] += before
			t[1] -= after
			if t.Valid() {
				shrunk = append(shrunk, t)
			}
		}
		out = shrunk
	}

	if len(rule.AllowedDaysOfWeek) > 0 {
		// clip at UTC midnights so an interval straddling into a
		// disallowed day loses only the disallowed part
		allowed := make([]model.Interval, 0, len(out))
		for _, t := range out {
			for _, day := range splitByUTCDay(t) {
				if rule.DayAllowed(int(day.From().UTC().Weekday())) {
					allowed = append(allowed, day)
				}
			}
		}
		out = model.Merge(allowed)
	}

	if len(rule.BlackoutPeriods) > 0 {
		out = model.Subtract(out, rule.BlackoutPeriods)
	}

	return keepLonger(out, minLen)
}

// CheckDailyCap rejects the interval if booking it would exceed any
// participant's per-day cap, counting committed BOOKED slots only. Called
// at booking time inside the transaction, never at generation time.
// excludeSlotID ignores the slot being moved during a reschedule.
func (e *Engine) CheckDailyCap(ctx context.Context, tenantID string, rule *model.SchedulingRule, userIDs []string, interval model.Interval, excludeSlotID string) error {
	if rule == nil || rule.MaxInterviewsPerDayPerUser == nil {
		return nil
	}
	maxPerDay := *rule.MaxInterviewsPerDayPerUser

	for _, userID := range userIDs {
		day, err := e.userDay(ctx, tenantID, userID, interval)
		if err != nil {
			return err
		}

		booked, err := e.slots.ListBookedOverlapping(ctx, tenantID, userID, day)
		if err != nil {
			return errors.WrapFail(err, "count booked slots")
		}

		n := 0
		for _, s := range booked {
			if s.ID != excludeSlotID {
				n++
			}
		}

		if n+1 > maxPerDay {
			return errors.RuleViolation("max_interviews_per_day_per_user",
				"user %s already has %d interviews that day (cap %d)", userID, n, maxPerDay)
		}
	}

	return nil
}

// userDay finds the calendar day containing the interval start, in the
// user's working-hours zone when one is configured, else UTC.
func (e *Engine) userDay(ctx context.Context, tenantID, userID string, interval model.Interval) (model.Interval, error) {
	loc := time.UTC

	hours, err := e.hours.Get(ctx, tenantID, userID)
	if err != nil {
		return model.Interval{}, errors.WrapFail(err, "get working hours")
	}
	if hours != nil {
		if l, err := hours.Location(); err == nil {
			loc = l
		}
	}

	local := interval.From().In(loc)
	year, month, dayNum := local.Date()
	dayStart := time.Date(year, month, dayNum, 0, 0, 0, 0, loc)
	dayEnd := time.Date(year, month, dayNum+1, 0, 0, 0, 0, loc)

	return model.NewInterval(dayStart, dayEnd), nil
}

// splitByUTCDay cuts an interval at every UTC midnight it spans.
func splitByUTCDay(t model.Interval) []model.Interval {
	out := make([]model.Interval, 0, 2)
	for t.Valid() {
		start := t.From().UTC()
		year, month, day := start.Date()
		midnight := time.Date(year, month, day+1, 0, 0, 0, 0, time.UTC).UnixMilli()
		if midnight >= t[1] {
			out = append(out, t)
			break
		}
		out = append(out, model.Interval{t[0], midnight})
		t[0] = midnight
	}
	return out
}

func keepLonger(list []model.Interval, minLen int64) []model.Interval {
	out := make([]model.Interval, 0, len(list))
	for _, t := range list {
		if t[1]-t[0] >= minLen {
			out = append(out, t)
		}
	}
	return out
}
