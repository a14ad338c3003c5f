package availability

import (
	"context"
	"time"

	"github.com/hireloop/slotd/internal/model"
	"github.com/hireloop/slotd/internal/repo"
	"github.com/hireloop/slotd/pkg/errors"
	"github.com/hireloop/slotd/pkg/logger"
)

// FeedHealth reports calendar providers whose last sync cycle failed for
// the tenant. Availability computed over a degraded feed is served from
// the last synced blocks and flagged partial instead of failing.
type FeedHealth interface {
	Degraded(tenantID string) []string
}

// Result is derived per query and never persisted.
type Result struct {
	Free map[string][]model.Interval

	Partial        bool
	StaleProviders []string
}

func New(log logger.Logger, client repo.Client, health FeedHealth) *Engine {
	return &Engine{
		hours:  client.WorkingHours(),
		busy:   client.BusyBlocks(),
		health: health,
		log:    log.With("availability"),
	}
}

type Engine struct {
	hours  repo.WorkingHoursRepo
	busy   repo.BusyBlocksRepo
	health FeedHealth
	log    logger.Logger
}

// FreeIntervals merges each user's working hours minus busy blocks into a
// sorted free-interval set over [within.Start, within.End).
func (e *Engine) FreeIntervals(ctx context.Context, tenantID string, userIDs []string, within model.Interval) (*Result, error) {
	return e.freeIntervals(ctx, tenantID, userIDs, within, "")
}

func (e *Engine) freeIntervals(ctx context.Context, tenantID string, userIDs []string, within model.Interval, excludeSlotID string) (*Result, error) {
	if !within.Valid() {
		return nil, errors.Faulted(errors.KindValidation, "range end must be after start")
	}
	if len(userIDs) == 0 {
		return nil, errors.Faulted(errors.KindValidation, "empty participant set")
	}

	res := &Result{Free: make(map[string][]model.Interval, len(userIDs))}

	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return nil, errors.WrapFail(err, "compute free intervals")
		}

		free, err := e.freeForUser(ctx, tenantID, userID, within, excludeSlotID)
		if err != nil {
			return nil, errors.WrapFailf(err, "compute free intervals for user %s", userID)
		}
		res.Free[userID] = free
	}

	if e.health != nil {
		if stale := e.health.Degraded(tenantID); len(stale) > 0 {
			res.Partial = true
			res.StaleProviders = stale
		}
	}

	return res, nil
}

// Intersection returns the intervals where all given users are
// simultaneously free for at least durationMinutes.
func (e *Engine) Intersection(ctx context.Context, tenantID string, userIDs []string, within model.Interval, durationMinutes int64) ([]model.Interval, bool, error) {
	return e.IntersectionExcludingSlot(ctx, tenantID, userIDs, within, durationMinutes, "")
}

// IntersectionExcludingSlot is Intersection with the shadow busy blocks of
// one slot ignored, so a booked slot can be moved without conflicting with
// itself.
func (e *Engine) IntersectionExcludingSlot(ctx context.Context, tenantID string, userIDs []string, within model.Interval, durationMinutes int64, excludeSlotID string) ([]model.Interval, bool, error) {
	if durationMinutes <= 0 {
		return nil, false, errors.Faulted(errors.KindValidation, "duration must be positive")
	}

	res, err := e.freeIntervals(ctx, tenantID, userIDs, within, excludeSlotID)
	if err != nil {
		return nil, false, err
	}

	lists := make([][]model.Interval, 0, len(userIDs))
	for _, userID := range userIDs {
		lists = append(lists, res.Free[userID])
	}

	minLen := durationMinutes * time.Minute.Milliseconds()
	return model.IntersectK(lists, minLen), res.Partial, nil
}

func (e *Engine) freeForUser(ctx context.Context, tenantID, userID string, within model.Interval, excludeSlotID string) ([]model.Interval, error) {
	hours, err := e.hours.Get(ctx, tenantID, userID)
	if err != nil {
		return nil, errors.WrapFail(err, "get working hours")
	}

	expanded, err := Expand(hours, within)
	if err != nil {
		return nil, err
	}
	if len(expanded) == 0 {
		return nil, nil
	}

	blocks, err := e.busy.List(ctx, tenantID, userID, within)
	if err != nil {
		return nil, errors.WrapFail(err, "list busy blocks")
	}

	busy := make([]model.Interval, 0, len(blocks))
	for _, b := range blocks {
		if excludeSlotID != "" && b.SlotID == excludeSlotID {
			continue
		}
		busy = append(busy, b.Interval)
	}

	return model.Subtract(expanded, busy), nil
}

// Expand materializes the weekly template into concrete UTC intervals for
// every calendar day of the user's zone touching within, clamped to it.
// A nil template or a weekday with no entry contributes nothing.
func Expand(hours *model.WorkingHours, within model.Interval) ([]model.Interval, error) {
	if hours == nil {
		return nil, nil
	}

	loc, err := hours.Location()
	if err != nil {
		return nil, err
	}

	var out []model.Interval

	local := within.From().In(loc)
	year, month, dayNum := local.Date()
	day := time.Date(year, month, dayNum, 0, 0, 0, 0, loc)

	for ; day.Before(within.To()); day = nextDay(day, loc) {
		tmpl := hours.Day(day.Weekday())
		if tmpl == nil {
			continue
		}

		for _, r := range tmpl.Ranges {
			// minutes normalize through time.Date, so DST
			// transitions shift the wall-clock range correctly
			from := atMinute(day, r[0], loc)
			to := atMinute(day, r[1], loc)

			clamped, ok := model.NewInterval(from, to).Clamp(within)
			if !ok {
				continue
			}
			out = append(out, clamped)
		}
	}

	return model.Merge(out), nil
}

func nextDay(day time.Time, loc *time.Location) time.Time {
	year, month, dayNum := day.Date()
	return time.Date(year, month, dayNum+1, 0, 0, 0, 0, loc)
}

func atMinute(day time.Time, minute int, loc *time.Location) time.Time {
	year, month, dayNum := day.Date()
	return time.Date(year, month, dayNum, 0, minute, 0, 0, loc)
}
