package suggest

import (
	"context"
	"sort"
	"time"

	"github.com/hireloop/slotd/internal/availability"
	"github.com/hireloop/slotd/internal/model"
	"github.com/hireloop/slotd/internal/repo"
	"github.com/hireloop/slotd/internal/rules"
	"github.com/hireloop/slotd/pkg/errors"
	"github.com/hireloop/slotd/pkg/logger"
)

// crowdGap is how close to a committed interview a suggestion may sit
// before its score starts to drop.
const crowdGap = 2 * time.Hour

const DefaultLimit = 10

type Suggestion struct {
	Interval model.Interval `json:"interval"`
	Score    float64        `json:"score"`
}

func New(log logger.Logger, client repo.Client, avail *availability.Engine, rulesEngine *rules.Engine) *Ranker {
	return &Ranker{
		busy:  client.BusyBlocks(),
		avail: avail,
		rules: rulesEngine,
		now:   time.Now,
		log:   log.With("suggest"),
	}
}

type Ranker struct {
	busy  repo.BusyBlocksRepo
	avail *availability.Engine
	rules *rules.Engine

	now func() time.Time

	log logger.Logger
}

// Suggest ranks candidate slots between now and deadline for the given
// participants. Earlier candidates score higher; candidates crowding an
// already committed interview of any participant are pushed down. The
// second result mirrors availability's partial flag.
func (r *Ranker) Suggest(ctx context.Context, tenantID string, participantIDs []string, durationMinutes int64, deadline time.Time, limit int) ([]Suggestion, bool, error) {
	if len(participantIDs) == 0 {
		return nil, false, errors.Faulted(errors.KindValidation, "empty participant set")
	}
	if durationMinutes <= 0 {
		return nil, false, errors.Faulted(errors.KindValidation, "duration must be positive")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	now := r.now()
	if !deadline.After(now) {
		return nil, false, errors.Faulted(errors.KindValidation, "deadline must be in the future")
	}

	horizon := model.NewInterval(now, deadline)

	free, partial, err := r.avail.Intersection(ctx, tenantID, participantIDs, horizon, durationMinutes)
	if err != nil {
		return nil, false, err
	}

	rule, err := r.rules.Snapshot(ctx, tenantID)
	if err != nil {
		return nil, false, err
	}
	free = rules.Apply(rule, free, now, durationMinutes)

	committed, err := r.committedBlocks(ctx, tenantID, participantIDs, horizon)
	if err != nil {
		return nil, false, err
	}

	durMs := durationMinutes * time.Minute.Milliseconds()
	span := float64(horizon.End() - horizon.Start())

	var out []Suggestion
	for _, f := range free {
		for start := f.Start(); start+durMs <= f.End(); start += durMs {
			candidate := model.Interval{start, start + durMs}
			score := 1 - float64(start-horizon.Start())/span
			score -= crowdPenalty(candidate, committed)
			out = append(out, Suggestion{Interval: candidate, Score: score})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Interval.Start() < out[j].Interval.Start()
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out, partial, nil
}

// committedBlocks collects the slot-backed busy blocks of every participant,
// the ones that represent interviews already on the calendar.
func (r *Ranker) committedBlocks(ctx context.Context, tenantID string, participantIDs []string, within model.Interval) ([]model.Interval, error) {
	var out []model.Interval
	for _, userID := range participantIDs {
		blocks, err := r.busy.List(ctx, tenantID, userID, within)
		if err != nil {
			return nil, errors.WrapFailf(err, "list busy blocks of %s", userID)
		}
		for _, b := range blocks {
			if b.Source == model.SourceSlot {
				out = append(out, b.Interval)
			}
		}
	}
	return out, nil
}

// crowdPenalty grows linearly as the candidate approaches a committed
// interview on the same day, maxing out at 0.5 for back-to-back.
func crowdPenalty(candidate model.Interval, committed []model.Interval) float64 {
	gapMs := crowdGap.Milliseconds()
	worst := float64(0)

	for _, c := range committed {
		if !sameDay(candidate, c) {
			continue
		}

		var gap int64
		switch {
		case c.End() <= candidate.Start():
			gap = candidate.Start() - c.End()
		case candidate.End() <= c.Start():
			gap = c.Start() - candidate.End()
		default:
			gap = 0
		}
		if gap >= gapMs {
			continue
		}

		p := 0.5 * (1 - float64(gap)/float64(gapMs))
		if p > worst {
			worst = p
		}
	}
	return worst
}

func sameDay(a, b model.Interval) bool {
	ya, ma, da := a.From().Date()
	yb, mb, db := b.From().Date()
	return ya == yb && ma == mb && da == db
}
