package rules

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hireloop/slotd/internal/model"
	"github.com/hireloop/slotd/internal/repo/memory"
	"github.com/hireloop/slotd/pkg/errors"
	"github.com/hireloop/slotd/pkg/logger"
)

func day(hour, min int) time.Time {
	return time.Date(2024, 1, 8, hour, min, 0, 0, time.UTC)
}

func i64(v int64) *int64 { return &v }

func TestApply_MinNotice(t *testing.T) {
	// notice 60 min, now 14:30: nothing may start before 15:30
	rule := &model.SchedulingRule{MinNoticeMinutes: i64(60)}
	now := day(14, 30)

	type testcase struct {
		name       string
		candidates []model.Interval
		want       []model.Interval
	}

	tests := [...]testcase{
		{
			name:       "fully before threshold dropped",
			candidates: []model.Interval{model.NewInterval(day(14, 45), day(15, 30))},
			want:       []model.Interval{},
		},
		{
			name:       "straddling clipped to threshold",
			candidates: []model.Interval{model.NewInterval(day(14, 45), day(17, 0))},
			want:       []model.Interval{model.NewInterval(day(15, 30), day(17, 0))},
		},
		{
			name:       "after threshold untouched",
			candidates: []model.Interval{model.NewInterval(day(16, 0), day(17, 0))},
			want:       []model.Interval{model.NewInterval(day(16, 0), day(17, 0))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Apply(rule, tt.candidates, now, 30))
		})
	}
}

func TestApply_Buffers(t *testing.T) {
	rule := &model.SchedulingRule{
		BufferBeforeMinutes: i64(15),
		BufferAfterMinutes:  i64(15),
	}

	// 10:00-11:00 shrinks to 10:15-10:45; room for 30 min, not 45
	candidates := []model.Interval{model.NewInterval(day(10, 0), day(11, 0))}

	got := Apply(rule, candidates, day(0, 0), 30)
	require.Equal(t, []model.Interval{model.NewInterval(day(10, 15), day(10, 45))}, got)

	got = Apply(rule, candidates, day(0, 0), 45)
	require.Empty(t, got)
}

func TestApply_AllowedWeekdays(t *testing.T) {
	// 2024-01-08 is Monday
	rule := &model.SchedulingRule{AllowedDaysOfWeek: []int{int(time.Tuesday)}}

	got := Apply(rule, []model.Interval{model.NewInterval(day(10, 0), day(11, 0))}, day(0, 0), 30)
	require.Empty(t, got)

	rule.AllowedDaysOfWeek = []int{int(time.Monday), int(time.Tuesday)}
	got = Apply(rule, []model.Interval{model.NewInterval(day(10, 0), day(11, 0))}, day(0, 0), 30)
	require.Len(t, got, 1)
}

func TestApply_AllowedWeekdays_ClipsAtMidnight(t *testing.T) {
	// only Monday allowed: an interval running into Tuesday keeps
	// just its Monday part
	rule := &model.SchedulingRule{AllowedDaysOfWeek: []int{int(time.Monday)}}

	candidates := []model.Interval{model.NewInterval(day(22, 0), day(2, 0).AddDate(0, 0, 1))}
	got := Apply(rule, candidates, day(0, 0), 30)
	require.Equal(t, []model.Interval{model.NewInterval(day(22, 0), day(0, 0).AddDate(0, 0, 1))}, got)

	// both days allowed: the interval survives whole
	rule.AllowedDaysOfWeek = []int{int(time.Monday), int(time.Tuesday)}
	got = Apply(rule, candidates, day(0, 0), 30)
	require.Equal(t, candidates, got)
}

func TestApply_Blackouts(t *testing.T) {
	rule := &model.SchedulingRule{
		BlackoutPeriods: []model.Interval{model.NewInterval(day(12, 0), day(13, 0))},
	}

	got := Apply(rule, []model.Interval{model.NewInterval(day(9, 0), day(17, 0))}, day(0, 0), 60)
	require.Equal(t, []model.Interval{
		model.NewInterval(day(9, 0), day(12, 0)),
		model.NewInterval(day(13, 0), day(17, 0)),
	}, got)
}

func TestApply_NilRulePassesThrough(t *testing.T) {
	candidates := []model.Interval{
		model.NewInterval(day(9, 0), day(9, 20)),
		model.NewInterval(day(10, 0), day(11, 0)),
	}

	got := Apply(nil, candidates, day(0, 0), 30)
	require.Equal(t, []model.Interval{model.NewInterval(day(10, 0), day(11, 0))}, got)
}

func TestEngine_CheckDailyCap(t *testing.T) {
	ctx := context.Background()
	c := memory.NewClient()
	e := New(logger.NewStub(), c)

	one := 1
	rule := &model.SchedulingRule{MaxInterviewsPerDayPerUser: &one}

	// no bookings yet: first one fits
	err := e.CheckDailyCap(ctx, "t1", rule, []string{"alice"},
		model.NewInterval(day(10, 0), day(11, 0)), "")
	require.NoError(t, err)

	_, err = c.Slots().Insert(ctx, model.Slot{
		TenantID:     "t1",
		Interval:     model.NewInterval(day(14, 0), day(15, 0)),
		Participants: []string{"alice"},
		Status:       model.SlotBooked,
	})
	require.NoError(t, err)

	// second on the same day exceeds the cap
	err = e.CheckDailyCap(ctx, "t1", rule, []string{"alice"},
		model.NewInterval(day(10, 0), day(11, 0)), "")
	require.Error(t, err)
	require.Equal(t, errors.KindRuleViolation, errors.KindOf(err))

	// next day is fine
	err = e.CheckDailyCap(ctx, "t1", rule, []string{"alice"},
		model.NewInterval(day(10, 0).AddDate(0, 0, 1), day(11, 0).AddDate(0, 0, 1)), "")
	require.NoError(t, err)
}

func TestEngine_CheckDailyCap_ExcludesMovedSlot(t *testing.T) {
	ctx := context.Background()
	c := memory.NewClient()
	e := New(logger.NewStub(), c)

	one := 1
	rule := &model.SchedulingRule{MaxInterviewsPerDayPerUser: &one}

	id, err := c.Slots().Insert(ctx, model.Slot{
		TenantID:     "t1",
		Interval:     model.NewInterval(day(14, 0), day(15, 0)),
		Participants: []string{"alice"},
		Status:       model.SlotBooked,
	})
	require.NoError(t, err)

	// moving the only booked slot within the same day stays at the cap
	err = e.CheckDailyCap(ctx, "t1", rule, []string{"alice"},
		model.NewInterval(day(10, 0), day(11, 0)), id)
	require.NoError(t, err)
}

func TestEngine_CheckDailyCap_AvailableDoesNotCount(t *testing.T) {
	ctx := context.Background()
	c := memory.NewClient()
	e := New(logger.NewStub(), c)

	one := 1
	rule := &model.SchedulingRule{MaxInterviewsPerDayPerUser: &one}

	_, err := c.Slots().Insert(ctx, model.Slot{
		TenantID:     "t1",
		Interval:     model.NewInterval(day(14, 0), day(15, 0)),
		Participants: []string{"alice"},
		Status:       model.SlotAvailable,
	})
	require.NoError(t, err)

	err = e.CheckDailyCap(ctx, "t1", rule, []string{"alice"},
		model.NewInterval(day(10, 0), day(11, 0)), "")
	require.NoError(t, err)
}
