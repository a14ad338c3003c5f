package slots

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/hireloop/slotd/internal/availability"
	"github.com/hireloop/slotd/internal/model"
	"github.com/hireloop/slotd/internal/repo/memory"
	"github.com/hireloop/slotd/internal/rules"
	"github.com/hireloop/slotd/pkg/errors"
	"github.com/hireloop/slotd/pkg/logger"
)

// Sink failures must never roll a committed operation back.
func TestManager_SinkFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)

	client := memory.NewClient()
	log := logger.NewStub()

	users := NewMockUserDirectory(ctrl)
	users.EXPECT().
		ResolveParticipants(gomock.Any(), "t1", []string{"alice"}).
		Return([]string{"alice"}, nil).
		AnyTimes()

	audit := NewMockAuditSink(ctrl)
	audit.EXPECT().
		Record(gomock.Any(), gomock.Any()).
		Return(errors.Error("broker down")).
		AnyTimes()

	notify := NewMockNotificationSink(ctrl)
	notify.EXPECT().
		Notify(gomock.Any(), "cand", gomock.Any(), NotifyBooked).
		Return(errors.Error("smtp down"))

	mgr := New(log, client, availability.New(log, client, nil), rules.New(log, client), users, audit, notify)
	mgr.now = func() time.Time { return monday(8, 0) }

	err := client.WorkingHours().Set(ctx, model.WorkingHours{
		TenantID: "t1",
		UserID:   "alice",
		Timezone: "UTC",
		Days: []model.DayHours{
			{Weekday: int(time.Monday), Ranges: []model.MinuteRange{{9 * 60, 17 * 60}}},
		},
	})
	require.NoError(t, err)

	slot, err := mgr.CreateSlot(ctx, "t1", "hr1",
		model.NewInterval(monday(10, 0), monday(11, 0)), []string{"alice"})
	require.NoError(t, err)

	booked, err := mgr.BookSlot(ctx, "t1", slot.ID, "hr1", "cand")
	require.NoError(t, err)
	require.Equal(t, model.SlotBooked, booked.Status)
}

func TestManager_BookRecordsAuditEvent(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)

	client := memory.NewClient()
	log := logger.NewStub()

	users := NewMockUserDirectory(ctrl)
	users.EXPECT().
		ResolveParticipants(gomock.Any(), "t1", []string{"alice"}).
		Return([]string{"alice"}, nil)

	audit := NewMockAuditSink(ctrl)
	gomock.InOrder(
		audit.EXPECT().
			Record(gomock.Any(), eventWithAction("slot.create")).
			Return(nil),
		audit.EXPECT().
			Record(gomock.Any(), eventWithAction("slot.book")).
			Return(nil),
	)

	mgr := New(log, client, availability.New(log, client, nil), rules.New(log, client), users, audit, nil)
	mgr.now = func() time.Time { return monday(8, 0) }

	err := client.WorkingHours().Set(ctx, model.WorkingHours{
		TenantID: "t1",
		UserID:   "alice",
		Timezone: "UTC",
		Days: []model.DayHours{
			{Weekday: int(time.Monday), Ranges: []model.MinuteRange{{9 * 60, 17 * 60}}},
		},
	})
	require.NoError(t, err)

	slot, err := mgr.CreateSlot(ctx, "t1", "hr1",
		model.NewInterval(monday(10, 0), monday(11, 0)), []string{"alice"})
	require.NoError(t, err)

	_, err = mgr.BookSlot(ctx, "t1", slot.ID, "hr1", "cand")
	require.NoError(t, err)
}

func eventWithAction(action string) gomock.Matcher {
	return gomock.Cond(func(x any) bool {
		event, ok := x.(AuditEvent)
		return ok && event.Action == action
	})
}
