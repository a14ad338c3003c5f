package repo

import (
	"context"

	"github.com/hireloop/slotd/internal/model"
)

type Client interface {
	Slots() SlotsRepo
	BusyBlocks() BusyBlocksRepo
	WorkingHours() WorkingHoursRepo
	Rules() RulesRepo

	// Txn runs do with transactional semantics; every repo call made
	// with the context passed to do joins the same transaction.
	Txn(ctx context.Context, do func(ctx context.Context) error) error

	Close(ctx context.Context) error
}

// SlotQuery narrows List; zero fields mean no filter.
type SlotQuery struct {
	Within      *model.Interval
	Status      *model.SlotStatus
	Participant string
}

type SlotsRepo interface {
	Insert(ctx context.Context, slot model.Slot) (id string, err error)
	InsertMany(ctx context.Context, slots []model.Slot) (ids []string, err error)

	// Get returns nil without error when the slot does not exist
	// for this tenant.
	Get(ctx context.Context, tenantID, id string) (*model.Slot, error)

	List(ctx context.Context, tenantID string, q SlotQuery) ([]model.Slot, error)

	// Book is the version-gated compare-and-set: it flips the slot to
	// BOOKED only if it is still AVAILABLE at the given version.
	// false means another writer won the race.
	Book(ctx context.Context, tenantID, id string, version int64, candidateID, actorID string) (bool, error)

	// SetStatus flips the status, gated on the version counter.
	SetStatus(ctx context.Context, tenantID, id string, version int64, to model.SlotStatus) (bool, error)

	// ListBookedOverlapping returns BOOKED slots of the user
	// overlapping the interval. Used by the daily-cap check.
	ListBookedOverlapping(ctx context.Context, tenantID, userID string, within model.Interval) ([]model.Slot, error)
}

type BusyBlocksRepo interface {
	Insert(ctx context.Context, block model.BusyBlock) (id string, err error)
	InsertMany(ctx context.Context, blocks []model.BusyBlock) error

	// List returns the user's blocks overlapping within, all sources.
	List(ctx context.Context, tenantID, userID string, within model.Interval) ([]model.BusyBlock, error)

	Delete(ctx context.Context, tenantID, id string) (deleted bool, err error)

	// DeleteBySlot releases the shadow blocks of a slot.
	DeleteBySlot(ctx context.Context, tenantID, slotID string) error

	// ReplaceProvider swaps all SYNCED:<provider> blocks of the user
	// wholesale, one sync cycle at a time.
	ReplaceProvider(ctx context.Context, tenantID, userID, provider string, intervals []model.Interval) error
}

type WorkingHoursRepo interface {
	Get(ctx context.Context, tenantID, userID string) (*model.WorkingHours, error)
	Set(ctx context.Context, hours model.WorkingHours) error
}

type RulesRepo interface {
	// Get returns nil without error when the tenant has no rule set.
	Get(ctx context.Context, tenantID string) (*model.SchedulingRule, error)
	Upsert(ctx context.Context, rule model.SchedulingRule) error
	Delete(ctx context.Context, tenantID string) (deleted bool, err error)
}
