package slots

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hireloop/slotd/internal/availability"
	"github.com/hireloop/slotd/internal/model"
	"github.com/hireloop/slotd/internal/repo"
	"github.com/hireloop/slotd/internal/rules"
	"github.com/hireloop/slotd/pkg/errors"
	"github.com/hireloop/slotd/pkg/logger"
)

func New(
	log logger.Logger,
	client repo.Client,
	avail *availability.Engine,
	rulesEngine *rules.Engine,
	users UserDirectory,
	audit AuditSink,
	notify NotificationSink,
) *Manager {
	return &Manager{
		client: client,
		avail:  avail,
		rules:  rulesEngine,
		users:  users,
		audit:  audit,
		notify: notify,
		now:    time.Now,
		log:    log.With("slot_manager"),
	}
}

type Manager struct {
	client repo.Client
	avail  *availability.Engine
	rules  *rules.Engine
	users  UserDirectory
	audit  AuditSink
	notify NotificationSink

	// now is swappable in tests
	now func() time.Time

	log logger.Logger
}

func (m *Manager) Get(ctx context.Context, tenantID, slotID string) (*model.Slot, error) {
	slot, err := m.client.Slots().Get(ctx, tenantID, slotID)
	if err != nil {
		return nil, errors.WrapFail(err, "get slot")
	}
	if slot == nil {
		return nil, errors.Faulted(errors.KindNotFound, "slot %s", slotID)
	}
	return slot, nil
}

func (m *Manager) List(ctx context.Context, tenantID string, q repo.SlotQuery) ([]model.Slot, error) {
	slots, err := m.client.Slots().List(ctx, tenantID, q)
	return slots, errors.WrapFail(err, "list slots")
}

// CreateSlot persists a single AVAILABLE slot after checking the interval
// lies inside every participant's rules-filtered free time.
func (m *Manager) CreateSlot(ctx context.Context, tenantID, actorID string, interval model.Interval, participantIDs []string) (*model.Slot, error) {
	participants, err := m.resolve(ctx, tenantID, participantIDs)
	if err != nil {
		return nil, err
	}
	if !interval.Valid() {
		return nil, errors.Faulted(errors.KindValidation, "interval end must be after start")
	}

	if err := m.checkFree(ctx, tenantID, participants, interval, ""); err != nil {
		return nil, err
	}

	slot := model.Slot{
		TenantID:     tenantID,
		Interval:     interval,
		Participants: participants,
		Status:       model.SlotAvailable,
		CreatedBy:    actorID,
	}

	id, err := m.client.Slots().Insert(ctx, slot)
	if err != nil {
		return nil, errors.WrapFail(err, "insert slot")
	}
	slot.ID = id

	m.record(ctx, tenantID, id, actorID, "slot.create", nil)
	return &slot, nil
}

// GenerateSlots slices the rules-filtered intersection of the participants'
// free time into candidate slots of durationMinutes every strideMinutes.
// Slices already occupied by an identical AVAILABLE slot are skipped and
// counted; the call never fails partially.
func (m *Manager) GenerateSlots(ctx context.Context, tenantID, actorID string, within model.Interval, durationMinutes int64, participantIDs []string, strideMinutes int64) (created, skipped int, err error) {
	participants, err := m.resolve(ctx, tenantID, participantIDs)
	if err != nil {
		return 0, 0, err
	}
	if durationMinutes <= 0 {
		return 0, 0, errors.Faulted(errors.KindValidation, "duration must be positive")
	}
	if strideMinutes <= 0 {
		strideMinutes = durationMinutes
	}

	free, err := m.freeAfterRules(ctx, tenantID, participants, within, durationMinutes, "")
	if err != nil {
		return 0, 0, err
	}

	taken, err := m.existingSlotKeys(ctx, tenantID, within)
	if err != nil {
		return 0, 0, err
	}

	durMs := durationMinutes * time.Minute.Milliseconds()
	strideMs := strideMinutes * time.Minute.Milliseconds()

	var batch []model.Slot
	for _, f := range free {
		for start := f.Start(); start+durMs <= f.End(); start += strideMs {
			candidate := model.Interval{start, start + durMs}
			if _, dup := taken[slotKey(candidate, participants)]; dup {
				skipped++
				continue
			}
			batch = append(batch, model.Slot{
				TenantID:     tenantID,
				Interval:     candidate,
				Participants: participants,
				Status:       model.SlotAvailable,
				CreatedBy:    actorID,
			})
		}
	}

	ids, err := m.client.Slots().InsertMany(ctx, batch)
	if err != nil {
		return 0, 0, errors.WrapFail(err, "insert generated slots")
	}

	m.record(ctx, tenantID, "", actorID, "slot.generate", map[string]string{
		"created": itoa(len(ids)),
		"skipped": itoa(skipped),
	})
	return len(ids), skipped, nil
}

// BookSlot flips an AVAILABLE slot to BOOKED with a version-gated
// compare-and-set and writes the shadow busy blocks in the same
// transaction. Losing the race surfaces SLOT_ALREADY_BOOKED.
func (m *Manager) BookSlot(ctx context.Context, tenantID, slotID, actorID, candidateID string) (*model.Slot, error) {
	if candidateID == "" {
		return nil, errors.Faulted(errors.KindValidation, "candidate id required")
	}

	var booked *model.Slot

	err := m.client.Txn(ctx, func(ctx context.Context) error {
		slot, err := m.Get(ctx, tenantID, slotID)
		if err != nil {
			return err
		}

		switch slot.Status {
		case model.SlotAvailable:
		case model.SlotBooked:
			return errors.Faulted(errors.KindSlotTaken, "slot %s already booked", slotID)
		default:
			return errors.Faulted(errors.KindConflict, "slot %s is %s", slotID, slot.Status)
		}

		// daily cap re-validated against committed bookings, not the
		// possibly stale view the slot was generated from
		rule, err := m.rules.Snapshot(ctx, tenantID)
		if err != nil {
			return err
		}
		err = m.rules.CheckDailyCap(ctx, tenantID, rule, slot.Participants, slot.Interval, "")
		if err != nil {
			return err
		}

		ok, err := m.client.Slots().Book(ctx, tenantID, slotID, slot.Version, candidateID, actorID)
		if err != nil {
			return errors.WrapFail(err, "book slot")
		}
		if !ok {
			return errors.Faulted(errors.KindSlotTaken, "slot %s already booked", slotID)
		}

		err = m.client.BusyBlocks().InsertMany(ctx, shadowBlocks(*slot))
		if err != nil {
			return errors.WrapFail(err, "insert shadow busy blocks")
		}

		slot.Status = model.SlotBooked
		slot.CandidateID = candidateID
		slot.BookedBy = actorID
		slot.Version++
		booked = slot
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.record(ctx, tenantID, slotID, actorID, "slot.book", map[string]string{"candidate": candidateID})
	m.send(ctx, candidateID, slotID, NotifyBooked)
	return booked, nil
}

// RescheduleSlot marks the old BOOKED slot RESCHEDULED and creates its
// replacement at newInterval as one atomic pair. The old slot's own shadow
// blocks are ignored while validating, so a slot can move within its own
// time.
func (m *Manager) RescheduleSlot(ctx context.Context, tenantID, slotID, actorID string, newInterval model.Interval) (*model.Slot, error) {
	if !newInterval.Valid() {
		return nil, errors.Faulted(errors.KindValidation, "interval end must be after start")
	}

	var (
		replacement *model.Slot
		candidateID string
	)

	err := m.client.Txn(ctx, func(ctx context.Context) error {
		old, err := m.Get(ctx, tenantID, slotID)
		if err != nil {
			return err
		}
		if old.Status != model.SlotBooked {
			return errors.Faulted(errors.KindNotFound, "no booked slot %s", slotID)
		}
		candidateID = old.CandidateID

		err = m.checkFree(ctx, tenantID, old.Participants, newInterval, slotID)
		if err != nil {
			return err
		}

		rule, err := m.rules.Snapshot(ctx, tenantID)
		if err != nil {
			return err
		}
		err = m.rules.CheckDailyCap(ctx, tenantID, rule, old.Participants, newInterval, slotID)
		if err != nil {
			return err
		}

		ok, err := m.client.Slots().SetStatus(ctx, tenantID, slotID, old.Version, model.SlotRescheduled)
		if err != nil {
			return errors.WrapFail(err, "retire old slot")
		}
		if !ok {
			return errors.Faulted(errors.KindConflict, "slot %s changed concurrently", slotID)
		}

		err = m.client.BusyBlocks().DeleteBySlot(ctx, tenantID, slotID)
		if err != nil {
			return errors.WrapFail(err, "release shadow busy blocks")
		}

		next := model.Slot{
			TenantID:        tenantID,
			Interval:        newInterval,
			Participants:    old.Participants,
			CandidateID:     old.CandidateID,
			Status:          model.SlotBooked,
			CreatedBy:       actorID,
			BookedBy:        old.BookedBy,
			RescheduledFrom: slotID,
		}

		id, err := m.client.Slots().Insert(ctx, next)
		if err != nil {
			return errors.WrapFail(err, "insert replacement slot")
		}
		next.ID = id

		err = m.client.BusyBlocks().InsertMany(ctx, shadowBlocks(next))
		if err != nil {
			return errors.WrapFail(err, "insert replacement shadow blocks")
		}

		replacement = &next
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.record(ctx, tenantID, replacement.ID, actorID, "slot.reschedule", map[string]string{"from": slotID})
	m.send(ctx, candidateID, replacement.ID, NotifyRescheduled)
	return replacement, nil
}

// CancelSlot is allowed from AVAILABLE or BOOKED and releases the shadow
// blocks. Cancelling an already cancelled slot succeeds, tolerating
// retries.
func (m *Manager) CancelSlot(ctx context.Context, tenantID, slotID, actorID string) error {
	var candidateID string

	err := m.client.Txn(ctx, func(ctx context.Context) error {
		slot, err := m.Get(ctx, tenantID, slotID)
		if err != nil {
			return err
		}

		if slot.Status == model.SlotCancelled {
			return nil
		}
		if !slot.Status.CanTransition(model.SlotCancelled) {
			return errors.Faulted(errors.KindConflict, "slot %s is %s", slotID, slot.Status)
		}
		candidateID = slot.CandidateID

		ok, err := m.client.Slots().SetStatus(ctx, tenantID, slotID, slot.Version, model.SlotCancelled)
		if err != nil {
			return errors.WrapFail(err, "cancel slot")
		}
		if !ok {
			return errors.Faulted(errors.KindConflict, "slot %s changed concurrently", slotID)
		}

		return errors.WrapFail(
			m.client.BusyBlocks().DeleteBySlot(ctx, tenantID, slotID),
			"release shadow busy blocks",
		)
	})
	if err != nil {
		return err
	}

	m.record(ctx, tenantID, slotID, actorID, "slot.cancel", nil)
	if candidateID != "" {
		m.send(ctx, candidateID, slotID, NotifyCancelled)
	}
	return nil
}

// CompleteDue flips BOOKED slots whose end has passed to COMPLETED.
// Driven by the periodic sweep, not by users.
func (m *Manager) CompleteDue(ctx context.Context, tenantID string, now time.Time) (int, error) {
	booked := model.SlotBooked
	slots, err := m.client.Slots().List(ctx, tenantID, repo.SlotQuery{Status: &booked})
	if err != nil {
		return 0, errors.WrapFail(err, "list booked slots")
	}

	completed := 0
	for _, slot := range slots {
		if slot.Interval.End() > now.UnixMilli() {
			continue
		}

		ok, err := m.client.Slots().SetStatus(ctx, tenantID, slot.ID, slot.Version, model.SlotCompleted)
		if err != nil {
			return completed, errors.WrapFail(err, "complete slot")
		}
		if ok {
			completed++
			m.record(ctx, tenantID, slot.ID, "", "slot.complete", nil)
		}
	}

	return completed, nil
}

func (m *Manager) resolve(ctx context.Context, tenantID string, participantIDs []string) ([]string, error) {
	if len(participantIDs) == 0 {
		return nil, errors.Faulted(errors.KindValidation, "empty participant set")
	}

	// unknown participants surface as validation faults from the
	// directory itself; lookup failures stay unclassified
	resolved, err := m.users.ResolveParticipants(ctx, tenantID, dedupe(participantIDs))
	return resolved, errors.WrapFail(err, "resolve participants")
}

// checkFree verifies interval sits inside the rules-filtered intersection
// of the participants' free time.
func (m *Manager) checkFree(ctx context.Context, tenantID string, participants []string, interval model.Interval, excludeSlotID string) error {
	durationMinutes := int64(interval.Duration() / time.Minute)
	if durationMinutes <= 0 {
		return errors.Faulted(errors.KindValidation, "interval shorter than a minute")
	}

	free, err := m.freeAfterRules(ctx, tenantID, participants, interval, durationMinutes, excludeSlotID)
	if err != nil {
		return err
	}

	for _, f := range free {
		if f.Contains(interval) {
			return nil
		}
	}

	return errors.Conflict("interval not free for all participants", interval)
}

func (m *Manager) freeAfterRules(ctx context.Context, tenantID string, participants []string, within model.Interval, durationMinutes int64, excludeSlotID string) ([]model.Interval, error) {
	intersection, _, err := m.avail.IntersectionExcludingSlot(ctx, tenantID, participants, within, durationMinutes, excludeSlotID)
	if err != nil {
		return nil, err
	}

	rule, err := m.rules.Snapshot(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	return rules.Apply(rule, intersection, m.now(), durationMinutes), nil
}

func (m *Manager) existingSlotKeys(ctx context.Context, tenantID string, within model.Interval) (map[string]struct{}, error) {
	available := model.SlotAvailable
	existing, err := m.client.Slots().List(ctx, tenantID, repo.SlotQuery{
		Within: &within,
		Status: &available,
	})
	if err != nil {
		return nil, errors.WrapFail(err, "list existing slots")
	}

	keys := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		keys[slotKey(s.Interval, s.Participants)] = struct{}{}
	}
	return keys, nil
}

func (m *Manager) record(ctx context.Context, tenantID, slotID, actorID, action string, details map[string]string) {
	if m.audit == nil {
		return
	}

	err := m.audit.Record(ctx, AuditEvent{
		TenantID: tenantID,
		SlotID:   slotID,
		ActorID:  actorID,
		Action:   action,
		At:       m.now().UnixMilli(),
		Details:  details,
	})
	if err != nil {
		m.log.Warn(errors.WrapFail(err, "record audit event"))
	}
}

func (m *Manager) send(ctx context.Context, candidateID, slotID string, kind NotificationKind) {
	if m.notify == nil {
		return
	}

	err := m.notify.Notify(ctx, candidateID, slotID, kind)
	if err != nil {
		m.log.Warn(errors.WrapFailf(err, "notify candidate %s", candidateID))
	}
}

func shadowBlocks(slot model.Slot) []model.BusyBlock {
	blocks := make([]model.BusyBlock, 0, len(slot.Participants))
	for _, userID := range slot.Participants {
		blocks = append(blocks, model.BusyBlock{
			TenantID: slot.TenantID,
			UserID:   userID,
			Interval: slot.Interval,
			Source:   model.SourceSlot,
			SlotID:   slot.ID,
		})
	}
	return blocks
}

func slotKey(interval model.Interval, participants []string) string {
	var b strings.Builder
	b.WriteString(interval.From().Format(time.RFC3339))
	b.WriteByte('/')
	b.WriteString(interval.To().Format(time.RFC3339))
	for _, p := range participants {
		b.WriteByte('/')
		b.WriteString(p)
	}
	return b.String()
}

func dedupe(ids []string) []string {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)

	out := sorted[:0]
	for i, id := range sorted {
		if i == 0 || id != sorted[i-1] {
			out = append(out, id)
		}
	}
	return out
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
