// Package memory is a process-local repo.Client used by the development
// environment and the tests. Single-writer semantics: every transaction
// takes a global lock, so it cannot roll back and never needs to.
package memory

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hireloop/slotd/internal/model"
	"github.com/hireloop/slotd/internal/repo"
)

func NewClient() repo.Client {
	c := &client{
		slots: map[string]model.Slot{},
		busy:  map[string]model.BusyBlock{},
		hours: map[string]model.WorkingHours{},
		rules: map[string]model.SchedulingRule{},
	}
	return c
}

type client struct {
	mu    sync.Mutex
	txnMu sync.Mutex
	seq   atomic.Int64

	slots map[string]model.Slot
	busy  map[string]model.BusyBlock
	hours map[string]model.WorkingHours
	rules map[string]model.SchedulingRule
}

func (c *client) Slots() repo.SlotsRepo               { return memSlots{c} }
func (c *client) BusyBlocks() repo.BusyBlocksRepo     { return memBusy{c} }
func (c *client) WorkingHours() repo.WorkingHoursRepo { return memHours{c} }
func (c *client) Rules() repo.RulesRepo               { return memRules{c} }

func (c *client) Txn(ctx context.Context, do func(ctx context.Context) error) error {
	c.txnMu.Lock()
	defer c.txnMu.Unlock()
	return do(ctx)
}

func (c *client) Close(ctx context.Context) error { return nil }

func (c *client) nextID() string {
	ts := strconv.FormatInt(time.Now().UnixMicro(), 16)
	return ts + strconv.FormatInt(c.seq.Add(1), 16)
}

type memSlots struct{ c *client }

func (m memSlots) Insert(ctx context.Context, slot model.Slot) (string, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()

	slot.ID = m.c.nextID()
	slot.CreatedAt = time.Now().UnixMilli()
	m.c.slots[slot.ID] = slot
	return slot.ID, nil
}

func (m memSlots) InsertMany(ctx context.Context, slots []model.Slot) ([]string, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()

	now := time.Now().UnixMilli()
	ids := make([]string, 0, len(slots))
	for _, slot := range slots {
		slot.ID = m.c.nextID()
		slot.CreatedAt = now
		m.c.slots[slot.ID] = slot
		ids = append(ids, slot.ID)
	}
	return ids, nil
}

func (m memSlots) Get(ctx context.Context, tenantID, id string) (*model.Slot, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()

	slot, ok := m.c.slots[id]
	if !ok || slot.TenantID != tenantID {
		return nil, nil
	}
	return &slot, nil
}

func (m memSlots) List(ctx context.Context, tenantID string, q repo.SlotQuery) ([]model.Slot, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()

	var out []model.Slot
	for _, slot := range m.c.slots {
		if slot.TenantID != tenantID {
			continue
		}
		if q.Status != nil && slot.Status != *q.Status {
			continue
		}
		if q.Within != nil && !slot.Interval.Overlaps(*q.Within) {
			continue
		}
		if q.Participant != "" && !contains(slot.Participants, q.Participant) {
			continue
		}
		out = append(out, slot)
	}
	return out, nil
}

func (m memSlots) Book(ctx context.Context, tenantID, id string, version int64, candidateID, actorID string) (bool, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()

	slot, ok := m.c.slots[id]
	if !ok || slot.TenantID != tenantID || slot.Version != version || slot.Status != model.SlotAvailable {
		return false, nil
	}

	slot.Status = model.SlotBooked
	slot.CandidateID = candidateID
	slot.BookedBy = actorID
	slot.Version++
	m.c.slots[id] = slot
	return true, nil
}

func (m memSlots) SetStatus(ctx context.Context, tenantID, id string, version int64, to model.SlotStatus) (bool, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()

	slot, ok := m.c.slots[id]
	if !ok || slot.TenantID != tenantID || slot.Version != version {
		return false, nil
	}

	slot.Status = to
	slot.Version++
	m.c.slots[id] = slot
	return true, nil
}

func (m memSlots) ListBookedOverlapping(ctx context.Context, tenantID, userID string, within model.Interval) ([]model.Slot, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()

	var out []model.Slot
	for _, slot := range m.c.slots {
		if slot.TenantID != tenantID || slot.Status != model.SlotBooked {
			continue
		}
		if !contains(slot.Participants, userID) || !slot.Interval.Overlaps(within) {
			continue
		}
		out = append(out, slot)
	}
	return out, nil
}

type memBusy struct{ c *client }

func (m memBusy) Insert(ctx context.Context, block model.BusyBlock) (string, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()

	block.ID = m.c.nextID()
	m.c.busy[block.ID] = block
	return block.ID, nil
}

func (m memBusy) InsertMany(ctx context.Context, blocks []model.BusyBlock) error {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()

	for _, block := range blocks {
		block.ID = m.c.nextID()
		m.c.busy[block.ID] = block
	}
	return nil
}

func (m memBusy) List(ctx context.Context, tenantID, userID string, within model.Interval) ([]model.BusyBlock, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()

	var out []model.BusyBlock
	for _, block := range m.c.busy {
		if block.TenantID != tenantID || block.UserID != userID {
			continue
		}
		if !block.Interval.Overlaps(within) {
			continue
		}
		out = append(out, block)
	}
	return out, nil
}

func (m memBusy) Delete(ctx context.Context, tenantID, id string) (bool, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()

	block, ok := m.c.busy[id]
	if !ok || block.TenantID != tenantID {
		return false, nil
	}
	delete(m.c.busy, id)
	return true, nil
}

func (m memBusy) DeleteBySlot(ctx context.Context, tenantID, slotID string) error {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()

	for id, block := range m.c.busy {
		if block.TenantID == tenantID && block.SlotID == slotID {
			delete(m.c.busy, id)
		}
	}
	return nil
}

func (m memBusy) ReplaceProvider(ctx context.Context, tenantID, userID, provider string, intervals []model.Interval) error {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()

	source := model.SyncedSource(provider)
	for id, block := range m.c.busy {
		if block.TenantID == tenantID && block.UserID == userID && block.Source == source {
			delete(m.c.busy, id)
		}
	}

	for _, t := range intervals {
		id := m.c.nextID()
		m.c.busy[id] = model.BusyBlock{
			ID:       id,
			TenantID: tenantID,
			UserID:   userID,
			Interval: t,
			Source:   source,
		}
	}
	return nil
}

type memHours struct{ c *client }

func (m memHours) Get(ctx context.Context, tenantID, userID string) (*model.WorkingHours, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()

	hours, ok := m.c.hours[tenantID+"/"+userID]
	if !ok {
		return nil, nil
	}
	return &hours, nil
}

func (m memHours) Set(ctx context.Context, hours model.WorkingHours) error {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()

	m.c.hours[hours.TenantID+"/"+hours.UserID] = hours
	return nil
}

type memRules struct{ c *client }

func (m memRules) Get(ctx context.Context, tenantID string) (*model.SchedulingRule, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()

	rule, ok := m.c.rules[tenantID]
	if !ok {
		return nil, nil
	}
	return &rule, nil
}

func (m memRules) Upsert(ctx context.Context, rule model.SchedulingRule) error {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()

	m.c.rules[rule.TenantID] = rule
	return nil
}

func (m memRules) Delete(ctx context.Context, tenantID string) (bool, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()

	_, ok := m.c.rules[tenantID]
	delete(m.c.rules, tenantID)
	return ok, nil
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
