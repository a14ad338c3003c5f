package calfeed

import (
	"context"
	"sync"

	"github.com/hireloop/slotd/internal/model"
	"github.com/hireloop/slotd/internal/repo"
	"github.com/hireloop/slotd/pkg/errors"
	"github.com/hireloop/slotd/pkg/logger"
)

// Adapter pulls the busy intervals of one user from an external calendar.
type Adapter interface {
	Provider() string
	PullBusyIntervals(ctx context.Context, creds Credentials, within model.Interval) ([]model.Interval, error)
}

// Credentials identify one user's calendar on one provider. Feeds are
// registered per user, so one user can sync several calendars.
type Credentials struct {
	TenantID string
	UserID   string

	// Token is the provider-specific access token, serialized.
	Token string

	// CalendarID defaults to the provider's primary calendar.
	CalendarID string
}

func NewSyncer(log logger.Logger, client repo.Client, adapters ...Adapter) *Syncer {
	byName := make(map[string]Adapter, len(adapters))
	for _, a := range adapters {
		byName[a.Provider()] = a
	}
	return &Syncer{
		busy:     client.BusyBlocks(),
		adapters: byName,
		degraded: map[string]map[string]struct{}{},
		log:      log.With("calfeed"),
	}
}

// Syncer pulls external calendars and swaps each user's synced blocks
// wholesale. A failed pull keeps the previous blocks and marks the
// provider degraded for the tenant until the next successful cycle.
type Syncer struct {
	busy     repo.BusyBlocksRepo
	adapters map[string]Adapter

	mu       sync.Mutex
	feeds    []feed
	degraded map[string]map[string]struct{}

	log logger.Logger
}

type feed struct {
	provider string
	creds    Credentials
}

// Register adds a user's calendar to the sync cycle.
func (s *Syncer) Register(provider string, creds Credentials) error {
	if _, ok := s.adapters[provider]; !ok {
		return errors.Error("unknown calendar provider %q", provider)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.feeds = append(s.feeds, feed{provider: provider, creds: creds})
	return nil
}

// SyncAll runs one cycle over every registered feed. Individual failures
// degrade the feed without aborting the cycle.
func (s *Syncer) SyncAll(ctx context.Context, within model.Interval) {
	s.mu.Lock()
	feeds := make([]feed, len(s.feeds))
	copy(feeds, s.feeds)
	s.mu.Unlock()

	for _, f := range feeds {
		err := s.syncOne(ctx, f, within)
		if err != nil {
			s.log.Warn(errors.WrapFailf(err, "sync %s feed of %s", f.provider, f.creds.UserID))
			s.markDegraded(f.creds.TenantID, f.provider)
			continue
		}
		s.clearDegraded(f.creds.TenantID, f.provider)
	}
}

func (s *Syncer) syncOne(ctx context.Context, f feed, within model.Interval) error {
	intervals, err := s.adapters[f.provider].PullBusyIntervals(ctx, f.creds, within)
	if err != nil {
		return errors.Wrap(err, "pull busy intervals")
	}

	return errors.WrapFail(
		s.busy.ReplaceProvider(ctx, f.creds.TenantID, f.creds.UserID, f.provider, intervals),
		"replace provider blocks",
	)
}

// Degraded implements availability.FeedHealth.
func (s *Syncer) Degraded(tenantID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	providers := s.degraded[tenantID]
	if len(providers) == 0 {
		return nil
	}

	out := make([]string, 0, len(providers))
	for p := range providers {
		out = append(out, p)
	}
	return out
}

func (s *Syncer) markDegraded(tenantID, provider string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.degraded[tenantID] == nil {
		s.degraded[tenantID] = map[string]struct{}{}
	}
	s.degraded[tenantID][provider] = struct{}{}
}

func (s *Syncer) clearDegraded(tenantID, provider string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.degraded[tenantID], provider)
}
