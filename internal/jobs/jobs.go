package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hireloop/slotd/internal/calfeed"
	"github.com/hireloop/slotd/internal/model"
	"github.com/hireloop/slotd/internal/slots"
	"github.com/hireloop/slotd/pkg/errors"
	"github.com/hireloop/slotd/pkg/logger"
)

type Config struct {
	// SyncSpec and SweepSpec are cron expressions, "@every 5m" style.
	SyncSpec  string `yaml:"sync_spec"`
	SweepSpec string `yaml:"sweep_spec"`

	// SyncHorizonDays bounds how far ahead calendar feeds are pulled.
	SyncHorizonDays int `yaml:"sync_horizon_days"`

	// Tenants the completion sweep iterates over.
	Tenants []string `yaml:"tenants"`
}

func New(log logger.Logger, cfg Config, syncer *calfeed.Syncer, manager *slots.Manager) *Runner {
	return &Runner{
		cron:    cron.New(),
		cfg:     cfg,
		syncer:  syncer,
		manager: manager,
		log:     log.With("jobs"),
	}
}

// Runner drives the periodic background work: pulling calendar feeds and
// completing past interviews.
type Runner struct {
	cron    *cron.Cron
	cfg     Config
	syncer  *calfeed.Syncer
	manager *slots.Manager
	log     logger.Logger
}

func (r *Runner) Start(ctx context.Context) error {
	if r.syncer != nil && r.cfg.SyncSpec != "" {
		_, err := r.cron.AddFunc(r.cfg.SyncSpec, func() { r.syncCycle(ctx) })
		if err != nil {
			return errors.WrapFail(err, "schedule sync cycle")
		}
	}

	if r.cfg.SweepSpec != "" {
		_, err := r.cron.AddFunc(r.cfg.SweepSpec, func() { r.completionSweep(ctx) })
		if err != nil {
			return errors.WrapFail(err, "schedule completion sweep")
		}
	}

	r.cron.Start()
	return nil
}

// Stop waits for running jobs to finish.
func (r *Runner) Stop() {
	<-r.cron.Stop().Done()
}

func (r *Runner) syncCycle(ctx context.Context) {
	horizon := r.cfg.SyncHorizonDays
	if horizon <= 0 {
		horizon = 30
	}

	now := time.Now()
	within := model.NewInterval(now, now.AddDate(0, 0, horizon))
	r.syncer.SyncAll(ctx, within)
}

func (r *Runner) completionSweep(ctx context.Context) {
	now := time.Now()
	for _, tenantID := range r.cfg.Tenants {
		n, err := r.manager.CompleteDue(ctx, tenantID, now)
		if err != nil {
			r.log.Error(errors.WrapFailf(err, "sweep tenant %s", tenantID))
			continue
		}
		if n > 0 {
			r.log.Infof("completed %d interviews for tenant %s", n, tenantID)
		}
	}
}
