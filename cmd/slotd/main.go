package main

import (
	"context"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hireloop/slotd/internal/api"
	"github.com/hireloop/slotd/internal/audit"
	"github.com/hireloop/slotd/internal/availability"
	"github.com/hireloop/slotd/internal/calfeed"
	"github.com/hireloop/slotd/internal/jobs"
	"github.com/hireloop/slotd/internal/notify"
	"github.com/hireloop/slotd/internal/repo"
	"github.com/hireloop/slotd/internal/repo/memory"
	"github.com/hireloop/slotd/internal/repo/mongodb"
	"github.com/hireloop/slotd/internal/rules"
	"github.com/hireloop/slotd/internal/slots"
	"github.com/hireloop/slotd/internal/suggest"
	"github.com/hireloop/slotd/internal/users"
	"github.com/hireloop/slotd/pkg/environment"
	"github.com/hireloop/slotd/pkg/errors"
	"github.com/hireloop/slotd/pkg/logger"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		stdlog.Panic(errors.WrapFail(err, "load config"))
	}

	log, err := logger.New(cfg.Environment)
	if err != nil {
		stdlog.Panic(errors.WrapFail(err, "init logger"))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGABRT)
	defer cancel()

	client, err := newRepoClient(ctx, log, cfg)
	if err != nil {
		log.Panic(errors.WrapFail(err, "init repo client"))
	}

	syncer := newSyncer(log, client, cfg)

	avail := availability.New(log, client, syncer)
	rulesEngine := rules.New(log, client)

	manager := slots.New(
		log, client, avail, rulesEngine,
		users.NewDirectory(client),
		newAuditSink(log, cfg),
		newNotificationSink(log, cfg),
	)
	ranker := suggest.New(log, client, avail, rulesEngine)

	runner := jobs.New(log, cfg.Jobs, syncer, manager)
	err = runner.Start(ctx)
	if err != nil {
		log.Panic(errors.WrapFail(err, "start background jobs"))
	}

	server := api.NewServer(cfg.API, log, client, avail, manager, ranker)

	stopped := make(chan struct{})
	context.AfterFunc(ctx, func() {
		stdlog.Println("Graceful shutdown...")
		runner.Stop()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Error(errors.WrapFail(err, "shutdown server"))
		}
		stopped <- struct{}{}
	})

	stdlog.Println("Serving on", cfg.API.HTTP.Addr)
	err = server.Serve(ctx)
	if err != nil {
		log.Error(errors.WrapFail(err, "serve"))
	}

	<-stopped
	stdlog.Println("Shutdown complete")
}

func newRepoClient(ctx context.Context, log logger.Logger, cfg *Config) (repo.Client, error) {
	if cfg.Environment != environment.Production {
		return memory.NewClient(), nil
	}
	return mongodb.NewClient(ctx, log, cfg.Mongo)
}

func newSyncer(log logger.Logger, client repo.Client, cfg *Config) *calfeed.Syncer {
	var adapters []calfeed.Adapter
	if cfg.Calendar.Google != nil {
		adapters = append(adapters, calfeed.NewGoogleAdapter(*cfg.Calendar.Google))
	}

	syncer := calfeed.NewSyncer(log, client, adapters...)

	for _, f := range cfg.Calendar.Feeds {
		err := syncer.Register(f.Provider, calfeed.Credentials{
			TenantID:   f.TenantID,
			UserID:     f.UserID,
			Token:      f.Token,
			CalendarID: f.CalendarID,
		})
		if err != nil {
			log.Warn(errors.WrapFailf(err, "register %s feed of %s", f.Provider, f.UserID))
		}
	}

	return syncer
}

func newAuditSink(log logger.Logger, cfg *Config) slots.AuditSink {
	if cfg.Audit.Kafka != nil {
		return audit.NewKafkaSink(*cfg.Audit.Kafka, log)
	}
	return audit.NewLogSink(log)
}

func newNotificationSink(log logger.Logger, cfg *Config) slots.NotificationSink {
	var sinks []slots.NotificationSink

	if cfg.Notify.Email != nil {
		sinks = append(sinks, notify.NewEmailSink(*cfg.Notify.Email, cfg.Notify.Contacts, log))
	}

	if cfg.Notify.Telegram != nil {
		sink, err := notify.NewTelegramSink(*cfg.Notify.Telegram, cfg.Notify.Contacts, log)
		if err != nil {
			log.Warn(errors.WrapFail(err, "init telegram sink"))
		} else {
			sinks = append(sinks, sink)
		}
	}

	if len(sinks) == 0 {
		return notify.NewLogSink(log)
	}
	return notify.Multi(log, sinks...)
}
