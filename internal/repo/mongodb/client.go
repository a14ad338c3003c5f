package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hireloop/slotd/internal/repo"
	"github.com/hireloop/slotd/pkg/errors"
	"github.com/hireloop/slotd/pkg/logger"
)

const (
	slotsCollection = "slots"
	busyCollection  = "busy_blocks"
	hoursCollection = "working_hours"
	rulesCollection = "scheduling_rules"
)

func NewClient(ctx context.Context, log logger.Logger, cfg repo.Config) (repo.Client, error) {
	opts := options.Client().
		ApplyURI(cfg.URL).
		SetTimeout(cfg.Timeout).
		SetMinPoolSize(cfg.Pool.MinSize).
		SetMaxPoolSize(cfg.Pool.MaxSize)

	if cfg.Auth.Username != "" {
		opts = opts.SetAuth(options.Credential{
			Username: cfg.Auth.Username,
			Password: cfg.Auth.Password,
		})
	}

	c, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.WrapFail(err, "connect to mongo db")
	}

	db := c.Database(cfg.Database)
	return &client{
		c:     c,
		log:   log.With("mongo_repo"),
		slots: mongoSlots{coll: db.Collection(slotsCollection)},
		busy:  mongoBusy{coll: db.Collection(busyCollection)},
		hours: mongoHours{coll: db.Collection(hoursCollection)},
		rules: mongoRules{coll: db.Collection(rulesCollection)},
	}, nil
}

type client struct {
	c   *mongo.Client
	log logger.Logger

	slots mongoSlots
	busy  mongoBusy
	hours mongoHours
	rules mongoRules
}

func (c *client) Slots() repo.SlotsRepo               { return c.slots }
func (c *client) BusyBlocks() repo.BusyBlocksRepo     { return c.busy }
func (c *client) WorkingHours() repo.WorkingHoursRepo { return c.hours }
func (c *client) Rules() repo.RulesRepo               { return c.rules }

func (c *client) Txn(ctx context.Context, do func(ctx context.Context) error) error {
	session, err := c.c.StartSession()
	if err != nil {
		return errors.WrapFail(err, "start mongo session")
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, do(sc)
	})
	return err
}

func (c *client) Close(ctx context.Context) error {
	err := c.c.Disconnect(ctx)
	return errors.WrapFail(err, "close mongo db connection")
}
