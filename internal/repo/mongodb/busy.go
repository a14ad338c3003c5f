package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hireloop/slotd/internal/model"
	"github.com/hireloop/slotd/pkg/errors"
	mng "github.com/hireloop/slotd/pkg/mongotools"
)

type mongoBusy struct {
	coll *mongo.Collection
}

func (m mongoBusy) Insert(ctx context.Context, block model.BusyBlock) (string, error) {
	block.ID = primitive.NewObjectID().Hex()

	_, err := m.coll.InsertOne(ctx, block)
	if err != nil {
		return "", errors.WrapFail(err, "insert busy block")
	}

	return block.ID, nil
}

func (m mongoBusy) InsertMany(ctx context.Context, blocks []model.BusyBlock) error {
	if len(blocks) == 0 {
		return nil
	}

	docs := make([]any, 0, len(blocks))
	for i := range blocks {
		blocks[i].ID = primitive.NewObjectID().Hex()
		docs = append(docs, blocks[i])
	}

	_, err := m.coll.InsertMany(ctx, docs)
	return errors.WrapFail(err, "insert busy blocks")
}

func (m mongoBusy) List(ctx context.Context, tenantID, userID string, within model.Interval) ([]model.BusyBlock, error) {
	c, err := m.coll.Find(ctx, bson.M{
		model.BusyFieldTenant:                tenantID,
		model.BusyFieldUser:                  userID,
		mng.Index(model.BusyFieldInterval, 0): bson.M{"$lt": within.End()},
		mng.Index(model.BusyFieldInterval, 1): bson.M{"$gt": within.Start()},
	})
	if err != nil {
		return nil, errors.WrapFail(err, "find busy blocks")
	}

	blocks, err := mng.FilterFunc[model.BusyBlock](ctx, c, nil)
	return blocks, errors.WrapFail(err, "decode busy blocks")
}

func (m mongoBusy) Delete(ctx context.Context, tenantID, id string) (bool, error) {
	r, err := m.coll.DeleteOne(ctx, bson.M{"_id": id, model.BusyFieldTenant: tenantID})
	if err != nil {
		return false, errors.WrapFail(err, "delete busy block")
	}

	return r.DeletedCount == 1, nil
}

func (m mongoBusy) DeleteBySlot(ctx context.Context, tenantID, slotID string) error {
	_, err := m.coll.DeleteMany(ctx, bson.M{
		model.BusyFieldTenant: tenantID,
		model.BusyFieldSlot:   slotID,
	})
	return errors.WrapFail(err, "delete shadow busy blocks")
}

func (m mongoBusy) ReplaceProvider(ctx context.Context, tenantID, userID, provider string, intervals []model.Interval) error {
	source := model.SyncedSource(provider)

	_, err := m.coll.DeleteMany(ctx, bson.M{
		model.BusyFieldTenant: tenantID,
		model.BusyFieldUser:   userID,
		model.BusyFieldSource: source,
	})
	if err != nil {
		return errors.WrapFail(err, "drop synced busy blocks")
	}

	blocks := make([]model.BusyBlock, 0, len(intervals))
	for _, t := range intervals {
		blocks = append(blocks, model.BusyBlock{
			TenantID: tenantID,
			UserID:   userID,
			Interval: t,
			Source:   source,
		})
	}

	return m.InsertMany(ctx, blocks)
}
