package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hireloop/slotd/internal/model"
	"github.com/hireloop/slotd/internal/repo"
	"github.com/hireloop/slotd/pkg/errors"
	mng "github.com/hireloop/slotd/pkg/mongotools"
)

type mongoSlots struct {
	coll *mongo.Collection
}

func (m mongoSlots) Insert(ctx context.Context, slot model.Slot) (string, error) {
	slot.ID = primitive.NewObjectID().Hex()
	slot.CreatedAt = time.Now().UnixMilli()

	_, err := m.coll.InsertOne(ctx, slot)
	if err != nil {
		return "", errors.WrapFail(err, "insert slot")
	}

	return slot.ID, nil
}

func (m mongoSlots) InsertMany(ctx context.Context, slots []model.Slot) ([]string, error) {
	if len(slots) == 0 {
		return nil, nil
	}

	now := time.Now().UnixMilli()
	docs := make([]any, 0, len(slots))
	ids := make([]string, 0, len(slots))
	for i := range slots {
		slots[i].ID = primitive.NewObjectID().Hex()
		slots[i].CreatedAt = now
		docs = append(docs, slots[i])
		ids = append(ids, slots[i].ID)
	}

	_, err := m.coll.InsertMany(ctx, docs)
	if err != nil {
		return nil, errors.WrapFail(err, "insert slots")
	}

	return ids, nil
}

func (m mongoSlots) Get(ctx context.Context, tenantID, id string) (*model.Slot, error) {
	r := m.coll.FindOne(ctx, bson.M{"_id": id, model.SlotFieldTenant: tenantID})

	err := r.Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapFail(err, "find slot by id")
	}

	var parsed model.Slot
	err = r.Decode(&parsed)
	if err != nil {
		return nil, errors.WrapFail(err, "decode slot")
	}

	return &parsed, nil
}

func (m mongoSlots) List(ctx context.Context, tenantID string, q repo.SlotQuery) ([]model.Slot, error) {
	filter := bson.M{model.SlotFieldTenant: tenantID}
	if q.Status != nil {
		filter[model.SlotFieldStatus] = *q.Status
	}
	if q.Participant != "" {
		filter[model.SlotFieldParticipants] = q.Participant
	}
	if q.Within != nil {
		filter[mng.Index(model.SlotFieldInterval, 0)] = bson.M{"$lt": q.Within.End()}
		filter[mng.Index(model.SlotFieldInterval, 1)] = bson.M{"$gt": q.Within.Start()}
	}

	c, err := m.coll.Find(ctx, filter)
	if err != nil {
		return nil, errors.WrapFail(err, "find slots")
	}

	slots, err := mng.FilterFunc[model.Slot](ctx, c, nil)
	return slots, errors.WrapFail(err, "decode slots")
}

func (m mongoSlots) Book(ctx context.Context, tenantID, id string, version int64, candidateID, actorID string) (bool, error) {
	r, err := m.coll.UpdateOne(
		ctx,
		bson.M{
			"_id":                  id,
			model.SlotFieldTenant:  tenantID,
			model.SlotFieldVersion: version,
			model.SlotFieldStatus:  model.SlotAvailable,
		},
		bson.M{
			"$set": bson.M{
				model.SlotFieldStatus:    model.SlotBooked,
				model.SlotFieldCandidate: candidateID,
				model.SlotFieldBookedBy:  actorID,
			},
			"$inc": bson.M{model.SlotFieldVersion: 1},
		},
	)
	if err != nil {
		return false, errors.WrapFail(err, "book slot")
	}

	return r.ModifiedCount == 1, nil
}

func (m mongoSlots) SetStatus(ctx context.Context, tenantID, id string, version int64, to model.SlotStatus) (bool, error) {
	r, err := m.coll.UpdateOne(
		ctx,
		bson.M{
			"_id":                  id,
			model.SlotFieldTenant:  tenantID,
			model.SlotFieldVersion: version,
		},
		bson.M{
			"$set": bson.M{model.SlotFieldStatus: to},
			"$inc": bson.M{model.SlotFieldVersion: 1},
		},
	)
	if err != nil {
		return false, errors.WrapFail(err, "update slot status")
	}

	return r.ModifiedCount == 1, nil
}

func (m mongoSlots) ListBookedOverlapping(ctx context.Context, tenantID, userID string, within model.Interval) ([]model.Slot, error) {
	c, err := m.coll.Find(ctx, bson.M{
		model.SlotFieldTenant:                tenantID,
		model.SlotFieldParticipants:          userID,
		model.SlotFieldStatus:                model.SlotBooked,
		mng.Index(model.SlotFieldInterval, 0): bson.M{"$lt": within.End()},
		mng.Index(model.SlotFieldInterval, 1): bson.M{"$gt": within.Start()},
	})
	if err != nil {
		return nil, errors.WrapFail(err, "find booked slots")
	}

	slots, err := mng.FilterFunc[model.Slot](ctx, c, nil)
	return slots, errors.WrapFail(err, "decode booked slots")
}
