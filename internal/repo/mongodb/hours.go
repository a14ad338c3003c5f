package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hireloop/slotd/internal/model"
	"github.com/hireloop/slotd/pkg/errors"
)

type mongoHours struct {
	coll *mongo.Collection
}

func (m mongoHours) Get(ctx context.Context, tenantID, userID string) (*model.WorkingHours, error) {
	r := m.coll.FindOne(ctx, bson.M{
		model.HoursFieldTenant: tenantID,
		model.HoursFieldUser:   userID,
	})

	err := r.Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapFail(err, "find working hours")
	}

	var parsed model.WorkingHours
	err = r.Decode(&parsed)
	if err != nil {
		return nil, errors.WrapFail(err, "decode working hours")
	}

	return &parsed, nil
}

func (m mongoHours) Set(ctx context.Context, hours model.WorkingHours) error {
	upsert := true
	_, err := m.coll.ReplaceOne(
		ctx,
		bson.M{
			model.HoursFieldTenant: hours.TenantID,
			model.HoursFieldUser:   hours.UserID,
		},
		hours,
		&options.ReplaceOptions{Upsert: &upsert},
	)
	return errors.WrapFail(err, "replace working hours")
}
