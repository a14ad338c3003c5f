package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hireloop/slotd/internal/model"
	"github.com/hireloop/slotd/pkg/errors"
)

type mongoRules struct {
	coll *mongo.Collection
}

func (m mongoRules) Get(ctx context.Context, tenantID string) (*model.SchedulingRule, error) {
	r := m.coll.FindOne(ctx, bson.M{model.RuleFieldTenant: tenantID})

	err := r.Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapFail(err, "find scheduling rule")
	}

	var parsed model.SchedulingRule
	err = r.Decode(&parsed)
	if err != nil {
		return nil, errors.WrapFail(err, "decode scheduling rule")
	}

	return &parsed, nil
}

func (m mongoRules) Upsert(ctx context.Context, rule model.SchedulingRule) error {
	upsert := true
	_, err := m.coll.ReplaceOne(
		ctx,
		bson.M{model.RuleFieldTenant: rule.TenantID},
		rule,
		&options.ReplaceOptions{Upsert: &upsert},
	)
	return errors.WrapFail(err, "upsert scheduling rule")
}

func (m mongoRules) Delete(ctx context.Context, tenantID string) (bool, error) {
	r, err := m.coll.DeleteOne(ctx, bson.M{model.RuleFieldTenant: tenantID})
	if err != nil {
		return false, errors.WrapFail(err, "delete scheduling rule")
	}

	return r.DeletedCount == 1, nil
}
