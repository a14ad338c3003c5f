package mongotools

import (
	"context"
	"strconv"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hireloop/slotd/pkg/errors"
)

// Index addresses one element of a bson array field, "interval.0" style.
func Index(field string, i int) string {
	return field + "." + strconv.Itoa(i)
}

// FilterFunc drains the cursor, keeping items for which filterFunc
// returns true; nil filterFunc keeps everything.
func FilterFunc[T any](ctx context.Context, c *mongo.Cursor, filterFunc func(T) bool) ([]T, error) {
	defer c.Close(ctx)

	var filtered []T
	for c.Next(ctx) {
		var item T
		err := c.Decode(&item)
		if err != nil {
			return nil, errors.WrapFail(err, "decode item")
		}

		if filterFunc == nil || filterFunc(item) {
			filtered = append(filtered, item)
		}
	}

	return filtered, c.Err()
}
