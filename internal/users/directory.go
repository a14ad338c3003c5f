package users

import (
	"context"

	"github.com/hireloop/slotd/internal/repo"
	"github.com/hireloop/slotd/pkg/errors"
)

// Directory knows a user by their working-hours record: interviewers
// without configured hours cannot host a slot anyway.
func NewDirectory(client repo.Client) *Directory {
	return &Directory{hours: client.WorkingHours()}
}

type Directory struct {
	hours repo.WorkingHoursRepo
}

// ResolveParticipants rejects unknown ids with a validation fault; a
// failed lookup is not a verdict about the user and stays unclassified.
func (d *Directory) ResolveParticipants(ctx context.Context, tenantID string, userIDs []string) ([]string, error) {
	for _, id := range userIDs {
		if id == "" {
			return nil, errors.Faulted(errors.KindValidation, "empty participant id")
		}

		hours, err := d.hours.Get(ctx, tenantID, id)
		if err != nil {
			return nil, errors.WrapFailf(err, "look up user %s", id)
		}
		if hours == nil {
			return nil, errors.Faulted(errors.KindValidation, "unknown user %q", id)
		}
	}
	return userIDs, nil
}
