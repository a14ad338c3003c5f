package slots

import (
	"context"

	"github.com/hireloop/slotd/pkg/errors"
)

// fakeDirectory accepts every id unless failing or err is set.
type fakeDirectory struct {
	failing bool
	err     error
}

func (d *fakeDirectory) ResolveParticipants(_ context.Context, _ string, userIDs []string) ([]string, error) {
	if d.err != nil {
		return nil, d.err
	}
	if d.failing {
		return nil, errors.Faulted(errors.KindValidation, "unknown user")
	}
	return userIDs, nil
}

type fakeAudit struct {
	events []AuditEvent
}

func (a *fakeAudit) Record(_ context.Context, event AuditEvent) error {
	a.events = append(a.events, event)
	return nil
}

func (a *fakeAudit) actions() []string {
	out := make([]string, 0, len(a.events))
	for _, e := range a.events {
		out = append(out, e.Action)
	}
	return out
}

type sentNote struct {
	candidateID string
	slotID      string
	kind        NotificationKind
}

type fakeNotifier struct {
	sent []sentNote
}

func (n *fakeNotifier) Notify(_ context.Context, candidateID, slotID string, kind NotificationKind) error {
	n.sent = append(n.sent, sentNote{candidateID, slotID, kind})
	return nil
}
