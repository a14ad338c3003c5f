package slots

import "context"

//go:generate mockgen -source=interfaces.go -destination=mock_interfaces_test.go -package=slots

// UserDirectory validates participant ids before any slot is created.
type UserDirectory interface {
	ResolveParticipants(ctx context.Context, tenantID string, userIDs []string) ([]string, error)
}

type AuditEvent struct {
	TenantID string `json:"tenant_id"`
	SlotID   string `json:"slot_id"`
	ActorID  string `json:"actor_id"`
	Action   string `json:"action"`
	At       int64  `json:"at"`

	Details map[string]string `json:"details,omitempty"`
}

// AuditSink receives an event after every committed state change.
// Fire-and-forget: failures are logged, never propagated.
type AuditSink interface {
	Record(ctx context.Context, event AuditEvent) error
}

type NotificationKind string

const (
	NotifyBooked      NotificationKind = "booked"
	NotifyRescheduled NotificationKind = "rescheduled"
	NotifyCancelled   NotificationKind = "cancelled"
)

// NotificationSink tells the candidate about a lifecycle change.
// Best-effort: a failed delivery never rolls the operation back.
type NotificationSink interface {
	Notify(ctx context.Context, candidateID, slotID string, kind NotificationKind) error
}
