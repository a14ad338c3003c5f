package model

type SlotStatus int

const (
	// SlotAvailable is set when the slot has been generated or created
	SlotAvailable = SlotStatus(iota) + 1

	// SlotBooked is set when a candidate has taken the slot
	SlotBooked

	// SlotCancelled is terminal, set by explicit cancellation
	SlotCancelled

	// SlotRescheduled is terminal for the old row; the replacement
	// slot points back via RescheduledFrom
	SlotRescheduled

	// SlotCompleted is terminal, set by the time-driven sweep
	SlotCompleted
)

func (s SlotStatus) String() string {
	switch s {
	case SlotAvailable:
		return "AVAILABLE"
	case SlotBooked:
		return "BOOKED"
	case SlotCancelled:
		return "CANCELLED"
	case SlotRescheduled:
		return "RESCHEDULED"
	case SlotCompleted:
		return "COMPLETED"
	default:
		return "UNKNOWN"
	}
}

func (s SlotStatus) Terminal() bool {
	return s == SlotCancelled || s == SlotRescheduled || s == SlotCompleted
}

// CanTransition tells whether the state machine permits s -> to.
func (s SlotStatus) CanTransition(to SlotStatus) bool {
	switch s {
	case SlotAvailable:
		return to == SlotBooked || to == SlotCancelled
	case SlotBooked:
		return to == SlotCancelled || to == SlotRescheduled || to == SlotCompleted
	default:
		return false
	}
}

type Slot struct {
	ID       string `json:"id"        bson:"_id,omitempty"`
	TenantID string `json:"tenant_id" bson:"tenant_id"`

	Interval     Interval `json:"interval"     bson:"interval"`
	Participants []string `json:"participants" bson:"participants"`

	CandidateID string     `json:"candidate_id,omitempty" bson:"candidate_id,omitempty"`
	Status      SlotStatus `json:"status"                 bson:"status"`

	CreatedBy string `json:"created_by"          bson:"created_by"`
	BookedBy  string `json:"booked_by,omitempty" bson:"booked_by,omitempty"`

	RescheduledFrom string `json:"rescheduled_from,omitempty" bson:"rescheduled_from,omitempty"`

	// Version gates every mutation: compare-and-set on (ID, Version).
	Version int64 `json:"version" bson:"version"`

	CreatedAt int64 `json:"created_at" bson:"created_at"`
}

const (
	SlotFieldTenant          = "tenant_id"
	SlotFieldInterval        = "interval"
	SlotFieldParticipants    = "participants"
	SlotFieldCandidate       = "candidate_id"
	SlotFieldStatus          = "status"
	SlotFieldBookedBy        = "booked_by"
	SlotFieldRescheduledFrom = "rescheduled_from"
	SlotFieldVersion         = "version"
)
