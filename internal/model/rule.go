package model

// SchedulingRule holds tenant-wide constraints. Every field is optional;
// nil or empty means "no constraint". Read as an immutable snapshot at
// computation time.
type SchedulingRule struct {
	TenantID string `json:"tenant_id" bson:"tenant_id"`

	MinNoticeMinutes    *int64 `json:"min_notice_minutes,omitempty"    bson:"min_notice_minutes,omitempty"`
	BufferBeforeMinutes *int64 `json:"buffer_before_minutes,omitempty" bson:"buffer_before_minutes,omitempty"`
	BufferAfterMinutes  *int64 `json:"buffer_after_minutes,omitempty"  bson:"buffer_after_minutes,omitempty"`

	MaxInterviewsPerDayPerUser *int `json:"max_interviews_per_day_per_user,omitempty" bson:"max_interviews_per_day_per_user,omitempty"`

	BlackoutPeriods []Interval `json:"blackout_periods,omitempty" bson:"blackout_periods,omitempty"`

	// AllowedDaysOfWeek uses time.Weekday numbering; empty allows all.
	AllowedDaysOfWeek []int `json:"allowed_days_of_week,omitempty" bson:"allowed_days_of_week,omitempty"`
}

const (
	RuleFieldTenant = "tenant_id"
)

func (r SchedulingRule) DayAllowed(weekday int) bool {
	if len(r.AllowedDaysOfWeek) == 0 {
		return true
	}
	for _, d := range r.AllowedDaysOfWeek {
		if d == weekday {
			return true
		}
	}
	return false
}
