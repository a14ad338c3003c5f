package model

import "strings"

const (
	SourceManual = "MANUAL"
	SourceSlot   = "SLOT"

	syncedPrefix = "SYNCED:"
)

// SyncedSource tags a busy block pulled from the given provider's feed.
func SyncedSource(provider string) string {
	return syncedPrefix + provider
}

// SyncedProvider extracts the provider from a SYNCED source tag.
func SyncedProvider(source string) (string, bool) {
	if !strings.HasPrefix(source, syncedPrefix) {
		return "", false
	}
	return source[len(syncedPrefix):], true
}

type BusyBlock struct {
	ID       string `json:"id"        bson:"_id,omitempty"`
	TenantID string `json:"tenant_id" bson:"tenant_id"`
	UserID   string `json:"user_id"   bson:"user_id"`

	Interval Interval `json:"interval" bson:"interval"`

	Source string `json:"source" bson:"source"`

	// SlotID is set for SourceSlot blocks: the shadow block is
	// released by slot id, never by interval equality.
	SlotID string `json:"slot_id,omitempty" bson:"slot_id,omitempty"`
}

const (
	BusyFieldTenant   = "tenant_id"
	BusyFieldUser     = "user_id"
	BusyFieldInterval = "interval"
	BusyFieldSource   = "source"
	BusyFieldSlot     = "slot_id"
)
