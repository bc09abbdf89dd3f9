// Snapshot model: point-in-time backups of an owner's full working state,
// used for crash and interruption recovery.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Snapshot triggers. The values are wire-level strings shared with the
// browser client, which reports its own lifecycle events when asking for a
// checkpoint.
const (
	TriggerAuto       = "auto"
	TriggerUserAction = "user-action"
	TriggerUnload     = "page-unload"
	TriggerVisibility = "visibility-change"
	TriggerManual     = "manual"
)

// KnownTrigger reports whether t is one of the accepted trigger values.
func KnownTrigger(t string) bool {
	switch t {
	case TriggerAuto, TriggerUserAction, TriggerUnload, TriggerVisibility, TriggerManual:
		return true
	}
	return false
}

// SnapshotData is the payload of one snapshot: the owner's complete
// work-record set keyed by map id, plus the map that was active when the
// snapshot was taken. It covers all in-progress maps, not just one.
type SnapshotData struct {
	WorkRecords map[string]WorkRecord `json:"workRecords"`
	ActiveMapID string                `json:"activeMapId,omitempty"`
}

// Empty reports whether the payload carries no georeferencing work at all.
func (d SnapshotData) Empty() bool {
	for _, rec := range d.WorkRecords {
		if rec.HasWork() {
			return false
		}
	}
	return true
}

// Snapshot is one backup unit. Snapshots are read-only once created; the
// only mutation the store performs on them is eviction of the oldest entries
// beyond the configured cap.
type Snapshot struct {
	ID        string                           `json:"id"         gorm:"type:char(36);primaryKey"`
	Owner     string                           `json:"owner"      gorm:"type:varchar(64);not null;index:idx_owner_snapshots,priority:1"`
	Trigger   string                           `json:"trigger"    gorm:"type:varchar(32);not null"`
	SessionID string                           `json:"session_id" gorm:"type:char(36);not null"`
	CreatedAt time.Time                        `json:"timestamp"  gorm:"not null;index:idx_owner_snapshots,priority:2"`
	Data      datatypes.JSONType[SnapshotData] `json:"data"`
	Metadata  datatypes.JSONMap                `json:"metadata,omitempty"`
}

// TableName returns the database table name for Snapshot.
func (Snapshot) TableName() string { return "snapshots" }
