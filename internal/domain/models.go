// Package domain defines the persistence models for georeferencing work
// records, snapshots, and per-owner settings. These types are mapped with
// GORM and form the core data layer of the application.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Status describes how far a map has progressed through the georeferencing
// workflow. Transitions are permissive: the same upsert path that advances a
// record can also move it backwards, which allows contributors to correct
// mistakes (e.g. re-open a deposited map).
type Status string

const (
	// StatusInProgress marks a map the owner has started but not finished.
	StatusInProgress Status = "InProgress"
	// StatusGeoreferenced marks a map with a completed transform submission.
	StatusGeoreferenced Status = "Georeferenced"
	// StatusDeposited marks a map whose result was deposited to the library.
	StatusDeposited Status = "Deposited"
)

// Valid reports whether s is one of the known workflow statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusInProgress, StatusGeoreferenced, StatusDeposited:
		return true
	}
	return false
}

// QualityMin and QualityMax bound the caller-supplied quality rating.
const (
	QualityMin = 1
	QualityMax = 4
)

// WorkRecord captures everything an owner has done to one scanned map: its
// workflow status, the control points placed between the scan and the
// reference map, an optional clipping polygon, and an open set of extra
// fields (chosen transform algorithm, deposit DOI, and so on).
//
// Exactly one record exists per (owner, map_id) pair; all writes go through
// upsert semantics. FirstWorkedAt is set on creation and never overwritten;
// LastUpdatedAt advances on every mutation.
type WorkRecord struct {
	ID            string                                 `json:"id"              gorm:"type:char(36);primaryKey"`
	Owner         string                                 `json:"owner"           gorm:"type:varchar(64);not null;uniqueIndex:ux_owner_map,priority:1"`
	MapID         string                                 `json:"map_id"          gorm:"type:varchar(64);not null;uniqueIndex:ux_owner_map,priority:2"`
	Status        Status                                 `json:"status"          gorm:"type:varchar(16);not null"`
	Quality       *int                                   `json:"quality,omitempty"`
	FirstWorkedAt time.Time                              `json:"first_worked_at" gorm:"not null"`
	LastUpdatedAt time.Time                              `json:"last_updated_at" gorm:"not null;index"`
	ControlPoints datatypes.JSONType[[]ControlPointPair] `json:"control_points"`
	Clipping      datatypes.JSONType[[]GeoPoint]         `json:"clipping_polygon"`
	Extra         datatypes.JSONMap                      `json:"extra,omitempty"`
}

// TableName returns the database table name for WorkRecord.
func (WorkRecord) TableName() string { return "work_records" }

// PointCount returns the number of control point pairs on the record.
func (r *WorkRecord) PointCount() int {
	return len(r.ControlPoints.Data())
}

// HasWork reports whether the record carries any georeferencing input at all
// (at least one control point or one clipping vertex). Records without work
// are skipped when building snapshots.
func (r *WorkRecord) HasWork() bool {
	return r.PointCount() > 0 || len(r.Clipping.Data()) > 0
}

// SettingsDoc is the per-owner settings document. Values is an open JSON
// object validated against a schema at the API boundary, not here.
type SettingsDoc struct {
	Owner     string            `json:"owner"      gorm:"type:varchar(64);primaryKey"`
	Values    datatypes.JSONMap `json:"values"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// TableName returns the database table name for SettingsDoc.
func (SettingsDoc) TableName() string { return "settings" }
