package domain

import "time"

// SubmissionReceipt records the outcome of a previously accepted
// georeferencing submission, keyed by (owner, map_id, key). The compute call
// behind a submission runs for minutes and produces tiles as a side effect,
// so retries with the same client key replay the stored result instead of
// re-submitting.
type SubmissionReceipt struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	Owner     string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_owner_map_key,priority:1"`
	MapID     string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_owner_map_key,priority:2"`
	Key       string    `gorm:"type:varchar(200);not null;uniqueIndex:ux_owner_map_key,priority:3"`
	TilesURL  string    `gorm:"type:text;not null"`
	Status    int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (SubmissionReceipt) TableName() string { return "submission_receipts" }
