// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for WorkRecord.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition. Merge semantics (patch application,
// first-worked-at preservation) live in the service layer.
//
// Error semantics:
//   - When a record is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/paristimemachine/galligeo/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist. It aliases
// gorm.ErrRecordNotFound for consistency across the service layer.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateWorkRecord inserts a new work record. The caller supplies all fields
// including the primary key and both timestamps.
func CreateWorkRecord(ctx context.Context, db *gorm.DB, rec *domain.WorkRecord) error {
	return db.WithContext(ctx).Create(rec).Error
}

// SaveWorkRecord persists the full current state of an existing record.
// The whole row is overwritten; last-writer-wins at record granularity.
func SaveWorkRecord(ctx context.Context, db *gorm.DB, rec *domain.WorkRecord) error {
	return db.WithContext(ctx).Save(rec).Error
}

// GetWorkRecord fetches the record for (owner, mapID), or ErrNotFound.
func GetWorkRecord(ctx context.Context, db *gorm.DB, owner, mapID string) (*domain.WorkRecord, error) {
	var rec domain.WorkRecord
	err := db.WithContext(ctx).
		Where("owner = ? AND map_id = ?", owner, mapID).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListWorkRecords returns all records belonging to owner, most recently
// updated first. It returns an empty slice if the owner has none.
func ListWorkRecords(ctx context.Context, db *gorm.DB, owner string) ([]domain.WorkRecord, error) {
	var out []domain.WorkRecord
	err := db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("last_updated_at desc").
		Find(&out).Error
	return out, err
}

// CountWorkRecords returns the total number of records owned by owner.
func CountWorkRecords(ctx context.Context, db *gorm.DB, owner string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.WorkRecord{}).
		Where("owner = ?", owner).
		Count(&total).Error
	return total, err
}

// ListWorkRecordsPage returns a paginated slice of records for owner,
// ordered by last update descending. The caller computes offset and limit.
func ListWorkRecordsPage(ctx context.Context, db *gorm.DB, owner string, offset, limit int) ([]domain.WorkRecord, error) {
	var out []domain.WorkRecord
	err := db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("last_updated_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// DeleteWorkRecord removes the record for (owner, mapID). Deleting an absent
// record is not an error; the operation is idempotent.
func DeleteWorkRecord(ctx context.Context, db *gorm.DB, owner, mapID string) error {
	return db.WithContext(ctx).
		Where("owner = ? AND map_id = ?", owner, mapID).
		Delete(&domain.WorkRecord{}).Error
}

// ReplaceWorkRecords swaps the owner's entire record set for the given one,
// inside a single transaction. Used to mirror a remote authoritative read
// into the local cache, and to apply a restored snapshot.
func ReplaceWorkRecords(ctx context.Context, db *gorm.DB, owner string, recs []domain.WorkRecord) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner = ?", owner).Delete(&domain.WorkRecord{}).Error; err != nil {
			return err
		}
		for i := range recs {
			recs[i].Owner = owner
			if err := tx.Create(&recs[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
