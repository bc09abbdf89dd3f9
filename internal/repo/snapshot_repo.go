// Repository functions for Snapshot: capped insert, listing, and lookup.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/paristimemachine/galligeo/internal/domain"
)

// InsertSnapshot stores a new snapshot and evicts the oldest entries beyond
// maxPerOwner, inside one transaction. It returns the number of evicted
// snapshots.
func InsertSnapshot(ctx context.Context, db *gorm.DB, snap *domain.Snapshot, maxPerOwner int) (int, error) {
	evicted := 0
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(snap).Error; err != nil {
			return err
		}
		if maxPerOwner < 1 {
			return nil
		}
		var stale []domain.Snapshot
		if err := tx.
			Where("owner = ?", snap.Owner).
			Order("created_at desc").
			Offset(maxPerOwner).
			Find(&stale).Error; err != nil {
			return err
		}
		for _, s := range stale {
			if err := tx.Delete(&domain.Snapshot{}, "id = ?", s.ID).Error; err != nil {
				return err
			}
			evicted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return evicted, nil
}

// ListSnapshots returns the owner's snapshots, most recent first.
func ListSnapshots(ctx context.Context, db *gorm.DB, owner string) ([]domain.Snapshot, error) {
	var out []domain.Snapshot
	err := db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// GetSnapshot fetches one snapshot by id for the owner, or ErrNotFound.
func GetSnapshot(ctx context.Context, db *gorm.DB, owner, id string) (*domain.Snapshot, error) {
	var s domain.Snapshot
	err := db.WithContext(ctx).
		Where("id = ? AND owner = ?", id, owner).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}
