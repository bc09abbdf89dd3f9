// Repository functions for the per-owner settings document and for
// submission receipts (replay of accepted georeferencing submissions).
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/paristimemachine/galligeo/internal/domain"
)

// GetSettings fetches the owner's settings document, or ErrNotFound.
func GetSettings(ctx context.Context, db *gorm.DB, owner string) (*domain.SettingsDoc, error) {
	var doc domain.SettingsDoc
	if err := db.WithContext(ctx).First(&doc, "owner = ?", owner).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// PutSettings overwrites (or creates) the owner's settings document.
func PutSettings(ctx context.Context, db *gorm.DB, doc *domain.SettingsDoc) error {
	doc.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner"}},
			UpdateAll: true,
		}).
		Create(doc).Error
}

// GetReceipt returns a non-expired submission receipt for
// (owner, mapID, key), or nil when none applies.
func GetReceipt(ctx context.Context, db *gorm.DB, owner, mapID, key string, now time.Time) (*domain.SubmissionReceipt, error) {
	var r domain.SubmissionReceipt
	err := db.WithContext(ctx).
		Where("owner = ? AND map_id = ? AND key = ? AND expires_at > ?", owner, mapID, key, now).
		First(&r).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

// PutReceipt stores the outcome of an accepted submission for later replay.
func PutReceipt(ctx context.Context, db *gorm.DB, r *domain.SubmissionReceipt) error {
	return db.WithContext(ctx).Create(r).Error
}
