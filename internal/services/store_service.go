// Package services – StoreService
//
// StoreService is the single source of truth, within this process, for "what
// has this owner done to which maps". It owns upsert merge semantics (patch
// application, first-worked-at preservation, monotonic control point ids)
// and delegates raw persistence to the repo layer. Every mutation runs in one
// transaction, so a crash can lose at most the in-flight change and never
// corrupt earlier state.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/paristimemachine/galligeo/internal/domain"
	"github.com/paristimemachine/galligeo/internal/repo"
)

// RecordPatch is the open field set merged over an existing record on
// upsert. Nil fields are left untouched; Extra keys are shallow-merged over
// the record's existing extra map.
type RecordPatch struct {
	Quality       *int
	ControlPoints *[]domain.ControlPointPair
	Clipping      *[]domain.GeoPoint
	Extra         map[string]any
}

// StoreService provides the local work-state store operations.
type StoreService struct {
	// DB is the GORM handle for the local SQLite store.
	DB *gorm.DB

	// now is swappable for tests; defaults to time.Now in UTC.
	now func() time.Time
}

// NewStoreService constructs a StoreService over db.
func NewStoreService(db *gorm.DB) *StoreService {
	return &StoreService{DB: db, now: func() time.Time { return time.Now().UTC() }}
}

// Upsert creates or merges the record for (owner, mapID). On creation
// FirstWorkedAt is set once; on merge it is preserved and only
// LastUpdatedAt advances. Re-applying an identical patch changes nothing but
// LastUpdatedAt.
func (s *StoreService) Upsert(ctx context.Context, owner, mapID string, status domain.Status, patch RecordPatch) (*domain.WorkRecord, error) {
	if err := validateKey(owner, mapID); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	var out *domain.WorkRecord
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		rec, err := repo.GetWorkRecord(ctx, tx, owner, mapID)
		switch {
		case errors.Is(err, repo.ErrNotFound):
			rec = &domain.WorkRecord{
				ID:            uuid.NewString(),
				Owner:         owner,
				MapID:         mapID,
				FirstWorkedAt: now,
			}
			applyPatch(rec, status, patch, now)
			out = rec
			return repo.CreateWorkRecord(ctx, tx, rec)
		case err != nil:
			return err
		default:
			applyPatch(rec, status, patch, now)
			out = rec
			return repo.SaveWorkRecord(ctx, tx, rec)
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns the record for (owner, mapID), or ErrRecordNotFound. Callers
// treat absence as a normal outcome, not a failure.
func (s *StoreService) Get(ctx context.Context, owner, mapID string) (*domain.WorkRecord, error) {
	if err := validateKey(owner, mapID); err != nil {
		return nil, err
	}
	rec, err := repo.GetWorkRecord(ctx, s.DB, owner, mapID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrRecordNotFound
	}
	return rec, err
}

// List returns all of the owner's records, most recently updated first.
func (s *StoreService) List(ctx context.Context, owner string) ([]domain.WorkRecord, error) {
	if owner == "" {
		return nil, ErrInvalidOwner
	}
	return repo.ListWorkRecords(ctx, s.DB, owner)
}

// ListPage returns a page of the owner's records plus the total count.
func (s *StoreService) ListPage(ctx context.Context, owner string, page, pageSize int) ([]domain.WorkRecord, int64, error) {
	if owner == "" {
		return nil, 0, ErrInvalidOwner
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	total, err := repo.CountWorkRecords(ctx, s.DB, owner)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.WorkRecord{}, 0, nil
	}
	items, err := repo.ListWorkRecordsPage(ctx, s.DB, owner, (page-1)*pageSize, pageSize)
	return items, total, err
}

// Remove hard-deletes the record for (owner, mapID). Removing an absent
// record succeeds; the operation is idempotent.
func (s *StoreService) Remove(ctx context.Context, owner, mapID string) error {
	if err := validateKey(owner, mapID); err != nil {
		return err
	}
	return repo.DeleteWorkRecord(ctx, s.DB, owner, mapID)
}

// validateKey rejects empty identity components before they can become
// record keys.
func validateKey(owner, mapID string) error {
	if owner == "" {
		return ErrInvalidOwner
	}
	if mapID == "" {
		return ErrInvalidMapID
	}
	return nil
}

// validatePatch enforces structural rules on caller-supplied fields.
func validatePatch(patch RecordPatch) error {
	if patch.Quality != nil && (*patch.Quality < domain.QualityMin || *patch.Quality > domain.QualityMax) {
		return ErrInvalidQuality
	}
	if patch.ControlPoints != nil {
		seen := make(map[int]struct{}, len(*patch.ControlPoints))
		for _, p := range *patch.ControlPoints {
			if _, dup := seen[p.ID]; dup {
				return ErrDuplicatePointID
			}
			seen[p.ID] = struct{}{}
		}
	}
	return nil
}

// applyPatch merges the patch over rec. Status always wins; nil patch fields
// leave the stored values alone; extra keys are shallow-merged.
func applyPatch(rec *domain.WorkRecord, status domain.Status, patch RecordPatch, now time.Time) {
	rec.Status = status
	rec.LastUpdatedAt = now
	if patch.Quality != nil {
		rec.Quality = patch.Quality
	}
	if patch.ControlPoints != nil {
		rec.ControlPoints = datatypes.NewJSONType(*patch.ControlPoints)
	}
	if patch.Clipping != nil {
		rec.Clipping = datatypes.NewJSONType(*patch.Clipping)
	}
	if len(patch.Extra) > 0 {
		if rec.Extra == nil {
			rec.Extra = datatypes.JSONMap{}
		}
		for k, v := range patch.Extra {
			rec.Extra[k] = v
		}
	}
}
