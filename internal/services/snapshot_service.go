// Package services – SnapshotService
//
// SnapshotService captures and restores point-in-time backups of an owner's
// full working state. Snapshots exist so an interrupted session (crash, tab
// close, network loss) can pick up where it left off; they are read-only
// once created, capped per owner, and evicted oldest-first.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/paristimemachine/galligeo/internal/domain"
	"github.com/paristimemachine/galligeo/internal/repo"
)

// SnapshotService provides snapshot capture, listing, and restore.
type SnapshotService struct {
	DB *gorm.DB

	// MaxPerOwner caps the snapshot list; insertion beyond it evicts the
	// oldest entries.
	MaxPerOwner int

	// SessionID identifies this process in snapshot attribution.
	SessionID string

	// Metadata is attached to every snapshot (client hints: agent, URL).
	Metadata map[string]any

	// now is swappable for tests; defaults to time.Now in UTC.
	now func() time.Time
}

// NewSnapshotService constructs a SnapshotService with a fresh session id.
func NewSnapshotService(db *gorm.DB, maxPerOwner int) *SnapshotService {
	if maxPerOwner < 1 {
		maxPerOwner = 10
	}
	return &SnapshotService{
		DB:          db,
		MaxPerOwner: maxPerOwner,
		SessionID:   uuid.NewString(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create captures the owner's entire record set under the given trigger.
// It returns nil (and stores nothing) when the current state carries no
// georeferencing work at all, to keep empty saves out of the history.
// activeMapID names the map being worked on; when empty, the most recently
// updated record stands in.
func (s *SnapshotService) Create(ctx context.Context, owner, trigger, activeMapID string) (*domain.Snapshot, error) {
	if owner == "" {
		return nil, ErrInvalidOwner
	}
	if !domain.KnownTrigger(trigger) {
		return nil, ErrUnknownTrigger
	}

	recs, err := repo.ListWorkRecords(ctx, s.DB, owner)
	if err != nil {
		return nil, err
	}

	data := domain.SnapshotData{WorkRecords: make(map[string]domain.WorkRecord, len(recs))}
	for _, rec := range recs {
		data.WorkRecords[rec.MapID] = rec
	}
	if activeMapID == "" && len(recs) > 0 {
		activeMapID = recs[0].MapID // list is most-recently-updated first
	}
	data.ActiveMapID = activeMapID

	if data.Empty() {
		return nil, nil
	}

	snap := &domain.Snapshot{
		ID:        uuid.NewString(),
		Owner:     owner,
		Trigger:   trigger,
		SessionID: s.SessionID,
		CreatedAt: s.now(),
		Data:      datatypes.NewJSONType(data),
	}
	if len(s.Metadata) > 0 {
		snap.Metadata = datatypes.JSONMap(s.Metadata)
	}

	evicted, err := repo.InsertSnapshot(ctx, s.DB, snap, s.MaxPerOwner)
	if err != nil {
		return nil, err
	}
	snapshotsCreated.WithLabelValues(trigger).Inc()
	snapshotsEvicted.Add(float64(evicted))
	return snap, nil
}

// List returns the owner's snapshots, most recent first.
func (s *SnapshotService) List(ctx context.Context, owner string) ([]domain.Snapshot, error) {
	if owner == "" {
		return nil, ErrInvalidOwner
	}
	return repo.ListSnapshots(ctx, s.DB, owner)
}

// Restore replaces the owner's live record set with the snapshot's contents.
// A missing or structurally invalid payload fails the whole restore with
// ErrSnapshotInvalid and touches nothing. Inside a valid payload, a record
// that cannot be re-created is logged and skipped: losing one marker is
// better than losing the entire session.
func (s *SnapshotService) Restore(ctx context.Context, owner, snapshotID string) error {
	if owner == "" {
		return ErrInvalidOwner
	}
	snap, err := repo.GetSnapshot(ctx, s.DB, owner, snapshotID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrSnapshotNotFound
		}
		return err
	}

	data := snap.Data.Data()
	if data.WorkRecords == nil {
		return ErrSnapshotInvalid
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner = ?", owner).Delete(&domain.WorkRecord{}).Error; err != nil {
			return err
		}
		for mapID, rec := range data.WorkRecords {
			rec.Owner = owner
			if rec.MapID == "" {
				rec.MapID = mapID
			}
			if rec.ID == "" {
				rec.ID = uuid.NewString()
			}
			if err := tx.Create(&rec).Error; err != nil {
				log.Warn().Err(err).
					Str("owner", owner).
					Str("map_id", rec.MapID).
					Msg("snapshot restore: skipping record")
			}
		}
		return nil
	})
}
