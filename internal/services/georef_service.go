// Package services – GeorefService
//
// GeorefService turns a locally stored record into a compute submission: it
// gathers the record's complete control point pairs and clipping polygon,
// sends them to the compute API, and on success marks the record
// georeferenced with the returned tile URL. Accepted submissions leave a
// receipt behind so a retried request with the same client key replays the
// stored tile URL instead of re-running a multi-minute compute job.
package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/paristimemachine/galligeo/internal/domain"
	"github.com/paristimemachine/galligeo/internal/gateway"
	"github.com/paristimemachine/galligeo/internal/repo"
)

// minCompletePairs is the smallest pair count the transform fit accepts.
const minCompletePairs = 3

// ComputeSubmitter is the slice of the compute client the service uses.
type ComputeSubmitter interface {
	Submit(ctx context.Context, sr gateway.SubmitRequest) (*gateway.SubmitResult, error)
}

// SubmitInput carries the per-submission fields that do not live on the
// stored record.
type SubmitInput struct {
	ARKURL      string
	ImageWidth  int
	ImageHeight int
}

// GeorefService coordinates submissions against the compute API.
type GeorefService struct {
	DB      *gorm.DB
	Compute ComputeSubmitter
	Store   *StoreService

	// ReceiptTTL bounds how long an accepted submission can be replayed.
	ReceiptTTL time.Duration

	now func() time.Time
}

// NewGeorefService constructs a GeorefService.
func NewGeorefService(db *gorm.DB, compute ComputeSubmitter, store *StoreService, receiptTTL time.Duration) *GeorefService {
	if receiptTTL <= 0 {
		receiptTTL = 24 * time.Hour
	}
	return &GeorefService{
		DB:         db,
		Compute:    compute,
		Store:      store,
		ReceiptTTL: receiptTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Submit georeferences the record for (owner, mapID). A non-empty key makes
// the call replayable: a receipt from an earlier accepted submission short-
// circuits the compute call and returns replayed=true. On success the record
// is promoted to the georeferenced status with the tile URL attached.
func (s *GeorefService) Submit(ctx context.Context, owner, mapID, key string, in SubmitInput) (tilesURL string, replayed bool, err error) {
	if err := validateKey(owner, mapID); err != nil {
		return "", false, err
	}

	if key != "" {
		rcpt, err := repo.GetReceipt(ctx, s.DB, owner, mapID, key, s.now())
		if err != nil {
			return "", false, err
		}
		if rcpt != nil {
			return rcpt.TilesURL, true, nil
		}
	}

	rec, err := s.Store.Get(ctx, owner, mapID)
	if err != nil {
		return "", false, err
	}

	pairs := domain.CompletePairs(rec.ControlPoints.Data())
	if len(pairs) < minCompletePairs {
		return "", false, ErrNotEnoughPoints
	}

	sr := gateway.SubmitRequest{
		ARKURL:      in.ARKURL,
		ImageWidth:  in.ImageWidth,
		ImageHeight: in.ImageHeight,
		GCPPairs:    pairs,
	}
	if ring := domain.PolygonRing(rec.Clipping.Data()); domain.MeaningfulPolygon(rec.Clipping.Data()) && len(ring) > 0 {
		sr.Clipping = rec.Clipping.Data()
	}

	res, err := s.Compute.Submit(ctx, sr)
	if err != nil {
		return "", false, err
	}

	if key != "" {
		rcpt := &domain.SubmissionReceipt{
			ID:        uuid.NewString(),
			Owner:     owner,
			MapID:     mapID,
			Key:       key,
			TilesURL:  res.TilesURL,
			Status:    200,
			ExpiresAt: s.now().Add(s.ReceiptTTL),
		}
		if err := repo.PutReceipt(ctx, s.DB, rcpt); err != nil {
			log.Warn().Err(err).Str("owner", owner).Str("map_id", mapID).
				Msg("failed to store submission receipt")
		}
	}

	// The submission already produced tiles; a failure to promote the local
	// record must not hide the tile URL from the caller.
	if _, err := s.Store.Upsert(ctx, owner, mapID, domain.StatusGeoreferenced, RecordPatch{
		Extra: map[string]any{"tilesUrl": res.TilesURL},
	}); err != nil {
		log.Warn().Err(err).Str("owner", owner).Str("map_id", mapID).
			Msg("failed to mark record georeferenced")
	}

	return res.TilesURL, false, nil
}
