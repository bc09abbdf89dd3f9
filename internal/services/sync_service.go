// Package services – SyncService
//
// SyncService decides, for reads and writes, whether to consult the local
// store, the remote store, or both. The contract is local-first: a write
// always lands locally before any network is attempted, and no remote
// failure on the write path ever reaches the caller, because local
// durability already made the operation succeed from the user's point of
// view. Reads prefer the remote store only for authenticated owners, and
// mirror its authoritative answer into the local cache.
//
// Observability: public methods are OpenTelemetry-instrumented; push
// outcomes are counted in Prometheus.
package services

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/paristimemachine/galligeo/internal/domain"
	"github.com/paristimemachine/galligeo/internal/gateway"
	"github.com/paristimemachine/galligeo/internal/repo"
	"github.com/paristimemachine/galligeo/internal/session"
)

// RemoteStore is the slice of the gateway client the sync layer depends on.
type RemoteStore interface {
	// PushRecord sends one record upsert; the server merges it.
	PushRecord(ctx context.Context, rec *domain.WorkRecord) error
	// FetchDocument retrieves the owner's full remote document.
	FetchDocument(ctx context.Context) (*gateway.RemoteDocument, error)
}

// MutationSink receives a signal after every successful local write, so the
// snapshot scheduler can debounce a checkpoint.
type MutationSink interface {
	NotifyMutation(owner string)
}

// SyncService coordinates the local store, the remote gateway, and the
// session credential.
type SyncService struct {
	Store   *StoreService
	Remote  RemoteStore
	Session session.Session

	// Sink is optional; nil disables mutation signals.
	Sink MutationSink

	// keys serializes writes per (owner, mapID) so local apply order always
	// matches issue order; FirstWorkedAt must reflect the actual first
	// call, not an order perturbed by slow remote pushes.
	keys keyedMutex
}

// Save writes the upsert locally, then pushes it to the remote store on a
// best-effort basis. The returned record reflects the local state; remote
// failures are logged and counted, never returned. An unauthorized push on a
// refreshable session triggers exactly one silent refresh-and-retry.
func (s *SyncService) Save(ctx context.Context, owner, mapID string, status domain.Status, patch RecordPatch) (*domain.WorkRecord, error) {
	tr := otel.Tracer("services/SyncService")
	ctx, span := tr.Start(ctx, "Save",
		trace.WithAttributes(
			attribute.String("map.id", mapID),
			attribute.String("record.status", string(status)),
		),
	)
	defer span.End()

	unlock := s.keys.lock(owner + "\x00" + mapID)
	rec, err := s.Store.Upsert(ctx, owner, mapID, status, patch)
	unlock()
	if err != nil {
		return nil, err
	}

	if s.Sink != nil {
		s.Sink.NotifyMutation(owner)
	}

	s.push(ctx, rec)
	return rec, nil
}

// push attempts the remote upsert. All failure modes degrade to local-only
// success.
func (s *SyncService) push(ctx context.Context, rec *domain.WorkRecord) {
	if s.Remote == nil {
		return
	}
	err := s.Remote.PushRecord(ctx, rec)
	if err == nil {
		syncPushes.WithLabelValues("ok").Inc()
		return
	}

	if errors.Is(err, gateway.ErrUnauthorized) {
		if rerr := s.Session.Refresh(ctx); rerr == nil {
			if err = s.Remote.PushRecord(ctx, rec); err == nil {
				syncPushes.WithLabelValues("retried").Inc()
				return
			}
		}
	}

	syncPushes.WithLabelValues("failed").Inc()
	log.Warn().Err(err).
		Str("owner", rec.Owner).
		Str("map_id", rec.MapID).
		Msg("remote push failed; local state remains authoritative")
}

// Load returns the owner's record set. Authenticated owners read the remote
// store first; its answer is authoritative and is mirrored into the local
// cache. Anonymous owners, and any owner whose remote read fails, get the
// local view. The two sources are never merged field by field.
func (s *SyncService) Load(ctx context.Context, owner string) ([]domain.WorkRecord, error) {
	tr := otel.Tracer("services/SyncService")
	ctx, span := tr.Start(ctx, "Load")
	defer span.End()

	if s.Session != nil && s.Session.IsAuthenticated() && s.Remote != nil {
		doc, err := s.Remote.FetchDocument(ctx)
		if err == nil {
			return s.mirror(ctx, owner, doc)
		}
		syncReadFallbacks.Inc()
		span.RecordError(err)
		log.Warn().Err(err).Str("owner", owner).Msg("remote read failed; serving local cache")
	}
	return s.Store.List(ctx, owner)
}

// mirror replaces the owner's local cache with the remote document and
// returns the refreshed local view.
func (s *SyncService) mirror(ctx context.Context, owner string, doc *gateway.RemoteDocument) ([]domain.WorkRecord, error) {
	recs := make([]domain.WorkRecord, 0, len(doc.WorkRecords))
	for mapID, rec := range doc.WorkRecords {
		rec.Owner = owner
		if rec.MapID == "" {
			rec.MapID = mapID
		}
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		recs = append(recs, rec)
	}
	if err := repo.ReplaceWorkRecords(ctx, s.Store.DB, owner, recs); err != nil {
		// The remote read itself succeeded; a cache-warm failure must not
		// hide the authoritative answer, so serve the remote records as-is.
		log.Warn().Err(err).Str("owner", owner).Msg("failed to mirror remote document into local cache")
		sort.Slice(recs, func(i, j int) bool {
			return recs[i].LastUpdatedAt.After(recs[j].LastUpdatedAt)
		})
		return recs, nil
	}
	return s.Store.List(ctx, owner)
}

// keyedMutex hands out one mutex per string key. Entries are refcounted and
// dropped as soon as the last holder unlocks, so the map only ever holds
// keys with a write in flight.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sync.Mutex
	refs int
}

// lock acquires the mutex for key and returns its unlock function.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
