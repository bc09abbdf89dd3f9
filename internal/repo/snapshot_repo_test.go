package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/paristimemachine/galligeo/internal/domain"
)

func makeSnapshot(owner string, n int, at time.Time) *domain.Snapshot {
	return &domain.Snapshot{
		ID:        fmt.Sprintf("%s-snap-%d", owner, n),
		Owner:     owner,
		Trigger:   domain.TriggerAuto,
		SessionID: "sess-1",
		CreatedAt: at,
		Data: datatypes.NewJSONType(domain.SnapshotData{
			WorkRecords: map[string]domain.WorkRecord{},
			ActiveMapID: fmt.Sprintf("map-%d", n),
		}),
	}
}

func TestInsertSnapshot_KeepsNewestUpToCap(t *testing.T) {
	db := newTestDB(t, &domain.Snapshot{})
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	const maxKeep = 3
	totalEvicted := 0
	for i := 0; i < 5; i++ {
		evicted, err := InsertSnapshot(context.Background(), db, makeSnapshot("u1", i, base.Add(time.Duration(i)*time.Minute)), maxKeep)
		if err != nil {
			t.Fatalf("InsertSnapshot %d: %v", i, err)
		}
		totalEvicted += evicted
	}
	if totalEvicted != 2 {
		t.Fatalf("expected 2 evictions total, got %d", totalEvicted)
	}

	list, err := ListSnapshots(context.Background(), db, "u1")
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(list) != maxKeep {
		t.Fatalf("expected exactly %d snapshots, got %d", maxKeep, len(list))
	}
	// Most recent first, oldest evicted first.
	if list[0].ID != "u1-snap-4" || list[1].ID != "u1-snap-3" || list[2].ID != "u1-snap-2" {
		t.Fatalf("unexpected survivors/order: %s, %s, %s", list[0].ID, list[1].ID, list[2].ID)
	}
}

func TestInsertSnapshot_DoesNotEvictOtherOwners(t *testing.T) {
	db := newTestDB(t, &domain.Snapshot{})
	base := time.Now().UTC()

	if _, err := InsertSnapshot(context.Background(), db, makeSnapshot("u2", 0, base), 1); err != nil {
		t.Fatalf("seed u2: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := InsertSnapshot(context.Background(), db, makeSnapshot("u1", i, base.Add(time.Duration(i)*time.Second)), 1); err != nil {
			t.Fatalf("insert u1 %d: %v", i, err)
		}
	}

	other, err := ListSnapshots(context.Background(), db, "u2")
	if err != nil || len(other) != 1 {
		t.Fatalf("u2 snapshots should be untouched: %d, %v", len(other), err)
	}
}

func TestGetSnapshot_OwnerScoped(t *testing.T) {
	db := newTestDB(t, &domain.Snapshot{})
	snap := makeSnapshot("u1", 0, time.Now().UTC())
	if _, err := InsertSnapshot(context.Background(), db, snap, 10); err != nil {
		t.Fatalf("InsertSnapshot: %v", err)
	}

	got, err := GetSnapshot(context.Background(), db, "u1", snap.ID)
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if got.Data.Data().ActiveMapID != "map-0" {
		t.Fatalf("payload mismatch: %+v", got.Data.Data())
	}

	// Another owner cannot read it.
	if _, err := GetSnapshot(context.Background(), db, "u2", snap.ID); err != gorm.ErrRecordNotFound {
		t.Fatalf("expected not-found for wrong owner, got %v", err)
	}
}
