package services

import (
	"context"
	"errors"
	"testing"
)

func TestSettings_GetBeforePutIsEmpty(t *testing.T) {
	svc, err := NewSettingsService(newServiceDB(t))
	if err != nil {
		t.Fatalf("NewSettingsService: %v", err)
	}
	got, err := svc.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty settings, got %+v", got)
	}
}

func TestSettings_PutThenGet(t *testing.T) {
	svc, err := NewSettingsService(newServiceDB(t))
	if err != nil {
		t.Fatalf("NewSettingsService: %v", err)
	}
	ctx := context.Background()

	in := map[string]any{
		"autoBackup":            true,
		"backupIntervalSeconds": 30,
		"defaultAlgorithm":      "tps",
		"language":              "fr-FR",
	}
	if err := svc.Put(ctx, "u1", in); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := svc.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got["defaultAlgorithm"] != "tps" || got["autoBackup"] != true {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	// Overwrite replaces, not merges.
	if err := svc.Put(ctx, "u1", map[string]any{"autoBackup": false}); err != nil {
		t.Fatalf("second Put: %v", err)
	}
	got, err = svc.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get after overwrite: %v", err)
	}
	if _, ok := got["defaultAlgorithm"]; ok {
		t.Fatalf("overwrite should drop stale keys: %+v", got)
	}
}

type fakeToggle struct {
	enabled, disabled int
}

func (f *fakeToggle) Enable()  { f.enabled++ }
func (f *fakeToggle) Disable() { f.disabled++ }

func TestSettings_PutFollowsAutoBackup(t *testing.T) {
	svc, err := NewSettingsService(newServiceDB(t))
	if err != nil {
		t.Fatalf("NewSettingsService: %v", err)
	}
	tog := &fakeToggle{}
	svc.Backup = tog
	ctx := context.Background()

	if err := svc.Put(ctx, "u1", map[string]any{"autoBackup": true}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if tog.enabled != 1 || tog.disabled != 0 {
		t.Fatalf("expected one Enable, got %+v", tog)
	}

	if err := svc.Put(ctx, "u1", map[string]any{"autoBackup": false}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if tog.disabled != 1 {
		t.Fatalf("expected one Disable, got %+v", tog)
	}

	// A document without the key leaves the toggle alone, and a rejected
	// document never reaches it.
	if err := svc.Put(ctx, "u1", map[string]any{"language": "fr"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := svc.Put(ctx, "u1", map[string]any{"autoBackup": "yes"}); !errors.Is(err, ErrSettingsInvalid) {
		t.Fatalf("expected ErrSettingsInvalid, got %v", err)
	}
	if tog.enabled != 1 || tog.disabled != 1 {
		t.Fatalf("toggle should be untouched, got %+v", tog)
	}
}

func TestSettings_PutRejectsInvalidDocuments(t *testing.T) {
	svc, err := NewSettingsService(newServiceDB(t))
	if err != nil {
		t.Fatalf("NewSettingsService: %v", err)
	}
	ctx := context.Background()

	cases := []struct {
		name   string
		values map[string]any
	}{
		{"unknown key", map[string]any{"favouriteColour": "blue"}},
		{"bad algorithm", map[string]any{"defaultAlgorithm": "magic"}},
		{"interval too small", map[string]any{"backupIntervalSeconds": 1}},
		{"language not a tag", map[string]any{"language": "French"}},
		{"wrong type", map[string]any{"autoBackup": "yes"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Put(ctx, "u1", tc.values)
			if !errors.Is(err, ErrSettingsInvalid) {
				t.Fatalf("expected ErrSettingsInvalid, got %v", err)
			}
		})
	}

	// Nothing invalid made it to storage.
	got, err := svc.Get(ctx, "u1")
	if err != nil || len(got) != 0 {
		t.Fatalf("rejected writes must not persist: %v, %+v", err, got)
	}
}
