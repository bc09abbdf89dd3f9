// Package services – SettingsService
//
// SettingsService stores the per-owner settings document and validates every
// write against an embedded JSON Schema, the same schema the browser client
// generates its settings form from.
package services

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/paristimemachine/galligeo/internal/domain"
	"github.com/paristimemachine/galligeo/internal/repo"
)

//go:embed settings_schema.json
var settingsSchemaJSON string

// BackupToggle switches recurring snapshot capture on or off. The snapshot
// scheduler implements it.
type BackupToggle interface {
	Enable()
	Disable()
}

// SettingsService provides validated read/write access to owner settings.
type SettingsService struct {
	DB     *gorm.DB
	schema *jsonschema.Schema

	// Backup, when set, follows the autoBackup key of accepted documents.
	Backup BackupToggle
}

// NewSettingsService compiles the embedded schema and returns the service.
func NewSettingsService(db *gorm.DB) (*SettingsService, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("settings.json", strings.NewReader(settingsSchemaJSON)); err != nil {
		return nil, err
	}
	schema, err := c.Compile("settings.json")
	if err != nil {
		return nil, err
	}
	return &SettingsService{DB: db, schema: schema}, nil
}

// Get returns the owner's settings document, or an empty one when none has
// been stored yet.
func (s *SettingsService) Get(ctx context.Context, owner string) (map[string]any, error) {
	if owner == "" {
		return nil, ErrInvalidOwner
	}
	doc, err := repo.GetSettings(ctx, s.DB, owner)
	if errors.Is(err, repo.ErrNotFound) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.Values, nil
}

// Put validates values against the schema and overwrites the owner's
// settings document. Validation failures return ErrSettingsInvalid with the
// schema's explanation attached.
func (s *SettingsService) Put(ctx context.Context, owner string, values map[string]any) error {
	if owner == "" {
		return ErrInvalidOwner
	}
	// Round-trip through JSON so the validator sees plain interface values.
	raw, err := json.Marshal(values)
	if err != nil {
		return err
	}
	var plain any
	if err := json.Unmarshal(raw, &plain); err != nil {
		return err
	}
	if err := s.schema.Validate(plain); err != nil {
		return fmt.Errorf("%w: %v", ErrSettingsInvalid, err)
	}
	if err := repo.PutSettings(ctx, s.DB, &domain.SettingsDoc{
		Owner:     owner,
		Values:    datatypes.JSONMap(values),
		UpdatedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}

	if s.Backup != nil {
		if auto, ok := values["autoBackup"].(bool); ok {
			if auto {
				s.Backup.Enable()
			} else {
				s.Backup.Disable()
			}
		}
	}
	return nil
}
