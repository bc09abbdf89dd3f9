// Package services implements the application logic for the local work-state
// store, snapshot checkpointing, and local/remote reconciliation. This file
// centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer, not here.
package services

import "errors"

var (
	// ErrInvalidOwner is returned when an owner handle is empty. Proceeding
	// would create records under a null identity.
	ErrInvalidOwner = errors.New("owner must not be empty")

	// ErrInvalidMapID is returned when a map identifier is empty. Failing
	// fast here prevents silently keying a record on nothing.
	ErrInvalidMapID = errors.New("map id must not be empty")

	// ErrInvalidStatus is returned when a status value is outside the
	// workflow enum.
	ErrInvalidStatus = errors.New("status must be InProgress, Georeferenced, or Deposited")

	// ErrInvalidQuality is returned when a quality rating is outside 1..4.
	ErrInvalidQuality = errors.New("quality must be between 1 and 4")

	// ErrDuplicatePointID is returned when a patch carries control points
	// with repeated ids.
	ErrDuplicatePointID = errors.New("control point ids must be unique within a record")

	// ErrRecordNotFound indicates the requested work record does not exist
	// for this owner.
	ErrRecordNotFound = errors.New("work record not found")

	// ErrSnapshotNotFound indicates the requested snapshot does not exist
	// for this owner.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrSnapshotInvalid indicates a snapshot payload is missing or
	// structurally unusable; nothing was restored.
	ErrSnapshotInvalid = errors.New("snapshot payload is missing or invalid")

	// ErrUnknownTrigger is returned when a snapshot trigger value is not
	// one of the accepted wire strings.
	ErrUnknownTrigger = errors.New("unknown snapshot trigger")

	// ErrSettingsInvalid indicates a settings document failed schema
	// validation.
	ErrSettingsInvalid = errors.New("settings document does not match the schema")

	// ErrNotEnoughPoints is returned when a submission has fewer complete
	// control point pairs than the transform fit needs.
	ErrNotEnoughPoints = errors.New("georeferencing needs at least 3 complete control point pairs")
)
