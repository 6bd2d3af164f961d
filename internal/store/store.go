package store

import (
	"context"
	"time"

	"oap/internal/provision"
	"oap/internal/query"
)

// Records persists provisioning records.
type Records interface {
	// CreateRecords inserts records in one transaction and returns them with
	// their assigned ids.
	CreateRecords(ctx context.Context, records []provision.Record) ([]provision.Record, error)
	// GetRecord returns provision.ErrNotFound when id is unknown.
	GetRecord(ctx context.Context, id int64) (provision.Record, error)
	// UpdateStage sets the stage status, and the result link when link is
	// non-nil, only if the stage is not terminal and not already at status.
	// It reports whether a row changed. A missing id is not an error.
	UpdateStage(ctx context.Context, id int64, stage provision.Stage, status provision.Status, link *string) (bool, error)
	FindRecords(ctx context.Context, spec query.Spec) ([]provision.Record, error)
	CountRecords(ctx context.Context, filter query.Predicate) (int, error)
	// ListRecordsWithUsers joins records to users on WWID.
	ListRecordsWithUsers(ctx context.Context) ([]provision.RecordWithUser, error)
}

// Batches issues master sequence rows.
type Batches interface {
	// InsertBatch creates a batch and returns it with the id the store
	// assigned in the same statement.
	InsertBatch(ctx context.Context, userID string, createdAt time.Time) (provision.Batch, error)
	// LatestBatch returns the batch with the greatest global id.
	LatestBatch(ctx context.Context) (provision.Batch, bool, error)
}

// Users is the read side of the identity directory plus a seeding hook.
type Users interface {
	PutUser(ctx context.Context, user provision.User) error
	// GetUser returns provision.ErrNotFound when userID is unknown.
	GetUser(ctx context.Context, userID string) (provision.User, error)
}

// Inventory holds controllers and platforms.
type Inventory interface {
	CreateController(ctx context.Context, c provision.Controller) (provision.Controller, error)
	ListControllers(ctx context.Context) ([]provision.Controller, error)
	CreatePlatform(ctx context.Context, p provision.Platform) (provision.Platform, error)
	ListPlatforms(ctx context.Context) ([]provision.Platform, error)
}

// Store is the full backend surface.
type Store interface {
	Records
	Batches
	Users
	Inventory
	Ping(ctx context.Context) error
	Close() error
}
