package pd

import (
	"context"
	"time"
)

// Catalog is the resource catalog used for tagging and search.
type Catalog interface {
	// FindByPath returns the resource stored for path, or nil if none exists.
	FindByPath(ctx context.Context, path string) (*Resource, error)

	// InsertOrUpdate creates the resource or updates the record with the same id.
	InsertOrUpdate(ctx context.Context, r *Resource) error

	// AppendUploadRecord adds an upload to a resource's history.
	AppendUploadRecord(ctx context.Context, rec *UploadRecord) error

	// ListUploadRecords returns a resource's uploads, newest first.
	ListUploadRecords(ctx context.Context, resourceID string) ([]*UploadRecord, error)

	Close() error
}

// Registry is the legacy JSON archive that older tooling reads. Writes to it
// are mirrored on a best-effort basis.
type Registry interface {
	Record(resourceID, title, transactionID string, at time.Time) error
	Status(resourceID string) (string, error)
}
