package pd

import (
	"context"
	"time"
)

// Publisher uploads content to the storage network.
type Publisher interface {
	PublishDirectory(ctx context.Context, req DirectoryRequest) (*PublishResult, error)
	PublishFile(ctx context.Context, req FileRequest) (*PublishResult, error)
}

// CostEstimator converts a byte size into a fee estimate. It never fails;
// an unavailable price feed only omits the fiat value.
type CostEstimator interface {
	Estimate(ctx context.Context, size int64) Cost
}

// ResourceResolver produces stable identifiers for local files.
type ResourceResolver interface {
	Resolve(ctx context.Context, path string) ResourceIdentifier
	Metadata(path string) (FileMetadata, error)
}

// DeploymentHistory persists publish attempts.
type DeploymentHistory interface {
	// AddDeployment records an attempt. The returned record is non-nil
	// whenever it could be built, even if persisting it failed.
	AddDeployment(outcome DeploymentOutcome, siteID, strategy string) (*DeploymentRecord, error)
}

// Scanner summarizes the files under a publish root.
type Scanner interface {
	Scan(root string) (*ScanSummary, error)
}

// CommandRunner executes an external program and returns its combined
// stdout and stderr. A non-zero exit or a timeout is reported as *ToolError
// carrying whatever output was captured.
type CommandRunner interface {
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error)
}
