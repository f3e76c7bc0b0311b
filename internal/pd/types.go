package pd

import "time"

// Account is a signing identity. Key material is stored separately in the
// secret store, keyed by account id, and never embedded here.
type Account struct {
	ID        string    `json:"id"`
	Nickname  string    `json:"nickname"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	LastUsed  time.Time `json:"lastUsed"`
}

// IdentifierSource records which resolution strategy produced a resource id.
type IdentifierSource string

const (
	SourceDeclared IdentifierSource = "declared-metadata"
	SourceCatalog  IdentifierSource = "catalog-lookup"
	SourceContent  IdentifierSource = "content-derived"
	SourceRandom   IdentifierSource = "generated"
)

// Confidence grades how authoritative a resolved identifier is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ResourceIdentifier is the outcome of resolving a stable id for a local file.
type ResourceIdentifier struct {
	ID         string
	Source     IdentifierSource
	Confidence Confidence
}

// FileMetadata is the descriptive front-matter of a local file.
type FileMetadata struct {
	Title string
	Type  string
}

// Resource is a catalog record for a published local file.
type Resource struct {
	ID        string
	Path      string
	Title     string
	Type      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UploadRecord is one upload of a resource, kept by the catalog.
type UploadRecord struct {
	ResourceID    string
	TransactionID string
	Link          string
	UploadedAt    time.Time
}

// Tag is a name/value pair attached to an upload.
type Tag struct {
	Name  string `toml:"name" json:"name"`
	Value string `toml:"value" json:"value"`
}

// UploadedFile describes one file placed on the network during a directory publish.
type UploadedFile struct {
	Path        string `json:"path"`
	ContentID   string `json:"contentId"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType,omitempty"`
}

// Cost is an upload fee estimate. Native is a decimal string in the display
// unit; Fiat is omitted when no price was available.
type Cost struct {
	Native string   `json:"native"`
	Fiat   *float64 `json:"fiat,omitempty"`
}

// Upload strategies.
const (
	StrategyBundler = "arkb"
	StrategySDK     = "sdk"
)

// DirectoryRequest asks the publisher to place a whole directory on the network.
type DirectoryRequest struct {
	Dir       string
	SiteID    string
	IndexFile string
	Tags      []Tag
}

// FileRequest asks the publisher to place a single file on the network.
type FileRequest struct {
	Path string
	Tags []Tag
}

// PublishResult is the normalized outcome of an upload, whichever strategy produced it.
type PublishResult struct {
	// ManifestID is the public address of the deployment. For a directory
	// publish with clean URLs this is the id of the uploaded path manifest.
	ManifestID    string
	TransactionID string
	BundleID      string
	URL           string
	ManifestURL   string
	UploadedFiles []UploadedFile
	Strategy      string

	// CleanURLs reports whether the extension-stripped manifest was uploaded.
	// When false, ManifestError explains why the tool's own manifest is used.
	CleanURLs     bool
	ManifestError string
	RawOutput     string
}

// DeploymentStatus is the terminal state of a publish attempt.
type DeploymentStatus string

const (
	StatusSuccess DeploymentStatus = "success"
	StatusFailed  DeploymentStatus = "failed"
)

// DeploymentRecord is the immutable audit entry for one publish attempt.
type DeploymentRecord struct {
	ID                string            `json:"id"`
	Timestamp         time.Time         `json:"timestamp"`
	SiteID            string            `json:"siteId"`
	ManifestContentID string            `json:"manifestContentId"`
	URL               string            `json:"url"`
	ManifestURL       string            `json:"manifestUrl,omitempty"`
	Cost              Cost              `json:"cost"`
	FileCount         int               `json:"fileCount"`
	TotalSize         int64             `json:"totalSize"`
	Strategy          string            `json:"strategy"`
	Status            DeploymentStatus  `json:"status"`
	Error             string            `json:"error,omitempty"`
	UploadedFiles     []UploadedFile    `json:"uploadedFiles,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// DeploymentOutcome is everything the history store needs to record an attempt.
// Exactly one of Result and Err is set.
type DeploymentOutcome struct {
	Result    *PublishResult
	Err       error
	Cost      Cost
	FileCount int
	TotalSize int64
	Metadata  map[string]string
}

// DeploymentStats aggregates the retained deployment history.
type DeploymentStats struct {
	Total      int
	Successful int
	Failed     int
	TotalCost  string
	TotalFiles int
	TotalSize  int64
	Latest     *DeploymentRecord
}

// TxStatus classifies a transaction as observed on the network.
type TxStatus string

const (
	TxConfirmed TxStatus = "confirmed"
	TxPending   TxStatus = "pending"
	TxFailed    TxStatus = "failed"
)

// TxVerification is the result of checking one transaction.
type TxVerification struct {
	ID          string
	Status      TxStatus
	Exists      bool
	Accessible  bool
	BlockHeight int64
}

// DeploymentVerification is the result of checking a whole deployment.
type DeploymentVerification struct {
	ManifestID         string
	IsValid            bool
	ManifestAccessible bool
	VerifiedFiles      int
	TotalFiles         int
	Errors             []string
}

// ScanSummary describes the files under a publish root.
type ScanSummary struct {
	Root      string
	FileCount int
	TotalSize int64
}
