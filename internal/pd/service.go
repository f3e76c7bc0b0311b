package pd

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"
)

// PDService is the orchestration layer that turns a local directory or file
// into a recorded deployment. It coordinates scanning, cost estimation,
// uploading and history, and mirrors results into the catalog and legacy
// registry on a fire-and-log basis.
type PDService struct {
	publisher Publisher
	estimator CostEstimator
	history   DeploymentHistory
	resolver  ResourceResolver
	catalog   Catalog
	registry  Registry
	scanner   Scanner
	logger    Logger
	clock     Clock
	indexFile string
}

// NewPDService creates a new PDService with the provided dependencies.
// catalog and registry may be nil; their mirroring is then skipped.
func NewPDService(publisher Publisher, estimator CostEstimator, history DeploymentHistory, resolver ResourceResolver, catalog Catalog, registry Registry, scanner Scanner, logger Logger, clock Clock, indexFile string) *PDService {
	if indexFile == "" {
		indexFile = "index.html"
	}
	return &PDService{
		publisher: publisher,
		estimator: estimator,
		history:   history,
		resolver:  resolver,
		catalog:   catalog,
		registry:  registry,
		scanner:   scanner,
		logger:    OrNop(logger),
		clock:     clock,
		indexFile: indexFile,
	}
}

// PublishSite publishes dir as siteID and records the attempt, whether it
// succeeds or fails. The returned record is non-nil whenever history could
// build one, so callers can report the failure id.
func (s *PDService) PublishSite(ctx context.Context, dir, siteID string) (*DeploymentRecord, error) {
	if siteID == "" {
		siteID = filepath.Base(filepath.Clean(dir))
	}

	summary, err := s.scanner.Scan(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: scanning %s: %v", ErrValidation, dir, err)
	}
	if summary.FileCount == 0 {
		return nil, fmt.Errorf("%w: nothing to publish in %s", ErrValidation, dir)
	}

	cost := s.estimator.Estimate(ctx, summary.TotalSize)
	s.logger.Info("publishing site", "site", siteID, "dir", dir, "files", summary.FileCount, "bytes", summary.TotalSize, "estimate", cost.Native)

	result, pubErr := s.publisher.PublishDirectory(ctx, DirectoryRequest{
		Dir:       dir,
		SiteID:    siteID,
		IndexFile: s.indexFile,
		Tags:      []Tag{{Name: "Site-Id", Value: siteID}},
	})

	outcome := DeploymentOutcome{
		Result:    result,
		Err:       pubErr,
		Cost:      cost,
		FileCount: summary.FileCount,
		TotalSize: summary.TotalSize,
		Metadata:  map[string]string{"kind": "site", "dir": summary.Root},
	}
	strategy := StrategyBundler
	if result != nil {
		strategy = result.Strategy
		outcome.Metadata["cleanUrls"] = fmt.Sprintf("%t", result.CleanURLs)
		if result.ManifestError != "" {
			outcome.Metadata["manifestError"] = result.ManifestError
		}
	}

	rec, histErr := s.history.AddDeployment(outcome, siteID, strategy)
	if histErr != nil {
		s.logger.Error("recording deployment failed", "site", siteID, "error", histErr)
	}

	if pubErr != nil {
		s.logger.Error("site publish failed", "site", siteID, "error", pubErr)
		return rec, fmt.Errorf("publishing %s: %w", dir, pubErr)
	}
	s.logger.Info("site published", "site", siteID, "manifest", result.ManifestID, "cleanUrls", result.CleanURLs)
	if histErr != nil {
		return rec, fmt.Errorf("recording deployment of %s (manifest %s): %w", siteID, result.ManifestID, histErr)
	}
	return rec, nil
}

// FileUpload is the outcome of publishing a single file.
type FileUpload struct {
	Resource ResourceIdentifier
	Metadata FileMetadata
	Record   *DeploymentRecord
	Result   *PublishResult
}

// PublishFile publishes one file tagged with its stable resource id, records
// the attempt, and mirrors a successful upload into the catalog and the
// legacy registry.
func (s *PDService) PublishFile(ctx context.Context, path string) (*FileUpload, error) {
	summary, err := s.scanner.Scan(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	ident := s.resolver.Resolve(ctx, path)
	meta, err := s.resolver.Metadata(path)
	if err != nil {
		s.logger.Debug("no front matter", "path", path, "error", err)
	}
	s.logger.Info("publishing file", "path", path, "resource", ident.ID, "source", ident.Source, "confidence", ident.Confidence)

	tags := []Tag{
		{Name: "Content-Type", Value: ContentTypeFor(path)},
		{Name: "UUID", Value: ident.ID},
	}
	if meta.Type != "" {
		tags = append(tags, Tag{Name: "Type", Value: meta.Type})
	}

	cost := s.estimator.Estimate(ctx, summary.TotalSize)
	result, pubErr := s.publisher.PublishFile(ctx, FileRequest{Path: path, Tags: tags})

	outcome := DeploymentOutcome{
		Result:    result,
		Err:       pubErr,
		Cost:      cost,
		FileCount: 1,
		TotalSize: summary.TotalSize,
		Metadata: map[string]string{
			"kind":     "file",
			"path":     summary.Root,
			"idSource": string(ident.Source),
		},
	}
	strategy := StrategyBundler
	if result != nil {
		strategy = result.Strategy
	}
	rec, histErr := s.history.AddDeployment(outcome, ident.ID, strategy)
	if histErr != nil {
		s.logger.Error("recording file upload failed", "path", path, "error", histErr)
	}

	upload := &FileUpload{Resource: ident, Metadata: meta, Record: rec, Result: result}
	if pubErr != nil {
		return upload, fmt.Errorf("publishing %s: %w", path, pubErr)
	}

	now := s.clock.Now()
	s.fireAndLog("catalog", func() error {
		return s.recordInCatalog(ctx, summary.Root, ident, meta, result, now)
	})
	s.fireAndLog("registry", func() error {
		if s.registry == nil {
			return nil
		}
		return s.registry.Record(ident.ID, meta.Title, result.TransactionID, now)
	})

	return upload, nil
}

func (s *PDService) recordInCatalog(ctx context.Context, path string, ident ResourceIdentifier, meta FileMetadata, result *PublishResult, now time.Time) error {
	if s.catalog == nil {
		return nil
	}
	res := &Resource{
		ID:        ident.ID,
		Path:      path,
		Title:     meta.Title,
		Type:      meta.Type,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.catalog.InsertOrUpdate(ctx, res); err != nil {
		return fmt.Errorf("updating resource: %w", err)
	}
	return s.catalog.AppendUploadRecord(ctx, &UploadRecord{
		ResourceID:    ident.ID,
		TransactionID: result.TransactionID,
		Link:          result.URL,
		UploadedAt:    now,
	})
}

// fireAndLog runs a secondary effect whose failure must never change the
// outcome of the primary operation. Errors and panics are logged and dropped.
func (s *PDService) fireAndLog(task string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("secondary task panicked", "task", task, "panic", r)
		}
	}()
	if err := fn(); err != nil {
		s.logger.Warn("secondary task failed", "task", task, "error", err)
	}
}

// ContentTypeFor guesses a Content-Type tag value from the file extension.
func ContentTypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".md", ".markdown":
		return "text/markdown"
	case "":
		return "application/octet-stream"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
