// Package upload publishes files and directories by driving external upload
// tools and normalizing what they print.
package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"permadeploy/internal/manifest"
	"permadeploy/internal/pd"
)

// Options configures an Orchestrator.
type Options struct {
	GatewayURL string
	AppName    string
	ExtraTags  []pd.Tag
	IndexFile  string
	// TempDir holds generated manifests while they upload. Empty means the
	// system temp dir.
	TempDir string
}

// Orchestrator implements pd.Publisher. Directory publishes run the primary
// bundler and fall back to the SDK uploader only if the primary fails; a path
// manifest with clean URLs is then built and uploaded on top.
type Orchestrator struct {
	keys     pd.KeyProvider
	primary  *Bundler
	fallback DirectoryStrategy
	opts     Options
	logger   pd.Logger
}

var _ pd.Publisher = (*Orchestrator)(nil)

// NewOrchestrator creates an orchestrator. fallback may be nil.
func NewOrchestrator(keys pd.KeyProvider, primary *Bundler, fallback DirectoryStrategy, opts Options, logger pd.Logger) *Orchestrator {
	if opts.IndexFile == "" {
		opts.IndexFile = manifest.DefaultIndex
	}
	opts.GatewayURL = strings.TrimRight(opts.GatewayURL, "/")
	return &Orchestrator{
		keys:     keys,
		primary:  primary,
		fallback: fallback,
		opts:     opts,
		logger:   pd.OrNop(logger),
	}
}

// PublishDirectory uploads req.Dir and, when the tool reported a per-file
// listing, a clean-URL manifest for it.
func (o *Orchestrator) PublishDirectory(ctx context.Context, req pd.DirectoryRequest) (*pd.PublishResult, error) {
	dir, err := filepath.Abs(req.Dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pd.ErrValidation, err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", pd.ErrValidation, req.Dir)
	}
	index := req.IndexFile
	if index == "" {
		index = o.opts.IndexFile
	}
	tags := o.tags(req.Tags)

	var result *pd.PublishResult
	err = o.keys.WithKeyFile(func(keyPath string) error {
		dep, strategy, err := o.deployDirectory(ctx, dir, keyPath, index, tags)
		if err != nil {
			return err
		}
		result = o.newResult(dep, strategy)
		result.UploadedFiles = relativize(dir, dep.Files)
		o.attachManifest(ctx, keyPath, index, result)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// PublishFile uploads one file without bundling.
func (o *Orchestrator) PublishFile(ctx context.Context, req pd.FileRequest) (*pd.PublishResult, error) {
	info, err := os.Stat(req.Path)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a file", pd.ErrValidation, req.Path)
	}
	tags := o.tags(req.Tags)

	var result *pd.PublishResult
	err = o.keys.WithKeyFile(func(keyPath string) error {
		dep, err := o.primary.DeployFile(ctx, req.Path, keyPath, tags)
		if err != nil {
			return err
		}
		result = o.newResult(dep, o.primary.Name())
		result.UploadedFiles = []pd.UploadedFile{{
			Path:      filepath.Base(req.Path),
			ContentID: result.TransactionID,
			Size:      info.Size(),
		}}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (o *Orchestrator) deployDirectory(ctx context.Context, dir, keyPath, index string, tags []pd.Tag) (*Deployment, string, error) {
	o.logger.Info("uploading directory", "strategy", o.primary.Name(), "dir", dir)
	dep, primaryErr := o.primary.DeployDirectory(ctx, dir, keyPath, index, tags)
	if primaryErr == nil {
		return dep, o.primary.Name(), nil
	}
	primaryErr = fmt.Errorf("primary upload (%s): %w", o.primary.Name(), primaryErr)
	o.logger.Warn("primary upload failed", "error", primaryErr, "output", pd.ToolOutput(primaryErr))

	if o.fallback == nil {
		return nil, "", errors.Join(primaryErr, errors.New("fallback upload: not configured"))
	}
	if !o.fallback.Available() {
		return nil, "", errors.Join(primaryErr, fmt.Errorf("fallback upload (%s): uploader not installed", o.fallback.Name()))
	}

	o.logger.Info("uploading directory", "strategy", o.fallback.Name(), "dir", dir)
	dep, fallbackErr := o.fallback.DeployDirectory(ctx, dir, keyPath, index, tags)
	if fallbackErr != nil {
		return nil, "", errors.Join(primaryErr, fmt.Errorf("fallback upload (%s): %w", o.fallback.Name(), fallbackErr))
	}
	return dep, o.fallback.Name(), nil
}

// attachManifest builds and uploads the clean-URL manifest. Any failure
// leaves the tool's own address in place and is recorded on the result.
func (o *Orchestrator) attachManifest(ctx context.Context, keyPath, index string, result *pd.PublishResult) {
	if len(result.UploadedFiles) == 0 {
		result.ManifestError = "upload tool reported no per-file listing"
		o.logger.Warn("clean URLs unavailable", "reason", result.ManifestError, "address", result.ManifestID)
		return
	}

	id, err := o.uploadManifest(ctx, keyPath, index, result.UploadedFiles)
	if err != nil {
		result.ManifestError = err.Error()
		o.logger.Warn("clean URLs unavailable", "error", err, "address", result.ManifestID)
		return
	}

	result.ManifestID = id
	result.URL = o.link(id)
	result.ManifestURL = result.URL
	result.CleanURLs = true
	o.logger.Info("manifest uploaded", "manifest", id, "paths", len(result.UploadedFiles))
}

func (o *Orchestrator) uploadManifest(ctx context.Context, keyPath, index string, files []pd.UploadedFile) (string, error) {
	m, err := manifest.Build(files, manifest.SiteMetadata{IndexFile: index})
	if err != nil {
		return "", fmt.Errorf("building manifest: %w", err)
	}
	data, err := m.Marshal()
	if err != nil {
		return "", fmt.Errorf("encoding manifest: %w", err)
	}

	f, err := os.CreateTemp(o.opts.TempDir, "manifest-*.json")
	if err != nil {
		return "", fmt.Errorf("creating manifest file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("writing manifest file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing manifest file: %w", err)
	}

	tags := o.tags([]pd.Tag{{Name: "Type", Value: "manifest"}})
	tags = append([]pd.Tag{{Name: "Content-Type", Value: manifest.ContentType}}, tags...)
	dep, err := o.primary.DeployFile(ctx, path, keyPath, tags)
	if err != nil {
		return "", fmt.Errorf("uploading manifest: %w", err)
	}
	return dep.IDs.ContentID(), nil
}

func (o *Orchestrator) newResult(dep *Deployment, strategy string) *pd.PublishResult {
	address := dep.IDs.ContentID()
	tx := dep.IDs.TransactionID
	if tx == "" {
		tx = address
	}
	r := &pd.PublishResult{
		ManifestID:    address,
		TransactionID: tx,
		BundleID:      dep.IDs.BundleID,
		Strategy:      strategy,
		RawOutput:     dep.Output,
	}
	if address != "" {
		r.URL = o.link(address)
	}
	return r
}

func (o *Orchestrator) link(id string) string {
	return o.opts.GatewayURL + "/" + id
}

// tags puts the application tags ahead of the request's own.
func (o *Orchestrator) tags(extra []pd.Tag) []pd.Tag {
	var tags []pd.Tag
	if o.opts.AppName != "" {
		tags = append(tags, pd.Tag{Name: "App-Name", Value: o.opts.AppName})
	}
	tags = append(tags, o.opts.ExtraTags...)
	return append(tags, extra...)
}

// relativize rewrites listing paths that the tool printed as absolute or
// dir-prefixed paths into manifest keys relative to dir.
func relativize(dir string, files []pd.UploadedFile) []pd.UploadedFile {
	out := make([]pd.UploadedFile, 0, len(files))
	for _, f := range files {
		p := filepath.FromSlash(f.Path)
		if filepath.IsAbs(p) {
			if rel, err := filepath.Rel(dir, p); err == nil && !strings.HasPrefix(rel, "..") {
				p = rel
			}
		}
		f.Path = manifest.NormalizePath(filepath.ToSlash(p))
		if f.ContentType == "" {
			f.ContentType = pd.ContentTypeFor(f.Path)
		}
		out = append(out, f)
	}
	return out
}
