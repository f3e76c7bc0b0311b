package upload

import (
	"context"
	"os/exec"
	"path/filepath"
	"time"

	"permadeploy/internal/pd"
)

// Deployment is what a strategy learned from one tool run.
type Deployment struct {
	IDs    Extraction
	Files  []pd.UploadedFile
	Output string
}

// DirectoryStrategy uploads a whole directory.
type DirectoryStrategy interface {
	Name() string
	Available() bool
	DeployDirectory(ctx context.Context, dir, keyPath, indexFile string, tags []pd.Tag) (*Deployment, error)
}

// Bundler drives the arkb CLI, the primary upload tool. It handles both
// bundled directory deploys and unbundled single-file deploys.
type Bundler struct {
	tool        string
	runner      pd.CommandRunner
	dirTimeout  time.Duration
	fileTimeout time.Duration
	bundle      bool
}

var _ DirectoryStrategy = (*Bundler)(nil)

func NewBundler(tool string, runner pd.CommandRunner, dirTimeout, fileTimeout time.Duration, bundle bool) *Bundler {
	if tool == "" {
		tool = "arkb"
	}
	return &Bundler{
		tool:        tool,
		runner:      runner,
		dirTimeout:  dirTimeout,
		fileTimeout: fileTimeout,
		bundle:      bundle,
	}
}

func (b *Bundler) Name() string { return pd.StrategyBundler }

// Available reports whether the tool can be found.
func (b *Bundler) Available() bool {
	_, err := exec.LookPath(b.tool)
	return err == nil
}

// DeployDirectory runs "arkb deploy <dir>" with bundling and auto-confirm.
func (b *Bundler) DeployDirectory(ctx context.Context, dir, keyPath, indexFile string, tags []pd.Tag) (*Deployment, error) {
	args := []string{"deploy", dir, "--wallet", keyPath, "--index", indexFile}
	if b.bundle {
		args = append(args, "--bundle")
	}
	args = append(args, tagArgs(tags)...)
	args = append(args, "--auto-confirm")

	out, err := b.runner.Run(ctx, b.dirTimeout, b.tool, args...)
	if err != nil {
		return nil, err
	}

	dep := &Deployment{IDs: Extract(out), Files: ParseListing(out), Output: out}
	if dep.IDs.ContentID() == "" && len(dep.Files) == 0 {
		return nil, &pd.ParseError{Tool: filepath.Base(b.tool), Output: out}
	}
	return dep, nil
}

// DeployFile uploads a single file without bundling and returns its id.
func (b *Bundler) DeployFile(ctx context.Context, path, keyPath string, tags []pd.Tag) (*Deployment, error) {
	args := []string{"deploy", path, "--wallet", keyPath}
	args = append(args, tagArgs(tags)...)
	args = append(args, "--no-bundle", "--auto-confirm")

	out, err := b.runner.Run(ctx, b.fileTimeout, b.tool, args...)
	if err != nil {
		return nil, err
	}

	ids := Extract(out)
	if ids.ContentID() == "" {
		return nil, &pd.ParseError{Tool: filepath.Base(b.tool), Output: out}
	}
	return &Deployment{IDs: ids, Output: out}, nil
}

func tagArgs(tags []pd.Tag) []string {
	args := make([]string, 0, len(tags)*4)
	for _, t := range tags {
		args = append(args, "--tag-name", t.Name, "--tag-value", t.Value)
	}
	return args
}
