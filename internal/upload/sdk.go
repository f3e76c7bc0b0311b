package upload

import (
	"context"
	"os/exec"
	"path/filepath"
	"time"

	"permadeploy/internal/pd"
)

// LookPathFunc resolves a program name to a path.
type LookPathFunc func(file string) (string, error)

// SDKUploader is the fallback strategy: the SDK's bulk-folder upload command
// (irys by default). It yields only a top-level id, never a per-file listing.
type SDKUploader struct {
	tool     string
	network  string
	token    string
	runner   pd.CommandRunner
	timeout  time.Duration
	lookPath LookPathFunc
}

var _ DirectoryStrategy = (*SDKUploader)(nil)

func NewSDKUploader(tool, network, token string, runner pd.CommandRunner, timeout time.Duration) *SDKUploader {
	if tool == "" {
		tool = "irys"
	}
	return &SDKUploader{
		tool:     tool,
		network:  network,
		token:    token,
		runner:   runner,
		timeout:  timeout,
		lookPath: exec.LookPath,
	}
}

// WithLookPath replaces the PATH lookup used by Available.
func (s *SDKUploader) WithLookPath(fn LookPathFunc) *SDKUploader {
	s.lookPath = fn
	return s
}

func (s *SDKUploader) Name() string { return pd.StrategySDK }

// Available reports whether the SDK command is installed.
func (s *SDKUploader) Available() bool {
	_, err := s.lookPath(s.tool)
	return err == nil
}

// DeployDirectory runs "<tool> upload-dir <dir>" with the index file and tags.
func (s *SDKUploader) DeployDirectory(ctx context.Context, dir, keyPath, indexFile string, tags []pd.Tag) (*Deployment, error) {
	args := []string{"upload-dir", dir, "-w", keyPath, "--index-file", indexFile}
	if s.network != "" {
		args = append(args, "-n", s.network)
	}
	if s.token != "" {
		args = append(args, "-t", s.token)
	}
	if len(tags) > 0 {
		args = append(args, "--tags")
		for _, t := range tags {
			args = append(args, t.Name, t.Value)
		}
	}

	out, err := s.runner.Run(ctx, s.timeout, s.tool, args...)
	if err != nil {
		return nil, err
	}

	ids := Extract(out)
	if ids.ContentID() == "" {
		return nil, &pd.ParseError{Tool: filepath.Base(s.tool), Output: out}
	}
	return &Deployment{IDs: ids, Output: out}, nil
}
