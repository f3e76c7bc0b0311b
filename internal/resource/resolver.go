// Package resource assigns stable identifiers to local content files.
package resource

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"permadeploy/internal/pd"
)

// contentNamespace scopes content-derived identifiers.
var contentNamespace = uuid.MustParse("3b0d1c5e-8f4a-4d6e-9c2b-7a1e5f0d2c84")

// Resolver resolves identifiers through a fixed cascade: declared front
// matter, catalog lookup by path, content digest, then a random id.
type Resolver struct {
	catalog pd.Catalog
	logger  pd.Logger
}

var _ pd.ResourceResolver = (*Resolver)(nil)

// NewResolver creates a resolver. catalog may be nil.
func NewResolver(catalog pd.Catalog, logger pd.Logger) *Resolver {
	return &Resolver{catalog: catalog, logger: pd.OrNop(logger)}
}

// Resolve never fails; the last step always produces an id.
func (r *Resolver) Resolve(ctx context.Context, path string) pd.ResourceIdentifier {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	if fm, err := ReadFrontMatter(path); err == nil {
		if id, ok := Canonical(fm.DeclaredID()); ok {
			return pd.ResourceIdentifier{ID: id, Source: pd.SourceDeclared, Confidence: pd.ConfidenceHigh}
		}
		if d := fm.DeclaredID(); d != "" {
			r.logger.Warn("ignoring malformed declared id", "path", path, "id", d)
		}
	}

	if r.catalog != nil {
		res, err := r.catalog.FindByPath(ctx, path)
		switch {
		case err != nil:
			r.logger.Warn("catalog lookup failed", "path", path, "error", err)
		case res != nil:
			return pd.ResourceIdentifier{ID: res.ID, Source: pd.SourceCatalog, Confidence: pd.ConfidenceHigh}
		}
	}

	id, err := ContentID(path)
	if err == nil {
		return pd.ResourceIdentifier{ID: id, Source: pd.SourceContent, Confidence: pd.ConfidenceMedium}
	}
	r.logger.Warn("content digest failed, generating id", "path", path, "error", err)

	return pd.ResourceIdentifier{ID: uuid.NewString(), Source: pd.SourceRandom, Confidence: pd.ConfidenceLow}
}

// Metadata returns the title and type declared in the file's front matter.
// A file without front matter has empty metadata and no error.
func (r *Resolver) Metadata(path string) (pd.FileMetadata, error) {
	fm, err := ReadFrontMatter(path)
	if errors.Is(err, ErrNoFrontMatter) {
		return pd.FileMetadata{}, nil
	}
	if err != nil {
		return pd.FileMetadata{}, fmt.Errorf("reading metadata of %s: %w", path, err)
	}
	return pd.FileMetadata{Title: fm.Title, Type: fm.Type}, nil
}

// Canonical reports whether s is a UUID in the hyphenated 36-character
// form and returns it lowercased.
func Canonical(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) != 36 {
		return "", false
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return "", false
	}
	return u.String(), true
}

// ContentID folds the SHA-256 digest of the file into a version 8 UUID.
// Identical bytes always yield the same id.
func ContentID(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return uuid.NewHash(sha256.New(), contentNamespace, h.Sum(nil), 8).String(), nil
}
