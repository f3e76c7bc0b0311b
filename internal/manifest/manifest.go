// Package manifest builds path manifests: the small published document that
// maps site paths to content ids so one address can serve a whole site.
package manifest

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"permadeploy/internal/pd"
)

const (
	// ContentType is the tag value gateways use to recognize a path manifest.
	ContentType = "application/x.arweave-manifest+json"

	Type = "arweave/paths"

	// Version 0.2.0 is the first revision that supports a fallback entry.
	Version = "0.2.0"

	DefaultIndex = "index.html"
)

// Manifest is a path manifest document.
type Manifest struct {
	Manifest string              `json:"manifest"`
	Version  string              `json:"version"`
	Index    IndexPath           `json:"index"`
	Fallback *Resource           `json:"fallback,omitempty"`
	Paths    map[string]Resource `json:"paths"`
}

type IndexPath struct {
	Path string `json:"path"`
}

type Resource struct {
	ID string `json:"id"`
}

// SiteMetadata customizes a build. The zero value uses index.html.
type SiteMetadata struct {
	IndexFile string
}

// Build creates a manifest for files. Every file is addressable by its raw
// path; HTML pages other than the index also get an extension-stripped
// alias, unless they are static assets.
func Build(files []pd.UploadedFile, meta SiteMetadata) (*Manifest, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: manifest needs at least one file", pd.ErrValidation)
	}
	index := meta.IndexFile
	if index == "" {
		index = DefaultIndex
	}

	m := &Manifest{
		Manifest: Type,
		Version:  Version,
		Index:    IndexPath{Path: index},
		Paths:    make(map[string]Resource, len(files)*2),
	}

	for _, f := range files {
		p := NormalizePath(f.Path)
		if p == "" {
			return nil, fmt.Errorf("%w: uploaded file with empty path", pd.ErrValidation)
		}
		if f.ContentID == "" {
			return nil, fmt.Errorf("%w: %s has no content id", pd.ErrValidation, p)
		}
		if existing, ok := m.Paths[p]; ok && existing.ID != f.ContentID {
			return nil, fmt.Errorf("%w: %s listed with two content ids", pd.ErrValidation, p)
		}
		m.Paths[p] = Resource{ID: f.ContentID}
		if p == index {
			m.Fallback = &Resource{ID: f.ContentID}
		}
	}

	// Aliases go in after all raw paths so a real file always wins over a
	// stripped key with the same name.
	for _, f := range files {
		p := NormalizePath(f.Path)
		if !NeedsCleanAlias(p, index) {
			continue
		}
		alias := StripExtension(p)
		if _, taken := m.Paths[alias]; taken {
			continue
		}
		m.Paths[alias] = Resource{ID: f.ContentID}
	}

	return m, nil
}

// NeedsCleanAlias reports whether p gets an extension-stripped alias.
func NeedsCleanAlias(p, index string) bool {
	if index == "" {
		index = DefaultIndex
	}
	return strings.EqualFold(path.Ext(p), ".html") && p != index && !IsStaticAsset(p)
}

// StripExtension removes the final extension from p.
func StripExtension(p string) string {
	return strings.TrimSuffix(p, path.Ext(p))
}

// NormalizePath converts an uploaded path to a manifest key: forward
// slashes, no leading "./" or "/".
func NormalizePath(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	for {
		switch {
		case strings.HasPrefix(p, "./"):
			p = p[2:]
		case strings.HasPrefix(p, "/"):
			p = p[1:]
		default:
			return p
		}
	}
}

// Marshal encodes m in the form it is uploaded.
func (m *Manifest) Marshal() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// Parse decodes a manifest document fetched from a gateway.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: decoding manifest: %v", pd.ErrValidation, err)
	}
	if m.Manifest != Type {
		return nil, fmt.Errorf("%w: not a path manifest (manifest=%q)", pd.ErrValidation, m.Manifest)
	}
	return &m, nil
}

// ContentIDs returns the distinct content ids referenced by m, sorted.
func (m *Manifest) ContentIDs() []string {
	seen := make(map[string]bool, len(m.Paths))
	var ids []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, r := range m.Paths {
		add(r.ID)
	}
	if m.Fallback != nil {
		add(m.Fallback.ID)
	}
	sort.Strings(ids)
	return ids
}
