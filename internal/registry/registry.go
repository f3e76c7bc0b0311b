// Package registry maintains archive.json, the per-resource upload index
// read by older publishing tooling.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"permadeploy/internal/pd"
)

// Hash is one upload of a resource.
type Hash struct {
	Hash      string `json:"hash"`
	Timestamp string `json:"timestamp"`
	Link      string `json:"link"`
}

// Entry is one resource in the archive.
type Entry struct {
	UUID   string `json:"uuid"`
	Title  string `json:"title"`
	Hashes []Hash `json:"arweave_hashes"`
}

type archive struct {
	Files []Entry `json:"files"`
}

var (
	trailingBrace   = regexp.MustCompile(`,\s*}`)
	trailingBracket = regexp.MustCompile(`,\s*]`)
)

// Registry is a JSON file registry. Loading is tolerant: a missing,
// unreadable or malformed file is treated as empty.
type Registry struct {
	path       string
	gatewayURL string
	logger     pd.Logger
	mu         sync.Mutex
}

var _ pd.Registry = (*Registry)(nil)

func New(path, gatewayURL string, logger pd.Logger) *Registry {
	return &Registry{
		path:       path,
		gatewayURL: strings.TrimRight(gatewayURL, "/"),
		logger:     pd.OrNop(logger),
	}
}

// Record appends an upload to the entry for resourceID, creating it if
// needed. The title is refreshed on every upload.
func (r *Registry) Record(resourceID, title, transactionID string, at time.Time) error {
	if resourceID == "" || transactionID == "" {
		return fmt.Errorf("%w: registry entries need a resource id and a transaction id", pd.ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.load()
	h := Hash{
		Hash:      transactionID,
		Timestamp: at.UTC().Format(time.RFC3339Nano),
		Link:      r.gatewayURL + "/" + transactionID,
	}

	found := false
	for i := range entries {
		if entries[i].UUID == resourceID {
			entries[i].Hashes = append(entries[i].Hashes, h)
			entries[i].Title = title
			found = true
			break
		}
	}
	if !found {
		entries = append(entries, Entry{UUID: resourceID, Title: title, Hashes: []Hash{h}})
	}
	return r.save(entries)
}

// Status describes how often resourceID has been uploaded.
func (r *Registry) Status(resourceID string) (string, error) {
	if resourceID == "" {
		return "No UUID found", nil
	}

	r.mu.Lock()
	entries := r.load()
	r.mu.Unlock()

	if len(entries) == 0 {
		return "Not uploaded (archive not found or empty)", nil
	}
	for _, e := range entries {
		if e.UUID != resourceID {
			continue
		}
		switch n := len(e.Hashes); n {
		case 0:
			return "Tracked in archive, but no uploads recorded", nil
		case 1:
			return "Uploaded (1 version)", nil
		default:
			return fmt.Sprintf("Uploaded (%d versions)", n), nil
		}
	}
	return "Not uploaded", nil
}

// Entries returns all archive entries.
func (r *Registry) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

func (r *Registry) load() []Entry {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		r.logger.Warn("reading archive failed", "path", r.path, "error", err)
		return nil
	}

	repaired := trailingBrace.ReplaceAll(data, []byte("}"))
	repaired = trailingBracket.ReplaceAll(repaired, []byte("]"))

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(repaired, &raw); err != nil {
		r.logger.Warn("archive is not valid JSON, treating as empty", "path", r.path, "error", err)
		return nil
	}
	files, ok := raw["files"]
	if !ok {
		r.logger.Warn("archive has no files list, treating as empty", "path", r.path)
		return nil
	}
	var entries []Entry
	if err := json.Unmarshal(files, &entries); err != nil {
		r.logger.Warn("archive files is not a list of entries, treating as empty", "path", r.path, "error", err)
		return nil
	}
	return entries
}

// save backs up the current file to <path>.bak, writes the new archive
// atomically and restores the backup if the write fails.
func (r *Registry) save(entries []Entry) error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating archive directory: %w", err)
	}

	backup := r.path + ".bak"
	hasBackup := false
	if err := copyFile(r.path, backup); err == nil {
		hasBackup = true
	} else if !errors.Is(err, os.ErrNotExist) {
		r.logger.Warn("archive backup failed", "path", backup, "error", err)
	}

	data, err := json.MarshalIndent(archive{Files: entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding archive: %w", err)
	}

	if err := writeFileAtomic(r.path, data); err != nil {
		if hasBackup {
			if rerr := copyFile(backup, r.path); rerr != nil {
				r.logger.Error("restoring archive from backup failed", "path", r.path, "error", rerr)
			}
		}
		return fmt.Errorf("writing archive: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".archive-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}
	success = true
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
