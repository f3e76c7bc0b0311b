// Package history keeps the deployment audit log: one versioned JSON
// document holding every publish attempt, newest first.
package history

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"permadeploy/internal/cost"
	"permadeploy/internal/pd"
)

const (
	// CurrentVersion is the schema version written by this package.
	CurrentVersion = 2

	DefaultMaxRecords = 100
)

// Document is the on-disk shape of the history file and of exports.
type Document struct {
	Version     int                    `json:"version"`
	Deployments []*pd.DeploymentRecord `json:"deployments"`
	LastUpdated time.Time              `json:"lastUpdated"`
}

// Store is a bounded, newest-first log of deployments. Every write re-sorts
// and truncates to the retention cap before replacing the file atomically.
type Store struct {
	path       string
	exportDir  string
	maxRecords int
	clock      pd.Clock
	ids        pd.IDGenerator
	logger     pd.Logger
	vault      pd.Vault

	mu sync.Mutex
}

var _ pd.DeploymentHistory = (*Store)(nil)

func NewStore(path, exportDir string, maxRecords int, clock pd.Clock, ids pd.IDGenerator, logger pd.Logger) *Store {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	if exportDir == "" {
		exportDir = filepath.Join(filepath.Dir(path), "exports")
	}
	return &Store{
		path:       path,
		exportDir:  exportDir,
		maxRecords: maxRecords,
		clock:      clock,
		ids:        ids,
		logger:     pd.OrNop(logger),
	}
}

// WithVault mirrors every export to v. Mirroring failures are logged only.
func (s *Store) WithVault(v pd.Vault) *Store {
	s.vault = v
	return s
}

// AddDeployment records one publish attempt. The record is returned even
// when persisting it fails.
func (s *Store) AddDeployment(outcome pd.DeploymentOutcome, siteID, strategy string) (*pd.DeploymentRecord, error) {
	rec := s.newRecord(outcome, siteID, strategy)

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return rec, err
	}
	doc.Deployments = append(doc.Deployments, rec)
	if err := s.save(doc); err != nil {
		return rec, err
	}
	s.logger.Debug("deployment recorded", "id", rec.ID, "site", siteID, "status", rec.Status)
	return rec, nil
}

func (s *Store) newRecord(outcome pd.DeploymentOutcome, siteID, strategy string) *pd.DeploymentRecord {
	rec := &pd.DeploymentRecord{
		ID:        s.ids.New(),
		Timestamp: s.clock.Now(),
		SiteID:    siteID,
		Cost:      outcome.Cost,
		FileCount: outcome.FileCount,
		TotalSize: outcome.TotalSize,
		Strategy:  strategy,
		Status:    pd.StatusSuccess,
		Metadata:  outcome.Metadata,
	}
	if rec.Cost.Native == "" {
		rec.Cost.Native = "0"
	}
	if r := outcome.Result; r != nil {
		rec.ManifestContentID = r.ManifestID
		rec.URL = r.URL
		rec.ManifestURL = r.ManifestURL
		rec.UploadedFiles = r.UploadedFiles
		if len(r.UploadedFiles) > 0 && rec.FileCount == 0 {
			rec.FileCount = len(r.UploadedFiles)
		}
	}
	if outcome.Err != nil {
		rec.Status = pd.StatusFailed
		rec.Error = outcome.Err.Error()
	}
	return rec
}

// GetByID returns the record with id or ErrRecordNotFound.
func (s *Store) GetByID(id string) (*pd.DeploymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, r := range doc.Deployments {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", pd.ErrRecordNotFound, id)
}

// GetRecent returns up to limit records, newest first. limit <= 0 returns all.
func (s *Store) GetRecent(limit int) ([]*pd.DeploymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	recs := doc.Deployments
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// Delete removes a record.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	kept := doc.Deployments[:0]
	found := false
	for _, r := range doc.Deployments {
		if r.ID == id {
			found = true
			continue
		}
		kept = append(kept, r)
	}
	if !found {
		return fmt.Errorf("%w: %s", pd.ErrRecordNotFound, id)
	}
	doc.Deployments = kept
	return s.save(doc)
}

// ExportAll writes a timestamped copy of the history to the export
// directory and returns its path. A configured vault receives a copy too.
func (s *Store) ExportAll(ctx context.Context) (string, error) {
	s.mu.Lock()
	doc, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding export: %w", err)
	}

	name := fmt.Sprintf("deployments-%s.json", s.clock.Now().UTC().Format("20060102T150405Z"))
	path := filepath.Join(s.exportDir, name)
	if err := writeFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("writing export: %w", err)
	}
	s.logger.Info("history exported", "path", path, "records", len(doc.Deployments))

	if s.vault != nil {
		if err := s.vault.PutExport(ctx, name, bytes.NewReader(data), int64(len(data))); err != nil {
			s.logger.Warn("mirroring export to vault failed", "name", name, "error", err)
		}
	}
	return path, nil
}

// GetStats aggregates the retained history. Cost, files and bytes count
// successful deployments only.
func (s *Store) GetStats() (*pd.DeploymentStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	stats := &pd.DeploymentStats{Total: len(doc.Deployments), TotalCost: "0"}
	var costs []string
	for _, r := range doc.Deployments {
		if r.Status == pd.StatusFailed {
			stats.Failed++
			continue
		}
		stats.Successful++
		stats.TotalFiles += r.FileCount
		stats.TotalSize += r.TotalSize
		costs = append(costs, r.Cost.Native)
	}
	total, skipped := cost.SumAR(costs)
	if skipped > 0 {
		s.logger.Warn("ignored unparseable costs in stats", "count", skipped)
	}
	stats.TotalCost = total
	if len(doc.Deployments) > 0 {
		stats.Latest = doc.Deployments[0]
	}
	return stats, nil
}

// load reads and migrates the history file. A missing file is an empty
// history; the file is created on the first write.
func (s *Store) load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &Document{Version: CurrentVersion, Deployments: []*pd.DeploymentRecord{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	doc, report, err := Migrate(data)
	if err != nil {
		return nil, fmt.Errorf("loading history %s: %w", s.path, err)
	}
	if report.Changed() {
		s.logger.Info("history migrated", "from", report.FromVersion, "dropped", report.Dropped, "repaired", report.Repaired)
		if err := s.save(doc); err != nil {
			s.logger.Warn("saving migrated history failed", "error", err)
		}
	}
	return doc, nil
}

func (s *Store) save(doc *Document) error {
	sort.SliceStable(doc.Deployments, func(i, j int) bool {
		return doc.Deployments[i].Timestamp.After(doc.Deployments[j].Timestamp)
	})
	if len(doc.Deployments) > s.maxRecords {
		s.logger.Debug("pruning history", "dropped", len(doc.Deployments)-s.maxRecords)
		doc.Deployments = doc.Deployments[:s.maxRecords]
	}
	doc.Version = CurrentVersion
	doc.LastUpdated = s.clock.Now()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	return nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".history-*")
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
