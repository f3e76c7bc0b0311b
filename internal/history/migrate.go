package history

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"permadeploy/internal/pd"
)

// MigrationReport describes what Migrate changed.
type MigrationReport struct {
	FromVersion int
	// Defaulted lists container fields that were missing.
	Defaulted []string
	// Dropped counts records discarded for lacking an id or a timestamp.
	Dropped int
	// Repaired counts records whose fields were converted or inferred.
	Repaired int
}

// Changed reports whether the migrated document differs from the input.
func (r MigrationReport) Changed() bool {
	return r.FromVersion != CurrentVersion || len(r.Defaulted) > 0 || r.Dropped > 0 || r.Repaired > 0
}

type rawDocument struct {
	Version     *int              `json:"version"`
	Deployments []json.RawMessage `json:"deployments"`
	LastUpdated json.RawMessage   `json:"lastUpdated"`
}

// Migrate decodes a history document of any known shape into the current
// schema. Version 0 is a bare array of records; version 1 stored the
// manifest id as manifestHash and the cost as a plain string. Individual
// malformed records are dropped instead of failing the whole load.
func Migrate(data []byte) (*Document, MigrationReport, error) {
	var report MigrationReport
	var raw rawDocument

	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0:
		report.Defaulted = []string{"version", "deployments", "lastUpdated"}
	case trimmed[0] == '[':
		if err := json.Unmarshal(trimmed, &raw.Deployments); err != nil {
			return nil, report, fmt.Errorf("%w: decoding history: %v", pd.ErrValidation, err)
		}
		v := 0
		raw.Version = &v
		report.Defaulted = []string{"lastUpdated"}
	default:
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, report, fmt.Errorf("%w: decoding history: %v", pd.ErrValidation, err)
		}
		if raw.Version == nil {
			report.Defaulted = append(report.Defaulted, "version")
		}
		if raw.Deployments == nil {
			report.Defaulted = append(report.Defaulted, "deployments")
		}
	}

	doc := &Document{Version: CurrentVersion, Deployments: []*pd.DeploymentRecord{}}
	report.FromVersion = 1
	if raw.Version != nil {
		report.FromVersion = *raw.Version
	}
	if t, ok := parseTimestamp(raw.LastUpdated); ok {
		doc.LastUpdated = t
	} else if len(trimmed) > 0 && trimmed[0] == '{' {
		report.Defaulted = append(report.Defaulted, "lastUpdated")
	}

	for _, msg := range raw.Deployments {
		rec, repaired, ok := migrateRecord(msg)
		if !ok {
			report.Dropped++
			continue
		}
		if repaired {
			report.Repaired++
		}
		doc.Deployments = append(doc.Deployments, rec)
	}
	return doc, report, nil
}

type legacyRecord struct {
	ID                string            `json:"id"`
	Timestamp         json.RawMessage   `json:"timestamp"`
	SiteID            string            `json:"siteId"`
	ManifestContentID string            `json:"manifestContentId"`
	ManifestHash      string            `json:"manifestHash"`
	URL               string            `json:"url"`
	ManifestURL       string            `json:"manifestUrl"`
	Cost              json.RawMessage   `json:"cost"`
	FileCount         int               `json:"fileCount"`
	TotalSize         int64             `json:"totalSize"`
	Strategy          string            `json:"strategy"`
	Status            string            `json:"status"`
	Error             string            `json:"error"`
	UploadedFiles     []pd.UploadedFile `json:"uploadedFiles"`
	Metadata          map[string]any    `json:"metadata"`
}

func migrateRecord(msg json.RawMessage) (*pd.DeploymentRecord, bool, bool) {
	var old legacyRecord
	if err := json.Unmarshal(msg, &old); err != nil || old.ID == "" {
		return nil, false, false
	}
	ts, ok := parseTimestamp(old.Timestamp)
	if !ok {
		return nil, false, false
	}

	repaired := false
	rec := &pd.DeploymentRecord{
		ID:                old.ID,
		Timestamp:         ts,
		SiteID:            old.SiteID,
		ManifestContentID: old.ManifestContentID,
		URL:               old.URL,
		ManifestURL:       old.ManifestURL,
		FileCount:         old.FileCount,
		TotalSize:         old.TotalSize,
		Strategy:          old.Strategy,
		Status:            pd.DeploymentStatus(old.Status),
		Error:             old.Error,
		UploadedFiles:     old.UploadedFiles,
	}

	if rec.ManifestContentID == "" && old.ManifestHash != "" {
		rec.ManifestContentID = old.ManifestHash
		repaired = true
	}

	c, costRepaired := parseCost(old.Cost)
	rec.Cost = c
	repaired = repaired || costRepaired

	if rec.Status != pd.StatusSuccess && rec.Status != pd.StatusFailed {
		rec.Status = pd.StatusSuccess
		if rec.Error != "" {
			rec.Status = pd.StatusFailed
		}
		repaired = true
	}
	if rec.Strategy == "" {
		rec.Strategy = pd.StrategyBundler
		repaired = true
	}

	if len(old.Metadata) > 0 {
		rec.Metadata = make(map[string]string, len(old.Metadata))
		for k, v := range old.Metadata {
			if s, ok := v.(string); ok {
				rec.Metadata[k] = s
				continue
			}
			b, _ := json.Marshal(v)
			rec.Metadata[k] = string(b)
			repaired = true
		}
	}
	return rec, repaired, true
}

// parseTimestamp accepts RFC 3339 strings and Unix milliseconds.
func parseTimestamp(raw json.RawMessage) (time.Time, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		t, err := time.Parse(time.RFC3339Nano, s)
		return t, err == nil
	}
	var ms int64
	if err := json.Unmarshal(raw, &ms); err == nil && ms > 0 {
		return time.UnixMilli(ms).UTC(), true
	}
	return time.Time{}, false
}

// parseCost accepts the current object form, a bare decimal string, or a number.
func parseCost(raw json.RawMessage) (pd.Cost, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return pd.Cost{Native: "0"}, true
	}
	var c pd.Cost
	if err := json.Unmarshal(raw, &c); err == nil {
		if c.Native == "" {
			c.Native = "0"
			return c, true
		}
		return c, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return pd.Cost{Native: s}, true
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return pd.Cost{Native: strconv.FormatFloat(f, 'f', -1, 64)}, true
	}
	return pd.Cost{Native: "0"}, true
}
