package storage

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ev-subsidy-scraper/utils"
)

// Metadata tracks national/local table runs and the content hash of each table
type Metadata struct {
	LastUpdated string            `json:"last_updated"`
	TotalRuns   int               `json:"total_runs"`
	MethodUsed  string            `json:"method_used"`
	Hashes      map[string]string `json:"hashes"`
}

// MetadataStore reads and writes {dir}/metadata.json
type MetadataStore struct {
	path   string
	logger *utils.Logger
	now    func() time.Time
}

// NewMetadataStore creates a store in dir
func NewMetadataStore(dir string, logger *utils.Logger) *MetadataStore {
	return &MetadataStore{path: filepath.Join(dir, "metadata.json"), logger: logger, now: time.Now}
}

// Path is the location of metadata.json
func (s *MetadataStore) Path() string {
	return s.path
}

// Load returns the stored metadata, or an empty one when none exists yet
func (s *MetadataStore) Load() (*Metadata, error) {
	meta := &Metadata{Hashes: map[string]string{}}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return meta, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	if err := json.Unmarshal(data, meta); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if meta.Hashes == nil {
		meta.Hashes = map[string]string{}
	}
	return meta, nil
}

// Save stamps the run and writes the metadata
func (s *MetadataStore) Save(meta *Metadata, method string) error {
	meta.TotalRuns++
	meta.MethodUsed = method
	meta.LastUpdated = s.now().Format(time.RFC3339)
	return writeJSON(s.path, meta)
}

// HashRecords returns the md5 of the records' content
func HashRecords(records [][]string) string {
	h := md5.New()
	for _, r := range records {
		h.Write([]byte(strings.Join(r, "\x1f")))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Changed records the hash of records under name and reports whether it differs from the stored one
func (m *Metadata) Changed(name string, records [][]string) bool {
	hash := HashRecords(records)
	if m.Hashes[name] == hash {
		return false
	}
	m.Hashes[name] = hash
	return true
}
