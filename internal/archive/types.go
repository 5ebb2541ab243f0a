package archive

import (
	"encoding/json"
	"time"
)

// Document is one exported view.
type Document struct {
	Name string          `json:"name"`
	Body json.RawMessage `json:"data"`
}

// Export is a full set of views computed from a single dataset version.
type Export struct {
	RunID      string     `json:"run_id"`
	Version    string     `json:"dataset_version"`
	Source     string     `json:"source"`
	ExportedAt time.Time  `json:"exported_at"`
	Documents  []Document `json:"documents"`
}

// ManifestEntry is one JSONL line of the monthly manifest.
type ManifestEntry struct {
	RunID      string `json:"run_id"`
	Version    string `json:"dataset_version"`
	Source     string `json:"source"`
	Name       string `json:"name"`
	S3Key      string `json:"s3_key"`
	Bytes      int    `json:"bytes"`
	ExportedAt string `json:"exported_at"`
}
