// Package archive exports computed dashboard views as JSON snapshots.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/wolfman30/clinic-bi/pkg/logging"
)

const keyPrefix = "snapshots/v1"

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store writes exports to S3. If bucket is empty, Enabled reports false and
// callers print to stdout instead.
type Store struct {
	bucket   string
	s3Client S3API
	logger   *logging.Logger
	now      func() time.Time
}

func NewStore(s3Client S3API, bucket string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{bucket: bucket, s3Client: s3Client, logger: logger, now: time.Now}
}

// Enabled returns true if a bucket and client are configured.
func (s *Store) Enabled() bool {
	return s != nil && strings.TrimSpace(s.bucket) != "" && s.s3Client != nil
}

// ObjectKey returns the S3 key of one exported view.
func ObjectKey(exportedAt time.Time, version, name string) string {
	return fmt.Sprintf("%s/%s/%s/%s.json", keyPrefix, exportedAt.UTC().Format("2006-01-02"), version, name)
}

// ManifestKey returns the monthly manifest key.
func ManifestKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s/manifests/%d-%02d.jsonl", keyPrefix, t.Year(), t.Month())
}

// Write uploads every document of exp and records them in the manifest.
// A manifest failure is logged; the documents are already stored.
func (s *Store) Write(ctx context.Context, exp Export) ([]ManifestEntry, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("archive: store not configured")
	}
	if exp.ExportedAt.IsZero() {
		exp.ExportedAt = s.now().UTC()
	}

	entries := make([]ManifestEntry, 0, len(exp.Documents))
	for _, doc := range exp.Documents {
		key := ObjectKey(exp.ExportedAt, exp.Version, doc.Name)
		_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(doc.Body),
			ContentType: aws.String("application/json"),
		})
		if err != nil {
			return entries, fmt.Errorf("archive: s3 put %s: %w", key, err)
		}
		entries = append(entries, ManifestEntry{
			RunID:      exp.RunID,
			Version:    exp.Version,
			Source:     exp.Source,
			Name:       doc.Name,
			S3Key:      key,
			Bytes:      len(doc.Body),
			ExportedAt: exp.ExportedAt.Format(time.RFC3339),
		})
	}

	s.logger.Info("snapshot exported",
		"run_id", exp.RunID,
		"dataset_version", exp.Version,
		"documents", len(entries),
		"bucket", s.bucket,
	)

	if err := s.AppendManifest(ctx, exp.ExportedAt, entries...); err != nil {
		s.logger.Warn("failed to append manifest", "error", err, "run_id", exp.RunID)
	}
	return entries, nil
}

// AppendManifest appends JSONL lines to the monthly manifest.
// Uses read-modify-write since S3 doesn't support append.
func (s *Store) AppendManifest(ctx context.Context, at time.Time, entries ...ManifestEntry) error {
	if !s.Enabled() || len(entries) == 0 {
		return nil
	}

	manifestKey := ManifestKey(at)

	var existing []byte
	getResp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(manifestKey),
	})
	switch {
	case err == nil:
		existing, err = io.ReadAll(getResp.Body)
		getResp.Body.Close()
		if err != nil {
			return fmt.Errorf("archive: read manifest: %w", err)
		}
	case isNotFound(err):
		s.logger.Debug("manifest not found, creating new", "key", manifestKey)
	default:
		return fmt.Errorf("archive: s3 get manifest: %w", err)
	}

	var buf bytes.Buffer
	if len(existing) > 0 {
		buf.Write(existing)
		if existing[len(existing)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	for _, entry := range entries {
		line, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("archive: marshal manifest entry: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(manifestKey),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put manifest: %w", err)
	}
	return nil
}

// WriteJSONL prints one line per document, for runs without a bucket.
func WriteJSONL(w io.Writer, exp Export) error {
	enc := json.NewEncoder(w)
	for _, doc := range exp.Documents {
		line := struct {
			RunID   string          `json:"run_id"`
			Version string          `json:"dataset_version"`
			Name    string          `json:"name"`
			Data    json.RawMessage `json:"data"`
		}{exp.RunID, exp.Version, doc.Name, doc.Body}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("archive: write %s: %w", doc.Name, err)
		}
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *s3types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	return strings.Contains(err.Error(), "NoSuchKey")
}
