package dataset

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/clinic-bi/pkg/logging"
)

// Source loads a complete dataset.
type Source interface {
	Name() string
	Load(ctx context.Context) (*Dataset, error)
}

// FileSource reads the dataset from a JSON file on disk.
type FileSource struct {
	path   string
	logger *logging.Logger
}

func NewFileSource(path string, logger *logging.Logger) *FileSource {
	if logger == nil {
		logger = logging.Default()
	}
	return &FileSource{path: path, logger: logger}
}

func (s *FileSource) Name() string { return "file" }

func (s *FileSource) Load(ctx context.Context) (*Dataset, error) {
	if strings.TrimSpace(s.path) == "" {
		return nil, fmt.Errorf("dataset: file path required")
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", s.path, err)
	}
	defer f.Close()

	d, stats, err := Decode(f)
	if err != nil {
		return nil, err
	}
	logDecodeStats(s.logger, stats, "path", s.path)
	return d, nil
}

// S3API is the subset of the S3 client used by S3Source.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads the dataset document from an S3 object.
type S3Source struct {
	client S3API
	bucket string
	key    string
	logger *logging.Logger
	tracer trace.Tracer
}

func NewS3Source(client S3API, bucket, key string, logger *logging.Logger) *S3Source {
	if logger == nil {
		logger = logging.Default()
	}
	return &S3Source{
		client: client,
		bucket: bucket,
		key:    key,
		logger: logger,
		tracer: otel.Tracer("clinicbi.internal.dataset.s3"),
	}
}

func (s *S3Source) Name() string { return "s3" }

func (s *S3Source) Load(ctx context.Context) (*Dataset, error) {
	ctx, span := s.tracer.Start(ctx, "dataset.s3.load", trace.WithAttributes(
		attribute.String("s3.bucket", s.bucket),
		attribute.String("s3.key", s.key),
	))
	defer span.End()

	if s.client == nil || s.bucket == "" || s.key == "" {
		err := fmt.Errorf("dataset: s3 source requires client, bucket and key")
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get object")
		return nil, fmt.Errorf("dataset: s3 get s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer out.Body.Close()

	d, stats, err := Decode(out.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode")
		return nil, err
	}
	logDecodeStats(s.logger, stats, "bucket", s.bucket, "key", s.key)
	return d, nil
}

// StaticSource serves an in-memory dataset. Used by the snapshot CLI when the
// document arrives on stdin, and by tests.
type StaticSource struct {
	data *Dataset
}

func NewStaticSource(d *Dataset) *StaticSource {
	return &StaticSource{data: d}
}

func (s *StaticSource) Name() string { return "static" }

func (s *StaticSource) Load(context.Context) (*Dataset, error) {
	if s.data == nil {
		return nil, fmt.Errorf("dataset: static source is empty")
	}
	return s.data, nil
}

func logDecodeStats(logger *logging.Logger, stats DecodeStats, args ...any) {
	if len(stats.InvalidCollections) > 0 {
		logger.Warn("dataset collections ignored (not arrays)", append(args, "collections", stats.InvalidCollections)...)
	}
	for name, n := range stats.SkippedRecords {
		logger.Warn("dataset records skipped (not objects)", append(args, "collection", name, "count", n)...)
	}
}
