package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/wolfman30/appointment-intake/pkg/logging"
)

// ErrNotFound is returned by Fetch for a missing key.
var ErrNotFound = errors.New("archive: object not found")

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store archives uploaded appointment images to S3.
type Store struct {
	bucket   string
	s3Client S3API
	logger   *logging.Logger
}

// NewStore creates an archive Store. If bucket is empty, all operations are no-ops.
func NewStore(s3Client S3API, bucket string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{bucket: bucket, s3Client: s3Client, logger: logger}
}

// Enabled returns true if archival is configured (bucket is set).
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// UploadKey is the object key for an upload received at ts.
func UploadKey(intakeID, mimeType string, ts time.Time) string {
	ts = ts.UTC()
	return fmt.Sprintf("intakes/v1/by-date/%d/%02d/%02d/%s%s",
		ts.Year(), ts.Month(), ts.Day(), intakeID, ExtensionFor(mimeType))
}

// ArchiveUpload writes the image and appends a manifest line. It returns the
// object key, or "" when archival is disabled.
func (s *Store) ArchiveUpload(ctx context.Context, upload Upload, status string, confidence float64) (string, error) {
	if !s.Enabled() {
		return "", nil
	}

	now := upload.ReceivedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	key := UploadKey(upload.IntakeID, upload.MIMEType, now)

	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(upload.Image),
		ContentType: aws.String(upload.MIMEType),
		Metadata:    map[string]string{"intake-id": upload.IntakeID},
	})
	if err != nil {
		return "", fmt.Errorf("archive: s3 put %s: %w", key, err)
	}

	s.logger.Info("archived upload to S3",
		"intake_id", upload.IntakeID,
		"s3_key", key,
		"size_bytes", len(upload.Image),
	)

	entry := ManifestEntry{
		IntakeID:   upload.IntakeID,
		S3Key:      key,
		MIMEType:   upload.MIMEType,
		SizeBytes:  len(upload.Image),
		SHA256:     Fingerprint(upload.Image),
		Status:     status,
		Confidence: confidence,
		ArchivedAt: now.UTC().Format(time.RFC3339),
	}
	if err := s.AppendManifest(ctx, entry); err != nil {
		// The image itself is archived.
		s.logger.Warn("failed to append manifest", "error", err, "intake_id", upload.IntakeID)
	}
	return key, nil
}

// Fetch reads an archived object.
func (s *Store) Fetch(ctx context.Context, key string) ([]byte, string, error) {
	if !s.Enabled() {
		return nil, "", ErrNotFound
	}
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("archive: s3 get %s: %w", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("archive: read %s: %w", key, err)
	}
	return data, aws.ToString(resp.ContentType), nil
}

// AppendManifest appends a JSONL line to the monthly manifest file.
// Uses read-modify-write since S3 doesn't support append.
func (s *Store) AppendManifest(ctx context.Context, entry ManifestEntry) error {
	if !s.Enabled() {
		return nil
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("archive: marshal manifest entry: %w", err)
	}

	now := time.Now().UTC()
	manifestKey := fmt.Sprintf("intakes/v1/manifests/%d-%02d.jsonl", now.Year(), now.Month())

	var existing []byte
	getResp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(manifestKey),
	})
	switch {
	case err == nil:
		existing, _ = io.ReadAll(getResp.Body)
		getResp.Body.Close()
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
	buf.Write(line)
	buf.WriteByte('\n')

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

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *s3types.NotFound
	return errors.As(err, &nf)
}
