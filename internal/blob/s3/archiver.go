package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/mkruijs/positionbot/internal/domain"
)

// Archiver stores dated copies of snapshot documents before they are
// overwritten, so a bad bootstrap or apply run can always be rolled back by
// hand. Keys look like "archive/2026-08-25/positions.json".
type Archiver struct {
	uploader *manager.Uploader
	bucket   string
	logger   *slog.Logger
	now      func() time.Time
}

// NewArchiver creates an Archiver over the given client.
func NewArchiver(c *Client, logger *slog.Logger) *Archiver {
	return &Archiver{
		uploader: manager.NewUploader(c.S3()),
		bucket:   c.Bucket(),
		logger:   logger.With(slog.String("component", "archiver")),
		now:      time.Now,
	}
}

// ArchiveSnapshot uploads doc as JSON under today's archive prefix.
func (a *Archiver) ArchiveSnapshot(ctx context.Context, name string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("s3blob: marshal archive %s: %w", name, err)
	}

	key := fmt.Sprintf("archive/%s/%s.json", a.now().UTC().Format("2006-01-02"), name)
	_, err = a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: archive %s: %w", key, err)
	}

	a.logger.InfoContext(ctx, "snapshot archived",
		slog.String("key", key), slog.Int("bytes", len(data)))
	return nil
}

// Compile-time interface check.
var _ domain.SnapshotArchiver = (*Archiver)(nil)
