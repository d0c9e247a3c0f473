package archive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/bstolzenburg/Ag-Methane-Programs/internal/config"
	apperrors "github.com/bstolzenburg/Ag-Methane-Programs/internal/errors"
)

// Uploader puts a local file into object storage
type Uploader interface {
	Upload(ctx context.Context, bucket, key, path string) (string, error)
}

// S3Uploader uploads archives with the s3manager multipart uploader
type S3Uploader struct {
	uploader *s3manager.Uploader
	logger   *slog.Logger
}

// NewS3Uploader creates an uploader from the archive config. Credentials come
// from the usual AWS environment variables, shared config or instance role.
func NewS3Uploader(cfg config.ArchiveConfig, logger *slog.Logger) (*S3Uploader, error) {
	if logger == nil {
		logger = slog.Default()
	}

	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, apperrors.NewConfigError("failed to create AWS session", err)
	}
	return &S3Uploader{uploader: s3manager.NewUploader(sess), logger: logger}, nil
}

// Upload sends the file at path to bucket/key and returns its location
func (u *S3Uploader) Upload(ctx context.Context, bucket, key, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", apperrors.NewStorageError("failed to open archive for upload", err).WithContext("path", path)
	}
	defer file.Close()

	result, err := u.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   file,
	})
	if err != nil {
		return "", apperrors.NewUploadError(fmt.Sprintf("failed to upload s3://%s/%s", bucket, key), err)
	}

	u.logger.Info("Archive uploaded",
		slog.String("bucket", bucket),
		slog.String("key", key),
		slog.String("location", result.Location))
	return result.Location, nil
}

// ObjectKey returns <prefix>/<project>/<year>/<file>
func ObjectKey(prefix, project, year, file string) string {
	return path.Join(prefix, project, year, file)
}
