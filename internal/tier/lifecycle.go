package tier

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"sentiscan/internal/config"
	"sentiscan/internal/util"
)

// objectAPI is the slice of the minio client the lifecycle needs; tests
// substitute a fake.
type objectAPI interface {
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	RemoveObject(ctx context.Context, bucket, object string, opts minio.RemoveObjectOptions) error
}

// Lifecycle uploads tier files to S3-compatible object storage and applies
// the retention window. All calls are synchronous and retried; nothing here
// touches the aggregation core.
type Lifecycle struct {
	client        objectAPI
	bucket        string
	retentionDays int
	retryDelay    time.Duration
	log           *slog.Logger
}

// uploadAttempts bounds the retry loop around each storage call.
const uploadAttempts = 3

// NewLifecycle connects to the configured S3-compatible endpoint.
func NewLifecycle(cfg config.ObjectStore, log *slog.Logger) (*Lifecycle, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("object store endpoint and bucket must be configured")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to object store: %w", err)
	}
	return &Lifecycle{
		client:        client,
		bucket:        cfg.Bucket,
		retentionDays: cfg.RetentionDays,
		retryDelay:    time.Second,
		log:           log,
	}, nil
}

// ObjectName returns the remote object key for one local tier file.
// Layout: <tier>/<YYYYMMDD>.parquet
func ObjectName(tierName, day string) string {
	return path.Join(tierName, compactDay(day)+".parquet")
}

// UploadDay pushes one day's tier file with retry.
func (l *Lifecycle) UploadDay(ctx context.Context, localPath, tierName, day string) error {
	object := ObjectName(tierName, day)
	err := util.Retry(ctx, uploadAttempts, l.retryDelay, func() error {
		_, err := l.client.FPutObject(ctx, l.bucket, object, localPath, minio.PutObjectOptions{
			ContentType: "application/octet-stream",
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", object, err)
	}
	l.log.Info("tier file uploaded", "object", object)
	return nil
}

// ListRemoteDays returns the day tokens (YYYYMMDD) found under one tier
// prefix in the bucket.
func (l *Lifecycle) ListRemoteDays(ctx context.Context, tierName string) ([]string, error) {
	var days []string
	for obj := range l.client.ListObjects(ctx, l.bucket, minio.ListObjectsOptions{
		Prefix:    tierName + "/",
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("listing %s: %w", tierName, obj.Err)
		}
		if day, ok := dayFromObject(obj.Key); ok {
			days = append(days, day)
		}
	}
	return days, nil
}

// ApplyRetention removes remote day objects older than the retention
// window. A zero or negative window keeps everything.
func (l *Lifecycle) ApplyRetention(ctx context.Context, tierName string, today time.Time) (int, error) {
	if l.retentionDays <= 0 {
		return 0, nil
	}

	days, err := l.ListRemoteDays(ctx, tierName)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, day := range ExpiredDays(days, today, l.retentionDays) {
		object := ObjectName(tierName, day)
		err := util.Retry(ctx, uploadAttempts, l.retryDelay, func() error {
			return l.client.RemoveObject(ctx, l.bucket, object, minio.RemoveObjectOptions{})
		})
		if err != nil {
			return removed, fmt.Errorf("removing %s: %w", object, err)
		}
		removed++
		l.log.Info("expired tier file removed", "object", object)
	}
	return removed, nil
}

// ExpiredDays returns the day tokens (YYYYMMDD) strictly older than
// today - keepDays. Pure selection logic, separated out for tests.
func ExpiredDays(days []string, today time.Time, keepDays int) []string {
	cutoff := today.UTC().AddDate(0, 0, -keepDays).Format("20060102")
	var expired []string
	for _, day := range days {
		if len(day) == 8 && day < cutoff {
			expired = append(expired, day)
		}
	}
	return expired
}

// dayFromObject extracts the YYYYMMDD token from a remote object key like
// tier1/20240301.parquet.
func dayFromObject(key string) (string, bool) {
	base := path.Base(key)
	day := strings.TrimSuffix(base, ".parquet")
	if len(day) != 8 || day == base {
		return "", false
	}
	for _, c := range day {
		if c < '0' || c > '9' {
			return "", false
		}
	}
	return day, true
}
