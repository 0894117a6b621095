// Package media pushes user images (avatars, cover images) to S3-compatible
// object storage and returns their public URLs.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/vidhub/internal/filex"
	"github.com/dmitrijs2005/vidhub/internal/logging"
	"github.com/google/uuid"
)

// ErrNoFile is returned when Upload is called without a local path.
var ErrNoFile = errors.New("no file to upload")

// Asset describes an uploaded object.
type Asset struct {
	URL string
	Key string
}

// Uploader stores a local file remotely. The local file is removed after
// every attempt, successful or not.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (*Asset, error)
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures NewS3Uploader.
type S3Options struct {
	Region       string
	AccessKey    string
	SecretKey    string
	Bucket       string
	BaseEndpoint string
	// PublicURL prefixes object URLs handed to clients; BaseEndpoint when empty.
	PublicURL string
}

type S3Uploader struct {
	client    objectPutter
	bucket    string
	publicURL string
	now       func() time.Time
	log       logging.Logger
}

var loadDefaultAWSConfig = config.LoadDefaultConfig

// NewS3Uploader builds an S3 client with static credentials. A non-empty
// BaseEndpoint switches to path-style addressing, as MinIO expects.
func NewS3Uploader(ctx context.Context, opts S3Options, log logging.Logger) (*S3Uploader, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey,
			opts.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	publicURL := opts.PublicURL
	if publicURL == "" {
		publicURL = opts.BaseEndpoint
	}
	return newS3Uploader(client, opts.Bucket, publicURL, log), nil
}

func newS3Uploader(client objectPutter, bucket, publicURL string, log logging.Logger) *S3Uploader {
	if log == nil {
		log = logging.Nop{}
	}
	return &S3Uploader{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		now:       time.Now,
		log:       log,
	}
}

// StorageKey returns a fresh object key of the form avatars/YYYY/M/D/<uuid><ext>.
func StorageKey(t time.Time, ext string) string {
	return fmt.Sprintf("avatars/%d/%d/%d/%s%s", t.Year(), int(t.Month()), t.Day(), uuid.New(), strings.ToLower(ext))
}

func (u *S3Uploader) Upload(ctx context.Context, localPath string) (*Asset, error) {
	if localPath == "" {
		return nil, ErrNoFile
	}
	defer func() {
		if err := filex.RemoveQuietly(localPath); err != nil {
			u.log.Warn(ctx, "temp file cleanup failed", "path", localPath, "error", err)
		}
	}()

	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat upload: %w", err)
	}

	contentType, err := sniffContentType(f)
	if err != nil {
		return nil, err
	}

	key := StorageKey(u.now(), filepath.Ext(localPath))
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}

	u.log.Debug(ctx, "uploaded media", "key", key, "size", info.Size(), "contentType", contentType)
	return &Asset{URL: fmt.Sprintf("%s/%s/%s", u.publicURL, u.bucket, key), Key: key}, nil
}

func sniffContentType(f io.ReadSeeker) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}
	return http.DetectContentType(head[:n]), nil
}
