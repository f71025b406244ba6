// Package storage uploads user voice samples to S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/cheongeum/cheongeum-server/internal/config"
)

const (
	defaultPrefix      = "uploads/voice"
	defaultFilename    = "audio.mp3"
	defaultContentType = "audio/mpeg"
)

// ErrNotConfigured is returned when no bucket is configured.
var ErrNotConfigured = errors.New("object storage not configured")

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ObjectPutter is the subset of the S3 client used for uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var _ ObjectPutter = (*s3.Client)(nil)

// Upload describes a stored object.
type Upload struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	Bucket      string `json:"bucket"`
	Size        int    `json:"size"`
	ContentType string `json:"mimeType"`
}

// Uploader writes voice samples to a bucket.
type Uploader struct {
	client        ObjectPutter
	bucket        string
	prefix        string
	region        string
	publicBaseURL string
	now           func() time.Time
}

// New builds an Uploader backed by the AWS default credential chain.
// A missing bucket is not an error here; UploadVoice reports ErrNotConfigured.
func New(ctx context.Context, cfg *config.StorageConfig) (*Uploader, error) {
	if cfg.Bucket == "" {
		return NewWithClient(nil, cfg), nil
	}

	opts := []func(*awscfg.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awscfg.WithRegion(cfg.Region))
	}
	awsCfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithClient(client, cfg), nil
}

// NewWithClient builds an Uploader around an existing client.
func NewWithClient(client ObjectPutter, cfg *config.StorageConfig) *Uploader {
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Uploader{
		client:        client,
		bucket:        cfg.Bucket,
		prefix:        prefix,
		region:        cfg.Region,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		now:           time.Now,
	}
}

// UploadVoice stores body under a dated key and returns where it can be fetched.
func (u *Uploader) UploadVoice(ctx context.Context, filename, contentType string, body []byte) (*Upload, error) {
	if u.client == nil || u.bucket == "" {
		return nil, ErrNotConfigured
	}
	if contentType == "" {
		contentType = defaultContentType
	}

	key := u.objectKey(filename)
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}

	return &Upload{
		URL:         u.publicURL(key),
		Key:         key,
		Bucket:      u.bucket,
		Size:        len(body),
		ContentType: contentType,
	}, nil
}

func (u *Uploader) objectKey(filename string) string {
	now := u.now()
	return fmt.Sprintf("%s/%s/%s-%s",
		u.prefix,
		now.Format("2006/01/02"),
		strconv.FormatInt(now.UnixMilli(), 10),
		safeFilename(filename),
	)
}

func (u *Uploader) publicURL(key string) string {
	if u.publicBaseURL != "" {
		return u.publicBaseURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.bucket, u.region, key)
}

func safeFilename(name string) string {
	if name == "" {
		name = defaultFilename
	}
	return unsafeChars.ReplaceAllString(path.Base(strings.ReplaceAll(name, `\`, "/")), "_")
}
