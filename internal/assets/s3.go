package assets

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config locates the bucket receiving assets
type S3Config struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	BaseURL   string // public URL of the bucket; defaults to the endpoint
}

// Uploader is the part of the minio client used by S3Placer.
// Used for mocking in tests.
type Uploader interface {
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// S3Placer uploads assets to an S3 compatible bucket
type S3Placer struct {
	api     Uploader
	bucket  string
	prefix  string
	baseURL string
}

// Check that minio.Client satisfies Uploader
var _ Uploader = (*minio.Client)(nil)

// NewS3Placer creates a placer backed by a minio client
func NewS3Placer(cfg S3Config) (*S3Placer, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 endpoint and bucket are required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}

	base := cfg.BaseURL
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}
	return newS3Placer(client, cfg.Bucket, cfg.Prefix, base), nil
}

func newS3Placer(api Uploader, bucket, prefix, baseURL string) *S3Placer {
	return &S3Placer{
		api:     api,
		bucket:  bucket,
		prefix:  strings.Trim(prefix, "/"),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Key returns the object key for a site relative asset name
func (p *S3Placer) Key(rel string) string {
	rel = strings.TrimLeft(path.Clean(rel), "/")
	if p.prefix == "" {
		return rel
	}
	return p.prefix + "/" + rel
}

// Place uploads src and returns its public URL. dest is unused.
func (p *S3Placer) Place(ctx context.Context, src, _ string, rel string) (string, error) {
	key := p.Key(rel)
	opts := minio.PutObjectOptions{ContentType: mime.TypeByExtension(path.Ext(rel))}
	if opts.ContentType == "" {
		opts.ContentType = "application/octet-stream"
	}

	if _, err := p.api.FPutObject(ctx, p.bucket, key, src, opts); err != nil {
		return "", fmt.Errorf("upload %s to %s: %w", src, key, err)
	}
	return p.URL(rel), nil
}

// URL returns the public URL of an uploaded asset
func (p *S3Placer) URL(rel string) string { return p.baseURL + "/" + p.Key(rel) }

// Describe names the bucket
func (p *S3Placer) Describe() string { return "s3 " + p.bucket + "/" + p.prefix }
