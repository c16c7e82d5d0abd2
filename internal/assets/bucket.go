// Package assets stores uploaded images and documents in an S3-compatible
// bucket.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var (
	ErrInvalidUpload  = errors.New("assets: invalid upload")
	ErrObjectNotFound = errors.New("assets: object not found")
)

type UploadError struct {
	Reason string
}

func (e *UploadError) Error() string { return "invalid upload: " + e.Reason }

func (e *UploadError) Is(target error) bool { return target == ErrInvalidUpload }

var allowedContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"image/gif":       true,
	"image/svg+xml":   true,
	"application/pdf": true,
}

type Config struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	UseSSL        bool
	PublicBaseURL string
	MaxBytes      int64
}

// objectClient is the part of *minio.Client the bucket uses.
type objectClient interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
}

type Upload struct {
	Prefix      string
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
	Metadata    map[string]string
}

type Object struct {
	Key          string            `json:"key"`
	URL          string            `json:"url"`
	Size         int64             `json:"size"`
	ContentType  string            `json:"contentType,omitempty"`
	OriginalName string            `json:"originalName,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"lastModified"`
}

type Bucket struct {
	client   objectClient
	cfg      Config
	now      func() time.Time
	baseURL  string
	maxBytes int64
}

func New(cfg Config) (*Bucket, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}
	return newBucket(client, cfg), nil
}

func newBucket(client objectClient, cfg Config) *Bucket {
	base := strings.TrimRight(cfg.PublicBaseURL, "/")
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + cfg.Endpoint + "/" + cfg.Bucket
	}
	return &Bucket{
		client:   client,
		cfg:      cfg,
		now:      time.Now,
		baseURL:  base,
		maxBytes: cfg.MaxBytes,
	}
}

// Put validates and stores one file under a freshly generated key.
func (b *Bucket) Put(ctx context.Context, upload Upload) (Object, error) {
	contentType := resolveContentType(upload.ContentType, upload.FileName)
	if !allowedContentTypes[contentType] {
		return Object{}, &UploadError{Reason: fmt.Sprintf("content type %q is not allowed", contentType)}
	}
	if upload.Size <= 0 {
		return Object{}, &UploadError{Reason: "file is empty"}
	}
	if b.maxBytes > 0 && upload.Size > b.maxBytes {
		return Object{}, &UploadError{Reason: fmt.Sprintf("file exceeds %d bytes", b.maxBytes)}
	}

	meta := make(map[string]string, len(upload.Metadata)+1)
	for key, value := range upload.Metadata {
		meta[key] = value
	}
	meta[originalNameKey] = path.Base(strings.ReplaceAll(upload.FileName, "\\", "/"))

	key := NewKey(upload.Prefix, upload.FileName, b.now())
	info, err := b.client.PutObject(ctx, b.cfg.Bucket, key, upload.Body, upload.Size, minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: EncodeMetadata(meta),
	})
	if err != nil {
		return Object{}, fmt.Errorf("put object %s: %w", key, err)
	}

	return Object{
		Key:          key,
		URL:          b.PublicURL(key),
		Size:         info.Size,
		ContentType:  contentType,
		OriginalName: meta[originalNameKey],
		Metadata:     DecodeMetadata(EncodeMetadata(meta)),
		LastModified: b.now().UTC(),
	}, nil
}

// Stat reads an object's size, type and decoded metadata without fetching
// its body.
func (b *Bucket) Stat(ctx context.Context, key string) (Object, error) {
	info, err := b.client.StatObject(ctx, b.cfg.Bucket, key, minio.StatObjectOptions{})
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return Object{}, ErrObjectNotFound
	}
	if err != nil {
		return Object{}, fmt.Errorf("stat object %s: %w", key, err)
	}
	return b.object(info), nil
}

func (b *Bucket) Delete(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return &UploadError{Reason: "key is required"}
	}
	if err := b.client.RemoveObject(ctx, b.cfg.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

// List returns every object under prefix.
func (b *Bucket) List(ctx context.Context, prefix string) ([]Object, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := make([]Object, 0)
	for info := range b.client.ListObjects(ctx, b.cfg.Bucket, minio.ListObjectsOptions{
		Prefix:       strings.TrimLeft(prefix, "/"),
		Recursive:    true,
		WithMetadata: true,
	}) {
		if info.Err != nil {
			return nil, fmt.Errorf("list objects: %w", info.Err)
		}
		objects = append(objects, b.object(info))
	}
	return objects, nil
}

// PublicURL returns the address the site serves key from.
func (b *Bucket) PublicURL(key string) string {
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return b.baseURL + "/" + strings.Join(segments, "/")
}

func (b *Bucket) Ping(ctx context.Context) error {
	exists, err := b.client.BucketExists(ctx, b.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", b.cfg.Bucket)
	}
	return nil
}

func (b *Bucket) object(info minio.ObjectInfo) Object {
	meta := DecodeMetadata(info.UserMetadata)
	return Object{
		Key:          info.Key,
		URL:          b.PublicURL(info.Key),
		Size:         info.Size,
		ContentType:  info.ContentType,
		OriginalName: meta[originalNameKey],
		Metadata:     meta,
		LastModified: info.LastModified,
	}
}

func resolveContentType(declared, fileName string) string {
	if mediaType, _, err := mime.ParseMediaType(declared); err == nil && mediaType != "application/octet-stream" {
		return mediaType
	}
	if byExt := mime.TypeByExtension(Ext(fileName)); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
			return mediaType
		}
	}
	return "application/octet-stream"
}
