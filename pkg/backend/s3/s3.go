// Package s3 serves files stored as objects in an S3-compatible bucket.
//
// Reads issue ranged GetObject requests from the stream position, so no
// object is downloaded in full. Objects cannot be appended to, so writers
// buffer the content and upload it whole on Flush and Close.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/marmos91/fsbroker/pkg/backend"
)

// Config configures the S3 backend.
type Config struct {
	// Bucket is the bucket holding the files.
	Bucket string `mapstructure:"bucket" yaml:"bucket"`

	// Region is the AWS region (optional, uses SDK default if empty).
	Region string `mapstructure:"region" yaml:"region"`

	// Endpoint overrides the S3 endpoint URL, for S3-compatible services.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// KeyPrefix is prepended to every object key.
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix"`

	// ForcePathStyle forces path-style addressing (Localstack, MinIO).
	ForcePathStyle bool `mapstructure:"force_path_style" yaml:"force_path_style"`

	// AccessKeyID and SecretAccessKey select static credentials. When
	// empty the SDK default credential chain is used.
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`

	// RequestTimeout bounds each S3 call made by a stream.
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

// ObjectAPI is the subset of *s3.Client the backend uses.
type ObjectAPI interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// FileSystem is a backend.FileSystem storing files as S3 objects.
type FileSystem struct {
	api       ObjectAPI
	bucket    string
	keyPrefix string
	timeout   time.Duration
}

var _ backend.FileSystem = (*FileSystem)(nil)

const defaultRequestTimeout = 30 * time.Second

// New creates a backend using an existing client.
func New(api ObjectAPI, cfg Config) *FileSystem {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &FileSystem{
		api:       api,
		bucket:    cfg.Bucket,
		keyPrefix: strings.TrimPrefix(cfg.KeyPrefix, "/"),
		timeout:   timeout,
	}
}

// NewFromConfig builds an S3 client from cfg and wraps it.
func NewFromConfig(ctx context.Context, cfg Config) (*FileSystem, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 backend: bucket is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3 backend: load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})
	return New(client, cfg), nil
}

// Name implements backend.FileSystem.
func (f *FileSystem) Name() string { return "s3" }

func (f *FileSystem) key(p string) string {
	return f.keyPrefix + strings.TrimPrefix(p, "/")
}

func (f *FileSystem) head(ctx context.Context, key string) (int64, error) {
	out, err := f.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, err
	}
	return aws.ToInt64(out.ContentLength), nil
}

// OpenRead implements backend.FileSystem.
func (f *FileSystem) OpenRead(ctx context.Context, name string, _ int) (backend.InputStream, error) {
	p, err := backend.CleanPath(name)
	if err != nil {
		return nil, err
	}
	key := f.key(p)

	size, err := f.head(ctx, key)
	if err != nil {
		return nil, mapErr("head object", key, err)
	}
	return &inputStream{fs: f, key: key, size: size}, nil
}

// OpenWrite implements backend.FileSystem. An empty object is uploaded
// right away so the file exists before the first flush.
func (f *FileSystem) OpenWrite(ctx context.Context, name string, opts backend.WriteOptions) (backend.OutputStream, error) {
	p, err := backend.CleanPath(name)
	if err != nil {
		return nil, err
	}
	key := f.key(p)

	if !opts.Overwrite {
		_, err := f.head(ctx, key)
		if err == nil {
			return nil, fmt.Errorf("s3: create %q: %w", key, backend.ErrExists)
		}
		if !isNotFoundError(err) {
			return nil, mapErr("head object", key, err)
		}
	}

	if err := f.put(ctx, key, nil); err != nil {
		return nil, err
	}

	out := backend.NewBufferedOutput(opts.BufferSize, func(data []byte) error {
		ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
		defer cancel()
		return f.put(ctx, key, data)
	})
	return out, nil
}

func (f *FileSystem) put(ctx context.Context, key string, data []byte) error {
	_, err := f.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(f.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return mapErr("put object", key, err)
	}
	return nil
}

// Length implements backend.FileSystem.
func (f *FileSystem) Length(ctx context.Context, name string) (int64, error) {
	p, err := backend.CleanPath(name)
	if err != nil {
		return 0, err
	}
	key := f.key(p)
	size, err := f.head(ctx, key)
	if err != nil {
		return 0, mapErr("head object", key, err)
	}
	return size, nil
}

// Healthcheck verifies the bucket is reachable.
func (f *FileSystem) Healthcheck(ctx context.Context) error {
	_, err := f.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(f.bucket)})
	if err != nil {
		return fmt.Errorf("s3 head bucket %q: %w", f.bucket, err)
	}
	return nil
}

// Close implements backend.FileSystem. The SDK client holds no resources
// that need explicit release.
func (f *FileSystem) Close() error { return nil }

// inputStream reads an object through ranged GETs. The object size is
// fixed at open time.
type inputStream struct {
	fs     *FileSystem
	key    string
	size   int64
	pos    atomic.Int64
	closed atomic.Bool
}

func (s *inputStream) Read(p []byte) (int, error) {
	if s.closed.Load() {
		return 0, backend.ErrClosed
	}
	off := s.pos.Load()
	n, err := s.readRange(p, off)
	s.pos.Add(int64(n))
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

func (s *inputStream) ReadAt(p []byte, off int64) (int, error) {
	if s.closed.Load() {
		return 0, backend.ErrClosed
	}
	if off < 0 {
		return 0, backend.ErrInvalidOffset
	}
	return s.readRange(p, off)
}

// readRange fills p from off, returning io.EOF when the object ends
// before p is full.
func (s *inputStream) readRange(p []byte, off int64) (int, error) {
	if off >= s.size {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	want := int64(len(p))
	if remaining := s.size - off; want > remaining {
		want = remaining
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.fs.timeout)
	defer cancel()

	resp, err := s.fs.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.fs.bucket),
		Key:    aws.String(s.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, off+want-1)),
	})
	if err != nil {
		return 0, mapErr("get object range", s.key, err)
	}
	defer resp.Body.Close()

	n, err := io.ReadFull(resp.Body, p[:want])
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return n, fmt.Errorf("s3: read %q body: %w", s.key, err)
	}
	if int64(n) < int64(len(p)) {
		return n, io.EOF
	}
	return n, nil
}

func (s *inputStream) Seek(off int64) (int64, error) {
	if s.closed.Load() {
		return 0, backend.ErrClosed
	}
	if off < 0 {
		return s.pos.Load(), backend.ErrInvalidOffset
	}
	s.pos.Store(off)
	return off, nil
}

func (s *inputStream) Offset() int64 { return s.pos.Load() }

func (s *inputStream) Close() error {
	if s.closed.Swap(true) {
		return backend.ErrClosed
	}
	return nil
}

func mapErr(op, key string, err error) error {
	if isNotFoundError(err) {
		return fmt.Errorf("s3 %s %q: %w: %w", op, key, backend.ErrNotFound, err)
	}
	return fmt.Errorf("s3 %s %q: %w", op, key, err)
}

func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &notFound) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "NoSuchKey") || strings.Contains(msg, "NotFound")
}
