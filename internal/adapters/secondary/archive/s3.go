package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	log "github.com/sirupsen/logrus"

	"vision-platform-client/internal/core/domain"
	output "vision-platform-client/internal/core/ports/output"
)

type S3Config struct {
	Bucket          string
	Prefix          string
	Endpoint        string // for MinIO and other S3-compatible stores
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// S3Store keeps archives as objects under a bucket prefix.
type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

var _ output.ArchiveStore = (*S3Store)(nil)

func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required: %w", domain.ErrValidation)
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3StoreFromClient(client, cfg.Bucket, cfg.Prefix), nil
}

func NewS3StoreFromClient(client *s3.Client, bucket, prefix string) *S3Store {
	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
	}
}

func (s *S3Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func (s *S3Store) uri(key string) string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, key)
}

// keyOf prefers the URI of ref, so archives stored under another prefix can be read.
func (s *S3Store) keyOf(ref domain.ArchiveRef) (string, error) {
	if rest, ok := strings.CutPrefix(ref.URI, "s3://"+s.bucket+"/"); ok && rest != "" {
		return rest, nil
	}
	if ref.Name == "" {
		return "", fmt.Errorf("archive reference without name: %w", domain.ErrValidation)
	}
	return s.key(ref.Name), nil
}

func (s *S3Store) Put(ctx context.Context, name string, r io.Reader, size int64) (*domain.ArchiveRef, error) {
	key := s.key(name)
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String("application/gzip"),
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return nil, fmt.Errorf("upload archive to %s: %w", s.uri(key), err)
	}

	log.WithFields(log.Fields{"bucket": s.bucket, "key": key}).Info("archive uploaded")
	return &domain.ArchiveRef{Name: name, URI: s.uri(key), Size: size}, nil
}

func (s *S3Store) Open(ctx context.Context, ref domain.ArchiveRef) (io.ReadCloser, error) {
	key, err := s.keyOf(ref)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%s: %w", s.uri(key), domain.ErrArchiveNotFound)
		}
		return nil, fmt.Errorf("get archive %s: %w", s.uri(key), err)
	}
	return out.Body, nil
}

func (s *S3Store) Delete(ctx context.Context, ref domain.ArchiveRef) error {
	key, err := s.keyOf(ref)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete archive %s: %w", s.uri(key), err)
	}
	return nil
}
