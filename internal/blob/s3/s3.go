package s3

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"news-api/internal/blob"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type Options struct {
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
	Folder        string
}

// PutObjectAPI is the part of the S3 client the upload manager needs.
type PutObjectAPI = manager.UploadAPIClient

type Store struct {
	uploader *manager.Uploader
	opts     Options
	now      func() time.Time
}

func New(ctx context.Context, opts Options) (*Store, error) {
	const op = "blob.s3.New"

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewWithClient(client, opts), nil
}

// NewWithClient builds a Store on top of an existing client.
func NewWithClient(client PutObjectAPI, opts Options) *Store {
	return &Store{
		uploader: manager.NewUploader(client),
		opts:     opts,
		now:      time.Now,
	}
}

func (s *Store) Upload(ctx context.Context, f blob.File) (string, error) {
	const op = "blob.s3.Upload"

	key := blob.Key(s.opts.Folder, f, s.now())

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.opts.Bucket),
		Key:         aws.String(key),
		Body:        f.Body,
		ContentType: aws.String(f.ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return s.publicURL(key), nil
}

func (s *Store) publicURL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()

	switch {
	case s.opts.PublicBaseURL != "":
		return strings.TrimRight(s.opts.PublicBaseURL, "/") + "/" + escaped
	case s.opts.Endpoint != "":
		return strings.TrimRight(s.opts.Endpoint, "/") + "/" + s.opts.Bucket + "/" + escaped
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.opts.Bucket, s.opts.Region, escaped)
	}
}
