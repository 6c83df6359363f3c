package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"ev-subsidy-scraper/utils"
)

// ObjectPutter is the part of the S3 client the publisher needs
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures the bucket connection. Endpoint is set for
// S3-compatible stores such as R2 or MinIO.
type S3Options struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// S3Publisher uploads output files under a key prefix
type S3Publisher struct {
	client ObjectPutter
	bucket string
	prefix string
	logger *utils.Logger
}

// NewS3Publisher loads AWS configuration and builds the client. Static
// credentials win over the default chain when both keys are set.
func NewS3Publisher(ctx context.Context, opts S3Options, logger *utils.Logger) (*S3Publisher, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is not configured")
	}

	loaders := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loaders = append(loaders, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3PublisherWithClient(client, opts.Bucket, opts.Prefix, logger), nil
}

// NewS3PublisherWithClient wraps an existing client
func NewS3PublisherWithClient(client ObjectPutter, bucket, prefix string, logger *utils.Logger) *S3Publisher {
	return &S3Publisher{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/"), logger: logger}
}

// Key is the object key a local file is stored under
func (p *S3Publisher) Key(file string) string {
	if p.prefix == "" {
		return filepath.Base(file)
	}
	return path.Join(p.prefix, filepath.Base(file))
}

func contentType(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv; charset=utf-8"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

// Publish uploads every file and returns the s3:// URIs that succeeded.
// A failed upload is logged and the rest continue; the first error is returned.
func (p *S3Publisher) Publish(ctx context.Context, paths []string) ([]string, error) {
	var (
		uploaded []string
		firstErr error
	)
	for _, file := range paths {
		uri, err := p.put(ctx, file)
		if err != nil {
			p.logger.Error("Upload of %s failed: %v", file, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		p.logger.Info("Uploaded %s", uri)
		uploaded = append(uploaded, uri)
	}
	return uploaded, firstErr
}

func (p *S3Publisher) put(ctx context.Context, file string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer f.Close()

	key := p.Key(file)
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType(file)),
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", p.bucket, key), nil
}
