package source

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/spektr-org/salesdash/schema"
)

// ObjectGetter is the part of *s3.Client the S3 source needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Options configures NewS3Client. Endpoint and PathStyle target
// S3-compatible stores such as MinIO.
type S3Options struct {
	Region    string
	Endpoint  string
	PathStyle bool
}

// NewS3Client builds a client from the default AWS credential chain.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = opts.PathStyle
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	}), nil
}

// S3 reads one object; the format follows the key's extension.
type S3 struct {
	Client ObjectGetter
	Bucket string
	Key    string
	Schema schema.Config
}

func (s *S3) Name() string { return fmt.Sprintf("s3://%s/%s", s.Bucket, s.Key) }

func (s *S3) Load(ctx context.Context) (*Dataset, error) {
	if s.Client == nil || s.Bucket == "" || s.Key == "" {
		return nil, loadFailed(s.Name(), errors.New("s3 source needs client, bucket and key"))
	}
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key),
	})
	if err != nil {
		return nil, loadFailed(s.Name(), err)
	}
	defer out.Body.Close()

	ds, err := Parse(io.LimitReader(out.Body, maxBodyBytes), FormatFor(s.Key), schemaOrDefault(s.Schema))
	if err != nil {
		return nil, loadFailed(s.Name(), err)
	}
	ds.Name = s.Name()
	return ds, nil
}
