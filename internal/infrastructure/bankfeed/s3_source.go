package bankfeed

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/clutch/ledger/internal/domain/banking"
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/clutch/ledger/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ObjectAPI is the part of the S3 client the feed uses
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Source reads statement CSV files from an S3-compatible bucket
// (AWS S3, MinIO, RustFS, ...). Object keys are resolved under the configured prefix.
type S3Source struct {
	client ObjectAPI
	bucket string
	prefix string
	parser *StatementParser
	logger *zap.Logger
}

// S3SourceOption is a functional option for configuring S3Source
type S3SourceOption func(*S3Source)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) S3SourceOption {
	return func(s *S3Source) {
		s.logger = logger
	}
}

// WithParser replaces the default comma-separated parser
func WithParser(parser *StatementParser) S3SourceOption {
	return func(s *S3Source) {
		s.parser = parser
	}
}

// WithClient replaces the S3 client, mostly for tests
func WithClient(client ObjectAPI) S3SourceOption {
	return func(s *S3Source) {
		s.client = client
	}
}

// NewS3Source creates an S3Source from configuration
func NewS3Source(cfg *config.BankFeedConfig, opts ...S3SourceOption) (*S3Source, error) {
	if cfg == nil {
		return nil, errors.New("bank feed configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("bank feed bucket is required")
	}

	source := &S3Source{
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		parser: NewStatementParser(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(source)
	}
	if source.client != nil {
		return source, nil
	}

	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, errors.New("bank feed credentials are required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	var endpoint string
	if cfg.Endpoint != "" {
		endpoint = cfg.Endpoint
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		if _, err := url.Parse(endpoint); err != nil {
			return nil, fmt.Errorf("invalid bank feed endpoint: %w", err)
		}
	}
	source.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return source, nil
}

func (s *S3Source) objectKey(key string) string {
	key = strings.TrimLeft(key, "/")
	if s.prefix == "" || strings.HasPrefix(key, s.prefix+"/") {
		return key
	}
	return path.Join(s.prefix, key)
}

// ReadStatement downloads and parses one statement object. A missing object
// is reported as NOT_FOUND.
func (s *S3Source) ReadStatement(ctx context.Context, key string) ([]banking.TransactionInput, error) {
	if strings.TrimSpace(key) == "" {
		return nil, shared.NewValidationError("object_key", "object key is required")
	}
	fullKey := s.objectKey(key)

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fullKey),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		var notFound *types.NotFound
		if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
			return nil, shared.ErrNotFound.WithDetail("object_key", fullKey)
		}
		return nil, fmt.Errorf("failed to read statement %s: %w", fullKey, err)
	}
	defer out.Body.Close()

	inputs, err := s.parser.Parse(out.Body)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Bank statement read",
		zap.String("bucket", s.bucket),
		zap.String("key", fullKey),
		zap.Int("rows", len(inputs)),
	)
	return inputs, nil
}

// List returns the statement object keys under the prefix
func (s *S3Source) List(ctx context.Context) ([]string, error) {
	var keys []string
	input := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if s.prefix != "" {
		input.Prefix = aws.String(s.prefix + "/")
	}
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list statements: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(strings.ToLower(key), ".csv") {
				keys = append(keys, key)
			}
		}
	}
	return keys, nil
}
