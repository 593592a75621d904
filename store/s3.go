package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/sei-protocol/ckanpatch/entity"
)

// S3API is the subset of the S3 client used by S3Table.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Config holds the parameters of OpenS3.
type S3Config struct {
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"`
	Prefix    string `toml:"prefix"`
	PathStyle bool   `toml:"path-style"`
}

// S3Table stores each document as a JSON object under <prefix>/<kind>/<id>.json.
type S3Table struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Table returns a table over an existing client.
func NewS3Table(client S3API, bucket, prefix string) *S3Table {
	return &S3Table{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// OpenS3 builds an S3 client from the default credential chain and cfg.
func OpenS3(ctx context.Context, cfg S3Config) (*S3Table, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewS3Table(client, cfg.Bucket, cfg.Prefix), nil
}

func (s *S3Table) kindPrefix(kind entity.Kind) string {
	return path.Join(s.prefix, string(kind)) + "/"
}

func (s *S3Table) key(kind entity.Kind, id string) string {
	return s.kindPrefix(kind) + url.PathEscape(id) + ".json"
}

func (s *S3Table) Get(ctx context.Context, kind entity.Kind, id string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(kind, id)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("get %s %s: %w", kind, id, err)
	}
	defer func() { _ = out.Body.Close() }()
	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s %s: %w", kind, id, err)
	}
	return body, nil
}

func (s *S3Table) Put(ctx context.Context, kind entity.Kind, id string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(kind, id)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put %s %s: %w", kind, id, err)
	}
	return nil
}

func (s *S3Table) Scan(ctx context.Context, kind entity.Kind, fn func(id string, body []byte) error) error {
	prefix := s.kindPrefix(kind)
	var ids []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("listing %s: %w", kind, err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(obj.Key), prefix), ".json")
			id, err := url.PathUnescape(name)
			if err != nil || strings.Contains(name, "/") {
				continue
			}
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	for _, id := range ids {
		body, err := s.Get(ctx, kind, id)
		if errors.Is(err, entity.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if err := fn(id, body); err != nil {
			if errors.Is(err, ErrStopScan) {
				return nil
			}
			return err
		}
	}
	return nil
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
