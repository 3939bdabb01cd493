package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/haasonsaas/boxgrid/pkg/models"
)

// S3StoreConfig configures an S3-compatible board store.
type S3StoreConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// s3API is the subset of the S3 client used by S3Store.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Store keeps one JSON object per box and per breakpoint:
//
//	{prefix}/{namespace}/boxes/{id}.json
//	{prefix}/{namespace}/layouts/{breakpoint}.json
type S3Store struct {
	client s3API
	bucket string
	prefix string
}

// NewS3Store creates a new S3-backed board store.
func NewS3Store(ctx context.Context, cfg *S3StoreConfig) (*S3Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("s3 config is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	loadOptions := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOptions = append(loadOptions, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newS3Store(client, bucket, cfg.Prefix), nil
}

func newS3Store(client s3API, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *S3Store) Load(ctx context.Context, namespace string) (*models.Board, error) {
	board := newBoard()
	root := s.namespaceKey(namespace) + "/"
	found := false

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(root),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			rel := strings.TrimPrefix(key, root)
			dir, file := path.Split(rel)
			name, ok := strings.CutSuffix(file, ".json")
			if !ok {
				continue
			}
			name, err := url.PathUnescape(name)
			if err != nil {
				continue
			}
			switch dir {
			case "boxes/":
				data, err := s.get(ctx, key)
				if errors.Is(err, ErrNotFound) {
					continue
				}
				if err != nil {
					return nil, err
				}
				found = true
				var box models.Box
				if err := json.Unmarshal(data, &box); err != nil {
					continue
				}
				box.ID = name
				board.Boxes[name] = box
			case "layouts/":
				bp, err := models.ParseBreakpoint(name)
				if err != nil {
					continue
				}
				data, err := s.get(ctx, key)
				if errors.Is(err, ErrNotFound) {
					continue
				}
				if err != nil {
					return nil, err
				}
				found = true
				board.Layouts[bp] = models.DecodeLayoutItems(data)
			}
		}
	}
	if !found {
		return nil, ErrNotFound
	}
	return board, nil
}

func (s *S3Store) PutBox(ctx context.Context, namespace string, box models.Box) error {
	data, err := json.Marshal(box)
	if err != nil {
		return fmt.Errorf("encode box: %w", err)
	}
	return s.put(ctx, s.boxKey(namespace, box.ID), data)
}

func (s *S3Store) DeleteBox(ctx context.Context, namespace string, id string) error {
	key := s.boxKey(namespace, id)
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("s3 delete object: %w", err)
	}
	return nil
}

func (s *S3Store) PutLayout(ctx context.Context, namespace string, bp models.Breakpoint, items []models.LayoutItem) error {
	if items == nil {
		items = []models.LayoutItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode layout: %w", err)
	}
	return s.put(ctx, s.layoutKey(namespace, bp), data)
}

// Close releases resources.
func (s *S3Store) Close() error {
	return nil
}

func (s *S3Store) put(ctx context.Context, key string, data []byte) error {
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}

func (s *S3Store) get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("s3 get object: %w", err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read object: %w", err)
	}
	return data, nil
}

func (s *S3Store) namespaceKey(namespace string) string {
	ns := url.PathEscape(namespace)
	if s.prefix == "" {
		return ns
	}
	return path.Join(s.prefix, ns)
}

func (s *S3Store) boxKey(namespace, id string) string {
	return path.Join(s.namespaceKey(namespace), "boxes", url.PathEscape(id)+".json")
}

func (s *S3Store) layoutKey(namespace string, bp models.Breakpoint) string {
	return path.Join(s.namespaceKey(namespace), "layouts", string(bp)+".json")
}

func isS3NotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && strings.EqualFold(apiErr.ErrorCode(), "NotFound")
}
