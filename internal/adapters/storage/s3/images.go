package s3

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"nutrition-call-assistant/internal/ports/storage"
)

type Config struct {
	Bucket string
	Region string
	// Endpoint para MinIO y similares; activa path-style.
	Endpoint string
	// PublicURL base con la que se sirven los objetos (CDN o bucket público).
	PublicURL string
	Prefix    string
}

// ImageStore sube imágenes a un bucket S3 compatible.
type ImageStore struct {
	client    *s3.Client
	bucket    string
	prefix    string
	publicURL string
}

var _ storage.ImageStore = (*ImageStore)(nil)

func NewImageStore(ctx context.Context, cfg Config) (*ImageStore, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 image store: bucket required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		})
	}

	publicURL := strings.TrimRight(strings.TrimSpace(cfg.PublicURL), "/")
	if publicURL == "" {
		if endpoint != "" {
			publicURL = endpoint + "/" + cfg.Bucket
		} else {
			publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
		}
	}

	return &ImageStore{
		client:    s3.NewFromConfig(awsCfg, s3opts...),
		bucket:    cfg.Bucket,
		prefix:    strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
		publicURL: publicURL,
	}, nil
}

func (s *ImageStore) Save(ctx context.Context, name, contentType string, data []byte) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, "/") || len(data) == 0 {
		return "", storage.ErrInvalidImage
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := name
	if s.prefix != "" {
		key = s.prefix + "/" + name
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put object: %w", err)
	}
	return s.publicURL + "/" + key, nil
}
