// services/spaces.go
package services

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// SpacesService stores lot images in a DigitalOcean Spaces bucket through
// the S3 API.
type SpacesService struct {
	client  *s3.Client
	bucket  string
	region  string
	lotRoot string
}

func NewSpacesService(key, secret, region, bucket, lotRoot string) (*SpacesService, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.digitaloceanspaces.com", region),
		}, nil
	})

	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithEndpointResolverWithOptions(resolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load spaces config: %w", err)
	}

	return &SpacesService{
		client:  s3.NewFromConfig(cfg),
		bucket:  bucket,
		region:  region,
		lotRoot: strings.Trim(lotRoot, "/"),
	}, nil
}

// UploadImage stores an image under a fresh key and returns its public URL.
func (s *SpacesService) UploadImage(ctx context.Context, body io.Reader, contentType string) (string, error) {
	ext := extensionFor(contentType)
	key := fmt.Sprintf("%s/%s%s", s.lotRoot, uuid.NewString(), ext)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        body,
		ContentType: &contentType,
		ACL:         "public-read",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	return fmt.Sprintf("https://%s.%s.digitaloceanspaces.com/%s", s.bucket, s.region, key), nil
}

// DeleteByURL removes the object a public URL points at. URLs outside the
// bucket are ignored.
func (s *SpacesService) DeleteByURL(ctx context.Context, rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("bad image url: %w", err)
	}

	host := fmt.Sprintf("%s.%s.digitaloceanspaces.com", s.bucket, s.region)
	if parsed.Host != host {
		return nil
	}

	key := strings.TrimPrefix(parsed.Path, "/")
	if key == "" {
		return nil
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
