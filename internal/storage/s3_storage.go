package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	appconfig "github.com/ikkim/catalog-review-backend/config"
	"github.com/ikkim/catalog-review-backend/pkg/logger"
)

const (
	reviewImageFolder = "reviews"
	presignExpiry     = 15 * time.Minute
)

var ErrUnsupportedImageType = errors.New("unsupported image type")

// 리뷰 이미지 허용 형식 (확장자는 리뷰 이미지 URL 규칙과 맞춘다)
var reviewImageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

type PresignedURLResponse struct {
	UploadURL string    `json:"uploadUrl"`
	FileURL   string    `json:"fileUrl"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type S3Storage struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

func NewS3Storage(ctx context.Context, cfg *appconfig.S3Config) *S3Storage {
	var awsCfg aws.Config
	var err error

	// If credentials are provided, use them. Otherwise, use default credential chain
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg = aws.Config{
			Region: cfg.Region,
			Credentials: credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				"",
			),
		}
	} else {
		awsCfg, err = config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
		if err != nil {
			logger.Warn("Failed to load default AWS config, using region only", map[string]interface{}{
				"error": err.Error(),
			})
			awsCfg = aws.Config{Region: cfg.Region}
		}
	}

	return &S3Storage{
		client:  s3.NewFromConfig(awsCfg),
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// PresignReviewImage issues a PUT URL for one review image. The returned
// FileURL always ends in .jpg or .png so it passes review image validation.
func (s *S3Storage) PresignReviewImage(ctx context.Context, filename, contentType string) (*PresignedURLResponse, error) {
	ext, err := reviewImageExtension(filename, contentType)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s/%s%s", reviewImageFolder, uuid.New().String(), ext)

	presignClient := s3.NewPresignClient(s.client)
	presignedReq, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	logger.Debug("Presigned review image upload", map[string]interface{}{
		"key":          key,
		"content_type": contentType,
	})

	return &PresignedURLResponse{
		UploadURL: presignedReq.URL,
		FileURL:   s.fileURL(key),
		Key:       key,
		ExpiresAt: time.Now().Add(presignExpiry),
	}, nil
}

func (s *S3Storage) fileURL(key string) string {
	if s.baseURL != "" {
		// CloudFront or custom domain
		return fmt.Sprintf("%s/%s", s.baseURL, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.client.Options().Region, key)
}

// reviewImageExtension picks the stored extension from the content type and
// rejects filenames whose extension disagrees with it.
func reviewImageExtension(filename, contentType string) (string, error) {
	ext, ok := reviewImageExtensions[strings.ToLower(contentType)]
	if !ok {
		return "", fmt.Errorf("%w: content type %s", ErrUnsupportedImageType, contentType)
	}

	switch given := strings.ToLower(filepath.Ext(filename)); given {
	case "":
	case ".jpg", ".jpeg":
		if ext != ".jpg" {
			return "", fmt.Errorf("%w: %s does not match %s", ErrUnsupportedImageType, given, contentType)
		}
	case ".png":
		if ext != ".png" {
			return "", fmt.Errorf("%w: %s does not match %s", ErrUnsupportedImageType, given, contentType)
		}
	default:
		return "", fmt.Errorf("%w: extension %s", ErrUnsupportedImageType, given)
	}
	return ext, nil
}
