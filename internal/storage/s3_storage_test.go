package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/ikkim/catalog-review-backend/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(baseURL string) *S3Storage {
	return NewS3Storage(context.Background(), &config.S3Config{
		Region:          "ap-northeast-2",
		Bucket:          "catalog-test",
		AccessKeyID:     "AKIAEXAMPLE",
		SecretAccessKey: "secret",
		BaseURL:         baseURL,
	})
}

func TestS3Storage_PresignReviewImage(t *testing.T) {
	s := newTestStorage("")

	resp, err := s.PresignReviewImage(context.Background(), "photo.JPEG", "image/jpeg")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(resp.Key, "reviews/"))
	assert.True(t, strings.HasSuffix(resp.Key, ".jpg"))
	assert.Equal(t, "https://catalog-test.s3.ap-northeast-2.amazonaws.com/"+resp.Key, resp.FileURL)
	assert.Contains(t, resp.UploadURL, "X-Amz-Signature")
	assert.Contains(t, resp.UploadURL, resp.Key)
}

func TestS3Storage_PresignReviewImage_BaseURL(t *testing.T) {
	s := newTestStorage("https://cdn.example.com/")

	resp, err := s.PresignReviewImage(context.Background(), "", "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/"+resp.Key, resp.FileURL)
	assert.True(t, strings.HasSuffix(resp.FileURL, ".png"))
}

func TestReviewImageExtension(t *testing.T) {
	tests := []struct {
		filename    string
		contentType string
		want        string
		wantErr     bool
	}{
		{"a.jpg", "image/jpeg", ".jpg", false},
		{"a.jpeg", "IMAGE/JPEG", ".jpg", false},
		{"a.png", "image/png", ".png", false},
		{"a", "image/png", ".png", false},
		{"a.png", "image/jpeg", "", true},
		{"a.gif", "image/gif", "", true},
		{"a.webp", "image/png", "", true},
	}

	for _, tt := range tests {
		got, err := reviewImageExtension(tt.filename, tt.contentType)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnsupportedImageType, tt.filename)
			continue
		}
		require.NoError(t, err, tt.filename)
		assert.Equal(t, tt.want, got)
	}
}
