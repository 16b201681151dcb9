package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ikkim/catalog-review-backend/internal/app/model"
	"github.com/ikkim/catalog-review-backend/internal/app/repository"
	"github.com/ikkim/catalog-review-backend/pkg/logger"
)

// DistributionMode controls which keys appear in a rating distribution.
type DistributionMode string

const (
	// DistributionSparse emits only ratings that were observed.
	DistributionSparse DistributionMode = "sparse"
	// DistributionDense always emits "1".."5", zero-filled.
	DistributionDense DistributionMode = "dense"
)

// ParseDistributionMode 설정 값 파싱
func ParseDistributionMode(s string) (DistributionMode, error) {
	switch DistributionMode(s) {
	case DistributionSparse, DistributionDense:
		return DistributionMode(s), nil
	case "":
		return DistributionSparse, nil
	default:
		return "", fmt.Errorf("unknown distribution mode %q", s)
	}
}

type ReviewStatsService interface {
	StatsFor(ctx context.Context, productID string) (*model.ReviewStats, error)
}

type reviewStatsService struct {
	reviewRepo repository.ReviewRepository
	mode       DistributionMode
}

func NewReviewStatsService(reviewRepo repository.ReviewRepository, mode DistributionMode) ReviewStatsService {
	if mode != DistributionDense {
		mode = DistributionSparse
	}
	return &reviewStatsService{
		reviewRepo: reviewRepo,
		mode:       mode,
	}
}

// StatsFor 상품별 평점 통계 (승인된 리뷰만 집계)
func (s *reviewStatsService) StatsFor(ctx context.Context, productID string) (*model.ReviewStats, error) {
	if err := requireID("productId", productID); err != nil {
		return nil, err
	}

	ratings, err := s.reviewRepo.ApprovedRatings(ctx, productID)
	if err != nil {
		logger.Error("Failed to load approved ratings", err, map[string]interface{}{
			"product_id": productID,
		})
		return nil, err
	}

	stats := summarize(ratings, s.mode)

	logger.Debug("Review stats computed", map[string]interface{}{
		"product_id":    productID,
		"total_reviews": stats.TotalReviews,
		"mode":          s.mode,
	})
	return stats, nil
}

// summarize reduces one snapshot of ratings. The mean and the distribution
// are separate passes over the same slice.
func summarize(ratings []int, mode DistributionMode) *model.ReviewStats {
	stats := &model.ReviewStats{
		RatingDistribution: map[string]int{},
	}
	if len(ratings) == 0 {
		return stats
	}

	sum := 0
	for _, r := range ratings {
		sum += r
	}
	stats.TotalReviews = len(ratings)
	stats.AverageRating = float64(sum) / float64(len(ratings))

	if mode == DistributionDense {
		for star := 1; star <= 5; star++ {
			stats.RatingDistribution[strconv.Itoa(star)] = 0
		}
	}
	for _, r := range ratings {
		stats.RatingDistribution[strconv.Itoa(r)]++
	}
	return stats
}
