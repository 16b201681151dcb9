package service

import (
	"context"
	"errors"
	"time"

	"github.com/ikkim/catalog-review-backend/internal/app/model"
	"github.com/ikkim/catalog-review-backend/internal/app/repository"
	"github.com/ikkim/catalog-review-backend/pkg/logger"
	"gorm.io/gorm"
)

// CreateReviewInput 리뷰 작성 입력
type CreateReviewInput struct {
	Comment          string
	Rating           float64
	ProductID        *string
	CustomerID       *string
	Title            *string
	Images           []string
	PurchaseDate     *time.Time
	VerifiedPurchase bool
}

// UpdateReviewInput 리뷰 수정 입력. nil 필드는 변경하지 않는다.
type UpdateReviewInput struct {
	Comment      *string
	Rating       *float64
	Title        *string
	Images       *[]string
	Status       *model.ReviewStatus
	HelpfulVotes *int
}

// ReviewPolicy selects the review schema variant.
type ReviewPolicy struct {
	DefaultStatus     model.ReviewStatus
	EnforceUniqueness bool
}

// DefaultReviewPolicy is the moderated schema: new reviews wait for
// approval and a customer holds at most one approved review per product.
func DefaultReviewPolicy() ReviewPolicy {
	return ReviewPolicy{
		DefaultStatus:     model.ReviewStatusPending,
		EnforceUniqueness: true,
	}
}

// HelpfulVoteGuard deduplicates helpful votes per voter.
type HelpfulVoteGuard interface {
	// TryVote records the vote and reports false when voterKey already
	// voted for the review.
	TryVote(ctx context.Context, reviewID, voterKey string) (bool, error)
	// ReleaseVote forgets a vote that was recorded but not counted.
	ReleaseVote(ctx context.Context, reviewID, voterKey string) error
}

type ReviewService interface {
	CreateReview(ctx context.Context, input CreateReviewInput) (*model.Review, error)
	GetReview(ctx context.Context, id string) (*model.Review, error)
	ListReviews(ctx context.Context) ([]model.Review, error)
	ListBySubject(ctx context.Context, productID string) ([]model.Review, error)
	ListByCustomer(ctx context.Context, customerID string) ([]model.Review, error)
	SearchReviews(ctx context.Context, text string) ([]model.Review, error)
	UpdateReview(ctx context.Context, id string, input UpdateReviewInput) (*model.Review, error)
	ModerateReview(ctx context.Context, id string, status model.ReviewStatus) (*model.Review, error)
	MarkHelpful(ctx context.Context, id, voterKey string) (*model.Review, error)
	DeleteReview(ctx context.Context, id string) error
}

type reviewService struct {
	reviewRepo repository.ReviewRepository
	policy     ReviewPolicy
	voteGuard  HelpfulVoteGuard
	now        func() time.Time
}

// NewReviewService builds the review store. voteGuard may be nil, in which
// case every helpful vote is counted.
func NewReviewService(reviewRepo repository.ReviewRepository, policy ReviewPolicy, voteGuard HelpfulVoteGuard) ReviewService {
	if !policy.DefaultStatus.Valid() {
		policy.DefaultStatus = model.ReviewStatusPending
	}
	return &reviewService{
		reviewRepo: reviewRepo,
		policy:     policy,
		voteGuard:  voteGuard,
		now:        time.Now,
	}
}

// CreateReview 리뷰 생성
func (s *reviewService) CreateReview(ctx context.Context, input CreateReviewInput) (*model.Review, error) {
	comment, err := normalizeComment(input.Comment)
	if err != nil {
		return nil, err
	}
	rating, err := normalizeRating(input.Rating)
	if err != nil {
		return nil, err
	}
	images, err := normalizeImages(input.Images)
	if err != nil {
		return nil, err
	}
	title, err := normalizeTitle(input.Title)
	if err != nil {
		return nil, err
	}
	productID, err := normalizeRef("productId", input.ProductID)
	if err != nil {
		return nil, err
	}
	customerID, err := normalizeRef("customerId", input.CustomerID)
	if err != nil {
		return nil, err
	}

	purchaseDate := s.now()
	if input.PurchaseDate != nil && !input.PurchaseDate.IsZero() {
		purchaseDate = *input.PurchaseDate
	}

	review := &model.Review{
		ProductID:        productID,
		CustomerID:       customerID,
		Title:            title,
		Comment:          comment,
		Rating:           rating,
		Status:           s.policy.DefaultStatus,
		HelpfulVotes:     0,
		Images:           images,
		PurchaseDate:     purchaseDate,
		VerifiedPurchase: input.VerifiedPurchase,
	}

	if err := s.reviewRepo.Create(ctx, review, s.policy.EnforceUniqueness); err != nil {
		if errors.Is(err, repository.ErrDuplicateApproved) {
			logger.Warn("Duplicate approved review rejected", map[string]interface{}{
				"product_id":  productID,
				"customer_id": customerID,
			})
			return nil, ErrDuplicateReview
		}
		logger.Error("Failed to create review", err)
		return nil, err
	}

	logger.Info("Review created", map[string]interface{}{
		"review_id":  review.ID,
		"product_id": productID,
		"rating":     review.Rating,
		"status":     review.Status,
	})
	return review, nil
}

// GetReview 리뷰 조회
func (s *reviewService) GetReview(ctx context.Context, id string) (*model.Review, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}

	review, err := s.reviewRepo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateLookupError(err, id)
	}
	return review, nil
}

// ListReviews 전체 리뷰 (최신순)
func (s *reviewService) ListReviews(ctx context.Context) ([]model.Review, error) {
	reviews, err := s.reviewRepo.FindAll(ctx)
	if err != nil {
		logger.Error("Failed to list reviews", err)
		return nil, err
	}
	return nonNil(reviews), nil
}

// ListBySubject 상품별 리뷰 (최신순)
func (s *reviewService) ListBySubject(ctx context.Context, productID string) ([]model.Review, error) {
	if err := requireID("productId", productID); err != nil {
		return nil, err
	}

	reviews, err := s.reviewRepo.FindByProductID(ctx, productID)
	if err != nil {
		logger.Error("Failed to list product reviews", err, map[string]interface{}{
			"product_id": productID,
		})
		return nil, err
	}
	return nonNil(reviews), nil
}

// ListByCustomer 고객별 리뷰 (최신순)
func (s *reviewService) ListByCustomer(ctx context.Context, customerID string) ([]model.Review, error) {
	if err := requireID("customerId", customerID); err != nil {
		return nil, err
	}

	reviews, err := s.reviewRepo.FindByCustomerID(ctx, customerID)
	if err != nil {
		logger.Error("Failed to list customer reviews", err, map[string]interface{}{
			"customer_id": customerID,
		})
		return nil, err
	}
	return nonNil(reviews), nil
}

// SearchReviews 제목/내용 검색
func (s *reviewService) SearchReviews(ctx context.Context, text string) ([]model.Review, error) {
	reviews, err := s.reviewRepo.Search(ctx, text)
	if err != nil {
		logger.Error("Failed to search reviews", err, map[string]interface{}{
			"query": text,
		})
		return nil, err
	}
	return nonNil(reviews), nil
}

// UpdateReview 리뷰 수정
func (s *reviewService) UpdateReview(ctx context.Context, id string, input UpdateReviewInput) (*model.Review, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}

	changes := make(map[string]interface{})

	if input.Comment != nil {
		comment, err := normalizeComment(*input.Comment)
		if err != nil {
			return nil, err
		}
		changes["comment"] = comment
	}
	if input.Rating != nil {
		rating, err := normalizeRating(*input.Rating)
		if err != nil {
			return nil, err
		}
		changes["rating"] = rating
	}
	if input.Images != nil {
		images, err := normalizeImages(*input.Images)
		if err != nil {
			return nil, err
		}
		changes["images"] = images
	}
	if input.Title != nil {
		title, err := normalizeTitle(input.Title)
		if err != nil {
			return nil, err
		}
		changes["title"] = title
	}
	if input.Status != nil {
		if err := checkStatus(*input.Status); err != nil {
			return nil, err
		}
		changes["status"] = *input.Status
	}
	if input.HelpfulVotes != nil {
		if err := checkHelpfulVotes(*input.HelpfulVotes); err != nil {
			return nil, err
		}
		changes["helpful_votes"] = *input.HelpfulVotes
	}

	return s.applyChanges(ctx, id, changes)
}

// ModerateReview 리뷰 승인/반려
func (s *reviewService) ModerateReview(ctx context.Context, id string, status model.ReviewStatus) (*model.Review, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}
	if err := checkStatus(status); err != nil {
		return nil, err
	}

	review, err := s.applyChanges(ctx, id, map[string]interface{}{"status": status})
	if err != nil {
		return nil, err
	}

	logger.Info("Review moderated", map[string]interface{}{
		"review_id": id,
		"status":    status,
	})
	return review, nil
}

// applyChanges checks existence and the approved-pair rule before writing.
// The unique index still arbitrates concurrent approvals.
func (s *reviewService) applyChanges(ctx context.Context, id string, changes map[string]interface{}) (*model.Review, error) {
	current, err := s.reviewRepo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateLookupError(err, id)
	}
	if len(changes) == 0 {
		return current, nil
	}

	if status, ok := changes["status"].(model.ReviewStatus); ok && status == model.ReviewStatusApproved {
		if err := s.checkApprovedPair(ctx, current); err != nil {
			return nil, err
		}
	}

	updated, err := s.reviewRepo.Update(ctx, id, changes)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateApproved) {
			return nil, ErrDuplicateReview
		}
		return nil, s.translateLookupError(err, id)
	}

	logger.Debug("Review updated", map[string]interface{}{
		"review_id":      id,
		"changed_fields": len(changes),
	})
	return updated, nil
}

func (s *reviewService) checkApprovedPair(ctx context.Context, review *model.Review) error {
	if !s.policy.EnforceUniqueness || review.CustomerID == nil || review.ProductID == nil {
		return nil
	}
	exists, err := s.reviewRepo.ExistsApproved(ctx, *review.CustomerID, *review.ProductID, review.ID)
	if err != nil {
		logger.Error("Failed to check approved review uniqueness", err)
		return err
	}
	if exists {
		return ErrDuplicateReview
	}
	return nil
}

// MarkHelpful 도움돼요 +1
func (s *reviewService) MarkHelpful(ctx context.Context, id, voterKey string) (*model.Review, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}
	if _, err := s.reviewRepo.FindByID(ctx, id); err != nil {
		return nil, s.translateLookupError(err, id)
	}

	guarded := s.voteGuard != nil && voterKey != ""
	if guarded {
		accepted, err := s.voteGuard.TryVote(ctx, id, voterKey)
		if err != nil {
			logger.Error("Failed to record helpful vote", err, map[string]interface{}{
				"review_id": id,
			})
			return nil, err
		}
		if !accepted {
			return nil, ErrAlreadyVoted
		}
	}

	review, err := s.reviewRepo.IncrementHelpfulVotes(ctx, id)
	if err != nil {
		// 집계되지 않은 투표는 되돌려 다시 누를 수 있게 한다
		if guarded {
			if releaseErr := s.voteGuard.ReleaseVote(ctx, id, voterKey); releaseErr != nil {
				logger.Error("Failed to release helpful vote", releaseErr, map[string]interface{}{
					"review_id": id,
				})
			}
		}
		return nil, s.translateLookupError(err, id)
	}
	return review, nil
}

// DeleteReview 리뷰 삭제
func (s *reviewService) DeleteReview(ctx context.Context, id string) error {
	if err := requireID("id", id); err != nil {
		return err
	}

	if err := s.reviewRepo.Delete(ctx, id); err != nil {
		return s.translateLookupError(err, id)
	}

	logger.Info("Review deleted", map[string]interface{}{
		"review_id": id,
	})
	return nil
}

func (s *reviewService) translateLookupError(err error, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Warn("Review not found", map[string]interface{}{
			"review_id": id,
		})
		return ErrReviewNotFound
	}
	logger.Error("Review store failure", err, map[string]interface{}{
		"review_id": id,
	})
	return err
}

func nonNil(reviews []model.Review) []model.Review {
	if reviews == nil {
		return []model.Review{}
	}
	return reviews
}
