package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/ikkim/catalog-review-backend/internal/app/model"
	"github.com/ikkim/catalog-review-backend/pkg/logger"
	"gorm.io/gorm"
)

// ErrDuplicateApproved is returned when a write would leave two approved
// reviews for the same customer and product.
var ErrDuplicateApproved = errors.New("approved review already exists for customer and product")

type ReviewRepository interface {
	// Create inserts review. When guardUnique is set the approved-pair check
	// and the insert run in one transaction.
	Create(ctx context.Context, review *model.Review, guardUnique bool) error
	FindByID(ctx context.Context, id string) (*model.Review, error)
	FindAll(ctx context.Context) ([]model.Review, error)
	FindByProductID(ctx context.Context, productID string) ([]model.Review, error)
	FindByCustomerID(ctx context.Context, customerID string) ([]model.Review, error)
	Search(ctx context.Context, text string) ([]model.Review, error)
	// ExistsApproved reports whether an approved review other than excludeID
	// exists for the pair.
	ExistsApproved(ctx context.Context, customerID, productID, excludeID string) (bool, error)
	// Update applies changes to the review and returns the stored row.
	Update(ctx context.Context, id string, changes map[string]interface{}) (*model.Review, error)
	IncrementHelpfulVotes(ctx context.Context, id string) (*model.Review, error)
	Delete(ctx context.Context, id string) error
	// ApprovedRatings returns the rating of every approved review of a product.
	ApprovedRatings(ctx context.Context, productID string) ([]int, error)
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, review *model.Review, guardUnique bool) error {
	logger.Debug("Creating review in database", map[string]interface{}{
		"product_id":   review.ProductID,
		"customer_id":  review.CustomerID,
		"status":       review.Status,
		"guard_unique": guardUnique,
	})

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if guardUnique && review.CustomerID != nil && review.ProductID != nil {
			exists, err := existsApproved(tx, *review.CustomerID, *review.ProductID, "")
			if err != nil {
				return err
			}
			if exists {
				return ErrDuplicateApproved
			}
		}
		return tx.Create(review).Error
	})
	if err != nil {
		err = translateWriteError(err)
		if !errors.Is(err, ErrDuplicateApproved) {
			logger.Error("Failed to create review in database", err, map[string]interface{}{
				"product_id":  review.ProductID,
				"customer_id": review.CustomerID,
			})
		}
		return err
	}

	logger.Debug("Review created in database", map[string]interface{}{
		"review_id": review.ID,
	})
	return nil
}

func (r *reviewRepository) FindByID(ctx context.Context, id string) (*model.Review, error) {
	var review model.Review
	if err := r.db.WithContext(ctx).First(&review, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *reviewRepository) FindAll(ctx context.Context) ([]model.Review, error) {
	var reviews []model.Review
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&reviews).Error
	return reviews, err
}

func (r *reviewRepository) FindByProductID(ctx context.Context, productID string) ([]model.Review, error) {
	var reviews []model.Review
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Find(&reviews).Error
	return reviews, err
}

func (r *reviewRepository) FindByCustomerID(ctx context.Context, customerID string) ([]model.Review, error) {
	var reviews []model.Review
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&reviews).Error
	return reviews, err
}

// Search matches text as a literal, case-insensitive substring of the title
// or the comment, in creation order.
func (r *reviewRepository) Search(ctx context.Context, text string) ([]model.Review, error) {
	pattern := "%" + escapeLike(strings.ToLower(text)) + "%"

	var reviews []model.Review
	err := r.db.WithContext(ctx).
		Where(`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(comment) LIKE ? ESCAPE '\'`, pattern, pattern).
		Order("created_at ASC").
		Find(&reviews).Error
	return reviews, err
}

func (r *reviewRepository) ExistsApproved(ctx context.Context, customerID, productID, excludeID string) (bool, error) {
	return existsApproved(r.db.WithContext(ctx), customerID, productID, excludeID)
}

func existsApproved(tx *gorm.DB, customerID, productID, excludeID string) (bool, error) {
	query := tx.Model(&model.Review{}).
		Where("customer_id = ? AND product_id = ? AND status = ?", customerID, productID, model.ReviewStatusApproved)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *reviewRepository) Update(ctx context.Context, id string, changes map[string]interface{}) (*model.Review, error) {
	db := r.db.WithContext(ctx)

	if len(changes) > 0 {
		result := db.Model(&model.Review{ID: id}).Updates(changes)
		if result.Error != nil {
			err := translateWriteError(result.Error)
			if !errors.Is(err, ErrDuplicateApproved) {
				logger.Error("Failed to update review in database", err, map[string]interface{}{
					"review_id": id,
				})
			}
			return nil, err
		}
		if result.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
	}

	return r.FindByID(ctx, id)
}

func (r *reviewRepository) IncrementHelpfulVotes(ctx context.Context, id string) (*model.Review, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Review{ID: id}).
		UpdateColumn("helpful_votes", gorm.Expr("helpful_votes + ?", 1))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *reviewRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&model.Review{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ApprovedRatings reads the selection in a single query so that callers
// derive the count and the distribution from the same snapshot.
func (r *reviewRepository) ApprovedRatings(ctx context.Context, productID string) ([]int, error) {
	var ratings []int
	err := r.db.WithContext(ctx).
		Model(&model.Review{}).
		Where("product_id = ? AND status = ?", productID, model.ReviewStatusApproved).
		Pluck("rating", &ratings).Error
	if err != nil {
		return nil, err
	}
	return ratings, nil
}

// translateWriteError maps unique index violations on the approved pair
// onto ErrDuplicateApproved.
func translateWriteError(err error) error {
	if errors.Is(err, ErrDuplicateApproved) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateApproved
	}
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "duplicate key") || strings.Contains(lower, "unique constraint") {
		return ErrDuplicateApproved
	}
	return err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
