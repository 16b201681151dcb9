package db

import (
	"github.com/ikkim/catalog-review-backend/internal/app/model"
	"github.com/ikkim/catalog-review-backend/pkg/logger"
	"gorm.io/gorm"
)

// ApprovedReviewIndex guarantees one approved review per customer and
// product. Rows with a NULL customer or product never collide.
const ApprovedReviewIndex = "idx_reviews_customer_product_approved"

type MigrateOptions struct {
	EnforceUniqueness bool
}

// Migrate runs database migrations
func Migrate(gdb *gorm.DB, opts MigrateOptions) error {
	logger.Info("Running database migrations...")

	models := []interface{}{
		&model.Review{},
	}

	if err := gdb.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	if opts.EnforceUniqueness {
		if err := gdb.Exec(
			"CREATE UNIQUE INDEX IF NOT EXISTS " + ApprovedReviewIndex +
				" ON reviews (customer_id, product_id) WHERE status = 'approved'",
		).Error; err != nil {
			logger.Error("Failed to create approved review index", err)
			return err
		}
	} else {
		if err := gdb.Exec("DROP INDEX IF EXISTS " + ApprovedReviewIndex).Error; err != nil {
			logger.Error("Failed to drop approved review index", err)
			return err
		}
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count":       len(models),
		"enforce_uniqueness": opts.EnforceUniqueness,
	})
	return nil
}
