package model

import (
	"database/sql/driver"
	"time"

	"github.com/ikkim/catalog-review-backend/pkg/util"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// ReviewStatus 리뷰 검수 상태
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusApproved ReviewStatus = "approved"
	ReviewStatusRejected ReviewStatus = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s ReviewStatus) Valid() bool {
	switch s {
	case ReviewStatusPending, ReviewStatusApproved, ReviewStatusRejected:
		return true
	}
	return false
}

const DefaultReviewTitle = "Review"

// Review 상품 리뷰 모델
type Review struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	ProductID  *string `gorm:"type:uuid;index" json:"productId"`  // 상품 (없을 수 있음)
	CustomerID *string `gorm:"type:uuid;index" json:"customerId"` // 작성 고객 (없을 수 있음)

	Title   string `gorm:"size:100;not null" json:"title"`
	Comment string `gorm:"type:text;not null" json:"comment"`
	Rating  int    `gorm:"not null" json:"rating"` // 평점 (1-5)

	Status       ReviewStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	HelpfulVotes int          `gorm:"not null;default:0" json:"helpfulVotes"`

	Images ImageList `json:"images"`

	PurchaseDate     time.Time `json:"purchaseDate"`
	VerifiedPurchase bool      `gorm:"not null;default:false" json:"verifiedPurchase"`
}

func (Review) TableName() string {
	return "reviews"
}

// BeforeCreate assigns the identifier when the caller has not.
func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = util.NewID()
	}
	return nil
}

// ReviewStats 상품별 평점 통계
type ReviewStats struct {
	AverageRating      float64        `json:"averageRating"`
	TotalReviews       int            `json:"totalReviews"`
	RatingDistribution map[string]int `json:"ratingDistribution"`
}

// ImageList is stored as text[] on PostgreSQL using the pq array encoding,
// and as the same "{...}" literal in a text column elsewhere.
type ImageList []string

func (l ImageList) Value() (driver.Value, error) {
	if l == nil {
		return pq.StringArray{}.Value()
	}
	return pq.StringArray(l).Value()
}

func (l *ImageList) Scan(src interface{}) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return err
	}
	if arr == nil {
		arr = pq.StringArray{}
	}
	*l = ImageList(arr)
	return nil
}

func (ImageList) GormDataType() string {
	return "text[]"
}

func (ImageList) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}
