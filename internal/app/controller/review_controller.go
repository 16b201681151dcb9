package controller

import (
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/ikkim/catalog-review-backend/internal/app/model"
	"github.com/ikkim/catalog-review-backend/internal/app/service"
	apperrors "github.com/ikkim/catalog-review-backend/internal/errors"
	"github.com/ikkim/catalog-review-backend/internal/middleware"
)

type ReviewController struct {
	reviewService service.ReviewService
	statsService  service.ReviewStatsService
}

func NewReviewController(reviewService service.ReviewService, statsService service.ReviewStatsService) *ReviewController {
	registerJSONFieldNames()
	return &ReviewController{
		reviewService: reviewService,
		statsService:  statsService,
	}
}

type CreateReviewRequest struct {
	Comment          string     `json:"comment" binding:"required"`
	Rating           *float64   `json:"rating" binding:"required"`
	ProductID        *string    `json:"productId"`
	CustomerID       *string    `json:"customerId"`
	Title            *string    `json:"title"`
	Images           []string   `json:"images"`
	PurchaseDate     *time.Time `json:"purchaseDate"`
	VerifiedPurchase bool       `json:"verifiedPurchase"`
}

// UpdateReviewRequest 생략된 필드는 변경하지 않는다.
// 상태 변경은 직원 전용 PATCH /reviews/:id/status 로만 가능하다.
type UpdateReviewRequest struct {
	Comment      *string   `json:"comment"`
	Rating       *float64  `json:"rating"`
	Title        *string   `json:"title"`
	Images       *[]string `json:"images"`
	HelpfulVotes *int      `json:"helpfulVotes"`
}

type ModerateReviewRequest struct {
	Status model.ReviewStatus `json:"status" binding:"required"`
}

// CreateReview 리뷰 작성
// @Summary 리뷰 작성
// @Tags Reviews
// @Accept json
// @Produce json
// @Param review body CreateReviewRequest true "리뷰 정보"
// @Success 201 {object} model.Review
// @Router /reviews [post]
func (ctrl *ReviewController) CreateReview(c *gin.Context) {
	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	review, err := ctrl.reviewService.CreateReview(c.Request.Context(), service.CreateReviewInput{
		Comment:          req.Comment,
		Rating:           *req.Rating,
		ProductID:        req.ProductID,
		CustomerID:       req.CustomerID,
		Title:            req.Title,
		Images:           req.Images,
		PurchaseDate:     req.PurchaseDate,
		VerifiedPurchase: req.VerifiedPurchase,
	})
	if err != nil {
		handleServiceError(c, err, "create review")
		return
	}

	c.JSON(http.StatusCreated, review)
}

// ListReviews 전체 리뷰 (최신순)
// @Summary 리뷰 목록
// @Tags Reviews
// @Produce json
// @Success 200 {array} model.Review
// @Router /reviews [get]
func (ctrl *ReviewController) ListReviews(c *gin.Context) {
	reviews, err := ctrl.reviewService.ListReviews(c.Request.Context())
	if err != nil {
		handleServiceError(c, err, "list reviews")
		return
	}
	c.JSON(http.StatusOK, reviews)
}

// GetReview 리뷰 상세
// @Summary 리뷰 상세
// @Tags Reviews
// @Produce json
// @Param id path string true "리뷰 ID"
// @Success 200 {object} model.Review
// @Router /reviews/{id} [get]
func (ctrl *ReviewController) GetReview(c *gin.Context) {
	review, err := ctrl.reviewService.GetReview(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err, "get review")
		return
	}
	c.JSON(http.StatusOK, review)
}

// UpdateReview 리뷰 수정
// @Summary 리뷰 수정
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "리뷰 ID"
// @Param review body UpdateReviewRequest true "수정할 정보"
// @Success 200 {object} model.Review
// @Router /reviews/{id} [put]
func (ctrl *ReviewController) UpdateReview(c *gin.Context) {
	var req UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	review, err := ctrl.reviewService.UpdateReview(c.Request.Context(), c.Param("id"), service.UpdateReviewInput{
		Comment:      req.Comment,
		Rating:       req.Rating,
		Title:        req.Title,
		Images:       req.Images,
		HelpfulVotes: req.HelpfulVotes,
	})
	if err != nil {
		handleServiceError(c, err, "update review")
		return
	}

	c.JSON(http.StatusOK, review)
}

// DeleteReview 리뷰 삭제
// @Summary 리뷰 삭제
// @Tags Reviews
// @Produce json
// @Param id path string true "리뷰 ID"
// @Success 200 {object} object
// @Router /reviews/{id} [delete]
func (ctrl *ReviewController) DeleteReview(c *gin.Context) {
	if err := ctrl.reviewService.DeleteReview(c.Request.Context(), c.Param("id")); err != nil {
		handleServiceError(c, err, "delete review")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Review deleted successfully"})
}

// ListProductReviews 상품별 리뷰
// @Summary 상품 리뷰 목록
// @Tags Reviews
// @Produce json
// @Param productId path string true "상품 ID"
// @Success 200 {array} model.Review
// @Router /reviews/product/{productId} [get]
func (ctrl *ReviewController) ListProductReviews(c *gin.Context) {
	reviews, err := ctrl.reviewService.ListBySubject(c.Request.Context(), c.Param("productId"))
	if err != nil {
		handleServiceError(c, err, "list product reviews")
		return
	}
	c.JSON(http.StatusOK, reviews)
}

// ListCustomerReviews 고객별 리뷰
// @Summary 고객 리뷰 목록
// @Tags Reviews
// @Produce json
// @Param customerId path string true "고객 ID"
// @Success 200 {array} model.Review
// @Router /reviews/customer/{customerId} [get]
func (ctrl *ReviewController) ListCustomerReviews(c *gin.Context) {
	reviews, err := ctrl.reviewService.ListByCustomer(c.Request.Context(), c.Param("customerId"))
	if err != nil {
		handleServiceError(c, err, "list customer reviews")
		return
	}
	c.JSON(http.StatusOK, reviews)
}

// SearchReviews 제목/내용 검색
// @Summary 리뷰 검색
// @Tags Reviews
// @Produce json
// @Param query path string true "검색어"
// @Success 200 {array} model.Review
// @Router /reviews/search/{query} [get]
func (ctrl *ReviewController) SearchReviews(c *gin.Context) {
	reviews, err := ctrl.reviewService.SearchReviews(c.Request.Context(), c.Param("query"))
	if err != nil {
		handleServiceError(c, err, "search reviews")
		return
	}
	c.JSON(http.StatusOK, reviews)
}

// GetProductStats 상품 평점 통계
// @Summary 상품 평점 통계
// @Tags Reviews
// @Produce json
// @Param productId path string true "상품 ID"
// @Success 200 {object} model.ReviewStats
// @Router /reviews/stats/{productId} [get]
func (ctrl *ReviewController) GetProductStats(c *gin.Context) {
	stats, err := ctrl.statsService.StatsFor(c.Request.Context(), c.Param("productId"))
	if err != nil {
		handleServiceError(c, err, "review stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// MarkHelpful 도움돼요
// @Summary 도움돼요 +1
// @Tags Reviews
// @Produce json
// @Param id path string true "리뷰 ID"
// @Success 200 {object} model.Review
// @Router /reviews/{id}/helpful [post]
func (ctrl *ReviewController) MarkHelpful(c *gin.Context) {
	review, err := ctrl.reviewService.MarkHelpful(c.Request.Context(), c.Param("id"), c.ClientIP())
	if err != nil {
		handleServiceError(c, err, "mark helpful")
		return
	}
	c.JSON(http.StatusOK, review)
}

// ModerateReview 리뷰 승인/반려 (직원 전용)
// @Summary 리뷰 검수
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "리뷰 ID"
// @Param body body ModerateReviewRequest true "변경할 상태"
// @Success 200 {object} model.Review
// @Router /reviews/{id}/status [patch]
func (ctrl *ReviewController) ModerateReview(c *gin.Context) {
	var req ModerateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	review, err := ctrl.reviewService.ModerateReview(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		handleServiceError(c, err, "update review status")
		return
	}

	employeeID, _ := middleware.GetEmployeeID(c)
	middleware.GetLoggerFromContext(c).Info("Review status changed by staff", map[string]interface{}{
		"review_id":   review.ID,
		"status":      review.Status,
		"employee_id": employeeID,
	})

	c.JSON(http.StatusOK, review)
}

// ExportReviews 리뷰 엑셀 내보내기 (직원 전용)
// @Summary 리뷰 xlsx 내보내기
// @Tags Reviews
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Router /reviews/export [get]
func (ctrl *ReviewController) ExportReviews(c *gin.Context) {
	reviews, err := ctrl.reviewService.ListReviews(c.Request.Context())
	if err != nil {
		handleServiceError(c, err, "export reviews")
		return
	}

	filename := fmt.Sprintf("reviews-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Status(http.StatusOK)

	if err := service.WriteReviewsXLSX(c.Writer, reviews); err != nil {
		// 헤더가 이미 나갔으므로 로그만 남긴다
		middleware.GetLoggerFromContext(c).Error("Failed to write review export", err)
		_ = c.Error(err)
	}
}

// handleServiceError maps service errors onto the standard error body.
func handleServiceError(c *gin.Context, err error, action string) {
	var validationErr *service.ValidationError
	var invalidArgErr *service.InvalidArgumentError

	switch {
	case stdErrors.As(err, &validationErr):
		apperrors.RespondWithValidationError(c, map[string]string{
			validationErr.Field: validationErr.Reason,
		})
	case stdErrors.As(err, &invalidArgErr):
		apperrors.RespondWithInvalidID(c, map[string]string{
			invalidArgErr.Field: "must be a valid identifier",
		})
	case stdErrors.Is(err, service.ErrInvalidArgument):
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "잘못된 ID 형식입니다")
	case stdErrors.Is(err, service.ErrReviewNotFound):
		apperrors.NotFound(c, apperrors.ReviewNotFound, "리뷰를 찾을 수 없습니다")
	case stdErrors.Is(err, service.ErrDuplicateReview):
		apperrors.Conflict(c, apperrors.ReviewAlreadyExists, "이미 이 상품에 승인된 리뷰가 있습니다")
	case stdErrors.Is(err, service.ErrAlreadyVoted):
		apperrors.Conflict(c, apperrors.ReviewAlreadyVoted, "이미 도움돼요를 누른 리뷰입니다")
	default:
		middleware.GetLoggerFromContext(c).Error("Review request failed", err, map[string]interface{}{
			"action": action,
		})
		apperrors.ParseAndRespond(c, err, action)
	}
}

// respondBindingError reports request body problems field by field.
func respondBindingError(c *gin.Context, err error) {
	fields := map[string]string{}

	var fieldErrs validator.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError

	switch {
	case stdErrors.As(err, &fieldErrs):
		for _, fe := range fieldErrs {
			fields[fe.Field()] = service.ValidationReason(fe)
		}
	case stdErrors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		fields[field] = fmt.Sprintf("must be of type %s", jsonTypeName(typeErr.Type.Kind().String()))
	case stdErrors.As(err, &syntaxErr), stdErrors.Is(err, io.EOF), stdErrors.Is(err, io.ErrUnexpectedEOF):
		fields["body"] = "must be a valid JSON object"
	default:
		fields["body"] = err.Error()
	}

	middleware.GetLoggerFromContext(c).Debug("Invalid request body", map[string]interface{}{
		"fields": fields,
	})
	apperrors.RespondWithValidationError(c, fields)
}

func jsonTypeName(kind string) string {
	switch {
	case strings.HasPrefix(kind, "int"), strings.HasPrefix(kind, "uint"), strings.HasPrefix(kind, "float"):
		return "number"
	case kind == "slice" || kind == "array":
		return "array"
	case kind == "bool":
		return "boolean"
	case kind == "ptr" || kind == "struct" || kind == "map":
		return "object"
	default:
		return kind
	}
}

var registerOnce sync.Once

// registerJSONFieldNames makes binding errors report json field names.
func registerJSONFieldNames() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
}
