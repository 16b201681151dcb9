package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/ikkim/catalog-review-backend/internal/errors"
	"github.com/ikkim/catalog-review-backend/internal/storage"
	"github.com/ikkim/catalog-review-backend/pkg/logger"
)

// ReviewImagePresigner issues direct-upload URLs for review images.
type ReviewImagePresigner interface {
	PresignReviewImage(ctx context.Context, filename, contentType string) (*storage.PresignedURLResponse, error)
}

type UploadController struct {
	storage ReviewImagePresigner
}

func NewUploadController(storage ReviewImagePresigner) *UploadController {
	registerJSONFieldNames()
	return &UploadController{
		storage: storage,
	}
}

type PresignReviewImageRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
}

// PresignReviewImage 리뷰 이미지 업로드 URL 발급
// POST /api/uploads/review-images
func (ctrl *UploadController) PresignReviewImage(c *gin.Context) {
	var req PresignReviewImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	response, err := ctrl.storage.PresignReviewImage(c.Request.Context(), req.Filename, req.ContentType)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedImageType) {
			logger.Warn("Invalid review image type", map[string]interface{}{
				"filename":     req.Filename,
				"content_type": req.ContentType,
			})
			apperrors.BadRequest(c, apperrors.UploadInvalidFileType, "JPEG 또는 PNG 이미지만 업로드할 수 있습니다")
			return
		}
		logger.Error("Failed to generate presigned URL", err, map[string]interface{}{
			"filename":     req.Filename,
			"content_type": req.ContentType,
		})
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.UploadFailed, "업로드 URL 발급에 실패했습니다")
		return
	}

	logger.Info("Presigned URL generated successfully", map[string]interface{}{
		"key": response.Key,
	})
	c.JSON(http.StatusOK, response)
}
