package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ikkim/catalog-review-backend/internal/app/model"
	"github.com/ikkim/catalog-review-backend/internal/app/repository"
	"github.com/ikkim/catalog-review-backend/internal/app/service"
	"github.com/ikkim/catalog-review-backend/internal/db"
	apperrors "github.com/ikkim/catalog-review-backend/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const testComment = "Really comfortable and well made."

func setupReviewControllerTest(t *testing.T, policy service.ReviewPolicy) *gin.Engine {
	testDB, err := db.SetupTestDB(db.MigrateOptions{EnforceUniqueness: policy.EnforceUniqueness})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	reviewRepo := repository.NewReviewRepository(testDB)
	reviewService := service.NewReviewService(reviewRepo, policy, nil)
	statsService := service.NewReviewStatsService(reviewRepo, service.DistributionSparse)
	ctrl := NewReviewController(reviewService, statsService)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/reviews", ctrl.ListReviews)
	router.POST("/reviews", ctrl.CreateReview)
	router.GET("/reviews/export", ctrl.ExportReviews)
	router.GET("/reviews/product/:productId", ctrl.ListProductReviews)
	router.GET("/reviews/customer/:customerId", ctrl.ListCustomerReviews)
	router.GET("/reviews/search/:query", ctrl.SearchReviews)
	router.GET("/reviews/stats/:productId", ctrl.GetProductStats)
	router.GET("/reviews/:id", ctrl.GetReview)
	router.PUT("/reviews/:id", ctrl.UpdateReview)
	router.DELETE("/reviews/:id", ctrl.DeleteReview)
	router.POST("/reviews/:id/helpful", ctrl.MarkHelpful)
	router.PATCH("/reviews/:id/status", ctrl.ModerateReview)
	return router
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeReview(t *testing.T, w *httptest.ResponseRecorder) model.Review {
	var review model.Review
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &review))
	return review
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apperrors.ErrorResponse {
	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestReviewController_CreateReview_Success(t *testing.T) {
	router := setupReviewControllerTest(t, service.DefaultReviewPolicy())
	productID := uuid.NewString()

	w := doJSON(router, http.MethodPost, "/reviews", map[string]interface{}{
		"comment":   testComment,
		"rating":    4.5,
		"productId": productID,
		"images":    []string{"https://cdn.example.com/1.png"},
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	review := decodeReview(t, w)
	assert.Len(t, review.ID, 36)
	assert.Equal(t, 5, review.Rating)
	assert.Equal(t, "Review", review.Title)
	assert.Equal(t, model.ReviewStatusPending, review.Status)
	assert.Equal(t, productID, *review.ProductID)

	// camelCase wire format
	assert.Contains(t, w.Body.String(), `"helpfulVotes":0`)
	assert.Contains(t, w.Body.String(), `"verifiedPurchase":false`)
}

func TestReviewController_CreateReview_ValidationError(t *testing.T) {
	router := setupReviewControllerTest(t, service.DefaultReviewPolicy())

	tests := []struct {
		name  string
		body  interface{}
		field string
	}{
		{"short comment", map[string]interface{}{"comment": "too short", "rating": 3}, "comment"},
		{"rating out of range", map[string]interface{}{"comment": testComment, "rating": 7}, "rating"},
		{"bad image", map[string]interface{}{"comment": testComment, "rating": 3, "images": []string{"https://x.com/a.gif"}}, "images[0]"},
		{"missing rating", map[string]interface{}{"comment": testComment}, "rating"},
		{"missing comment", map[string]interface{}{"rating": 3}, "comment"},
		{"rating wrong type", `{"comment":"` + testComment + `","rating":"five"}`, "rating"},
		{"malformed body", `{"comment":`, "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(router, http.MethodPost, "/reviews", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, apperrors.ValidationInvalidInput, resp.Error)
			assert.Contains(t, resp.Fields, tt.field)
		})
	}
}

func TestReviewController_CreateReview_InvalidReference(t *testing.T) {
	router := setupReviewControllerTest(t, service.DefaultReviewPolicy())

	tests := []struct {
		name       string
		productID  string
		customerID string
		field      string
	}{
		{"malformed product", "42", uuid.NewString(), "productId"},
		{"malformed customer", uuid.NewString(), "not-an-id", "customerId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(router, http.MethodPost, "/reviews", map[string]interface{}{
				"comment":    testComment,
				"rating":     3,
				"productId":  tt.productID,
				"customerId": tt.customerID,
			})

			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, apperrors.ValidationInvalidID, resp.Error)
			assert.Equal(t, map[string]string{tt.field: "must be a valid identifier"}, resp.Fields)
		})
	}
}

func TestReviewController_CreateReview_Duplicate(t *testing.T) {
	policy := service.ReviewPolicy{DefaultStatus: model.ReviewStatusApproved, EnforceUniqueness: true}
	router := setupReviewControllerTest(t, policy)

	body := map[string]interface{}{
		"comment":    testComment,
		"rating":     5,
		"productId":  uuid.NewString(),
		"customerId": uuid.NewString(),
	}

	w := doJSON(router, http.MethodPost, "/reviews", body)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodPost, "/reviews", body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperrors.ReviewAlreadyExists, decodeError(t, w).Error)
}

func TestReviewController_GetUpdateDelete(t *testing.T) {
	router := setupReviewControllerTest(t, service.DefaultReviewPolicy())

	w := doJSON(router, http.MethodPost, "/reviews", map[string]interface{}{
		"comment": testComment,
		"rating":  2,
		"title":   "Okay-ish",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeReview(t, w)

	w = doJSON(router, http.MethodGet, "/reviews/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decodeReview(t, w).ID)

	w = doJSON(router, http.MethodPut, "/reviews/"+created.ID, map[string]interface{}{"rating": 4})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decodeReview(t, w)
	assert.Equal(t, 4, updated.Rating)
	assert.Equal(t, "Okay-ish", updated.Title)
	assert.Equal(t, testComment, updated.Comment)

	// 공개 수정 API로는 상태를 바꿀 수 없다
	w = doJSON(router, http.MethodPut, "/reviews/"+created.ID, map[string]interface{}{"status": "approved", "rating": 3})
	require.Equal(t, http.StatusOK, w.Code)
	updated = decodeReview(t, w)
	assert.Equal(t, 3, updated.Rating)
	assert.Equal(t, model.ReviewStatusPending, updated.Status)

	w = doJSON(router, http.MethodPatch, "/reviews/"+created.ID+"/status", map[string]interface{}{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).Fields, "status")

	w = doJSON(router, http.MethodDelete, "/reviews/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "message")

	w = doJSON(router, http.MethodDelete, "/reviews/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.ReviewNotFound, decodeError(t, w).Error)

	w = doJSON(router, http.MethodGet, "/reviews/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, http.MethodPut, "/reviews/"+uuid.NewString(), map[string]interface{}{"rating": 4})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReviewController_MalformedID(t *testing.T) {
	router := setupReviewControllerTest(t, service.DefaultReviewPolicy())

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/reviews/123"},
		{http.MethodDelete, "/reviews/123"},
		{http.MethodGet, "/reviews/product/123"},
		{http.MethodGet, "/reviews/customer/123"},
		{http.MethodGet, "/reviews/stats/123"},
	}

	for _, p := range paths {
		w := doJSON(router, p.method, p.path, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, p.path)
		assert.Equal(t, apperrors.ValidationInvalidID, decodeError(t, w).Error, p.path)
	}
}

func TestReviewController_ListsAndSearch(t *testing.T) {
	router := setupReviewControllerTest(t, service.DefaultReviewPolicy())
	productID := uuid.NewString()
	customerID := uuid.NewString()

	for _, title := range []string{"Gold hoops", "Silver chain"} {
		w := doJSON(router, http.MethodPost, "/reviews", map[string]interface{}{
			"comment":    testComment,
			"rating":     4,
			"title":      title,
			"productId":  productID,
			"customerId": customerID,
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	var reviews []model.Review

	w := doJSON(router, http.MethodGet, "/reviews", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reviews))
	assert.Len(t, reviews, 2)

	w = doJSON(router, http.MethodGet, "/reviews/product/"+productID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reviews))
	assert.Len(t, reviews, 2)

	w = doJSON(router, http.MethodGet, "/reviews/customer/"+customerID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reviews))
	assert.Len(t, reviews, 2)

	w = doJSON(router, http.MethodGet, "/reviews/search/GOLD", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reviews))
	require.Len(t, reviews, 1)
	assert.Equal(t, "Gold hoops", reviews[0].Title)

	// empty results are an empty array, not null
	w = doJSON(router, http.MethodGet, "/reviews/product/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
}

func TestReviewController_GetProductStats(t *testing.T) {
	policy := service.ReviewPolicy{DefaultStatus: model.ReviewStatusApproved, EnforceUniqueness: true}
	router := setupReviewControllerTest(t, policy)
	productID := uuid.NewString()

	w := doJSON(router, http.MethodGet, "/reviews/stats/"+productID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"averageRating":0,"totalReviews":0,"ratingDistribution":{}}`, w.Body.String())

	for _, rating := range []int{5, 5, 3} {
		w := doJSON(router, http.MethodPost, "/reviews", map[string]interface{}{
			"comment":   testComment,
			"rating":    rating,
			"productId": productID,
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w = doJSON(router, http.MethodGet, "/reviews/stats/"+productID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats model.ReviewStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.InDelta(t, 13.0/3.0, stats.AverageRating, 1e-9)
	assert.Equal(t, 3, stats.TotalReviews)
	assert.Equal(t, map[string]int{"5": 2, "3": 1}, stats.RatingDistribution)
}

func TestReviewController_MarkHelpfulAndModerate(t *testing.T) {
	router := setupReviewControllerTest(t, service.DefaultReviewPolicy())

	w := doJSON(router, http.MethodPost, "/reviews", map[string]interface{}{"comment": testComment, "rating": 5})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeReview(t, w)

	w = doJSON(router, http.MethodPost, "/reviews/"+created.ID+"/helpful", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decodeReview(t, w).HelpfulVotes)

	w = doJSON(router, http.MethodPatch, "/reviews/"+created.ID+"/status", map[string]interface{}{"status": "approved"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.ReviewStatusApproved, decodeReview(t, w).Status)

	w = doJSON(router, http.MethodPatch, "/reviews/"+created.ID+"/status", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).Fields, "status")

	w = doJSON(router, http.MethodPost, "/reviews/"+uuid.NewString()+"/helpful", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReviewController_ExportReviews(t *testing.T) {
	router := setupReviewControllerTest(t, service.DefaultReviewPolicy())

	w := doJSON(router, http.MethodPost, "/reviews", map[string]interface{}{"comment": testComment, "rating": 5})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodGet, "/reviews/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "id", rows[0][0])
}

type failingReviewService struct {
	service.ReviewService
	err error
}

func (s *failingReviewService) ListReviews(ctx context.Context) ([]model.Review, error) {
	return nil, s.err
}

func TestReviewController_InternalErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name string
		err  error
		code string
	}{
		{"store unreachable", errors.New("dial tcp 10.0.0.5:5432: connect: connection refused"), apperrors.InternalDatabaseError},
		{"unexpected", errors.New("boom"), apperrors.InternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := NewReviewController(&failingReviewService{err: tt.err}, nil)
			router := gin.New()
			router.GET("/reviews", ctrl.ListReviews)

			w := doJSON(router, http.MethodGet, "/reviews", nil)
			assert.Equal(t, http.StatusInternalServerError, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tt.code, resp.Error)
			assert.NotContains(t, resp.Message, "10.0.0.5")
		})
	}
}
