package errors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestParseError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		action     string
		wantStatus int
		wantCode   string
	}{
		{"nil", nil, "", http.StatusInternalServerError, InternalServerError},
		{"record not found", fmt.Errorf("lookup: %w", gorm.ErrRecordNotFound), "get review", http.StatusNotFound, ResourceNotFound},
		{"gorm duplicate", gorm.ErrDuplicatedKey, "create review", http.StatusConflict, ResourceAlreadyExists},
		{
			"postgres approved index",
			errors.New(`ERROR: duplicate key value violates unique constraint "idx_reviews_customer_product_approved" (SQLSTATE 23505)`),
			"update review", http.StatusConflict, ReviewAlreadyExists,
		},
		{
			"sqlite approved index",
			errors.New("UNIQUE constraint failed: reviews.customer_id, reviews.product_id"),
			"create review", http.StatusConflict, ReviewAlreadyExists,
		},
		{"conn done", fmt.Errorf("query: %w", sql.ErrConnDone), "list reviews", http.StatusInternalServerError, InternalDatabaseError},
		{"deadline", context.DeadlineExceeded, "list reviews", http.StatusInternalServerError, InternalDatabaseError},
		{"refused", errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), "stats", http.StatusInternalServerError, InternalDatabaseError},
		{"closed", errors.New("sql: database is closed"), "stats", http.StatusInternalServerError, InternalDatabaseError},
		{"other", errors.New("boom"), "create review", http.StatusInternalServerError, InternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ParseError(tt.err, tt.action)
			assert.Equal(t, tt.wantStatus, info.Status)
			assert.Equal(t, tt.wantCode, info.Code)
			assert.NotEmpty(t, info.Message)
		})
	}
}

func TestGetDefaultErrorMessage(t *testing.T) {
	assert.Contains(t, getDefaultErrorMessage("create review"), "등록")
	assert.Contains(t, getDefaultErrorMessage("update review"), "수정")
	assert.Contains(t, getDefaultErrorMessage("delete review"), "삭제")
	assert.Equal(t, "서버 오류가 발생했습니다. 잠시 후 다시 시도해주세요", getDefaultErrorMessage("search"))
}
