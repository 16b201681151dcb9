package errors

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"net/http"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo 에러 정보 구조
type ErrorInfo struct {
	Status  int    // HTTP 상태 코드
	Code    string // 에러 코드 (codes.go 참조)
	Message string // 사용자 친화적 메시지
}

// ParseError 서비스 계층에서 분류되지 않은 에러를 응답용 코드로 변환
// 보안상 민감한 정보(쿼리, 호스트 등)는 메시지에 포함하지 않는다
func ParseError(err error, action string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Status:  http.StatusInternalServerError,
			Code:    InternalServerError,
			Message: "서버 오류가 발생했습니다",
		}
	}

	errStrLower := strings.ToLower(err.Error())

	// 1. GORM 기본 에러
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Status:  http.StatusNotFound,
			Code:    ResourceNotFound,
			Message: "요청한 데이터를 찾을 수 없습니다",
		}
	}

	// 2. Unique constraint violation (23505 / sqlite UNIQUE)
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(errStrLower, "duplicate key") ||
		strings.Contains(errStrLower, "unique constraint") {
		return parseDuplicateKeyError(errStrLower)
	}

	// 3. 저장소 연결 에러
	if isConnectionError(err, errStrLower) {
		return ErrorInfo{
			Status:  http.StatusInternalServerError,
			Code:    InternalDatabaseError,
			Message: "데이터베이스에 연결할 수 없습니다. 잠시 후 다시 시도해주세요",
		}
	}

	// 4. 기본 내부 서버 오류
	return ErrorInfo{
		Status:  http.StatusInternalServerError,
		Code:    InternalServerError,
		Message: getDefaultErrorMessage(action),
	}
}

// parseDuplicateKeyError Unique constraint 위반 에러 파싱
func parseDuplicateKeyError(errLower string) ErrorInfo {
	if strings.Contains(errLower, "idx_reviews_customer_product_approved") ||
		(strings.Contains(errLower, "reviews") && strings.Contains(errLower, "customer_id")) {
		return ErrorInfo{
			Status:  http.StatusConflict,
			Code:    ReviewAlreadyExists,
			Message: "이미 이 상품에 승인된 리뷰가 있습니다",
		}
	}

	return ErrorInfo{
		Status:  http.StatusConflict,
		Code:    ResourceAlreadyExists,
		Message: "이미 존재하는 데이터입니다",
	}
}

func isConnectionError(err error, errLower string) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return strings.Contains(errLower, "connection refused") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "database is closed") ||
		strings.Contains(errLower, "timeout")
}

// getDefaultErrorMessage 작업에 따른 기본 에러 메시지
func getDefaultErrorMessage(action string) string {
	actionLower := strings.ToLower(action)

	if strings.Contains(actionLower, "create") || strings.Contains(actionLower, "등록") {
		return "등록 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
	}
	if strings.Contains(actionLower, "update") || strings.Contains(actionLower, "수정") {
		return "수정 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
	}
	if strings.Contains(actionLower, "delete") || strings.Contains(actionLower, "삭제") {
		return "삭제 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
	}

	return "서버 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
}

// ParseAndRespond 에러를 파싱하여 응답 반환 (헬퍼 함수)
// controller에서 간편하게 사용할 수 있도록
func ParseAndRespond(c interface{ JSON(int, interface{}) }, err error, action string) {
	errorInfo := ParseError(err, action)
	c.JSON(errorInfo.Status, ErrorResponse{
		Error:   errorInfo.Code,
		Message: errorInfo.Message,
	})
}
