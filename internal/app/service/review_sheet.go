package service

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ikkim/catalog-review-backend/internal/app/model"
	"github.com/xuri/excelize/v2"
)

const reviewSheetName = "Reviews"

// 시트 컬럼 (헤더 이름으로 매칭하므로 순서는 바뀌어도 된다)
var reviewSheetHeaders = []string{
	"id",
	"productId",
	"customerId",
	"title",
	"comment",
	"rating",
	"status",
	"helpfulVotes",
	"images",
	"purchaseDate",
	"verifiedPurchase",
	"createdAt",
}

// ReviewSheetRow is one importable data row.
type ReviewSheetRow struct {
	Row   int // 1-based sheet row
	Input CreateReviewInput
}

// ReviewSheetRowError reports a row that could not be parsed.
type ReviewSheetRowError struct {
	Row int
	Err error
}

func (e *ReviewSheetRowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *ReviewSheetRowError) Unwrap() error {
	return e.Err
}

// WriteReviewsXLSX 리뷰 목록을 xlsx로 내보내기
func WriteReviewsXLSX(w io.Writer, reviews []model.Review) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), reviewSheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(reviewSheetHeaders))
	for i, h := range reviewSheetHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(reviewSheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetRowStyle(reviewSheetName, 1, 1, boldStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, review := range reviews {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			review.ID,
			derefString(review.ProductID),
			derefString(review.CustomerID),
			review.Title,
			review.Comment,
			review.Rating,
			string(review.Status),
			review.HelpfulVotes,
			strings.Join(review.Images, "\n"),
			review.PurchaseDate.UTC().Format(time.RFC3339),
			review.VerifiedPurchase,
			review.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := f.SetSheetRow(reviewSheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

// ReadReviewsXLSX reads create inputs from the first sheet. Columns are
// matched by header name; only comment and rating are required. Rows that
// cannot be parsed are returned as row errors and skipped.
func ReadReviewsXLSX(r io.Reader) ([]ReviewSheetRow, []*ReviewSheetRowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open XLSX: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, nil, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("no data found in XLSX file")
	}

	columns := make(map[string]int)
	for i, h := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"comment", "rating"} {
		if _, ok := columns[strings.ToLower(required)]; !ok {
			return nil, nil, fmt.Errorf("missing required column %q", required)
		}
	}

	cell := func(row []string, name string) string {
		i, ok := columns[strings.ToLower(name)]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var parsed []ReviewSheetRow
	var rowErrs []*ReviewSheetRowError

	for i, row := range rows[1:] {
		rowNum := i + 2
		if isBlankRow(row) {
			continue
		}

		input, err := parseSheetRow(row, cell)
		if err != nil {
			rowErrs = append(rowErrs, &ReviewSheetRowError{Row: rowNum, Err: err})
			continue
		}
		parsed = append(parsed, ReviewSheetRow{Row: rowNum, Input: input})
	}

	return parsed, rowErrs, nil
}

func parseSheetRow(row []string, cell func([]string, string) string) (CreateReviewInput, error) {
	rating, err := strconv.ParseFloat(cell(row, "rating"), 64)
	if err != nil {
		return CreateReviewInput{}, fmt.Errorf("rating %q is not a number", cell(row, "rating"))
	}

	input := CreateReviewInput{
		Comment:    cell(row, "comment"),
		Rating:     rating,
		ProductID:  optionalString(cell(row, "productId")),
		CustomerID: optionalString(cell(row, "customerId")),
		Title:      optionalString(cell(row, "title")),
	}

	if raw := cell(row, "images"); raw != "" {
		input.Images = strings.FieldsFunc(raw, func(r rune) bool {
			return r == '\n' || r == ','
		})
	}

	if raw := cell(row, "purchaseDate"); raw != "" {
		purchaseDate, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return CreateReviewInput{}, fmt.Errorf("purchaseDate %q is not RFC 3339", raw)
		}
		input.PurchaseDate = &purchaseDate
	}

	if raw := cell(row, "verifiedPurchase"); raw != "" {
		verified, err := strconv.ParseBool(raw)
		if err != nil {
			return CreateReviewInput{}, fmt.Errorf("verifiedPurchase %q is not a boolean", raw)
		}
		input.VerifiedPurchase = verified
	}

	return input, nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
