package service

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ikkim/catalog-review-backend/internal/app/model"
	"github.com/ikkim/catalog-review-backend/pkg/util"
)

// Field rules shared by create and update.
const (
	commentRule      = "min=10,max=500"
	ratingRule       = "min=1,max=5"
	titleRule        = "min=3,max=100"
	statusRule       = "oneof=pending approved rejected"
	helpfulVotesRule = "min=0"
	imageRule        = "review_image"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation(imageRule, func(fl validator.FieldLevel) bool {
		return IsValidImageURL(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// IsValidImageURL accepts absolute http(s) URLs that end in .jpg, .jpeg or
// .png. The extension check is case-insensitive and applies to the whole
// URL, so a trailing query string is rejected.
func IsValidImageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	lower := strings.ToLower(raw)
	return strings.HasSuffix(lower, ".jpg") ||
		strings.HasSuffix(lower, ".jpeg") ||
		strings.HasSuffix(lower, ".png")
}

// ValidationReason renders a validator failure as a short field reason.
func ValidationReason(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if isString {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if isString {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case imageRule:
		return "must be an http(s) URL ending in .jpg, .jpeg or .png"
	default:
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
}

func checkField(field string, value interface{}, rule string) error {
	err := validate.Var(value, rule)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return &ValidationError{Field: field, Reason: ValidationReason(fieldErrs[0])}
	}
	return &ValidationError{Field: field, Reason: err.Error()}
}

func normalizeComment(comment string) (string, error) {
	comment = strings.TrimSpace(comment)
	if err := checkField("comment", comment, commentRule); err != nil {
		return "", err
	}
	return comment, nil
}

// normalizeRating rounds half up to the nearest integer and then applies
// the 1..5 range, so 0.5 is stored as 1 and 5.5 is rejected.
func normalizeRating(rating float64) (int, error) {
	if math.IsNaN(rating) || math.IsInf(rating, 0) {
		return 0, &ValidationError{Field: "rating", Reason: "must be a number"}
	}
	rounded := math.Floor(rating + 0.5)
	if err := checkField("rating", rounded, ratingRule); err != nil {
		return 0, err
	}
	return int(rounded), nil
}

func normalizeImages(images []string) (model.ImageList, error) {
	normalized := make(model.ImageList, 0, len(images))
	for i, image := range images {
		image = strings.TrimSpace(image)
		if err := checkField(fmt.Sprintf("images[%d]", i), image, imageRule); err != nil {
			return nil, err
		}
		normalized = append(normalized, image)
	}
	return normalized, nil
}

// normalizeTitle falls back to the default title when none is given.
func normalizeTitle(title *string) (string, error) {
	if title == nil || strings.TrimSpace(*title) == "" {
		return model.DefaultReviewTitle, nil
	}
	trimmed := strings.TrimSpace(*title)
	if err := checkField("title", trimmed, titleRule); err != nil {
		return "", err
	}
	return trimmed, nil
}

func checkStatus(status model.ReviewStatus) error {
	return checkField("status", string(status), statusRule)
}

func checkHelpfulVotes(votes int) error {
	return checkField("helpfulVotes", votes, helpfulVotesRule)
}

// normalizeRef validates an optional identifier reference. Blank values are
// treated as absent.
func normalizeRef(field string, ref *string) (*string, error) {
	if ref == nil {
		return nil, nil
	}
	value := strings.TrimSpace(*ref)
	if value == "" {
		return nil, nil
	}
	if !util.IsValidID(value) {
		return nil, invalidIDError(field, value)
	}
	return &value, nil
}

func requireID(field, id string) error {
	if !util.IsValidID(id) {
		return invalidIDError(field, id)
	}
	return nil
}
