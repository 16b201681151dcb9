package service

import (
	"errors"
	"fmt"
)

var (
	ErrReviewNotFound  = errors.New("review not found")
	ErrDuplicateReview = errors.New("an approved review already exists for this customer and product")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrAlreadyVoted    = errors.New("helpful vote already recorded")
)

// ValidationError reports the first field that broke a write rule.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// InvalidArgumentError names the reference that is not a valid identifier.
// It matches ErrInvalidArgument with errors.Is.
type InvalidArgumentError struct {
	Field string
	Value string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("%v: %s %q is not a valid identifier", ErrInvalidArgument, e.Field, e.Value)
}

func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func invalidIDError(field, value string) error {
	return &InvalidArgumentError{Field: field, Value: value}
}
