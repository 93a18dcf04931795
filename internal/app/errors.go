package app

import (
	"fmt"
	"net/http"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Error codes for the submission file taxonomy. Validation failures carry
// the field-keyed error map in Details.
const (
	CodeValidation       = "VALIDATION"
	CodeNotFound         = "NOT_FOUND"
	CodeUnsupportedStage = "UNSUPPORTED_STAGE"
	CodeGroupCapacity    = "GROUP_CAPACITY"
	CodeGroupConflict    = "GROUP_CONFLICT"
)

func validationError(fields map[string]string) *DomainError {
	return domainError(http.StatusBadRequest, CodeValidation, "submission file failed validation", fields)
}

func notFoundError(what string, id int64) *DomainError {
	return domainError(http.StatusNotFound, CodeNotFound, fmt.Sprintf("%s %d not found", what, id), nil)
}

func unsupportedStageError(stage string) *DomainError {
	return domainError(http.StatusInternalServerError, CodeUnsupportedStage, fmt.Sprintf("unrecognized file stage %q", stage), nil)
}

func groupCapacityError(variantGroupID int64) *DomainError {
	return domainError(http.StatusConflict, CodeGroupCapacity, fmt.Sprintf("variant group %d is full", variantGroupID), nil)
}

func groupConflictError() *DomainError {
	return domainError(http.StatusConflict, CodeGroupConflict, "files already belong to different variant groups", nil)
}
