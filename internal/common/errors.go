package common

import (
	"errors"
	"net/http"

	"gorm.io/gorm"
)

var (
	ErrNotFound   = errors.New("requested resource not found")
	ErrBadRequest = errors.New("bad request")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("resource conflict")
)

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrValidation) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrConflict) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
