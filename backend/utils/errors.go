package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures so transports can map them without string matching.
type ErrorKind string

const (
	KindValidation        ErrorKind = "ValidationError"
	KindOracleUnavailable ErrorKind = "OracleUnavailable"
	KindMalformedOutput   ErrorKind = "MalformedOutput"
	KindGenerationFailed  ErrorKind = "GenerationFailed"
	KindNotFound          ErrorKind = "NotFound"
	KindDuplicateID       ErrorKind = "DuplicateId"
	KindStorage           ErrorKind = "StorageFailure"
)

type AppError struct {
	Kind    ErrorKind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *AppError) Unwrap() error { return e.Err }

func NewError(kind ErrorKind, msg string, err error) *AppError {
	return &AppError{Kind: kind, Message: msg, Err: err}
}

func ValidationErr(msg string, fields map[string]string) *AppError {
	return &AppError{Kind: KindValidation, Message: msg, Fields: fields}
}

func NotFoundErr(what string) *AppError {
	return &AppError{Kind: KindNotFound, Message: what + " not found"}
}

func StorageErr(op string, err error) *AppError {
	return &AppError{Kind: KindStorage, Message: fmt.Sprintf("storage: %s", op), Err: err}
}

// KindOf returns the kind of the first AppError in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

func IsKind(err error, kind ErrorKind) bool {
	var ae *AppError
	for err != nil {
		if !errors.As(err, &ae) {
			return false
		}
		if ae.Kind == kind {
			return true
		}
		err = ae.Err
	}
	return false
}

// HTTPStatus maps an error to the status code the HTTP surface reports.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindDuplicateID:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
