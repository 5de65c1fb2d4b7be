package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// ===== Error model (attendance/wage/payment 共通) =====
type Code string

const (
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeNotFound         Code = "NOT_FOUND"
	CodeInvalidState     Code = "INVALID_STATE"
	CodeAlreadyClockedIn Code = "ALREADY_CLOCKED_IN"
	CodeAccountMismatch  Code = "ACCOUNT_MISMATCH"
	CodeUnauthorized     Code = "UNAUTHORIZED"
	CodeForbidden        Code = "FORBIDDEN"
	CodeInternal         Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func ErrInvalid(msg string) *APIError          { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError         { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrInvalidState(msg string) *APIError     { return &APIError{Code: CodeInvalidState, Message: msg} }
func ErrAlreadyClockedIn(msg string) *APIError { return &APIError{Code: CodeAlreadyClockedIn, Message: msg} }
func ErrAccountMismatch(msg string) *APIError  { return &APIError{Code: CodeAccountMismatch, Message: msg} }
func ErrInternal(msg string) *APIError         { return &APIError{Code: CodeInternal, Message: msg} }

// HasCode は err のチェーン中に code を持つ APIError があるか判定する。
func HasCode(err error, code Code) bool {
	var api *APIError
	if errors.As(err, &api) {
		return api.Code == code
	}
	return false
}

// AlreadyClockedIn は InvalidState の一種として扱う。
func IsInvalidState(err error) bool {
	return HasCode(err, CodeInvalidState) || HasCode(err, CodeAlreadyClockedIn)
}

func ToHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return http.StatusBadRequest
		case CodeNotFound:
			return http.StatusNotFound
		case CodeInvalidState, CodeAlreadyClockedIn:
			return http.StatusConflict
		case CodeAccountMismatch:
			return http.StatusUnprocessableEntity
		case CodeUnauthorized:
			return http.StatusUnauthorized
		case CodeForbidden:
			return http.StatusForbidden
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

// ---------- handler 用 JSON ----------

type ErrorDTO struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func Body(code Code, msg string) ErrorDTO {
	var e ErrorDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

// FromErr: APIError 以外は内部エラーとして詳細を隠す
func FromErr(err error) ErrorDTO {
	var api *APIError
	if errors.As(err, &api) {
		return Body(api.Code, api.Message)
	}
	return Body(CodeInternal, "internal error")
}
