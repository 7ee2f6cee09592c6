package constant

import "net/http"

type ErrorType int

const (
	Successful ErrorType = iota
	ErrInternal
	ErrNotFound
	ErrInvalidRequest
	ErrUnauthorize
	ErrCredentialExists
	ErrInvalidCredentials
	ErrForbidden
	ErrConstraintViolation
	ErrTooManyRequests
	ErrMethodNotAllowed
)

var ErrorTypeMessage = map[ErrorType]string{
	Successful:             "success",
	ErrInternal:            "internal server error",
	ErrNotFound:            "data not found",
	ErrInvalidRequest:      "invalid request",
	ErrUnauthorize:         "could not validate credentials",
	ErrCredentialExists:    "email already registered",
	ErrInvalidCredentials:  "invalid credentials",
	ErrForbidden:           "insufficient permissions",
	ErrConstraintViolation: "request violates a data constraint",
	ErrTooManyRequests:     "too many requests",
	ErrMethodNotAllowed:    "method not allowed",
}

var ErrorTypeHTTPCode = map[ErrorType]int{
	Successful:             http.StatusOK,
	ErrInternal:            http.StatusInternalServerError,
	ErrNotFound:            http.StatusNotFound,
	ErrInvalidRequest:      http.StatusBadRequest,
	ErrUnauthorize:         http.StatusUnauthorized,
	ErrCredentialExists:    http.StatusBadRequest,
	ErrInvalidCredentials:  http.StatusUnauthorized,
	ErrForbidden:           http.StatusForbidden,
	ErrConstraintViolation: http.StatusBadRequest,
	ErrTooManyRequests:     http.StatusTooManyRequests,
	ErrMethodNotAllowed:    http.StatusMethodNotAllowed,
}

var ErrorTypeCode = map[ErrorType]string{
	Successful:             "0000",
	ErrInternal:            "0001",
	ErrNotFound:            "0002",
	ErrInvalidRequest:      "0003",
	ErrUnauthorize:         "0004",
	ErrCredentialExists:    "0005",
	ErrInvalidCredentials:  "0006",
	ErrForbidden:           "0007",
	ErrConstraintViolation: "0008",
	ErrTooManyRequests:     "0009",
	ErrMethodNotAllowed:    "0010",
}

// ErrorTypeName is the error "type" reported in the response envelope.
var ErrorTypeName = map[ErrorType]string{
	Successful:             "Success",
	ErrInternal:            "InternalError",
	ErrNotFound:            "NotFound",
	ErrInvalidRequest:      "ValidationError",
	ErrUnauthorize:         "Unauthorized",
	ErrCredentialExists:    "ConstraintViolation",
	ErrInvalidCredentials:  "Unauthorized",
	ErrForbidden:           "Forbidden",
	ErrConstraintViolation: "ConstraintViolation",
	ErrTooManyRequests:     "RateLimited",
	ErrMethodNotAllowed:    "MethodNotAllowed",
}
