package admin

import (
	"fmt"
	"net/http"
)

// NotFoundError is returned for unknown models, records or paths
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.What)
}

func (e *NotFoundError) HTTPStatus() int {
	return http.StatusNotFound
}

// BadRequestError is returned when submitted data cannot be applied to a model
type BadRequestError struct {
	Msg string
}

func (e *BadRequestError) Error() string {
	return e.Msg
}

func (e *BadRequestError) HTTPStatus() int {
	return http.StatusBadRequest
}

type UnauthorizedError struct{}

func (e *UnauthorizedError) Error() string {
	return "authentication required"
}

func (e *UnauthorizedError) HTTPStatus() int {
	return http.StatusUnauthorized
}

func badRequest(format string, args ...any) error {
	return &BadRequestError{Msg: fmt.Sprintf(format, args...)}
}
