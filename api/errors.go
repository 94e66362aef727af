package main

import (
	"net/http"
)

type errorKind int

const (
	kindValidation errorKind = iota + 1
	kindConflict
	kindAuth
	kindNotFound
)

// appError is an expected failure with a message that is safe to show to clients.
type appError struct {
	kind    errorKind
	message string
}

func (e *appError) Error() string {
	return e.message
}

func (e *appError) status() int {
	switch e.kind {
	case kindValidation:
		return http.StatusBadRequest
	case kindConflict:
		return http.StatusConflict
	case kindAuth:
		return http.StatusUnauthorized
	case kindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

var (
	errUserExists         = &appError{kind: kindConflict, message: "user already exists"}
	errInvalidCredentials = &appError{kind: kindAuth, message: "invalid credentials"}
	errInvalidToken       = &appError{kind: kindAuth, message: "invalid token"}
	errTaskNotFound       = &appError{kind: kindNotFound, message: "task not found"}
)

func validationError(message string) error {
	return &appError{kind: kindValidation, message: message}
}

func authError(message string) error {
	return &appError{kind: kindAuth, message: message}
}
