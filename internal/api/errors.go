package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized means the credential is missing, expired or rejected.
	// Callers route the user back to sign in.
	ErrUnauthorized = errors.New("session expired")
	// ErrNotFound is matched by StatusError for 404 responses.
	ErrNotFound = errors.New("not found")
	// ErrMediaTooLarge is returned before upload for files over MaxMediaSize.
	ErrMediaTooLarge = errors.New("file size must be less than 50MB")
	// ErrMediaType is returned before upload for unsupported media types.
	ErrMediaType = errors.New("only JPEG, PNG images and MP4, WebM videos are allowed")
)

// StatusError is a non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap maps well-known status codes to sentinels.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}
