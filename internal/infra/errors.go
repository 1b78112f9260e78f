package infra

import (
	"fmt"
	"net/http"
)

// ConnectivityError means the request never got a response: DNS, refused
// connection, reset, or a cancelled context.
type ConnectivityError struct {
	Method string
	Path   string
	Err    error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("backend: %s %s: sin conexion: %v", e.Method, e.Path, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// RequestError means the backend answered with a non-2xx status.
// Detail is the server-supplied message and may be empty.
type RequestError struct {
	Method     string
	Path       string
	StatusCode int
	Detail     string
}

func (e *RequestError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend: %s %s: %d: %s", e.Method, e.Path, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("backend: %s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// NotFound reports whether the backend rejected the request with 404.
func (e *RequestError) NotFound() bool { return e.StatusCode == http.StatusNotFound }
