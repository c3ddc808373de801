// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"strconv"
)

// =============================================================================
// ERROR CODES
// =============================================================================

// Error codes carried on Error. Backend-originated codes follow the
// server's ERR_xxxx taxonomy and are passed through verbatim; the client
// adds CodeNetworkError for failures that never produced a response.
const (
	CodeNetworkError  = "NETWORK_ERROR"
	CodeInternalError = "ERR_1000"
	CodeTimeout       = "ERR_1004"
	CodeModelNotFound = "ERR_2001"
)

// =============================================================================
// ERROR TYPE
// =============================================================================

// Error is a structured failure from the backend API. StatusCode is the
// HTTP status, or 0 for network-level failures (DNS, refused connection,
// timeout) that never reached the server.
type Error struct {
	Message    string
	StatusCode int
	ErrorCode  string
	Cause      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "HTTP " + strconv.Itoa(e.StatusCode)
	}
	if e.ErrorCode != "" {
		return "[" + e.ErrorCode + "] " + msg
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Sentinel errors for easy checking.
var (
	ErrBackendUnreachable = &Error{Message: "backend unreachable", ErrorCode: CodeNetworkError}
	ErrTimeout            = &Error{Message: "request timed out", ErrorCode: CodeNetworkError}
	ErrModelNotFound      = &Error{Message: "model not found", StatusCode: 404, ErrorCode: CodeModelNotFound}
)

// networkError wraps a transport-level failure that produced no response.
func networkError(msg string, cause error) *Error {
	return &Error{Message: msg, StatusCode: 0, ErrorCode: CodeNetworkError, Cause: cause}
}

// =============================================================================
// ERROR CLASSIFICATION
// =============================================================================

// IsNetworkError reports whether err is a transport-level failure with no
// HTTP response (status 0).
func IsNetworkError(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 0
	}
	return false
}

// IsClientError reports whether err carries a 4xx status.
func IsClientError(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500
	}
	return false
}

// IsServerError reports whether err carries a 5xx status.
func IsServerError(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	return false
}

// IsModelNotFound reports whether err indicates an unknown model.
func IsModelNotFound(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode == CodeModelNotFound || apiErr.StatusCode == 404
	}
	return errors.Is(err, ErrModelNotFound)
}
