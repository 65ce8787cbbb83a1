// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package contract defines the wire-level contract between the bridge and
// its clients: the closed error-code vocabulary, the failure envelope, and
// the file reference returned for staged payloads.
//
// Every failure a client sees carries exactly one Code. The vocabulary is
// closed: handlers map internal failures onto these codes, they never mint
// new ones.
package contract

import "fmt"

// Code identifies a failure category on the wire.
type Code string

// The closed error-code vocabulary.
const (
	// CodeNodeNotFound indicates a node path resolved to nothing.
	CodeNodeNotFound Code = "NODE_NOT_FOUND"

	// CodeParmNotFound indicates a parameter or attribute lookup failed.
	CodeParmNotFound Code = "PARM_NOT_FOUND"

	// CodeTypeMismatch indicates a value or operation does not fit the target type.
	CodeTypeMismatch Code = "TYPE_MISMATCH"

	// CodeCookError indicates node evaluation failed.
	CodeCookError Code = "COOK_ERROR"

	// CodeExtractionFailed indicates a bulk data extraction failed.
	CodeExtractionFailed Code = "EXTRACTION_FAILED"

	// CodeInvalidParams indicates the request was malformed or missing fields.
	CodeInvalidParams Code = "INVALID_PARAMS"

	// CodeNotFound indicates the route itself does not exist.
	CodeNotFound Code = "NOT_FOUND"

	// CodeInternalError indicates an unexpected failure inside the bridge.
	CodeInternalError Code = "INTERNAL_ERROR"

	// CodeHostUnavailable indicates the host executor is not running.
	CodeHostUnavailable Code = "HOST_UNAVAILABLE"

	// CodeTimeout indicates a host call did not complete within its deadline.
	CodeTimeout Code = "TIMEOUT"
)

// Error is a domain failure as seen by clients.
//
// Handlers return *Error instead of raising: an operation yields either a
// value or an *Error, never both. Context carries optional structured
// detail (the offending path, the expected type) and is omitted from the
// wire when empty.
type Error struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

// NewError creates an Error with the given code and message.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates an Error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithContext attaches a structured detail and returns the error for chaining.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Envelope is the JSON body sent for any failed operation.
type Envelope struct {
	Error   bool           `json:"error"`
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

// Envelope returns the wire form of the error.
func (e *Error) Envelope() Envelope {
	return Envelope{
		Error:   true,
		Code:    e.Code,
		Message: e.Message,
		Context: e.Context,
	}
}
