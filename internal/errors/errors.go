/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package errors provides structured errors for querysync.

The errors package implements a small structured error system with:
  - Error categories (Syntax, Validation, Request, Preview)
  - Error codes for programmatic handling
  - User-friendly error messages with optional detail and hint
  - Error wrapping for root cause analysis

Error Categories:
  - SyntaxError: statements the translator refuses to parse
  - ValidationError: query models that cannot be used as-is
  - RequestError: malformed API or CLI input
  - PreviewError: failures while executing a preview query

Only UnsupportedStatement is produced by the translator itself. Every other
constructor is used by the surfaces built around it (CLI, shell, HTTP API).
*/
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error identifier.
type ErrorCode int

const (
	// Syntax errors (1000-1999)
	ErrCodeSyntax               ErrorCode = 1000
	ErrCodeUnsupportedStatement ErrorCode = 1001

	// Validation errors (6000-6999)
	ErrCodeValidation   ErrorCode = 6000
	ErrCodeInvalidQuery ErrorCode = 6001

	// Request errors (7000-7999)
	ErrCodeRequest        ErrorCode = 7000
	ErrCodeInvalidRequest ErrorCode = 7001

	// Preview errors (8000-8999)
	ErrCodePreview         ErrorCode = 8000
	ErrCodePreviewDisabled ErrorCode = 8001
	ErrCodePreviewFailed   ErrorCode = 8002
)

// Category represents the error category.
type Category string

const (
	CategorySyntax     Category = "SYNTAX"
	CategoryValidation Category = "VALIDATION"
	CategoryRequest    Category = "REQUEST"
	CategoryPreview    Category = "PREVIEW"
)

// QueryError represents a structured error in querysync.
type QueryError struct {
	Code     ErrorCode `json:"code"`
	Category Category  `json:"category"`
	Message  string    `json:"message"`
	Detail   string    `json:"detail,omitempty"`
	Hint     string    `json:"hint,omitempty"`
	Cause    error     `json:"-"`
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("ERROR %d (%s): %s - %s", e.Code, e.Category, e.Message, e.Detail)
	}
	return fmt.Sprintf("ERROR %d (%s): %s", e.Code, e.Category, e.Message)
}

// Unwrap returns the underlying cause.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// UserMessage returns a user-friendly error message.
func (e *QueryError) UserMessage() string {
	msg := fmt.Sprintf("ERROR: %s", e.Message)
	if e.Detail != "" {
		msg += fmt.Sprintf(" (%s)", e.Detail)
	}
	if e.Hint != "" {
		msg += fmt.Sprintf("\nHINT: %s", e.Hint)
	}
	return msg
}

// WithDetail adds detail to the error.
func (e *QueryError) WithDetail(detail string) *QueryError {
	e.Detail = detail
	return e
}

// WithHint adds a hint to the error.
func (e *QueryError) WithHint(hint string) *QueryError {
	e.Hint = hint
	return e
}

// WithCause adds a cause to the error.
func (e *QueryError) WithCause(cause error) *QueryError {
	e.Cause = cause
	return e
}

// ============================================================================
// Syntax Error Constructors
// ============================================================================

// NewSyntaxError creates a new syntax error.
func NewSyntaxError(message string) *QueryError {
	return &QueryError{
		Code:     ErrCodeSyntax,
		Category: CategorySyntax,
		Message:  message,
	}
}

// UnsupportedStatement creates the error returned when the input text is not
// a SELECT statement. leading is the first word of the rejected statement.
func UnsupportedStatement(leading string) *QueryError {
	return &QueryError{
		Code:     ErrCodeUnsupportedStatement,
		Category: CategorySyntax,
		Message:  "unsupported statement",
		Detail:   fmt.Sprintf("statement starts with %q", leading),
		Hint:     "Only SELECT statements can be edited",
	}
}

// ============================================================================
// Validation Error Constructors
// ============================================================================

// InvalidQuery creates an error for a query model that failed validation.
func InvalidQuery(problems []string) *QueryError {
	e := &QueryError{
		Code:     ErrCodeInvalidQuery,
		Category: CategoryValidation,
		Message:  "query is not valid",
	}
	if len(problems) > 0 {
		e.Detail = problems[0]
		if len(problems) > 1 {
			e.Detail = fmt.Sprintf("%s (and %d more)", problems[0], len(problems)-1)
		}
	}
	return e
}

// ============================================================================
// Request Error Constructors
// ============================================================================

// InvalidRequest creates an error for malformed API or CLI input.
func InvalidRequest(reason string) *QueryError {
	return &QueryError{
		Code:     ErrCodeInvalidRequest,
		Category: CategoryRequest,
		Message:  "invalid request",
		Detail:   reason,
	}
}

// ============================================================================
// Preview Error Constructors
// ============================================================================

// PreviewDisabled creates an error for preview calls without a database.
func PreviewDisabled() *QueryError {
	return &QueryError{
		Code:     ErrCodePreviewDisabled,
		Category: CategoryPreview,
		Message:  "preview is disabled",
		Hint:     "Set preview_db in the configuration file or QUERYSYNC_PREVIEW_DB",
	}
}

// PreviewFailed creates an error for a preview query that could not run.
func PreviewFailed(cause error) *QueryError {
	return &QueryError{
		Code:     ErrCodePreviewFailed,
		Category: CategoryPreview,
		Message:  "preview query failed",
		Detail:   cause.Error(),
		Cause:    cause,
	}
}

// ============================================================================
// Helper Functions
// ============================================================================

// asQueryError finds the first QueryError in err's chain.
func asQueryError(err error) (*QueryError, bool) {
	var e *QueryError
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsSyntaxError checks if an error is a syntax error.
func IsSyntaxError(err error) bool {
	if e, ok := asQueryError(err); ok {
		return e.Category == CategorySyntax
	}
	return false
}

// IsUnsupportedStatement checks if an error rejects a non-SELECT statement.
func IsUnsupportedStatement(err error) bool {
	return GetCode(err) == ErrCodeUnsupportedStatement
}

// IsPreviewError checks if an error is a preview error.
func IsPreviewError(err error) bool {
	if e, ok := asQueryError(err); ok {
		return e.Category == CategoryPreview
	}
	return false
}

// GetCode returns the error code if it's a QueryError, or 0 otherwise.
func GetCode(err error) ErrorCode {
	if e, ok := asQueryError(err); ok {
		return e.Code
	}
	return 0
}

// HTTPStatus maps an error to the status code the API responds with.
func HTTPStatus(err error) int {
	e, ok := asQueryError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch e.Category {
	case CategorySyntax, CategoryValidation:
		return http.StatusUnprocessableEntity
	case CategoryRequest:
		return http.StatusBadRequest
	case CategoryPreview:
		if e.Code == ErrCodePreviewDisabled {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// FormatError formats an error for user display.
func FormatError(err error) string {
	if e, ok := asQueryError(err); ok {
		return e.UserMessage()
	}
	return fmt.Sprintf("ERROR: %v", err)
}
