// Package mcp implements the Model Context Protocol server exposing the
// conceptual retrieval system's search and taxonomy operations.
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/conceptrag/core/internal/resilience"
)

// Custom MCP error codes, reserved in the -32000..-32099 application range
// per the JSON-RPC spec.
const (
	ErrCodeIndexNotFound   = -32001
	ErrCodeEmbeddingFailed = -32002
	ErrCodeTimeout         = -32003
	ErrCodeNotFound        = -32004
	ErrCodeRateLimited     = -32005
	ErrCodeCircuitOpen     = -32006
	ErrCodeBulkheadFull    = -32007

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Sentinel errors for internal use.
var (
	ErrIndexNotFound    = errors.New("index not found")
	ErrEmbeddingFailed  = errors.New("embedding generation failed")
	ErrToolNotFound     = errors.New("tool not found")
	ErrInvalidParams    = errors.New("invalid parameters")
	ErrResourceNotFound = errors.New("resource not found")
)

// MCPError is the error shape every tool response uses: {code, message,
// context?}.
type MCPError struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Context map[string]string `json:"context,omitempty"`
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCPError, classifying resilience
// CoreErrors by Kind and falling back to context/sentinel matching for
// everything else.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var coreErr *resilience.CoreError
	if errors.As(err, &coreErr) {
		return mapCoreError(coreErr)
	}

	switch {
	case errors.Is(err, ErrIndexNotFound):
		return &MCPError{Code: ErrCodeIndexNotFound, Message: "No seeded collections found. Run the seed command first."}
	case errors.Is(err, ErrEmbeddingFailed):
		return &MCPError{Code: ErrCodeEmbeddingFailed, Message: "Embedding generation failed."}
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	case errors.Is(err, ErrToolNotFound):
		return &MCPError{Code: ErrCodeMethodNotFound, Message: "Tool not found."}
	case errors.Is(err, ErrInvalidParams):
		return &MCPError{Code: ErrCodeInvalidParams, Message: "Invalid parameters."}
	case errors.Is(err, ErrResourceNotFound):
		return &MCPError{Code: ErrCodeMethodNotFound, Message: "Resource not found."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// mapCoreError maps a resilience.CoreError's Kind to an MCP error code,
// carrying its Details through as the response's context field.
func mapCoreError(ce *resilience.CoreError) *MCPError {
	me := &MCPError{Message: ce.Message, Context: ce.Details}
	switch ce.Kind {
	case resilience.KindValidation:
		me.Code = ErrCodeInvalidParams
	case resilience.KindNotFound:
		me.Code = ErrCodeNotFound
	case resilience.KindTransient, resilience.KindTimeout:
		me.Code = ErrCodeTimeout
	case resilience.KindRateLimited:
		me.Code = ErrCodeRateLimited
	case resilience.KindCircuitOpen:
		me.Code = ErrCodeCircuitOpen
	case resilience.KindBulkheadFull:
		me.Code = ErrCodeBulkheadFull
	default:
		me.Code = ErrCodeInternalError
	}
	return me
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewNotFoundError creates an error for a missing entity (document, concept,
// category) referenced by name.
func NewNotFoundError(kind, name string) *MCPError {
	return &MCPError{Code: ErrCodeNotFound, Message: fmt.Sprintf("%s not found: %s", kind, name)}
}

// NewMethodNotFoundError creates an error for unknown methods/tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("Tool %q not found.", name)}
}
