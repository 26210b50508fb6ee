// Package api provides the types and chi routing for the stereogram HTTP API.
package api

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// Defines values for HealthResponseStatus.
const (
	Healthy   HealthResponseStatus = "healthy"
	Unhealthy HealthResponseStatus = "unhealthy"
)

// Defines values for ErrorCode.
const (
	INVALIDREQUEST   ErrorCode = "INVALID_REQUEST"
	VALIDATIONERROR  ErrorCode = "VALIDATION_ERROR"
	DEPTHDECODEERROR ErrorCode = "DEPTH_DECODE_ERROR"
	TILEDECODEERROR  ErrorCode = "TILE_DECODE_ERROR"
	INTERNALERROR    ErrorCode = "INTERNAL_ERROR"
)

// Defines values for TileMode.
const (
	Random   TileMode = "random"
	Self     TileMode = "self"
	Explicit TileMode = "explicit"
)

// Defines values for CacheStatus.
const (
	Hit  CacheStatus = "hit"
	Miss CacheStatus = "miss"
)

// ErrorCode is the machine-readable error identifier
type ErrorCode string

// TileMode selects where the repeating tile comes from
type TileMode string

// CacheStatus is the value of the X-Cache response header
type CacheStatus string

// HealthResponseStatus defines model for HealthResponse.Status.
type HealthResponseStatus string

// ErrorResponse defines model for ErrorResponse.
type ErrorResponse struct {
	Details   *map[string]interface{} `json:"details,omitempty"`
	Error     ErrorCode               `json:"error"`
	Message   string                  `json:"message"`
	RequestId *string                 `json:"request_id,omitempty"`
}

// ValidationErrorResponse defines model for ValidationErrorResponse.
type ValidationErrorResponse struct {
	Error            ErrorCode         `json:"error"`
	Message          string            `json:"message"`
	RequestId        *string           `json:"request_id,omitempty"`
	ValidationErrors []ValidationError `json:"validation_errors"`
}

// ValidationError describes one rejected field
type ValidationError struct {
	Code    *string `json:"code,omitempty"`
	Field   string  `json:"field"`
	Message string  `json:"message"`
}

// HealthResponse defines model for HealthResponse.
type HealthResponse struct {
	Status    HealthResponseStatus `json:"status"`
	Timestamp time.Time            `json:"timestamp"`
	Uptime    *int                 `json:"uptime,omitempty"`
	Version   *string              `json:"version,omitempty"`
}

// CreateStereogramMultipartBody is the multipart form of POST /stereogram.
type CreateStereogramMultipartBody struct {
	Depth       openapi_types.File  `json:"depth"`
	Tile        *openapi_types.File `json:"tile,omitempty"`
	TileMode    *TileMode           `json:"tile_mode,omitempty"`
	DepthScale  *int                `json:"depth_scale,omitempty"`
	Dots        *int                `json:"dots,omitempty"`
	Seed        *uint64             `json:"seed,omitempty"`
	TileWidth   *int                `json:"tile_width,omitempty"`
	TileHeight  *int                `json:"tile_height,omitempty"`
	SelfDivisor *int                `json:"self_divisor,omitempty"`
}

// GetSampleDepthMapParams defines parameters for GetSampleDepthMap.
type GetSampleDepthMapParams struct {
	Width  *int `form:"width,omitempty" json:"width,omitempty"`
	Height *int `form:"height,omitempty" json:"height,omitempty"`
}
