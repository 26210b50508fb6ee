package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/kiesman99/stereogram/internal/api"
	"github.com/kiesman99/stereogram/internal/stereogram"
	"github.com/kiesman99/stereogram/pkg/tile"
)

// Request limits
const (
	MaxUploadBytes  = 32 << 20
	MaxSampleSize   = 4096
	DefaultSampleWH = 400
)

// Server implements api.ServerInterface
type Server struct {
	startTime time.Time
	version   string
	runner    *stereogram.Runner
	logger    *log.Logger
}

// NewServer creates a new server instance. A nil runner generates without
// caching.
func NewServer(version string, runner *stereogram.Runner, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if runner == nil {
		runner = stereogram.NewRunner(nil, logger)
	}
	return &Server{
		startTime: time.Now(),
		version:   version,
		runner:    runner,
		logger:    logger,
	}
}

// GetHealth implements the health check endpoint
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	uptime := int(time.Since(s.startTime).Seconds())

	response := api.HealthResponse{
		Status:    api.Healthy,
		Timestamp: time.Now(),
		Uptime:    &uptime,
		Version:   &s.version,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("encoding health response", "err", err)
	}
}

// CreateStereogram renders the uploaded depth map as an autostereogram
func (s *Server) CreateStereogram(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set("X-Request-ID", requestID)

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, api.INVALIDREQUEST,
			"Expected a multipart/form-data body", &requestID,
			map[string]interface{}{"cause": err.Error()})
		return
	}
	defer r.MultipartForm.RemoveAll()

	body, field, err := bindStereogramForm(r.MultipartForm)
	if err != nil {
		s.writeValidationErrorResponse(w, field, err.Error(), &requestID)
		return
	}

	req, field, err := s.toRequest(body)
	if err != nil {
		s.writeValidationErrorResponse(w, field, err.Error(), &requestID)
		return
	}

	out, err := s.runner.Execute(r.Context(), req)
	if err != nil {
		s.handleGenerateError(w, err, &requestID)
		return
	}

	status := api.Miss
	if out.CacheHit {
		status = api.Hit
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Cache", string(status))
	w.Header().Set("Content-Length", strconv.Itoa(len(out.PNG)))

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out.PNG); err != nil {
		s.logger.Error("writing response", "request_id", requestID, "err", err)
	}
}

// GetSampleDepthMap serves the three-band sample depth map as PNG
func (s *Server) GetSampleDepthMap(w http.ResponseWriter, r *http.Request, params api.GetSampleDepthMapParams) {
	requestID := uuid.NewString()
	w.Header().Set("X-Request-ID", requestID)

	width, height := DefaultSampleWH, DefaultSampleWH
	if params.Width != nil {
		width = *params.Width
	}
	if params.Height != nil {
		height = *params.Height
	}
	if width < 1 || width > MaxSampleSize {
		s.writeValidationErrorResponse(w, "width", fmt.Sprintf("width must be between 1 and %d", MaxSampleSize), &requestID)
		return
	}
	if height < 1 || height > MaxSampleSize {
		s.writeValidationErrorResponse(w, "height", fmt.Sprintf("height must be between 1 and %d", MaxSampleSize), &requestID)
		return
	}

	data, err := tile.PNGBytes(stereogram.SampleDepthMap(width, height))
	if err != nil {
		s.handleGenerateError(w, &stereogram.EncodeError{Err: err}, &requestID)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Error("writing response", "request_id", requestID, "err", err)
	}
}

// HandleParamError reports parameters the router could not bind
func (s *Server) HandleParamError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := uuid.NewString()
	w.Header().Set("X-Request-ID", requestID)

	var paramErr *api.InvalidParamFormatError
	if errors.As(err, &paramErr) {
		s.writeValidationErrorResponse(w, paramErr.ParamName, err.Error(), &requestID)
		return
	}
	s.writeErrorResponse(w, http.StatusBadRequest, api.INVALIDREQUEST, err.Error(), &requestID, nil)
}

// bindStereogramForm reads the multipart form into the request body type.
// On failure it also returns the name of the offending field.
func bindStereogramForm(form *multipart.Form) (*api.CreateStereogramMultipartBody, string, error) {
	var body api.CreateStereogramMultipartBody

	depth := form.File["depth"]
	if len(depth) == 0 {
		return nil, "depth", errors.New("depth file is required")
	}
	body.Depth.InitFromMultipart(depth[0])

	if files := form.File["tile"]; len(files) > 0 {
		var f openapi_types.File
		f.InitFromMultipart(files[0])
		body.Tile = &f
	}

	var err error
	if body.TileMode, err = formValue[api.TileMode](form, "tile_mode"); err != nil {
		return nil, "tile_mode", err
	}
	if body.DepthScale, err = formValue[int](form, "depth_scale"); err != nil {
		return nil, "depth_scale", err
	}
	if body.Dots, err = formValue[int](form, "dots"); err != nil {
		return nil, "dots", err
	}
	if body.Seed, err = formValue[uint64](form, "seed"); err != nil {
		return nil, "seed", err
	}
	if body.TileWidth, err = formValue[int](form, "tile_width"); err != nil {
		return nil, "tile_width", err
	}
	if body.TileHeight, err = formValue[int](form, "tile_height"); err != nil {
		return nil, "tile_height", err
	}
	if body.SelfDivisor, err = formValue[int](form, "self_divisor"); err != nil {
		return nil, "self_divisor", err
	}
	return &body, "", nil
}

// formValue binds the first value of a form field; absent fields are nil
func formValue[T any](form *multipart.Form, name string) (*T, error) {
	values := form.Value[name]
	if len(values) == 0 || values[0] == "" {
		return nil, nil
	}
	var v T
	if err := runtime.BindStringToObject(values[0], &v); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return &v, nil
}

// toRequest converts the form body into a runner request. On failure it
// also returns the name of the offending field.
func (s *Server) toRequest(body *api.CreateStereogramMultipartBody) (stereogram.Request, string, error) {
	var req stereogram.Request

	mode := api.Random
	if body.Tile != nil {
		mode = api.Explicit
	}
	if body.TileMode != nil {
		mode = *body.TileMode
	}

	kind, err := tile.ParseKind(string(mode))
	if err != nil {
		return req, "tile_mode", fmt.Errorf("invalid tile_mode: %w", err)
	}
	if kind == tile.Explicit && body.Tile == nil {
		return req, "tile", errors.New("tile file is required when tile_mode is 'explicit'")
	}
	var opts stereogram.Options
	opts.Tile.Kind = kind

	fields := []struct {
		name string
		src  *int
		dst  *int
	}{
		{"depth_scale", body.DepthScale, &opts.DepthScale},
		{"dots", body.Dots, &opts.Dots},
		{"tile_width", body.TileWidth, &opts.TileWidth},
		{"tile_height", body.TileHeight, &opts.TileHeight},
		{"self_divisor", body.SelfDivisor, &opts.SelfDivisor},
	}
	for _, f := range fields {
		if f.src == nil {
			continue
		}
		if *f.src < 1 {
			return req, f.name, fmt.Errorf("%s must be positive", f.name)
		}
		*f.dst = *f.src
	}
	if body.Seed != nil {
		opts.Seed = *body.Seed
	}

	depth, err := body.Depth.Bytes()
	if err != nil {
		return req, "depth", fmt.Errorf("reading depth file: %w", err)
	}
	req.Depth = depth
	if opts.Tile.Kind == tile.Explicit {
		if req.Tile, err = body.Tile.Bytes(); err != nil {
			return req, "tile", fmt.Errorf("reading tile file: %w", err)
		}
	}
	req.Options = opts
	return req, "", nil
}

// handleGenerateError maps pipeline errors to API error responses
func (s *Server) handleGenerateError(w http.ResponseWriter, err error, requestID *string) {
	var decErr *stereogram.DecodeError
	if errors.As(err, &decErr) {
		code := api.DEPTHDECODEERROR
		if decErr.Input == stereogram.InputTile {
			code = api.TILEDECODEERROR
		}
		s.writeErrorResponse(w, http.StatusBadRequest, code, decErr.Error(), requestID, nil)
		return
	}

	if errors.Is(err, stereogram.ErrMissingTile) {
		s.writeValidationErrorResponse(w, "tile", err.Error(), requestID)
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		s.writeErrorResponse(w, http.StatusGatewayTimeout, api.INTERNALERROR,
			"Generation timed out", requestID, nil)
		return
	}

	s.logger.Error("generation failed", "request_id", *requestID, "err", err)
	s.writeErrorResponse(w, http.StatusInternalServerError, api.INTERNALERROR,
		"Internal server error", requestID, nil)
}

// writeErrorResponse writes a standard error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode api.ErrorCode, message string, requestID *string, details map[string]interface{}) {
	response := api.ErrorResponse{
		Error:     errorCode,
		Message:   message,
		RequestId: requestID,
	}

	if details != nil {
		response.Details = &details
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

// writeValidationErrorResponse writes a validation error response
func (s *Server) writeValidationErrorResponse(w http.ResponseWriter, field, message string, requestID *string) {
	response := api.ValidationErrorResponse{
		Error:     api.VALIDATIONERROR,
		Message:   message,
		RequestId: requestID,
		ValidationErrors: []api.ValidationError{
			{
				Field:   field,
				Message: message,
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(response)
}
