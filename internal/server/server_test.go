package server

import (
	"bytes"
	"encoding/json"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kiesman99/stereogram/internal/api"
	"github.com/kiesman99/stereogram/internal/cache"
	"github.com/kiesman99/stereogram/internal/stereogram"
	"github.com/kiesman99/stereogram/pkg/tile"
)

var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// Test server setup
func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := log.New(io.Discard)
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := stereogram.NewRunner(c, logger)
	t.Cleanup(func() { runner.Close() })

	apiServer := NewServer("2.0.0-test", runner, logger)
	server := httptest.NewServer(NewRouter(apiServer, 30*time.Second))
	t.Cleanup(server.Close)
	return server
}

func depthPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	data, err := tile.PNGBytes(stereogram.SampleDepthMap(w, h))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

// multipartBody builds a form with the given files and fields
func multipartBody(t *testing.T, files map[string][]byte, fields map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range files {
		fw, err := mw.CreateFormFile(name, name+".png")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(data)
	}
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func postStereogram(t *testing.T, server *httptest.Server, files map[string][]byte, fields map[string]string) *http.Response {
	t.Helper()
	body, contentType := multipartBody(t, files, fields)
	resp, err := http.Post(server.URL+"/api/v1/stereogram", contentType, body)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	server := setupTestServer(t)

	resp, err := http.Get(server.URL + "/api/v1/health")
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", contentType)
	}

	var healthResp api.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&healthResp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if healthResp.Status != api.Healthy {
		t.Errorf("Expected status 'healthy', got %s", healthResp.Status)
	}

	if healthResp.Version == nil || *healthResp.Version != "2.0.0-test" {
		t.Errorf("Expected version '2.0.0-test', got %v", healthResp.Version)
	}

	if healthResp.Uptime == nil || *healthResp.Uptime < 0 {
		t.Errorf("Expected valid uptime, got %v", healthResp.Uptime)
	}

	if time.Since(healthResp.Timestamp) > time.Minute {
		t.Errorf("Timestamp seems too old: %v", healthResp.Timestamp)
	}
}

func TestLegacyHealthRedirect(t *testing.T) {
	server := setupTestServer(t)
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Get(server.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMovedPermanently {
		t.Errorf("Expected 301, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/api/v1/health" {
		t.Errorf("Unexpected redirect target %q", loc)
	}
}

func TestStereogramEndpoint_Success(t *testing.T) {
	server := setupTestServer(t)
	files := map[string][]byte{"depth": depthPNG(t, 240, 120)}
	fields := map[string]string{"seed": "9", "dots": "400"}

	resp := postStereogram(t, server, files, fields)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d. Body: %s", resp.StatusCode, string(body))
	}

	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected Content-Type image/png, got %s", ct)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header")
	}
	if got := resp.Header.Get("X-Cache"); got != "miss" {
		t.Errorf("Expected X-Cache miss, got %q", got)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	if len(imageData) < 8 || !bytes.Equal(imageData[:8], pngSignature) {
		t.Fatal("Response does not appear to be a valid PNG file")
	}
	img, _, err := tile.Decode(imageData)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != image.Rect(0, 0, 240, 120) {
		t.Errorf("Unexpected output bounds %v", img.Bounds())
	}

	again := postStereogram(t, server, files, fields)
	defer again.Body.Close()
	if got := again.Header.Get("X-Cache"); got != "hit" {
		t.Errorf("Expected X-Cache hit on repeat, got %q", got)
	}
	cached, _ := io.ReadAll(again.Body)
	if !bytes.Equal(cached, imageData) {
		t.Error("Cached response differs from the first response")
	}
}

func TestStereogramEndpoint_TileModes(t *testing.T) {
	server := setupTestServer(t)
	depth := depthPNG(t, 210, 140)
	pattern := depthPNG(t, 30, 30)

	testCases := []struct {
		name   string
		files  map[string][]byte
		fields map[string]string
	}{
		{"random", map[string][]byte{"depth": depth}, map[string]string{"tile_mode": "random", "tile_width": "50"}},
		{"self", map[string][]byte{"depth": depth}, map[string]string{"tile_mode": "self"}},
		{"explicit implied", map[string][]byte{"depth": depth, "tile": pattern}, nil},
		{"explicit", map[string][]byte{"depth": depth, "tile": pattern}, map[string]string{"tile_mode": "explicit"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postStereogram(t, server, tc.files, tc.fields)
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				t.Fatalf("Expected status 200, got %d. Body: %s", resp.StatusCode, string(body))
			}
		})
	}
}

func TestStereogramEndpoint_Errors(t *testing.T) {
	server := setupTestServer(t)
	depth := depthPNG(t, 60, 40)

	testCases := []struct {
		name           string
		files          map[string][]byte
		fields         map[string]string
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "Missing depth file",
			fields:         map[string]string{"seed": "1"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
		{
			name:           "Garbage depth file",
			files:          map[string][]byte{"depth": []byte("definitely not an image")},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "DEPTH_DECODE_ERROR",
		},
		{
			name:           "Garbage tile file",
			files:          map[string][]byte{"depth": depth, "tile": []byte("nope")},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "TILE_DECODE_ERROR",
		},
		{
			name:           "Explicit mode without tile",
			files:          map[string][]byte{"depth": depth},
			fields:         map[string]string{"tile_mode": "explicit"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
		{
			name:           "Unknown tile mode",
			files:          map[string][]byte{"depth": depth},
			fields:         map[string]string{"tile_mode": "plasma"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
		{
			name:           "Non-numeric depth scale",
			files:          map[string][]byte{"depth": depth},
			fields:         map[string]string{"depth_scale": "ten"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
		{
			name:           "Negative tile width",
			files:          map[string][]byte{"depth": depth},
			fields:         map[string]string{"tile_width": "-5"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postStereogram(t, server, tc.files, tc.fields)
			defer resp.Body.Close()

			if resp.StatusCode != tc.expectedStatus {
				responseBody, _ := io.ReadAll(resp.Body)
				t.Fatalf("Expected status %d, got %d. Body: %s", tc.expectedStatus, resp.StatusCode, string(responseBody))
			}

			var errorResp map[string]interface{}
			if err := json.NewDecoder(resp.Body).Decode(&errorResp); err != nil {
				t.Fatalf("Failed to decode error response: %v", err)
			}

			if errorCode, ok := errorResp["error"].(string); !ok || errorCode != tc.expectedError {
				t.Errorf("Expected error code %s, got %v", tc.expectedError, errorResp["error"])
			}
			if id, ok := errorResp["request_id"].(string); !ok || id != resp.Header.Get("X-Request-ID") {
				t.Errorf("Expected request_id to match header, got %v", errorResp["request_id"])
			}
		})
	}
}

func TestStereogramEndpoint_NotMultipart(t *testing.T) {
	server := setupTestServer(t)

	resp, err := http.Post(server.URL+"/api/v1/stereogram", "application/json", bytes.NewBufferString(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var errorResp api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errorResp); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest || errorResp.Error != api.INVALIDREQUEST {
		t.Errorf("Expected 400 INVALID_REQUEST, got %d %s", resp.StatusCode, errorResp.Error)
	}
}

func TestSampleDepthEndpoint(t *testing.T) {
	server := setupTestServer(t)

	testCases := []struct {
		name           string
		query          string
		expectedStatus int
		expectedBounds image.Rectangle
	}{
		{"defaults", "", http.StatusOK, image.Rect(0, 0, 400, 400)},
		{"sized", "?width=320&height=160", http.StatusOK, image.Rect(0, 0, 320, 160)},
		{"width only", "?width=64", http.StatusOK, image.Rect(0, 0, 64, 400)},
		{"too large", "?width=100000", http.StatusBadRequest, image.Rectangle{}},
		{"zero height", "?height=0", http.StatusBadRequest, image.Rectangle{}},
		{"not a number", "?width=wide", http.StatusBadRequest, image.Rectangle{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Get(server.URL + "/api/v1/samples/depth" + tc.query)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tc.expectedStatus {
				body, _ := io.ReadAll(resp.Body)
				t.Fatalf("Expected status %d, got %d. Body: %s", tc.expectedStatus, resp.StatusCode, body)
			}
			if tc.expectedStatus != http.StatusOK {
				var errorResp api.ValidationErrorResponse
				if err := json.NewDecoder(resp.Body).Decode(&errorResp); err != nil {
					t.Fatal(err)
				}
				if errorResp.Error != api.VALIDATIONERROR {
					t.Errorf("Expected VALIDATION_ERROR, got %s", errorResp.Error)
				}
				return
			}

			data, _ := io.ReadAll(resp.Body)
			img, format, err := tile.Decode(data)
			if err != nil || format != "png" {
				t.Fatalf("Expected PNG, got %s: %v", format, err)
			}
			if img.Bounds() != tc.expectedBounds {
				t.Errorf("Bounds = %v, want %v", img.Bounds(), tc.expectedBounds)
			}
		})
	}
}

func TestCORSHeaders(t *testing.T) {
	server := setupTestServer(t)

	req, err := http.NewRequest("OPTIONS", server.URL+"/api/v1/stereogram", nil)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200 for OPTIONS, got %d", resp.StatusCode)
	}

	expectedHeaders := map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type, X-API-Key",
	}

	for header, expectedValue := range expectedHeaders {
		actualValue := resp.Header.Get(header)
		if actualValue != expectedValue {
			t.Errorf("Expected %s: %s, got %s", header, expectedValue, actualValue)
		}
	}
}
