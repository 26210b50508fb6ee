package tile

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoaderDownload(t *testing.T) {
	payload := []byte("\x89PNG fake")
	var gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Write(payload)
	}))
	defer srv.Close()

	l := NewLoader("", 5*time.Second)

	data, err := l.Load(context.Background(), srv.URL+"/depth.png")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("Got %q, want %q", data, payload)
	}
	if gotAgent != DefaultUserAgent {
		t.Errorf("User-Agent = %q, want %q", gotAgent, DefaultUserAgent)
	}

	if _, err := l.Load(context.Background(), srv.URL+"/missing.png"); err == nil {
		t.Error("Expected error for 404")
	}
}

func TestLoaderLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tile.png")
	if err := os.WriteFile(path, []byte("local"), 0644); err != nil {
		t.Fatal(err)
	}

	data, err := NewLoader("custom/1.0", time.Second).Load(context.Background(), path)
	if err != nil || string(data) != "local" {
		t.Errorf("Load = %q, %v", data, err)
	}
}

func TestIsRemote(t *testing.T) {
	testCases := []struct {
		src  string
		want bool
	}{
		{"http://example.com/a.png", true},
		{"https://example.com/a.png", true},
		{"a.png", false},
		{"/tmp/http:/a.png", false},
		{"ftp://example.com/a.png", false},
	}

	for _, tc := range testCases {
		if got := IsRemote(tc.src); got != tc.want {
			t.Errorf("IsRemote(%q) = %v, want %v", tc.src, got, tc.want)
		}
	}
}
