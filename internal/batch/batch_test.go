package batch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/kiesman99/stereogram/internal/stereogram"
	"github.com/kiesman99/stereogram/pkg/tile"
)

func writeDepth(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := tile.PNGBytes(stereogram.SampleDepthMap(140, 70))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newBatch() *Batch {
	logger := log.New(io.Discard)
	b := New(stereogram.NewRunner(nil, logger), nil, logger)
	b.isTerminal = func() bool { return false }
	return b
}

func TestRunTileModes(t *testing.T) {
	dir := t.TempDir()
	depth := writeDepth(t, dir, "scene.png")
	tilePath := writeDepth(t, dir, "pattern.png")

	testCases := []struct {
		name       string
		tile       string
		wantPeriod int
	}{
		{"random", "", 100},
		{"self", SelfTile, 20},
		{"explicit", tilePath, 140},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := filepath.Join(dir, tc.name+"-out.png")
			res, err := newBatch().Run(context.Background(), Job{
				DepthPath: depth,
				TilePath:  tc.tile,
				OutPath:   out,
			})
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if res.Result.Period != tc.wantPeriod {
				t.Errorf("Period = %d, want %d", res.Result.Period, tc.wantPeriod)
			}

			data, err := os.ReadFile(out)
			if err != nil {
				t.Fatalf("Output not written: %v", err)
			}
			img, _, err := tile.Decode(data)
			if err != nil {
				t.Fatalf("Output is not an image: %v", err)
			}
			if b := img.Bounds(); b.Dx() != 140 || b.Dy() != 70 {
				t.Errorf("Output size = %v, want 140x70", b)
			}
		})
	}
}

func TestRunDefaultOutputName(t *testing.T) {
	src := t.TempDir()
	depth := writeDepth(t, src, "mountain.depth.png")
	work := t.TempDir()
	t.Chdir(work)

	res, err := newBatch().Run(context.Background(), Job{DepthPath: depth})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.OutPath != "mountain.depth.png" {
		t.Errorf("OutPath = %q, want mountain.depth.png", res.OutPath)
	}
	if _, err := os.Stat(filepath.Join(work, "mountain.depth.png")); err != nil {
		t.Errorf("Expected output in working directory: %v", err)
	}
}

func TestOutputPath(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	got, err := OutputPath("/data/maps/canyon.jpg", "")
	if err != nil || got != "canyon.png" {
		t.Errorf("OutputPath = %q, %v; want canyon.png", got, err)
	}
	if got, _ := OutputPath("canyon.jpg", "custom.png"); got != "custom.png" {
		t.Errorf("Explicit output should be kept, got %q", got)
	}
	if got, _ := OutputPath("canyon.jpg", Stdout); got != Stdout {
		t.Errorf("Stdout marker should be kept, got %q", got)
	}
	if got, _ := OutputPath("https://example.com/maps/ridge.webp?v=2", ""); got != "ridge.png" {
		t.Errorf("URL output = %q, want ridge.png", got)
	}
	if _, err := OutputPath("https://example.com/", ""); err == nil {
		t.Error("Expected error for URL without a file name")
	}
	if _, err := OutputPath("canyon.png", ""); err == nil {
		t.Error("Expected refusal to overwrite the depth map")
	}
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	depth := writeDepth(t, dir, "scene.png")

	b := newBatch()
	ctx := context.Background()

	if _, err := b.Run(ctx, Job{}); err == nil {
		t.Error("Expected error without depth path")
	}

	var decErr *stereogram.DecodeError
	_, err := b.Run(ctx, Job{DepthPath: filepath.Join(dir, "missing.png"), OutPath: filepath.Join(dir, "o.png")})
	if !errors.As(err, &decErr) || decErr.Input != stereogram.InputDepth {
		t.Errorf("Expected depth DecodeError, got %v", err)
	}

	_, err = b.Run(ctx, Job{DepthPath: depth, TilePath: filepath.Join(dir, "none.png"), OutPath: filepath.Join(dir, "o.png")})
	if !errors.As(err, &decErr) || decErr.Input != stereogram.InputTile {
		t.Errorf("Expected tile DecodeError, got %v", err)
	}

	var encErr *stereogram.EncodeError
	_, err = b.Run(ctx, Job{DepthPath: depth, OutPath: filepath.Join(dir, "no-such-dir", "o.png")})
	if !errors.As(err, &encErr) {
		t.Errorf("Expected EncodeError for unwritable output, got %v", err)
	}

	b.isTerminal = func() bool { return true }
	_, err = b.Run(ctx, Job{DepthPath: depth, OutPath: Stdout})
	if err == nil || !strings.Contains(err.Error(), "terminal") {
		t.Errorf("Expected terminal refusal, got %v", err)
	}
}

func TestRunRemoteDepth(t *testing.T) {
	data, err := tile.PNGBytes(stereogram.SampleDepthMap(90, 45))
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "remote.png")
	res, err := newBatch().Run(context.Background(), Job{
		DepthPath: srv.URL + "/scene.png",
		TilePath:  SelfTile,
		OutPath:   out,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Result.Image.Rect.Dx() != 90 {
		t.Errorf("Output width = %d, want 90", res.Result.Image.Rect.Dx())
	}
}
