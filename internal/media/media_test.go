package media

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writeImage(t *testing.T, name string, w, h int, encode func(*bytes.Buffer, image.Image) error) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func encodePNG(b *bytes.Buffer, img image.Image) error { return png.Encode(b, img) }
func encodeJPEG(b *bytes.Buffer, img image.Image) error {
	return jpeg.Encode(b, img, nil)
}

func TestPrepare_SmallImageUnchanged(t *testing.T) {
	path := writeImage(t, "promo.png", 40, 20, encodePNG)
	orig, _ := os.ReadFile(path)

	a, err := NewPreparer(100).Prepare(path)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if !bytes.Equal(a.Data, orig) {
		t.Error("small image should be passed through")
	}
	if a.ContentType != "image/png" || a.Filename != "promo.png" {
		t.Errorf("got %s %s", a.Filename, a.ContentType)
	}
}

func TestPrepare_Downscales(t *testing.T) {
	path := writeImage(t, "banner.jpg", 400, 100, encodeJPEG)

	a, err := NewPreparer(200).Prepare(path)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if a.Width != 200 || a.Height != 50 {
		t.Errorf("size = %dx%d, want 200x50", a.Width, a.Height)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(a.Data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if format != "jpeg" || cfg.Width != 200 {
		t.Errorf("output = %s %dpx", format, cfg.Width)
	}
}

func TestPrepare_Cached(t *testing.T) {
	path := writeImage(t, "a.png", 10, 10, encodePNG)
	p := NewPreparer(0)
	first, err := p.Prepare(path)
	if err != nil {
		t.Fatal(err)
	}
	os.Remove(path)
	second, err := p.Prepare(path)
	if err != nil {
		t.Fatalf("cached Prepare: %v", err)
	}
	if first != second {
		t.Error("expected the cached attachment")
	}
}

func TestPrepare_NotAnImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	os.WriteFile(path, []byte("hello"), 0o644)
	if _, err := NewPreparer(0).Prepare(path); err == nil {
		t.Error("expected decode error")
	}
}

func TestFit(t *testing.T) {
	tests := []struct{ w, h, max, ww, wh int }{
		{400, 100, 200, 200, 50},
		{100, 400, 200, 50, 200},
		{3000, 1, 100, 100, 1},
	}
	for _, tt := range tests {
		w, h := fit(tt.w, tt.h, tt.max)
		if w != tt.ww || h != tt.wh {
			t.Errorf("fit(%d,%d,%d) = %d,%d want %d,%d", tt.w, tt.h, tt.max, w, h, tt.ww, tt.wh)
		}
	}
}
