// Package media prepares image attachments for upload.
package media

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // WebP decode support
)

// DefaultMaxSide is the longest edge kept before downscaling.
const DefaultMaxSide = 1280

const jpegQuality = 85

// Attachment is an image ready to be uploaded.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
	Width       int
	Height      int
}

// Preparer loads and normalises attachments. Results are cached per path
// because the same files are uploaded once per recipient.
type Preparer struct {
	maxSide int

	mu    sync.Mutex
	cache map[string]*Attachment
}

// NewPreparer returns a Preparer that downscales images whose longest side
// exceeds maxSide. maxSide <= 0 uses DefaultMaxSide.
func NewPreparer(maxSide int) *Preparer {
	if maxSide <= 0 {
		maxSide = DefaultMaxSide
	}
	return &Preparer{maxSide: maxSide, cache: make(map[string]*Attachment)}
}

// Prepare reads the image at path. Oversized images are scaled down, and
// formats the platform does not accept (WebP) are re-encoded as JPEG.
func (p *Preparer) Prepare(path string) (*Attachment, error) {
	p.mu.Lock()
	if a, ok := p.cache[path]; ok {
		p.mu.Unlock()
		return a, nil
	}
	p.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read attachment: %w", err)
	}
	a, err := p.prepareBytes(filepath.Base(path), data)
	if err != nil {
		return nil, fmt.Errorf("prepare %s: %w", path, err)
	}

	p.mu.Lock()
	p.cache[path] = a
	p.mu.Unlock()
	return a, nil
}

func (p *Preparer) prepareBytes(name string, data []byte) (*Attachment, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	needsResize := w > p.maxSide || h > p.maxSide
	if !needsResize && (format == "jpeg" || format == "png" || format == "gif") {
		return &Attachment{Filename: name, ContentType: "image/" + format, Data: data, Width: w, Height: h}, nil
	}

	var out image.Image = img
	if needsResize {
		nw, nh := fit(w, h, p.maxSide)
		dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		out = dst
	}

	var buf bytes.Buffer
	switch format {
	case "png":
		if err := png.Encode(&buf, out); err != nil {
			return nil, err
		}
	case "gif":
		if err := gif.Encode(&buf, out, nil); err != nil {
			return nil, err
		}
	default:
		format = "jpeg"
		if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, err
		}
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ".jpg"
	}

	ob := out.Bounds()
	return &Attachment{
		Filename:    name,
		ContentType: "image/" + format,
		Data:        buf.Bytes(),
		Width:       ob.Dx(),
		Height:      ob.Dy(),
	}, nil
}

// fit scales (w, h) so the longest edge equals side, keeping the aspect ratio.
func fit(w, h, side int) (int, int) {
	if w >= h {
		nh := int(float64(h) * float64(side) / float64(w))
		if nh < 1 {
			nh = 1
		}
		return side, nh
	}
	nw := int(float64(w) * float64(side) / float64(h))
	if nw < 1 {
		nw = 1
	}
	return nw, side
}
