package platform

import (
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

const (
	// MaxMediaSize is the upload ceiling for any attachment.
	MaxMediaSize = 10 * 1024 * 1024

	// MaxImageDimension is the largest edge allowed before downscaling.
	MaxImageDimension = 1080

	optimizedJPEGQuality = 85
)

var allowedMediaTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"video/mp4":  true,
}

// ValidateMedia checks that a media file exists, has an allowed MIME type
// and does not exceed the size ceiling. It runs before any network call.
func ValidateMedia(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("media file not found: %s", path)
	}

	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	if !allowedMediaTypes[mimeType] {
		return fmt.Errorf("unsupported media type %q for %s", mimeType, path)
	}

	if info.Size() > MaxMediaSize {
		return fmt.Errorf("media file exceeds %d bytes: %s (%d bytes)", MaxMediaSize, path, info.Size())
	}

	return nil
}

// IsImage reports whether the path looks like a still image we can optimize.
func IsImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

// OptimizeImage downscales an image that exceeds MaxImageDimension on either
// edge, preserving aspect ratio, and re-encodes it as JPEG. It returns the
// path to use for upload. Optimization is best-effort: on any failure the
// original path is returned unmodified.
func OptimizeImage(path string) string {
	f, err := os.Open(path)
	if err != nil {
		slog.Warn("image optimization skipped", "path", path, "error", err)
		return path
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		slog.Warn("image optimization skipped", "path", path, "error", err)
		return path
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= MaxImageDimension && h <= MaxImageDimension {
		return path
	}

	scale := float64(MaxImageDimension) / float64(w)
	if h > w {
		scale = float64(MaxImageDimension) / float64(h)
	}
	dw := int(float64(w) * scale)
	dh := int(float64(h) * scale)

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	optimized := strings.TrimSuffix(path, filepath.Ext(path)) + "_optimized.jpg"
	out, err := os.Create(optimized)
	if err != nil {
		slog.Warn("image optimization skipped", "path", path, "error", err)
		return path
	}
	defer out.Close()

	if err := jpeg.Encode(out, dst, &jpeg.Options{Quality: optimizedJPEGQuality}); err != nil {
		slog.Warn("image optimization failed", "path", path, "error", err)
		os.Remove(optimized)
		return path
	}

	slog.Debug("image optimized", "path", path, "optimized", optimized, "width", dw, "height", dh)
	return optimized
}
