package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // gif decoding
	"image/jpeg"
	"image/png"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // webp decoding

	"cuenca-ubate/internal/domain/identification"
)

// ImageInfo is what Inspect learns about a picture
type ImageInfo struct {
	Width       int
	Height      int
	Format      string
	ContentType string
}

var formatContentTypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// ImageProcessor validates uploads and makes thumbnails
type ImageProcessor struct {
	maxWidth  int
	maxHeight int
	quality   int
}

// NewImageProcessor creates a new image processor
func NewImageProcessor(maxWidth, maxHeight, quality int) *ImageProcessor {
	if maxWidth <= 0 {
		maxWidth = 8000
	}
	if maxHeight <= 0 {
		maxHeight = 8000
	}
	if quality <= 0 || quality > 100 {
		quality = 85
	}

	return &ImageProcessor{
		maxWidth:  maxWidth,
		maxHeight: maxHeight,
		quality:   quality,
	}
}

// Inspect checks that data is a decodable picture within the size limits.
// Every failure wraps identification.ErrInvalidImage.
func (p *ImageProcessor) Inspect(data []byte, contentType string) (ImageInfo, error) {
	if len(data) == 0 {
		return ImageInfo{}, fmt.Errorf("%w: empty file", identification.ErrInvalidImage)
	}
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return ImageInfo{}, fmt.Errorf("%w: content type %s", identification.ErrInvalidImage, contentType)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("%w: %v", identification.ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ImageInfo{}, fmt.Errorf("%w: dimensions %dx%d", identification.ErrInvalidImage, cfg.Width, cfg.Height)
	}
	if cfg.Width > p.maxWidth || cfg.Height > p.maxHeight {
		return ImageInfo{}, fmt.Errorf("%w: dimensions %dx%d exceed maximum allowed %dx%d",
			identification.ErrInvalidImage, cfg.Width, cfg.Height, p.maxWidth, p.maxHeight)
	}

	return ImageInfo{
		Width:       cfg.Width,
		Height:      cfg.Height,
		Format:      format,
		ContentType: formatContentTypes[format],
	}, nil
}

// Thumbnail scales data to fit in maxWidth x maxHeight, never upscaling.
// PNG and GIF sources stay PNG, everything else becomes JPEG.
func (p *ImageProcessor) Thumbnail(data []byte, maxWidth, maxHeight int) ([]byte, string, error) {
	if maxWidth <= 0 || maxHeight <= 0 {
		return nil, "", errors.New("width and height must be positive")
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	b := src.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), maxWidth, maxHeight)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	contentType := "image/jpeg"
	switch strings.ToLower(format) {
	case "png", "gif":
		contentType = "image/png"
		err = png.Encode(&buf, dst)
	default:
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: p.quality})
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return buf.Bytes(), contentType, nil
}

// FitWithin scales srcWidth x srcHeight down to fit the box, keeping the aspect ratio
func FitWithin(srcWidth, srcHeight, maxWidth, maxHeight int) (int, int) {
	if srcWidth <= 0 || srcHeight <= 0 {
		return maxWidth, maxHeight
	}

	scale := min(float64(maxWidth)/float64(srcWidth), float64(maxHeight)/float64(srcHeight), 1.0)

	w := int(float64(srcWidth) * scale)
	h := int(float64(srcHeight) * scale)
	return max(w, 1), max(h, 1)
}
