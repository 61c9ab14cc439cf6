package service

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/pubshare/internal/baas"
	_ "golang.org/x/image/webp"
)

var previewFormats = map[string]bool{"png": true, "jpeg": true, "gif": true, "webp": true}

// PreviewImageError reports a preview upload that is not a supported image.
type PreviewImageError struct {
	Name string
	Err  error
}

func (e *PreviewImageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s is not a supported image: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("%s is not a supported image", e.Name)
}

func (e *PreviewImageError) Unwrap() error {
	return ErrInvalidPreviewImage
}

// ImageInfo describes a decoded preview image header.
type ImageInfo struct {
	Format string
	Width  int
	Height int
}

// InspectPreviewImage decodes only the image header.
func InspectPreviewImage(file baas.File) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(file.Data))
	if err != nil {
		return ImageInfo{}, &PreviewImageError{Name: file.Name, Err: err}
	}
	if !previewFormats[format] {
		return ImageInfo{}, &PreviewImageError{Name: file.Name, Err: fmt.Errorf("format %s", format)}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ImageInfo{}, &PreviewImageError{Name: file.Name, Err: fmt.Errorf("empty dimensions")}
	}
	return ImageInfo{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// ValidatePreviewImages fails on the first file that is not an image.
func ValidatePreviewImages(files []baas.File) error {
	for _, f := range files {
		if _, err := InspectPreviewImage(f); err != nil {
			return err
		}
	}
	return nil
}
