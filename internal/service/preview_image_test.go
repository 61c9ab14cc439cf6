package service

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/pubshare/internal/baas"
)

func pngFile(t *testing.T, name string, w, h int) baas.File {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return baas.File{Name: name, ContentType: "image/png", Data: buf.Bytes()}
}

func TestInspectPreviewImage(t *testing.T) {
	info, err := InspectPreviewImage(pngFile(t, "cover.png", 4, 3))
	if err != nil {
		t.Fatalf("InspectPreviewImage: %v", err)
	}
	if info.Format != "png" || info.Width != 4 || info.Height != 3 {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestValidatePreviewImages(t *testing.T) {
	good := pngFile(t, "a.png", 2, 2)
	if err := ValidatePreviewImages([]baas.File{good, good}); err != nil {
		t.Fatalf("valid images rejected: %v", err)
	}
	if err := ValidatePreviewImages(nil); err != nil {
		t.Fatalf("no images should pass: %v", err)
	}

	err := ValidatePreviewImages([]baas.File{good, {Name: "b.pdf", Data: []byte("%PDF-1.4")}})
	if !errors.Is(err, ErrInvalidPreviewImage) {
		t.Fatalf("expected ErrInvalidPreviewImage, got %v", err)
	}
	var pe *PreviewImageError
	if !errors.As(err, &pe) || pe.Name != "b.pdf" {
		t.Fatalf("expected PreviewImageError for b.pdf, got %v", err)
	}
}
