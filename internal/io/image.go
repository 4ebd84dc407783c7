package ioutils

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"  // GIF decoder registration
	_ "image/jpeg" // JPEG decoder registration
	_ "image/png"  // PNG decoder registration

	"github.com/spf13/afero"
	_ "golang.org/x/image/bmp" // BMP decoder registration
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // TIFF decoder registration
	_ "golang.org/x/image/webp" // WebP decoder registration
)

// ImageInfo describes a stimulus file without decoding its pixels.
type ImageInfo struct {
	Path   string
	Format string
	Width  int
	Height int
}

// String implements fmt.Stringer.
func (i ImageInfo) String() string {
	return fmt.Sprintf("%s (%s %dx%d)", i.Path, i.Format, i.Width, i.Height)
}

// ImageService provides image operations for stimulus files.
//
// ImageService is used to:
//   - Check that a file is a decodable image and read its size (Probe)
//   - Decode a stimulus ahead of presentation (Load)
//   - Scale a stimulus to fit the presentation screen (Fit)
//
// PNG, JPEG, GIF, BMP, TIFF and WebP files are recognised.
//
// Example usage:
//
//	svc := NewImageService(afero.NewOsFs())
//
//	info, err := svc.Probe(ctx, "/stimuli/faces/a.png")
//	img, _, err := svc.Load(ctx, "/stimuli/faces/a.png")
//	fitted := svc.Fit(img, 1920, 1080)
type ImageService struct {
	fs afero.Fs
}

// NewImageService creates a new ImageService reading from fs.
func NewImageService(fs afero.Fs) *ImageService {
	return &ImageService{fs: fs}
}

// Probe reads the image header of path and returns its format and
// dimensions. It fails when the file is missing or is not an image.
func (s *ImageService) Probe(ctx context.Context, path string) (ImageInfo, error) {
	if err := ctx.Err(); err != nil {
		return ImageInfo{}, err
	}

	f, err := s.fs.Open(path)
	if err != nil {
		return ImageInfo{}, err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("%s: %w", path, err)
	}

	return ImageInfo{Path: path, Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// Load decodes the image at path. It returns the decoded image and its
// format name.
func (s *ImageService) Load(ctx context.Context, path string) (image.Image, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	f, err := s.fs.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return img, format, nil
}

// FitSize returns the dimensions of a width x height image scaled down to
// fit within maxWidth x maxHeight. The aspect ratio is preserved and images
// that already fit keep their size.
func FitSize(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= 0 || height <= 0 || maxWidth <= 0 || maxHeight <= 0 {
		return width, height
	}
	if width > maxWidth || height > maxHeight {
		ratio := float64(width) / float64(height)
		if float64(maxWidth)/float64(maxHeight) > ratio {
			// Height is the limiting factor
			width = int(float64(maxHeight) * ratio)
			height = maxHeight
		} else {
			// Width is the limiting factor
			height = int(float64(maxWidth) / ratio)
			width = maxWidth
		}
	}
	return width, height
}

// Fit scales img down to fit within maxWidth x maxHeight using Catmull-Rom
// resampling. Images that already fit are returned unchanged.
func (s *ImageService) Fit(img image.Image, maxWidth, maxHeight int) image.Image {
	bounds := img.Bounds()
	width, height := FitSize(bounds.Dx(), bounds.Dy(), maxWidth, maxHeight)
	if width == bounds.Dx() && height == bounds.Dy() {
		return img
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
