package session

import (
	"context"
	"image"

	ioutils "github.com/handiism/stimulus/internal/io"
	"github.com/handiism/stimulus/internal/model"
)

// Stimulus is a configured image prepared for presentation.
type Stimulus struct {
	Image *model.Image

	// Path is the resolved file location.
	Path string

	// Info holds the probed format and size. It is zero when Missing.
	Info ioutils.ImageInfo

	// Pixels is the decoded, screen-fitted image. It is nil unless pixel
	// preloading is enabled.
	Pixels image.Image

	// Missing is set when the file could not be read as an image.
	Missing bool
}

// Presenter puts exhibitions on screen.
//
// Show is called at the onset of every exhibition and Clear at its offset.
// Both run on the goroutine calling Manager.Run and should return quickly;
// the run timing does not include the time they take beyond the next
// deadline.
type Presenter interface {
	Show(ctx context.Context, ex model.Exhibition, stim *Stimulus) error
	Clear(ctx context.Context) error
}

// PresenterFuncs adapts plain functions to Presenter. Nil fields are no-ops.
type PresenterFuncs struct {
	ShowFunc  func(ctx context.Context, ex model.Exhibition, stim *Stimulus) error
	ClearFunc func(ctx context.Context) error
}

// Show implements Presenter.
func (p PresenterFuncs) Show(ctx context.Context, ex model.Exhibition, stim *Stimulus) error {
	if p.ShowFunc == nil {
		return nil
	}
	return p.ShowFunc(ctx, ex, stim)
}

// Clear implements Presenter.
func (p PresenterFuncs) Clear(ctx context.Context) error {
	if p.ClearFunc == nil {
		return nil
	}
	return p.ClearFunc(ctx)
}
