package model

import (
	"fmt"
	"path/filepath"
)

// Image represents a single stimulus file.
//
// Rate is the relative show-rate configured by the researcher. Within a
// group, an image with rate 2 is shown twice as often as one with rate 1.
// A rate of 0 keeps the image in the experiment file without ever showing it.
type Image struct {
	// File is the stimulus path as written in the experiment file.
	// Relative paths are resolved against the experiment directory.
	File string

	// ID is unique across the whole experiment and stable across runs.
	ID int

	// Rate is the configured relative weight.
	Rate int
}

// Name returns the base name of the image file.
func (i *Image) Name() string {
	return filepath.Base(i.File)
}

// String implements fmt.Stringer.
func (i *Image) String() string {
	return fmt.Sprintf("#%d %s", i.ID, i.Name())
}

// Group represents a named bucket of images sharing a show-rate.
//
// Images keeps the configured order. Sequential selection walks this order,
// so reordering the slice changes the produced sequence.
type Group struct {
	// Name must be non-empty and unique within an experiment.
	Name string

	// ID is unique within an experiment.
	ID int

	// Rate is the configured relative weight of the group.
	Rate int

	// Images holds at least one image in presentation order.
	Images []*Image
}

// ImageByID returns the image with the given id, or nil.
func (g *Group) ImageByID(id int) *Image {
	for _, img := range g.Images {
		if img.ID == id {
			return img
		}
	}
	return nil
}

// RateSum returns the sum of the rates of all images in the group.
func (g *Group) RateSum() int {
	sum := 0
	for _, img := range g.Images {
		sum += img.Rate
	}
	return sum
}

// String implements fmt.Stringer.
func (g *Group) String() string {
	return fmt.Sprintf("%s (%d images, rate %d)", g.Name, len(g.Images), g.Rate)
}
