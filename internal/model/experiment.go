package model

import "path/filepath"

// Experiment is a loaded experiment file: the scheduler configuration plus
// the presentation settings of the run.
type Experiment struct {
	// Name identifies the experiment in reports.
	Name string

	// Config is handed to the scheduler as is.
	Config *Configuration

	// Presentation holds timing and interaction settings.
	Presentation Presentation

	// BaseDir is the directory relative image files are resolved against.
	BaseDir string

	// Path is the file the experiment was loaded from, if any.
	Path string
}

// ResolvePath returns the absolute location of an image file.
func (e *Experiment) ResolvePath(img *Image) string {
	if filepath.IsAbs(img.File) || e.BaseDir == "" {
		return img.File
	}
	return filepath.Join(e.BaseDir, img.File)
}

// Images returns every configured image in group order.
func (e *Experiment) Images() []*Image {
	if e.Config == nil {
		return nil
	}
	out := make([]*Image, 0, e.Config.ImageCount())
	for _, g := range e.Config.Groups {
		out = append(out, g.Images...)
	}
	return out
}
