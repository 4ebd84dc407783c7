package experiment

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"

	ioutils "github.com/handiism/stimulus/internal/io"
	"github.com/handiism/stimulus/internal/model"
)

// ErrNoImagesFound is returned when a scanned directory holds no decodable
// image.
var ErrNoImagesFound = errors.New("no images found in directory")

// Folder builds groups from directories of image files.
//
// Each regular file whose header decodes as an image becomes one Image with
// rate 1. Ids come from running counters, so scanning several directories
// with the same Folder yields ids that are unique across all of them.
//
// Example usage:
//
//	folder := NewFolder(afero.NewOsFs())
//
//	groups, err := folder.ScanGroups(ctx, "/stimuli")
//	if errors.Is(err, ErrNoImagesFound) {
//	    log.Fatal("nothing to show")
//	}
type Folder struct {
	fs      afero.Fs
	images  *ioutils.ImageService
	imageID int
	groupID int
}

// NewFolder creates a Folder reading from fs.
func NewFolder(fs afero.Fs) *Folder {
	return &Folder{fs: fs, images: ioutils.NewImageService(fs)}
}

// Scan returns the images found directly in dir, in lexical order.
func (f *Folder) Scan(ctx context.Context, dir string) ([]*model.Image, error) {
	entries, err := afero.ReadDir(f.fs, dir)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var images []*model.Image
	for _, entry := range entries {
		if !entry.Mode().IsRegular() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if _, err := f.images.Probe(ctx, path); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			continue
		}
		f.imageID++
		images = append(images, &model.Image{ID: f.imageID, File: path, Rate: 1})
	}

	if len(images) == 0 {
		return nil, ErrNoImagesFound
	}
	return images, nil
}

// ScanGroups turns every sub-directory of dir holding images into a Group
// named after it. Images directly in dir form a group named after dir.
func (f *Folder) ScanGroups(ctx context.Context, dir string) ([]*model.Group, error) {
	var groups []*model.Group

	if images, err := f.Scan(ctx, dir); err == nil {
		groups = append(groups, f.newGroup(filepath.Base(dir), images))
	} else if !errors.Is(err, ErrNoImagesFound) {
		return nil, err
	}

	entries, err := afero.ReadDir(f.fs, dir)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		images, err := f.Scan(ctx, filepath.Join(dir, entry.Name()))
		if errors.Is(err, ErrNoImagesFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		groups = append(groups, f.newGroup(entry.Name(), images))
	}

	if len(groups) == 0 {
		return nil, ErrNoImagesFound
	}
	return groups, nil
}

func (f *Folder) newGroup(name string, images []*model.Image) *model.Group {
	f.groupID++
	return &model.Group{ID: f.groupID, Name: name, Rate: 1, Images: images}
}

// Skeleton scans dir into a ready-to-edit experiment: one exhibition per
// image, random orders, probabilistic rates, no repeats, one second per
// image and half a second between images. Image paths are made relative to
// dir, so the experiment file belongs in dir.
func (f *Folder) Skeleton(ctx context.Context, name, dir string) (*model.Experiment, error) {
	groups, err := f.ScanGroups(ctx, dir)
	if err != nil {
		return nil, err
	}

	for _, g := range groups {
		for _, img := range g.Images {
			if rel, err := filepath.Rel(dir, img.File); err == nil {
				img.File = rel
			}
		}
	}

	cfg := &model.Configuration{
		IntergroupOrder:     model.OrderRandom,
		IntragroupOrder:     model.OrderRandom,
		IntergroupBehaviour: model.SelectOnEachShow,
		RateBehaviour:       model.RateProbabilistic,
		AllowImageRepeat:    false,
		Groups:              groups,
	}
	cfg.AmountOfExhibitions = cfg.ImageCount()

	if name == "" {
		name = filepath.Base(dir)
	}
	return &model.Experiment{
		Name:   name,
		Config: cfg,
		Presentation: model.Presentation{
			ShowTime:     time.Second,
			IntervalTime: 500 * time.Millisecond,
		},
		BaseDir: dir,
	}, nil
}
