package experiment

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	ioutils "github.com/handiism/stimulus/internal/io"
	"github.com/handiism/stimulus/internal/model"
)

// Load reads and parses the experiment file at path. Relative image paths
// resolve against the directory of the file.
func Load(fs afero.Fs, path string) (*model.Experiment, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("experiment: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("experiment: %s is a directory", path)
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("experiment: read %s: %w", path, err)
	}

	exp, err := NewParser().Parse(data, FormatFromPath(path), filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("experiment: %s: %w", path, err)
	}
	exp.Path = filepath.Clean(path)
	if exp.Name == "" {
		exp.Name = nameFromPath(path)
	}
	return exp, nil
}

// Save writes exp to path in the format given by the extension. Parent
// directories are created as needed.
func Save(ctx context.Context, fs afero.Fs, path string, exp *model.Experiment) error {
	data, err := NewParser().Marshal(exp, FormatFromPath(path))
	if err != nil {
		return fmt.Errorf("experiment: encode %s: %w", path, err)
	}
	if err := ioutils.WriteFile(ctx, fs, path, data); err != nil {
		return fmt.Errorf("experiment: write %s: %w", path, err)
	}
	return nil
}

func nameFromPath(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
