// Package ioutils provides file system utilities for stimulus.
//
// This package contains functions for:
//   - File copying
//   - File writing
//   - Filename sanitization
//   - Directory creation
//
// Every function works on an afero.Fs so callers can swap the OS
// filesystem for an in-memory one.
package ioutils

import (
	"context"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"
)

// CopyFile copies a file from source to destination.
//
// The destination file is created if it doesn't exist, or truncated if it
// does. The context is checked before the copy starts.
//
// Example:
//
//	err := CopyFile(ctx, fs, "/stimuli/faces/a.png", "/backup/a.png")
func CopyFile(ctx context.Context, fs afero.Fs, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sourceFile, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := fs.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	_, err = io.Copy(destFile, sourceFile)
	return err
}

// WriteFile writes data to a file, creating it and its parent directories
// if necessary.
//
// The file is created with mode 0644. If the file already exists,
// it is truncated before writing.
//
// Example:
//
//	err := WriteFile(ctx, fs, "/results/faces_20240309-140507.csv", data)
func WriteFile(ctx context.Context, fs afero.Fs, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := EnsureDir(fs, filepath.Dir(path)); err != nil {
		return err
	}
	return afero.WriteFile(fs, path, data, 0644)
}

var (
	invalidChars  = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots  = regexp.MustCompile(`\.+$`)
	multipleSpace = regexp.MustCompile(`\s+`)
)

// SanitizeFileName removes or replaces characters that are invalid in file/folder names.
//
// The following transformations are applied:
//   - Invalid characters (<>:"/\|?* and control chars 0x00-0x1f) → underscore
//   - Trailing dots → removed (Windows limitation)
//   - Multiple whitespace → single space
//   - Trailing whitespace → removed
//
// Example:
//
//	SanitizeFileName("faces: set 1/2")  // Returns "faces_ set 1_2"
//	SanitizeFileName("pilot...")        // Returns "pilot"
func SanitizeFileName(name string) string {
	name = invalidChars.ReplaceAllString(name, "_")
	name = trailingDots.ReplaceAllString(name, "")
	name = multipleSpace.ReplaceAllString(name, " ")
	return strings.TrimRight(name, " ")
}

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x).
// If the directory already exists, no error is returned.
func EnsureDir(fs afero.Fs, path string) error {
	return fs.MkdirAll(path, 0755)
}

// Exists reports whether path names an existing regular file.
func Exists(fs afero.Fs, path string) bool {
	info, err := fs.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
