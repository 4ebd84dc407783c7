// Package ioutils provides file system and image processing utilities.
//
// This package contains functions for:
//   - File copying and writing
//   - Filename sanitization for cross-platform compatibility
//   - Directory creation
//   - Image probing, decoding and scaling
//
// All file access goes through an afero.Fs. Production code passes
// afero.NewOsFs(); tests pass afero.NewMemMapFs().
//
// # File Operations
//
//	fs := afero.NewOsFs()
//
//	// Copy a file
//	err := ioutils.CopyFile(ctx, fs, "/stimuli/exp.yaml", "/results/exp.yaml")
//
//	// Write data to file, creating parent directories
//	err := ioutils.WriteFile(ctx, fs, "/results/run.csv", data)
//
// # Filename Sanitization
//
//	safe := ioutils.SanitizeFileName("faces: set 1/2") // Returns "faces_ set 1_2"
//
// # Image Processing
//
// The ImageService checks and prepares stimulus images:
//
//	svc := ioutils.NewImageService(fs)
//
//	info, err := svc.Probe(ctx, "/stimuli/a.webp") // format and size only
//	img, format, err := svc.Load(ctx, "/stimuli/a.webp")
//	fitted := svc.Fit(img, 1920, 1080)
package ioutils
