package ioutils

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/spf13/afero"
	"golang.org/x/image/bmp"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"faces", "faces"},
		{"faces: set 1/2", "faces_ set 1_2"},
		{"a<b>c", "a_b_c"},
		{"pilot...", "pilot"},
		{"multiple   spaces", "multiple spaces"},
		{"trailing spaces   ", "trailing spaces"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := SanitizeFileName(tt.input); got != tt.want {
				t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestWriteFileCreatesParents(t *testing.T) {
	fs := afero.NewMemMapFs()
	ctx := context.Background()

	if err := WriteFile(ctx, fs, "/results/2024/run.csv", []byte("a,b\n")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	data, err := afero.ReadFile(fs, "/results/2024/run.csv")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "a,b\n" {
		t.Errorf("content = %q", data)
	}
	if !Exists(fs, "/results/2024/run.csv") || Exists(fs, "/results/2024") {
		t.Error("Exists() should only report regular files")
	}
}

func TestCopyFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/src.yaml", []byte("name: pilot\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFile(context.Background(), fs, "/src.yaml", "/dst.yaml"); err != nil {
		t.Fatalf("CopyFile() error = %v", err)
	}
	data, _ := afero.ReadFile(fs, "/dst.yaml")
	if string(data) != "name: pilot\n" {
		t.Errorf("copied content = %q", data)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := CopyFile(ctx, fs, "/src.yaml", "/other.yaml"); err == nil {
		t.Error("CopyFile() with cancelled context should fail")
	}
	if err := CopyFile(context.Background(), fs, "/missing", "/x"); err == nil {
		t.Error("CopyFile() of a missing file should fail")
	}
}

func TestImageService_Probe(t *testing.T) {
	fs := afero.NewMemMapFs()
	ctx := context.Background()
	svc := NewImageService(fs)

	if err := afero.WriteFile(fs, "/stim/a.png", encodePNG(t, 40, 30), 0644); err != nil {
		t.Fatal(err)
	}
	var bmpBuf bytes.Buffer
	if err := bmp.Encode(&bmpBuf, image.NewGray(image.Rect(0, 0, 8, 6))); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, "/stim/b.bmp", bmpBuf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, "/stim/notes.txt", []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path       string
		wantFormat string
		wantW      int
		wantH      int
		wantErr    bool
	}{
		{"/stim/a.png", "png", 40, 30, false},
		{"/stim/b.bmp", "bmp", 8, 6, false},
		{"/stim/notes.txt", "", 0, 0, true},
		{"/stim/missing.png", "", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			info, err := svc.Probe(ctx, tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Probe() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if info.Format != tt.wantFormat || info.Width != tt.wantW || info.Height != tt.wantH {
				t.Errorf("Probe() = %+v", info)
			}
		})
	}
}

func TestImageService_LoadAndFit(t *testing.T) {
	fs := afero.NewMemMapFs()
	svc := NewImageService(fs)
	if err := afero.WriteFile(fs, "/big.png", encodePNG(t, 300, 200), 0644); err != nil {
		t.Fatal(err)
	}

	img, format, err := svc.Load(context.Background(), "/big.png")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if format != "png" {
		t.Errorf("format = %q, want png", format)
	}

	fitted := svc.Fit(img, 100, 100)
	if b := fitted.Bounds(); b.Dx() != 100 || b.Dy() != 66 {
		t.Errorf("Fit() size = %dx%d, want 100x66", b.Dx(), b.Dy())
	}
	if same := svc.Fit(img, 1000, 1000); same != img {
		t.Error("Fit() should return images that already fit unchanged")
	}
}

func TestFitSize(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		maxW, maxH   int
		wantW, wantH int
	}{
		{"width limited", 1500, 1000, 1000, 1000, 1000, 666},
		{"height limited", 1000, 2000, 1000, 1000, 500, 1000},
		{"already fits", 800, 600, 1000, 1000, 800, 600},
		{"no bound", 800, 600, 0, 0, 800, 600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := FitSize(tt.w, tt.h, tt.maxW, tt.maxH)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("FitSize() = %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}
