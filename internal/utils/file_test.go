package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/menta2k/pixuli/pkg/types"
)

func TestIsImageFile(t *testing.T) {
	cases := map[string]bool{
		"a.jpg":          true,
		"b.JPEG":         true,
		"c.tif":          true,
		"d.webp":         true,
		"notes.txt":      false,
		"no_ext":         false,
		"archive.png.gz": false,
	}
	for name, want := range cases {
		if got := IsImageFile(name); got != want {
			t.Errorf("IsImageFile(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestOutputPath(t *testing.T) {
	got := OutputPath("/in/photo.png", "/out", "_small", types.FormatJPEG)
	if got != filepath.Join("/out", "photo_small.jpg") {
		t.Errorf("got %s", got)
	}
	got = OutputPath("photo", "out", "", types.FormatWebP)
	if got != filepath.Join("out", "photo.webp") {
		t.Errorf("got %s", got)
	}
}

func TestListImageFiles(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := EnsureDir(sub); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{"b.png", "a.jpg", "readme.md", filepath.Join("nested", "c.gif")} {
		if err := os.WriteFile(filepath.Join(dir, p), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := ListImageFiles(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "a.jpg" {
		t.Errorf("top level listing = %v", files)
	}

	files, err = ListImageFiles(dir, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 3 {
		t.Errorf("recursive listing = %v", files)
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.onnx")
	if FileExists(path) {
		t.Error("missing file reported as existing")
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if !FileExists(path) {
		t.Error("existing file not found")
	}
	if FileExists(dir) {
		t.Error("directories are not files")
	}
	if !DirExists(dir) {
		t.Error("DirExists failed")
	}
}

func TestFormatFileSize(t *testing.T) {
	cases := map[int64]string{
		512:             "512 B",
		2048:            "2.0 KB",
		5 * 1024 * 1024: "5.0 MB",
	}
	for in, want := range cases {
		if got := FormatFileSize(in); got != want {
			t.Errorf("FormatFileSize(%d) = %s, want %s", in, got, want)
		}
	}
}
