package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/klauspost/compress/zip"
)

// SampleSite is a minimal valid bundle: one root folder with an index page,
// a second page, a stylesheet and an image.
func SampleSite() map[string]string {
	return map[string]string{
		"site/index.html":      `<html><head><link rel="stylesheet" href="css/main.css"></head><body><a href="page1.html">Next</a><img src="images/x.png"></body></html>`,
		"site/page1.html":      `<html><body><p>Page one</p><a href="/index.html">Home</a></body></html>`,
		"site/css/main.css":    `body { color: red; }`,
		"site/images/x.png":    "\x89PNG\r\n\x1a\n",
		"site/docs/report.pdf": "%PDF-1.4",
	}
}

// WriteZip writes files into a zip archive named name inside dir and
// returns its path. Entries are written in sorted order; keys ending in "/"
// become directory entries.
func WriteZip(t *testing.T, dir, name string, files map[string]string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create zip: %v", err)
	}
	defer f.Close()

	names := make([]string, 0, len(files))
	for n := range files {
		names = append(names, n)
	}
	sort.Strings(names)

	zw := zip.NewWriter(f)
	for _, n := range names {
		w, err := zw.Create(n)
		if err != nil {
			t.Fatalf("failed to add %s: %v", n, err)
		}
		if _, err := w.Write([]byte(files[n])); err != nil {
			t.Fatalf("failed to write %s: %v", n, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to finish zip: %v", err)
	}
	return path
}

// WriteCorruptZip writes a valid-looking bundle whose second file fails its
// checksum, so extraction stops after site/index.html has been written.
func WriteCorruptZip(t *testing.T, dir, name string) string {
	t.Helper()

	files := SampleSite()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, n := range []string{"site/index.html", "site/docs/report.pdf"} {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: n, Method: zip.Store})
		if err != nil {
			t.Fatalf("failed to add %s: %v", n, err)
		}
		if _, err := w.Write([]byte(files[n])); err != nil {
			t.Fatalf("failed to write %s: %v", n, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to finish zip: %v", err)
	}

	data := bytes.Replace(buf.Bytes(), []byte(files["site/docs/report.pdf"]), []byte("%PDF-9.9"), 1)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write zip: %v", err)
	}
	return path
}
