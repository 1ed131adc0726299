package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// tarArchiver re-reads the file for each pass since tar streams cannot seek
// back once compressed.
type tarArchiver struct {
	path   string
	format Format
}

func openTar(path string, format Format) (*tarArchiver, error) {
	t := &tarArchiver{path: path, format: format}
	// Read the first header so garbage is rejected at open time.
	err := t.walk(func(*tar.Header, io.Reader) error { return errStopWalk })
	if err != nil && !errors.Is(err, errStopWalk) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return t, nil
}

var errStopWalk = errors.New("stop walk")

func (t *tarArchiver) walk(fn func(hdr *tar.Header, r io.Reader) error) error {
	f, err := os.Open(t.path)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	switch t.format {
	case FormatTarGz:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return err
		}
		defer gz.Close()
		r = gz
	case FormatTarZst:
		zr, err := zstd.NewReader(f)
		if err != nil {
			return err
		}
		defer zr.Close()
		r = zr
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if hdr.Typeflag == tar.TypeXGlobalHeader {
			continue
		}
		if err := fn(hdr, tr); err != nil {
			return err
		}
	}
}

func (t *tarArchiver) Entries() ([]string, error) {
	var entries []string
	err := t.walk(func(hdr *tar.Header, _ io.Reader) error {
		name := hdr.Name
		if hdr.Typeflag == tar.TypeDir && !strings.HasSuffix(name, "/") {
			name += "/"
		}
		entries = append(entries, name)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return entries, nil
}

func (t *tarArchiver) Extract(destDir string) error {
	return t.walk(func(hdr *tar.Header, r io.Reader) error {
		target, err := safeTarget(destDir, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("creating directory: %w", err)
			}
		case tar.TypeReg:
			return writeEntry(target, func(out *os.File) error {
				_, err := io.Copy(out, r)
				return err
			})
		case tar.TypeSymlink, tar.TypeLink:
			return fmt.Errorf("%w: link %q", ErrUnsafeEntry, hdr.Name)
		}
		return nil
	})
}

func (t *tarArchiver) Close() error { return nil }
