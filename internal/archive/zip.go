package archive

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zip"
)

type zipArchiver struct {
	r *zip.ReadCloser
}

func openZip(path string) (*zipArchiver, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return &zipArchiver{r: r}, nil
}

func (z *zipArchiver) Entries() ([]string, error) {
	entries := make([]string, 0, len(z.r.File))
	for _, f := range z.r.File {
		entries = append(entries, f.Name)
	}
	return entries, nil
}

func (z *zipArchiver) Extract(destDir string) error {
	for _, f := range z.r.File {
		target, err := safeTarget(destDir, f.Name)
		if err != nil {
			return err
		}

		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("creating directory: %w", err)
			}
		case mode&os.ModeSymlink != 0:
			return fmt.Errorf("%w: symlink %q", ErrUnsafeEntry, f.Name)
		case mode.IsRegular():
			err := writeEntry(target, func(out *os.File) error {
				rc, err := f.Open()
				if err != nil {
					return err
				}
				defer rc.Close()
				_, err = io.Copy(out, rc)
				return err
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (z *zipArchiver) Close() error {
	return z.r.Close()
}
