package minisite

import (
	"errors"
	"fmt"
	"io"

	"minisite-go/internal/page"
)

// Open opens the file behind an asset for reading.
func (s *Service) Open(asset *Asset) (io.ReadCloser, error) {
	p, err := s.storage.LocalPath(asset.Record.Source)
	if err != nil {
		return nil, fmt.Errorf("resolving asset file: %w", err)
	}
	return s.fsmgr.Open(p)
}

// Render returns the content an asset is delivered with. Pages have their
// links rewritten for the asset's alias; a page that cannot be parsed is
// delivered unchanged. Other assets are returned as stored.
func (s *Service) Render(asset *Asset) ([]byte, error) {
	content, _, err := s.RenderPage(asset)
	return content, err
}

// RenderPage is Render that also reports whether links were rewritten. It
// is false for non-page assets and for pages served unchanged.
func (s *Service) RenderPage(asset *Asset) (content []byte, rewritten bool, err error) {
	f, err := s.Open(asset)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	content, err = io.ReadAll(f)
	if err != nil {
		return nil, false, fmt.Errorf("reading asset file: %w", err)
	}
	if !asset.IsDocument() {
		return content, false, nil
	}

	out, err := page.Rewrite(content, asset.Record.Filemime, page.NewContext(asset.Bag))
	if errors.Is(err, page.ErrUnparsableDocument) {
		s.logger.Warn("serving page without rewriting", "source", asset.Record.Source, "error", err)
		return content, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("rewriting %s: %w", asset.Record.Source, err)
	}
	return out, true, nil
}
