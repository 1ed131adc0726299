package minisite

import (
	"database/sql"
	"fmt"
	"strings"

	"minisite-go/internal/archive"
	"minisite-go/internal/urlbag"
)

// SetAliasPrefix mounts every asset of an archive under prefix, so that the
// file rootFolder/path is published at prefix/rootFolder/path. prefix may be
// a relative path, a local path or an absolute URL on the site's base URL;
// "/" mounts the bundle at the site root.
func (s *Service) SetAliasPrefix(archiveID, prefix string) ([]*Asset, error) {
	arc, err := s.findArchive(archiveID)
	if err != nil {
		return nil, err
	}
	assets, err := s.assetsOf(arc)
	if err != nil {
		return nil, err
	}
	if len(assets) == 0 {
		return nil, fmt.Errorf("archive %s has no assets to alias", archiveID)
	}

	local, err := s.localPrefix(prefix)
	if err != nil {
		return nil, err
	}

	aliases := make(map[string]sql.NullString, len(assets))
	mounted := make([]*Asset, 0, len(assets))
	for _, a := range assets {
		bag, err := a.Bag.WithParentAlias(local)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAliasPrefix, err)
		}
		alias, _ := bag.Alias()
		if len(alias) > archive.MaxPathCeiling {
			return nil, fmt.Errorf("%w: alias %q is longer than %d characters", ErrInvalidAliasPrefix, alias, archive.MaxPathCeiling)
		}

		holder, err := s.database.FindAssetByAlias(alias)
		if err != nil {
			return nil, err
		}
		if holder != nil && holder.ArchiveID != arc.ID {
			return nil, fmt.Errorf("%w: %s is held by archive %s", ErrAliasInUse, alias, holder.ArchiveID)
		}

		aliases[a.Record.ID] = nullString(alias)
		a.Record.Alias = nullString(alias)
		mounted = append(mounted, &Asset{Record: a.Record, Archive: arc, Bag: bag})
	}

	if err := s.database.UpdateAliases(arc, nullString(local), aliases); err != nil {
		return nil, fmt.Errorf("updating aliases: %w", err)
	}

	s.logger.Info("alias prefix set", "archive", arc.ID, "prefix", local, "assets", len(mounted))
	return mounted, nil
}

// localPrefix normalizes an alias prefix to a local path without a trailing
// slash ("" for the site root). Prefixes inside the storage URL space are
// rejected: they would shadow the extracted files themselves.
func (s *Service) localPrefix(prefix string) (string, error) {
	trimmed := strings.TrimRight(prefix, "/")
	if trimmed == "" {
		return "", nil
	}

	local, err := urlbag.ToLocal(trimmed, s.rc.BaseURL(), s.storage)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAliasPrefix, err)
	}
	local = strings.TrimRight(local, "/")

	if assetRoot, ok := s.storage.URL(s.storage.URI(AssetDir)); ok {
		storageRoot := strings.TrimSuffix(assetRoot, "/"+AssetDir)
		if storageRoot != "" && (local == storageRoot || strings.HasPrefix(local, storageRoot+"/")) {
			return "", fmt.Errorf("%w: %s is inside the storage URL space %s", ErrInvalidAliasPrefix, local, storageRoot)
		}
	}
	return local, nil
}

// ClearAlias unmounts an archive. Its assets stay reachable by file URL.
func (s *Service) ClearAlias(archiveID string) error {
	arc, err := s.findArchive(archiveID)
	if err != nil {
		return err
	}
	if err := s.database.UpdateAliases(arc, sql.NullString{}, nil); err != nil {
		return fmt.Errorf("clearing aliases: %w", err)
	}
	s.logger.Info("alias prefix cleared", "archive", arc.ID)
	return nil
}

// FindByAlias returns the asset published at alias, or nil. alias may be a
// local path or an absolute URL on the site's base URL. A directory alias
// resolves to the index.html inside it.
func (s *Service) FindByAlias(alias string) (*Asset, error) {
	local, err := urlbag.ToLocal(alias, s.rc.BaseURL(), s.storage)
	if err != nil {
		return nil, err
	}

	record, err := s.database.FindAssetByAlias(local)
	if err != nil {
		return nil, err
	}
	if record == nil {
		record, err = s.database.FindAssetByAlias(strings.TrimRight(local, "/") + "/" + IndexFile)
		if err != nil {
			return nil, err
		}
	}
	if record == nil {
		return nil, nil
	}
	return s.wrap(record)
}

// FindIndexByPrefix returns the entry page of the bundle mounted at prefix,
// or nil.
func (s *Service) FindIndexByPrefix(prefix string) (*Asset, error) {
	local, err := s.localPrefix(prefix)
	if err != nil {
		return nil, err
	}
	arc, err := s.database.FindArchiveByAliasPrefix(local)
	if err != nil || arc == nil {
		return nil, err
	}

	assets, err := s.assetsOf(arc)
	if err != nil {
		return nil, err
	}
	for _, a := range assets {
		if a.IsIndex() {
			return a, nil
		}
	}
	return nil, nil
}
