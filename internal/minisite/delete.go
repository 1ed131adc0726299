package minisite

import "fmt"

// Delete removes an archive entirely: its asset records and files, its
// extraction directory, its vault copy and finally its record.
func (s *Service) Delete(archiveID string) error {
	arc, err := s.findArchive(archiveID)
	if err != nil {
		return err
	}
	assets, err := s.assetsOf(arc)
	if err != nil {
		return err
	}

	for _, a := range assets {
		if err := s.coordinator.DeleteAsset(a); err != nil {
			return fmt.Errorf("deleting asset %s: %w", a.Record.Source, err)
		}
	}

	// Directories holding only ignored files survive the per-asset pruning.
	dir, err := s.storage.LocalPath(s.coordinator.TargetURI(arc.ID))
	if err != nil {
		return fmt.Errorf("resolving extraction directory: %w", err)
	}
	if err := s.fsmgr.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing extraction directory: %w", err)
	}

	if err := s.vault.DeleteArchive(arc.ID); err != nil {
		return fmt.Errorf("removing archive from vault: %w", err)
	}
	if err := s.database.DeleteArchive(arc); err != nil {
		return err
	}

	s.logger.Info("archive deleted", "archive", arc.ID, "assets", len(assets))
	return nil
}
