package minisite

import (
	"fmt"
	"io"
	"os"

	"minisite-go/internal/database/sqlc"
)

// Restore re-extracts an archive from the vault, for example after the
// public files directory was lost, and re-applies its alias prefix.
// decryptCtx is required for archives stored encrypted; pass nil otherwise.
func (s *Service) Restore(archiveID string, decryptCtx DecryptionContext) ([]*Asset, error) {
	arc, err := s.findArchive(archiveID)
	if err != nil {
		return nil, err
	}
	if arc.Encrypted && decryptCtx == nil {
		return nil, fmt.Errorf("archive is encrypted but no passphrase was provided")
	}

	s.logger.Info("restore started", "archive", arc.ID)

	tmpPath, err := s.fetchArchive(arc, decryptCtx)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmpPath)

	assets, err := s.coordinator.Extract(ExtractRequest{Archive: arc, Path: tmpPath})
	if err != nil {
		return nil, err
	}

	if arc.AliasPrefix.Valid {
		prefix := arc.AliasPrefix.String
		if prefix == "" {
			prefix = "/"
		}
		if assets, err = s.SetAliasPrefix(arc.ID, prefix); err != nil {
			return nil, err
		}
	}

	s.logger.Info("archive restored", "archive", arc.ID, "assets", len(assets))
	return assets, nil
}

// fetchArchive writes the archive's plaintext from the vault to a temp file
// and returns its path.
func (s *Service) fetchArchive(arc *sqlc.Archive, decryptCtx DecryptionContext) (string, error) {
	f, err := os.CreateTemp("", "minisite-restore-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer f.Close()

	if arc.Encrypted {
		// Pipe vault output directly to the decryptor, no intermediate buffer.
		pr, pw := io.Pipe()
		vaultErrCh := make(chan error, 1)
		go func() {
			err := s.vault.GetArchive(arc.ID, pw)
			pw.CloseWithError(err)
			vaultErrCh <- err
		}()

		decryptErr := decryptCtx.Decrypt(pr, f)
		pr.CloseWithError(decryptErr) // unblock goroutine if Decrypt failed early
		vaultErr := <-vaultErrCh

		if decryptErr != nil {
			os.Remove(f.Name())
			return "", fmt.Errorf("decrypting archive: %w", decryptErr)
		}
		if vaultErr != nil {
			os.Remove(f.Name())
			return "", fmt.Errorf("retrieving archive from vault: %w", vaultErr)
		}
	} else {
		if err := s.vault.GetArchive(arc.ID, f); err != nil {
			os.Remove(f.Name())
			return "", fmt.Errorf("retrieving archive from vault: %w", err)
		}
	}

	return f.Name(), nil
}
