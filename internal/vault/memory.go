package vault

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"minisite-go/internal/minisite"
)

// MemoryVault is an in-memory implementation of the Vault interface.
// It stores all archives and metadata in memory, making it useful for testing.
// This implementation is safe for concurrent use.
type MemoryVault struct {
	name            string
	archives        map[string][]byte // archive ID -> archive bytes
	metadata        map[string][]byte // "siteID/name" -> metadata
	metadataVersion map[string]int64  // "siteID/name" -> version
	mu              sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:            name,
		archives:        make(map[string][]byte),
		metadata:        make(map[string][]byte),
		metadataVersion: make(map[string]int64),
	}
}

// metadataKey returns the map key for a site/name pair.
func metadataKey(siteID, name string) string {
	return siteID + "/" + name
}

// PutArchive stores an archive under its ID, replacing any previous copy.
func (m *MemoryVault) PutArchive(id string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}

	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.archives[id] = data
	return nil
}

// GetArchive retrieves an archive by ID.
func (m *MemoryVault) GetArchive(id string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.archives[id]
	if !ok {
		return fmt.Errorf("archive not found: %s", id)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}

	return nil
}

// DeleteArchive removes an archive. Missing archives are ignored.
func (m *MemoryVault) DeleteArchive(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.archives, id)
	return nil
}

// HasArchive reports whether an archive is stored. Used by tests.
func (m *MemoryVault) HasArchive(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.archives[id]
	return ok
}

// PutMetadata stores a named metadata item for a specific site.
func (m *MemoryVault) PutMetadata(siteID string, name string, r io.Reader, size int64, version int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read metadata: %w", err)
	}

	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := metadataKey(siteID, name)
	m.metadata[key] = data
	m.metadataVersion[key] = version
	return nil
}

// GetMetadataVersion returns the metadata version for a named item on a site.
// Returns 0 if no metadata has been stored for this site/name.
func (m *MemoryVault) GetMetadataVersion(siteID string, name string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.metadataVersion[metadataKey(siteID, name)], nil
}

// GetMetadata retrieves a named metadata item for a specific site.
func (m *MemoryVault) GetMetadata(siteID string, name string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key := metadataKey(siteID, name)
	data, ok := m.metadata[key]
	if !ok {
		return fmt.Errorf("metadata %q not found for site: %s", name, siteID)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	return nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup() error {
	return nil
}

// Compile-time check that MemoryVault implements minisite.Vault interface
var _ minisite.Vault = (*MemoryVault)(nil)
