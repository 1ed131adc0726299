package vault

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testArchiveID = "11111111-1111-4111-8111-111111111111"

func TestNewFileSystemVault(t *testing.T) {
	t.Run("creates directory structure", func(t *testing.T) {
		tmpDir := t.TempDir()
		root := filepath.Join(tmpDir, "vault")

		v, err := NewFileSystemVault("test", root)
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}

		if _, err := os.Stat(filepath.Join(root, "archives")); err != nil {
			t.Errorf("archives directory not created: %v", err)
		}
		if _, err := os.Stat(filepath.Join(root, "metadata")); err != nil {
			t.Errorf("metadata directory not created: %v", err)
		}

		if v.name != "test" {
			t.Errorf("name = %q, want %q", v.name, "test")
		}
	})

	t.Run("works with existing directory", func(t *testing.T) {
		if _, err := NewFileSystemVault("test", t.TempDir()); err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}
	})
}

func TestFileSystemVault_PutArchive(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		data    string
		size    int64
		wantErr bool
	}{
		{
			name:    "store archive successfully",
			id:      testArchiveID,
			data:    "hello world",
			size:    11,
			wantErr: false,
		},
		{
			name:    "size mismatch",
			id:      testArchiveID,
			data:    "hello",
			size:    100,
			wantErr: true,
		},
		{
			name:    "empty archive",
			id:      testArchiveID,
			data:    "",
			size:    0,
			wantErr: false,
		},
		{
			name:    "id with separator",
			id:      "../escape",
			data:    "x",
			size:    1,
			wantErr: true,
		},
		{
			name:    "hidden id",
			id:      ".tmp-1",
			data:    "x",
			size:    1,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewFileSystemVault("test", t.TempDir())
			if err != nil {
				t.Fatalf("NewFileSystemVault() error = %v", err)
			}

			err = v.PutArchive(tt.id, strings.NewReader(tt.data), tt.size)
			if (err != nil) != tt.wantErr {
				t.Errorf("PutArchive() error = %v, wantErr %v", err, tt.wantErr)
			}

			archivePath := filepath.Join(v.archiveDir, filepath.Base(tt.id))
			data, readErr := os.ReadFile(archivePath)
			if tt.wantErr {
				if readErr == nil {
					t.Errorf("archive file %s written despite error", archivePath)
				}
				return
			}
			if readErr != nil {
				t.Fatalf("failed to read archive file: %v", readErr)
			}
			if string(data) != tt.data {
				t.Errorf("archive = %q, want %q", string(data), tt.data)
			}
		})
	}
}

func TestFileSystemVault_GetArchive(t *testing.T) {
	v, err := NewFileSystemVault("test", t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}

	t.Run("retrieve existing archive", func(t *testing.T) {
		data := "hello world"
		if err := v.PutArchive(testArchiveID, strings.NewReader(data), int64(len(data))); err != nil {
			t.Fatalf("PutArchive() error = %v", err)
		}

		var buf bytes.Buffer
		if err := v.GetArchive(testArchiveID, &buf); err != nil {
			t.Fatalf("GetArchive() error = %v", err)
		}
		if buf.String() != data {
			t.Errorf("archive = %q, want %q", buf.String(), data)
		}
	})

	t.Run("archive not found", func(t *testing.T) {
		var buf bytes.Buffer
		err := v.GetArchive("nonexistent", &buf)
		if err == nil {
			t.Fatal("GetArchive() expected error for nonexistent archive")
		}
		if !strings.Contains(err.Error(), "archive not found") {
			t.Errorf("error = %v, want error containing 'archive not found'", err)
		}
	})
}

func TestFileSystemVault_DeleteArchive(t *testing.T) {
	v, err := NewFileSystemVault("test", t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}

	if err := v.PutArchive(testArchiveID, strings.NewReader("data"), 4); err != nil {
		t.Fatalf("PutArchive() error = %v", err)
	}
	if err := v.DeleteArchive(testArchiveID); err != nil {
		t.Fatalf("DeleteArchive() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(v.archiveDir, testArchiveID)); !os.IsNotExist(err) {
		t.Errorf("archive file still present: %v", err)
	}

	if err := v.DeleteArchive(testArchiveID); err != nil {
		t.Errorf("DeleteArchive() of missing archive error = %v", err)
	}
}

func TestFileSystemVault_Metadata(t *testing.T) {
	v, err := NewFileSystemVault("test", t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}

	siteID := "site-123"
	name := "minisite.db"

	t.Run("missing metadata", func(t *testing.T) {
		var buf bytes.Buffer
		err := v.GetMetadata(siteID, name, &buf)
		if err == nil {
			t.Fatal("GetMetadata() expected error for nonexistent metadata")
		}
		if !strings.Contains(err.Error(), "not found") {
			t.Errorf("error = %v, want error containing 'not found'", err)
		}

		version, err := v.GetMetadataVersion(siteID, name)
		if err != nil {
			t.Fatalf("GetMetadataVersion() error = %v", err)
		}
		if version != 0 {
			t.Errorf("GetMetadataVersion() = %d, want 0", version)
		}
	})

	t.Run("overwrites and tracks version", func(t *testing.T) {
		for i, data := range []string{"version 1", "version 2"} {
			if err := v.PutMetadata(siteID, name, strings.NewReader(data), int64(len(data)), int64(i+1)); err != nil {
				t.Fatalf("PutMetadata() error = %v", err)
			}
		}

		content, err := os.ReadFile(filepath.Join(v.metadataDir, siteID, name))
		if err != nil {
			t.Fatalf("failed to read metadata file: %v", err)
		}
		if string(content) != "version 2" {
			t.Errorf("metadata = %q, want %q", string(content), "version 2")
		}

		var buf bytes.Buffer
		if err := v.GetMetadata(siteID, name, &buf); err != nil {
			t.Fatalf("GetMetadata() error = %v", err)
		}
		if buf.String() != "version 2" {
			t.Errorf("GetMetadata() = %q, want %q", buf.String(), "version 2")
		}

		version, err := v.GetMetadataVersion(siteID, name)
		if err != nil {
			t.Fatalf("GetMetadataVersion() error = %v", err)
		}
		if version != 2 {
			t.Errorf("GetMetadataVersion() = %d, want 2", version)
		}
	})
}

func TestFileSystemVault_ValidateSetup(t *testing.T) {
	t.Run("valid setup", func(t *testing.T) {
		v, err := NewFileSystemVault("test", t.TempDir())
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}

		if err := v.ValidateSetup(); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
	})

	t.Run("missing root directory", func(t *testing.T) {
		v := &FileSystemVault{
			name:        "test",
			root:        "/nonexistent/path",
			archiveDir:  "/nonexistent/path/archives",
			metadataDir: "/nonexistent/path/metadata",
		}

		if err := v.ValidateSetup(); err == nil {
			t.Error("ValidateSetup() expected error for missing root")
		}
	})

	t.Run("archives directory removed", func(t *testing.T) {
		v, err := NewFileSystemVault("test", t.TempDir())
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}
		if err := os.RemoveAll(v.archiveDir); err != nil {
			t.Fatal(err)
		}

		if err := v.ValidateSetup(); err == nil {
			t.Error("ValidateSetup() expected error for missing archives directory")
		}
	})
}

func TestFileSystemVault_AtomicWrite(t *testing.T) {
	v, err := NewFileSystemVault("test", t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}

	data := "hello world"
	if err := v.PutArchive(testArchiveID, strings.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("PutArchive() error = %v", err)
	}
	// A failed write must not leave its temp file either
	_ = v.PutArchive("other", strings.NewReader(data), 1)

	entries, err := os.ReadDir(v.archiveDir)
	if err != nil {
		t.Fatalf("failed to read archive dir: %v", err)
	}

	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", entry.Name())
		}
	}
}
