package testutil

import (
	"testing"

	"minisite-go/internal/archive"
	"minisite-go/internal/database"
	"minisite-go/internal/fs"
	"minisite-go/internal/minisite"
	"minisite-go/internal/storage"
	"minisite-go/internal/urlbag"
	"minisite-go/internal/vault"
)

// TestBaseURL is the site base URL used by NewTestService.
const TestBaseURL = "http://example.com"

// ServiceEnv is a minisite.Service wired to test collaborators, with every
// collaborator exposed for assertions.
type ServiceEnv struct {
	Service   *minisite.Service
	Database  *database.SQLiteDatabase
	Vault     *vault.MemoryVault
	Storage   *storage.Resolver
	FS        *fs.OSFilesystemManager
	Logger    *RecordingLogger
	Clock     *StubClock
	PublicDir string
}

// NewTestService builds a Service on an in-memory database, a memory vault
// and a public:// storage directory below t.TempDir() served under /files.
// encryptor may be nil.
func NewTestService(t *testing.T, encryptor minisite.Encryptor) *ServiceEnv {
	t.Helper()

	fsmgr, err := fs.NewOSFilesystemManager(nil)
	if err != nil {
		t.Fatalf("NewOSFilesystemManager() error = %v", err)
	}

	env := &ServiceEnv{
		Database:  NewTestDatabase(t),
		Vault:     NewTestVault(),
		PublicDir: t.TempDir(),
		FS:        fsmgr,
		Logger:    &RecordingLogger{},
		Clock:     FixedClock(),
	}
	env.Storage = storage.New(storage.DefaultScheme, env.PublicDir, "/files")
	env.Service = minisite.NewService(
		env.Database,
		env.Vault,
		env.FS,
		env.Storage,
		encryptor,
		archive.DefaultPolicy(),
		urlbag.FixedContext(TestBaseURL),
		env.Logger,
		env.Clock,
		NewStubIDGenerator(),
	)
	return env
}
