package minisite_test

import (
	"errors"
	"testing"

	"minisite-go/internal/minisite"
	"minisite-go/internal/testutil"
)

func TestService_SetAliasPrefix(t *testing.T) {
	tests := []struct {
		name      string
		prefix    string
		wantIndex string
		wantErr   error
	}{
		{name: "local path", prefix: "/my-page", wantIndex: "/my-page/site/index.html"},
		{name: "trailing slash", prefix: "/my-page/", wantIndex: "/my-page/site/index.html"},
		{name: "relative path", prefix: "docs/v1", wantIndex: "/docs/v1/site/index.html"},
		{name: "absolute url on base", prefix: testutil.TestBaseURL + "/abs", wantIndex: "/abs/site/index.html"},
		{name: "site root", prefix: "/", wantIndex: "/site/index.html"},
		{name: "foreign host", prefix: "https://other.example.org/x", wantErr: minisite.ErrInvalidAliasPrefix},
		{name: "inside storage url space", prefix: "/files/x", wantErr: minisite.ErrInvalidAliasPrefix},
		{name: "storage url root", prefix: "/files", wantErr: minisite.ErrInvalidAliasPrefix},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testutil.NewTestService(t, nil)
			arc, _ := upload(t, env, testutil.SampleSite(), "")

			assets, err := env.Service.SetAliasPrefix(arc.ID, tt.prefix)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("SetAliasPrefix() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("SetAliasPrefix() error = %v", err)
			}
			if len(assets) != len(testutil.SampleSite()) {
				t.Errorf("SetAliasPrefix() = %d assets, want %d", len(assets), len(testutil.SampleSite()))
			}

			index, err := env.Service.FindByAlias(tt.wantIndex)
			if err != nil {
				t.Fatalf("FindByAlias() error = %v", err)
			}
			if index == nil || !index.IsIndex() {
				t.Fatalf("FindByAlias(%q) = %v, want index page", tt.wantIndex, index)
			}
		})
	}
}

func TestService_SetAliasPrefix_conflicts(t *testing.T) {
	t.Run("another archive holds the alias", func(t *testing.T) {
		env := testutil.NewTestService(t, nil)
		upload(t, env, testutil.SampleSite(), "/shared")
		second, _ := upload(t, env, testutil.SampleSite(), "")

		if _, err := env.Service.SetAliasPrefix(second.ID, "/shared"); !errors.Is(err, minisite.ErrAliasInUse) {
			t.Fatalf("SetAliasPrefix() error = %v, want ErrAliasInUse", err)
		}

		// The first archive keeps its mount.
		asset, err := env.Service.FindByAlias("/shared/site/index.html")
		if err != nil || asset == nil {
			t.Fatalf("FindByAlias() = %v, %v", asset, err)
		}
		if asset.Record.ArchiveID != testutil.StubID(1) {
			t.Errorf("alias held by %s, want %s", asset.Record.ArchiveID, testutil.StubID(1))
		}
	})

	t.Run("re-mounting the same archive", func(t *testing.T) {
		env := testutil.NewTestService(t, nil)
		arc, _ := upload(t, env, testutil.SampleSite(), "/a")

		if _, err := env.Service.SetAliasPrefix(arc.ID, "/a"); err != nil {
			t.Fatalf("SetAliasPrefix() same prefix error = %v", err)
		}
		if _, err := env.Service.SetAliasPrefix(arc.ID, "/b"); err != nil {
			t.Fatalf("SetAliasPrefix() new prefix error = %v", err)
		}

		if old, _ := env.Service.FindByAlias("/a/site/index.html"); old != nil {
			t.Error("old alias still resolves")
		}
		if moved, _ := env.Service.FindByAlias("/b/site/index.html"); moved == nil {
			t.Error("new alias does not resolve")
		}
	})

	t.Run("unknown archive", func(t *testing.T) {
		env := testutil.NewTestService(t, nil)
		if _, err := env.Service.SetAliasPrefix(testutil.StubID(7), "/x"); !errors.Is(err, minisite.ErrArchiveNotFound) {
			t.Errorf("SetAliasPrefix() error = %v, want ErrArchiveNotFound", err)
		}
	})
}

func TestService_ClearAlias(t *testing.T) {
	env := testutil.NewTestService(t, nil)
	arc, _ := upload(t, env, testutil.SampleSite(), "/my-page")

	if err := env.Service.ClearAlias(arc.ID); err != nil {
		t.Fatalf("ClearAlias() error = %v", err)
	}

	if asset, _ := env.Service.FindByAlias("/my-page/site/index.html"); asset != nil {
		t.Error("alias still resolves after ClearAlias")
	}
	if index, _ := env.Service.FindIndexByPrefix("/my-page"); index != nil {
		t.Error("prefix still resolves after ClearAlias")
	}

	assets, err := env.Service.ListAssets(arc.ID)
	if err != nil {
		t.Fatalf("ListAssets() error = %v", err)
	}
	for _, a := range assets {
		if a.URL() != a.Bag.URL() {
			t.Errorf("URL() = %q, want file URL %q", a.URL(), a.Bag.URL())
		}
	}
}

func TestService_FindByAlias(t *testing.T) {
	env := testutil.NewTestService(t, nil)
	upload(t, env, testutil.SampleSite(), "/my-page")

	tests := []struct {
		alias    string
		wantPath string
		wantErr  bool
	}{
		{alias: "/my-page/site/page1.html", wantPath: "page1.html"},
		{alias: testutil.TestBaseURL + "/my-page/site/page1.html", wantPath: "page1.html"},
		{alias: "/my-page/site", wantPath: "index.html"},
		{alias: "/my-page/site/", wantPath: "index.html"},
		{alias: "/my-page/site/images/x.png", wantPath: "images/x.png"},
		{alias: "/my-page/site/nope.html"},
		{alias: "/my-page"},
		{alias: "https://other.example.org/my-page/site/page1.html", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.alias, func(t *testing.T) {
			asset, err := env.Service.FindByAlias(tt.alias)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FindByAlias() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantPath == "" {
				if asset != nil {
					t.Errorf("FindByAlias() = %s, want nil", asset.Record.Source)
				}
				return
			}
			if asset == nil {
				t.Fatal("FindByAlias() = nil")
			}
			if got := asset.Bag.PathInArchive(); got != tt.wantPath {
				t.Errorf("PathInArchive() = %q, want %q", got, tt.wantPath)
			}
		})
	}
}

func TestService_FindIndexByPrefix(t *testing.T) {
	env := testutil.NewTestService(t, nil)
	upload(t, env, testutil.SampleSite(), "/my-page")

	for _, prefix := range []string{"/my-page", "/my-page/", testutil.TestBaseURL + "/my-page"} {
		index, err := env.Service.FindIndexByPrefix(prefix)
		if err != nil {
			t.Fatalf("FindIndexByPrefix(%q) error = %v", prefix, err)
		}
		if index == nil || index.URL() != "/my-page/site/index.html" {
			t.Errorf("FindIndexByPrefix(%q) = %v", prefix, index)
		}
	}

	index, err := env.Service.FindIndexByPrefix("/elsewhere")
	if err != nil || index != nil {
		t.Errorf("FindIndexByPrefix(/elsewhere) = %v, %v, want nil", index, err)
	}
}
