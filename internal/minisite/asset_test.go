package minisite_test

import (
	"database/sql"
	"testing"

	"minisite-go/internal/database/sqlc"
	"minisite-go/internal/minisite"
	"minisite-go/internal/storage"
	"minisite-go/internal/urlbag"
)

const assetArchiveID = "24c22dd1-2cf1-47ae-ac8a-23a7ff8b86c5"

func newAsset(t *testing.T, rel, mime, alias string, arc *sqlc.Archive) *minisite.Asset {
	t.Helper()
	record := &sqlc.Asset{
		ArchiveID: assetArchiveID,
		Source:    "public://minisite/static/" + assetArchiveID + "/" + rel,
		Filemime:  mime,
		Filesize:  123,
	}
	if alias != "" {
		record.Alias = sql.NullString{String: alias, Valid: true}
	}
	a, err := minisite.NewAsset(record, arc, urlbag.FixedContext("http://example.com"), storage.New("public", t.TempDir(), "/files"))
	if err != nil {
		t.Fatalf("NewAsset() error = %v", err)
	}
	return a
}

func TestAsset(t *testing.T) {
	arc := &sqlc.Archive{ID: assetArchiveID, Language: "fr"}

	tests := []struct {
		name       string
		rel        string
		mime       string
		alias      string
		wantDoc    bool
		wantIndex  bool
		wantURL    string
		wantAbs    string
		wantMount  string
		wantHeader map[string]string
	}{
		{
			name:      "index page with alias",
			rel:       "site/index.html",
			mime:      "text/html",
			alias:     "/my-page/site/index.html",
			wantDoc:   true,
			wantIndex: true,
			wantURL:   "/my-page/site/index.html",
			wantAbs:   "http://example.com/my-page/site/index.html",
			wantMount: "http://example.com/my-page",
			wantHeader: map[string]string{
				"Content-Type":     "text/html; charset=UTF-8",
				"Content-Language": "fr",
				"Content-Length":   "",
			},
		},
		{
			name:    "nested index is not the entry page",
			rel:     "site/sub/index.html",
			mime:    "text/html",
			wantDoc: true,
			wantURL: "/files/minisite/static/" + assetArchiveID + "/site/sub/index.html",
			wantAbs: "http://example.com/files/minisite/static/" + assetArchiveID + "/site/sub/index.html",
		},
		{
			name:    "uppercase htm",
			rel:     "site/old.HTM",
			mime:    "text/html",
			wantDoc: true,
			wantURL: "/files/minisite/static/" + assetArchiveID + "/site/old.HTM",
		},
		{
			name:      "image",
			rel:       "site/images/x.png",
			mime:      "image/png",
			alias:     "/x/site/images/x.png",
			wantURL:   "/x/site/images/x.png",
			wantMount: "http://example.com/x",
			wantHeader: map[string]string{
				"Content-Type":     "image/png",
				"Content-Length":   "123",
				"Accept-Ranges":    "bytes",
				"Content-Language": "",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAsset(t, tt.rel, tt.mime, tt.alias, arc)

			if got := a.IsDocument(); got != tt.wantDoc {
				t.Errorf("IsDocument() = %v, want %v", got, tt.wantDoc)
			}
			if got := a.IsIndex(); got != tt.wantIndex {
				t.Errorf("IsIndex() = %v, want %v", got, tt.wantIndex)
			}
			if got := a.URL(); got != tt.wantURL {
				t.Errorf("URL() = %q, want %q", got, tt.wantURL)
			}
			if tt.wantAbs != "" && a.AbsoluteURL() != tt.wantAbs {
				t.Errorf("AbsoluteURL() = %q, want %q", a.AbsoluteURL(), tt.wantAbs)
			}
			if mount, ok := a.MountURL(); mount != tt.wantMount || ok != (tt.alias != "") {
				t.Errorf("MountURL() = %q, %v, want %q", mount, ok, tt.wantMount)
			}
			h := a.Headers()
			for k, want := range tt.wantHeader {
				if got := h.Get(k); got != want {
					t.Errorf("Headers()[%s] = %q, want %q", k, got, want)
				}
			}
			if a.CacheMaxAge() != minisite.CacheMaxAge {
				t.Errorf("CacheMaxAge() = %d", a.CacheMaxAge())
			}
		})
	}
}

func TestNewAsset_aliasMismatch(t *testing.T) {
	record := &sqlc.Asset{
		Source: "public://minisite/static/" + assetArchiveID + "/site/page.html",
		Alias:  sql.NullString{String: "/my-page/other/page.html", Valid: true},
	}
	_, err := minisite.NewAsset(record, nil, urlbag.FixedContext("http://example.com"), storage.New("public", t.TempDir(), "/files"))
	if err == nil {
		t.Fatal("NewAsset() expected error for an alias outside the root folder")
	}
}
