package archive

import (
	"errors"
	"reflect"
	"sort"
	"testing"
)

func TestBuildTree(t *testing.T) {
	t.Run("synthesizes missing directories", func(t *testing.T) {
		tree, err := BuildTree([]string{"site/css/main.css", "site/index.html"})
		if err != nil {
			t.Fatalf("BuildTree() error = %v", err)
		}

		site, ok := tree.Child("site").(*Dir)
		if !ok {
			t.Fatalf("Child(site) = %T, want *Dir", tree.Child("site"))
		}
		if site.Path() != "site/" {
			t.Errorf("site.Path() = %q, want %q", site.Path(), "site/")
		}
		css, ok := site.Child("css").(*Dir)
		if !ok {
			t.Fatalf("Child(css) = %T, want *Dir", site.Child("css"))
		}
		if got := css.Child("main.css").Path(); got != "site/css/main.css" {
			t.Errorf("main.css Path() = %q, want %q", got, "site/css/main.css")
		}
	})

	t.Run("records explicit directory entries once", func(t *testing.T) {
		tree, err := BuildTree([]string{"site/", "site/img/", "site/img/a.png", "site/index.html"})
		if err != nil {
			t.Fatalf("BuildTree() error = %v", err)
		}
		if tree.Len() != 1 {
			t.Errorf("root Len() = %d, want 1", tree.Len())
		}
		site := tree.Child("site").(*Dir)
		if got, want := site.Names(), []string{"img", "index.html"}; !reflect.DeepEqual(got, want) {
			t.Errorf("Names() = %v, want %v", got, want)
		}
	})

	t.Run("keeps insertion order", func(t *testing.T) {
		tree, err := BuildTree([]string{"b", "a", "c/"})
		if err != nil {
			t.Fatalf("BuildTree() error = %v", err)
		}
		if got, want := tree.Names(), []string{"b", "a", "c"}; !reflect.DeepEqual(got, want) {
			t.Errorf("Names() = %v, want %v", got, want)
		}
	})

	t.Run("treats leading dot segment as root", func(t *testing.T) {
		tree, err := BuildTree([]string{"./", "./site/index.html"})
		if err != nil {
			t.Fatalf("BuildTree() error = %v", err)
		}
		if got, want := tree.Names(), []string{"site"}; !reflect.DeepEqual(got, want) {
			t.Errorf("Names() = %v, want %v", got, want)
		}
	})

	conflicts := []struct {
		name    string
		entries []string
	}{
		{name: "file then child", entries: []string{"site/x", "site/x/y"}},
		{name: "child then file", entries: []string{"site/x/y", "site/x"}},
		{name: "directory entry then file", entries: []string{"site/x/", "site/x"}},
	}
	for _, tt := range conflicts {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			_, err := BuildTree(tt.entries)
			if !errors.Is(err, ErrInvalidFileList) {
				t.Errorf("BuildTree() error = %v, want ErrInvalidFileList", err)
			}
		})
	}
}

func TestDir_Files_roundTrip(t *testing.T) {
	tests := []struct {
		name    string
		entries []string
		files   []string
	}{
		{
			name:    "flat",
			entries: []string{"site/index.html", "site/page.html"},
			files:   []string{"site/index.html", "site/page.html"},
		},
		{
			name:    "nested with explicit dirs",
			entries: []string{"site/", "site/index.html", "site/a/", "site/a/b/c.css", "site/a/d.js"},
			files:   []string{"site/index.html", "site/a/b/c.css", "site/a/d.js"},
		},
		{
			name:    "several roots",
			entries: []string{"one/index.html", "two/x.txt", "top.txt"},
			files:   []string{"one/index.html", "two/x.txt", "top.txt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := BuildTree(tt.entries)
			if err != nil {
				t.Fatalf("BuildTree() error = %v", err)
			}
			got := tree.Files()
			sort.Strings(got)
			want := append([]string(nil), tt.files...)
			sort.Strings(want)
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Files() = %v, want %v", got, want)
			}
		})
	}
}
