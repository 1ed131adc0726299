package archive

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	htmlOnly := Policy{AllowedExtensions: []string{"html"}, MaxPathLength: 1986, AllowedStrayRootDirs: []string{"__MACOSX"}}

	tests := []struct {
		name    string
		entries []string
		policy  Policy
		want    []string
	}{
		{
			name:    "valid bundle",
			entries: []string{"site/", "site/index.html", "site/page.html"},
			policy:  htmlOnly,
		},
		{
			name:    "two top level directories",
			entries: []string{"dir1/index.html", "dir2/index.html"},
			policy:  htmlOnly,
			want:    []string{"A single top level directory is expected."},
		},
		{
			name:    "top level file",
			entries: []string{"index.html"},
			policy:  htmlOnly,
			want:    []string{"A single top level directory is expected."},
		},
		{
			name:    "top level file next to directory",
			entries: []string{"dir1/index.html", "readme.exe"},
			policy:  htmlOnly,
			want:    []string{"A single top level directory is expected."},
		},
		{
			name:    "empty archive",
			entries: nil,
			policy:  htmlOnly,
			want:    []string{"A single top level directory is expected."},
		},
		{
			name:    "stray root directory is ignored",
			entries: []string{"__MACOSX/", "__MACOSX/dir1/._index.html", "dir1/index.html"},
			policy:  htmlOnly,
		},
		{
			name:    "stray root directory entries are still checked",
			entries: []string{"__MACOSX/", "__MACOSX/evil.exe", "__MACOSX/dir1/._index", "dir1/index.html"},
			policy:  htmlOnly,
			want: []string{
				"File __MACOSX/evil.exe has invalid extension.",
				"File __MACOSX/dir1/._index has invalid extension.",
			},
		},
		{
			name:    "missing index",
			entries: []string{"dir1/page.html", "dir1/sub/index.html"},
			policy:  htmlOnly,
			want:    []string{"Missing required index.html file."},
		},
		{
			name:    "index as a directory",
			entries: []string{"dir1/index.html/", "dir1/index.html/x.html"},
			policy:  htmlOnly,
			want:    []string{"Missing required index.html file."},
		},
		{
			name:    "invalid extensions are aggregated",
			entries: []string{"dir1/index.html", "dir1/file.txt", "dir1/file2.txt"},
			policy:  htmlOnly,
			want: []string{
				"File dir1/file.txt has invalid extension.",
				"File dir1/file2.txt has invalid extension.",
			},
		},
		{
			name:    "extension check ignores case and directories",
			entries: []string{"dir1/", "dir1/INDEX.HTML", "dir1/index.html", "dir1/sub.d/"},
			policy:  htmlOnly,
		},
		{
			name:    "empty allow-list allows nothing",
			entries: []string{"dir1/index.html"},
			policy:  Policy{MaxPathLength: 1986},
			want:    []string{"File dir1/index.html has invalid extension."},
		},
		{
			name:    "denied extensions fail even when allowed",
			entries: []string{"dir1/index.html", "dir1/a.exe", "dir1/b.SCR", "dir1/c.bmp"},
			policy:  Policy{AllowedExtensions: []string{"html", "exe", "scr", "bmp"}, MaxPathLength: 1986},
			want: []string{
				"File dir1/a.exe has invalid extension.",
				"File dir1/b.SCR has invalid extension.",
				"File dir1/c.bmp has invalid extension.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Validate(tt.entries, tt.policy)
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}

			var got []string
			for _, v := range res.Violations {
				got = append(got, v.Message)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Violations = %q, want %q", got, tt.want)
			}
			if res.OK() != (len(tt.want) == 0) {
				t.Errorf("OK() = %v, want %v", res.OK(), len(tt.want) == 0)
			}
		})
	}
}

func TestValidate_singleRootShortCircuits(t *testing.T) {
	// Two roots, bad extensions and an over-long path: only the root problem is reported.
	long := "dir2/" + strings.Repeat("a", 2000) + ".exe"
	res, err := Validate([]string{"dir1/index.html", long}, Policy{AllowedExtensions: []string{"html"}, MaxPathLength: 10})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(res.Violations) != 1 || res.Violations[0].Message != "A single top level directory is expected." {
		t.Errorf("Violations = %v, want only the single root violation", res.Violations)
	}
}

func TestValidate_pathLength(t *testing.T) {
	max := DefaultPolicy().MaxPathLength
	if max != 1986 {
		t.Fatalf("DefaultPolicy().MaxPathLength = %d, want 1986", max)
	}

	prefix := "dir1/"
	exact := prefix + strings.Repeat("a", max-len(prefix)-len(".html")) + ".html"
	over := prefix + strings.Repeat("b", max-len(prefix)-len(".html")+1) + ".html"
	if len(exact) != max || len(over) != max+1 {
		t.Fatalf("test paths have lengths %d and %d", len(exact), len(over))
	}

	t.Run("path of exactly the budget passes", func(t *testing.T) {
		res, err := Validate([]string{"dir1/index.html", exact}, DefaultPolicy())
		if err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if !res.OK() {
			t.Errorf("Violations = %v, want none", res.Violations)
		}
	})

	t.Run("one character over fails with the budget in the message", func(t *testing.T) {
		res, err := Validate([]string{"dir1/index.html", over}, DefaultPolicy())
		if err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		want := fmt.Sprintf("File \"%s\" path within the archive should be under 1986 characters in length.", over)
		if len(res.Violations) != 1 || res.Violations[0].Message != want {
			t.Errorf("Violations = %v, want %q", res.Violations, want)
		}
	})

	t.Run("stray root directory entries count", func(t *testing.T) {
		long := "__MACOSX/" + strings.Repeat("d", max) + ".html"
		res, err := Validate([]string{"dir1/index.html", long}, DefaultPolicy())
		if err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if len(res.Violations) != 1 || res.Violations[0].Path != long {
			t.Errorf("Violations = %v, want one for the stray entry", res.Violations)
		}
	})

	t.Run("limit above the budget is capped", func(t *testing.T) {
		p := DefaultPolicy()
		p.MaxPathLength = 5000
		res, err := Validate([]string{"dir1/index.html", over}, p)
		if err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if len(res.Violations) != 1 || res.Violations[0].Path != over {
			t.Errorf("Violations = %v, want one for %d characters", res.Violations, len(over))
		}
	})

	t.Run("length and extension violations accumulate", func(t *testing.T) {
		bad := prefix + strings.Repeat("c", max) + ".txt"
		res, err := Validate([]string{"dir1/index.html", bad}, Policy{AllowedExtensions: []string{"html"}, MaxPathLength: max})
		if err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if len(res.Violations) != 2 {
			t.Fatalf("len(Violations) = %d, want 2", len(res.Violations))
		}
		if res.Violations[0].Path != bad || res.Violations[1].Path != bad {
			t.Errorf("Violations paths = %q, %q, want %q", res.Violations[0].Path, res.Violations[1].Path, bad)
		}
	})
}

func TestValidate_invalidFileList(t *testing.T) {
	_, err := Validate([]string{"dir1/index.html", "dir1/index.html/x"}, DefaultPolicy())
	if !errors.Is(err, ErrInvalidFileList) {
		t.Errorf("Validate() error = %v, want ErrInvalidFileList", err)
	}
}

func TestResult_Err(t *testing.T) {
	t.Run("nil for valid archive", func(t *testing.T) {
		res, _ := Validate([]string{"dir1/index.html"}, DefaultPolicy())
		if err := res.Err(); err != nil {
			t.Errorf("Err() = %v, want nil", err)
		}
	})

	t.Run("joins every message", func(t *testing.T) {
		res, _ := Validate([]string{"dir1/index.html", "dir1/file.txt", "dir1/file2.txt"}, Policy{AllowedExtensions: []string{"html"}})
		err := res.Err()
		if !errors.Is(err, ErrInvalidContent) {
			t.Fatalf("Err() = %v, want ErrInvalidContent", err)
		}
		want := "Archive has invalid content: File dir1/file.txt has invalid extension.\nFile dir1/file2.txt has invalid extension."
		if err.Error() != want {
			t.Errorf("Error() = %q, want %q", err.Error(), want)
		}

		var ce *ContentError
		if !errors.As(err, &ce) {
			t.Fatalf("errors.As(*ContentError) = false")
		}
		if len(ce.Messages()) != 2 {
			t.Errorf("len(Messages()) = %d, want 2", len(ce.Messages()))
		}
	})
}
